package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keagan/shotlist/internal/failure"
)

type fakeClient struct {
	resp openai.AudioResponse
	err  error
	got  openai.AudioRequest
	wait bool
}

func (f *fakeClient) CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
	f.got = req
	if f.wait {
		<-ctx.Done()
		return openai.AudioResponse{}, ctx.Err()
	}
	return f.resp, f.err
}

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.m4a")
	require.NoError(t, os.WriteFile(path, []byte("audio"), 0644))
	return path
}

func verboseResponse(t *testing.T, body string) openai.AudioResponse {
	t.Helper()
	var resp openai.AudioResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	return resp
}

func TestTranscribeReturnsSegments(t *testing.T) {
	client := &fakeClient{resp: verboseResponse(t, `{
		"text": " Welcome back. Today we cook. ",
		"segments": [
			{"id": 0, "start": 0.0, "end": 1.8, "text": " Welcome back."},
			{"id": 1, "start": 1.8, "end": 4.2, "text": " Today we cook."}
		]
	}`)}

	tr := New(zerolog.Nop(), client, Options{})
	got, err := tr.Transcribe(context.Background(), writeAudio(t))
	require.NoError(t, err)

	assert.Equal(t, "Welcome back. Today we cook.", got.Text)
	require.Len(t, got.Segments, 2)
	assert.Equal(t, "Today we cook.", got.Segments[1].Text)
	assert.Equal(t, 1.8, got.Segments[1].Start)

	assert.Equal(t, openai.Whisper1, client.got.Model)
	assert.Equal(t, openai.AudioResponseFormatVerboseJSON, client.got.Format)
}

func TestTranscribeSilentAudio(t *testing.T) {
	tr := New(zerolog.Nop(), &fakeClient{resp: verboseResponse(t, `{"text": ""}`)}, Options{})

	got, err := tr.Transcribe(context.Background(), writeAudio(t))
	require.NoError(t, err)
	assert.Empty(t, got.Text)
	assert.NotNil(t, got.Segments)
}

func TestTranscribeServiceError(t *testing.T) {
	client := &fakeClient{err: &openai.APIError{HTTPStatusCode: 500, Message: "boom"}}
	tr := New(zerolog.Nop(), client, Options{})

	_, err := tr.Transcribe(context.Background(), writeAudio(t))
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.KindTranscription))
	assert.Contains(t, err.Error(), "api status 500")

	var apiErr *openai.APIError
	assert.True(t, errors.As(err, &apiErr))
}

func TestTranscribeMissingFile(t *testing.T) {
	tr := New(zerolog.Nop(), &fakeClient{}, Options{})

	_, err := tr.Transcribe(context.Background(), filepath.Join(t.TempDir(), "nope.m4a"))
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.KindTranscription))
}

func TestTranscribeTimeout(t *testing.T) {
	tr := New(zerolog.Nop(), &fakeClient{wait: true}, Options{Timeout: 20 * time.Millisecond})

	_, err := tr.Transcribe(context.Background(), writeAudio(t))
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.KindTranscription))
	assert.Equal(t, failure.ReasonTimeout, failure.ReasonOf(err))
}
