package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/keagan/shotlist/internal/failure"
	"github.com/keagan/shotlist/internal/models"
)

type fakeChat struct {
	mu       sync.Mutex
	requests []openai.ChatCompletionRequest
	calledAt []time.Time
	failOn   int // 1-based call number that fails, 0 never
	reply    func(call int, req openai.ChatCompletionRequest) string
}

func (f *fakeChat) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	f.calledAt = append(f.calledAt, time.Now())
	call := len(f.requests)

	if call == f.failOn {
		return openai.ChatCompletionResponse{}, &openai.APIError{HTTPStatusCode: 429, Message: "slow down"}
	}

	content := fmt.Sprintf("Shot type: Shot %d\nColors: red, blue\n", call)
	if f.reply != nil {
		content = f.reply(call, req)
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
		}},
	}, nil
}

type countingLimiter struct{ waits int }

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.waits++
	return ctx.Err()
}

func writeFrames(t *testing.T, timestamps ...float64) []models.Frame {
	t.Helper()
	dir := t.TempDir()
	frames := make([]models.Frame, 0, len(timestamps))
	for i, ts := range timestamps {
		img := image.NewRGBA(image.Rect(0, 0, 64, 36))
		for y := 0; y < 36; y++ {
			for x := 0; x < 64; x++ {
				img.Set(x, y, color.RGBA{R: uint8(40 * i), G: 120, B: 200, A: 255})
			}
		}
		path := filepath.Join(dir, fmt.Sprintf("frame_%04d.jpg", i+1))
		f, err := os.Create(path)
		require.NoError(t, err)
		require.NoError(t, jpeg.Encode(f, img, nil))
		require.NoError(t, f.Close())
		frames = append(frames, models.Frame{Path: path, Timestamp: ts, KeyFrame: i%2 == 0})
	}
	return frames
}

func imageCount(req openai.ChatCompletionRequest) int {
	n := 0
	for _, msg := range req.Messages {
		for _, part := range msg.MultiContent {
			if part.Type == openai.ChatMessagePartTypeImageURL {
				n++
			}
		}
	}
	return n
}

func userText(req openai.ChatCompletionRequest) string {
	for _, msg := range req.Messages {
		if msg.Role != openai.ChatMessageRoleUser {
			continue
		}
		if msg.Content != "" {
			return msg.Content
		}
		var parts []string
		for _, part := range msg.MultiContent {
			if part.Type == openai.ChatMessagePartTypeText {
				parts = append(parts, part.Text)
			}
		}
		return strings.Join(parts, "\n")
	}
	return ""
}

func TestBatchesOfThree(t *testing.T) {
	frames := make([]models.Frame, 7)
	for i := range frames {
		frames[i].Timestamp = float64(i)
	}

	batches := Batches(frames, 3)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 3)
	assert.Len(t, batches[1], 3)
	assert.Len(t, batches[2], 1)
	assert.Equal(t, 6.0, batches[2][0].Timestamp)

	assert.Empty(t, Batches(nil, 3))
}

func TestBatchesProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 50).Draw(t, "n")
		size := rapid.IntRange(1, 6).Draw(t, "size")

		frames := make([]models.Frame, n)
		for i := range frames {
			frames[i].Timestamp = float64(i)
		}

		var flat []models.Frame
		batches := Batches(frames, size)
		for i, b := range batches {
			if len(b) == 0 || len(b) > size {
				t.Fatalf("batch %d has size %d", i, len(b))
			}
			if i < len(batches)-1 && len(b) != size {
				t.Fatalf("non-final batch %d has size %d", i, len(b))
			}
			flat = append(flat, b...)
		}
		if len(flat) != n {
			t.Fatalf("covered %d frames, want %d", len(flat), n)
		}
		for i := range flat {
			if flat[i].Timestamp != float64(i) {
				t.Fatalf("frame %d out of order: %v", i, flat[i].Timestamp)
			}
		}
	})
}

func TestAnalyzeBatches(t *testing.T) {
	frames := writeFrames(t, 0, 3, 6.5, 10, 12)
	client := &fakeChat{}
	limiter := &countingLimiter{}

	a := New(zerolog.Nop(), client, limiter, Options{Model: "test-model"})
	shots, err := a.AnalyzeBatches(context.Background(), frames, &models.Transcript{Text: "hello there"})
	require.NoError(t, err)

	require.Len(t, shots, 2)
	assert.Equal(t, 0.0, shots[0].Timestamp)
	assert.Equal(t, 10.0, shots[1].Timestamp)
	assert.Equal(t, "Shot 1", shots[0].ShotType)
	assert.Equal(t, []string{"red", "blue"}, shots[1].Composition.Colors)

	require.Len(t, client.requests, 2)
	assert.Equal(t, 3, imageCount(client.requests[0]))
	assert.Equal(t, 2, imageCount(client.requests[1]))
	assert.Equal(t, "test-model", client.requests[0].Model)
	assert.Contains(t, userText(client.requests[1]), "hello there")
	assert.Contains(t, client.requests[0].Messages[0].Content, "Narrative purpose:")
	assert.Equal(t, 2, limiter.waits)
}

func TestAnalyzeBatchesEncodesDataURI(t *testing.T) {
	frames := writeFrames(t, 1)
	client := &fakeChat{}

	a := New(zerolog.Nop(), client, &countingLimiter{}, Options{})
	_, err := a.AnalyzeBatches(context.Background(), frames, nil)
	require.NoError(t, err)

	var uri string
	for _, part := range client.requests[0].Messages[1].MultiContent {
		if part.ImageURL != nil {
			uri = part.ImageURL.URL
		}
	}
	assert.True(t, strings.HasPrefix(uri, "data:image/jpeg;base64,"))
	assert.Contains(t, userText(client.requests[0]), "no speech detected")
}

func TestAnalyzeBatchesAbortsOnFailure(t *testing.T) {
	frames := writeFrames(t, 0, 1, 2, 3, 4, 5, 6)
	client := &fakeChat{failOn: 2}

	a := New(zerolog.Nop(), client, &countingLimiter{}, Options{})
	shots, err := a.AnalyzeBatches(context.Background(), frames, nil)

	require.Error(t, err)
	assert.Nil(t, shots)
	assert.True(t, failure.Is(err, failure.KindAnalysis))
	assert.Contains(t, err.Error(), "status 429")
	assert.Len(t, client.requests, 2)
}

func TestAnalyzeBatchesMissingFrameFile(t *testing.T) {
	frames := []models.Frame{{Path: filepath.Join(t.TempDir(), "gone.jpg"), Timestamp: 0, KeyFrame: true}}

	a := New(zerolog.Nop(), &fakeChat{}, &countingLimiter{}, Options{})
	_, err := a.AnalyzeBatches(context.Background(), frames, nil)
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.KindAnalysis))
}

func TestAnalyzeBatchesNoFrames(t *testing.T) {
	a := New(zerolog.Nop(), &fakeChat{}, &countingLimiter{}, Options{})
	_, err := a.AnalyzeBatches(context.Background(), nil, nil)
	assert.True(t, failure.Is(err, failure.KindAnalysis))
}

func TestAnalyzeBatchesEmptyReply(t *testing.T) {
	client := &fakeChat{reply: func(int, openai.ChatCompletionRequest) string { return "   " }}

	a := New(zerolog.Nop(), client, &countingLimiter{}, Options{})
	_, err := a.AnalyzeBatches(context.Background(), writeFrames(t, 0), nil)
	assert.True(t, failure.Is(err, failure.KindAnalysis))
}

func TestAnalyzeBatchesUnlabeledReplyDegrades(t *testing.T) {
	client := &fakeChat{reply: func(int, openai.ChatCompletionRequest) string { return "I cannot tell." }}

	a := New(zerolog.Nop(), client, &countingLimiter{}, Options{})
	shots, err := a.AnalyzeBatches(context.Background(), writeFrames(t, 4), nil)
	require.NoError(t, err)
	require.Len(t, shots, 1)
	assert.Equal(t, 4.0, shots[0].Timestamp)
	assert.Equal(t, "", shots[0].ShotType)
	assert.NotNil(t, shots[0].Composition.Colors)
}

func TestScopedTranscript(t *testing.T) {
	frames := writeFrames(t, 0, 1, 2, 20)
	transcript := &models.Transcript{
		Text: "intro words. outro words.",
		Segments: []models.Segment{
			{Start: 0, End: 2, Text: "intro words."},
			{Start: 19, End: 21, Text: "outro words."},
		},
	}
	client := &fakeChat{}

	a := New(zerolog.Nop(), client, &countingLimiter{}, Options{ScopedTranscript: true, MaxGap: 5})
	_, err := a.AnalyzeBatches(context.Background(), frames, transcript)
	require.NoError(t, err)

	first, second := userText(client.requests[0]), userText(client.requests[1])
	assert.Contains(t, first, "intro words.")
	assert.NotContains(t, first, "outro words.")
	assert.Contains(t, second, "outro words.")
	assert.NotContains(t, second, "intro words.")
}

func TestRateLimiterSpacesCalls(t *testing.T) {
	frames := writeFrames(t, 0, 1, 2, 3, 4, 5, 6)
	client := &fakeChat{}
	interval := 60 * time.Millisecond

	a := New(zerolog.Nop(), client, NewLimiter(interval), Options{})
	_, err := a.AnalyzeBatches(context.Background(), frames, nil)
	require.NoError(t, err)

	require.Len(t, client.calledAt, 3)
	for i := 1; i < len(client.calledAt); i++ {
		gap := client.calledAt[i].Sub(client.calledAt[i-1])
		assert.GreaterOrEqual(t, gap, interval-10*time.Millisecond, "gap %d", i)
	}
}

func TestLimiterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &fakeChat{}
	a := New(zerolog.Nop(), client, &countingLimiter{}, Options{})
	_, err := a.AnalyzeBatches(ctx, writeFrames(t, 0), nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, client.requests)
}

func TestSummarizeStyle(t *testing.T) {
	client := &fakeChat{reply: func(int, openai.ChatCompletionRequest) string {
		return "Visual theme: Cozy\nEditing style: Jump cuts\nMusic style: Lo-fi\nPacing: Fast"
	}}
	shots := []models.ShotAnalysis{models.NewShotAnalysis(0), models.NewShotAnalysis(5)}
	shots[0].ShotType = "Close-up"
	shots[1].Audio.MusicStyle = "Lo-fi beat"

	a := New(zerolog.Nop(), client, &countingLimiter{}, Options{})
	style, err := a.SummarizeStyle(context.Background(), shots)
	require.NoError(t, err)

	assert.Equal(t, models.OverallStyle{
		VisualTheme:  "Cozy",
		EditingStyle: "Jump cuts",
		MusicStyle:   "Lo-fi",
		Pacing:       "Fast",
	}, style)

	sent := userText(client.requests[0])
	assert.Contains(t, sent, "Shot 1 at 0.00s")
	assert.Contains(t, sent, "Shot type: Close-up")
	assert.Contains(t, sent, "Music style: Lo-fi beat")
}

func TestSummarizeStyleFailure(t *testing.T) {
	a := New(zerolog.Nop(), &fakeChat{failOn: 1}, &countingLimiter{}, Options{})
	_, err := a.SummarizeStyle(context.Background(), nil)
	assert.True(t, failure.Is(err, failure.KindAnalysis))
}

func TestEncodeFrameDownscales(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 200))
	path := filepath.Join(t.TempDir(), "wide.jpg")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(f, img, nil))
	require.NoError(t, f.Close())

	enc, err := encodeFrame(path, 100)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(enc.DataURI, "data:image/jpeg;base64,"))
	assert.InDelta(t, 0.0, enc.Exposure.Brightness, 0.05)
}

func TestMeasureExposure(t *testing.T) {
	white := image.NewUniform(color.White)
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.Set(x, y, white.C)
		}
	}

	exp := measureExposure(img)
	assert.InDelta(t, 1.0, exp.Brightness, 0.01)
	assert.InDelta(t, 0.0, exp.Contrast, 0.01)
	assert.InDelta(t, 0.0, exp.Colorfulness, 0.01)
	assert.Equal(t, Exposure{}, measureExposure(image.NewRGBA(image.Rect(0, 0, 0, 0))))
}
