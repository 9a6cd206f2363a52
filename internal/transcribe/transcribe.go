// Package transcribe converts extracted audio into timed transcript text.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/keagan/shotlist/internal/failure"
	"github.com/keagan/shotlist/internal/models"
	"github.com/keagan/shotlist/pkg/util"
)

// Client is the speech-to-text subset of the OpenAI client
type Client interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// Options configures the transcriber
type Options struct {
	Model   string
	Timeout time.Duration
}

// Transcriber sends one audio file per request to a speech-to-text service
type Transcriber struct {
	logger zerolog.Logger
	client Client
	opts   Options
}

// New creates a transcriber
func New(logger zerolog.Logger, client Client, opts Options) *Transcriber {
	if opts.Model == "" {
		opts.Model = openai.Whisper1
	}
	return &Transcriber{
		logger: logger.With().Str("component", "transcribe").Logger(),
		client: client,
		opts:   opts,
	}
}

// Transcribe returns the transcript of the audio at path
func (t *Transcriber) Transcribe(ctx context.Context, path string) (*models.Transcript, error) {
	if !util.FileExists(path) {
		return nil, failure.Transcription("transcribe audio", fmt.Errorf("audio file missing or empty: %s", path))
	}

	if t.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.Timeout)
		defer cancel()
	}

	t.logger.Info().Str("audio", path).Str("model", t.opts.Model).Msg("transcribing audio")
	start := time.Now()

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.opts.Model,
		FilePath: path,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, failure.Transcription("transcribe audio", describe(err))
	}

	transcript := &models.Transcript{
		Text:     strings.TrimSpace(resp.Text),
		Segments: make([]models.Segment, 0, len(resp.Segments)),
	}
	for _, seg := range resp.Segments {
		transcript.Segments = append(transcript.Segments, models.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}

	t.logger.Info().
		Int("chars", len(transcript.Text)).
		Int("segments", len(transcript.Segments)).
		Dur("took", time.Since(start)).
		Msg("transcription complete")

	return transcript, nil
}

// describe adds the HTTP status to API errors so logs show whether a retry
// would make sense.
func describe(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("api status %d: %w", apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("request status %d: %w", reqErr.HTTPStatusCode, err)
	}
	return err
}
