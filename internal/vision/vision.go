// Package vision sends sampled frames to a multimodal model in fixed-size
// batches and turns the replies into shot records.
package vision

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/keagan/shotlist/internal/failure"
	"github.com/keagan/shotlist/internal/models"
	"github.com/keagan/shotlist/internal/parser"
)

const (
	DefaultBatchSize       = 3
	DefaultMinCallInterval = 2 * time.Second
	DefaultMaxImageWidth   = 1024
	DefaultMaxTokens       = 1500
)

// ChatClient is the chat completion subset of the OpenAI client
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Limiter paces inference calls. *rate.Limiter satisfies it.
type Limiter interface {
	Wait(ctx context.Context) error
}

// NewLimiter allows one call per interval with no burst
func NewLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// Options configures the analyzer
type Options struct {
	Model          string
	BatchSize      int
	MaxImageWidth  int
	MaxTokens      int
	RequestTimeout time.Duration

	// ScopedTranscript sends only the speech overlapping each batch instead
	// of the full transcript. The window extends MaxGap seconds past the
	// batch's last frame.
	ScopedTranscript bool
	MaxGap           float64
}

// Analyzer runs the per-batch and overall style inference calls
type Analyzer struct {
	logger  zerolog.Logger
	client  ChatClient
	limiter Limiter
	opts    Options
}

// New creates an analyzer. The client and limiter may be shared between
// concurrent requests.
func New(logger zerolog.Logger, client ChatClient, limiter Limiter, opts Options) *Analyzer {
	if opts.Model == "" {
		opts.Model = openai.GPT4o
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MaxImageWidth <= 0 {
		opts.MaxImageWidth = DefaultMaxImageWidth
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if limiter == nil {
		limiter = NewLimiter(DefaultMinCallInterval)
	}
	return &Analyzer{
		logger:  logger.With().Str("component", "vision").Logger(),
		client:  client,
		limiter: limiter,
		opts:    opts,
	}
}

// Batches partitions frames into consecutive groups of size, keeping order.
// The last group may be smaller.
func Batches(frames []models.Frame, size int) [][]models.Frame {
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := make([][]models.Frame, 0, (len(frames)+size-1)/size)
	for start := 0; start < len(frames); start += size {
		end := min(start+size, len(frames))
		batches = append(batches, frames[start:end])
	}
	return batches
}

// AnalyzeBatches returns one shot record per batch, ordered by timestamp.
// The first failing batch aborts the whole run.
func (a *Analyzer) AnalyzeBatches(ctx context.Context, frames []models.Frame, transcript *models.Transcript) ([]models.ShotAnalysis, error) {
	if len(frames) == 0 {
		return nil, failure.Analysis("analyze frames", errors.New("no frames to analyze"))
	}

	batches := Batches(frames, a.opts.BatchSize)
	a.logger.Info().
		Int("frames", len(frames)).
		Int("batches", len(batches)).
		Str("model", a.opts.Model).
		Msg("analyzing frames")

	system := shotSystemPrompt()
	shots := make([]models.ShotAnalysis, 0, len(batches))

	for i, batch := range batches {
		start := time.Now()

		shot, err := a.analyzeBatch(ctx, system, batch, transcript)
		if err != nil {
			return nil, failure.Analysis(fmt.Sprintf("analyze batch %d/%d", i+1, len(batches)), err)
		}
		shots = append(shots, shot)

		a.logger.Debug().
			Int("batch", i+1).
			Float64("timestamp", shot.Timestamp).
			Str("shot_type", shot.ShotType).
			Dur("took", time.Since(start)).
			Msg("batch analyzed")
	}

	sort.SliceStable(shots, func(i, j int) bool {
		return shots[i].Timestamp < shots[j].Timestamp
	})
	return shots, nil
}

func (a *Analyzer) analyzeBatch(ctx context.Context, system string, batch []models.Frame, transcript *models.Transcript) (models.ShotAnalysis, error) {
	parts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: a.transcriptFor(batch, transcript),
	}}

	for i, frame := range batch {
		enc, err := encodeFrame(frame.Path, a.opts.MaxImageWidth)
		if err != nil {
			return models.ShotAnalysis{}, fmt.Errorf("frame at %.2fs: %w", frame.Timestamp, err)
		}
		parts = append(parts,
			openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: frameCaption(i, frame, enc.Exposure),
			},
			openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    enc.DataURI,
					Detail: openai.ImageURLDetailAuto,
				},
			},
		)
	}

	reply, err := a.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, MultiContent: parts},
	})
	if err != nil {
		return models.ShotAnalysis{}, err
	}

	timestamp := batch[0].Timestamp
	shot, err := parser.ParseShot(reply, timestamp)
	if err != nil {
		return models.ShotAnalysis{}, err
	}

	if missing := parser.MissingShotFields(reply); len(missing) > 0 {
		a.logger.Debug().
			Float64("timestamp", timestamp).
			Strs("missing", missing).
			Msg("response missing labeled fields")
	}
	return shot, nil
}

func (a *Analyzer) transcriptFor(batch []models.Frame, transcript *models.Transcript) string {
	if transcript == nil {
		return transcriptBlock("")
	}
	if !a.opts.ScopedTranscript {
		return transcriptBlock(transcript.Text)
	}
	start := batch[0].Timestamp
	end := batch[len(batch)-1].Timestamp + a.opts.MaxGap
	return transcriptBlock(transcript.Excerpt(start, end))
}

// SummarizeStyle makes the final call that describes the video as a whole
func (a *Analyzer) SummarizeStyle(ctx context.Context, shots []models.ShotAnalysis) (models.OverallStyle, error) {
	a.logger.Info().Int("shots", len(shots)).Msg("summarizing overall style")

	reply, err := a.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: styleSystemPrompt()},
		{Role: openai.ChatMessageRoleUser, Content: renderShots(shots)},
	})
	if err != nil {
		return models.OverallStyle{}, failure.Analysis("summarize style", err)
	}

	style, err := parser.ParseOverallStyle(reply)
	if err != nil {
		return models.OverallStyle{}, failure.Analysis("summarize style", err)
	}
	return style, nil
}

// complete waits for the limiter and performs one chat completion
func (a *Analyzer) complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	if a.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.RequestTimeout)
		defer cancel()
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     a.opts.Model,
		Messages:  messages,
		MaxTokens: a.opts.MaxTokens,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("chat completion status %d: %w", apiErr.HTTPStatusCode, err)
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("chat completion returned empty content")
	}
	return content, nil
}
