// Package pipeline sequences the analysis stages for one video.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/keagan/shotlist/internal/config"
	"github.com/keagan/shotlist/internal/download"
	"github.com/keagan/shotlist/internal/failure"
	"github.com/keagan/shotlist/internal/ffmpeg"
	"github.com/keagan/shotlist/internal/logging"
	"github.com/keagan/shotlist/internal/models"
	"github.com/keagan/shotlist/internal/report"
	"github.com/keagan/shotlist/internal/sampler"
	"github.com/keagan/shotlist/internal/transcribe"
	"github.com/keagan/shotlist/internal/vision"
	"github.com/keagan/shotlist/internal/workspace"
)

// Pipeline orchestrates the analysis of a video URL. It holds no per-request
// state, so one Pipeline may run many Analyze calls concurrently.
type Pipeline struct {
	logger zerolog.Logger
	stages Stages
	opts   Options
	newID  func() string
}

// New wires the production stages from configuration
func New(logger zerolog.Logger, cfg *config.Config) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	workspaces, err := workspace.NewManager(logger, cfg.WorkDir)
	if err != nil {
		return nil, err
	}

	ffmpegExec, err := ffmpeg.New(logger, ffmpeg.Options{
		FFmpegPath:  cfg.FFmpeg.BinaryPath,
		FFprobePath: cfg.FFmpeg.ProbePath,
		Threads:     cfg.FFmpeg.Threads,
		Timeout:     cfg.FFmpeg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}

	if cfg.AI.APIKey == "" && cfg.AI.BaseURL == "" {
		logger.Warn().Msg("no API key configured; inference calls will be rejected")
	}

	// one client and one limiter shared by every request of this process
	clientCfg := openai.DefaultConfig(cfg.AI.APIKey)
	if cfg.AI.BaseURL != "" {
		clientCfg.BaseURL = cfg.AI.BaseURL
	}
	client := openai.NewClientWithConfig(clientCfg)
	limiter := vision.NewLimiter(cfg.AI.MinCallInterval)

	stages := Stages{
		Workspaces: workspaces,
		Fetcher: download.New(logger, download.Options{
			BinaryPath: cfg.Download.BinaryPath,
			Format:     cfg.Download.Format,
			Timeout:    cfg.Download.Timeout,
		}),
		Media: ffmpegExec,
		Sampler: sampler.New(logger, ffmpegExec, sampler.Options{
			MaxGap:       cfg.Sampler.MaxGap,
			AllowPartial: cfg.Sampler.AllowPartial,
		}),
		Transcriber: transcribe.New(logger, client, transcribe.Options{
			Model:   cfg.AI.TranscriptionModel,
			Timeout: cfg.AI.RequestTimeout,
		}),
		Analyzer: vision.New(logger, client, limiter, vision.Options{
			Model:            cfg.AI.VisionModel,
			BatchSize:        cfg.AI.BatchSize,
			MaxImageWidth:    cfg.AI.MaxImageWidth,
			MaxTokens:        cfg.AI.MaxTokens,
			RequestTimeout:   cfg.AI.RequestTimeout,
			ScopedTranscript: cfg.AI.ScopedTranscript,
			MaxGap:           cfg.Sampler.MaxGap,
		}),
	}

	return NewWithStages(logger, stages, Options{
		SceneThreshold:        cfg.FFmpeg.SceneThreshold,
		TranscriptionRequired: cfg.Transcription.Required,
		DeriveInsights:        cfg.Report.DeriveInsights,
	}), nil
}

// NewWithStages builds a pipeline around caller-supplied stages
func NewWithStages(logger zerolog.Logger, stages Stages, opts Options) *Pipeline {
	if opts.SceneThreshold <= 0 {
		opts.SceneThreshold = ffmpeg.DefaultSceneThreshold
	}
	return &Pipeline{
		logger: logger.With().Str("component", "pipeline").Logger(),
		stages: stages,
		opts:   opts,
		newID:  uuid.NewString,
	}
}

// Analyze runs every stage for source and returns the report. The request's
// workspace is released on every return path.
func (p *Pipeline) Analyze(ctx context.Context, source models.VideoSource) (*models.Report, error) {
	requestID := p.newID()
	logger := logging.WithRequest(p.logger, requestID, source.URL)
	start := time.Now()

	logger.Info().Msg("starting analysis pipeline")

	ws, err := p.stages.Workspaces.Acquire(requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire workspace: %w", err)
	}
	defer p.stages.Workspaces.Release(ws)

	rep, err := p.run(ctx, logger, source, ws)
	if err != nil {
		logger.Error().
			Err(err).
			Str("kind", failure.KindOf(err).String()).
			Str("reason", string(failure.ReasonOf(err))).
			Dur("took", time.Since(start)).
			Msg("analysis pipeline failed")
		return nil, err
	}

	logger.Info().
		Int("shots", len(rep.Shots)).
		Float64("duration", rep.Duration).
		Dur("took", time.Since(start)).
		Msg("analysis pipeline complete")

	return rep, nil
}

func (p *Pipeline) run(ctx context.Context, logger zerolog.Logger, source models.VideoSource, ws *workspace.Workspace) (*models.Report, error) {
	// Stage 1: download
	video, err := p.stages.Fetcher.Fetch(ctx, source, ws)
	if err != nil {
		return nil, err
	}

	// Stage 2: metadata
	info, err := p.stages.Media.ProbeVideo(ctx, video.Path)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("title", video.Title).
		Dur("duration", info.Duration).
		Int("width", info.Width).
		Int("height", info.Height).
		Bool("has_audio", info.HasAudio).
		Msg("video metadata extracted")

	// Stage 3: audio
	audioPath, err := p.extractAudio(ctx, info, video.Path, ws)
	if err != nil {
		return nil, err
	}

	// Stage 4: scene boundaries
	boundaries, err := p.stages.Media.DetectScenes(ctx, video.Path, p.opts.SceneThreshold)
	if errors.Is(err, ffmpeg.ErrNoScenes) {
		logger.Info().Msg("no scene changes detected, sampling the first frame only")
		boundaries, err = []float64{0}, nil
	}
	if err != nil {
		return nil, err
	}

	// Stage 5: frames
	frames, err := p.stages.Sampler.Sample(ctx, video.Path, boundaries, ws.Path("frames"))
	if err != nil {
		return nil, err
	}

	// Stage 6: transcript
	transcript, err := p.transcribe(ctx, logger, audioPath)
	if err != nil {
		return nil, err
	}

	// Stage 7: vision
	shots, err := p.stages.Analyzer.AnalyzeBatches(ctx, frames, transcript)
	if err != nil {
		return nil, err
	}

	style, err := p.stages.Analyzer.SummarizeStyle(ctx, shots)
	if err != nil {
		return nil, err
	}

	// Stage 8: report
	rep := report.Aggregate(video.Title, source.URL, shots, style, frames)
	if p.opts.DeriveInsights {
		insights := report.DeriveInsights(rep.Shots)
		rep.Derived = &insights
	}
	return rep, nil
}

// extractAudio returns "" for videos without an audio stream
func (p *Pipeline) extractAudio(ctx context.Context, info *ffmpeg.VideoInfo, videoPath string, ws *workspace.Workspace) (string, error) {
	if !info.HasAudio {
		return "", nil
	}
	ext, format := ffmpeg.AudioTarget(info.AudioCodec)
	audioPath := ws.Path("audio" + ext)
	if err := p.stages.Media.ExtractAudio(ctx, videoPath, audioPath, format); err != nil {
		return "", err
	}
	return audioPath, nil
}

func (p *Pipeline) transcribe(ctx context.Context, logger zerolog.Logger, audioPath string) (*models.Transcript, error) {
	if audioPath == "" {
		logger.Info().Msg("video has no audio, continuing without transcript")
		return &models.Transcript{}, nil
	}

	transcript, err := p.stages.Transcriber.Transcribe(ctx, audioPath)
	if err == nil {
		return transcript, nil
	}
	if p.opts.TranscriptionRequired || ctx.Err() != nil {
		return nil, err
	}

	logger.Warn().Err(err).Msg("transcription failed, continuing without transcript")
	return &models.Transcript{}, nil
}
