package pipeline

import (
	"context"

	"github.com/keagan/shotlist/internal/download"
	"github.com/keagan/shotlist/internal/ffmpeg"
	"github.com/keagan/shotlist/internal/models"
	"github.com/keagan/shotlist/internal/workspace"
)

// Workspaces allocates the per-request directory
type Workspaces interface {
	Acquire(requestID string) (*workspace.Workspace, error)
	Release(ws *workspace.Workspace)
}

// Fetcher downloads the source video
type Fetcher interface {
	Fetch(ctx context.Context, source models.VideoSource, ws *workspace.Workspace) (*download.Result, error)
}

// MediaTool probes, demuxes and scans the downloaded video
type MediaTool interface {
	ProbeVideo(ctx context.Context, path string) (*ffmpeg.VideoInfo, error)
	ExtractAudio(ctx context.Context, input, output string, format ffmpeg.AudioFormat) error
	DetectScenes(ctx context.Context, input string, threshold float64) ([]float64, error)
}

// FrameSampler renders the frames sent to the vision model
type FrameSampler interface {
	Sample(ctx context.Context, videoPath string, boundaries []float64, dir string) ([]models.Frame, error)
}

// Transcriber converts extracted audio to text
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*models.Transcript, error)
}

// Analyzer runs the vision model over frame batches
type Analyzer interface {
	AnalyzeBatches(ctx context.Context, frames []models.Frame, transcript *models.Transcript) ([]models.ShotAnalysis, error)
	SummarizeStyle(ctx context.Context, shots []models.ShotAnalysis) (models.OverallStyle, error)
}

// Stages bundles the collaborators of a pipeline
type Stages struct {
	Workspaces  Workspaces
	Fetcher     Fetcher
	Media       MediaTool
	Sampler     FrameSampler
	Transcriber Transcriber
	Analyzer    Analyzer
}

// Options holds the orchestration policies
type Options struct {
	SceneThreshold float64
	// TranscriptionRequired fails the request when speech-to-text fails
	// instead of continuing with an empty transcript
	TranscriptionRequired bool
	DeriveInsights        bool
}
