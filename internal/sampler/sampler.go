// Package sampler turns scene boundaries into the ordered set of frames that
// get sent to the vision model.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/keagan/shotlist/internal/failure"
	"github.com/keagan/shotlist/internal/models"
	"github.com/keagan/shotlist/pkg/util"
)

// DefaultMaxGap is the widest boundary gap, in seconds, left without a midpoint frame
const DefaultMaxGap = 5.0

// Plan is a frame scheduled for extraction
type Plan struct {
	Timestamp float64
	KeyFrame  bool
}

// PlanFrames schedules one key frame per boundary plus a midpoint frame for
// every adjacent pair of boundaries further apart than maxGap. The result is
// strictly ascending by timestamp.
func PlanFrames(boundaries []float64, maxGap float64) []Plan {
	if maxGap <= 0 {
		maxGap = DefaultMaxGap
	}

	points := make([]float64, 0, len(boundaries))
	for _, b := range boundaries {
		if b < 0 || math.IsNaN(b) || math.IsInf(b, 0) {
			continue
		}
		points = append(points, b)
	}
	sort.Float64s(points)

	plans := make([]Plan, 0, len(points)*2)
	for i, b := range points {
		if i > 0 && b == points[i-1] {
			continue
		}
		plans = append(plans, Plan{Timestamp: b, KeyFrame: true})
	}

	keyCount := len(plans)
	for i := 1; i < keyCount; i++ {
		prev, next := plans[i-1].Timestamp, plans[i].Timestamp
		if next-prev > maxGap {
			plans = append(plans, Plan{Timestamp: prev + (next-prev)/2})
		}
	}

	sort.SliceStable(plans, func(i, j int) bool {
		return plans[i].Timestamp < plans[j].Timestamp
	})
	return plans
}

// FrameRenderer writes the frame at a timestamp to an image file
type FrameRenderer interface {
	ExtractFrame(ctx context.Context, input, output string, at float64) error
}

// FrameError reports a frame that could not be rendered
type FrameError struct {
	Timestamp float64
	Err       error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame at %.3fs: %v", e.Timestamp, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// Options configures a Sampler
type Options struct {
	MaxGap float64
	// AllowPartial skips frames that fail to render instead of failing the sample
	AllowPartial bool
}

// Sampler renders planned frames into a directory
type Sampler struct {
	logger   zerolog.Logger
	renderer FrameRenderer
	opts     Options
}

// New creates a sampler
func New(logger zerolog.Logger, renderer FrameRenderer, opts Options) *Sampler {
	if opts.MaxGap <= 0 {
		opts.MaxGap = DefaultMaxGap
	}
	return &Sampler{
		logger:   logger.With().Str("component", "sampler").Logger(),
		renderer: renderer,
		opts:     opts,
	}
}

// Sample renders the frames planned from boundaries into dir and returns them
// in ascending timestamp order.
func (s *Sampler) Sample(ctx context.Context, videoPath string, boundaries []float64, dir string) ([]models.Frame, error) {
	plans := PlanFrames(boundaries, s.opts.MaxGap)
	if len(plans) == 0 {
		return nil, failure.MediaProcessing("sample frames", errors.New("no frames to extract"))
	}

	if err := util.EnsureDir(dir); err != nil {
		return nil, failure.MediaProcessing("sample frames", fmt.Errorf("failed to create frame directory: %w", err))
	}

	s.logger.Info().
		Int("boundaries", len(boundaries)).
		Int("frames", len(plans)).
		Msg("sampling frames")

	frames := make([]models.Frame, 0, len(plans))
	var skipped int

	for i, plan := range plans {
		if err := ctx.Err(); err != nil {
			return nil, failure.MediaProcessing("sample frames", err)
		}

		path := filepath.Join(dir, fmt.Sprintf("frame_%04d.jpg", i+1))
		if err := s.renderer.ExtractFrame(ctx, videoPath, path, plan.Timestamp); err != nil {
			frameErr := &FrameError{Timestamp: plan.Timestamp, Err: err}
			if !s.opts.AllowPartial || ctx.Err() != nil {
				return nil, failure.MediaProcessing("sample frames", frameErr)
			}
			s.logger.Warn().Err(err).Float64("timestamp", plan.Timestamp).Msg("skipping unreadable frame")
			skipped++
			continue
		}

		frames = append(frames, models.Frame{
			Path:      path,
			Timestamp: plan.Timestamp,
			KeyFrame:  plan.KeyFrame,
		})
	}

	if len(frames) == 0 {
		return nil, failure.MediaProcessing("sample frames", errors.New("every frame failed to render"))
	}

	s.logger.Info().
		Int("frames", len(frames)).
		Int("skipped", skipped).
		Msg("frame sampling complete")

	return frames, nil
}
