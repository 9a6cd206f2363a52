package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/keagan/shotlist/internal/failure"
)

// DefaultSceneThreshold is the scene-change sensitivity on ffmpeg's 0-1 scale
const DefaultSceneThreshold = 0.3

// ErrNoScenes is returned when scene detection ran but found no boundaries
var ErrNoScenes = errors.New("no scene boundaries detected")

// DetectScenes finds scene changes in video using ffmpeg scene detection.
// Timestamps are returned in seconds, in the order ffmpeg emitted them.
func (e *Executor) DetectScenes(ctx context.Context, input string, threshold float64) ([]float64, error) {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultSceneThreshold
	}

	e.logger.Info().
		Str("input", input).
		Float64("threshold", threshold).
		Msg("detecting scene changes")

	var stderrBuf bytes.Buffer
	var mu sync.Mutex

	opts := RunOptions{
		Args: []string{
			"-i", input,
			"-an",
			"-vf", NewFilterBuilder().SceneSelect(threshold).ShowInfo().Build(),
			"-f", "null",
			"-",
		},
		LogHandler: func(line string) {
			mu.Lock()
			stderrBuf.WriteString(line + "\n")
			mu.Unlock()
		},
	}

	err := e.Run(ctx, opts)

	mu.Lock()
	output := stderrBuf.String()
	mu.Unlock()

	if err != nil {
		return nil, failure.MediaProcessing("detect scenes", err)
	}

	scenes := parseSceneOutput(output)
	if len(scenes) == 0 {
		return nil, failure.MediaProcessing("detect scenes", ErrNoScenes)
	}

	e.logger.Info().Int("scenes", len(scenes)).Msg("scene detection complete")
	return scenes, nil
}

// parseSceneOutput extracts strictly positive pts_time values from showinfo output
func parseSceneOutput(output string) []float64 {
	var scenes []float64

	for _, line := range strings.Split(output, "\n") {
		_, rest, ok := strings.Cut(line, "pts_time:")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		seconds, err := strconv.ParseFloat(fields[0], 64)
		if err != nil || seconds <= 0 {
			continue
		}
		scenes = append(scenes, seconds)
	}

	return scenes
}
