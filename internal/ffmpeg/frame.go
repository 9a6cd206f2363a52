package ffmpeg

import (
	"context"
	"fmt"

	"github.com/keagan/shotlist/internal/failure"
	"github.com/keagan/shotlist/pkg/util"
)

// ExtractFrame renders the single frame at `at` seconds to a JPEG file
func (e *Executor) ExtractFrame(ctx context.Context, input, output string, at float64) error {
	if input == "" {
		return fmt.Errorf("input path is required")
	}
	if output == "" {
		return fmt.Errorf("output path is required")
	}
	if at < 0 {
		at = 0
	}

	e.logger.Debug().
		Str("input", input).
		Str("output", output).
		Float64("timestamp", at).
		Msg("extracting frame")

	// -ss before -i seeks on the demuxer, which is fast and frame-accurate
	// for re-encoded output
	args := []string{
		"-ss", util.FormatSeconds(at),
		"-i", input,
		"-frames:v", "1",
		"-q:v", "2", // high quality JPEG
		output,
	}

	opts := RunOptions{
		Args: args,
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("frame extraction")
		},
	}

	if err := e.Run(ctx, opts); err != nil {
		return failure.MediaProcessing(fmt.Sprintf("extract frame at %.3fs", at), err)
	}
	if !util.FileExists(output) {
		return failure.MediaProcessing(fmt.Sprintf("extract frame at %.3fs", at),
			fmt.Errorf("ffmpeg produced no image (timestamp past end of stream?)"))
	}
	return nil
}
