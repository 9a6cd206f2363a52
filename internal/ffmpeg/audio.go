package ffmpeg

import (
	"context"
	"fmt"

	"github.com/keagan/shotlist/internal/failure"
)

// AudioFormat defines audio extraction format options
type AudioFormat struct {
	// Codec "copy" demuxes the stream without re-encoding
	Codec      string
	SampleRate int
	Channels   int
	Bitrate    string
}

// LosslessFormat copies the first audio stream as-is
func LosslessFormat() AudioFormat {
	return AudioFormat{Codec: "copy"}
}

// DefaultWhisperFormat returns optimal format for Whisper transcription
func DefaultWhisperFormat() AudioFormat {
	return AudioFormat{
		Codec:      "pcm_s16le",
		SampleRate: 16000,
		Channels:   1, // mono
	}
}

// AudioTarget picks the file extension and format for demuxing an audio
// stream of the given codec. Codecs the transcription service accepts in
// their native container are copied, anything else is re-encoded to WAV.
func AudioTarget(codec string) (string, AudioFormat) {
	switch codec {
	case "aac", "alac":
		return ".m4a", LosslessFormat()
	case "mp3":
		return ".mp3", LosslessFormat()
	case "opus", "vorbis":
		return ".ogg", LosslessFormat()
	case "flac":
		return ".flac", LosslessFormat()
	default:
		return ".wav", DefaultWhisperFormat()
	}
}

// ExtractAudio extracts the first audio stream to a separate file
func (e *Executor) ExtractAudio(ctx context.Context, input, output string, format AudioFormat) error {
	e.logger.Info().
		Str("input", input).
		Str("output", output).
		Str("codec", format.Codec).
		Msg("extracting audio")

	args := []string{
		"-i", input,
		"-map", "0:a:0",
		"-vn", // no video
		"-c:a", format.Codec,
	}

	if format.Codec != "copy" {
		if format.SampleRate > 0 {
			args = append(args, "-ar", fmt.Sprintf("%d", format.SampleRate))
		}
		if format.Channels > 0 {
			args = append(args, "-ac", fmt.Sprintf("%d", format.Channels))
		}
		if format.Bitrate != "" {
			args = append(args, "-b:a", format.Bitrate)
		}
	}

	args = append(args, output)

	opts := RunOptions{
		Args: args,
		ProgressHandler: func(p *Progress) {
			e.logger.Debug().Str("time", p.Time).Str("speed", p.Speed).Msg("audio extraction progress")
		},
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("audio extraction")
		},
	}

	if err := e.Run(ctx, opts); err != nil {
		return failure.MediaProcessing("extract audio", err)
	}
	return nil
}
