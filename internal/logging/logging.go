package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init installs the global logger on stderr. Console output is for humans;
// jsonOutput emits one JSON object per line for log collectors. Every extra
// writer receives the same entries as JSON.
func Init(verbose, jsonOutput bool, extra ...io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer = zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}
	if jsonOutput {
		output = os.Stderr
	}

	log.Logger = NewLogger(append([]io.Writer{output}, extra...)...)
}

// NewLogger creates a logger writing to every given writer, or the global
// logger when none are given
func NewLogger(writers ...io.Writer) zerolog.Logger {
	switch len(writers) {
	case 0:
		return log.Logger
	case 1:
		return zerolog.New(writers[0]).With().Timestamp().Logger()
	default:
		return zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	}
}

// WithRequest tags a logger with the request it serves
func WithRequest(logger zerolog.Logger, requestID, url string) zerolog.Logger {
	return logger.With().Str("request_id", requestID).Str("url", url).Logger()
}
