// Package failure classifies pipeline errors so callers can map them to
// user-facing categories without inspecting error strings.
package failure

import (
	"context"
	"errors"
	"fmt"
)

// Kind identifies the pipeline stage family that failed.
type Kind int

const (
	KindUnknown Kind = iota
	KindAcquisition
	KindMediaProcessing
	KindTranscription
	KindAnalysis
)

func (k Kind) String() string {
	switch k {
	case KindAcquisition:
		return "acquisition"
	case KindMediaProcessing:
		return "media processing"
	case KindTranscription:
		return "transcription"
	case KindAnalysis:
		return "analysis"
	default:
		return "unknown"
	}
}

// Reason refines a Kind into something a user can act on.
type Reason string

const (
	ReasonUnreachable Reason = "unreachable"
	ReasonUnavailable Reason = "unavailable"
	ReasonTimeout     Reason = "timeout"
	ReasonInternal    Reason = "internal"
)

// Error is a classified stage failure.
type Error struct {
	Kind   Kind
	Reason Reason
	Op     string
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Op, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a classified error. An empty reason is derived from err: context
// deadline expiry becomes ReasonTimeout, anything else ReasonInternal.
func New(kind Kind, reason Reason, op string, err error) error {
	if reason == "" {
		reason = reasonFor(err)
	}
	return &Error{Kind: kind, Reason: reason, Op: op, Err: err}
}

func Acquisition(reason Reason, op string, err error) error {
	return New(KindAcquisition, reason, op, err)
}

func MediaProcessing(op string, err error) error {
	return New(KindMediaProcessing, "", op, err)
}

func Transcription(op string, err error) error {
	return New(KindTranscription, "", op, err)
}

func Analysis(op string, err error) error {
	return New(KindAnalysis, "", op, err)
}

func reasonFor(err error) Reason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	return ReasonInternal
}

// KindOf returns the Kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// ReasonOf returns the Reason of the first classified error in err's chain.
func ReasonOf(err error) Reason {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Reason
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	return ReasonInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// UserMessage renders err as a short message suitable for end users.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return "The analysis was cancelled."
	}

	switch ReasonOf(err) {
	case ReasonUnreachable:
		return "The video could not be reached. Check the link and your network connection."
	case ReasonUnavailable:
		return "The video is private, removed or requires a login."
	case ReasonTimeout:
		return "The analysis took too long and was stopped. Try a shorter video."
	}

	switch KindOf(err) {
	case KindAcquisition:
		return "The video could not be downloaded."
	case KindMediaProcessing:
		return "The video could not be processed."
	case KindTranscription:
		return "The audio could not be transcribed."
	case KindAnalysis:
		return "The AI analysis failed. Please try again later."
	}
	return "Something went wrong while analyzing the video."
}
