package download

import (
	"strings"

	"github.com/keagan/shotlist/internal/failure"
)

// Markers yt-dlp (and the Python networking stack below it) print when the
// host cannot be reached at all.
var unreachableMarkers = []string{
	"failed to resolve",
	"name or service not known",
	"nodename nor servname provided",
	"temporary failure in name resolution",
	"getaddrinfo failed",
	"no address associated with hostname",
	"name resolution",
	"connection refused",
	"network is unreachable",
	"no route to host",
	"connection reset by peer",
	"unsupported url",
	"is not a valid url",
}

// Markers for a host that answered too slowly. Checked before the unreachable
// markers since socket timeouts often come wrapped in connection errors.
var timeoutMarkers = []string{
	"timed out",
	"timeout error",
	"connecttimeouterror",
	"readtimeouterror",
}

// Markers for content that exists but cannot be fetched.
var unavailableMarkers = []string{
	"private video",
	"video unavailable",
	"this video is unavailable",
	"this video has been removed",
	"has been removed",
	"content is not available",
	"sign in to confirm",
	"login required",
	"requires authentication",
	"this post is private",
	"not available in your country",
	"geo restriction",
	"http error 404",
	"http error 403",
	"http error 410",
}

// Classify maps yt-dlp stderr output to a failure reason
func Classify(stderr string) failure.Reason {
	lower := strings.ToLower(stderr)

	for _, marker := range unavailableMarkers {
		if strings.Contains(lower, marker) {
			return failure.ReasonUnavailable
		}
	}
	for _, marker := range timeoutMarkers {
		if strings.Contains(lower, marker) {
			return failure.ReasonTimeout
		}
	}
	for _, marker := range unreachableMarkers {
		if strings.Contains(lower, marker) {
			return failure.ReasonUnreachable
		}
	}
	return failure.ReasonInternal
}
