package util

import (
	"fmt"
	"math"
	"time"
)

// FormatDuration converts time.Duration to ffmpeg timestamp format
func FormatDuration(d time.Duration) string {
	seconds := d.Seconds()
	hours := int(seconds / 3600)
	minutes := int((seconds - float64(hours*3600)) / 60)
	secs := seconds - float64(hours*3600) - float64(minutes*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", hours, minutes, secs)
}

// FormatSeconds formats fractional seconds as an ffmpeg timestamp
func FormatSeconds(seconds float64) string {
	return FormatDuration(Seconds(seconds))
}

// Seconds converts fractional seconds to a duration, rounded to the millisecond
func Seconds(seconds float64) time.Duration {
	return time.Duration(math.Round(seconds*1000)) * time.Millisecond
}
