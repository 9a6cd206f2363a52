package ffmpeg

import (
	"fmt"
	"strings"
)

// FilterBuilder helps construct ffmpeg filter chains
type FilterBuilder struct {
	filters []string
}

// NewFilterBuilder creates a new filter builder
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{
		filters: make([]string, 0),
	}
}

// SceneSelect keeps only frames whose scene-change score exceeds threshold
func (fb *FilterBuilder) SceneSelect(threshold float64) *FilterBuilder {
	fb.filters = append(fb.filters, fmt.Sprintf("select='gt(scene,%g)'", threshold))
	return fb
}

// ShowInfo logs a line with pts_time for each frame that reaches it
func (fb *FilterBuilder) ShowInfo() *FilterBuilder {
	fb.filters = append(fb.filters, "showinfo")
	return fb
}

// Build returns the complete filter string joined with commas
func (fb *FilterBuilder) Build() string {
	if len(fb.filters) == 0 {
		return ""
	}
	return strings.Join(fb.filters, ",")
}
