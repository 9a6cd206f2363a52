package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExcerptWithoutSegmentsReturnsFullText(t *testing.T) {
	tr := &Transcript{Text: "hello there everyone"}
	assert.Equal(t, "hello there everyone", tr.Excerpt(10, 20))
}

func TestExcerptSelectsOverlappingSegments(t *testing.T) {
	tr := &Transcript{
		Text: "one two three",
		Segments: []Segment{
			{Start: 0, End: 2, Text: " one"},
			{Start: 2, End: 6, Text: " two"},
			{Start: 6, End: 9, Text: " three"},
		},
	}

	assert.Equal(t, "two three", tr.Excerpt(3, 7))
	assert.Equal(t, "one two", tr.Excerpt(0, 2))
	assert.Equal(t, "", tr.Excerpt(20, 30))
}

func TestExcerptNilTranscript(t *testing.T) {
	var tr *Transcript
	assert.Equal(t, "", tr.Excerpt(0, 1))
}

func TestNewShotAnalysisIsFullyShaped(t *testing.T) {
	shot := NewShotAnalysis(4.5)

	assert.Equal(t, 4.5, shot.Timestamp)
	assert.NotNil(t, shot.Composition.Colors)
	assert.NotNil(t, shot.Visual.Props)
	assert.NotNil(t, shot.Visual.Graphics)
	assert.NotNil(t, shot.Audio.SoundEffects)
	assert.NotNil(t, shot.Editing.Transitions)
	assert.NotNil(t, shot.Editing.Effects)
}
