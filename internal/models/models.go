package models

import (
	"strings"
)

// VideoSource is the immutable input of one analysis request
type VideoSource struct {
	URL string `json:"url"`
	// Cookie is either a Netscape cookie-jar document or a raw Cookie header value
	Cookie string `json:"-"`
}

// Frame is a rendered still taken from the source video
type Frame struct {
	Path      string  `json:"path"`
	Timestamp float64 `json:"timestamp"`
	KeyFrame  bool    `json:"key_frame"`
}

// Segment is a timed span of transcript text
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript holds the speech-to-text output for the whole video
type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments,omitempty"`
}

// Excerpt returns the transcript text spoken between start and end seconds.
// Without segment timing the full text is returned.
func (t *Transcript) Excerpt(start, end float64) string {
	if t == nil {
		return ""
	}
	if len(t.Segments) == 0 {
		return t.Text
	}

	var parts []string
	for _, seg := range t.Segments {
		if seg.End < start || seg.Start > end {
			continue
		}
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// ShotAnalysis is the structured record produced for one batch of frames.
// Every field is always present; missing model output becomes "" or an empty slice.
type ShotAnalysis struct {
	Timestamp   float64           `json:"timestamp"`
	ShotType    string            `json:"shot_type"`
	Composition Composition       `json:"composition"`
	Visual      VisualElements    `json:"visual_elements"`
	Audio       AudioElements     `json:"audio_elements"`
	Editing     EditingTechniques `json:"editing_techniques"`
	Purpose     Purpose           `json:"purpose"`
}

type Composition struct {
	Framing    string   `json:"framing"`
	Background string   `json:"background"`
	Lighting   string   `json:"lighting"`
	Colors     []string `json:"colors"`
}

type VisualElements struct {
	Subject  string   `json:"subject"`
	Props    []string `json:"props"`
	Graphics []string `json:"graphics"`
	Clothing string   `json:"clothing"`
}

type AudioElements struct {
	Dialogue     string   `json:"dialogue"`
	MusicStyle   string   `json:"music_style"`
	SoundEffects []string `json:"sound_effects"`
}

type EditingTechniques struct {
	Transitions []string `json:"transitions"`
	Effects     []string `json:"effects"`
	Pacing      string   `json:"pacing"`
}

type Purpose struct {
	Narrative string `json:"narrative"`
	Emotional string `json:"emotional"`
	Technical string `json:"technical"`
}

// NewShotAnalysis returns a fully shaped record with empty lists instead of nil
func NewShotAnalysis(timestamp float64) ShotAnalysis {
	return ShotAnalysis{
		Timestamp:   timestamp,
		Composition: Composition{Colors: []string{}},
		Visual:      VisualElements{Props: []string{}, Graphics: []string{}},
		Audio:       AudioElements{SoundEffects: []string{}},
		Editing:     EditingTechniques{Transitions: []string{}, Effects: []string{}},
	}
}

// OverallStyle summarizes the whole video
type OverallStyle struct {
	VisualTheme  string `json:"visual_theme"`
	EditingStyle string `json:"editing_style"`
	MusicStyle   string `json:"music_style"`
	Pacing       string `json:"pacing"`
}

// Report is the sole output of the pipeline
type Report struct {
	Title        string         `json:"title"`
	SourceURL    string         `json:"source_url"`
	Duration     float64        `json:"duration"`
	OverallStyle OverallStyle   `json:"overall_style"`
	Shots        []ShotAnalysis `json:"shots"`

	// Derived holds heuristic annotations computed after the model-grounded
	// fields. Nil when the derivation pass is disabled.
	Derived *Insights `json:"derived,omitempty"`
}

// Insights are UI-oriented annotations inferred from the shot sequence
type Insights struct {
	Hook             string       `json:"hook"`
	ContentStructure string       `json:"content_structure"`
	Effects          []Effect     `json:"effects"`
	Music            MusicProfile `json:"music"`
}

// Effect is a transition or visual effect observed at a shot
type Effect struct {
	Timestamp float64 `json:"timestamp"`
	Kind      string  `json:"kind"`
	Name      string  `json:"name"`
}

type MusicProfile struct {
	Genre  string  `json:"genre"`
	Energy string  `json:"energy"`
	Mood   string  `json:"mood"`
	BPM    float64 `json:"bpm"`
}
