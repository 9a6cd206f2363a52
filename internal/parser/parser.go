// Package parser turns the labeled prose returned by the vision model into
// typed shot and style records.
//
// Every label the model is asked to produce is declared once in ShotFields or
// StyleFields. A label missing from a response leaves its field at the empty
// default; parsing only fails when the input is not text at all.
package parser

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/keagan/shotlist/internal/models"
)

// ErrInvalidText is returned for responses that are not valid UTF-8
var ErrInvalidText = errors.New("response is not valid UTF-8 text")

// Field maps one response label onto a record field. Exactly one of Set or
// SetList is non-nil.
type Field[T any] struct {
	Label   string
	Set     func(*T, string)
	SetList func(*T, []string)

	pattern *regexp.Regexp
}

// IsList reports whether the field holds a comma separated list
func (f Field[T]) IsList() bool { return f.SetList != nil }

func text[T any](label string, set func(*T, string)) Field[T] {
	return Field[T]{Label: label, Set: set, pattern: labelPattern(label)}
}

func list[T any](label string, set func(*T, []string)) Field[T] {
	return Field[T]{Label: label, SetList: set, pattern: labelPattern(label)}
}

// labelPattern matches "Label: value" on a single line. Leading bullets,
// quote markers and heading hashes are allowed, and markdown emphasis may
// wrap the label or the colon.
func labelPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)^[ \t>*\-•#0-9.]*[*_]*` + regexp.QuoteMeta(label) + `[*_]*[ \t]*:[*_]*[ \t]*(.*?)[ \t]*$`)
}

// ShotFields is the label table for one batch response
var ShotFields = []Field[models.ShotAnalysis]{
	text("Shot type", func(s *models.ShotAnalysis, v string) { s.ShotType = v }),
	text("Framing", func(s *models.ShotAnalysis, v string) { s.Composition.Framing = v }),
	text("Background", func(s *models.ShotAnalysis, v string) { s.Composition.Background = v }),
	text("Lighting", func(s *models.ShotAnalysis, v string) { s.Composition.Lighting = v }),
	list("Colors", func(s *models.ShotAnalysis, v []string) { s.Composition.Colors = v }),
	text("Subject", func(s *models.ShotAnalysis, v string) { s.Visual.Subject = v }),
	list("Props", func(s *models.ShotAnalysis, v []string) { s.Visual.Props = v }),
	list("On-screen text", func(s *models.ShotAnalysis, v []string) { s.Visual.Graphics = v }),
	text("Clothing", func(s *models.ShotAnalysis, v string) { s.Visual.Clothing = v }),
	text("Dialogue", func(s *models.ShotAnalysis, v string) { s.Audio.Dialogue = v }),
	text("Music style", func(s *models.ShotAnalysis, v string) { s.Audio.MusicStyle = v }),
	list("Sound effects", func(s *models.ShotAnalysis, v []string) { s.Audio.SoundEffects = v }),
	list("Transitions", func(s *models.ShotAnalysis, v []string) { s.Editing.Transitions = v }),
	list("Effects", func(s *models.ShotAnalysis, v []string) { s.Editing.Effects = v }),
	text("Pacing", func(s *models.ShotAnalysis, v string) { s.Editing.Pacing = v }),
	text("Narrative purpose", func(s *models.ShotAnalysis, v string) { s.Purpose.Narrative = v }),
	text("Emotional purpose", func(s *models.ShotAnalysis, v string) { s.Purpose.Emotional = v }),
	text("Technical purpose", func(s *models.ShotAnalysis, v string) { s.Purpose.Technical = v }),
}

// StyleFields is the label table for the overall style response
var StyleFields = []Field[models.OverallStyle]{
	text("Visual theme", func(s *models.OverallStyle, v string) { s.VisualTheme = v }),
	text("Editing style", func(s *models.OverallStyle, v string) { s.EditingStyle = v }),
	text("Music style", func(s *models.OverallStyle, v string) { s.MusicStyle = v }),
	text("Pacing", func(s *models.OverallStyle, v string) { s.Pacing = v }),
}

// ParseShot extracts a shot record stamped with timestamp
func ParseShot(raw string, timestamp float64) (models.ShotAnalysis, error) {
	shot := models.NewShotAnalysis(timestamp)
	if !utf8.ValidString(raw) {
		return shot, ErrInvalidText
	}
	apply(raw, &shot, ShotFields)
	return shot, nil
}

// ParseOverallStyle extracts the overall style record
func ParseOverallStyle(raw string) (models.OverallStyle, error) {
	var style models.OverallStyle
	if !utf8.ValidString(raw) {
		return style, ErrInvalidText
	}
	apply(raw, &style, StyleFields)
	return style, nil
}

// MissingShotFields lists the shot labels absent from raw
func MissingShotFields(raw string) []string {
	var missing []string
	for _, f := range ShotFields {
		if _, ok := extract(raw, f.pattern); !ok {
			missing = append(missing, f.Label)
		}
	}
	return missing
}

func apply[T any](raw string, dst *T, fields []Field[T]) {
	for _, f := range fields {
		value, ok := extract(raw, f.pattern)
		if !ok {
			continue
		}
		if f.IsList() {
			f.SetList(dst, SplitList(value))
		} else {
			f.Set(dst, value)
		}
	}
}

// extract returns the value of the first line carrying the label
func extract(raw string, pattern *regexp.Regexp) (string, bool) {
	m := pattern.FindStringSubmatch(normalizeNewlines(raw))
	if m == nil {
		return "", false
	}
	return clean(m[1]), true
}

// SplitList splits a comma separated value, trimming items and dropping
// empty ones. The result is never nil.
func SplitList(value string) []string {
	items := []string{}
	for _, part := range strings.Split(value, ",") {
		if part = clean(part); part != "" && !isPlaceholder(part) {
			items = append(items, part)
		}
	}
	return items
}

func clean(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "*_`\""))
}

// isPlaceholder recognises list values that mean "nothing"
func isPlaceholder(s string) bool {
	switch strings.ToLower(strings.TrimSuffix(s, ".")) {
	case "none", "n/a", "na", "-":
		return true
	}
	return false
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
