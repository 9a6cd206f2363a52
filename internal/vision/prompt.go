package vision

import (
	"fmt"
	"strings"

	"github.com/keagan/shotlist/internal/models"
	"github.com/keagan/shotlist/internal/parser"
)

// shotSystemPrompt asks for one labeled line per field in parser.ShotFields
func shotSystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a film editor breaking down a short-form social video shot by shot.\n")
	b.WriteString("You receive consecutive frames from one part of the video together with its transcript.\n")
	b.WriteString("Describe them as a single shot across five dimensions: composition, visual elements, ")
	b.WriteString("audio elements, editing techniques and purpose.\n\n")
	b.WriteString("Answer with exactly these labeled lines, one per line, in this order:\n")
	for _, f := range parser.ShotFields {
		if f.IsList() {
			fmt.Fprintf(&b, "%s: <comma separated list, or none>\n", f.Label)
		} else {
			fmt.Fprintf(&b, "%s: <short description>\n", f.Label)
		}
	}
	b.WriteString("\nUse the transcript for Dialogue. If music is audible from context, include the tempo as \"N BPM\" in Music style.\n")
	b.WriteString("Do not add any other text.")
	return b.String()
}

func styleSystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a film editor summarizing the overall style of a short-form social video ")
	b.WriteString("from its shot-by-shot breakdown.\n\n")
	b.WriteString("Answer with exactly these labeled lines, one per line:\n")
	for _, f := range parser.StyleFields {
		fmt.Fprintf(&b, "%s: <short description>\n", f.Label)
	}
	b.WriteString("\nDo not add any other text.")
	return b.String()
}

func transcriptBlock(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "Transcript: (no speech detected)"
	}
	return "Transcript:\n" + text
}

func frameCaption(index int, frame models.Frame, exp Exposure) string {
	kind := "midpoint frame"
	if frame.KeyFrame {
		kind = "scene change"
	}
	return fmt.Sprintf("Frame %d at %.2fs (%s; %s)", index+1, frame.Timestamp, kind, exp)
}

// renderShots formats shot records as text for the style summary call
func renderShots(shots []models.ShotAnalysis) string {
	var b strings.Builder
	for i, s := range shots {
		fmt.Fprintf(&b, "Shot %d at %.2fs\n", i+1, s.Timestamp)
		line(&b, "Shot type", s.ShotType)
		line(&b, "Framing", s.Composition.Framing)
		line(&b, "Background", s.Composition.Background)
		line(&b, "Lighting", s.Composition.Lighting)
		line(&b, "Colors", strings.Join(s.Composition.Colors, ", "))
		line(&b, "Subject", s.Visual.Subject)
		line(&b, "On-screen text", strings.Join(s.Visual.Graphics, ", "))
		line(&b, "Dialogue", s.Audio.Dialogue)
		line(&b, "Music style", s.Audio.MusicStyle)
		line(&b, "Sound effects", strings.Join(s.Audio.SoundEffects, ", "))
		line(&b, "Transitions", strings.Join(s.Editing.Transitions, ", "))
		line(&b, "Effects", strings.Join(s.Editing.Effects, ", "))
		line(&b, "Pacing", s.Editing.Pacing)
		line(&b, "Narrative purpose", s.Purpose.Narrative)
		line(&b, "Emotional purpose", s.Purpose.Emotional)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func line(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "  %s: %s\n", label, value)
}
