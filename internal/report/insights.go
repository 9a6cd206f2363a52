package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/keagan/shotlist/internal/models"
)

// Neutral values used when the shots carry nothing to infer from
const (
	Unknown          = "Unknown"
	NoMusicGenre     = "No music detected"
	EffectTransition = "transition"
	EffectVisual     = "effect"
)

var bpmPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*BPM`)

// structureMarkers maps patterns found in lowercased on-screen text to the
// structure they suggest. Order decides the order of the resulting description.
var structureMarkers = []struct {
	pattern *regexp.Regexp
	label   string
}{
	{regexp.MustCompile(`\bhow to\b`), "How-to"},
	{regexp.MustCompile(`\bsteps?\b`), "Step-by-step"},
	{regexp.MustCompile(`\btips?\b`), "Tips list"},
	{regexp.MustCompile(`\breasons?\b`), "Reasons list"},
	{regexp.MustCompile(`\btop \d+\b`), "Ranked list"},
	{regexp.MustCompile(`(?:^|\s)#\d+\b`), "Numbered list"},
	{regexp.MustCompile(`\bbefore\b`), "Before and after"},
	{regexp.MustCompile(`\bpart \d+\b`), "Multi-part series"},
	{regexp.MustCompile(`\bday (?:\d+|in the life)\b`), "Day in the life"},
	{regexp.MustCompile(`\bpov\b`), "POV skit"},
	{regexp.MustCompile(`\bstory ?time\b`), "Story time"},
	{regexp.MustCompile(`\bfollow\b`), "Call to action"},
	{regexp.MustCompile(`\blink in bio\b`), "Call to action"},
}

var energyKeywords = keywordPatterns(map[string][]string{
	"High": {"upbeat", "energetic", "fast", "intense", "hype", "driving", "edm", "rock", "trap", "dance", "exciting"},
	"Low":  {"calm", "slow", "soft", "ambient", "chill", "mellow", "relaxed", "acoustic", "lo-fi", "lofi", "gentle"},
})

var moodKeywords = keywordPatterns(map[string][]string{
	"Uplifting": {"happy", "joyful", "cheerful", "playful", "fun", "uplifting", "positive", "inspiring", "excited"},
	"Dramatic":  {"sad", "melancholic", "dark", "tense", "somber", "dramatic", "suspense", "emotional", "epic"},
	"Calm":      {"calm", "peaceful", "relaxed", "chill", "soothing", "serene", "cozy", "nostalgic"},
})

// keywords holds one whole-word matcher per category
type keywords map[string]*regexp.Regexp

func keywordPatterns(words map[string][]string) keywords {
	out := make(keywords, len(words))
	for category, list := range words {
		quoted := make([]string, len(list))
		for i, w := range list {
			quoted[i] = regexp.QuoteMeta(w)
		}
		out[category] = regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
	}
	return out
}

// DeriveInsights computes heuristic annotations from the shot sequence. It
// never fails; missing data yields the neutral defaults.
func DeriveInsights(shots []models.ShotAnalysis) models.Insights {
	return models.Insights{
		Hook:             hook(shots),
		ContentStructure: contentStructure(shots),
		Effects:          effects(shots),
		Music:            music(shots),
	}
}

func hook(shots []models.ShotAnalysis) string {
	if len(shots) == 0 {
		return Unknown
	}
	first := shots[0]

	var parts []string
	if first.Purpose.Narrative != "" {
		parts = append(parts, first.Purpose.Narrative)
	}
	if len(first.Visual.Graphics) > 0 {
		parts = append(parts, fmt.Sprintf("on-screen text %q", strings.Join(first.Visual.Graphics, " ")))
	}
	if len(parts) == 0 {
		return Unknown
	}
	return strings.Join(parts, "; ")
}

func contentStructure(shots []models.ShotAnalysis) string {
	found := map[string][]float64{}
	var order []string

	for _, shot := range shots {
		text := strings.ToLower(strings.Join(shot.Visual.Graphics, " "))
		for _, m := range structureMarkers {
			if !m.pattern.MatchString(text) {
				continue
			}
			if _, seen := found[m.label]; !seen {
				order = append(order, m.label)
			}
			stamps := found[m.label]
			if len(stamps) == 0 || stamps[len(stamps)-1] != shot.Timestamp {
				found[m.label] = append(stamps, shot.Timestamp)
			}
		}
	}

	if len(order) == 0 {
		return Unknown
	}

	parts := make([]string, 0, len(order))
	for _, label := range order {
		stamps := make([]string, 0, len(found[label]))
		for _, ts := range found[label] {
			stamps = append(stamps, fmt.Sprintf("%.1fs", ts))
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", label, strings.Join(stamps, ", ")))
	}
	return strings.Join(parts, ", then ")
}

func effects(shots []models.ShotAnalysis) []models.Effect {
	out := []models.Effect{}
	for _, shot := range shots {
		for _, name := range shot.Editing.Transitions {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, models.Effect{Timestamp: shot.Timestamp, Kind: EffectTransition, Name: name})
			}
		}
		for _, name := range shot.Editing.Effects {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, models.Effect{Timestamp: shot.Timestamp, Kind: EffectVisual, Name: name})
			}
		}
	}
	return out
}

func music(shots []models.ShotAnalysis) models.MusicProfile {
	profile := models.MusicProfile{Genre: NoMusicGenre, Energy: Unknown, Mood: Unknown}

	counts := map[string]int{}
	var styles []string
	var texts []string
	var bpmSum float64
	var bpmCount int

	for _, shot := range shots {
		style := strings.TrimSpace(shot.Audio.MusicStyle)
		if style != "" && !isNoMusic(style) {
			if counts[style] == 0 {
				styles = append(styles, style)
			}
			counts[style]++
			texts = append(texts, style)
		}
		texts = append(texts, shot.Purpose.Emotional, shot.Editing.Pacing)

		for _, m := range bpmPattern.FindAllStringSubmatch(shot.Audio.MusicStyle, -1) {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 {
				bpmSum += v
				bpmCount++
			}
		}
	}

	// most frequent, first seen wins ties
	best := 0
	for _, s := range styles {
		if counts[s] > best {
			profile.Genre = s
			best = counts[s]
		}
	}

	corpus := strings.ToLower(strings.Join(texts, " "))
	if energy := vote(corpus, energyKeywords, []string{"High", "Low"}); energy != "" {
		profile.Energy = energy
	} else if tie(corpus, energyKeywords) {
		profile.Energy = "Medium"
	}
	if mood := vote(corpus, moodKeywords, []string{"Uplifting", "Dramatic", "Calm"}); mood != "" {
		profile.Mood = mood
	}

	if bpmCount > 0 {
		profile.BPM = bpmSum / float64(bpmCount)
	}
	return profile
}

func isNoMusic(style string) bool {
	switch strings.ToLower(strings.TrimSuffix(style, ".")) {
	case "none", "no music", "n/a", "silence", "none audible":
		return true
	}
	return false
}

// vote returns the category with strictly the most keyword hits, or "" when
// there are no hits or the top count is shared.
func vote(corpus string, kw keywords, order []string) string {
	winner, best, shared := "", 0, false
	for _, category := range order {
		hits := countHits(corpus, kw[category])
		switch {
		case hits > best:
			winner, best, shared = category, hits, false
		case hits == best && hits > 0:
			shared = true
		}
	}
	if shared {
		return ""
	}
	return winner
}

func tie(corpus string, kw keywords) bool {
	seen := -1
	for _, pattern := range kw {
		hits := countHits(corpus, pattern)
		if hits == 0 {
			return false
		}
		if seen >= 0 && hits != seen {
			return false
		}
		seen = hits
	}
	return seen > 0
}

func countHits(corpus string, pattern *regexp.Regexp) int {
	if pattern == nil {
		return 0
	}
	return len(pattern.FindAllStringIndex(corpus, -1))
}
