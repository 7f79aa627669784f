package analysis

import (
	"regexp"
	"sort"
	"strings"
)

var (
	urlPattern     = regexp.MustCompile(`https?://\S+`)
	mentionPattern = regexp.MustCompile(`@\w+`)
	hashtagPattern = regexp.MustCompile(`#\w+`)
	nonWordPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

// Scorer scores post text against a lexicon. Scoring is a pure function of
// (text, lexicon): identical text always yields the identical score and
// signal set.
type Scorer struct {
	lexicon *Lexicon
}

// NewScorer creates a scorer over the given lexicon.
func NewScorer(lexicon *Lexicon) *Scorer {
	return &Scorer{lexicon: lexicon}
}

// Score returns the normalized sentiment in [-1, 1] and the sorted signal
// tags detected in the text. Empty or no-match text scores 0.0 with no
// signals.
func (s *Scorer) Score(text string) (float64, []string) {
	normalized := normalizeText(text)
	if normalized == "" {
		return 0, nil
	}

	// Pad with spaces so every term, single or multi-word, matches on
	// whole-word boundaries.
	padded := " " + normalized + " "

	raw := 0.0
	tagSet := make(map[string]struct{})
	matched := false

	for _, entry := range s.lexicon.entries {
		if !strings.Contains(padded, " "+entry.Term+" ") {
			continue
		}
		matched = true
		raw += entry.Weight
		for _, tag := range entry.Tags {
			tagSet[tag] = struct{}{}
		}
	}

	if !matched {
		return 0, nil
	}

	score := clamp(raw/s.lexicon.saturation, -1, 1)

	signals := make([]string, 0, len(tagSet))
	for tag := range tagSet {
		signals = append(signals, tag)
	}
	sort.Strings(signals)

	return score, signals
}

// normalizeText lowercases and strips URLs, @mentions, #hashtags and
// punctuation, collapsing whitespace. Non-Latin scripts pass through.
func normalizeText(text string) string {
	text = urlPattern.ReplaceAllString(text, " ")
	text = mentionPattern.ReplaceAllString(text, " ")
	text = hashtagPattern.ReplaceAllString(text, " ")
	text = strings.ToLower(text)
	text = nonWordPattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
