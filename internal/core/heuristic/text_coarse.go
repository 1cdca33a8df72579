package heuristic

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"aidetect/internal/core/normalize"
)

const (
	// CoarseMinChars gates the coarse estimator
	CoarseMinChars = 80
	// CoarseFlagAt labels a coarse score Flagged
	CoarseFlagAt = 0.75
)

var (
	coarseSentence   = regexp.MustCompile(`[.!?]\s`)
	coarsePunctRun   = regexp.MustCompile(`[;:—]{2,}`)
	coarseConnective = regexp.MustCompile(`(?i)\bmoreover\b|\bfurthermore\b|\bin conclusion\b`)
)

// CoarseText is the rule sum estimator for short text nodes
type CoarseText struct {
	MinChars  int
	Threshold float64
}

// NewCoarseText returns the estimator with its reference gate and threshold
func NewCoarseText() CoarseText {
	return CoarseText{MinChars: CoarseMinChars, Threshold: CoarseFlagAt}
}

func (e CoarseText) prepare(s Sample) (string, bool) {
	ts, ok := asText(s)
	if !ok {
		return "", false
	}
	t := normalize.Text(normalize.Truncate(ts.Content, MaxTextRunes))
	return t, utf8.RuneCountInString(t) >= e.MinChars
}

// Admit accepts text samples of at least MinChars after whitespace collapse
func (e CoarseText) Admit(s Sample) bool {
	_, ok := e.prepare(s)
	return ok
}

// Score sums the rule contributions, capped at 1
func (e CoarseText) Score(s Sample) Score {
	t, ok := e.prepare(s)
	if !ok {
		return Default
	}

	sentences := len(coarseSentence.Split(t, -1))
	words := strings.Split(t, " ")
	uniq := make(map[string]struct{}, len(words))
	for _, w := range words {
		uniq[strings.ToLower(w)] = struct{}{}
	}
	ttr := float64(len(uniq)) / float64(len(words))
	avgLen := float64(utf8.RuneCountInString(t)) / float64(max(sentences, 1))

	v := 0.0
	if ttr < 0.45 {
		v += 0.4
	}
	if avgLen > 160 {
		v += 0.3
	}
	if coarsePunctRun.MatchString(t) {
		v += 0.2
	}
	if coarseConnective.MatchString(t) {
		v += 0.2
	}
	return labelFor(min(v, 1), e.Threshold)
}
