package heuristic

import (
	"math"
	"unicode/utf8"

	"aidetect/internal/core/normalize"
)

const (
	// StructuralMinChars gates the structural estimator
	StructuralMinChars = 400
	// StructuralFlagAt labels a structural score Flagged
	StructuralFlagAt = 0.6
	// StructuralIncludeAt decides whether a scanned region makes it into a batch at all
	StructuralIncludeAt = 0.5
)

// weights sum to 1.0
const (
	wSentence   = 0.25
	wDiversity  = 0.25
	wStopWords  = 0.15
	wPunct      = 0.10
	wRepetition = 0.15
	wEntropy    = 0.10
)

// StructuralText is the weighted feature estimator
type StructuralText struct {
	MinChars  int
	Threshold float64
}

// NewStructuralText returns the estimator with its reference gate and threshold
func NewStructuralText() StructuralText {
	return StructuralText{MinChars: StructuralMinChars, Threshold: StructuralFlagAt}
}

func (e StructuralText) prepare(s Sample) (string, bool) {
	ts, ok := asText(s)
	if !ok {
		return "", false
	}
	t := normalize.Text(normalize.Truncate(ts.Content, MaxTextRunes))
	return t, utf8.RuneCountInString(t) >= e.MinChars
}

// Admit accepts text samples of at least MinChars after whitespace collapse
func (e StructuralText) Admit(s Sample) bool {
	_, ok := e.prepare(s)
	return ok
}

// Score combines the extracted features; gated or foreign samples get Default
func (e StructuralText) Score(s Sample) Score {
	t, ok := e.prepare(s)
	if !ok {
		return Default
	}
	return labelFor(Combine(Extract(t)), e.Threshold)
}

// Combine maps each feature through its clamped transform and applies the weights
func Combine(f Features) float64 {
	return clamp01((f.AvgSentence-18)/12)*wSentence +
		clamp01((0.50-f.TypeToken)/0.30)*wDiversity +
		clamp01((f.StopWords-0.12)/0.08)*wStopWords +
		clamp01((0.10-f.Punctuation)/0.10)*wPunct +
		clamp01((f.Repetition-0.07)/0.08)*wRepetition +
		clamp01(1-math.Abs(f.Entropy-3.9)/0.65)*wEntropy
}
