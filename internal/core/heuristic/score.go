package heuristic

import "math"

// Label is the wire label drawn on an annotation chip
type Label string

const (
	// Flagged marks a score at or above the estimator's threshold
	Flagged Label = "AI?"
	// Low marks everything else
	Low Label = "Low"
)

// Score is a value in [0,1] and the label derived from it
type Score struct {
	Value float64 `json:"score"`
	Label Label   `json:"label"`
}

// Default is returned for malformed samples and by the reserved audio slot
var Default = Score{Value: 0, Label: Low}

// Estimator scores one kind of sample
// Admit is the pre scoring gate; callers skip samples it rejects instead of scoring them
type Estimator interface {
	Admit(s Sample) bool
	Score(s Sample) Score
}

// Evaluate scores s only when e admits it
func Evaluate(e Estimator, s Sample) (Score, bool) {
	if e == nil || !e.Admit(s) {
		return Score{}, false
	}
	return e.Score(s), true
}

func labelFor(v, threshold float64) Score {
	l := Low
	if v >= threshold {
		l = Flagged
	}
	return Score{Value: v, Label: l}
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(0, math.Min(1, x))
}
