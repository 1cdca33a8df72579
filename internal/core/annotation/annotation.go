// Package annotation holds the batch wire shape shared by samplers, the bus and the renderer
package annotation

import (
	"encoding/json"

	"aidetect/internal/core/geometry"
	"aidetect/internal/core/heuristic"
)

// Box is one scored region in sampling space
type Box struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

// Batch is a complete scan cycle; it supersedes the previous batch from the same source
// the wire form is exactly {"boxes":[...],"frameW":n,"frameH":n}
type Batch struct {
	Boxes  []Box   `json:"boxes"`
	FrameW float64 `json:"frameW"`
	FrameH float64 `json:"frameH"`
}

// NewBox attaches a score to a region
func NewBox(r geometry.Region, s heuristic.Score) Box {
	return Box{X: r.X, Y: r.Y, W: r.W, H: r.H, Score: s.Value, Label: string(s.Label)}
}

// Region returns the box geometry
func (b Box) Region() geometry.Region { return geometry.Region{X: b.X, Y: b.Y, W: b.W, H: b.H} }

// ScoreOf returns the box score
func (b Box) ScoreOf() heuristic.Score {
	return heuristic.Score{Value: b.Score, Label: heuristic.Label(b.Label)}
}

// Size returns the sampling surface size
func (b Batch) Size() geometry.Size { return geometry.Size{W: b.FrameW, H: b.FrameH} }

// MarshalJSON keeps boxes an array when empty so an empty batch still clears
func (b Batch) MarshalJSON() ([]byte, error) {
	type wire Batch
	w := wire(b)
	if w.Boxes == nil {
		w.Boxes = []Box{}
	}
	return json.Marshal(w)
}
