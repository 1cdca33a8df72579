// Package geometry holds regions, sizes and the sampling to display mapping
package geometry

import "math"

// Region is an axis aligned rectangle in a named coordinate space
type Region struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Size is a surface extent
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Empty reports a non positive extent on either axis
func (s Size) Empty() bool { return s.W <= 0 || s.H <= 0 }

// Area returns W*H, zero for an empty region
func (r Region) Area() float64 {
	if r.W <= 0 || r.H <= 0 {
		return 0
	}
	return r.W * r.H
}

// Right returns the right edge
func (r Region) Right() float64 { return r.X + r.W }

// Bottom returns the bottom edge
func (r Region) Bottom() float64 { return r.Y + r.H }

// Mapping is the per axis scale from sampling space into display space
type Mapping struct {
	ScaleX float64 `json:"scale_x"`
	ScaleY float64 `json:"scale_y"`
}

// Identity maps every region onto itself
var Identity = Mapping{ScaleX: 1, ScaleY: 1}

// MappingFor computes display/sampling per axis
// an empty sampling or display size yields Identity so a missing frame size never collapses boxes
func MappingFor(sampling, display Size) Mapping {
	if sampling.Empty() || display.Empty() {
		return Identity
	}
	return Mapping{ScaleX: display.W / sampling.W, ScaleY: display.H / sampling.H}
}

// Project maps r from sampling space into display space
func (m Mapping) Project(r Region) Region {
	return Region{X: r.X * m.ScaleX, Y: r.Y * m.ScaleY, W: r.W * m.ScaleX, H: r.H * m.ScaleY}
}

// Unproject maps r from display space back into sampling space
func (m Mapping) Unproject(r Region) Region {
	if m.ScaleX == 0 || m.ScaleY == 0 {
		return r
	}
	return Region{X: r.X / m.ScaleX, Y: r.Y / m.ScaleY, W: r.W / m.ScaleX, H: r.H / m.ScaleY}
}

// Device converts a CSS space region into device pixels for pixel ratio dpr
func Device(r Region, dpr float64) Region {
	if dpr <= 0 {
		dpr = 1
	}
	return Region{X: r.X * dpr, Y: r.Y * dpr, W: r.W * dpr, H: r.H * dpr}
}

// MaxBackingPixels bounds the device pixel area of any backing store
const MaxBackingPixels = 8192 * 8192

// FitsBacking reports whether a backing store of w x h stays within MaxBackingPixels
func FitsBacking(w, h int) bool {
	if w <= 0 || h <= 0 {
		return true
	}
	return w <= MaxBackingPixels/h
}

// BackingSize is the floored device pixel size of a CSS viewport
func BackingSize(css Size, dpr float64) (w, h int) {
	if dpr <= 0 {
		dpr = 1
	}
	return int(math.Floor(css.W * dpr)), int(math.Floor(css.H * dpr))
}

// Within reports whether a and b agree to tol on every edge
func Within(a, b Region, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol &&
		math.Abs(a.Y-b.Y) <= tol &&
		math.Abs(a.W-b.W) <= tol &&
		math.Abs(a.H-b.H) <= tol
}
