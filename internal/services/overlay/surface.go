package overlay

import (
	"image/color"

	"aidetect/internal/core/geometry"
)

// Viewport is the display size in CSS pixels plus its device pixel ratio
type Viewport struct {
	CSS        geometry.Size `json:"css"`
	PixelRatio float64       `json:"pixel_ratio"`
}

// Surface is the drawing collaborator; geometry is in CSS pixels
// any method may return a RenderTargetLost error once the surface is gone
type Surface interface {
	Viewport() (Viewport, error)
	// Resize sets the backing store in device pixels
	Resize(w, h int, pixelRatio float64) error
	Clear() error
	StrokeRect(r geometry.Region, width float64, c color.Color) error
	FillRect(r geometry.Region, c color.Color) error
	MeasureText(s string) float64
	// DrawText places s with its baseline at (x, y)
	DrawText(s string, x, y float64, c color.Color) error
	Present() error
}

var (
	strokeColor = color.NRGBA{A: 255}
	fillColor   = color.NRGBA{R: 255, G: 255, A: 64}
	chipColor   = color.NRGBA{A: 179}
	textColor   = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)
