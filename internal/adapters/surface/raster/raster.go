// Package raster is an in-memory RGBA overlay surface with PNG snapshots
package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"

	"aidetect/internal/core/geometry"
	perr "aidetect/internal/platform/errors"
	"aidetect/internal/services/overlay"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Canvas implements overlay.Surface
// drawing goes to a back buffer; Present publishes it for snapshots
type Canvas struct {
	mu       sync.Mutex
	vp       overlay.Viewport
	dpr      float64
	back     *image.RGBA
	front    *image.RGBA
	face     font.Face
	detached bool
	presents uint64
}

// New returns a canvas reporting vp until SetViewport changes it
func New(vp overlay.Viewport) *Canvas {
	if vp.PixelRatio <= 0 {
		vp.PixelRatio = 1
	}
	return &Canvas{
		vp:    vp,
		dpr:   1,
		back:  image.NewRGBA(image.Rect(0, 0, 0, 0)),
		front: image.NewRGBA(image.Rect(0, 0, 0, 0)),
		face:  basicfont.Face7x13,
	}
}

// SetViewport changes the display size seen by the next pass
func (c *Canvas) SetViewport(vp overlay.Viewport) {
	if vp.PixelRatio <= 0 {
		vp.PixelRatio = 1
	}
	c.mu.Lock()
	c.vp = vp
	c.mu.Unlock()
}

// Detach makes every call fail with RenderTargetLost until Attach
func (c *Canvas) Detach() {
	c.mu.Lock()
	c.detached = true
	c.mu.Unlock()
}

// Attach undoes Detach
func (c *Canvas) Attach() {
	c.mu.Lock()
	c.detached = false
	c.mu.Unlock()
}

func (c *Canvas) check() error {
	if c.detached {
		return perr.RenderTargetLostf("raster canvas detached")
	}
	return nil
}

// Viewport implements overlay.Surface
func (c *Canvas) Viewport() (overlay.Viewport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return overlay.Viewport{}, err
	}
	return c.vp, nil
}

// Resize implements overlay.Surface
func (c *Canvas) Resize(w, h int, pixelRatio float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	if !geometry.FitsBacking(w, h) {
		return perr.RenderTargetLostf("backing store %dx%d over the %d pixel budget", w, h, geometry.MaxBackingPixels)
	}
	c.dpr = pixelRatio
	c.back = image.NewRGBA(image.Rect(0, 0, max(w, 0), max(h, 0)))
	return nil
}

// Clear implements overlay.Surface
func (c *Canvas) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	clear(c.back.Pix)
	return nil
}

// FillRect implements overlay.Surface
func (c *Canvas) FillRect(r geometry.Region, col color.Color) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	c.fill(geometry.Device(r, c.dpr), col)
	return nil
}

// StrokeRect implements overlay.Surface; the line is centred on the edge
func (c *Canvas) StrokeRect(r geometry.Region, width float64, col color.Color) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	d := geometry.Device(r, c.dpr)
	lw := width * c.dpr
	half := lw / 2
	c.fill(geometry.Region{X: d.X - half, Y: d.Y - half, W: d.W + lw, H: lw}, col)
	c.fill(geometry.Region{X: d.X - half, Y: d.Bottom() - half, W: d.W + lw, H: lw}, col)
	c.fill(geometry.Region{X: d.X - half, Y: d.Y + half, W: lw, H: d.H - lw}, col)
	c.fill(geometry.Region{X: d.Right() - half, Y: d.Y + half, W: lw, H: d.H - lw}, col)
	return nil
}

func (c *Canvas) fill(d geometry.Region, col color.Color) {
	if d.W <= 0 || d.H <= 0 {
		return
	}
	rect := image.Rect(
		int(math.Floor(d.X)), int(math.Floor(d.Y)),
		int(math.Ceil(d.Right())), int(math.Ceil(d.Bottom())),
	).Intersect(c.back.Bounds())
	if rect.Empty() {
		return
	}
	draw.Draw(c.back, rect, image.NewUniform(col), image.Point{}, draw.Over)
}

// MeasureText implements overlay.Surface in CSS pixels
func (c *Canvas) MeasureText(s string) float64 {
	return float64(font.MeasureString(c.face, s).Ceil())
}

// DrawText implements overlay.Surface
func (c *Canvas) DrawText(s string, x, y float64, col color.Color) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	d := font.Drawer{
		Dst:  c.back,
		Src:  image.NewUniform(col),
		Face: c.face,
		Dot:  fixed.P(int(x*c.dpr), int(y*c.dpr)),
	}
	d.DrawString(s)
	return nil
}

// Present implements overlay.Surface; the finished pass becomes the snapshot
func (c *Canvas) Present() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	front := image.NewRGBA(c.back.Bounds())
	copy(front.Pix, c.back.Pix)
	c.front = front
	c.presents++
	return nil
}

// Snapshot returns a copy of the last presented pass
func (c *Canvas) Snapshot() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := image.NewRGBA(c.front.Bounds())
	copy(out.Pix, c.front.Pix)
	return out
}

// Presents counts completed passes
func (c *Canvas) Presents() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.presents
}

// PNG encodes the last presented pass
func (c *Canvas) PNG() ([]byte, error) {
	img := c.Snapshot()
	if img.Bounds().Empty() {
		return nil, perr.NotFoundf("nothing presented yet")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "encode overlay png")
	}
	return buf.Bytes(), nil
}
