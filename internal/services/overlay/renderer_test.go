package overlay

import (
	"context"
	"image/color"
	"sync"
	"testing"
	"time"

	"aidetect/internal/core/annotation"
	"aidetect/internal/core/geometry"
	"aidetect/internal/core/heuristic"
	perr "aidetect/internal/platform/errors"
	"aidetect/internal/platform/testkit"
)

// fakeSurface records the most recent pass
type fakeSurface struct {
	mu      sync.Mutex
	vp      Viewport
	gone    bool
	resizes [][2]int
	clears  int
	strokes []geometry.Region
	texts   []string
	present int
}

func (f *fakeSurface) Viewport() (Viewport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gone {
		return Viewport{}, perr.RenderTargetLostf("surface detached")
	}
	return f.vp, nil
}

func (f *fakeSurface) Resize(w, h int, _ float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resizes = append(f.resizes, [2]int{w, h})
	return nil
}

func (f *fakeSurface) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	f.strokes = nil
	f.texts = nil
	return nil
}

func (f *fakeSurface) StrokeRect(r geometry.Region, _ float64, _ color.Color) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.strokes = append(f.strokes, r)
	return nil
}

func (f *fakeSurface) FillRect(geometry.Region, color.Color) error { return nil }

func (f *fakeSurface) MeasureText(s string) float64 { return float64(len(s) * 7) }

func (f *fakeSurface) DrawText(s string, _, _ float64, _ color.Color) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, s)
	return nil
}

func (f *fakeSurface) Present() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.present++
	return nil
}

func (f *fakeSurface) drawn() []geometry.Region {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]geometry.Region(nil), f.strokes...)
}

func (f *fakeSurface) setGone(v bool) {
	f.mu.Lock()
	f.gone = v
	f.mu.Unlock()
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func setup(ttl time.Duration) (*Renderer, *fakeSurface, *manualClock) {
	surf := &fakeSurface{vp: Viewport{CSS: geometry.Size{W: 1280, H: 720}, PixelRatio: 1}}
	clk := &manualClock{now: time.Unix(1_700_000_000, 0)}
	return New(surf, Options{TTL: ttl, Clock: clk.Now}), surf, clk
}

func batch(boxes ...annotation.Box) annotation.Batch {
	return annotation.Batch{Boxes: boxes, FrameW: 640, FrameH: 360}
}

func box(x, y, w, h, score float64) annotation.Box {
	label := "Low"
	if score >= 0.75 {
		label = "AI?"
	}
	return annotation.Box{X: x, Y: y, W: w, H: h, Score: score, Label: label}
}

func TestRender_ExpiresAfterTTL(t *testing.T) {
	r, surf, clk := setup(time.Second)
	if err := r.Render("capture", batch(box(10, 10, 100, 50, 0.8))); err != nil {
		t.Fatal(err)
	}
	if len(surf.drawn()) != 1 {
		t.Fatalf("drawn = %v", surf.drawn())
	}

	clk.Advance(1500 * time.Millisecond)
	if err := r.Sweep(); err != nil {
		t.Fatal(err)
	}
	if len(surf.drawn()) != 0 {
		t.Fatalf("expired annotation still drawn: %v", surf.drawn())
	}
	if len(r.Live()) != 0 {
		t.Fatal("expired annotation still live")
	}
}

func TestRender_BatchSupersedesSameSourceOnly(t *testing.T) {
	r, surf, _ := setup(0)
	_ = r.Render("capture", batch(box(0, 0, 10, 10, 0.9), box(20, 20, 10, 10, 0.9)))
	_ = r.Render("page", batch(box(40, 40, 10, 10, 0.5)))
	_ = r.Render("capture", batch(box(0, 0, 10, 10, 0.9)))

	if got := len(r.Live()); got != 2 {
		t.Fatalf("live = %d, want 2", got)
	}
	if len(surf.drawn()) != 2 {
		t.Fatalf("drawn = %d, want 2 (no accumulation)", len(surf.drawn()))
	}

	_ = r.Render("capture", batch())
	if got := len(r.Live()); got != 1 {
		t.Fatalf("empty batch should clear its source, live = %d", got)
	}
}

func TestRender_MapsSamplingToDisplay(t *testing.T) {
	r, surf, _ := setup(0)
	_ = r.Render("capture", batch(box(100, 50, 200, 100, 0.8)))

	want := geometry.Region{X: 200, Y: 100, W: 400, H: 200}
	live := r.Live()
	if len(live) != 1 || !geometry.Within(live[0].Region, want, 1) {
		t.Fatalf("live = %+v", live)
	}
	if !geometry.Within(surf.drawn()[0], want, 1) {
		t.Fatalf("drawn = %+v", surf.drawn())
	}
	if surf.texts[0] != "AI? 0.80" {
		t.Fatalf("chip = %q", surf.texts[0])
	}
}

func TestRender_ResizesOnlyOnChange(t *testing.T) {
	r, surf, _ := setup(0)
	_ = r.Render("a", batch())
	_ = r.Render("a", batch())
	if len(surf.resizes) != 1 || surf.resizes[0] != [2]int{1280, 720} {
		t.Fatalf("resizes = %v", surf.resizes)
	}

	surf.mu.Lock()
	surf.vp = Viewport{CSS: geometry.Size{W: 1000.7, H: 500.2}, PixelRatio: 1.5}
	surf.mu.Unlock()
	_ = r.Sweep()
	if len(surf.resizes) != 2 || surf.resizes[1] != [2]int{1501, 750} {
		t.Fatalf("resizes = %v", surf.resizes)
	}
}

func TestStart_IdempotentAndImplicit(t *testing.T) {
	r, surf, _ := setup(0)
	if r.Started() {
		t.Fatal("started before Start")
	}
	r.Start()
	r.Start()
	if surf.clears != 1 {
		t.Fatalf("clears = %d, want 1", surf.clears)
	}

	r2, surf2, _ := setup(0)
	if err := r2.Render("capture", batch(box(0, 0, 10, 10, 0.9))); err != nil {
		t.Fatal(err)
	}
	if !r2.Started() || len(surf2.drawn()) != 1 {
		t.Fatal("batch before Start should initialize and draw")
	}
	r2.Start()
	if len(r2.Live()) != 1 {
		t.Fatal("late Start must not reset annotations")
	}
}

func TestRender_SurfaceLostDropsBatch(t *testing.T) {
	r, surf, _ := setup(0)
	surf.setGone(true)

	err := r.Render("capture", batch(box(0, 0, 10, 10, 0.9)))
	if !perr.IsCode(err, perr.ErrorCodeRenderTargetLost) {
		t.Fatalf("err = %v", err)
	}

	surf.setGone(false)
	if err := r.Sweep(); err != nil {
		t.Fatal(err)
	}
	if len(surf.drawn()) != 0 || len(r.Live()) != 0 {
		t.Fatal("dropped batch was retried")
	}
}

func TestRun_SweepsOnTick(t *testing.T) {
	surf := &fakeSurface{vp: Viewport{CSS: geometry.Size{W: 640, H: 360}, PixelRatio: 1}}
	r := New(surf, Options{TTL: 20 * time.Millisecond, Sweep: 5 * time.Millisecond})
	_ = r.Render("capture", batch(box(0, 0, 10, 10, 0.9)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	testkit.Eventually(t, time.Second, func() bool { return len(surf.drawn()) == 0 }, "stale box swept")
}

func TestChipRegion(t *testing.T) {
	display := geometry.Size{W: 300, H: 200}
	cases := []struct {
		name string
		rect geometry.Region
		want geometry.Region
	}{
		{"above", geometry.Region{X: 10, Y: 50, W: 100, H: 40}, geometry.Region{X: 10, Y: 32, W: 60, H: 18}},
		{"top edge", geometry.Region{X: 10, Y: 5, W: 100, H: 40}, geometry.Region{X: 10, Y: 5, W: 60, H: 18}},
		{"right edge", geometry.Region{X: 280, Y: 50, W: 20, H: 40}, geometry.Region{X: 240, Y: 32, W: 60, H: 18}},
	}
	for _, c := range cases {
		if got := ChipRegion(c.rect, 60, 18, display); got != c.want {
			t.Fatalf("%s: got %+v, want %+v", c.name, got, c.want)
		}
	}
}

func TestChipText(t *testing.T) {
	if got := ChipText(heuristic.Score{Value: 0.456, Label: heuristic.Low}); got != "Low 0.46" {
		t.Fatalf("chip = %q", got)
	}
}
