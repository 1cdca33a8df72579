package sampler

import (
	"context"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"aidetect/internal/core/annotation"
	"aidetect/internal/core/geometry"
	"aidetect/internal/core/heuristic"
	perr "aidetect/internal/platform/errors"
	"aidetect/internal/platform/testkit"
	"aidetect/internal/services/stream"
)

// stubEstimator admits text of at least 5 bytes and scores it from a table
type stubEstimator struct {
	scores map[string]float64
	scored []string
	mu     sync.Mutex
}

func (s *stubEstimator) Admit(x heuristic.Sample) bool {
	t, ok := x.(heuristic.TextSample)
	return ok && len(t.Content) >= 5
}

func (s *stubEstimator) Score(x heuristic.Sample) heuristic.Score {
	t := x.(heuristic.TextSample)
	s.mu.Lock()
	s.scored = append(s.scored, t.Content)
	s.mu.Unlock()
	if t.Content == "panic" {
		panic("bad sample")
	}
	v := s.scores[t.Content]
	l := heuristic.Low
	if v >= 0.6 {
		l = heuristic.Flagged
	}
	return heuristic.Score{Value: v, Label: l}
}

type staticDoc struct {
	snap Snapshot
	err  error
}

func (d staticDoc) Snapshot(context.Context) (Snapshot, error) { return d.snap, d.err }

func doc() staticDoc {
	return staticDoc{snap: Snapshot{
		Viewport: geometry.Size{W: 1280, H: 720},
		Candidates: []Candidate{
			{Region: geometry.Region{X: 0, Y: 0, W: 100, H: 40}, Text: "tiny"},
			{Region: geometry.Region{X: 0, Y: 50, W: 100, H: 40}, Text: "high!"},
			{Region: geometry.Region{X: 0, Y: 100, W: 100, H: 40}, Text: "edge!"},
			{Region: geometry.Region{X: 0, Y: 150, W: 100, H: 40}, Text: "lower"},
			{Region: geometry.Region{X: 0, Y: 200, W: 100, H: 40}, Text: "panic"},
		},
	}}
}

func newStub() *stubEstimator {
	return &stubEstimator{scores: map[string]float64{"high!": 0.9, "edge!": 0.5, "lower": 0.49}}
}

func TestStructureCycle_GatesBeforeScoringAndFilters(t *testing.T) {
	est := newStub()
	l := NewStructureLoop(est, Options{})

	b, err := l.Cycle(context.Background(), doc())
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range est.scored {
		if s == "tiny" {
			t.Fatal("gated candidate was scored")
		}
	}
	if len(est.scored) != 4 {
		t.Fatalf("scored %v", est.scored)
	}
	if b.FrameW != 1280 || b.FrameH != 720 {
		t.Fatalf("frame size %vx%v", b.FrameW, b.FrameH)
	}
	if len(b.Boxes) != 2 || b.Boxes[0].Label != "AI?" || b.Boxes[1].Label != "Low" || b.Boxes[1].Y != 100 {
		t.Fatalf("boxes = %+v", b.Boxes)
	}
}

func TestStructureCycle_CoarseIncludesOnlyFlagged(t *testing.T) {
	// ttr < .45 and a connective: coarse scores it 0.6, under its 0.75 highlight line
	text := "Moreover the cat sat. The cat sat. The cat sat. The cat sat. The cat sat. The cat sat."
	src := staticDoc{snap: Snapshot{
		Viewport:   geometry.Size{W: 800, H: 600},
		Candidates: []Candidate{{Region: geometry.Region{X: 10, Y: 10, W: 300, H: 60}, Text: text}},
	}}
	if sc := heuristic.NewCoarseText().Score(heuristic.TextSample{Content: text}); sc.Value < 0.59 || sc.Value > 0.61 {
		t.Fatalf("coarse score = %v", sc.Value)
	}

	b, err := NewStructureLoop(heuristic.NewCoarseText(), Options{}).Cycle(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Boxes) != 0 {
		t.Fatalf("coarse 0.6 region kept: %+v", b.Boxes)
	}

	b, _ = NewStructureLoop(heuristic.NewCoarseText(), Options{TextIncludeAt: 0.5}).Cycle(context.Background(), src)
	if len(b.Boxes) != 1 {
		t.Fatalf("explicit include threshold ignored: %+v", b.Boxes)
	}
}

func TestStructureCycle_SnapshotError(t *testing.T) {
	l := NewStructureLoop(newStub(), Options{})
	if _, err := l.Cycle(context.Background(), staticDoc{err: perr.RenderTargetLostf("gone")}); err == nil {
		t.Fatal("expected snapshot error")
	}
}

func TestStructureLoop_EmitsAndStops(t *testing.T) {
	l := NewStructureLoop(newStub(), Options{ScanInterval: 10 * time.Millisecond})
	var n atomic.Int64
	got := make(chan annotation.Batch, 64)
	emit := func(_ context.Context, b annotation.Batch) {
		n.Add(1)
		select {
		case got <- b:
		default:
		}
	}

	if err := l.Start(context.Background(), doc(), emit); err != nil {
		t.Fatal(err)
	}
	if err := l.Start(context.Background(), doc(), emit); !perr.IsCode(err, perr.ErrorCodeBusy) {
		t.Fatalf("second start = %v", err)
	}
	first := testkit.Recv(t, got, time.Second)
	if len(first.Boxes) != 2 {
		t.Fatalf("first batch = %+v", first)
	}
	testkit.Eventually(t, time.Second, func() bool { return n.Load() >= 3 }, "periodic scans")

	l.Stop()
	if l.Running() {
		t.Fatal("still running after stop")
	}
	after := n.Load()
	time.Sleep(50 * time.Millisecond)
	if n.Load() != after {
		t.Fatalf("emitted %d batches after stop", n.Load()-after)
	}

	// restart after stop is allowed
	if err := l.Start(context.Background(), doc(), emit); err != nil {
		t.Fatalf("restart: %v", err)
	}
	l.Stop()
}

func TestStructureLoop_ContextCancelStops(t *testing.T) {
	l := NewStructureLoop(newStub(), Options{ScanInterval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	var n atomic.Int64
	if err := l.Start(ctx, doc(), func(context.Context, annotation.Batch) { n.Add(1) }); err != nil {
		t.Fatal(err)
	}
	cancel()
	time.Sleep(20 * time.Millisecond)
	before := n.Load()
	time.Sleep(30 * time.Millisecond)
	if n.Load() != before {
		t.Fatal("loop kept emitting after context cancel")
	}
	l.Stop()
}

func TestStructureLoop_ParentCancelClearsRunning(t *testing.T) {
	l := NewStructureLoop(newStub(), Options{ScanInterval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	emit := func(context.Context, annotation.Batch) {}
	if err := l.Start(ctx, doc(), emit); err != nil {
		t.Fatal(err)
	}
	cancel()
	testkit.Eventually(t, time.Second, func() bool { return !l.Running() }, "running cleared after parent cancel")

	if err := l.Start(context.Background(), doc(), emit); err != nil {
		t.Fatalf("start after parent cancel: %v", err)
	}
	if !l.Running() {
		t.Fatal("restarted loop not running")
	}
	l.Stop()
	if l.Running() {
		t.Fatal("still running after stop")
	}
}

type spectrum struct{ calls atomic.Int64 }

func (s *spectrum) Spectrum() ([]float32, bool) {
	s.calls.Add(1)
	return []float32{0.1, 0.2}, true
}

func uniformFrame(w, h int) stream.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 90, 90, 90, 255
	}
	return stream.Frame{Width: w, Height: h, Pix: img.Pix}
}

func stripedFrame(w, h int) stream.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{A: 255}
			if (x/16)%2 == 0 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return stream.Frame{Width: w, Height: h, Pix: img.Pix}
}

func TestFrameCycle_WorkingResolution(t *testing.T) {
	l := NewFrameLoop(Options{})
	h := &stream.LatestFrame{}
	sp := &spectrum{}
	in := FrameInput{Video: h, Audio: sp}

	if _, ok := l.Cycle(in); ok {
		t.Fatal("emitted before any sized frame")
	}

	h.Set(uniformFrame(1280, 720))
	b, ok := l.Cycle(in)
	if !ok || b.FrameW != 640 || b.FrameH != 360 {
		t.Fatalf("batch = %+v %v", b, ok)
	}
	if len(b.Boxes) != 1 || b.Boxes[0].W != 640 || b.Boxes[0].H != 360 || b.Boxes[0].Label != "AI?" {
		t.Fatalf("boxes = %+v", b.Boxes)
	}
	if sp.calls.Load() != 1 {
		t.Fatal("audio slot not consulted")
	}

	if _, ok := l.Cycle(in); ok {
		t.Fatal("same frame scored twice")
	}
}

func TestFrameCycle_BusyAndMalformedFrames(t *testing.T) {
	l := NewFrameLoop(Options{WorkW: 256, WorkH: 256})
	h := &stream.LatestFrame{}
	in := FrameInput{Video: h}

	h.Set(stripedFrame(256, 256))
	b, ok := l.Cycle(in)
	if !ok || len(b.Boxes) != 0 || b.FrameW != 256 {
		t.Fatalf("busy frame batch = %+v %v", b, ok)
	}

	h.Set(stream.Frame{Width: 10, Height: 10, Pix: make([]uint8, 3)})
	b, ok = l.Cycle(in)
	if !ok || len(b.Boxes) != 0 {
		t.Fatalf("malformed frame batch = %+v %v", b, ok)
	}
}

func TestFrameLoop_StartStop(t *testing.T) {
	l := NewFrameLoop(Options{RefreshHz: 200})
	h := &stream.LatestFrame{}
	got := make(chan annotation.Batch, 16)
	emit := func(_ context.Context, b annotation.Batch) {
		select {
		case got <- b:
		default:
		}
	}
	if err := l.Start(context.Background(), FrameInput{Video: h}, emit); err != nil {
		t.Fatal(err)
	}
	h.Set(uniformFrame(320, 180))
	b := testkit.Recv(t, got, time.Second)
	if len(b.Boxes) != 1 {
		t.Fatalf("batch = %+v", b)
	}
	l.Stop()

	h.Set(uniformFrame(320, 180))
	select {
	case b := <-got:
		t.Fatalf("batch after stop: %+v", b)
	case <-time.After(30 * time.Millisecond):
	}
}
