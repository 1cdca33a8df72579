package synthetic

import (
	"context"
	"testing"
	"time"

	"aidetect/internal/core/heuristic"
	perr "aidetect/internal/platform/errors"
	"aidetect/internal/platform/testkit"
	"aidetect/internal/services/stream"
)

func TestChooseSource(t *testing.T) {
	p := New(Options{})
	ref, err := p.ChooseSource(context.Background(), []stream.Kind{stream.KindTab})
	if err != nil || ref.Kind != stream.KindTab {
		t.Fatalf("ref = %+v err = %v", ref, err)
	}
	if _, err := p.ChooseSource(context.Background(), []stream.Kind{stream.KindAudio}); !perr.IsCode(err, perr.ErrorCodeSourceUnavailable) {
		t.Fatalf("audio only err = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.ChooseSource(ctx, nil); !perr.IsCode(err, perr.ErrorCodeSourceUnavailable) {
		t.Fatalf("cancelled err = %v", err)
	}
}

func TestOpenStream_ThroughManager(t *testing.T) {
	p := New(Options{FPS: 200})
	m := stream.NewManager(p, stream.Options{})
	ref, _ := p.ChooseSource(context.Background(), nil)

	s, err := m.Acquire(context.Background(), "tab-1", stream.Constraints{Source: ref, Width: 64, Height: 32, Audio: true})
	if err != nil {
		t.Fatal(err)
	}
	v, ok := s.Video()
	if !ok {
		t.Fatal("no video track")
	}
	a, ok := s.Audio()
	if !ok {
		t.Fatal("no audio track")
	}

	testkit.Eventually(t, time.Second, func() bool {
		f, ok := v.Latest()
		return ok && f.Width == 64 && f.Height == 32 && len(f.Pix) == 64*32*4
	}, "first frame")
	testkit.Eventually(t, time.Second, func() bool {
		bins, ok := a.Spectrum()
		return ok && len(bins) == 64
	}, "first spectrum")

	if err := m.Release("tab-1"); err != nil {
		t.Fatal(err)
	}
	if v.Live() || a.Live() {
		t.Fatal("tracks still live after release")
	}
	if _, ok := v.Latest(); ok {
		t.Fatal("stopped track still yields frames")
	}
}

func TestOpenStream_UnknownSource(t *testing.T) {
	_, err := New(Options{}).OpenStream(context.Background(), stream.SourceRef{ID: "nope"}, stream.Constraints{})
	if !perr.IsCode(err, perr.ErrorCodeSourceUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestRender_Patterns(t *testing.T) {
	score := func(pattern string) float64 {
		s := heuristic.ImageSample{Width: 256, Height: 256, Pix: Render(pattern, 256, 256, 0)}
		return heuristic.NewImage().Score(s).Value
	}
	if got := score(PatternFlat); got != 0.8 {
		t.Fatalf("flat = %v", got)
	}
	if got := score(PatternStripes); got != 0 {
		t.Fatalf("stripes = %v", got)
	}
	if got := score(PatternNoise); got >= heuristic.ImageFlagAt {
		t.Fatalf("noise = %v", got)
	}
}
