// Package synthetic provisions generated capture streams for demos and tests
package synthetic

import (
	"context"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"aidetect/internal/platform/config"
	perr "aidetect/internal/platform/errors"
	"aidetect/internal/platform/logger"
	"aidetect/internal/services/stream"

	"github.com/google/uuid"
)

// Frame patterns
const (
	PatternFlat    = "flat"
	PatternNoise   = "noise"
	PatternStripes = "stripes"
)

// Options shapes generated streams
type Options struct {
	Width   int
	Height  int
	FPS     float64
	Pattern string
	Bins    int
	Sources []stream.SourceRef
}

// FromConfig reads CORE_CAPTURE_SYNTHETIC_*
func FromConfig(root config.Conf) Options {
	c := root.Prefix("CORE_CAPTURE_SYNTHETIC_")
	return Options{
		Width:   c.MayInt("WIDTH", 1280),
		Height:  c.MayInt("HEIGHT", 720),
		FPS:     c.MayFloat64("FPS", 15),
		Pattern: c.MayEnum("PATTERN", PatternFlat, PatternFlat, PatternNoise, PatternStripes),
		Bins:    c.MayInt("BINS", 64),
	}
}

// DefaultSources is one source per kind
func DefaultSources() []stream.SourceRef {
	return []stream.SourceRef{
		{ID: "synthetic:screen:0", Kind: stream.KindScreen, Label: "Synthetic screen"},
		{ID: "synthetic:window:0", Kind: stream.KindWindow, Label: "Synthetic window"},
		{ID: "synthetic:tab:0", Kind: stream.KindTab, Label: "Synthetic tab"},
	}
}

// Provisioner implements stream.Provisioner
type Provisioner struct {
	opt Options
	log *logger.Logger
}

// New fills zero options with defaults
func New(opt Options) *Provisioner {
	if opt.Width <= 0 || opt.Height <= 0 {
		opt.Width, opt.Height = 1280, 720
	}
	if opt.FPS <= 0 {
		opt.FPS = 15
	}
	if opt.Pattern == "" {
		opt.Pattern = PatternFlat
	}
	if opt.Bins <= 0 {
		opt.Bins = 64
	}
	if len(opt.Sources) == 0 {
		opt.Sources = DefaultSources()
	}
	return &Provisioner{opt: opt, log: logger.Named("capture.synthetic")}
}

// ChooseSource picks the first configured source of an allowed kind
func (p *Provisioner) ChooseSource(ctx context.Context, kinds []stream.Kind) (stream.SourceRef, error) {
	if err := ctx.Err(); err != nil {
		return stream.SourceRef{}, perr.Wrap(err, perr.ErrorCodeSourceUnavailable, "source selection cancelled")
	}
	for _, s := range p.opt.Sources {
		if len(kinds) == 0 || slices.Contains(kinds, s.Kind) {
			return s, nil
		}
	}
	return stream.SourceRef{}, perr.SourceUnavailablef("no synthetic source offers %v", kinds)
}

// OpenStream starts a frame generator and, when asked, a spectrum generator
// generators run until their track is stopped; ctx only bounds the open
func (p *Provisioner) OpenStream(ctx context.Context, ref stream.SourceRef, c stream.Constraints) ([]stream.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeSourceUnavailable, "open cancelled")
	}
	if !slices.ContainsFunc(p.opt.Sources, func(s stream.SourceRef) bool { return s.ID == ref.ID }) {
		return nil, perr.SourceUnavailablef("unknown synthetic source %q", ref.ID)
	}

	w, h, fps := p.opt.Width, p.opt.Height, p.opt.FPS
	if c.Width > 0 && c.Height > 0 {
		w, h = c.Width, c.Height
	}
	if c.FPS > 0 {
		fps = c.FPS
	}
	period := time.Duration(float64(time.Second) / fps)

	tracks := []stream.Track{newVideo(w, h, period, p.opt.Pattern)}
	if c.Audio {
		tracks = append(tracks, newAudio(p.opt.Bins, period))
	}
	p.log.Debug().Str("source", ref.ID).Int("w", w).Int("h", h).Float64("fps", fps).Int("tracks", len(tracks)).Msg("stream opened")
	return tracks, nil
}

// Video is a generated video track
type Video struct {
	*stream.BaseTrack
	frames *stream.LatestFrame
}

// Latest implements stream.VideoTrack
func (v *Video) Latest() (stream.Frame, bool) { return v.frames.Latest() }

func newVideo(w, h int, period time.Duration, pattern string) *Video {
	quit := make(chan struct{})
	v := &Video{frames: &stream.LatestFrame{}}
	v.BaseTrack = stream.NewBaseTrack(uuid.NewString(), stream.TrackVideo, func() {
		close(quit)
		v.frames.Close()
	})

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		n := 0
		for {
			v.frames.Set(stream.Frame{Width: w, Height: h, Pix: Render(pattern, w, h, n), At: time.Now()})
			n++
			select {
			case <-quit:
				return
			case <-t.C:
			}
		}
	}()
	return v
}

// Audio is a generated spectrum track
type Audio struct {
	*stream.BaseTrack
	bins *stream.LatestSpectrum
}

// Spectrum implements stream.AudioTrack
func (a *Audio) Spectrum() ([]float32, bool) { return a.bins.Latest() }

func newAudio(n int, period time.Duration) *Audio {
	quit := make(chan struct{})
	a := &Audio{bins: &stream.LatestSpectrum{}}
	a.BaseTrack = stream.NewBaseTrack(uuid.NewString(), stream.TrackAudio, func() {
		close(quit)
		a.bins.Close()
	})

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		bins := make([]float32, n)
		for step := 0; ; step++ {
			for i := range bins {
				bins[i] = float32(0.5 + 0.5*math.Sin(float64(i+step)/4))
			}
			a.bins.Set(bins)
			select {
			case <-quit:
				return
			case <-t.C:
			}
		}
	}()
	return a
}

// Render draws frame n of pattern as RGBA
func Render(pattern string, w, h, n int) []uint8 {
	pix := make([]uint8, w*h*4)
	switch pattern {
	case PatternNoise:
		rng := rand.New(rand.NewPCG(uint64(n), 0x5eed))
		for i := 0; i < len(pix); i += 4 {
			v := uint8(rng.IntN(256))
			pix[i], pix[i+1], pix[i+2], pix[i+3] = v, v, v, 255
		}
	case PatternStripes:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				var v uint8
				if ((x+n)/16)%2 == 0 {
					v = 255
				}
				i := (y*w + x) * 4
				pix[i], pix[i+1], pix[i+2], pix[i+3] = v, v, v, 255
			}
		}
	default:
		for i := 0; i < len(pix); i += 4 {
			pix[i], pix[i+1], pix[i+2], pix[i+3] = 96, 96, 110, 255
		}
	}
	return pix
}
