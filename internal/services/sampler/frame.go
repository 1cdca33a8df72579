package sampler

import (
	"context"

	"aidetect/internal/core/annotation"
	"aidetect/internal/core/geometry"
	"aidetect/internal/core/heuristic"
	"aidetect/internal/platform/logger"
	"aidetect/internal/services/stream"
)

// FrameSource yields the most recent decoded frame without blocking
type FrameSource interface {
	Latest() (stream.Frame, bool)
}

// SpectrumSource yields the most recent audio spectrum without blocking
type SpectrumSource interface {
	Spectrum() ([]float32, bool)
}

// FrameInput is what the frame loop pulls from; Audio may be nil
type FrameInput struct {
	Video FrameSource
	Audio SpectrumSource
}

// InputFor adapts a stream's tracks
func InputFor(s *stream.Stream) FrameInput {
	var in FrameInput
	if v, ok := s.Video(); ok {
		in.Video = v
	}
	if a, ok := s.Audio(); ok {
		in.Audio = a
	}
	return in
}

// FrameLoop is the refresh driven whole frame scan
type FrameLoop struct {
	runner
	img     heuristic.Estimator
	audio   heuristic.Estimator
	opt     Options
	lastSeq uint64
}

// NewFrameLoop scores frames with the image estimator and spectra with the audio slot
func NewFrameLoop(opt Options) *FrameLoop {
	return &FrameLoop{
		runner: runner{log: logger.Named("sampler.frame")},
		img:    heuristic.NewImage(),
		audio:  heuristic.Audio{},
		opt:    opt.withDefaults(),
	}
}

// Start polls in on every refresh; Busy when already running
func (l *FrameLoop) Start(ctx context.Context, in FrameInput, emit Emit) error {
	return l.start(ctx, l.opt.refreshPeriod(), false, func(ctx context.Context) {
		if b, ok := l.Cycle(in); ok {
			l.emit(ctx, emit, b)
		}
	})
}

// Stop ends the loop; no batch is emitted after it returns
func (l *FrameLoop) Stop() {
	l.stop()
	l.lastSeq = 0
}

// Running reports the live flag
func (l *FrameLoop) Running() bool { return l.live.Load() }

// Cycle scores the newest unseen frame
// false means nothing to emit: no sized frame yet, or the same frame as last time
func (l *FrameLoop) Cycle(in FrameInput) (annotation.Batch, bool) {
	if in.Video == nil {
		return annotation.Batch{}, false
	}
	f, ok := in.Video.Latest()
	if !ok || f.Width <= 0 || f.Height <= 0 {
		return annotation.Batch{}, false
	}
	if f.Seq != 0 && f.Seq == l.lastSeq {
		return annotation.Batch{}, false
	}
	l.lastSeq = f.Seq

	w, h := l.opt.WorkW, l.opt.WorkH
	b := annotation.Batch{Boxes: []annotation.Box{}, FrameW: float64(w), FrameH: float64(h)}

	s := heuristic.ImageSample{Width: f.Width, Height: f.Height, Pix: f.Pix}
	if err := heuristic.Validate(s); err != nil {
		l.log.Debug().Err(err).Msg("frame skipped")
		return b, true
	}
	s = heuristic.Resize(s, w, h)
	sc := safeScore(l.log, l.img, s)
	if sc.Value >= l.opt.FrameIncludeAt {
		b.Boxes = append(b.Boxes, annotation.NewBox(geometry.Region{W: float64(w), H: float64(h)}, sc))
	}

	if in.Audio != nil {
		if bins, ok := in.Audio.Spectrum(); ok {
			as := heuristic.AudioSample{Spectrum: bins}
			if safeAdmit(l.log, l.audio, as) {
				asc := safeScore(l.log, l.audio, as)
				l.log.Trace().Float64("score", asc.Value).Int("bins", len(bins)).Msg("audio scored")
			}
		}
	}
	return b, true
}
