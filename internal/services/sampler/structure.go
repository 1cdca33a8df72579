package sampler

import (
	"context"

	"aidetect/internal/core/annotation"
	"aidetect/internal/core/geometry"
	"aidetect/internal/core/heuristic"
	"aidetect/internal/platform/logger"
)

// Candidate is one structural region with its extractable text
type Candidate struct {
	Region geometry.Region `json:"region"`
	Text   string          `json:"text"`
}

// Snapshot is the current document structure in viewport space
type Snapshot struct {
	Viewport   geometry.Size `json:"viewport"`
	Candidates []Candidate   `json:"candidates"`
}

// StructureSource is the structural scan collaborator
type StructureSource interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// StructureLoop is the timer driven document scan
type StructureLoop struct {
	runner
	est       heuristic.Estimator
	includeAt float64
	opt       Options
}

// NewStructureLoop scores candidates with est; nil est means the structural text estimator
func NewStructureLoop(est heuristic.Estimator, opt Options) *StructureLoop {
	opt = opt.withDefaults()
	if est == nil {
		est = heuristic.NewStructuralText()
	}
	includeAt := opt.TextIncludeAt
	if includeAt <= 0 {
		includeAt = heuristic.IncludeAt(est)
	}
	return &StructureLoop{
		runner:    runner{log: logger.Named("sampler.structure")},
		est:       est,
		includeAt: includeAt,
		opt:       opt,
	}
}

// Start scans src now and then every ScanInterval; Busy when already running
func (l *StructureLoop) Start(ctx context.Context, src StructureSource, emit Emit) error {
	return l.start(ctx, l.opt.ScanInterval, true, func(ctx context.Context) {
		b, err := l.Cycle(ctx, src)
		if err != nil {
			l.log.Debug().Err(err).Msg("structure snapshot unavailable")
			return
		}
		l.emit(ctx, emit, b)
	})
}

// Stop ends the loop; no batch is emitted after it returns
func (l *StructureLoop) Stop() { l.stop() }

// Running reports the live flag
func (l *StructureLoop) Running() bool { return l.live.Load() }

// Cycle runs one scan: gate, score, filter; every score is computed before the batch is returned
func (l *StructureLoop) Cycle(ctx context.Context, src StructureSource) (annotation.Batch, error) {
	snap, err := src.Snapshot(ctx)
	if err != nil {
		return annotation.Batch{}, err
	}
	b := annotation.Batch{Boxes: []annotation.Box{}, FrameW: snap.Viewport.W, FrameH: snap.Viewport.H}
	for _, c := range snap.Candidates {
		s := heuristic.TextSample{Content: c.Text}
		if !safeAdmit(l.log, l.est, s) {
			continue
		}
		sc := safeScore(l.log, l.est, s)
		if sc.Value >= l.includeAt {
			b.Boxes = append(b.Boxes, annotation.NewBox(c.Region, sc))
		}
	}
	return b, nil
}
