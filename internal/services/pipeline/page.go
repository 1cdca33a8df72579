package pipeline

import (
	"context"
	"sync"

	"aidetect/internal/adapters/structure"
	"aidetect/internal/core/annotation"
	"aidetect/internal/core/heuristic"
	perr "aidetect/internal/platform/errors"
	"aidetect/internal/platform/logger"
	"aidetect/internal/services/coord"
	"aidetect/internal/services/feedback"
	"aidetect/internal/services/overlay"
	"aidetect/internal/services/sampler"
)

// SourceStructure keys batches from the page's own structural scan
const SourceStructure = "structure"

// Page is one owner's page context: overlay, structural scan and feedback
type Page struct {
	owner    string
	ep       *coord.Endpoint
	surface  overlay.Surface
	renderer *overlay.Renderer
	doc      *structure.Document
	scan     *sampler.StructureLoop
	fb       *feedback.Service
	log      *logger.Logger

	runCtx context.Context
	cancel context.CancelFunc
	sweep  sync.Once
}

func openPage(ctx context.Context, bus *coord.Bus, owner string, surf overlay.Surface, fb *feedback.Service, opt Options) (*Page, error) {
	ep, err := bus.Endpoint(ctx, coord.Page(owner))
	if err != nil {
		return nil, err
	}
	rctx, cancel := context.WithCancel(logger.WithOwner(context.WithoutCancel(ctx), owner))
	p := &Page{
		owner:    owner,
		ep:       ep,
		surface:  surf,
		renderer: overlay.New(surf, opt.Overlay),
		doc:      &structure.Document{},
		scan:     sampler.NewStructureLoop(heuristic.TextEstimator(opt.TextVariant), opt.Sampler),
		fb:       fb,
		log:      logger.Named("pipeline.page"),
		runCtx:   rctx,
		cancel:   cancel,
	}
	ep.Subscribe(coord.KindStartOverlay, p.startOverlay)
	ep.Subscribe(coord.KindAnnotationBatch, p.drawBoxes)
	ep.Subscribe(coord.KindFeedbackMark, p.feedbackMark)
	return p, nil
}

// Owner returns the owning display context
func (p *Page) Owner() string { return p.owner }

// Renderer exposes the overlay for reads
func (p *Page) Renderer() *overlay.Renderer { return p.renderer }

// Surface returns the drawing surface
func (p *Page) Surface() overlay.Surface { return p.surface }

// Document returns the snapshot holder the structural scan reads
func (p *Page) Document() *structure.Document { return p.doc }

func (p *Page) ensureSweep() {
	p.sweep.Do(func() { go p.renderer.Run(p.runCtx) })
}

func (p *Page) startOverlay(ctx context.Context, _ coord.Envelope) (any, error) {
	p.renderer.Start()
	p.ensureSweep()
	if !p.scan.Running() {
		if err := p.scan.Start(p.runCtx, p.doc, p.drawLocal); err != nil && !perr.IsCode(err, perr.ErrorCodeBusy) {
			return nil, err
		}
		logger.C(ctx).Debug().Msg("structural scan started")
	}
	return nil, nil
}

func (p *Page) drawBoxes(ctx context.Context, env coord.Envelope) (any, error) {
	b, err := coord.Decode[coord.AnnotationBatch](env)
	if err != nil {
		return nil, err
	}
	p.ensureSweep()
	if err := p.renderer.Render(env.From, b); err != nil {
		logger.C(ctx).Debug().Err(err).Str("source", env.From).Msg("batch not drawn")
	}
	return nil, nil
}

func (p *Page) drawLocal(ctx context.Context, b annotation.Batch) {
	if err := p.renderer.Render(SourceStructure, b); err != nil {
		logger.C(ctx).Debug().Err(err).Msg("structural batch not drawn")
	}
}

func (p *Page) feedbackMark(ctx context.Context, env coord.Envelope) (any, error) {
	msg, err := coord.Decode[coord.FeedbackMark](env)
	if err != nil {
		return nil, err
	}
	if p.fb == nil {
		return nil, perr.Unavailablef("feedback store not configured")
	}
	return nil, p.fb.Mark(ctx, msg.Value)
}

func (p *Page) close() {
	p.scan.Stop()
	p.cancel()
}
