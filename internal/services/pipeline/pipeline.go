// Package pipeline runs the background, capture and page contexts on one bus
// and exposes the operations the control API triggers
package pipeline

import (
	"context"
	"io"
	"sync"

	"aidetect/internal/adapters/structure"
	"aidetect/internal/adapters/surface/raster"
	"aidetect/internal/core/geometry"
	perr "aidetect/internal/platform/errors"
	"aidetect/internal/platform/logger"
	"aidetect/internal/services/coord"
	"aidetect/internal/services/feedback"
	"aidetect/internal/services/overlay"
	"aidetect/internal/services/sampler"
	"aidetect/internal/services/stream"
)

// Deps are the external collaborators
type Deps struct {
	Bus         *coord.Bus
	Provisioner stream.Provisioner
	// Surfaces builds the drawing surface for a new page; nil means a raster canvas
	Surfaces func(owner string) overlay.Surface
	Feedback *feedback.Service
}

// CaptureRequest is a triggering event for one owner
type CaptureRequest struct {
	Owner       string
	Kinds       []stream.Kind
	SourceID    string
	Constraints stream.Constraints
}

// Resizer is a surface whose viewport can be driven from outside
type Resizer interface {
	SetViewport(overlay.Viewport)
}

// Snapshotter is a surface that can export its last pass as PNG
type Snapshotter interface {
	PNG() ([]byte, error)
}

// Pipeline owns the background endpoint, the capture context and every page context
type Pipeline struct {
	deps Deps
	opt  Options
	mgr  *stream.Manager
	log  *logger.Logger

	bg      *coord.Endpoint
	capture *captureCtx

	mu    sync.Mutex
	pages map[string]*Page
}

// New wires a pipeline; Open starts its contexts
func New(d Deps, opt Options) *Pipeline {
	opt = opt.withDefaults()
	if d.Surfaces == nil {
		vp := opt.DefaultViewport
		d.Surfaces = func(string) overlay.Surface { return raster.New(vp) }
	}
	return &Pipeline{
		deps:  d,
		opt:   opt,
		mgr:   stream.NewManager(d.Provisioner, opt.Stream),
		log:   logger.Named("pipeline"),
		pages: map[string]*Page{},
	}
}

// Open starts the background and capture contexts
func (p *Pipeline) Open(ctx context.Context) error {
	bg, err := p.deps.Bus.Endpoint(ctx, coord.Background)
	if err != nil {
		return err
	}
	c, err := openCapture(ctx, p.deps.Bus, p.mgr, p.opt)
	if err != nil {
		p.deps.Bus.CloseEndpoint(coord.Background)
		return err
	}
	p.bg, p.capture = bg, c
	p.log.Info().Msg("pipeline contexts open")
	return nil
}

// Close tears down pages, then capture, then background
func (p *Pipeline) Close() {
	p.mu.Lock()
	pages := p.pages
	p.pages = map[string]*Page{}
	p.mu.Unlock()
	for owner, pg := range pages {
		pg.close()
		p.deps.Bus.CloseEndpoint(coord.Page(owner))
	}
	if p.capture != nil {
		p.capture.close()
		p.deps.Bus.CloseEndpoint(coord.Capture)
	}
	p.deps.Bus.CloseEndpoint(coord.Background)
}

// Page returns owner's page context, opening it on first use
func (p *Pipeline) Page(ctx context.Context, owner string) (*Page, error) {
	if owner == "" {
		return nil, perr.WithField(perr.InvalidArgf("owner is required"), "owner")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if pg, ok := p.pages[owner]; ok {
		return pg, nil
	}
	pg, err := openPage(ctx, p.deps.Bus, owner, p.deps.Surfaces(owner), p.deps.Feedback, p.opt)
	if err != nil {
		return nil, err
	}
	p.pages[owner] = pg
	return pg, nil
}

// Lookup returns an open page context without creating one
func (p *Pipeline) Lookup(owner string) (*Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pg, ok := p.pages[owner]
	if !ok {
		return nil, perr.NotFoundf("no page context for %s", owner)
	}
	return pg, nil
}

// StartCapture chooses a source, starts the overlay and asks the capture context to begin
func (p *Pipeline) StartCapture(ctx context.Context, req CaptureRequest) (coord.CaptureStarted, error) {
	if req.Owner == "" {
		return coord.CaptureStarted{}, perr.WithField(perr.InvalidArgf("owner is required"), "owner")
	}
	ref, err := p.chooseSource(ctx, req)
	if err != nil {
		return coord.CaptureStarted{}, err
	}
	if _, err := p.Page(ctx, req.Owner); err != nil {
		return coord.CaptureStarted{}, err
	}
	if err := p.bg.Send(ctx, coord.Page(req.Owner), req.Owner, coord.KindStartOverlay, coord.StartOverlay{}); err != nil {
		logger.C(ctx).Debug().Err(err).Msg("start overlay not delivered")
	}

	rep, err := p.bg.Request(ctx, coord.Capture, req.Owner, coord.KindBeginCapture, coord.BeginCapture{
		StreamRef:   ref,
		Constraints: req.Constraints,
	})
	if err != nil {
		return coord.CaptureStarted{}, err
	}
	return coord.Decode[coord.CaptureStarted](rep)
}

func (p *Pipeline) chooseSource(ctx context.Context, req CaptureRequest) (stream.SourceRef, error) {
	if req.SourceID != "" {
		kind := stream.KindScreen
		if len(req.Kinds) > 0 {
			kind = req.Kinds[0]
		}
		return stream.SourceRef{ID: req.SourceID, Kind: kind}, nil
	}
	return p.mgr.Provisioner().ChooseSource(ctx, req.Kinds)
}

// StopCapture ends owner's capture; stopping an idle owner is a no-op
func (p *Pipeline) StopCapture(ctx context.Context, owner string) error {
	if owner == "" {
		return perr.WithField(perr.InvalidArgf("owner is required"), "owner")
	}
	_, err := p.bg.Request(ctx, coord.Capture, owner, coord.KindStopCapture, coord.StopCapture{})
	return err
}

// Depart is owner departure: capture stops and the page context closes
func (p *Pipeline) Depart(ctx context.Context, owner string) error {
	if err := p.StopCapture(ctx, owner); err != nil {
		return err
	}
	p.mu.Lock()
	pg, ok := p.pages[owner]
	delete(p.pages, owner)
	p.mu.Unlock()
	if ok {
		pg.close()
		p.deps.Bus.CloseEndpoint(coord.Page(owner))
		logger.C(ctx).Info().Str("owner", owner).Msg("owner departed")
	}
	return nil
}

// Streams lists registered captures
func (p *Pipeline) Streams() []stream.Info { return p.mgr.Active() }

// PushDocument stores a structural snapshot for owner and starts its overlay
func (p *Pipeline) PushDocument(ctx context.Context, owner string, snap sampler.Snapshot) error {
	pg, err := p.Page(ctx, owner)
	if err != nil {
		return err
	}
	pg.doc.Set(snap)
	return p.bg.Send(ctx, coord.Page(owner), owner, coord.KindStartOverlay, coord.StartOverlay{})
}

// PushHTML parses r into a snapshot sized to the page viewport and pushes it
func (p *Pipeline) PushHTML(ctx context.Context, owner string, r io.Reader) (sampler.Snapshot, error) {
	pg, err := p.Page(ctx, owner)
	if err != nil {
		return sampler.Snapshot{}, err
	}
	vp, err := pg.surface.Viewport()
	if err != nil {
		vp = p.opt.DefaultViewport
	}
	snap, err := structure.ParseHTML(r, vp.CSS, structure.Flow{})
	if err != nil {
		return sampler.Snapshot{}, err
	}
	return snap, p.PushDocument(ctx, owner, snap)
}

// Annotations lists owner's live annotations in display space
func (p *Pipeline) Annotations(owner string) ([]overlay.Live, error) {
	pg, err := p.Lookup(owner)
	if err != nil {
		return nil, err
	}
	return pg.renderer.Live(), nil
}

// SetViewport resizes owner's display surface; the next pass picks it up
func (p *Pipeline) SetViewport(ctx context.Context, owner string, vp overlay.Viewport) error {
	if w, h := geometry.BackingSize(vp.CSS, vp.PixelRatio); !geometry.FitsBacking(w, h) {
		return perr.WithField(perr.InvalidArgf("viewport needs a %dx%d backing store, over the %d pixel budget",
			w, h, geometry.MaxBackingPixels), "viewport")
	}
	pg, err := p.Page(ctx, owner)
	if err != nil {
		return err
	}
	rs, ok := pg.surface.(Resizer)
	if !ok {
		return perr.Conflictf("surface for %s is not resizable", owner)
	}
	rs.SetViewport(vp)
	if err := pg.renderer.Sweep(); err != nil {
		logger.C(ctx).Debug().Err(err).Msg("resize pass skipped")
	}
	return nil
}

// OverlayPNG exports owner's last presented pass
func (p *Pipeline) OverlayPNG(owner string) ([]byte, error) {
	pg, err := p.Lookup(owner)
	if err != nil {
		return nil, err
	}
	sn, ok := pg.surface.(Snapshotter)
	if !ok {
		return nil, perr.Conflictf("surface for %s cannot export images", owner)
	}
	return sn.PNG()
}

// Feedback delivers a FeedbackMark to owner's page and waits for the write
func (p *Pipeline) Feedback(ctx context.Context, owner, value string) error {
	if _, err := p.Page(ctx, owner); err != nil {
		return err
	}
	_, err := p.bg.Request(ctx, coord.Page(owner), owner, coord.KindFeedbackMark, coord.FeedbackMark{Value: value})
	return err
}
