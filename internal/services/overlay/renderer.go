// Package overlay maps scored regions into display space and paints time limited annotations
package overlay

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"aidetect/internal/core/annotation"
	"aidetect/internal/core/geometry"
	"aidetect/internal/core/heuristic"
	perr "aidetect/internal/platform/errors"
	"aidetect/internal/platform/logger"
)

// Annotation is one scored region in sampling space; replaced, never mutated
type Annotation struct {
	Region    geometry.Region
	Score     heuristic.Score
	CreatedAt time.Time
	TTL       time.Duration
}

// Expired reports whether a is past its ttl at now
func (a Annotation) Expired(now time.Time) bool { return now.Sub(a.CreatedAt) >= a.TTL }

// Live is an annotation as currently drawn, in display space
type Live struct {
	Source    string          `json:"source"`
	Region    geometry.Region `json:"region"`
	Score     float64         `json:"score"`
	Label     string          `json:"label"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// layer is the latest batch from one source
type layer struct {
	sampling geometry.Size
	anns     []Annotation
}

// Renderer owns one surface; every pass runs under mu
type Renderer struct {
	mu       sync.Mutex
	surf     Surface
	opt      Options
	started  bool
	layers   map[string]layer
	backingW int
	backingH int
	dpr      float64
	lastVP   Viewport
	log      *logger.Logger
}

// New returns a renderer that has not drawn yet
func New(surf Surface, opt Options) *Renderer {
	return &Renderer{
		surf:   surf,
		opt:    opt.withDefaults(),
		layers: make(map[string]layer),
		log:    logger.Named("overlay"),
	}
}

// Start initializes the overlay; later calls are no-ops
func (r *Renderer) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	if err := r.pass(r.opt.Clock()); err != nil {
		r.log.Debug().Err(err).Msg("initial pass skipped")
	}
}

// Started reports whether the overlay was initialized
func (r *Renderer) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// Render replaces the batch for source and redraws
// a batch arriving before Start initializes the overlay; on surface loss the batch is dropped
func (r *Renderer) Render(source string, b annotation.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = true

	now := r.opt.Clock()
	anns := make([]Annotation, 0, len(b.Boxes))
	for _, box := range b.Boxes {
		anns = append(anns, Annotation{Region: box.Region(), Score: box.ScoreOf(), CreatedAt: now, TTL: r.opt.TTL})
	}

	prev, had := r.layers[source]
	r.layers[source] = layer{sampling: b.Size(), anns: anns}
	if err := r.pass(now); err != nil {
		if had {
			r.layers[source] = prev
		} else {
			delete(r.layers, source)
		}
		r.log.Debug().Err(err).Str("source", source).Int("boxes", len(b.Boxes)).Msg("batch dropped")
		return err
	}
	return nil
}

// Clear drops the batch from source and redraws
func (r *Renderer) Clear(source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.layers, source)
	if !r.started {
		return nil
	}
	return r.pass(r.opt.Clock())
}

// Sweep removes expired annotations and redraws
func (r *Renderer) Sweep() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return nil
	}
	return r.pass(r.opt.Clock())
}

// Run sweeps every Options.Sweep until ctx is done
func (r *Renderer) Run(ctx context.Context) {
	t := time.NewTicker(r.opt.Sweep)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := r.Sweep(); err != nil {
				r.log.Debug().Err(err).Msg("sweep pass skipped")
			}
		}
	}
}

// Live lists unexpired annotations mapped onto the last known viewport
func (r *Renderer) Live() []Live {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.opt.Clock()
	vp := r.lastVP
	if v, err := r.surf.Viewport(); err == nil {
		vp = v
	}

	out := []Live{}
	for _, src := range r.sources() {
		l := r.layers[src]
		m := geometry.MappingFor(l.sampling, vp.CSS)
		for _, a := range l.anns {
			if a.Expired(now) {
				continue
			}
			out = append(out, Live{
				Source:    src,
				Region:    m.Project(a.Region),
				Score:     a.Score.Value,
				Label:     string(a.Score.Label),
				ExpiresAt: a.CreatedAt.Add(a.TTL),
			})
		}
	}
	return out
}

// Viewport returns the last viewport a pass drew against
func (r *Renderer) Viewport() Viewport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastVP
}

func (r *Renderer) sources() []string {
	keys := make([]string, 0, len(r.layers))
	for k := range r.layers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// pass prunes, resizes when the viewport changed, clears and draws; callers hold mu
func (r *Renderer) pass(now time.Time) error {
	for src, l := range r.layers {
		kept := l.anns[:0:0]
		for _, a := range l.anns {
			if !a.Expired(now) {
				kept = append(kept, a)
			}
		}
		if len(kept) != len(l.anns) {
			r.layers[src] = layer{sampling: l.sampling, anns: kept}
		}
	}

	vp, err := r.surf.Viewport()
	if err != nil {
		return lost(err, "read viewport")
	}
	r.lastVP = vp
	w, h := geometry.BackingSize(vp.CSS, vp.PixelRatio)
	if w != r.backingW || h != r.backingH || vp.PixelRatio != r.dpr {
		if err := r.surf.Resize(w, h, vp.PixelRatio); err != nil {
			return lost(err, "resize")
		}
		r.backingW, r.backingH, r.dpr = w, h, vp.PixelRatio
	}

	if err := r.surf.Clear(); err != nil {
		return lost(err, "clear")
	}
	for _, src := range r.sources() {
		l := r.layers[src]
		m := geometry.MappingFor(l.sampling, vp.CSS)
		for _, a := range l.anns {
			if err := r.draw(m.Project(a.Region), a.Score, vp.CSS); err != nil {
				return lost(err, "draw")
			}
		}
	}
	if err := r.surf.Present(); err != nil {
		return lost(err, "present")
	}
	return nil
}

func (r *Renderer) draw(rect geometry.Region, s heuristic.Score, display geometry.Size) error {
	if err := r.surf.FillRect(rect, fillColor); err != nil {
		return err
	}
	if err := r.surf.StrokeRect(rect, r.opt.LineWidth, strokeColor); err != nil {
		return err
	}

	text := ChipText(s)
	chip := ChipRegion(rect, r.surf.MeasureText(text)+r.opt.ChipPad, r.opt.ChipHeight, display)
	if err := r.surf.FillRect(chip, chipColor); err != nil {
		return err
	}
	return r.surf.DrawText(text, chip.X+4, chip.Bottom()-5, textColor)
}

// ChipText is the label chip caption, e.g. "AI? 0.82"
func ChipText(s heuristic.Score) string {
	label := string(s.Label)
	if label == "" {
		label = "AI"
	}
	return fmt.Sprintf("%s %.2f", label, s.Value)
}

// ChipRegion places a w x h chip directly above rect, kept on the display surface
// above the top edge it moves inside the box top; past the right edge it shifts left
func ChipRegion(rect geometry.Region, w, h float64, display geometry.Size) geometry.Region {
	chip := geometry.Region{X: rect.X, Y: rect.Y - h, W: w, H: h}
	if chip.Y < 0 {
		chip.Y = max(rect.Y, 0)
	}
	if display.W > 0 && chip.Right() > display.W {
		chip.X = display.W - w
	}
	if chip.X < 0 {
		chip.X = 0
	}
	return chip
}

func lost(err error, op string) error {
	if perr.IsCode(err, perr.ErrorCodeRenderTargetLost) {
		return perr.WithOp(err, "overlay."+op)
	}
	return perr.Wrap(err, perr.ErrorCodeRenderTargetLost, "overlay "+op)
}
