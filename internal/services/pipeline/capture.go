package pipeline

import (
	"context"
	"sync"
	"time"

	"aidetect/internal/core/annotation"
	"aidetect/internal/platform/logger"
	"aidetect/internal/services/coord"
	"aidetect/internal/services/sampler"
	"aidetect/internal/services/stream"
)

// captureCtx is the capture execution context: stream ownership plus one frame loop per owner
type captureCtx struct {
	ep  *coord.Endpoint
	mgr *stream.Manager
	opt Options
	log *logger.Logger

	mu   sync.Mutex
	runs map[string]*frameRun
}

type frameRun struct {
	streamID string
	loop     *sampler.FrameLoop
	cancel   context.CancelFunc
}

func openCapture(ctx context.Context, bus *coord.Bus, mgr *stream.Manager, opt Options) (*captureCtx, error) {
	ep, err := bus.Endpoint(ctx, coord.Capture)
	if err != nil {
		return nil, err
	}
	c := &captureCtx{ep: ep, mgr: mgr, opt: opt, log: logger.Named("pipeline.capture"), runs: map[string]*frameRun{}}
	ep.Subscribe(coord.KindBeginCapture, c.begin)
	ep.Subscribe(coord.KindStopCapture, c.stop)
	return c, nil
}

func (c *captureCtx) begin(ctx context.Context, env coord.Envelope) (any, error) {
	msg, err := coord.Decode[coord.BeginCapture](env)
	if err != nil {
		return nil, err
	}
	owner := env.Owner
	cons := msg.Constraints
	cons.Source = msg.StreamRef

	octx, cancel := context.WithTimeout(ctx, c.opt.OpenTimeout)
	s, err := c.mgr.Acquire(octx, owner, cons)
	cancel()
	if err != nil {
		return nil, err
	}

	loop := sampler.NewFrameLoop(c.opt.Sampler)
	emit := func(ctx context.Context, b annotation.Batch) {
		if err := c.ep.Send(ctx, coord.Page(owner), owner, coord.KindAnnotationBatch, b); err != nil {
			logger.C(ctx).Debug().Err(err).Msg("batch not delivered")
		}
	}
	if err := loop.Start(ctx, sampler.InputFor(s), emit); err != nil {
		_ = c.mgr.Release(owner)
		return nil, err
	}
	wctx, wcancel := context.WithCancel(ctx)
	go c.watch(wctx, owner, s)

	c.mu.Lock()
	c.runs[owner] = &frameRun{streamID: s.ID, loop: loop, cancel: wcancel}
	c.mu.Unlock()

	return coord.CaptureStarted{StreamID: s.ID, Owner: owner, Source: s.Source, Tracks: len(s.Tracks)}, nil
}

func (c *captureCtx) stop(ctx context.Context, env coord.Envelope) (any, error) {
	msg, err := coord.Decode[coord.StopCapture](env)
	if err != nil {
		return nil, err
	}
	if !c.halt(env.Owner, msg.StreamID) {
		return nil, nil
	}
	// an empty batch supersedes whatever the frame loop drew last
	empty := annotation.Batch{Boxes: []annotation.Box{}}
	if err := c.ep.Send(ctx, coord.Page(env.Owner), env.Owner, coord.KindAnnotationBatch, empty); err != nil {
		logger.C(ctx).Debug().Err(err).Msg("clear batch not delivered")
	}
	return nil, nil
}

// halt stops owner's loop and releases its stream; false when nothing was registered
// with streamID set it only acts while that stream is still the owner's current run
func (c *captureCtx) halt(owner, streamID string) bool {
	c.mu.Lock()
	run, ok := c.runs[owner]
	if streamID != "" && (!ok || run.streamID != streamID) {
		c.mu.Unlock()
		c.log.Debug().Str("owner", owner).Str("stream_id", streamID).Msg("stale stop ignored")
		return false
	}
	delete(c.runs, owner)
	c.mu.Unlock()

	if ok {
		run.cancel()
		run.loop.Stop()
	}
	held := c.mgr.State(owner) != stream.Idle
	_ = c.mgr.Release(owner)
	return ok || held
}

// watch turns a source that ended on its own into a StopCapture through the mailbox
func (c *captureCtx) watch(ctx context.Context, owner string, s *stream.Stream) {
	t := time.NewTicker(c.opt.WatchInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			live := s.Live()
			if v, ok := s.Video(); ok {
				live = v.Live()
			}
			if live {
				continue
			}
			c.log.Info().Str("owner", owner).Str("stream_id", s.ID).Msg("source ended")
			if err := c.ep.Send(ctx, coord.Capture, owner, coord.KindStopCapture, coord.StopCapture{StreamID: s.ID}); err != nil {
				c.log.Debug().Err(err).Msg("stop after source end not delivered")
			}
			return
		}
	}
}

func (c *captureCtx) close() {
	c.mu.Lock()
	owners := make([]string, 0, len(c.runs))
	for o := range c.runs {
		owners = append(owners, o)
	}
	c.mu.Unlock()
	for _, o := range owners {
		c.halt(o, "")
	}
	c.mgr.Stop()
}
