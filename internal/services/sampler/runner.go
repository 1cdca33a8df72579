// Package sampler drives sample -> score -> batch loops at a bounded cadence
package sampler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"aidetect/internal/core/annotation"
	"aidetect/internal/core/heuristic"
	perr "aidetect/internal/platform/errors"
	"aidetect/internal/platform/logger"
)

// Emit receives one complete batch per cycle
type Emit func(ctx context.Context, b annotation.Batch)

// runner owns the live flag and the loop goroutine shared by both loops
type runner struct {
	mu     sync.Mutex
	live   atomic.Bool
	cancel context.CancelFunc
	done   chan struct{}
	log    *logger.Logger
}

// start launches tick every period; immediate runs one tick before the first wait
func (r *runner) start(ctx context.Context, period time.Duration, immediate bool, tick func(context.Context)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.live.Load() {
		return perr.Busyf("sampler already running")
	}
	lctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.live.Store(true)

	go func(done chan struct{}) {
		defer close(done)
		defer r.exited(done, cancel)
		t := time.NewTicker(period)
		defer t.Stop()
		if immediate && r.live.Load() {
			tick(lctx)
		}
		for {
			select {
			case <-lctx.Done():
				return
			case <-t.C:
				// the flag is checked on resume so a stop during the wait never reschedules
				if !r.live.Load() {
					return
				}
				tick(lctx)
			}
		}
	}(r.done)
	return nil
}

// exited clears the flag when the loop ended on its own (parent ctx done)
// a loop already detached by stop, or replaced by a newer start, leaves state alone
func (r *runner) exited(done chan struct{}, cancel context.CancelFunc) {
	cancel()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != done {
		return
	}
	r.live.Store(false)
	r.cancel, r.done = nil, nil
}

// stop clears the flag, cancels the loop and waits for the current tick to finish
func (r *runner) stop() {
	r.mu.Lock()
	r.live.Store(false)
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// emit hands b over only while the loop is live
func (r *runner) emit(ctx context.Context, fn Emit, b annotation.Batch) {
	if !r.live.Load() || ctx.Err() != nil {
		return
	}
	fn(ctx, b)
}

// safeScore absorbs an estimator panic as a malformed sample
func safeScore(log *logger.Logger, e heuristic.Estimator, s heuristic.Sample) (sc heuristic.Score) {
	defer func() {
		if v := recover(); v != nil {
			log.Debug().Err(perr.MalformedSamplef("estimator panic: %v", v)).Msg("sample scored as default")
			sc = heuristic.Default
		}
	}()
	return e.Score(s)
}

// safeAdmit treats a panicking gate as a rejection
func safeAdmit(log *logger.Logger, e heuristic.Estimator, s heuristic.Sample) (ok bool) {
	defer func() {
		if v := recover(); v != nil {
			log.Debug().Err(perr.MalformedSamplef("admit panic: %v", v)).Msg("sample skipped")
			ok = false
		}
	}()
	return e.Admit(s)
}
