package coord

import (
	"context"
	"sync"
	"time"

	perr "aidetect/internal/platform/errors"
	"aidetect/internal/platform/logger"

	"github.com/google/uuid"
)

// Handler serves one message kind; a non nil result becomes the reply payload for requests
type Handler func(ctx context.Context, env Envelope) (any, error)

// Endpoint is one execution context on the bus
// handlers run one at a time from a FIFO mailbox; replies bypass the mailbox so a handler may await a round trip
type Endpoint struct {
	id      string
	tr      Transport
	timeout time.Duration
	log     *logger.Logger

	hmu      sync.RWMutex
	handlers map[Kind]Handler

	pmu     sync.Mutex
	pending map[string]chan Envelope

	box    *mailbox
	cancel context.CancelFunc
	unsub  func()
	done   chan struct{}
	once   sync.Once
}

// ID returns the context id
func (e *Endpoint) ID() string { return e.id }

// Subscribe installs h for kind, replacing any earlier handler
func (e *Endpoint) Subscribe(kind Kind, h Handler) {
	e.hmu.Lock()
	e.handlers[kind] = h
	e.hmu.Unlock()
}

// Send is fire and forget
func (e *Endpoint) Send(ctx context.Context, to, owner string, kind Kind, msg any) error {
	payload, err := encode(msg)
	if err != nil {
		return err
	}
	return e.tr.Publish(ctx, to, Envelope{Kind: kind, From: e.id, To: to, Owner: owner, Payload: payload})
}

// Request performs one round trip; no reply within the window is Timeout
// a handler error comes back as the returned error with its code intact
func (e *Endpoint) Request(ctx context.Context, to, owner string, kind Kind, msg any) (Envelope, error) {
	payload, err := encode(msg)
	if err != nil {
		return Envelope{}, err
	}
	corr := uuid.NewString()
	ch := make(chan Envelope, 1)

	e.pmu.Lock()
	e.pending[corr] = ch
	e.pmu.Unlock()
	defer func() {
		e.pmu.Lock()
		delete(e.pending, corr)
		e.pmu.Unlock()
	}()

	rctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	env := Envelope{Kind: kind, From: e.id, To: to, Owner: owner, CorrID: corr, Payload: payload}
	if err := e.tr.Publish(rctx, to, env); err != nil {
		return Envelope{}, err
	}

	select {
	case rep := <-ch:
		if err := rep.Err(); err != nil {
			return rep, perr.WithOp(err, "coord.request")
		}
		return rep, nil
	case <-rctx.Done():
		if ctx.Err() != nil {
			return Envelope{}, perr.Wrapf(ctx.Err(), perr.ErrorCodeTimeout, "%s to %s cancelled", kind, to)
		}
		return Envelope{}, perr.WithOp(perr.Timeoutf("no reply to %s from %s within %s", kind, to, e.timeout), "coord.request")
	}
}

// Close stops the endpoint and waits for the mailbox to drain its current handler
func (e *Endpoint) Close() {
	e.once.Do(func() {
		e.cancel()
		e.unsub()
		e.box.close()
	})
	<-e.done
}

func (e *Endpoint) pump(ctx context.Context, in <-chan Envelope) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-in:
			if !ok {
				e.box.close()
				return
			}
			if env.Reply {
				e.deliverReply(env)
				continue
			}
			e.box.push(env)
		}
	}
}

func (e *Endpoint) deliverReply(env Envelope) {
	e.pmu.Lock()
	ch, ok := e.pending[env.CorrID]
	e.pmu.Unlock()
	if !ok {
		e.log.Debug().Str("corr_id", env.CorrID).Str("kind", string(env.Kind)).Msg("late reply dropped")
		return
	}
	select {
	case ch <- env:
	default:
	}
}

func (e *Endpoint) serve(ctx context.Context) {
	defer close(e.done)
	for {
		env, ok := e.box.pop()
		if !ok {
			return
		}
		e.dispatch(ctx, env)
	}
}

func (e *Endpoint) dispatch(ctx context.Context, env Envelope) {
	hctx := logger.WithExecContext(logger.WithOwner(ctx, env.Owner), e.id)

	e.hmu.RLock()
	h, ok := e.handlers[env.Kind]
	e.hmu.RUnlock()

	var (
		out any
		err error
	)
	if !ok {
		err = perr.NotFoundf("context %s has no handler for %s", e.id, env.Kind)
		logger.C(hctx).Debug().Str("kind", string(env.Kind)).Str("from", env.From).Msg("unhandled message")
	} else {
		out, err = e.call(hctx, h, env)
	}

	if env.CorrID == "" {
		if err != nil && ok {
			logger.C(hctx).Warn().Err(err).Str("kind", string(env.Kind)).Msg("handler failed")
		}
		return
	}

	rep := Envelope{Kind: env.Kind, From: e.id, To: env.From, Owner: env.Owner, CorrID: env.CorrID, Reply: true}
	if err != nil {
		w := perr.WireFrom(err)
		rep.Error = &w
	} else if rep.Payload, err = encode(out); err != nil {
		w := perr.WireFrom(err)
		rep.Error = &w
	}
	if pubErr := e.tr.Publish(ctx, env.From, rep); pubErr != nil {
		logger.C(hctx).Debug().Err(pubErr).Msg("reply publish failed")
	}
}

// call runs h and converts a panic into an error so one message never kills the context
func (e *Endpoint) call(ctx context.Context, h Handler, env Envelope) (out any, err error) {
	defer func() {
		if v := recover(); v != nil {
			logger.C(ctx).Error().Interface("panic", v).Str("kind", string(env.Kind)).Msg("handler panic recovered")
			err = perr.PanicErrf("handler for %s panicked", env.Kind)
		}
	}()
	return h(ctx, env)
}

// mailbox is an unbounded FIFO so the transport pump never blocks on a busy handler
type mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []Envelope
	closed bool
}

func newMailbox() *mailbox {
	m := &mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *mailbox) push(env Envelope) {
	m.mu.Lock()
	if !m.closed {
		m.items = append(m.items, env)
		m.cond.Signal()
	}
	m.mu.Unlock()
}

// pop blocks for the next envelope; false once closed
func (m *mailbox) pop() (Envelope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.items) == 0 && !m.closed {
		m.cond.Wait()
	}
	if m.closed {
		return Envelope{}, false
	}
	env := m.items[0]
	m.items[0] = Envelope{}
	m.items = m.items[1:]
	return env, true
}

func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.items = nil
	m.cond.Broadcast()
	m.mu.Unlock()
}
