package coord

import (
	"context"
	"sync"
	"time"

	perr "aidetect/internal/platform/errors"
	"aidetect/internal/platform/logger"
)

// Bus hands out endpoints over one transport
type Bus struct {
	tr      Transport
	timeout time.Duration
	log     *logger.Logger

	mu  sync.Mutex
	eps map[string]*Endpoint
}

// New returns a bus over tr
func New(tr Transport, opt Options) *Bus {
	if opt.RequestTimeout <= 0 {
		opt.RequestTimeout = 5 * time.Second
	}
	return &Bus{tr: tr, timeout: opt.RequestTimeout, log: logger.Named("coord"), eps: map[string]*Endpoint{}}
}

// Endpoint opens context id and starts its mailbox; ids are unique per bus
func (b *Bus) Endpoint(ctx context.Context, id string) (*Endpoint, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.eps[id]; ok {
		return nil, perr.Conflictf("context %s already open", id)
	}

	in, unsub, err := b.tr.Subscribe(ctx, id)
	if err != nil {
		return nil, err
	}
	ectx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	ll := b.log.With().Str("exec_context", id).Logger()
	e := &Endpoint{
		id:       id,
		tr:       b.tr,
		timeout:  b.timeout,
		log:      &ll,
		handlers: map[Kind]Handler{},
		pending:  map[string]chan Envelope{},
		box:      newMailbox(),
		cancel:   cancel,
		unsub:    unsub,
		done:     make(chan struct{}),
	}
	go e.pump(ectx, in)
	go e.serve(ectx)
	b.eps[id] = e

	b.log.Debug().Str("exec_context", id).Msg("context opened")
	return e, nil
}

// CloseEndpoint closes and forgets context id; unknown ids are a no-op
func (b *Bus) CloseEndpoint(id string) {
	b.mu.Lock()
	e, ok := b.eps[id]
	delete(b.eps, id)
	b.mu.Unlock()
	if ok {
		e.Close()
		b.log.Debug().Str("exec_context", id).Msg("context closed")
	}
}

// Close closes every endpoint and then the transport
func (b *Bus) Close() error {
	b.mu.Lock()
	eps := b.eps
	b.eps = map[string]*Endpoint{}
	b.mu.Unlock()
	for _, e := range eps {
		e.Close()
	}
	return b.tr.Close()
}

// Ping checks the transport when it can be checked; the memory transport is always reachable
func (b *Bus) Ping(ctx context.Context) error {
	if p, ok := b.tr.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}
