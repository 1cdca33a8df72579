package coord

import (
	"context"
	"sync"

	perr "aidetect/internal/platform/errors"
)

// Transport is the external publish/subscribe primitive; one channel per context id
// delivery is FIFO per channel, with no ordering across channels
type Transport interface {
	Publish(ctx context.Context, to string, env Envelope) error
	// Subscribe opens the inbox for id; cancel closes the returned channel
	Subscribe(ctx context.Context, id string) (<-chan Envelope, func(), error)
	Close() error
}

// Memory is the in process transport
type Memory struct {
	mu     sync.RWMutex
	subs   map[string]chan Envelope
	buffer int
	closed bool
}

// NewMemory returns a memory transport whose inboxes hold up to buffer envelopes
func NewMemory(buffer int) *Memory {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Memory{subs: map[string]chan Envelope{}, buffer: buffer}
}

// Publish enqueues env for id; an absent subscriber drops it, as pub/sub does
func (m *Memory) Publish(ctx context.Context, to string, env Envelope) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return perr.Unavailablef("memory transport closed")
	}
	ch, ok := m.subs[to]
	if !ok {
		return nil
	}
	select {
	case ch <- env:
		return nil
	case <-ctx.Done():
		return perr.Wrap(ctx.Err(), perr.ErrorCodeTimeout, "publish")
	}
}

// Subscribe registers the single inbox for id
func (m *Memory) Subscribe(_ context.Context, id string) (<-chan Envelope, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, nil, perr.Unavailablef("memory transport closed")
	}
	if _, ok := m.subs[id]; ok {
		return nil, nil, perr.Conflictf("context %s already subscribed", id)
	}
	ch := make(chan Envelope, m.buffer)
	m.subs[id] = ch
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			if cur, ok := m.subs[id]; ok && cur == ch {
				delete(m.subs, id)
				close(ch)
			}
			m.mu.Unlock()
		})
	}
	return ch, cancel, nil
}

// Close closes every inbox
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for id, ch := range m.subs {
		close(ch)
		delete(m.subs, id)
	}
	return nil
}
