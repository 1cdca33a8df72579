package stream

import (
	"context"
	"sort"
	"sync"
	"time"

	perr "aidetect/internal/platform/errors"
	"aidetect/internal/platform/logger"

	"github.com/google/uuid"
)

// State is an owner's position in Idle -> Requesting -> Active -> Idle
type State int

// Owner states
const (
	Idle State = iota
	Requesting
	Active
)

func (s State) String() string {
	switch s {
	case Requesting:
		return "requesting"
	case Active:
		return "active"
	default:
		return "idle"
	}
}

type entry struct {
	state  State
	stream *Stream
	cancel context.CancelFunc
}

// Info is a read only view of a registered stream
type Info struct {
	ID       string      `json:"id"`
	Owner    string      `json:"owner"`
	State    string      `json:"state"`
	Source   SourceRef   `json:"source"`
	Tracks   []TrackInfo `json:"tracks,omitempty"`
	OpenedAt time.Time   `json:"opened_at,omitzero"`
}

// TrackInfo describes one track
type TrackInfo struct {
	ID   string    `json:"id"`
	Kind TrackKind `json:"kind"`
	Live bool      `json:"live"`
}

// Manager is the per process registry of streams keyed by owner
type Manager struct {
	mu     sync.Mutex
	prov   Provisioner
	owners map[string]*entry
	max    int
	log    *logger.Logger
	now    func() time.Time
}

// NewManager builds a manager over prov
func NewManager(prov Provisioner, opt Options) *Manager {
	return &Manager{
		prov:   prov,
		owners: map[string]*entry{},
		max:    opt.MaxActive,
		log:    logger.Named("stream"),
		now:    time.Now,
	}
}

// Provisioner returns the capture collaborator
func (m *Manager) Provisioner() Provisioner { return m.prov }

// Acquire opens and registers a stream for owner
// a second Acquire while Requesting or Active is Busy; it never replaces the live stream
func (m *Manager) Acquire(ctx context.Context, owner string, c Constraints) (*Stream, error) {
	if owner == "" {
		return nil, perr.WithField(perr.InvalidArgf("owner is required"), "owner")
	}

	m.mu.Lock()
	if e, ok := m.owners[owner]; ok {
		m.mu.Unlock()
		return nil, perr.Busyf("owner %s already %s", owner, e.state)
	}
	if m.max > 0 && len(m.owners) >= m.max {
		m.mu.Unlock()
		return nil, perr.Busyf("capture limit of %d streams reached", m.max)
	}
	actx, cancel := context.WithCancel(ctx)
	e := &entry{state: Requesting, cancel: cancel}
	m.owners[owner] = e
	m.mu.Unlock()

	tracks, err := m.prov.OpenStream(actx, c.Source, c)

	m.mu.Lock()
	defer m.mu.Unlock()
	defer cancel()

	if cur, ok := m.owners[owner]; !ok || cur != e {
		stopAll(tracks)
		return nil, perr.SourceUnavailablef("capture for %s released while requesting", owner)
	}
	if err != nil {
		delete(m.owners, owner)
		if !perr.IsCode(err, perr.ErrorCodeSourceUnavailable) {
			err = perr.Wrap(err, perr.ErrorCodeSourceUnavailable, "open stream")
		}
		return nil, err
	}
	if len(tracks) == 0 {
		delete(m.owners, owner)
		return nil, perr.SourceUnavailablef("source %s produced no tracks", c.Source.ID)
	}

	s := &Stream{
		ID:       uuid.NewString(),
		Owner:    owner,
		Source:   c.Source,
		Tracks:   tracks,
		OpenedAt: m.now(),
	}
	e.state = Active
	e.stream = s
	e.cancel = func() {}

	m.log.Info().Str("owner", owner).Str("stream_id", s.ID).Str("source", c.Source.ID).Int("tracks", len(tracks)).Msg("stream acquired")
	return s, nil
}

// Release stops every track of owner's stream and forgets it; releasing an idle owner is a no-op
// releasing while Requesting aborts the pending acquisition
func (m *Manager) Release(owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.owners[owner]
	if !ok {
		return nil
	}
	switch e.state {
	case Requesting:
		e.cancel()
		m.log.Info().Str("owner", owner).Msg("pending acquisition aborted")
	case Active:
		stopAll(e.stream.Tracks)
		m.log.Info().Str("owner", owner).Str("stream_id", e.stream.ID).Msg("stream released")
	}
	delete(m.owners, owner)
	return nil
}

// Stream returns owner's active stream
func (m *Manager) Stream(owner string) (*Stream, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.owners[owner]
	if !ok || e.state != Active {
		return nil, false
	}
	return e.stream, true
}

// State returns owner's current state
func (m *Manager) State(owner string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.owners[owner]; ok {
		return e.state
	}
	return Idle
}

// Active lists registered streams ordered by owner
func (m *Manager) Active() []Info {
	m.mu.Lock()
	out := make([]Info, 0, len(m.owners))
	for owner, e := range m.owners {
		in := Info{Owner: owner, State: e.state.String()}
		if s := e.stream; s != nil {
			in.ID, in.Source, in.OpenedAt = s.ID, s.Source, s.OpenedAt
			for _, t := range s.Tracks {
				in.Tracks = append(in.Tracks, TrackInfo{ID: t.ID(), Kind: t.Kind(), Live: t.Live()})
			}
		}
		out = append(out, in)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Owner < out[j].Owner })
	return out
}

// Stop releases every owner; used on shutdown
func (m *Manager) Stop() {
	m.mu.Lock()
	owners := make([]string, 0, len(m.owners))
	for o := range m.owners {
		owners = append(owners, o)
	}
	m.mu.Unlock()
	for _, o := range owners {
		_ = m.Release(o)
	}
}
