// Package stream owns capture acquisition, per owner tracking and teardown
package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Kind is a capture source family
type Kind string

// Source kinds a provisioner may offer
const (
	KindScreen Kind = "screen"
	KindWindow Kind = "window"
	KindTab    Kind = "tab"
	KindAudio  Kind = "audio"
)

// SourceRef identifies a chosen capture source
type SourceRef struct {
	ID    string `json:"id"`
	Kind  Kind   `json:"kind"`
	Label string `json:"label,omitempty"`
}

// Constraints shape the opened stream
type Constraints struct {
	Source SourceRef `json:"source"`
	Width  int       `json:"width,omitempty"`
	Height int       `json:"height,omitempty"`
	FPS    float64   `json:"fps,omitempty"`
	Audio  bool      `json:"audio,omitempty"`
}

// TrackKind is the media type of a track
type TrackKind string

// Track kinds
const (
	TrackVideo TrackKind = "video"
	TrackAudio TrackKind = "audio"
)

// Track is one live media track; Stop is idempotent
type Track interface {
	ID() string
	Kind() TrackKind
	Live() bool
	Stop()
}

// Frame is a decoded RGBA video frame
type Frame struct {
	Seq    uint64
	Width  int
	Height int
	Pix    []uint8
	At     time.Time
}

// VideoTrack exposes the most recent decoded frame without blocking
type VideoTrack interface {
	Track
	Latest() (Frame, bool)
}

// AudioTrack exposes the most recent magnitude spectrum without blocking
type AudioTrack interface {
	Track
	Spectrum() ([]float32, bool)
}

// Provisioner is the capture provisioning collaborator
type Provisioner interface {
	// ChooseSource picks a source among kinds; a declined or empty choice is SourceUnavailable
	ChooseSource(ctx context.Context, kinds []Kind) (SourceRef, error)
	// OpenStream opens the tracks for ref; ctx bounds the open call only, tracks live until Stop
	OpenStream(ctx context.Context, ref SourceRef, c Constraints) ([]Track, error)
}

// Stream is a live capture owned by exactly one owner
type Stream struct {
	ID       string
	Owner    string
	Source   SourceRef
	Tracks   []Track
	OpenedAt time.Time
}

// Video returns the first video track
func (s *Stream) Video() (VideoTrack, bool) {
	for _, t := range s.Tracks {
		if v, ok := t.(VideoTrack); ok {
			return v, true
		}
	}
	return nil, false
}

// Audio returns the first audio track
func (s *Stream) Audio() (AudioTrack, bool) {
	for _, t := range s.Tracks {
		if a, ok := t.(AudioTrack); ok {
			return a, true
		}
	}
	return nil, false
}

// Live reports whether any track is still live
func (s *Stream) Live() bool {
	for _, t := range s.Tracks {
		if t.Live() {
			return true
		}
	}
	return false
}

func stopAll(tracks []Track) {
	for _, t := range tracks {
		t.Stop()
	}
}

// BaseTrack carries identity and the stop latch; adapters embed it
type BaseTrack struct {
	id     string
	kind   TrackKind
	once   sync.Once
	done   atomic.Bool
	onStop func()
}

// NewBaseTrack returns a live track; onStop runs once on the first Stop
func NewBaseTrack(id string, kind TrackKind, onStop func()) *BaseTrack {
	return &BaseTrack{id: id, kind: kind, onStop: onStop}
}

// ID returns the track id
func (b *BaseTrack) ID() string { return b.id }

// Kind returns the track media type
func (b *BaseTrack) Kind() TrackKind { return b.kind }

// Live reports whether Stop has not been called
func (b *BaseTrack) Live() bool { return !b.done.Load() }

// Stop ends the track
func (b *BaseTrack) Stop() {
	b.once.Do(func() {
		b.done.Store(true)
		if b.onStop != nil {
			b.onStop()
		}
	})
}
