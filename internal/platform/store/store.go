// Package store opens the persistence backend behind a small key value seam
package store

import (
	"context"
	"errors"

	"aidetect/internal/platform/logger"
)

// KV is the persistence collaborator: string values under string keys
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Pinger is any backend that can report readiness
type Pinger interface{ Ping(context.Context) error }

// Store is the facade over the configured backend; the zero value is unusable, use Open
type Store struct {
	Log    logger.Logger
	KV     KV
	Driver string
}

// Open constructs a Store for cfg.Driver
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{Driver: cfg.Driver}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}
	s.Log = s.Log.With().Str("component", "store").Str("driver", cfg.Driver).Logger()

	var (
		kv  KV
		err error
	)
	switch cfg.Driver {
	case DriverPostgres:
		kv, err = openPG(ctx, cfg, s)
	case DriverSQLite:
		kv, err = openSQLite(ctx, cfg, s)
	case DriverMemory, "":
		s.Driver = DriverMemory
		kv = NewMemoryKV()
	default:
		return nil, errors.New("store: unknown driver " + cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	s.KV = kv
	s.Log.Info().Msg("store ready")
	return s, nil
}

// Ping reports backend readiness; memory is always ready
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.KV == nil {
		return errors.New("store: not open")
	}
	if p, ok := s.KV.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the backend
func (s *Store) Close(_ context.Context) error {
	if s == nil || s.KV == nil {
		return nil
	}
	return s.KV.Close()
}
