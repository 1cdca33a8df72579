package pg

import (
	"context"
	"errors"
	"time"

	perr "aidetect/internal/platform/errors"

	"github.com/jackc/pgx/v5"
)

const (
	sqlCreate = `CREATE TABLE IF NOT EXISTS aidetect_kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	sqlGet = `SELECT value FROM aidetect_kv WHERE key = $1`
	sqlSet = `INSERT INTO aidetect_kv (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
)

// KV stores feedback values in a single Postgres table
type KV struct{ p *PG }

// NewKV wraps an open pool
func NewKV(p *PG) *KV { return &KV{p: p} }

// Migrate creates the table if needed
func (k *KV) Migrate(ctx context.Context) error {
	start := time.Now()
	_, err := k.p.Pool.Exec(ctx, sqlCreate)
	k.p.emit(ctx, sqlCreate, nil, start, err)
	return perr.FromDB(err, "pg kv migrate")
}

// Ping round trips a trivial statement
func (k *KV) Ping(ctx context.Context) error { return k.p.Pool.Ping(ctx) }

// Get returns the value for key
func (k *KV) Get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	var v string
	err := k.p.Pool.QueryRow(ctx, sqlGet, key).Scan(&v)
	k.p.emit(ctx, sqlGet, []any{key}, start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, perr.FromDB(err, "pg kv get")
	}
	return v, true, nil
}

// Set upserts value under key
func (k *KV) Set(ctx context.Context, key, value string) error {
	start := time.Now()
	_, err := k.p.Pool.Exec(ctx, sqlSet, key, value)
	k.p.emit(ctx, sqlSet, []any{key, value}, start, err)
	return perr.FromDB(err, "pg kv set")
}

// Close closes the pool
func (k *KV) Close() error {
	k.p.Close()
	return nil
}
