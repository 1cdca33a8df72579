// Package sqlite provides the embedded feedback KV backed by modernc.org/sqlite
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	perr "aidetect/internal/platform/errors"

	_ "modernc.org/sqlite"
)

const (
	sqlCreate = `CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
	)`
	sqlGet = `SELECT value FROM kv WHERE key = ?`
	sqlSet = `INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value,
		updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`
)

// KV is a single table key value store in a sqlite file
type KV struct{ db *sql.DB }

// DSN builds a WAL mode DSN for path; ":memory:" is passed through
func DSN(path string) string {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path
	}
	return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
}

// Open opens (creating if needed) the database at path and ensures the table exists
func Open(ctx context.Context, path string) (*KV, error) {
	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// a single writer avoids SQLITE_BUSY churn between pooled connections
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqlCreate); err != nil {
		_ = db.Close()
		return nil, perr.FromDB(err, "sqlite kv migrate")
	}
	return &KV{db: db}, nil
}

// Ping verifies the connection
func (k *KV) Ping(ctx context.Context) error { return k.db.PingContext(ctx) }

// Get returns the value for key
func (k *KV) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := k.db.QueryRowContext(ctx, sqlGet, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, perr.FromDB(err, "sqlite kv get")
	}
	return v, true, nil
}

// Set upserts value under key
func (k *KV) Set(ctx context.Context, key, value string) error {
	_, err := k.db.ExecContext(ctx, sqlSet, key, value)
	return perr.FromDB(err, "sqlite kv set")
}

// Close closes the database
func (k *KV) Close() error { return k.db.Close() }
