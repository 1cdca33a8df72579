package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"aidetect/internal/platform/config"
	perr "aidetect/internal/platform/errors"
	"aidetect/internal/platform/testkit"

	"github.com/sethvargo/go-retry"
)

func TestOpen_MemoryDefault(t *testing.T) {
	s, err := Open(context.Background(), Config{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.Driver != DriverMemory {
		t.Fatalf("driver = %q", s.Driver)
	}
	ctx := context.Background()
	if err := s.KV.Set(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}
	if v, ok, _ := s.KV.Get(ctx, "k"); !ok || v != "v" {
		t.Fatalf("get = %q %v", v, ok)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestOpen_SQLite(t *testing.T) {
	cfg := Config{Driver: DriverSQLite, SQLite: SQLiteConfig{Path: filepath.Join(t.TempDir(), "s.sqlite")}}
	s, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close(context.Background())
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "etcd"}); err == nil {
		t.Fatal("expected error")
	}
}

type flakyPinger struct{ fails int }

func (f *flakyPinger) Ping(context.Context) error {
	if f.fails > 0 {
		f.fails--
		return errors.New("connection refused")
	}
	return nil
}

func TestGuardPing_RetriesThenSucceeds(t *testing.T) {
	testkit.Serial(t)
	testkit.Swap(t, &pingBackoff, func(n uint64) retry.Backoff {
		return retry.WithMaxRetries(n, retry.NewConstant(time.Millisecond))
	})
	s := &Store{}
	p := &flakyPinger{fails: 2}
	if err := guardPing(context.Background(), s, p, 3, time.Second); err != nil {
		t.Fatalf("guard: %v", err)
	}

	p = &flakyPinger{fails: 5}
	if err := guardPing(context.Background(), s, p, 2, time.Second); err == nil {
		t.Fatal("expected exhausted retries")
	}
}

type countingPinger struct {
	calls int
	err   error
}

func (c *countingPinger) Ping(context.Context) error {
	c.calls++
	return c.err
}

func TestGuardPing_PermanentErrorStopsAtOnce(t *testing.T) {
	testkit.Serial(t)
	testkit.Swap(t, &pingBackoff, func(n uint64) retry.Backoff {
		return retry.WithMaxRetries(n, retry.NewConstant(time.Millisecond))
	})
	p := &countingPinger{err: errors.New("password authentication failed for user \"aidetect\"")}
	err := guardPing(context.Background(), &Store{}, p, 5, time.Second)
	if err == nil || p.calls != 1 {
		t.Fatalf("err = %v after %d calls", err, p.calls)
	}
	if !perr.IsCode(err, perr.ErrorCodeDB) {
		t.Fatalf("code = %s", perr.CodeOf(err))
	}

	p = &countingPinger{err: errors.New("database is locked (5) (SQLITE_BUSY)")}
	if err := guardPing(context.Background(), &Store{}, p, 2, time.Second); err == nil || p.calls != 3 {
		t.Fatalf("busy err = %v after %d calls", err, p.calls)
	}
}

func TestFromConfig(t *testing.T) {
	t.Setenv("CORE_FEEDBACK_STORE", "sqlite")
	t.Setenv("SERVICE_SQLITE_PATH", "/data/fb.sqlite")
	cfg := FromConfig(config.New(), "aidetect-api")
	if cfg.Driver != DriverSQLite || cfg.SQLite.Path != "/data/fb.sqlite" || cfg.AppName != "aidetect-api" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.PG.MaxConns != 4 || cfg.PG.ConnectRetries != 6 {
		t.Fatalf("pg defaults = %+v", cfg.PG)
	}
}
