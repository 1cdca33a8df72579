package store

import (
	"context"
	"fmt"
	"time"

	perr "aidetect/internal/platform/errors"
	"aidetect/internal/platform/store/pg"
	"aidetect/internal/platform/store/sqlite"

	"github.com/sethvargo/go-retry"
)

// pingBackoff is a seam so tests can make the guard instant
var pingBackoff = func(retries uint64) retry.Backoff {
	b := retry.NewExponential(150 * time.Millisecond)
	b = retry.WithCappedDuration(2*time.Second, b)
	return retry.WithMaxRetries(retries, b)
}

// guardPing pings until the backend answers, the error is permanent, or the retry budget is spent
// an attempt that hits its own timeout is retried; anything else must pass perr.Retryable
func guardPing(ctx context.Context, s *Store, p Pinger, retries uint64, timeout time.Duration) error {
	attempt := 0
	return retry.Do(ctx, pingBackoff(retries), func(ctx context.Context) error {
		attempt++
		pctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		err := p.Ping(pctx)
		if err == nil {
			return nil
		}
		err = perr.FromDB(err, "ping")
		timedOut := pctx.Err() != nil && ctx.Err() == nil
		if !timedOut && !perr.Retryable(err) {
			s.Log.Error().Err(err).Int("attempt", attempt).Msg("backend ping failed permanently")
			return err
		}
		s.Log.Warn().Err(err).Int("attempt", attempt).Msg("backend ping failed")
		return retry.RetryableError(err)
	})
}

func openPG(ctx context.Context, cfg Config, s *Store) (KV, error) {
	var tracer pg.QueryTracer
	if cfg.PG.LogSQL {
		tracer = pg.Tracer(s.Log)
	}
	p, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		AppName:  cfg.AppName,
		MaxConns: cfg.PG.MaxConns,
		SlowMs:   cfg.PG.SlowQueryMs,
	}, tracer)
	if err != nil {
		return nil, err
	}
	kv := pg.NewKV(p)
	if err := guardPing(ctx, s, kv, cfg.PG.ConnectRetries, orDefault(cfg.PG.PingTimeout, 3*time.Second)); err != nil {
		p.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	if err := kv.Migrate(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return kv, nil
}

func openSQLite(ctx context.Context, cfg Config, s *Store) (KV, error) {
	kv, err := sqlite.Open(ctx, cfg.SQLite.Path)
	if err != nil {
		return nil, err
	}
	if err := guardPing(ctx, s, kv, 2, time.Second); err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("sqlite ping failed: %w", err)
	}
	return kv, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
