// Package redis carries coordination envelopes over Redis pub/sub, one channel per context
package redis

import (
	"context"
	"encoding/json"
	"time"

	"aidetect/internal/platform/config"
	perr "aidetect/internal/platform/errors"
	"aidetect/internal/platform/logger"
	"aidetect/internal/services/coord"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

// Config is the connection surface
type Config struct {
	Addr           string
	Password       string
	DB             int
	ChannelPrefix  string
	ConnectRetries uint64
	InboxBuffer    int
}

// FromConfig reads SERVICE_REDIS_*
func FromConfig(root config.Conf) Config {
	c := root.Prefix("SERVICE_REDIS_")
	return Config{
		Addr:           c.MayString("ADDR", "localhost:6379"),
		Password:       c.MayString("PASSWORD", ""),
		DB:             c.MayInt("DB", 0),
		ChannelPrefix:  c.MayString("CHANNEL_PREFIX", "aidetect:ctx:"),
		ConnectRetries: uint64(c.MayInt("CONNECT_RETRIES", 5)),
		InboxBuffer:    c.MayInt("INBOX_BUFFER", 256),
	}
}

// Transport implements coord.Transport
type Transport struct {
	rdb    *goredis.Client
	prefix string
	buffer int
	log    *logger.Logger
}

var _ coord.Transport = (*Transport)(nil)

// connectBackoff is a seam for tests
var connectBackoff = func(retries uint64) retry.Backoff {
	b := retry.NewExponential(200 * time.Millisecond)
	b = retry.WithCappedDuration(3*time.Second, b)
	return retry.WithMaxRetries(retries, b)
}

// Open dials Redis and pings until it answers or the retry budget runs out
func Open(ctx context.Context, cfg Config) (*Transport, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	t := New(rdb, cfg.ChannelPrefix, cfg.InboxBuffer)

	attempt := 0
	err := retry.Do(ctx, connectBackoff(cfg.ConnectRetries), func(ctx context.Context) error {
		attempt++
		if err := rdb.Ping(ctx).Err(); err != nil {
			t.log.Warn().Err(err).Int("attempt", attempt).Str("addr", cfg.Addr).Msg("redis ping failed")
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = rdb.Close()
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "redis at %s", cfg.Addr)
	}
	t.log.Info().Str("addr", cfg.Addr).Msg("redis transport ready")
	return t, nil
}

// New wraps an existing client
func New(rdb *goredis.Client, prefix string, buffer int) *Transport {
	if prefix == "" {
		prefix = "aidetect:ctx:"
	}
	if buffer <= 0 {
		buffer = 256
	}
	return &Transport{rdb: rdb, prefix: prefix, buffer: buffer, log: logger.Named("coord.redis")}
}

// Channel returns the pub/sub channel for context id
func (t *Transport) Channel(id string) string { return t.prefix + id }

// Publish sends env on the target's channel; nobody listening is not an error
func (t *Transport) Publish(ctx context.Context, to string, env coord.Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "encode envelope")
	}
	if err := t.rdb.Publish(ctx, t.Channel(to), b).Err(); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "publish to %s", to)
	}
	return nil
}

// Subscribe opens the inbox for id; undecodable messages are logged and skipped
func (t *Transport) Subscribe(ctx context.Context, id string) (<-chan coord.Envelope, func(), error) {
	ps := t.rdb.Subscribe(ctx, t.Channel(id))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "subscribe %s", id)
	}

	out := make(chan coord.Envelope, t.buffer)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			var env coord.Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				t.log.Debug().Err(err).Str("channel", msg.Channel).Msg("bad envelope skipped")
				continue
			}
			out <- env
		}
	}()
	return out, func() { _ = ps.Close() }, nil
}

// Close closes the client
func (t *Transport) Close() error { return t.rdb.Close() }
