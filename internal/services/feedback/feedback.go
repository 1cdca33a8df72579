// Package feedback persists the last feedback marker a page received
package feedback

import (
	"context"
	"strings"

	perr "aidetect/internal/platform/errors"
	"aidetect/internal/platform/logger"
)

// Key is the single persisted key
const Key = "aid-last-feedback"

// Accepted marker values
const (
	Like    = "like"
	Dislike = "dislike"
)

// KV is the persistence seam; store.KV satisfies it
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Service writes FeedbackMark values
type Service struct {
	kv  KV
	log *logger.Logger
}

// New wraps kv
func New(kv KV) *Service {
	return &Service{kv: kv, log: logger.Named("feedback")}
}

// Mark stores value under Key, replacing any previous marker
func (s *Service) Mark(ctx context.Context, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return perr.WithField(perr.InvalidArgf("feedback value is empty"), "value")
	}
	if err := s.kv.Set(ctx, Key, value); err != nil {
		return perr.FromDB(err, "store feedback")
	}
	logger.C(ctx).Debug().Str("value", value).Msg("feedback marked")
	return nil
}

// Last returns the stored marker, if any
func (s *Service) Last(ctx context.Context) (string, bool, error) {
	v, ok, err := s.kv.Get(ctx, Key)
	if err != nil {
		return "", false, perr.FromDB(err, "read feedback")
	}
	return v, ok, nil
}
