// Package coord connects isolated execution contexts with typed messages over a pub/sub transport
package coord

import (
	"encoding/json"

	"aidetect/internal/core/annotation"
	perr "aidetect/internal/platform/errors"
	"aidetect/internal/services/stream"
)

// Kind discriminates message payloads
type Kind string

// Message kinds
const (
	KindBeginCapture    Kind = "BEGIN_CAPTURE"
	KindStopCapture     Kind = "STOP_CAPTURE"
	KindAnnotationBatch Kind = "DRAW_BOXES"
	KindStartOverlay    Kind = "START_OVERLAY"
	KindFeedbackMark    Kind = "FEEDBACK_MARK"
)

// Well known context ids
const (
	Background = "background"
	Capture    = "capture"
)

// Page returns the page context id for owner
func Page(owner string) string { return "page:" + owner }

// BeginCapture asks the capture context to open a chosen source for the envelope owner
type BeginCapture struct {
	StreamRef   stream.SourceRef   `json:"stream_ref"`
	Constraints stream.Constraints `json:"constraints"`
}

// CaptureStarted is the reply to BeginCapture
type CaptureStarted struct {
	StreamID string           `json:"stream_id"`
	Owner    string           `json:"owner"`
	Source   stream.SourceRef `json:"source"`
	Tracks   int              `json:"tracks"`
}

// StopCapture ends the envelope owner's capture
// a non-empty StreamID only stops that stream; a newer capture for the owner is left running
type StopCapture struct {
	StreamID string `json:"stream_id,omitempty"`
}

// AnnotationBatch is the DRAW_BOXES payload
type AnnotationBatch = annotation.Batch

// StartOverlay initializes the page overlay; repeated sends are harmless
type StartOverlay struct{}

// FeedbackMark records the user's last verdict
type FeedbackMark struct {
	Value string `json:"value"`
}

// Envelope is the routing frame around a payload
type Envelope struct {
	Kind    Kind            `json:"kind"`
	From    string          `json:"from"`
	To      string          `json:"to"`
	Owner   string          `json:"owner,omitempty"`
	CorrID  string          `json:"corr_id,omitempty"`
	Reply   bool            `json:"reply,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *perr.Wire      `json:"error,omitempty"`
}

// Err rebuilds the typed error a handler returned, if any
func (e Envelope) Err() error { return perr.FromWire(e.Error) }

// Decode unmarshals an envelope payload into T; an empty payload yields the zero T
func Decode[T any](env Envelope) (T, error) {
	var v T
	if len(env.Payload) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(env.Payload, &v); err != nil {
		return v, perr.Wrapf(err, perr.ErrorCodeJSON, "decode %s payload", env.Kind)
	}
	return v, nil
}

func encode(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeJSON, "encode payload")
	}
	return b, nil
}
