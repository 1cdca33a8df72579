package coord

import (
	"context"
	"sync"
	"testing"
	"time"

	perr "aidetect/internal/platform/errors"
	"aidetect/internal/platform/testkit"
	"aidetect/internal/services/stream"
)

func newBus(t *testing.T, timeout time.Duration) *Bus {
	t.Helper()
	b := New(NewMemory(0), Options{RequestTimeout: timeout})
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func open(t *testing.T, b *Bus, id string) *Endpoint {
	t.Helper()
	e, err := b.Endpoint(context.Background(), id)
	if err != nil {
		t.Fatalf("open %s: %v", id, err)
	}
	return e
}

func TestRequest_RoundTrip(t *testing.T) {
	b := newBus(t, time.Second)
	bg, capt := open(t, b, Background), open(t, b, Capture)

	capt.Subscribe(KindBeginCapture, func(_ context.Context, env Envelope) (any, error) {
		msg, err := Decode[BeginCapture](env)
		if err != nil {
			return nil, err
		}
		return CaptureStarted{StreamID: "s-1", Owner: env.Owner, Source: msg.StreamRef, Tracks: 1}, nil
	})

	rep, err := bg.Request(context.Background(), Capture, "tab-1", KindBeginCapture,
		BeginCapture{StreamRef: stream.SourceRef{ID: "screen:0", Kind: stream.KindScreen}})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	got, err := Decode[CaptureStarted](rep)
	if err != nil {
		t.Fatal(err)
	}
	if got.Owner != "tab-1" || got.Source.ID != "screen:0" || rep.From != Capture || !rep.Reply {
		t.Fatalf("reply = %+v / %+v", rep, got)
	}
}

func TestRequest_AbsentContextTimesOut(t *testing.T) {
	b := newBus(t, 50*time.Millisecond)
	bg := open(t, b, Background)

	start := time.Now()
	_, err := bg.Request(context.Background(), Capture, "tab-1", KindBeginCapture, BeginCapture{})
	if !perr.IsCode(err, perr.ErrorCodeTimeout) {
		t.Fatalf("err = %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("timeout window not honoured")
	}
}

func TestRequest_HandlerErrorKeepsCode(t *testing.T) {
	b := newBus(t, time.Second)
	bg, capt := open(t, b, Background), open(t, b, Capture)
	capt.Subscribe(KindBeginCapture, func(context.Context, Envelope) (any, error) {
		return nil, perr.Busyf("owner tab-1 already active")
	})

	_, err := bg.Request(context.Background(), Capture, "tab-1", KindBeginCapture, BeginCapture{})
	if !perr.IsCode(err, perr.ErrorCodeBusy) {
		t.Fatalf("err = %v", err)
	}
	if e, _ := perr.As(err); e.Message() != "owner tab-1 already active" {
		t.Fatalf("message = %q", e.Message())
	}
}

func TestRequest_UnknownKindAndPanic(t *testing.T) {
	b := newBus(t, time.Second)
	bg, page := open(t, b, Background), open(t, b, Page("tab-1"))
	page.Subscribe(KindStartOverlay, func(context.Context, Envelope) (any, error) { panic("boom") })

	if _, err := bg.Request(context.Background(), Page("tab-1"), "tab-1", KindFeedbackMark, FeedbackMark{Value: "x"}); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("unknown kind err = %v", err)
	}
	if _, err := bg.Request(context.Background(), Page("tab-1"), "tab-1", KindStartOverlay, StartOverlay{}); !perr.IsCode(err, perr.ErrorCodePanic) {
		t.Fatalf("panic err = %v", err)
	}
	// the context survives the panic
	page.Subscribe(KindStartOverlay, func(context.Context, Envelope) (any, error) { return nil, nil })
	if _, err := bg.Request(context.Background(), Page("tab-1"), "tab-1", KindStartOverlay, StartOverlay{}); err != nil {
		t.Fatalf("after panic: %v", err)
	}
}

func TestSend_FIFOPerChannel(t *testing.T) {
	b := newBus(t, time.Second)
	bg, page := open(t, b, Background), open(t, b, Page("tab-1"))

	var (
		mu  sync.Mutex
		got []string
	)
	done := make(chan struct{})
	page.Subscribe(KindFeedbackMark, func(_ context.Context, env Envelope) (any, error) {
		m, _ := Decode[FeedbackMark](env)
		mu.Lock()
		got = append(got, m.Value)
		if len(got) == 100 {
			close(done)
		}
		mu.Unlock()
		return nil, nil
	})

	for i := 0; i < 100; i++ {
		if err := bg.Send(context.Background(), Page("tab-1"), "tab-1", KindFeedbackMark, FeedbackMark{Value: string(rune('A' + i%26))}); err != nil {
			t.Fatal(err)
		}
	}
	testkit.Recv(t, done, 2*time.Second)

	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		if v != string(rune('A'+i%26)) {
			t.Fatalf("out of order at %d: %q", i, v)
		}
	}
}

func TestHandler_AwaitsRoundTripWithoutDeadlock(t *testing.T) {
	b := newBus(t, time.Second)
	bg, capt, page := open(t, b, Background), open(t, b, Capture), open(t, b, Page("tab-1"))

	capt.Subscribe(KindBeginCapture, func(context.Context, Envelope) (any, error) {
		return CaptureStarted{StreamID: "s-9"}, nil
	})
	// the page handler blocks its own mailbox on a nested request
	page.Subscribe(KindStartOverlay, func(ctx context.Context, env Envelope) (any, error) {
		rep, err := page.Request(ctx, Capture, env.Owner, KindBeginCapture, BeginCapture{})
		if err != nil {
			return nil, err
		}
		return Decode[CaptureStarted](rep)
	})

	rep, err := bg.Request(context.Background(), Page("tab-1"), "tab-1", KindStartOverlay, StartOverlay{})
	if err != nil {
		t.Fatalf("nested request: %v", err)
	}
	if got, _ := Decode[CaptureStarted](rep); got.StreamID != "s-9" {
		t.Fatalf("nested reply = %+v", got)
	}
}

func TestBus_EndpointLifecycle(t *testing.T) {
	b := newBus(t, 50*time.Millisecond)
	open(t, b, Capture)
	if _, err := b.Endpoint(context.Background(), Capture); !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("duplicate open = %v", err)
	}
	b.CloseEndpoint(Capture)
	b.CloseEndpoint(Capture)
	open(t, b, Capture)
}

func TestDecode_BadPayload(t *testing.T) {
	_, err := Decode[FeedbackMark](Envelope{Kind: KindFeedbackMark, Payload: []byte(`{"value":1}`)})
	if !perr.IsCode(err, perr.ErrorCodeJSON) {
		t.Fatalf("err = %v", err)
	}
	if v, err := Decode[StopCapture](Envelope{}); err != nil || v != (StopCapture{}) {
		t.Fatal("empty payload should decode to zero value")
	}
}
