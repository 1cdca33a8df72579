package net

import (
	"context"
	"testing"
)

func TestRequestID_RoundTrip(t *testing.T) {
	ctx := WithRequest(context.Background(), "abc-123")
	if got := RequestID(ctx); got != "abc-123" {
		t.Fatalf("RequestID = %q", got)
	}
	if RequestID(context.Background()) != "" {
		t.Fatal("empty context should have no id")
	}
	if WithRequest(context.Background(), "") != context.Background() {
		t.Fatal("empty id should not wrap")
	}
}
