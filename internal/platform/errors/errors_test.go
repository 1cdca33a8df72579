package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestHTTPStatusCode_DomainCodes(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrorCodeSourceUnavailable: http.StatusFailedDependency,
		ErrorCodeBusy:              http.StatusConflict,
		ErrorCodeTimeout:           http.StatusGatewayTimeout,
		ErrorCodeMalformedSample:   http.StatusUnprocessableEntity,
		ErrorCodeRenderTargetLost:  http.StatusGone,
		ErrorCodeNotFound:          http.StatusNotFound,
		ErrorCodeJSON:              http.StatusBadRequest,
		ErrorCodeUnknown:           http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := HTTPStatusCode(code); got != want {
			t.Fatalf("HTTPStatusCode(%s) = %d, want %d", code, got, want)
		}
	}
}

func TestErrorCode_String(t *testing.T) {
	if ErrorCodeBusy.String() != "busy" {
		t.Fatalf("String = %q", ErrorCodeBusy.String())
	}
	if got := ErrorCode(999).String(); got != "code(999)" {
		t.Fatalf("unknown String = %q", got)
	}
}

func TestWrap_UnwrapAndCode(t *testing.T) {
	cause := stderrs.New("device gone")
	err := Wrap(cause, ErrorCodeSourceUnavailable, "open stream")

	if !stderrs.Is(err, cause) {
		t.Fatal("wrapped cause lost")
	}
	if !IsCode(err, ErrorCodeSourceUnavailable) {
		t.Fatalf("code = %s", CodeOf(err))
	}
	if err.Error() != "open stream: device gone" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if Root(fmt.Errorf("outer: %w", err)) != cause {
		t.Fatal("Root should reach the cause")
	}
}

func TestWire_RoundTrip(t *testing.T) {
	orig := WithField(Busyf("owner %s already capturing", "tab-1"), "owner")
	w := WireFrom(orig)
	back := FromWire(&w)

	if !IsCode(back, ErrorCodeBusy) {
		t.Fatalf("code lost: %s", CodeOf(back))
	}
	e, _ := As(back)
	if e.Field() != "owner" || e.Message() != "owner tab-1 already capturing" {
		t.Fatalf("wire fields lost: %+v", e.ToWire())
	}
	if FromWire(nil) != nil {
		t.Fatal("nil wire must be nil error")
	}
}

func TestWireFrom_Foreign(t *testing.T) {
	w := WireFrom(stderrs.New("plain"))
	if w.Code != ErrorCodeUnknown || w.Message != "plain" {
		t.Fatalf("unexpected wire %+v", w)
	}
	if (WireFrom(nil) != Wire{}) {
		t.Fatal("nil should map to zero wire")
	}
}

func TestWithOp_CopyOnWrite(t *testing.T) {
	base := Timeoutf("no reply")
	tagged := WithOp(base, "coord.request")
	if e, _ := As(base); e.Op() != "" {
		t.Fatal("original mutated")
	}
	if e, _ := As(tagged); e.Op() != "coord.request" {
		t.Fatal("op not attached")
	}
}

func TestIsCode_Nil(t *testing.T) {
	if IsCode(nil, ErrorCodeUnknown) {
		t.Fatal("nil error has no code")
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(Timeoutf("late")) {
		t.Fatal("timeouts are retryable")
	}
	if Retryable(Busyf("held")) {
		t.Fatal("busy is not retryable")
	}
	if !Retryable(&pgconn.PgError{Code: pgErrDeadlockDetected}) {
		t.Fatal("deadlock is retryable")
	}
	if !Retryable(stderrs.New("database is locked (5) (SQLITE_BUSY)")) {
		t.Fatal("sqlite busy is retryable")
	}
	if Retryable(context.Canceled) {
		t.Fatal("cancellation is not retryable")
	}
}

func TestFromDB(t *testing.T) {
	if FromDB(nil, "x") != nil {
		t.Fatal("nil passthrough")
	}
	if !IsCode(FromDB(&pgconn.PgError{Code: pgErrCannotConnectNow}, "kv"), ErrorCodeUnavailable) {
		t.Fatal("cannot connect now should be unavailable")
	}
	if !IsCode(FromDB(stderrs.New("boom"), "kv"), ErrorCodeDB) {
		t.Fatal("generic db error")
	}
	if !IsUndefinedTable(stderrs.New("SQL logic error: no such table: kv (1)")) {
		t.Fatal("sqlite missing table")
	}
}
