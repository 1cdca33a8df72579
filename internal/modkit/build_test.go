package modkit

import (
	"net/http"
	"reflect"
	"testing"

	phttp "aidetect/internal/platform/net/http"
)

func TestBuild_Defaults(t *testing.T) {
	b := Build()
	if b.Name != "" || b.Prefix != "" || b.Ports != nil || len(b.Mw) != 0 {
		t.Fatalf("unexpected defaults %+v", b)
	}
	var r phttp.Router
	b.Register(r)
}

func TestBuild_OptionsAndCopy(t *testing.T) {
	ptr := func(f func(http.Handler) http.Handler) uintptr { return reflect.ValueOf(f).Pointer() }
	mwA := func(next http.Handler) http.Handler { return next }
	mwB := func(next http.Handler) http.Handler { return http.NotFoundHandler() }
	mid := []func(http.Handler) http.Handler{mwA, mwB}

	type ports struct{ N int }
	called := 0
	b := Build(
		WithName("capture"),
		WithPrefix("/capture"),
		WithMiddlewares(mid...),
		WithPorts(ports{N: 3}),
		WithRegister(func(phttp.Router) { called++ }),
	)
	if b.Name != "capture" || b.Prefix != "/capture" {
		t.Fatalf("name/prefix = %q %q", b.Name, b.Prefix)
	}
	if p, ok := b.Ports.(ports); !ok || p.N != 3 {
		t.Fatalf("ports = %#v", b.Ports)
	}
	mid[0] = mwB
	if ptr(b.Mw[0]) != ptr(mwA) {
		t.Fatal("Built.Mw aliased the caller's slice")
	}
	b.Register(nil)
	if called != 1 {
		t.Fatalf("register called %d times", called)
	}
}

func TestDeps_LoggerFallback(t *testing.T) {
	var d Deps
	if d.Logger("x") == nil {
		t.Fatal("fallback logger is nil")
	}
}
