package httpkit

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"aidetect/internal/platform/config"
	perr "aidetect/internal/platform/errors"
	phttp "aidetect/internal/platform/net/http"
	"aidetect/internal/platform/testkit"

	"github.com/go-chi/chi/v5"
)

func newRouter() (Router, http.Handler) {
	mux := chi.NewRouter()
	return phttp.AdaptChi(mux), mux
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, Envelope) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var env Envelope
	if rec.Code != http.StatusNoContent {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %q: %v", rec.Body.String(), err)
		}
	}
	return rec.Code, env
}

func TestMountAPIV1_RoutesAndParams(t *testing.T) {
	r, h := newRouter()
	MountAPIV1(r, nil, func(api Router) {
		MountUnder(api, "/pages", nil, func(p Router) {
			Get(p, "/{owner}", func(req *http.Request) (any, error) {
				return map[string]string{"owner": Param(req, "owner")}, nil
			})
			Delete(p, "/{owner}", func(*http.Request) (any, error) {
				return NoContent(), nil
			})
		})
	})

	code, env := do(t, h, http.MethodGet, "/api/v1/pages/tab-1", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if m, _ := env.Data.(map[string]any); m["owner"] != "tab-1" {
		t.Fatalf("data = %#v", env.Data)
	}
	if code, _ := do(t, h, http.MethodDelete, "/api/v1/pages/tab-1", ""); code != http.StatusNoContent {
		t.Fatalf("delete status = %d", code)
	}
}

func TestPostJSON_ValidationAndErrors(t *testing.T) {
	type in struct {
		Text string `json:"text" validate:"required"`
	}
	r, h := newRouter()
	PostJSON(r, "/score", func(_ *http.Request, v in) (any, error) {
		if v.Text == "busy" {
			return nil, perr.Busyf("held")
		}
		return Created(map[string]int{"len": len(v.Text)}), nil
	})

	if code, _ := do(t, h, http.MethodPost, "/score", `{"text":"abc"}`); code != http.StatusCreated {
		t.Fatalf("created status = %d", code)
	}
	if code, env := do(t, h, http.MethodPost, "/score", `{}`); code != http.StatusBadRequest || env.Code != perr.ErrorCodeValidation {
		t.Fatalf("validation = %d %v", code, env.Code)
	}
	if code, env := do(t, h, http.MethodPost, "/score", `{"text":"busy"}`); code != http.StatusConflict || env.Code != perr.ErrorCodeBusy {
		t.Fatalf("busy = %d %v", code, env.Code)
	}
}

func TestMountUnder_AppliesMiddleware(t *testing.T) {
	r, h := newRouter()
	tag := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Scope", "inner")
			next.ServeHTTP(w, req)
		})
	}
	MountUnder(r, "", []func(http.Handler) http.Handler{tag}, func(sub Router) {
		Get(sub, "/ping", func(*http.Request) (any, error) { return "pong", nil })
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Header().Get("X-Scope") != "inner" {
		t.Fatal("middleware not applied")
	}
}

func TestMountUnder_NormalizesPrefix(t *testing.T) {
	r, h := newRouter()
	MountUnder(r, " score/ ", nil, func(sub Router) {
		Get(sub, "/text", func(*http.Request) (any, error) { return "ok", nil })
	})
	if code, _ := do(t, h, http.MethodGet, "/score/text", ""); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	testkit.MustPanic(t, func() { MountUnder(r, " // ", nil, func(Router) {}) })
}

func TestCommonStack_ServesAndRecovers(t *testing.T) {
	r, h := newRouter()
	MountAPIV1(r, CommonStack(config.New()), func(api Router) {
		Get(api, "/boom", func(*http.Request) (any, error) { panic("kaboom") })
	})
	code, env := do(t, h, http.MethodGet, "/api/v1/boom", "")
	if code != http.StatusInternalServerError || env.Code != perr.ErrorCodePanic {
		t.Fatalf("recover = %d %v", code, env.Code)
	}
	if env.RequestID == "" {
		t.Fatal("request id missing from envelope")
	}
}
