package http

import (
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "aidetect/internal/platform/errors"
	pnet "aidetect/internal/platform/net"

	"github.com/go-chi/chi/v5"
)

func decode(t *testing.T, rr *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v; body=%s", err, rr.Body.String())
	}
	return env
}

func TestHandle_OKEnvelope(t *testing.T) {
	h := Handle(func(*stdhttp.Request) Response { return OK(map[string]int{"n": 1}) })
	r := httptest.NewRequest(stdhttp.MethodGet, "/", nil)
	r = r.WithContext(pnet.WithRequest(r.Context(), "rid-1"))
	rr := httptest.NewRecorder()
	h(rr, r)

	if rr.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	env := decode(t, rr)
	if env.RequestID != "rid-1" || env.Status != "OK" || env.Data == nil {
		t.Fatalf("envelope = %+v", env)
	}
}

func TestHandle_ErrorMapsStatus(t *testing.T) {
	h := Handle(func(*stdhttp.Request) Response { return Error(perr.Busyf("owner busy")) })
	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(stdhttp.MethodPost, "/", nil))

	if rr.Code != stdhttp.StatusConflict {
		t.Fatalf("status = %d", rr.Code)
	}
	env := decode(t, rr)
	if env.Code != perr.ErrorCodeBusy || env.Error != "owner busy" {
		t.Fatalf("envelope = %+v", env)
	}
}

func TestHandle_NoContentAndBytes(t *testing.T) {
	rr := httptest.NewRecorder()
	Handle(func(*stdhttp.Request) Response { return NoContent() })(rr, httptest.NewRequest("DELETE", "/", nil))
	if rr.Code != stdhttp.StatusNoContent || rr.Body.Len() != 0 {
		t.Fatalf("no content: %d %q", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	Handle(func(*stdhttp.Request) Response { return Bytes("image/png", []byte{0x89, 'P'}) })(rr, httptest.NewRequest("GET", "/", nil))
	if rr.Header().Get("Content-Type") != "image/png" || rr.Body.Len() != 2 {
		t.Fatalf("bytes: %q %v", rr.Header().Get("Content-Type"), rr.Body.Bytes())
	}
}

type echoIn struct {
	Name string `json:"name" validate:"required"`
}

func TestJSONHandler_BindsAndWraps(t *testing.T) {
	m := chi.NewRouter()
	r := AdaptChi(m)
	r.Route("/v1", func(sub Router) {
		sub.Post("/echo/{id}", JSONHandler(func(req *stdhttp.Request, in echoIn) (any, error) {
			return map[string]string{"name": in.Name, "id": URLParam(req, "id")}, nil
		}))
		sub.Get("/accepted", NoBodyHandler(func(*stdhttp.Request) (any, error) {
			return Accepted("queued"), nil
		}))
	})

	rr := httptest.NewRecorder()
	m.ServeHTTP(rr, httptest.NewRequest("POST", "/v1/echo/7", strings.NewReader(`{"name":"x"}`)))
	if rr.Code != 200 || !strings.Contains(rr.Body.String(), `"id":"7"`) {
		t.Fatalf("echo: %d %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	m.ServeHTTP(rr, httptest.NewRequest("POST", "/v1/echo/7", strings.NewReader(`{}`)))
	if rr.Code != stdhttp.StatusBadRequest {
		t.Fatalf("validation status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	m.ServeHTTP(rr, httptest.NewRequest("GET", "/v1/accepted", nil))
	if rr.Code != stdhttp.StatusAccepted {
		t.Fatalf("accepted status = %d", rr.Code)
	}
}

func TestMountProfiler_Disabled(t *testing.T) {
	m := chi.NewRouter()
	MountProfiler(AdaptChi(m), "/debug", false)
	rr := httptest.NewRecorder()
	m.ServeHTTP(rr, httptest.NewRequest("GET", "/debug/pprof/", nil))
	if rr.Code != stdhttp.StatusNotFound {
		t.Fatalf("profiler should be unmounted, got %d", rr.Code)
	}
}
