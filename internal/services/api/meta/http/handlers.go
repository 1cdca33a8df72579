// Package http provides meta endpoints
package http

import (
	stdctx "context"
	"net/http"
	"time"

	"aidetect/internal/core/heuristic"
	"aidetect/internal/core/version"
	"aidetect/internal/modkit/httpkit"
	"aidetect/internal/modkit/module"
	"aidetect/internal/modkit/swaggerkit"
)

// Pinger is satisfied by adapters that expose Ping
type Pinger interface {
	Ping(stdctx.Context) error
}

// Deps are the handler dependencies; nil checks are skipped
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	Store       Pinger
	Bus         Pinger
}

type handlers struct {
	deps Deps
}

// Register mounts the meta routes
func Register(r httpkit.Router, d Deps) {
	h := &handlers{deps: d}

	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/ready", h.ready)
	httpkit.Get(r, "/version", h.version)
	httpkit.Get(r, "/service", h.service)
	httpkit.Get(r, "/estimators", h.estimators)

	swaggerkit.Register(
		swaggerkit.Op{Method: http.MethodGet, Path: "/meta/health", Summary: "Health check", Tag: "Meta"},
		swaggerkit.Op{Method: http.MethodGet, Path: "/meta/ready", Summary: "Readiness check across dependencies", Tag: "Meta"},
		swaggerkit.Op{Method: http.MethodGet, Path: "/meta/version", Summary: "Build and version info", Tag: "Meta"},
		swaggerkit.Op{Method: http.MethodGet, Path: "/meta/service", Summary: "Service info and uptime", Tag: "Meta"},
		swaggerkit.Op{Method: http.MethodGet, Path: "/meta/estimators", Summary: "Estimator gates and thresholds", Tag: "Meta"},
	)
}

//
// Swagger DTOs and route docs
//

// HealthResponse is the health payload
// swagger:model
type HealthResponse struct {
	OK      bool   `json:"ok"       example:"true"`
	Service string `json:"service"  example:"aidetect-api"`
	Started string `json:"started"  example:"2026-10-01T13:00:00Z"`
	Now     string `json:"now"      example:"2026-10-01T13:05:00Z"`
}

// ReadyCheck describes a single dependency check
type ReadyCheck struct {
	Name   string `json:"name"   example:"store"`
	Status string `json:"status" example:"ok"` // ok fail skipped
	Error  string `json:"error,omitempty" example:"dial tcp 127.0.0.1:6379: connect: connection refused"`
}

// ReadyResponse summarizes readiness
type ReadyResponse struct {
	Status string       `json:"status" example:"ok"` // ok fail
	Checks []ReadyCheck `json:"checks"`
	Now    string       `json:"now"    example:"2026-10-01T13:05:00Z"`
}

// ServiceResponse describes service info
type ServiceResponse struct {
	Name    string   `json:"name"    example:"aidetect-api"`
	Started string   `json:"started" example:"2026-10-01T13:00:00Z"`
	Uptime  int64    `json:"uptime"  example:"300"`
	Modules []string `json:"modules"`
}

// EstimatorInfo is one estimator's gate and threshold
type EstimatorInfo struct {
	Name     string  `json:"name"      example:"structural"`
	MinChars int     `json:"min_chars" example:"400"`
	FlagAt   float64 `json:"flag_at"   example:"0.6"`
}

// EstimatorsResponse lists the estimators and the build
type EstimatorsResponse struct {
	Estimators []EstimatorInfo   `json:"estimators"`
	Build      version.BuildInfo `json:"build"`
}

// swagger:route GET /meta/health Meta metaHealth
// @Summary Health check
// @Tags Meta
// @Produce json
// @Success 200 type HealthResponse ok
// @Router /meta/health [get]
func (h *handlers) health(_ *http.Request) (any, error) {
	return HealthResponse{
		OK:      true,
		Service: h.deps.ServiceName,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Now:     time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// swagger:route GET /meta/ready Meta metaReady
// @Summary Readiness check across dependencies
// @Tags Meta
// @Produce json
// @Success 200 type ReadyResponse ok
// @Router /meta/ready [get]
func (h *handlers) ready(r *http.Request) (any, error) {
	ctx, cancel := stdctx.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	check := func(name string, p Pinger) ReadyCheck {
		if p == nil {
			return ReadyCheck{Name: name, Status: "skipped"}
		}
		if err := p.Ping(ctx); err != nil {
			return ReadyCheck{Name: name, Status: "fail", Error: err.Error()}
		}
		return ReadyCheck{Name: name, Status: "ok"}
	}

	checks := []ReadyCheck{check("store", h.deps.Store), check("bus", h.deps.Bus)}
	overall := "ok"
	for _, c := range checks {
		if c.Status == "fail" {
			overall = "fail"
		}
	}

	return ReadyResponse{
		Status: overall,
		Checks: checks,
		Now:    time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// swagger:route GET /meta/version Meta metaVersion
// @Summary Build and version info
// @Tags Meta
// @Produce json
// @Success 200 type version.BuildInfo ok
// @Router /meta/version [get]
func (h *handlers) version(_ *http.Request) (any, error) {
	return version.Info(h.deps.ServiceName), nil
}

// swagger:route GET /meta/service Meta metaService
// @Summary Service info and uptime
// @Tags Meta
// @Produce json
// @Success 200 type ServiceResponse ok
// @Router /meta/service [get]
func (h *handlers) service(_ *http.Request) (any, error) {
	uptime := time.Since(h.deps.StartedAt)
	return ServiceResponse{
		Name:    h.deps.ServiceName,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Uptime:  int64(uptime / time.Second),
		Modules: module.Names(),
	}, nil
}

// swagger:route GET /meta/estimators Meta metaEstimators
// @Summary Estimator gates and thresholds
// @Tags Meta
// @Produce json
// @Success 200 type EstimatorsResponse ok
// @Router /meta/estimators [get]
func (h *handlers) estimators(_ *http.Request) (any, error) {
	return EstimatorsResponse{
		Estimators: []EstimatorInfo{
			{Name: string(heuristic.VariantStructural), MinChars: heuristic.StructuralMinChars, FlagAt: heuristic.StructuralFlagAt},
			{Name: string(heuristic.VariantCoarse), MinChars: heuristic.CoarseMinChars, FlagAt: heuristic.CoarseFlagAt},
			{Name: "image", FlagAt: heuristic.ImageFlagAt},
			{Name: "audio"},
		},
		Build: version.Info(h.deps.ServiceName),
	}, nil
}
