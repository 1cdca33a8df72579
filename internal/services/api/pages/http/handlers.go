// Package http provides the page overlay endpoints
package http

import (
	"context"
	"io"
	"net/http"
	"strings"

	"aidetect/internal/core/geometry"
	"aidetect/internal/modkit/httpkit"
	"aidetect/internal/modkit/swaggerkit"
	perr "aidetect/internal/platform/errors"
	"aidetect/internal/services/overlay"
	"aidetect/internal/services/sampler"
)

// maxHTMLBytes bounds a pushed document body
const maxHTMLBytes = 4 << 20

// Controller is the slice of the pipeline these handlers drive
type Controller interface {
	PushDocument(ctx context.Context, owner string, snap sampler.Snapshot) error
	PushHTML(ctx context.Context, owner string, r io.Reader) (sampler.Snapshot, error)
	Annotations(owner string) ([]overlay.Live, error)
	SetViewport(ctx context.Context, owner string, vp overlay.Viewport) error
	OverlayPNG(owner string) ([]byte, error)
	Feedback(ctx context.Context, owner, value string) error
}

// FeedbackReader reads the stored verdict
type FeedbackReader interface {
	Last(ctx context.Context) (string, bool, error)
}

// Deps are the handler dependencies; Feedback is optional
type Deps struct {
	Pipeline Controller
	Feedback FeedbackReader
}

type handlers struct {
	deps Deps
}

// Register mounts the page routes
func Register(r httpkit.Router, d Deps) {
	h := &handlers{deps: d}

	httpkit.PutJSON(r, "/{owner}/document", h.document)
	httpkit.Put(r, "/{owner}/html", h.html)
	httpkit.Get(r, "/{owner}/annotations", h.annotations)
	httpkit.Get(r, "/{owner}/overlay.png", h.overlayPNG)
	httpkit.PutJSON(r, "/{owner}/viewport", h.viewport)
	httpkit.PostJSON(r, "/{owner}/feedback", h.feedback)
	httpkit.Get(r, "/feedback", h.lastFeedback)

	swaggerkit.Register(
		swaggerkit.Op{Method: http.MethodPut, Path: "/pages/{owner}/document", Summary: "Replace the structural snapshot scanned for owner", Tag: "Pages", Body: true, Status: http.StatusAccepted},
		swaggerkit.Op{Method: http.MethodPut, Path: "/pages/{owner}/html", Summary: "Parse an HTML document into owner's structural snapshot", Tag: "Pages", Body: true},
		swaggerkit.Op{Method: http.MethodGet, Path: "/pages/{owner}/annotations", Summary: "Live annotations in display space", Tag: "Pages"},
		swaggerkit.Op{Method: http.MethodGet, Path: "/pages/{owner}/overlay.png", Summary: "Last presented overlay pass as PNG", Tag: "Pages"},
		swaggerkit.Op{Method: http.MethodPut, Path: "/pages/{owner}/viewport", Summary: "Resize owner's display surface", Tag: "Pages", Body: true, Status: http.StatusNoContent},
		swaggerkit.Op{Method: http.MethodPost, Path: "/pages/{owner}/feedback", Summary: "Record a like or dislike verdict", Tag: "Pages", Body: true, Status: http.StatusNoContent},
		swaggerkit.Op{Method: http.MethodGet, Path: "/pages/feedback", Summary: "Last recorded verdict", Tag: "Pages"},
	)
}

//
// DTOs
//

// DocumentRequest is a structural snapshot in viewport space
// swagger:model
type DocumentRequest struct {
	Viewport   geometry.Size      `json:"viewport"`
	Candidates []CandidateRequest `json:"candidates" validate:"max=5000,dive"`
}

// CandidateRequest is one text region
type CandidateRequest struct {
	Region geometry.Region `json:"region"`
	Text   string          `json:"text" validate:"max=200000"`
}

// ViewportRequest is a display size in CSS pixels and its device pixel ratio
type ViewportRequest struct {
	Width      float64 `json:"width"       validate:"gt=0,lte=16384" example:"1280"`
	Height     float64 `json:"height"      validate:"gt=0,lte=16384" example:"720"`
	PixelRatio float64 `json:"pixel_ratio" validate:"omitempty,gt=0,lte=8" example:"2"`
}

// FeedbackRequest is a verdict
type FeedbackRequest struct {
	Value string `json:"value" validate:"required,oneof=like dislike" example:"like"`
}

// SnapshotResponse summarizes a parsed document
type SnapshotResponse struct {
	Viewport   geometry.Size       `json:"viewport"`
	Candidates []sampler.Candidate `json:"candidates"`
	Count      int                 `json:"count" example:"3"`
}

// AnnotationsResponse lists live boxes
type AnnotationsResponse struct {
	Owner       string         `json:"owner" example:"tab-1"`
	Annotations []overlay.Live `json:"annotations"`
	Count       int            `json:"count" example:"2"`
}

// FeedbackResponse is the stored verdict
type FeedbackResponse struct {
	Value string `json:"value" example:"like"`
	Set   bool   `json:"set"   example:"true"`
}

// swagger:route PUT /pages/{owner}/document Pages pagesDocument
// @Summary Replace the structural snapshot scanned for owner
// @Tags Pages
// @Accept json
// @Param owner path string true "display context id"
// @Param body body DocumentRequest true "snapshot"
// @Success 202 accepted
// @Router /pages/{owner}/document [put]
func (h *handlers) document(r *http.Request, in DocumentRequest) (any, error) {
	owner, err := ownerParam(r)
	if err != nil {
		return nil, err
	}
	snap := sampler.Snapshot{Viewport: in.Viewport, Candidates: make([]sampler.Candidate, 0, len(in.Candidates))}
	for _, c := range in.Candidates {
		snap.Candidates = append(snap.Candidates, sampler.Candidate{Region: c.Region, Text: c.Text})
	}
	if err := h.deps.Pipeline.PushDocument(r.Context(), owner, snap); err != nil {
		return nil, err
	}
	return httpkit.Accepted(SnapshotResponse{Viewport: snap.Viewport, Candidates: snap.Candidates, Count: len(snap.Candidates)}), nil
}

// swagger:route PUT /pages/{owner}/html Pages pagesHTML
// @Summary Parse an HTML document into owner's structural snapshot
// @Tags Pages
// @Accept html
// @Produce json
// @Param owner path string true "display context id"
// @Success 200 type SnapshotResponse ok
// @Router /pages/{owner}/html [put]
func (h *handlers) html(r *http.Request) (any, error) {
	owner, err := ownerParam(r)
	if err != nil {
		return nil, err
	}
	if r.Body == nil {
		return nil, perr.WithField(perr.InvalidArgf("html body is required"), "body")
	}
	snap, err := h.deps.Pipeline.PushHTML(r.Context(), owner, io.LimitReader(r.Body, maxHTMLBytes))
	if err != nil {
		return nil, err
	}
	return SnapshotResponse{Viewport: snap.Viewport, Candidates: snap.Candidates, Count: len(snap.Candidates)}, nil
}

// swagger:route GET /pages/{owner}/annotations Pages pagesAnnotations
// @Summary Live annotations in display space
// @Tags Pages
// @Produce json
// @Param owner path string true "display context id"
// @Success 200 type AnnotationsResponse ok
// @Failure 404 unknown owner
// @Router /pages/{owner}/annotations [get]
func (h *handlers) annotations(r *http.Request) (any, error) {
	owner, err := ownerParam(r)
	if err != nil {
		return nil, err
	}
	live, err := h.deps.Pipeline.Annotations(owner)
	if err != nil {
		return nil, err
	}
	if live == nil {
		live = []overlay.Live{}
	}
	return AnnotationsResponse{Owner: owner, Annotations: live, Count: len(live)}, nil
}

// swagger:route GET /pages/{owner}/overlay.png Pages pagesOverlayPNG
// @Summary Last presented overlay pass as PNG
// @Tags Pages
// @Produce png
// @Param owner path string true "display context id"
// @Success 200
// @Router /pages/{owner}/overlay.png [get]
func (h *handlers) overlayPNG(r *http.Request) (any, error) {
	owner, err := ownerParam(r)
	if err != nil {
		return nil, err
	}
	b, err := h.deps.Pipeline.OverlayPNG(owner)
	if err != nil {
		return nil, err
	}
	return httpkit.Bytes("image/png", b), nil
}

// swagger:route PUT /pages/{owner}/viewport Pages pagesViewport
// @Summary Resize owner's display surface
// @Tags Pages
// @Accept json
// @Param owner path string true "display context id"
// @Param body body ViewportRequest true "viewport"
// @Success 204
// @Router /pages/{owner}/viewport [put]
func (h *handlers) viewport(r *http.Request, in ViewportRequest) (any, error) {
	owner, err := ownerParam(r)
	if err != nil {
		return nil, err
	}
	dpr := in.PixelRatio
	if dpr == 0 {
		dpr = 1
	}
	vp := overlay.Viewport{CSS: geometry.Size{W: in.Width, H: in.Height}, PixelRatio: dpr}
	if err := h.deps.Pipeline.SetViewport(r.Context(), owner, vp); err != nil {
		return nil, err
	}
	return httpkit.NoContent(), nil
}

// swagger:route POST /pages/{owner}/feedback Pages pagesFeedback
// @Summary Record a like or dislike verdict
// @Tags Pages
// @Accept json
// @Param owner path string true "display context id"
// @Param body body FeedbackRequest true "verdict"
// @Success 204
// @Router /pages/{owner}/feedback [post]
func (h *handlers) feedback(r *http.Request, in FeedbackRequest) (any, error) {
	owner, err := ownerParam(r)
	if err != nil {
		return nil, err
	}
	if err := h.deps.Pipeline.Feedback(r.Context(), owner, in.Value); err != nil {
		return nil, err
	}
	return httpkit.NoContent(), nil
}

// swagger:route GET /pages/feedback Pages pagesLastFeedback
// @Summary Last recorded verdict
// @Tags Pages
// @Produce json
// @Success 200 type FeedbackResponse ok
// @Router /pages/feedback [get]
func (h *handlers) lastFeedback(r *http.Request) (any, error) {
	if h.deps.Feedback == nil {
		return nil, perr.Unavailablef("feedback store is not configured")
	}
	v, ok, err := h.deps.Feedback.Last(r.Context())
	if err != nil {
		return nil, err
	}
	return FeedbackResponse{Value: v, Set: ok}, nil
}

func ownerParam(r *http.Request) (string, error) {
	owner := strings.TrimSpace(httpkit.Param(r, "owner"))
	if owner == "" {
		return "", perr.WithField(perr.InvalidArgf("owner is required"), "owner")
	}
	return owner, nil
}
