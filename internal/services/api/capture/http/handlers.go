// Package http provides the capture control endpoints
package http

import (
	"context"
	"net/http"
	"strings"

	"aidetect/internal/modkit/httpkit"
	"aidetect/internal/modkit/swaggerkit"
	perr "aidetect/internal/platform/errors"
	"aidetect/internal/services/coord"
	"aidetect/internal/services/pipeline"
	"aidetect/internal/services/stream"
)

// Controller is the slice of the pipeline these handlers drive
type Controller interface {
	StartCapture(ctx context.Context, req pipeline.CaptureRequest) (coord.CaptureStarted, error)
	StopCapture(ctx context.Context, owner string) error
	Depart(ctx context.Context, owner string) error
	Streams() []stream.Info
}

// Deps are the handler dependencies
type Deps struct {
	Pipeline Controller
}

type handlers struct {
	deps Deps
}

// Register mounts the capture routes
func Register(r httpkit.Router, d Deps) {
	h := &handlers{deps: d}

	httpkit.Get(r, "/streams", h.streams)
	httpkit.PostJSON(r, "/owners/{owner}/start", h.start)
	httpkit.Post(r, "/owners/{owner}/stop", h.stop)
	httpkit.Delete(r, "/owners/{owner}", h.depart)

	swaggerkit.Register(
		swaggerkit.Op{Method: http.MethodGet, Path: "/capture/streams", Summary: "List registered capture streams", Tag: "Capture"},
		swaggerkit.Op{Method: http.MethodPost, Path: "/capture/owners/{owner}/start", Summary: "Choose a source and start sampling it for owner", Tag: "Capture", Body: true, Status: http.StatusCreated},
		swaggerkit.Op{Method: http.MethodPost, Path: "/capture/owners/{owner}/stop", Summary: "Stop owner's capture and clear its boxes", Tag: "Capture", Status: http.StatusNoContent},
		swaggerkit.Op{Method: http.MethodDelete, Path: "/capture/owners/{owner}", Summary: "Release everything owner holds", Tag: "Capture", Status: http.StatusNoContent},
	)
}

//
// DTOs
//

// StartRequest selects the source for a capture
// swagger:model
type StartRequest struct {
	Kinds    []stream.Kind `json:"kinds"     validate:"omitempty,dive,capture_kind" example:"screen,window"`
	SourceID string        `json:"source_id" validate:"omitempty,max=200"           example:"synthetic:screen:0"`
	Width    int           `json:"width"     validate:"omitempty,min=1,max=8192"    example:"1280"`
	Height   int           `json:"height"    validate:"omitempty,min=1,max=8192"    example:"720"`
	FPS      float64       `json:"fps"       validate:"omitempty,gt=0,lte=120"      example:"15"`
	Audio    bool          `json:"audio"     example:"false"`
}

// StreamsResponse lists registered streams
type StreamsResponse struct {
	Streams []stream.Info `json:"streams"`
	Count   int           `json:"count" example:"1"`
}

// swagger:route GET /capture/streams Capture captureStreams
// @Summary List registered capture streams
// @Tags Capture
// @Produce json
// @Success 200 type StreamsResponse ok
// @Router /capture/streams [get]
func (h *handlers) streams(_ *http.Request) (any, error) {
	list := h.deps.Pipeline.Streams()
	if list == nil {
		list = []stream.Info{}
	}
	return StreamsResponse{Streams: list, Count: len(list)}, nil
}

// swagger:route POST /capture/owners/{owner}/start Capture captureStart
// @Summary Choose a source and start sampling it for owner
// @Tags Capture
// @Accept json
// @Produce json
// @Param owner path string true "display context id"
// @Param body body StartRequest true "source selection"
// @Success 201 type coord.CaptureStarted created
// @Failure 409 busy
// @Failure 424 source unavailable
// @Router /capture/owners/{owner}/start [post]
func (h *handlers) start(r *http.Request, in StartRequest) (any, error) {
	owner, err := ownerParam(r)
	if err != nil {
		return nil, err
	}
	started, err := h.deps.Pipeline.StartCapture(r.Context(), pipeline.CaptureRequest{
		Owner:    owner,
		Kinds:    in.Kinds,
		SourceID: in.SourceID,
		Constraints: stream.Constraints{
			Width:  in.Width,
			Height: in.Height,
			FPS:    in.FPS,
			Audio:  in.Audio,
		},
	})
	if err != nil {
		return nil, err
	}
	return httpkit.Created(started), nil
}

// swagger:route POST /capture/owners/{owner}/stop Capture captureStop
// @Summary Stop owner's capture and clear its boxes
// @Tags Capture
// @Param owner path string true "display context id"
// @Success 204
// @Router /capture/owners/{owner}/stop [post]
func (h *handlers) stop(r *http.Request) (any, error) {
	owner, err := ownerParam(r)
	if err != nil {
		return nil, err
	}
	if err := h.deps.Pipeline.StopCapture(r.Context(), owner); err != nil {
		return nil, err
	}
	return httpkit.NoContent(), nil
}

// swagger:route DELETE /capture/owners/{owner} Capture captureDepart
// @Summary Release everything owner holds
// @Tags Capture
// @Param owner path string true "display context id"
// @Success 204
// @Router /capture/owners/{owner} [delete]
func (h *handlers) depart(r *http.Request) (any, error) {
	owner, err := ownerParam(r)
	if err != nil {
		return nil, err
	}
	if err := h.deps.Pipeline.Depart(r.Context(), owner); err != nil {
		return nil, err
	}
	return httpkit.NoContent(), nil
}

func ownerParam(r *http.Request) (string, error) {
	owner := strings.TrimSpace(httpkit.Param(r, "owner"))
	if owner == "" {
		return "", perr.WithField(perr.InvalidArgf("owner is required"), "owner")
	}
	return owner, nil
}
