// Package http provides the ad hoc scoring endpoints
package http

import (
	"context"
	"io"
	"net/http"

	"aidetect/internal/modkit/httpkit"
	"aidetect/internal/modkit/swaggerkit"
	perr "aidetect/internal/platform/errors"
	"aidetect/internal/services/api/score/service"
)

// Scorer is the scoring service port
type Scorer interface {
	Text(ctx context.Context, variant, text string) (service.TextResult, error)
	Image(ctx context.Context, r io.Reader) (service.ImageResult, error)
	Spectrum(ctx context.Context, bins []float32) (service.SpectrumResult, error)
}

// Deps are the handler dependencies
type Deps struct {
	Scorer Scorer
}

type handlers struct {
	deps Deps
}

// Register mounts the score routes
func Register(r httpkit.Router, d Deps) {
	h := &handlers{deps: d}

	httpkit.PostJSON(r, "/text", h.text)
	httpkit.Post(r, "/image", h.image)
	httpkit.PostJSON(r, "/spectrum", h.spectrum)

	swaggerkit.Register(
		swaggerkit.Op{Method: http.MethodPost, Path: "/score/text", Summary: "Score a block of text", Tag: "Score", Body: true},
		swaggerkit.Op{Method: http.MethodPost, Path: "/score/image", Summary: "Score an uploaded PNG, JPEG, GIF, WebP, BMP or TIFF", Tag: "Score", Body: true},
		swaggerkit.Op{Method: http.MethodPost, Path: "/score/spectrum", Summary: "Score an audio magnitude spectrum", Tag: "Score", Body: true},
	)
}

// TextRequest is text to score
// swagger:model
type TextRequest struct {
	Text    string `json:"text"    validate:"required,max=200000" example:"Moreover, the results indicate..."`
	Variant string `json:"variant" validate:"omitempty,oneof=structural coarse" example:"structural"`
}

// SpectrumRequest is an FFT magnitude spectrum
type SpectrumRequest struct {
	Spectrum []float32 `json:"spectrum" validate:"required,max=65536"`
}

// swagger:route POST /score/text Score scoreText
// @Summary Score a block of text
// @Tags Score
// @Accept json
// @Produce json
// @Param body body TextRequest true "text"
// @Success 200 type service.TextResult ok
// @Router /score/text [post]
func (h *handlers) text(r *http.Request, in TextRequest) (any, error) {
	return h.deps.Scorer.Text(r.Context(), in.Variant, in.Text)
}

// swagger:route POST /score/image Score scoreImage
// @Summary Score an uploaded image
// @Tags Score
// @Accept png,jpeg
// @Produce json
// @Success 200 type service.ImageResult ok
// @Failure 422 malformed sample
// @Router /score/image [post]
func (h *handlers) image(r *http.Request) (any, error) {
	if r.Body == nil || r.ContentLength == 0 {
		return nil, perr.WithField(perr.MalformedSamplef("image body is empty"), "body")
	}
	return h.deps.Scorer.Image(r.Context(), r.Body)
}

// swagger:route POST /score/spectrum Score scoreSpectrum
// @Summary Score an audio magnitude spectrum
// @Tags Score
// @Accept json
// @Produce json
// @Param body body SpectrumRequest true "spectrum"
// @Success 200 type service.SpectrumResult ok
// @Router /score/spectrum [post]
func (h *handlers) spectrum(r *http.Request, in SpectrumRequest) (any, error) {
	return h.deps.Scorer.Spectrum(r.Context(), in.Spectrum)
}
