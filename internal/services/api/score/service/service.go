// Package service scores ad hoc text, image and spectrum uploads with the heuristic estimators
package service

import (
	"context"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"aidetect/internal/core/heuristic"
	"aidetect/internal/core/langhint"
	"aidetect/internal/core/normalize"
	perr "aidetect/internal/platform/errors"
	"aidetect/internal/platform/logger"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxImageBytes bounds an uploaded image
const MaxImageBytes = 16 << 20

// TextResult is one scored text
type TextResult struct {
	Variant  heuristic.TextVariant `json:"variant"`
	Admitted bool                  `json:"admitted"`
	Score    float64               `json:"score"`
	Label    heuristic.Label       `json:"label"`
	Features *heuristic.Features   `json:"features,omitempty"`
	Hint     langhint.Hint         `json:"hint"`
}

// ImageResult is one scored image
type ImageResult struct {
	Format   string          `json:"format"`
	Width    int             `json:"width"`
	Height   int             `json:"height"`
	Variance float64         `json:"variance"`
	Score    float64         `json:"score"`
	Label    heuristic.Label `json:"label"`
}

// SpectrumResult is one scored audio spectrum
type SpectrumResult struct {
	Bins  int             `json:"bins"`
	Score float64         `json:"score"`
	Label heuristic.Label `json:"label"`
}

// Service is stateless; the zero value is usable
type Service struct{}

// New returns a scoring service
func New() *Service { return &Service{} }

// ParseVariant maps a variant name; empty means structural
func ParseVariant(s string) (heuristic.TextVariant, error) {
	switch v := heuristic.TextVariant(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return heuristic.VariantStructural, nil
	case heuristic.VariantStructural, heuristic.VariantCoarse:
		return v, nil
	}
	return "", perr.WithField(perr.InvalidArgf("unknown text variant %q", s), "variant")
}

// Text scores text with the named variant; text the gate rejects comes back unadmitted with a zero score
func (s *Service) Text(ctx context.Context, variant, text string) (TextResult, error) {
	v, err := ParseVariant(variant)
	if err != nil {
		return TextResult{}, err
	}
	h := heuristic.New()
	h.Text = heuristic.TextEstimator(v)

	out := TextResult{Variant: v, Label: heuristic.Default.Label, Hint: langhint.Detect(text)}
	sample := heuristic.TextSample{Content: text}
	if h.Admit(sample) {
		sc := h.Score(sample)
		out.Admitted, out.Score, out.Label = true, sc.Value, sc.Label
	}
	if v == heuristic.VariantStructural {
		f := heuristic.Extract(normalize.Text(normalize.Truncate(text, heuristic.MaxTextRunes)))
		out.Features = &f
	}
	logger.C(ctx).Debug().
		Str("variant", string(v)).
		Bool("admitted", out.Admitted).
		Float64("score", out.Score).
		Str("script", out.Hint.Script).
		Msg("text scored")
	return out, nil
}

// Image decodes r and scores it; undecodable, empty or oversized images are MalformedSample
func (s *Service) Image(ctx context.Context, r io.Reader) (ImageResult, error) {
	img, format, err := heuristic.Decode(io.LimitReader(r, MaxImageBytes))
	if err != nil {
		return ImageResult{}, perr.WithOp(err, "score.image")
	}
	sample := heuristic.FromImage(img)
	v, err := heuristic.Variance(sample)
	if err != nil {
		return ImageResult{}, perr.WithOp(err, "score.image")
	}
	sc := heuristic.New().Score(sample)
	logger.C(ctx).Debug().
		Str("format", format).
		Int("width", sample.Width).
		Int("height", sample.Height).
		Float64("score", sc.Value).
		Msg("image scored")
	return ImageResult{
		Format:   format,
		Width:    sample.Width,
		Height:   sample.Height,
		Variance: v,
		Score:    sc.Value,
		Label:    sc.Label,
	}, nil
}

// Spectrum scores an audio magnitude spectrum
func (s *Service) Spectrum(_ context.Context, bins []float32) (SpectrumResult, error) {
	if len(bins) == 0 {
		return SpectrumResult{}, perr.WithField(perr.MalformedSamplef("spectrum has no bins"), "spectrum")
	}
	sc := heuristic.New().Score(heuristic.AudioSample{Spectrum: bins})
	return SpectrumResult{Bins: len(bins), Score: sc.Value, Label: sc.Label}, nil
}
