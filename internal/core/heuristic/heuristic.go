package heuristic

// TextVariant names one of the two text estimators
type TextVariant string

const (
	// VariantStructural is the weighted feature estimator used by the document scan
	VariantStructural TextVariant = "structural"
	// VariantCoarse is the rule sum estimator used for short text nodes
	VariantCoarse TextVariant = "coarse"
)

// Heuristic dispatches a Sample to the estimator for its variant
type Heuristic struct {
	Text  Estimator
	Image Estimator
	Audio Estimator
}

// New returns the dispatcher with the structural text estimator
func New() *Heuristic {
	return &Heuristic{
		Text:  NewStructuralText(),
		Image: NewImage(),
		Audio: Audio{},
	}
}

// TextEstimator returns the estimator for a named variant; unknown names fall back to structural
func TextEstimator(v TextVariant) Estimator {
	if v == VariantCoarse {
		return NewCoarseText()
	}
	return NewStructuralText()
}

// IncludeAt is the score a structural scan needs to keep a region scored by e
// coarse text only highlights what it flags; everything else keeps StructuralIncludeAt
func IncludeAt(e Estimator) float64 {
	var c CoarseText
	switch v := e.(type) {
	case CoarseText:
		c = v
	case *CoarseText:
		c = *v
	default:
		return StructuralIncludeAt
	}
	if c.Threshold <= 0 {
		return CoarseFlagAt
	}
	return c.Threshold
}

func (h *Heuristic) pick(s Sample) Estimator {
	switch s.(type) {
	case TextSample, *TextSample:
		return h.Text
	case ImageSample, *ImageSample:
		return h.Image
	case AudioSample, *AudioSample:
		return h.Audio
	}
	return nil
}

// Admit reports whether the estimator for s accepts it
func (h *Heuristic) Admit(s Sample) bool {
	e := h.pick(s)
	return e != nil && e.Admit(s)
}

// Score scores s with its estimator; nil or unknown samples get Default
func (h *Heuristic) Score(s Sample) Score {
	e := h.pick(s)
	if e == nil {
		return Default
	}
	return e.Score(s)
}

// asText and asImage accept both value and pointer forms of a variant
func asText(s Sample) (TextSample, bool) {
	switch v := s.(type) {
	case TextSample:
		return v, true
	case *TextSample:
		if v != nil {
			return *v, true
		}
	}
	return TextSample{}, false
}

func asImage(s Sample) (ImageSample, bool) {
	switch v := s.(type) {
	case ImageSample:
		return v, true
	case *ImageSample:
		if v != nil {
			return *v, true
		}
	}
	return ImageSample{}, false
}
