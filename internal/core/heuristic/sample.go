// Package heuristic scores samples with approximate estimators of synthetic content
//
// Scores are thresholded heuristics, not calibrated probabilities
package heuristic

// Sample is one unit of captured input; the variants below are the only implementations
type Sample interface{ sample() }

// TextSample is a block of text from a document region or an upload
type TextSample struct {
	Content string
}

// ImageSample is an RGBA bitmap, row major, four bytes per pixel
type ImageSample struct {
	Width  int
	Height int
	Pix    []uint8
}

// AudioSample is a frequency magnitude spectrum from a fixed size FFT
type AudioSample struct {
	Spectrum []float32
}

func (TextSample) sample()  {}
func (ImageSample) sample() {}
func (AudioSample) sample() {}
