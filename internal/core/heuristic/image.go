package heuristic

import (
	"bytes"
	"image"
	"io"

	perr "aidetect/internal/platform/errors"

	"golang.org/x/image/draw"
)

const (
	// MaxImageSide caps each image axis before sampling
	MaxImageSide = 512
	// ImageStride is the grid step in pixels
	ImageStride = 16
	// ImageFlagAt labels an image score Flagged
	ImageFlagAt = 0.75
	// MaxSourcePixels bounds width*height of any image accepted for scoring
	MaxSourcePixels = 4096 * 4096
)

// Image is the luminance smoothness estimator
type Image struct {
	Threshold float64
}

// NewImage returns the estimator with its reference threshold
func NewImage() Image { return Image{Threshold: ImageFlagAt} }

// Admit accepts any image sample; malformed ones are scored as Default
func (Image) Admit(s Sample) bool {
	_, ok := asImage(s)
	return ok
}

// Score maps mean diagonal luminance difference to clamp(0.8 - v/35)
func (e Image) Score(s Sample) Score {
	is, ok := asImage(s)
	if !ok {
		return Default
	}
	v, err := Variance(is)
	if err != nil {
		return Default
	}
	return labelFor(clamp01(RawImageScore(v)), e.Threshold)
}

// RawImageScore is the unclamped image transform
func RawImageScore(variance float64) float64 { return 0.8 - variance/35 }

// CheckBounds reports a MalformedSample for zero area or more than MaxSourcePixels
// The comparison divides so huge dimensions cannot overflow
func CheckBounds(w, h int) error {
	if w <= 0 || h <= 0 {
		return perr.MalformedSamplef("image has zero area (%dx%d)", w, h)
	}
	if w > MaxSourcePixels/h {
		return perr.MalformedSamplef("image is %dx%d, over the %d pixel budget", w, h, MaxSourcePixels)
	}
	return nil
}

// Validate reports a MalformedSample for bad bounds or a pixel buffer of the wrong length
func Validate(s ImageSample) error {
	if err := CheckBounds(s.Width, s.Height); err != nil {
		return err
	}
	if len(s.Pix) != s.Width*s.Height*4 {
		return perr.MalformedSamplef("pixel buffer is %d bytes, want %d", len(s.Pix), s.Width*s.Height*4)
	}
	return nil
}

// Variance is the mean absolute BT.601 luminance difference between each stride cell and its diagonal neighbour
func Variance(s ImageSample) (float64, error) {
	if err := Validate(s); err != nil {
		return 0, err
	}
	s = Cap(s, MaxImageSide)

	w, h := s.Width, s.Height
	sum, n := 0.0, 0
	for y := 0; y < h; y += ImageStride {
		for x := 0; x < w; x += ImageStride {
			l1 := luma(s.Pix, (y*w+x)*4)
			l2 := luma(s.Pix, (min(y+ImageStride, h-1)*w+min(x+ImageStride, w-1))*4)
			d := l1 - l2
			if d < 0 {
				d = -d
			}
			sum += d
			n++
		}
	}
	return sum / float64(n), nil
}

func luma(pix []uint8, i int) float64 {
	return 0.299*float64(pix[i]) + 0.587*float64(pix[i+1]) + 0.114*float64(pix[i+2])
}

// Cap downsizes each axis independently to at most side with nearest neighbour sampling
func Cap(s ImageSample, side int) ImageSample {
	if s.Width <= side && s.Height <= side {
		return s
	}
	return Resize(s, min(s.Width, side), min(s.Height, side))
}

// Resize scales s to w x h with nearest neighbour sampling
func Resize(s ImageSample, w, h int) ImageSample {
	if s.Width == w && s.Height == h {
		return s
	}
	src := &image.RGBA{Pix: s.Pix, Stride: s.Width * 4, Rect: image.Rect(0, 0, s.Width, s.Height)}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return ImageSample{Width: w, Height: h, Pix: dst.Pix}
}

// FromImage converts any decoded image into an ImageSample
func FromImage(img image.Image) ImageSample {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != b.Dx()*4 || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return ImageSample{Width: b.Dx(), Height: b.Dy(), Pix: rgba.Pix}
}

// Decode reads the image header first and refuses to decode past MaxSourcePixels
// Formats come from whatever decoders the caller registered with package image
func Decode(r io.Reader) (image.Image, string, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, "", perr.Wrap(err, perr.ErrorCodeMalformedSample, "read image")
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(buf))
	if err != nil {
		return nil, "", perr.Wrap(err, perr.ErrorCodeMalformedSample, "decode image header")
	}
	if err := CheckBounds(cfg.Width, cfg.Height); err != nil {
		return nil, "", err
	}
	img, format, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, "", perr.Wrap(err, perr.ErrorCodeMalformedSample, "decode image")
	}
	return img, format, nil
}
