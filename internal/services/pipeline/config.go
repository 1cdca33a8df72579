package pipeline

import (
	"time"

	"aidetect/internal/core/geometry"
	"aidetect/internal/core/heuristic"
	"aidetect/internal/platform/config"
	"aidetect/internal/services/overlay"
	"aidetect/internal/services/sampler"
	"aidetect/internal/services/stream"
)

// Options gathers every loop and renderer knob the contexts need
type Options struct {
	Sampler sampler.Options
	Overlay overlay.Options
	Stream  stream.Options

	TextVariant     heuristic.TextVariant
	OpenTimeout     time.Duration
	WatchInterval   time.Duration
	DefaultViewport overlay.Viewport
}

// FromConfig reads CORE_PIPELINE_* plus the sampler, overlay and stream prefixes
func FromConfig(root config.Conf) Options {
	c := root.Prefix("CORE_PIPELINE_")
	return Options{
		Sampler: sampler.FromConfig(root),
		Overlay: overlay.FromConfig(root),
		Stream:  stream.FromConfig(root),
		TextVariant: heuristic.TextVariant(c.MayEnum("TEXT_VARIANT", string(heuristic.VariantStructural),
			string(heuristic.VariantStructural), string(heuristic.VariantCoarse))),
		OpenTimeout:   c.MayDuration("OPEN_TIMEOUT", 5*time.Second),
		WatchInterval: c.MayDuration("WATCH_INTERVAL", 250*time.Millisecond),
		DefaultViewport: overlay.Viewport{
			CSS:        geometry.Size{W: c.MayFloat64("VIEWPORT_W", 1280), H: c.MayFloat64("VIEWPORT_H", 720)},
			PixelRatio: c.MayFloat64("PIXEL_RATIO", 1),
		},
	}
}

func (o Options) withDefaults() Options {
	if o.TextVariant == "" {
		o.TextVariant = heuristic.VariantStructural
	}
	if o.OpenTimeout <= 0 {
		o.OpenTimeout = 5 * time.Second
	}
	if o.WatchInterval <= 0 {
		o.WatchInterval = 250 * time.Millisecond
	}
	if o.DefaultViewport.CSS.Empty() {
		o.DefaultViewport.CSS = geometry.Size{W: 1280, H: 720}
	}
	if o.DefaultViewport.PixelRatio <= 0 {
		o.DefaultViewport.PixelRatio = 1
	}
	return o
}
