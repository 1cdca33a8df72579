package overlay

import (
	"time"

	"aidetect/internal/platform/config"
)

// Options tunes expiry and chip geometry
type Options struct {
	TTL        time.Duration
	Sweep      time.Duration
	LineWidth  float64
	ChipHeight float64
	ChipPad    float64
	Clock      func() time.Time
}

// FromConfig reads CORE_OVERLAY_*
func FromConfig(root config.Conf) Options {
	c := root.Prefix("CORE_OVERLAY_")
	return Options{
		TTL:        c.MayDuration("TTL", 3*time.Second),
		Sweep:      c.MayDuration("SWEEP", 500*time.Millisecond),
		LineWidth:  c.MayFloat64("LINE_WIDTH", 3),
		ChipHeight: c.MayFloat64("CHIP_HEIGHT", 18),
		ChipPad:    c.MayFloat64("CHIP_PAD", 10),
	}
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = 3 * time.Second
	}
	if o.Sweep <= 0 {
		o.Sweep = 500 * time.Millisecond
	}
	if o.LineWidth <= 0 {
		o.LineWidth = 3
	}
	if o.ChipHeight <= 0 {
		o.ChipHeight = 18
	}
	if o.ChipPad <= 0 {
		o.ChipPad = 10
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}
