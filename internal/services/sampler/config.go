package sampler

import (
	"time"

	"aidetect/internal/core/heuristic"
	"aidetect/internal/platform/config"
)

// Options tunes both loops
type Options struct {
	ScanInterval   time.Duration
	RefreshHz      float64
	WorkW          int
	WorkH          int
	// TextIncludeAt overrides the text estimator's own include threshold when positive
	TextIncludeAt  float64
	FrameIncludeAt float64
}

// FromConfig reads CORE_SAMPLER_*
func FromConfig(root config.Conf) Options {
	c := root.Prefix("CORE_SAMPLER_")
	return Options{
		ScanInterval:   c.MayDuration("SCAN_INTERVAL", time.Second),
		RefreshHz:      c.MayFloat64("REFRESH_HZ", 60),
		WorkW:          c.MayInt("WORK_W", 640),
		WorkH:          c.MayInt("WORK_H", 360),
		TextIncludeAt:  c.MayFloat64("TEXT_INCLUDE_AT", 0),
		FrameIncludeAt: c.MayFloat64("FRAME_INCLUDE_AT", heuristic.ImageFlagAt),
	}
}

func (o Options) withDefaults() Options {
	if o.ScanInterval <= 0 {
		o.ScanInterval = time.Second
	}
	if o.RefreshHz <= 0 {
		o.RefreshHz = 60
	}
	if o.WorkW <= 0 || o.WorkH <= 0 {
		o.WorkW, o.WorkH = 640, 360
	}
	if o.FrameIncludeAt <= 0 {
		o.FrameIncludeAt = heuristic.ImageFlagAt
	}
	return o
}

func (o Options) refreshPeriod() time.Duration {
	return time.Duration(float64(time.Second) / o.RefreshHz)
}
