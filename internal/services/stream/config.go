package stream

import "aidetect/internal/platform/config"

// Options tunes the manager
type Options struct {
	// MaxActive caps concurrently requesting or active streams across all owners
	MaxActive int
}

// FromConfig reads CORE_STREAM_*
func FromConfig(root config.Conf) Options {
	c := root.Prefix("CORE_STREAM_")
	return Options{MaxActive: c.MayInt("MAX_ACTIVE", 4)}
}
