package coord

import (
	"time"

	"aidetect/internal/platform/config"
)

// Drivers for the bus transport
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Options tunes the bus
type Options struct {
	Driver         string
	RequestTimeout time.Duration
	MemoryBuffer   int
}

// FromConfig reads CORE_COORD_*
func FromConfig(root config.Conf) Options {
	c := root.Prefix("CORE_COORD_")
	return Options{
		Driver:         c.MayEnum("DRIVER", DriverMemory, DriverMemory, DriverRedis),
		RequestTimeout: c.MayDuration("REQUEST_TIMEOUT", 5*time.Second),
		MemoryBuffer:   c.MayInt("MEMORY_BUFFER", 1024),
	}
}
