// Package modkit provides module wiring and core deps
package modkit

import (
	"aidetect/internal/platform/config"
	"aidetect/internal/platform/logger"
	"aidetect/internal/platform/store"
)

// Deps holds the core dependencies handed to every module
// zero values are allowed; modules nil check optional ones
type Deps struct {
	Log   *logger.Logger
	Cfg   config.Conf
	Store *store.Store
}

// Logger returns Log or a named fallback
func (d Deps) Logger(component string) *logger.Logger {
	if d.Log != nil {
		ll := d.Log.With().Str("component", component).Logger()
		return &ll
	}
	return logger.Named(component)
}
