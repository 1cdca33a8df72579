// Package module wires the capture control endpoints into the API
package module

import (
	"net/http"

	modkit "aidetect/internal/modkit"
	"aidetect/internal/modkit/httpkit"
	"aidetect/internal/modkit/module"
	str "aidetect/internal/platform/strings"

	capturehttp "aidetect/internal/services/api/capture/http"
)

// Ports carries the pipeline this module drives
type Ports struct {
	Pipeline capturehttp.Controller
}

// Module implements the modkit module contract
type Module struct {
	deps     modkit.Deps
	name     string
	prefix   string
	mws      []func(http.Handler) http.Handler
	ports    Ports
	register func(httpkit.Router)
}

// New constructs the capture module; Ports must be supplied with modkit.WithPorts
func New(deps modkit.Deps, opts ...modkit.Option) module.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("capture"),
		modkit.WithPrefix("/capture"),
	}, opts...)...)

	p, _ := b.Ports.(Ports)
	m := &Module{
		deps:   deps,
		name:   b.Name,
		prefix: b.Prefix,
		mws:    b.Mw,
		ports:  p,
	}

	external := b.Register
	m.register = func(r httpkit.Router) {
		capturehttp.Register(r, capturehttp.Deps{Pipeline: m.ports.Pipeline})
		external(r)
	}
	return m
}

// MountRoutes mounts the module under its prefix
func (m *Module) MountRoutes(r httpkit.Router) {
	if m.ports.Pipeline == nil {
		m.deps.Logger("capture").Warn().Msg("no pipeline wired; capture routes skipped")
		return
	}
	httpkit.MountUnder(r, m.prefix, m.mws, m.register)
}

// Name returns the registry name
func (m *Module) Name() string { return str.MustString(m.name, "capture") }

