// Package module wires the page overlay endpoints into the API
package module

import (
	"net/http"

	modkit "aidetect/internal/modkit"
	"aidetect/internal/modkit/httpkit"
	"aidetect/internal/modkit/module"
	str "aidetect/internal/platform/strings"

	pageshttp "aidetect/internal/services/api/pages/http"
)

// Ports carries the pipeline and the optional feedback reader
type Ports struct {
	Pipeline pageshttp.Controller
	Feedback pageshttp.FeedbackReader
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

// New constructs the pages module
func New(deps modkit.Deps, opts ...modkit.Option) module.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("pages"),
		modkit.WithPrefix("/pages"),
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
		pageshttp.Register(r, pageshttp.Deps{Pipeline: m.ports.Pipeline, Feedback: m.ports.Feedback})
		external(r)
	}
	return m
}

// MountRoutes mounts the module under its prefix
func (m *Module) MountRoutes(r httpkit.Router) {
	if m.ports.Pipeline == nil {
		m.deps.Logger("pages").Warn().Msg("no pipeline wired; page routes skipped")
		return
	}
	httpkit.MountUnder(r, m.prefix, m.mws, m.register)
}

// Name returns the registry name
func (m *Module) Name() string { return str.MustString(m.name, "pages") }

