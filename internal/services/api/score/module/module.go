// Package module wires the scoring endpoints into the API
package module

import (
	"net/http"

	modkit "aidetect/internal/modkit"
	"aidetect/internal/modkit/httpkit"
	"aidetect/internal/modkit/module"
	str "aidetect/internal/platform/strings"

	scorehttp "aidetect/internal/services/api/score/http"
	"aidetect/internal/services/api/score/service"
)

// Ports exposes the scorer to other modules
type Ports struct {
	Scorer scorehttp.Scorer
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

// New constructs the score module; it owns its scorer unless one is injected
func New(deps modkit.Deps, opts ...modkit.Option) module.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("score"),
		modkit.WithPrefix("/score"),
	}, opts...)...)

	p, _ := b.Ports.(Ports)
	if p.Scorer == nil {
		p.Scorer = service.New()
	}
	m := &Module{
		deps:   deps,
		name:   b.Name,
		prefix: b.Prefix,
		mws:    b.Mw,
		ports:  p,
	}

	external := b.Register
	m.register = func(r httpkit.Router) {
		scorehttp.Register(r, scorehttp.Deps{Scorer: m.ports.Scorer})
		external(r)
	}
	return m
}

// MountRoutes mounts the module under its prefix
func (m *Module) MountRoutes(r httpkit.Router) {
	httpkit.MountUnder(r, m.prefix, m.mws, m.register)
}

// Name returns the registry name
func (m *Module) Name() string { return str.MustString(m.name, "score") }

