// Package module wires meta endpoints into the API using a tiny module
package module

import (
	"net/http"
	"time"

	modkit "aidetect/internal/modkit"
	"aidetect/internal/modkit/httpkit"
	"aidetect/internal/modkit/module"
	str "aidetect/internal/platform/strings"

	metahttp "aidetect/internal/services/api/meta/http"
)

// Ports carries the optional bus pinger
type Ports struct {
	Bus metahttp.Pinger
}

// Module implements the modkit module contract
type Module struct {
	deps     modkit.Deps
	name     string
	prefix   string
	mws      []func(http.Handler) http.Handler
	register func(httpkit.Router)

	startedAt time.Time
}

// New constructs a meta module with the provided dependencies and options
func New(deps modkit.Deps, service string, opts ...modkit.Option) module.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/meta"),
	}, opts...)...)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		startedAt: time.Now(),
	}

	p, _ := b.Ports.(Ports)
	d := metahttp.Deps{
		ServiceName: str.FirstNonEmpty(service, "aidetect-api"),
		StartedAt:   m.startedAt,
		Bus:         p.Bus,
	}
	if deps.Store != nil {
		d.Store = deps.Store
	}

	external := b.Register
	m.register = func(r httpkit.Router) {
		metahttp.Register(r, d)
		external(r)
	}
	return m
}

// MountRoutes mounts the module under its prefix
func (m *Module) MountRoutes(r httpkit.Router) {
	httpkit.MountUnder(r, m.prefix, m.mws, m.register)
}

// Name returns the registry name
func (m *Module) Name() string { return str.MustString(m.name, "meta") }

