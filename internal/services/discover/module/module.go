// Package module wires the discover service into HTTP via modkit
package module

import (
	"net/http"

	"pursue/internal/modkit"
	"pursue/internal/modkit/httpkit"
	"pursue/internal/modkit/repokit"
	"pursue/internal/platform/net/middleware"
	"pursue/internal/platform/strings"
	"pursue/internal/services/discover/domain"

	discoverhttp "pursue/internal/services/discover/http"
	"pursue/internal/services/discover/repo"
	"pursue/internal/services/discover/service"
)

// Ports exposes discover capabilities for cross-module wiring. The
// group-writing modules call Service.RefreshGroup post-commit
type Ports struct {
	Service domain.ServicePort
}

// Module implements the discover module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     Ports
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc  *service.Svc
	auth middleware.AuthPort
}

// New constructs the discover module
func New(deps modkit.Deps, opt Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("discover"), modkit.WithPrefix("/discover")}, opts...)...)
	if opt.Auth == nil {
		panic("discover module requires an auth port")
	}

	svc := service.New(repokit.TxRunner(deps.PG), repo.NewPG(), service.Config{
		Embedder: opt.Embedder,
	})

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
		svc:       svc,
		auth:      opt.Auth,
	}
	m.ports = Ports{Service: svc}
	m.register = b.Register
	return m
}

// MountRoutes mounts the discover surface
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		httpkit.Protected(rr, m.auth, func(pr httpkit.Router) {
			discoverhttp.Register(pr, m.svc)
			if m.register != nil {
				m.register(pr)
			}
		})
	})
}

// Name is the module name
func (m *Module) Name() string { return strings.MustString(m.name, "module name") }

// Prefix is the module route prefix
func (m *Module) Prefix() string { return strings.MustPrefix(m.prefix) }

// Middlewares is the module middlewares
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.mws }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
