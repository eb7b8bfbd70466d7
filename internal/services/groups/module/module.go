// Package module wires the groups service into HTTP via modkit
package module

import (
	"net/http"

	"pursue/internal/modkit"
	"pursue/internal/modkit/httpkit"
	"pursue/internal/modkit/repokit"
	phttp "pursue/internal/platform/net/http"
	"pursue/internal/platform/net/middleware"
	"pursue/internal/platform/strings"
	"pursue/internal/services/groups/domain"

	"pursue/internal/services/groups/heat"
	groupshttp "pursue/internal/services/groups/http"
	"pursue/internal/services/groups/repo"
	"pursue/internal/services/groups/service"
)

// Ports exposes group capabilities for cross-module wiring. Guards let
// sibling modules resolve membership before touching group-scoped rows,
// and Heat backs the scheduled recalculation job
type Ports struct {
	Service domain.ServicePort
	Guards  domain.GuardsPort
	Heat    domain.HeatPort
}

// Module implements the groups module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     Ports
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc     *service.Svc
	heat    *heat.Svc
	auth    middleware.AuthPort
	uploads *middleware.RateLimiter
}

// New constructs the groups module
func New(deps modkit.Deps, opt Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("groups"), modkit.WithPrefix("/groups")}, opts...)...)
	if opt.Auth == nil {
		panic("groups module requires an auth port")
	}
	if opt.Entitlements == nil {
		panic("groups module requires the subscriptions entitlements port")
	}

	svc := service.New(repokit.TxRunner(deps.PG), repo.NewPG(), service.Config{
		Entitlements: opt.Entitlements,
		Notifier:     opt.Notifier,
		Embedder:     opt.Embedder,
	})
	heatSvc := heat.New(repokit.TxRunner(deps.PG), repo.NewHeatPG(), heat.Config{
		Guards:       svc,
		Entitlements: opt.Entitlements,
	})

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
		svc:       svc,
		heat:      heatSvc,
		auth:      opt.Auth,
		uploads:   opt.Uploads,
	}
	m.ports = Ports{Service: svc, Guards: svc, Heat: heatSvc}
	m.register = b.Register
	return m
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		httpkit.Protected(rr, m.auth, func(pr httpkit.Router) {
			groupshttp.Register(pr, m.svc, m.heat)

			if m.uploads == nil {
				groupshttp.RegisterIconWrite(pr, m.svc)
			} else {
				pr.Group(func(g httpkit.Router) {
					g.Use(m.uploads.Middleware(middleware.KeyUser, phttp.JSON))
					groupshttp.RegisterIconWrite(g, m.svc)
				})
			}
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
