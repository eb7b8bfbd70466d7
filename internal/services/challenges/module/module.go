// Package module wires the challenges service into HTTP via modkit
package module

import (
	"net/http"

	"pursue/internal/modkit"
	"pursue/internal/modkit/httpkit"
	"pursue/internal/modkit/repokit"
	"pursue/internal/platform/net/middleware"
	"pursue/internal/platform/strings"
	"pursue/internal/services/challenges/domain"

	challengeshttp "pursue/internal/services/challenges/http"
	"pursue/internal/services/challenges/repo"
	"pursue/internal/services/challenges/service"
)

// Ports exposes challenge capabilities for cross-module wiring. The
// jobs module drives the lifecycle runs through Service
type Ports struct {
	Service domain.ServicePort
}

// Module implements the challenges module
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

// New constructs the challenges module
func New(deps modkit.Deps, opt Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("challenges"), modkit.WithPrefix("/challenges")}, opts...)...)
	if opt.Auth == nil {
		panic("challenges module requires an auth port")
	}
	if opt.Guards == nil {
		panic("challenges module requires the groups guard port")
	}
	if opt.Entitlements == nil {
		panic("challenges module requires the subscriptions entitlements port")
	}

	svc := service.New(repokit.TxRunner(deps.PG), repo.NewPG(), service.Config{
		Guards:       opt.Guards,
		Entitlements: opt.Entitlements,
		Notifier:     opt.Notifier,
		Embedder:     opt.Embedder,
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

// MountRoutes mounts the challenge surface under /challenges and the
// template catalog under /group-templates
func (m *Module) MountRoutes(r httpkit.Router) {
	m.mount(r, m.prefix, func(pr httpkit.Router) {
		challengeshttp.Register(pr, m.svc)
		if m.register != nil {
			m.register(pr)
		}
	})
	m.mount(r, "/group-templates", func(pr httpkit.Router) {
		challengeshttp.RegisterTemplates(pr, m.svc)
	})
}

// mount wraps one subtree with the module middlewares and auth
func (m *Module) mount(r httpkit.Router, prefix string, register func(httpkit.Router)) {
	r.Route(prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		httpkit.Protected(rr, m.auth, register)
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
