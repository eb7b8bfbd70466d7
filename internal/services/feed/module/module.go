// Package module wires the feed service into HTTP via modkit
package module

import (
	"net/http"

	"pursue/internal/modkit"
	"pursue/internal/modkit/httpkit"
	"pursue/internal/modkit/repokit"
	"pursue/internal/platform/net/middleware"
	"pursue/internal/platform/strings"
	"pursue/internal/services/feed/domain"

	feedhttp "pursue/internal/services/feed/http"
	"pursue/internal/services/feed/repo"
	"pursue/internal/services/feed/service"
)

// Ports exposes feed capabilities for cross-module wiring
type Ports struct {
	Service domain.ServicePort
}

// Module implements the feed module
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

// New constructs the feed module
func New(deps modkit.Deps, opt Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("feed"), modkit.WithPrefix("/activities")}, opts...)...)
	if opt.Auth == nil {
		panic("feed module requires an auth port")
	}
	if opt.Guards == nil {
		panic("feed module requires the groups guard port")
	}
	if opt.Photos == nil {
		panic("feed module requires an object store")
	}

	svc := service.New(repokit.TxRunner(deps.PG), repo.NewPG(), service.Config{
		Guards:   opt.Guards,
		Photos:   opt.Photos,
		Notifier: opt.Notifier,
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

// MountRoutes mounts the feed surface: the group-scoped read under
// /groups/{groupID}/activity and the reaction writes under /activities.
// The groups module owns the rest of the /groups subtree
func (m *Module) MountRoutes(r httpkit.Router) {
	m.mount(r, "/groups/{groupID}/activity", func(pr httpkit.Router) {
		feedhttp.RegisterGroupFeed(pr, m.svc)
	})
	m.mount(r, m.prefix, func(pr httpkit.Router) {
		feedhttp.RegisterReactions(pr, m.svc)
		if m.register != nil {
			m.register(pr)
		}
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
