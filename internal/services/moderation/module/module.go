// Package module wires the moderation service into HTTP via modkit
package module

import (
	"context"
	"net/http"

	"pursue/internal/adapters/moderation"
	"pursue/internal/modkit"
	"pursue/internal/modkit/httpkit"
	"pursue/internal/modkit/repokit"
	"pursue/internal/platform/net/middleware"
	"pursue/internal/platform/strings"
	"pursue/internal/services/moderation/domain"

	modhttp "pursue/internal/services/moderation/http"
	"pursue/internal/services/moderation/repo"
	"pursue/internal/services/moderation/service"
)

// Ports exposes moderation capabilities for cross-module wiring
type Ports struct {
	Service domain.ServicePort
}

// Module implements the moderation module
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

// New constructs the moderation module
func New(deps modkit.Deps, opt Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("moderation"), modkit.WithPrefix("/reports")}, opts...)...)
	if opt.Auth == nil {
		panic("moderation module requires an auth port")
	}
	if opt.Guards == nil {
		panic("moderation module requires the groups guard port")
	}

	svc := service.New(repokit.TxRunner(deps.PG), repo.NewPG(), service.Config{
		Guards: opt.Guards,
		Screen: screenPort{moderation.New(moderation.Options{
			BaseURL: opt.ScreenBaseURL,
			APIKey:  opt.ScreenAPIKey,
			Timeout: opt.ScreenTimeout,
		})},
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

// MountRoutes mounts /reports and /disputes
func (m *Module) MountRoutes(r httpkit.Router) {
	m.mount(r, m.prefix, func(pr httpkit.Router) {
		modhttp.RegisterReports(pr, m.svc)
		if m.register != nil {
			m.register(pr)
		}
	})
	m.mount(r, "/disputes", func(pr httpkit.Router) {
		modhttp.RegisterDisputes(pr, m.svc)
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

// screenPort adapts the safety vendor client to the domain seam
type screenPort struct {
	c *moderation.Client
}

func (p screenPort) Enabled() bool { return p.c.Enabled() }

func (p screenPort) CheckText(ctx context.Context, text string) (bool, []string, error) {
	v, err := p.c.CheckText(ctx, text)
	return v.Allowed, v.Labels, err
}
