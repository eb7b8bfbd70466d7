// Package module wires the users service into HTTP via modkit
package module

import (
	"net/http"

	"pursue/internal/modkit"
	"pursue/internal/modkit/httpkit"
	"pursue/internal/modkit/repokit"
	phttp "pursue/internal/platform/net/http"
	"pursue/internal/platform/net/middleware"
	"pursue/internal/platform/strings"
	authdomain "pursue/internal/services/auth/domain"
	"pursue/internal/services/users/domain"

	usershttp "pursue/internal/services/users/http"
	"pursue/internal/services/users/repo"
	"pursue/internal/services/users/service"
)

// Ports exposes user capabilities for cross-module lookups
type Ports struct {
	Service domain.ServicePort
}

// Module implements the users module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     Ports
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc      *service.Svc
	auth     middleware.AuthPort
	accounts authdomain.AccountsPort
	uploads  *middleware.RateLimiter
}

// New constructs the users module
func New(deps modkit.Deps, opt Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("users"), modkit.WithPrefix("/users")}, opts...)...)
	if opt.Auth == nil {
		panic("users module requires an auth port")
	}
	if opt.Accounts == nil {
		panic("users module requires the auth accounts port")
	}
	if opt.Memberships == nil {
		panic("users module requires the groups memberships port")
	}

	svc := service.New(repokit.TxRunner(deps.PG), repo.NewPG(), service.Config{
		Memberships: opt.Memberships,
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
		accounts:  opt.Accounts,
		uploads:   opt.Uploads,
	}
	m.ports = Ports{Service: svc}
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
			pr.Route("/me", func(me httpkit.Router) {
				usershttp.RegisterMe(me, m.svc)
				usershttp.RegisterAccount(me, m.accounts)

				if m.uploads == nil {
					usershttp.RegisterAvatarWrite(me, m.svc)
					return
				}
				me.Group(func(g httpkit.Router) {
					g.Use(m.uploads.Middleware(middleware.KeyUser, phttp.JSON))
					usershttp.RegisterAvatarWrite(g, m.svc)
				})
			})
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
