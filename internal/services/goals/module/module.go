// Package module wires the goals service into HTTP via modkit
package module

import (
	"net/http"

	"pursue/internal/modkit"
	"pursue/internal/modkit/httpkit"
	"pursue/internal/modkit/repokit"
	phttp "pursue/internal/platform/net/http"
	"pursue/internal/platform/net/middleware"
	"pursue/internal/platform/strings"
	"pursue/internal/services/goals/domain"

	goalshttp "pursue/internal/services/goals/http"
	"pursue/internal/services/goals/repo"
	"pursue/internal/services/goals/service"
)

// Ports exposes goal capabilities for cross-module wiring
type Ports struct {
	Service domain.ServicePort
}

// Module implements the goals module
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
	progress *middleware.RateLimiter
	uploads  *middleware.RateLimiter
}

// New constructs the goals module
func New(deps modkit.Deps, opt Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("goals"), modkit.WithPrefix("/goals")}, opts...)...)
	if opt.Auth == nil {
		panic("goals module requires an auth port")
	}
	if opt.Groups == nil {
		panic("goals module requires the groups guard port")
	}
	if opt.Writes == nil {
		panic("goals module requires the subscriptions write guard")
	}
	if opt.Photos == nil {
		panic("goals module requires an object store")
	}

	svc := service.New(repokit.TxRunner(deps.PG), repo.NewPG(), service.Config{
		Groups: opt.Groups,
		Writes: opt.Writes,
		Photos: opt.Photos,
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
		progress:  opt.Progress,
		uploads:   opt.Uploads,
	}
	m.ports = Ports{Service: svc}
	m.register = b.Register
	return m
}

// MountRoutes mounts the goals surface. It spans four subtrees: /goals
// for single-goal work, the grouped list under /groups/{groupID}/goals,
// the entry ledger under /progress, and the per-member summary under
// /groups/{groupID}/members/{memberID}/progress. The router backtracks
// from these parameterized mounts to the groups module's own subtree,
// so both can live under /groups
func (m *Module) MountRoutes(r httpkit.Router) {
	m.mount(r, m.prefix, func(pr httpkit.Router) {
		goalshttp.Register(pr, m.svc)
		if m.register != nil {
			m.register(pr)
		}
	})
	m.mount(r, "/groups/{groupID}/goals", func(pr httpkit.Router) {
		goalshttp.RegisterGroupGoals(pr, m.svc)
	})
	m.mount(r, "/groups/{groupID}/members/{memberID}/progress", func(pr httpkit.Router) {
		goalshttp.RegisterMemberProgress(pr, m.svc)
	})
	m.mount(r, "/progress", func(pr httpkit.Router) {
		goalshttp.RegisterProgress(pr, m.svc)
		m.limited(pr, m.progress, func(g httpkit.Router) {
			goalshttp.RegisterProgressLog(g, m.svc)
		})
		m.limited(pr, m.uploads, func(g httpkit.Router) {
			goalshttp.RegisterPhotoWrite(g, m.svc)
		})
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

// limited registers endpoints inside a per-user rate limit group, or
// bare when the limiter is nil
func (m *Module) limited(r httpkit.Router, lim *middleware.RateLimiter, register func(httpkit.Router)) {
	if lim == nil {
		register(r)
		return
	}
	r.Group(func(g httpkit.Router) {
		g.Use(lim.Middleware(middleware.KeyUser, phttp.JSON))
		register(g)
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
