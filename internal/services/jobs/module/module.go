// Package module wires the scheduled jobs into HTTP via modkit
package module

import (
	stdhttp "net/http"

	"pursue/internal/modkit"
	"pursue/internal/modkit/httpkit"
	"pursue/internal/modkit/repokit"
	"pursue/internal/platform/strings"
	"pursue/internal/services/jobs/domain"

	jobshttp "pursue/internal/services/jobs/http"
	"pursue/internal/services/jobs/repo"
	"pursue/internal/services/jobs/service"
)

// Ports exposes the jobs service
type Ports struct {
	Service domain.ServicePort
}

// Module implements the jobs module. Its routes answer to the scheduler,
// not to users, so the mount guards with the job key instead of bearer
// auth.
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(stdhttp.Handler) stdhttp.Handler
	ports     Ports
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc *service.Svc
	key string
}

// New constructs the jobs module
func New(deps modkit.Deps, opt Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("jobs"), modkit.WithPrefix("/jobs")}, opts...)...)
	if opt.Challenges == nil || opt.Heat == nil || opt.Subscriptions == nil || opt.Reminders == nil || opt.Recap == nil {
		panic("jobs module requires the challenge, heat, subscription, reminder, and recap ports")
	}

	svc := service.New(repokit.TxRunner(deps.PG), repo.NewPG(), service.Config{
		Challenges:    opt.Challenges,
		Heat:          opt.Heat,
		Subscriptions: opt.Subscriptions,
		Reminders:     opt.Reminders,
		Recap:         opt.Recap,
	})

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
		svc:       svc,
		key:       opt.Key,
	}
	m.ports = Ports{Service: svc}
	m.register = b.Register
	return m
}

// MountRoutes mounts the job endpoints behind the key guard
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		rr.Use(jobshttp.KeyGuard(m.key))
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		jobshttp.Register(rr, m.svc)
		if m.register != nil {
			m.register(rr)
		}
	})
}

// Name is the module name
func (m *Module) Name() string { return strings.MustString(m.name, "module name") }

// Prefix is the module route prefix
func (m *Module) Prefix() string { return strings.MustPrefix(m.prefix) }

// Middlewares is the module middlewares
func (m *Module) Middlewares() []func(stdhttp.Handler) stdhttp.Handler { return m.mws }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
