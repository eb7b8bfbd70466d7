// Package module wires the notifications service into HTTP via modkit
package module

import (
	"context"
	"net/http"

	"pursue/internal/adapters/push"
	"pursue/internal/modkit"
	"pursue/internal/modkit/httpkit"
	"pursue/internal/modkit/repokit"
	"pursue/internal/platform/net/middleware"
	"pursue/internal/platform/strings"
	"pursue/internal/services/notifications/domain"

	notifhttp "pursue/internal/services/notifications/http"
	"pursue/internal/services/notifications/repo"
	"pursue/internal/services/notifications/service"
)

// Ports exposes notification capabilities for cross-module wiring.
// Fanout backs the notifier ports of groups, feed, challenges, and
// reminders
type Ports struct {
	Service domain.ServicePort
	Fanout  domain.FanoutPort
}

// Module implements the notifications module
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

// New constructs the notifications module
func New(deps modkit.Deps, opt Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("notifications"), modkit.WithPrefix("/notifications")}, opts...)...)
	if opt.Auth == nil {
		panic("notifications module requires an auth port")
	}
	if opt.Guards == nil {
		panic("notifications module requires the groups guard port")
	}

	svc := service.New(repokit.TxRunner(deps.PG), repo.NewPG(), service.Config{
		Guards: opt.Guards,
		Push: pushPort{push.New(push.Options{
			BaseURL:   opt.PushBaseURL,
			ServerKey: opt.PushServerKey,
			Timeout:   opt.PushTimeout,
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
	m.ports = Ports{Service: svc, Fanout: svc}
	m.register = b.Register
	return m
}

// MountRoutes mounts the three subtrees: the inbox under
// /notifications, the device registry under /devices, and nudges under
// /nudges
func (m *Module) MountRoutes(r httpkit.Router) {
	m.mount(r, m.prefix, func(pr httpkit.Router) {
		notifhttp.RegisterInbox(pr, m.svc)
		if m.register != nil {
			m.register(pr)
		}
	})
	m.mount(r, "/devices", func(pr httpkit.Router) {
		notifhttp.RegisterDevices(pr, m.svc)
	})
	m.mount(r, "/nudges", func(pr httpkit.Router) {
		notifhttp.RegisterNudges(pr, m.svc)
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

// pushPort adapts the push client to the domain seam
type pushPort struct {
	c *push.Client
}

func (p pushPort) Enabled() bool { return p.c.Enabled() }

func (p pushPort) SendToTokens(ctx context.Context, tokens []string, title, body string, data map[string]string, collapseKey string) error {
	return p.c.SendToTokens(ctx, tokens, push.Notification{Title: title, Body: body}, data, collapseKey)
}
