// Package module wires the subscriptions service into HTTP via modkit
package module

import (
	"context"
	"net/http"

	"pursue/internal/adapters/receipts"
	"pursue/internal/modkit"
	"pursue/internal/modkit/httpkit"
	"pursue/internal/modkit/repokit"
	"pursue/internal/platform/net/middleware"
	"pursue/internal/platform/strings"
	"pursue/internal/services/subscriptions/domain"

	subshttp "pursue/internal/services/subscriptions/http"
	"pursue/internal/services/subscriptions/repo"
	"pursue/internal/services/subscriptions/service"
)

// Ports exposes subscription capabilities for cross-module lookups.
// Entitlements backs the plan guards in groups, goals, and exports
type Ports struct {
	Service      domain.ServicePort
	Entitlements domain.EntitlementsPort
}

// Module implements the subscriptions module
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

// New constructs the subscriptions module
func New(deps modkit.Deps, opt Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("subscriptions"), modkit.WithPrefix("/subscriptions")}, opts...)...)
	if opt.Auth == nil {
		panic("subscriptions module requires an auth port")
	}

	svc := service.New(repokit.TxRunner(deps.PG), repo.NewPG(), service.Config{
		Receipts: receiptsPort{receipts.New(receipts.Options{
			BaseURL: opt.VerifierBaseURL,
			APIKey:  opt.VerifierAPIKey,
			Timeout: opt.VerifierTimeout,
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
	m.ports = Ports{Service: svc, Entitlements: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		subshttp.Register(r, m.svc)
		if external != nil {
			external(r)
		}
	}
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
			if m.register != nil {
				m.register(pr)
			}
		})
	})

	// the snapshot endpoints sit in the users namespace
	r.Route("/users/me/subscription", func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		httpkit.Protected(rr, m.auth, func(pr httpkit.Router) {
			subshttp.RegisterMe(pr, m.svc)
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

// receiptsPort adapts the receipts client to the domain verifier port
type receiptsPort struct{ v *receipts.Verifier }

func (p receiptsPort) Enabled() bool { return p.v.Enabled() }

func (p receiptsPort) Verify(ctx context.Context, platform, token, productID string) (domain.VerifiedReceipt, error) {
	rec, err := p.v.Verify(ctx, platform, token, productID)
	if err != nil {
		return domain.VerifiedReceipt{}, err
	}
	return domain.VerifiedReceipt{
		TransactionID: rec.TransactionID,
		ProductID:     rec.ProductID,
		ExpiresAt:     rec.ExpiresAt,
		AutoRenew:     rec.AutoRenew,
		AmountCents:   rec.AmountCents,
	}, nil
}
