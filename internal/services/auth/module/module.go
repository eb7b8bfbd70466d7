// Package module wires the auth service into HTTP via modkit
package module

import (
	"context"
	"net/http"

	"pursue/internal/adapters/googleauth"
	"pursue/internal/modkit"
	"pursue/internal/modkit/httpkit"
	"pursue/internal/modkit/repokit"
	phttp "pursue/internal/platform/net/http"
	"pursue/internal/platform/net/middleware"
	"pursue/internal/platform/strings"
	"pursue/internal/services/auth/domain"

	authhttp "pursue/internal/services/auth/http"
	"pursue/internal/services/auth/repo"
	"pursue/internal/services/auth/service"
)

// Ports exposes auth capabilities for cross-module lookups.
// Tokens backs the API-wide auth middleware; Accounts backs the users module
type Ports struct {
	Service  domain.ServicePort
	Accounts domain.AccountsPort
	Tokens   domain.TokensPort
}

// Module implements the auth module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     Ports
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc    *service.Svc
	tokens *httpkit.Port

	credLimiter  *middleware.RateLimiter
	resetLimiter *middleware.RateLimiter
}

// New constructs the auth module
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("auth"), modkit.WithPrefix("/auth")}, opts...)...)
	o := FromConfig(deps.Cfg)

	signer := service.NewSigner(o.JWTSecret, o.AccessTTL, o.RefreshTTL)
	svc := service.New(repokit.TxRunner(deps.PG), repo.NewPG(), service.Config{
		Signer:          signer,
		Google:          googlePort{googleauth.New(googleauth.Options{Audience: o.GoogleAudience})},
		ConsentSalt:     o.ConsentSalt,
		PolicyVersion:   o.PolicyVersion,
		ResetTTL:        o.ResetTTL,
		ResetMaxPerHour: o.ResetRequests,
	})

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
		svc:       svc,
		tokens:    httpkit.NewPortFunc(signer.VerifyAccess),
		credLimiter: middleware.NewRateLimiter(middleware.LimitPolicy{
			Requests:          o.LoginAttempts,
			Window:            o.LoginWindow,
			CountFailuresOnly: true,
		}),
		resetLimiter: middleware.NewRateLimiter(middleware.LimitPolicy{
			Requests: o.ResetRequests,
			Window:   o.ResetWindow,
		}),
	}
	m.ports = Ports{Service: svc, Accounts: svc, Tokens: m.tokens}

	external := b.Register
	m.register = func(r httpkit.Router) {
		authhttp.Register(r, m.svc)

		r.Group(func(g httpkit.Router) {
			g.Use(m.resetLimiter.Middleware(middleware.KeyIP, phttp.JSON))
			authhttp.RegisterReset(g, m.svc)
		})

		httpkit.Protected(r, m.tokens, func(pr httpkit.Router) {
			authhttp.RegisterAccount(pr, m.svc)
		})

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
		// failed credential attempts share one per-IP budget
		rr.Use(m.credLimiter.Middleware(middleware.KeyIP, phttp.JSON))
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
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
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.mws }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// googlePort adapts the googleauth client to the domain verifier port
type googlePort struct{ v *googleauth.Verifier }

func (g googlePort) Verify(ctx context.Context, idToken string) (domain.GoogleIdentity, error) {
	id, err := g.v.Verify(ctx, idToken)
	if err != nil {
		return domain.GoogleIdentity{}, err
	}
	return domain.GoogleIdentity{Sub: id.Sub, Email: id.Email, Name: id.Name, Picture: id.Picture}, nil
}
