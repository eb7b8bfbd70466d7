// Package http provides HTTP transport for the auth service
package http

import (
	stdhttp "net/http"

	"pursue/internal/modkit/httpkit"
	phttp "pursue/internal/platform/net/http"
	"pursue/internal/platform/net/http/bind"
	"pursue/internal/services/auth/domain"
	svc "pursue/internal/services/auth/service"
)

// Register mounts the public credential endpoints
func Register(r httpkit.Router, s *svc.Svc) {
	h := &handlers{svc: s}

	r.Post("/register", httpkit.Handle(h.register))
	httpkit.PostJSON[domain.LoginInput](r, "/login", h.login)
	httpkit.PostJSON[domain.GoogleInput](r, "/google", h.google)
	httpkit.PostJSON[domain.RefreshInput](r, "/refresh", h.refresh)
	r.Post("/logout", httpkit.Handle(h.logout))
	r.Post("/reset-password", httpkit.Handle(h.resetPassword))
}

// RegisterReset mounts the reset-issuance endpoint.
// It is registered apart so the module can cap it harder than the rest
func RegisterReset(r httpkit.Router, s *svc.Svc) {
	h := &handlers{svc: s}

	httpkit.PostJSON[domain.ForgotPasswordInput](r, "/forgot-password", h.forgotPassword)
}

// RegisterAccount mounts provider management endpoints.
// Callers mount these behind the auth middleware
func RegisterAccount(r httpkit.Router, s *svc.Svc) {
	h := &handlers{svc: s}

	r.Post("/link/google", httpkit.Handle(h.linkGoogle))
	httpkit.Delete(r, "/unlink/{provider}", h.unlinkProvider)
}

type handlers struct{ svc *svc.Svc }

// @Summary Register with email and password
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body domain.RegisterInput true "Signup"
// @Success 201 {object} domain.Session "created"
// @Router /auth/register [post]
func (h *handlers) register(r *stdhttp.Request) phttp.Response {
	in, err := bind.ParseJSON[domain.RegisterInput](r)
	if err != nil {
		return phttp.Error(err)
	}
	sess, err := h.svc.Register(r.Context(), in)
	if err != nil {
		return phttp.Error(err)
	}
	return phttp.Created(sess)
}

// @Summary Sign in with email and password
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body domain.LoginInput true "Credentials"
// @Success 200 {object} domain.Session "ok"
// @Router /auth/login [post]
func (h *handlers) login(r *stdhttp.Request, in domain.LoginInput) (any, error) {
	return h.svc.Login(r.Context(), in)
}

// @Summary Sign in with a Google ID token
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body domain.GoogleInput true "ID token plus consents for first sign-in"
// @Success 200 {object} domain.Session "ok"
// @Router /auth/google [post]
func (h *handlers) google(r *stdhttp.Request, in domain.GoogleInput) (any, error) {
	return h.svc.GoogleSignIn(r.Context(), in)
}

// @Summary Rotate a refresh token
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body domain.RefreshInput true "Refresh token"
// @Success 200 {object} domain.TokenPair "ok"
// @Router /auth/refresh [post]
func (h *handlers) refresh(r *stdhttp.Request, in domain.RefreshInput) (any, error) {
	return h.svc.Refresh(r.Context(), in)
}

// @Summary Revoke a refresh token
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body domain.LogoutInput true "Refresh token"
// @Success 204 "revoked"
// @Router /auth/logout [post]
func (h *handlers) logout(r *stdhttp.Request) phttp.Response {
	in, err := bind.ParseJSON[domain.LogoutInput](r)
	if err != nil {
		return phttp.Error(err)
	}
	if err := h.svc.Logout(r.Context(), in); err != nil {
		return phttp.Error(err)
	}
	return phttp.NoContent()
}

// @Summary Request a password reset
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body domain.ForgotPasswordInput true "Account email"
// @Success 200 {object} domain.Ack "ok regardless of account existence"
// @Router /auth/forgot-password [post]
func (h *handlers) forgotPassword(r *stdhttp.Request, in domain.ForgotPasswordInput) (any, error) {
	if err := h.svc.ForgotPassword(r.Context(), in); err != nil {
		return nil, err
	}
	return domain.Ack{Message: "if that account exists, a reset link is on its way"}, nil
}

// @Summary Set a new password with a reset token
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body domain.ResetPasswordInput true "Token and new password"
// @Success 204 "password updated"
// @Router /auth/reset-password [post]
func (h *handlers) resetPassword(r *stdhttp.Request) phttp.Response {
	in, err := bind.ParseJSON[domain.ResetPasswordInput](r)
	if err != nil {
		return phttp.Error(err)
	}
	if err := h.svc.ResetPassword(r.Context(), in); err != nil {
		return phttp.Error(err)
	}
	return phttp.NoContent()
}

// @Summary Link a Google account to the signed-in user
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body domain.LinkGoogleInput true "ID token"
// @Success 200 {array} domain.ProviderLink "linked providers"
// @Router /auth/link/google [post]
func (h *handlers) linkGoogle(r *stdhttp.Request) phttp.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return phttp.Error(err)
	}
	in, err := bind.ParseJSON[domain.LinkGoogleInput](r)
	if err != nil {
		return phttp.Error(err)
	}
	links, err := h.svc.LinkGoogle(r.Context(), uid, in.IDToken)
	if err != nil {
		return phttp.Error(err)
	}
	return phttp.OK(links)
}

// @Summary Unlink a sign-in provider
// @Tags Auth
// @Produce json
// @Param provider path string true "Provider name (email or google)"
// @Success 200 {array} domain.ProviderLink "remaining providers"
// @Router /auth/unlink/{provider} [delete]
func (h *handlers) unlinkProvider(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.UnlinkProvider(r.Context(), uid, httpkit.Param(r, "provider"))
}
