// Package http provides HTTP transport for the subscriptions service
package http

import (
	stdhttp "net/http"

	"pursue/internal/modkit/httpkit"
	"pursue/internal/services/subscriptions/domain"
	svc "pursue/internal/services/subscriptions/service"
)

// Register mounts purchase and downgrade endpoints.
// Callers mount these behind the auth middleware
func Register(r httpkit.Router, s *svc.Svc) {
	h := &handlers{svc: s}

	httpkit.PostJSON[domain.VerifyPurchaseInput](r, "/verify-purchase", h.verifyPurchase)
	httpkit.PostJSON[domain.SelectGroupInput](r, "/downgrade/select-group", h.selectGroup)
}

// RegisterMe mounts the snapshot endpoints. They live under
// /users/me/subscription so clients read them next to the rest of /users/me
func RegisterMe(r httpkit.Router, s *svc.Svc) {
	h := &handlers{svc: s}

	httpkit.Get(r, "/", h.snapshot)
	httpkit.Get(r, "/eligibility", h.eligibility)
}

type handlers struct{ svc *svc.Svc }

// @Summary Current subscription state
// @Tags Subscriptions
// @Produce json
// @Success 200 {object} domain.Snapshot "ok"
// @Router /users/me/subscription [get]
func (h *handlers) snapshot(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Snapshot(r.Context(), uid)
}

// @Summary Whether the user can upgrade to premium
// @Tags Subscriptions
// @Produce json
// @Success 200 {object} domain.Eligibility "ok"
// @Router /users/me/subscription/eligibility [get]
func (h *handlers) eligibility(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Eligibility(r.Context(), uid)
}

// @Summary Verify a store purchase and grant premium
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param payload body domain.VerifyPurchaseInput true "Store receipt"
// @Success 200 {object} domain.Snapshot "ok"
// @Router /subscriptions/verify-purchase [post]
func (h *handlers) verifyPurchase(r *stdhttp.Request, in domain.VerifyPurchaseInput) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.VerifyPurchase(r.Context(), uid, in)
}

// @Summary Choose the group to keep after a downgrade
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param payload body domain.SelectGroupInput true "Kept group"
// @Success 200 {object} domain.DowngradeResult "ok"
// @Router /subscriptions/downgrade/select-group [post]
func (h *handlers) selectGroup(r *stdhttp.Request, in domain.SelectGroupInput) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.SelectKeptGroup(r.Context(), uid, in)
}
