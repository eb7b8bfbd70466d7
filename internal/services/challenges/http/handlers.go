// Package http provides HTTP transport for the challenges service
package http

import (
	stdhttp "net/http"

	"pursue/internal/modkit/httpkit"
	phttp "pursue/internal/platform/net/http"
	"pursue/internal/platform/net/http/bind"
	"pursue/internal/services/challenges/domain"
	svc "pursue/internal/services/challenges/service"
)

// Register mounts the challenge lifecycle endpoints
func Register(r httpkit.Router, s *svc.Svc) {
	h := &handlers{svc: s}

	r.Post("/", httpkit.Handle(h.create))
	r.Post("/{challengeID}/cancel", httpkit.Handle(h.cancel))
	httpkit.Get(r, "/{challengeID}/invite-card", h.inviteCard)
}

// RegisterTemplates mounts the template catalog
func RegisterTemplates(r httpkit.Router, s *svc.Svc) {
	h := &handlers{svc: s}
	httpkit.Get(r, "/", h.templates)
}

type handlers struct {
	svc *svc.Svc
}

// @Summary Create a challenge
// @Tags Challenges
// @Accept json
// @Produce json
// @Param payload body domain.CreateChallengeInput true "template or custom definition"
// @Success 201 {object} domain.Detail "created"
// @Router /challenges [post]
func (h *handlers) create(r *stdhttp.Request) phttp.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return phttp.Error(err)
	}
	in, err := bind.ParseJSON[domain.CreateChallengeInput](r)
	if err != nil {
		return phttp.Error(err)
	}
	det, err := h.svc.Create(r.Context(), uid, in)
	if err != nil {
		return phttp.Error(err)
	}
	return phttp.Created(det)
}

// @Summary Cancel an upcoming or active challenge
// @Tags Challenges
// @Param challengeID path string true "challenge id"
// @Success 204 "cancelled"
// @Router /challenges/{challengeID}/cancel [post]
func (h *handlers) cancel(r *stdhttp.Request) phttp.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return phttp.Error(err)
	}
	if err := h.svc.Cancel(r.Context(), uid, httpkit.Param(r, "challengeID")); err != nil {
		return phttp.Error(err)
	}
	return phttp.NoContent()
}

// @Summary Shareable invite card with the caller's attribution
// @Tags Challenges
// @Produce json
// @Param challengeID path string true "challenge id"
// @Success 200 {object} domain.InviteCard "ok"
// @Router /challenges/{challengeID}/invite-card [get]
func (h *handlers) inviteCard(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.InviteCard(r.Context(), uid, httpkit.Param(r, "challengeID"))
}

// @Summary Challenge template catalog
// @Tags Challenges
// @Produce json
// @Success 200 {array} domain.Template "ok"
// @Router /group-templates [get]
func (h *handlers) templates(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Templates(r.Context(), uid)
}
