// Package http provides HTTP transport for the group feed
package http

import (
	stdhttp "net/http"

	"pursue/internal/modkit/httpkit"
	phttp "pursue/internal/platform/net/http"
	"pursue/internal/services/feed/domain"
	svc "pursue/internal/services/feed/service"
)

// RegisterGroupFeed mounts the feed read under /groups/{groupID}/activity
func RegisterGroupFeed(r httpkit.Router, s *svc.Svc) {
	h := &handlers{svc: s}
	httpkit.Get(r, "/", h.feed)
}

// RegisterReactions mounts the reaction writes under /activities
func RegisterReactions(r httpkit.Router, s *svc.Svc) {
	h := &handlers{svc: s}
	httpkit.PutJSON[domain.ReactInput](r, "/{activityID}/reactions", h.react)
	r.Delete("/{activityID}/reactions", httpkit.Handle(h.unreact))
}

type handlers struct {
	svc *svc.Svc
}

// @Summary One page of a group's activity feed
// @Tags Feed
// @Produce json
// @Param groupID path string true "group id"
// @Param offset query int false "rows to skip, default 0"
// @Param limit query int false "page size, default 20, max 100"
// @Success 200 {object} domain.Page "ok"
// @Router /groups/{groupID}/activity [get]
func (h *handlers) feed(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	gid, err := httpkit.ParamUUID(r, "groupID")
	if err != nil {
		return nil, err
	}
	offset := httpkit.QueryInt(r, "offset", 0)
	limit := httpkit.QueryInt(r, "limit", domain.DefaultLimit)
	return h.svc.Feed(r.Context(), uid, gid.String(), offset, limit)
}

// @Summary React to an activity
// @Tags Feed
// @Accept json
// @Produce json
// @Param activityID path string true "activity id"
// @Param payload body domain.ReactInput true "emoji to set"
// @Success 200 {object} domain.ReactResult "ok"
// @Router /activities/{activityID}/reactions [put]
func (h *handlers) react(r *stdhttp.Request, in domain.ReactInput) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.React(r.Context(), uid, httpkit.Param(r, "activityID"), in)
}

// @Summary Remove the caller's reaction
// @Tags Feed
// @Param activityID path string true "activity id"
// @Success 204 "removed"
// @Router /activities/{activityID}/reactions [delete]
func (h *handlers) unreact(r *stdhttp.Request) phttp.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return phttp.Error(err)
	}
	if err := h.svc.Unreact(r.Context(), uid, httpkit.Param(r, "activityID")); err != nil {
		return phttp.Error(err)
	}
	return phttp.NoContent()
}
