// Package http provides HTTP transport for the discover service
package http

import (
	stdhttp "net/http"
	"strings"

	"pursue/internal/modkit/httpkit"
	"pursue/internal/services/discover/domain"
	svc "pursue/internal/services/discover/service"
)

// Register mounts the discover surface
func Register(r httpkit.Router, s *svc.Svc) {
	h := &handlers{svc: s}

	httpkit.Get(r, "/groups", h.search)
	httpkit.Get(r, "/groups/{groupID}", h.detail)
	httpkit.Get(r, "/suggestions", h.suggest)
}

type handlers struct {
	svc domain.ServicePort
}

// search lists public groups
// @Summary Discover groups
// @Description Browses public groups, or ranks them against a text query
// @Tags Discover
// @Produce json
// @Param q query string false "text query"
// @Param categories query string false "comma-separated template categories"
// @Param language query string false "BCP-47 language preference"
// @Param sort query string false "heat, newest, or members (browse only)"
// @Param cursor query string false "opaque page token"
// @Param limit query int false "page size, up to 50"
// @Success 200 {object} domain.Page "ok"
// @Router /discover/groups [get]
func (h *handlers) search(r *stdhttp.Request) (any, error) {
	qs := r.URL.Query()
	return h.svc.Search(r.Context(), domain.SearchInput{
		Q:          qs.Get("q"),
		Categories: splitCSV(qs.Get("categories")),
		Language:   qs.Get("language"),
		Sort:       qs.Get("sort"),
		Cursor:     qs.Get("cursor"),
		Limit:      httpkit.QueryInt(r, "limit", domain.DefaultLimit),
	})
}

// detail serves the public share-link view of a group
// @Summary Public group detail
// @Tags Discover
// @Produce json
// @Param groupID path string true "group id"
// @Success 200 {object} domain.PublicDetail "ok"
// @Router /discover/groups/{groupID} [get]
func (h *handlers) detail(r *stdhttp.Request) (any, error) {
	return h.svc.PublicDetail(r.Context(), httpkit.Param(r, "groupID"))
}

// suggest completes a typed prefix with group names
// @Summary Search suggestions
// @Tags Discover
// @Produce json
// @Param q query string true "typed prefix"
// @Success 200 {array} string "ok"
// @Router /discover/suggestions [get]
func (h *handlers) suggest(r *stdhttp.Request) (any, error) {
	return h.svc.Suggestions(r.Context(), r.URL.Query().Get("q"))
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	return strings.Split(v, ",")
}
