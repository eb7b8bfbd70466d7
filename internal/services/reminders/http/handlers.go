// Package http provides HTTP transport for reminder preferences
package http

import (
	stdhttp "net/http"

	"pursue/internal/modkit/httpkit"
	"pursue/internal/services/reminders/domain"
	svc "pursue/internal/services/reminders/service"
)

// RegisterPreferences mounts the preference surface under
// /reminder-preferences
func RegisterPreferences(r httpkit.Router, s *svc.Svc) {
	h := &handlers{svc: s}
	httpkit.Get(r, "/", h.list)
	httpkit.PutJSON[domain.PreferenceInput](r, "/{goalID}", h.set)
}

type handlers struct {
	svc *svc.Svc
}

// @Summary List the caller's reminder preferences
// @Tags Reminders
// @Produce json
// @Success 200 {array} domain.Preference "explicit rows only"
// @Router /reminder-preferences [get]
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Preferences(r.Context(), uid)
}

// @Summary Set reminder settings for a goal
// @Tags Reminders
// @Accept json
// @Produce json
// @Param goalID path string true "goal id"
// @Param payload body domain.PreferenceInput true "settings"
// @Success 200 {object} domain.Preference "stored row"
// @Router /reminder-preferences/{goalID} [put]
func (h *handlers) set(r *stdhttp.Request, in domain.PreferenceInput) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	goalID, err := httpkit.ParamUUID(r, "goalID")
	if err != nil {
		return nil, err
	}
	return h.svc.SetPreference(r.Context(), uid, goalID.String(), in)
}
