// Package http provides HTTP transport for devices, the inbox, and
// nudges
package http

import (
	stdhttp "net/http"

	"pursue/internal/modkit/httpkit"
	"pursue/internal/services/notifications/domain"
	svc "pursue/internal/services/notifications/service"
)

// RegisterDevices mounts the device registry under /devices
func RegisterDevices(r httpkit.Router, s *svc.Svc) {
	h := &handlers{svc: s}
	httpkit.PostJSON[domain.RegisterDeviceInput](r, "/", h.register)
	httpkit.DeleteJSON[domain.UnregisterDeviceInput](r, "/", h.unregister)
}

// RegisterInbox mounts the inbox under /notifications
func RegisterInbox(r httpkit.Router, s *svc.Svc) {
	h := &handlers{svc: s}
	httpkit.Get(r, "/", h.inbox)
	httpkit.PostJSON[domain.MarkReadInput](r, "/mark-read", h.markRead)
	httpkit.Get(r, "/unread-count", h.unread)
}

// RegisterNudges mounts nudges under /nudges
func RegisterNudges(r httpkit.Router, s *svc.Svc) {
	h := &handlers{svc: s}
	httpkit.PostJSON[domain.NudgeInput](r, "/", h.nudge)
	httpkit.Get(r, "/status", h.nudgeStatus)
}

type handlers struct {
	svc *svc.Svc
}

// @Summary Register a push device
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body domain.RegisterDeviceInput true "token and platform"
// @Success 200 {object} domain.Device "ok"
// @Router /devices [post]
func (h *handlers) register(r *stdhttp.Request, in domain.RegisterDeviceInput) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.RegisterDevice(r.Context(), uid, in)
}

// @Summary Unregister a push device
// @Tags Notifications
// @Accept json
// @Param payload body domain.UnregisterDeviceInput true "token to drop"
// @Success 200 "removed"
// @Router /devices [delete]
func (h *handlers) unregister(r *stdhttp.Request, in domain.UnregisterDeviceInput) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return nil, h.svc.UnregisterDevice(r.Context(), uid, in.FCMToken)
}

// @Summary One page of the caller's inbox
// @Tags Notifications
// @Produce json
// @Param cursor query string false "opaque page cursor"
// @Param limit query int false "page size, default 20, max 100"
// @Success 200 {object} domain.InboxPage "ok"
// @Router /notifications [get]
func (h *handlers) inbox(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Inbox(r.Context(), uid, httpkit.Query(r, "cursor", ""), httpkit.QueryInt(r, "limit", domain.DefaultLimit))
}

// @Summary Mark notifications read
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body domain.MarkReadInput true "ids, or all"
// @Success 200 {object} domain.MarkReadResult "ok"
// @Router /notifications/mark-read [post]
func (h *handlers) markRead(r *stdhttp.Request, in domain.MarkReadInput) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.MarkRead(r.Context(), uid, in)
}

// @Summary Unread badge count
// @Tags Notifications
// @Produce json
// @Success 200 {object} domain.UnreadCount "ok"
// @Router /notifications/unread-count [get]
func (h *handlers) unread(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Unread(r.Context(), uid)
}

// @Summary Nudge a groupmate
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body domain.NudgeInput true "recipient, group, optional goal"
// @Success 201 {object} domain.Nudge "sent"
// @Router /nudges [post]
func (h *handlers) nudge(r *stdhttp.Request, in domain.NudgeInput) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.SendNudge(r.Context(), uid, in)
}

// @Summary Who the caller nudged today
// @Tags Notifications
// @Produce json
// @Param group_id query string true "group id"
// @Success 200 {object} domain.NudgeStatus "ok"
// @Router /nudges/status [get]
func (h *handlers) nudgeStatus(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.NudgeStatus(r.Context(), uid, httpkit.Query(r, "group_id", ""))
}
