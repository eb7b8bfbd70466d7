// Package http provides HTTP transport for reports and disputes
package http

import (
	stdhttp "net/http"

	"pursue/internal/modkit/httpkit"
	"pursue/internal/services/moderation/domain"
	svc "pursue/internal/services/moderation/service"
)

// RegisterReports mounts the report write under /reports
func RegisterReports(r httpkit.Router, s *svc.Svc) {
	h := &handlers{svc: s}
	httpkit.PostJSON[domain.ReportInput](r, "/", h.report)
}

// RegisterDisputes mounts the dispute write under /disputes
func RegisterDisputes(r httpkit.Router, s *svc.Svc) {
	h := &handlers{svc: s}
	httpkit.PostJSON[domain.DisputeInput](r, "/", h.dispute)
}

type handlers struct {
	svc *svc.Svc
}

// @Summary Report content
// @Tags Moderation
// @Accept json
// @Produce json
// @Param payload body domain.ReportInput true "content reference and reason"
// @Success 201 {object} domain.ReportResult "recorded"
// @Router /reports [post]
func (h *handlers) report(r *stdhttp.Request, in domain.ReportInput) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Report(r.Context(), uid, in)
}

// @Summary Dispute a removal
// @Tags Moderation
// @Accept json
// @Produce json
// @Param payload body domain.DisputeInput true "content reference and explanation"
// @Success 201 {object} domain.DisputeResult "recorded"
// @Router /disputes [post]
func (h *handlers) dispute(r *stdhttp.Request, in domain.DisputeInput) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Dispute(r.Context(), uid, in)
}
