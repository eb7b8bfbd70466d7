// Package http provides the scheduler-facing job endpoints
package http

import (
	"crypto/subtle"
	stdhttp "net/http"
	"time"

	"pursue/internal/modkit/httpkit"
	perr "pursue/internal/platform/errors"
	pnet "pursue/internal/platform/net"
	phttp "pursue/internal/platform/net/http"
	"pursue/internal/services/jobs/domain"
	svc "pursue/internal/services/jobs/service"
)

// KeyGuard authenticates the scheduler via the job-key header with a
// constant-time compare. An unconfigured key rejects everything.
func KeyGuard(key string) func(stdhttp.Handler) stdhttp.Handler {
	return func(next stdhttp.Handler) stdhttp.Handler {
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			got := r.Header.Get(domain.HeaderKey)
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				status, body := pnet.Error(perr.Unauthorizedf("invalid job key"), pnet.RequestID(r.Context()))
				phttp.JSON(w, status, body)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Register mounts the job endpoints
func Register(r httpkit.Router, s *svc.Svc) {
	h := &handlers{svc: s}
	httpkit.Post(r, "/update-challenge-statuses", h.updateChallengeStatuses)
	httpkit.Post(r, "/process-challenge-completion-pushes", h.processCompletionPushes)
	httpkit.Post(r, "/calculate-heat", h.calculateHeat)
	httpkit.Post(r, "/process-reminders", h.processReminders)
	httpkit.Post(r, "/recalculate-patterns", h.recalculatePatterns)
	httpkit.Post(r, "/update-effectiveness", h.updateEffectiveness)
	httpkit.Post(r, "/weekly-recap", h.weeklyRecap)
}

type handlers struct {
	svc *svc.Svc
}

// runAt resolves the instant a run is evaluated against: wall clock, or
// the now query param when the scheduler replays a window
func runAt(r *stdhttp.Request) (time.Time, error) {
	raw := r.URL.Query().Get("now")
	if raw == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, perr.InvalidArgf("now must be RFC 3339")
	}
	return t.UTC(), nil
}

func elapsed(start time.Time) int64 { return time.Since(start).Milliseconds() }

func (h *handlers) updateChallengeStatuses(r *stdhttp.Request) (any, error) {
	now, err := runAt(r)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rep, err := h.svc.UpdateChallengeStatuses(r.Context(), now)
	if err != nil {
		return nil, err
	}
	return domain.StatusUpdateResponse{StatusTransitions: rep, ElapsedMS: elapsed(start)}, nil
}

func (h *handlers) processCompletionPushes(r *stdhttp.Request) (any, error) {
	start := time.Now()
	rep, err := h.svc.ProcessCompletionPushes(r.Context())
	if err != nil {
		return nil, err
	}
	return domain.CompletionPushResponse{CompletionRun: rep, ElapsedMS: elapsed(start)}, nil
}

func (h *handlers) calculateHeat(r *stdhttp.Request) (any, error) {
	now, err := runAt(r)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	heat, sweep, err := h.svc.CalculateHeat(r.Context(), now)
	if err != nil {
		return nil, err
	}
	return domain.HeatResponse{HeatReport: heat, Sweep: sweep, ElapsedMS: elapsed(start)}, nil
}

func (h *handlers) processReminders(r *stdhttp.Request) (any, error) {
	now, err := runAt(r)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rep, err := h.svc.ProcessReminders(r.Context(), now)
	if err != nil {
		return nil, err
	}
	return domain.DispatchResponse{DispatchReport: rep, ElapsedMS: elapsed(start)}, nil
}

func (h *handlers) recalculatePatterns(r *stdhttp.Request) (any, error) {
	now, err := runAt(r)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rep, err := h.svc.RecalculatePatterns(r.Context(), now)
	if err != nil {
		return nil, err
	}
	return domain.PatternResponse{PatternReport: rep, ElapsedMS: elapsed(start)}, nil
}

func (h *handlers) updateEffectiveness(r *stdhttp.Request) (any, error) {
	now, err := runAt(r)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rep, err := h.svc.UpdateEffectiveness(r.Context(), now)
	if err != nil {
		return nil, err
	}
	return domain.EffectivenessResponse{EffectivenessReport: rep, ElapsedMS: elapsed(start)}, nil
}

func (h *handlers) weeklyRecap(r *stdhttp.Request) (any, error) {
	now, err := runAt(r)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rep, err := h.svc.WeeklyRecap(r.Context(), now)
	if err != nil {
		return nil, err
	}
	return domain.RecapResponse{RecapReport: rep, ElapsedMS: elapsed(start)}, nil
}
