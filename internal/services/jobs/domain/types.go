// Package domain holds the scheduled-job run reports
package domain

import (
	challdomain "pursue/internal/services/challenges/domain"
	groupdomain "pursue/internal/services/groups/domain"
	remdomain "pursue/internal/services/reminders/domain"
	subdomain "pursue/internal/services/subscriptions/domain"
)

// HeaderKey is the header the scheduler authenticates with
const HeaderKey = "x-internal-job-key"

// RecapReport summarizes one weekly-recap run
type RecapReport struct {
	Groups   int `json:"groups"`
	Notified int `json:"notified"`
	Skipped  int `json:"skipped"`
}

// Per-endpoint responses: the run report plus wall time

// StatusUpdateResponse reports the challenge status job
type StatusUpdateResponse struct {
	challdomain.StatusTransitions
	ElapsedMS int64 `json:"elapsed_ms"`
}

// CompletionPushResponse reports the challenge completion-push job
type CompletionPushResponse struct {
	challdomain.CompletionRun
	ElapsedMS int64 `json:"elapsed_ms"`
}

// HeatResponse reports the daily heat run and the downgrade sweep that
// rides along with it
type HeatResponse struct {
	groupdomain.HeatReport
	Sweep     subdomain.SweepReport `json:"downgrade_sweep"`
	ElapsedMS int64                 `json:"elapsed_ms"`
}

// DispatchResponse reports one reminder dispatch sweep
type DispatchResponse struct {
	remdomain.DispatchReport
	ElapsedMS int64 `json:"elapsed_ms"`
}

// PatternResponse reports one pattern-learning run
type PatternResponse struct {
	remdomain.PatternReport
	ElapsedMS int64 `json:"elapsed_ms"`
}

// EffectivenessResponse reports one effectiveness evaluation
type EffectivenessResponse struct {
	remdomain.EffectivenessReport
	ElapsedMS int64 `json:"elapsed_ms"`
}

// RecapResponse reports one weekly-recap run
type RecapResponse struct {
	RecapReport
	ElapsedMS int64 `json:"elapsed_ms"`
}
