// Package service drives the scheduled runs of the other modules and
// implements the weekly recap
package service

import (
	"context"
	"fmt"
	"time"

	"pursue/internal/modkit/repokit"
	"pursue/internal/platform/logger"
	challdomain "pursue/internal/services/challenges/domain"
	groupdomain "pursue/internal/services/groups/domain"
	"pursue/internal/services/jobs/domain"
	remdomain "pursue/internal/services/reminders/domain"
	subdomain "pursue/internal/services/subscriptions/domain"
)

// recapWindow is how far back the weekly recap looks
const recapWindow = 7 * 24 * time.Hour

// Config carries the module ports the jobs drive
type Config struct {
	Challenges    domain.ChallengePort
	Heat          domain.HeatPort
	Subscriptions domain.SubscriptionPort
	Reminders     domain.ReminderPort
	Recap         domain.RecapNotifier
}

// Svc implements domain.ServicePort
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[domain.Storage]
	cfg    Config
	now    func() time.Time
}

var _ domain.ServicePort = (*Svc)(nil)

// New constructs the jobs service
func New(db repokit.TxRunner, binder repokit.Binder[domain.Storage], cfg Config) *Svc {
	if db == nil {
		panic("jobs service requires a database")
	}
	if binder == nil {
		panic("jobs service requires a storage binder")
	}
	if cfg.Challenges == nil || cfg.Heat == nil || cfg.Subscriptions == nil || cfg.Reminders == nil {
		panic("jobs service requires the challenge, heat, subscription, and reminder ports")
	}
	if cfg.Recap == nil {
		panic("jobs service requires the recap notifier")
	}
	return &Svc{db: db, binder: binder, cfg: cfg, now: time.Now}
}

// UpdateChallengeStatuses advances upcoming and active challenges
func (s *Svc) UpdateChallengeStatuses(ctx context.Context, now time.Time) (challdomain.StatusTransitions, error) {
	return s.cfg.Challenges.RunStatusUpdate(ctx, now)
}

// ProcessCompletionPushes fans out results for freshly completed challenges
func (s *Svc) ProcessCompletionPushes(ctx context.Context) (challdomain.CompletionRun, error) {
	return s.cfg.Challenges.RunCompletionPushes(ctx)
}

// CalculateHeat runs the daily heat recalculation, then the subscription
// downgrade sweep that shares the daily cadence
func (s *Svc) CalculateHeat(ctx context.Context, now time.Time) (groupdomain.HeatReport, subdomain.SweepReport, error) {
	heat, err := s.cfg.Heat.RunDaily(ctx, now)
	if err != nil {
		return heat, subdomain.SweepReport{}, err
	}
	sweep, err := s.cfg.Subscriptions.SweepDowngrades(ctx, now)
	return heat, sweep, err
}

// ProcessReminders runs one dispatch sweep
func (s *Svc) ProcessReminders(ctx context.Context, now time.Time) (remdomain.DispatchReport, error) {
	return s.cfg.Reminders.RunDispatch(ctx, now)
}

// RecalculatePatterns relearns the reminder logging bands
func (s *Svc) RecalculatePatterns(ctx context.Context, now time.Time) (remdomain.PatternReport, error) {
	return s.cfg.Reminders.RunRecalculatePatterns(ctx, now)
}

// UpdateEffectiveness evaluates recent reminders
func (s *Svc) UpdateEffectiveness(ctx context.Context, now time.Time) (remdomain.EffectivenessReport, error) {
	return s.cfg.Reminders.RunEffectiveness(ctx, now)
}

// WeeklyRecap pushes each active member their per-group entry count for
// the past week. The notifier dedupes on the ISO week label, so re-runs
// within the same week are no-ops.
func (s *Svc) WeeklyRecap(ctx context.Context, now time.Time) (domain.RecapReport, error) {
	var rows []domain.RecapRow
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		rows, err = s.binder.Bind(q).RecapRows(ctx, now.Add(-recapWindow), now)
		return err
	})
	if err != nil {
		return domain.RecapReport{}, err
	}

	// quiet groups get no recap at all
	totals := map[string]int{}
	for _, row := range rows {
		totals[row.GroupID] += row.Entries
	}

	year, wk := now.UTC().ISOWeek()
	week := fmt.Sprintf("%04d-W%02d", year, wk)

	var report domain.RecapReport
	seen := map[string]bool{}
	log := logger.C(ctx)
	for _, row := range rows {
		if !seen[row.GroupID] {
			seen[row.GroupID] = true
			report.Groups++
		}
		if totals[row.GroupID] == 0 {
			report.Skipped++
			continue
		}
		sent, err := s.cfg.Recap.WeeklyRecap(ctx, row.UserID, row.GroupID, row.GroupName, week, row.Entries)
		if err != nil {
			log.Warn().Err(err).
				Str("user_id", row.UserID).
				Str("group_id", row.GroupID).
				Msg("weekly recap delivery failed")
			report.Skipped++
			continue
		}
		if sent {
			report.Notified++
		} else {
			report.Skipped++
		}
	}
	return report, nil
}
