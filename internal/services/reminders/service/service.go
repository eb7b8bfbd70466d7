// Package service implements reminder preferences and the three scheduled
// runs: pattern learning, dispatch, and effectiveness evaluation
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pursue/internal/core/period"
	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/platform/logger"
	"pursue/internal/services/reminders/domain"
)

// Config carries the cross-module ports. Notifier may be nil in tests;
// dispatch then records sends without delivering them
type Config struct {
	Guards   domain.GroupGuardPort
	Notifier domain.NotifierPort
}

// Svc implements domain.ServicePort
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[domain.Storage]
	cfg    Config
	now    func() time.Time
}

var _ domain.ServicePort = (*Svc)(nil)

// New constructs the reminders service
func New(db repokit.TxRunner, binder repokit.Binder[domain.Storage], cfg Config) *Svc {
	if db == nil {
		panic("reminders service requires a database")
	}
	if binder == nil {
		panic("reminders service requires a storage binder")
	}
	if cfg.Guards == nil {
		panic("reminders service requires the groups guard port")
	}
	return &Svc{db: db, binder: binder, cfg: cfg, now: time.Now}
}

// Preferences lists the caller's explicit per-goal settings. Goals without
// a row follow the defaults and are not listed.
func (s *Svc) Preferences(ctx context.Context, userID string) ([]domain.Preference, error) {
	var out []domain.Preference
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.binder.Bind(q).PreferencesForUser(ctx, userID)
		return err
	})
	return out, err
}

// SetPreference upserts the caller's settings for one goal. Unset input
// fields keep their defaults rather than the previous row's values, so a
// PUT is a full replace of the settable surface.
func (s *Svc) SetPreference(ctx context.Context, userID, goalID string, in domain.PreferenceInput) (domain.Preference, error) {
	if uuid.Validate(goalID) != nil {
		return domain.Preference{}, perr.NotFoundf("goal not found")
	}
	next := domain.DefaultPreference(goalID)
	if in.Enabled != nil {
		next.Enabled = *in.Enabled
	}
	if in.Mode != "" {
		next.Mode = in.Mode
	}
	next.FixedHour = in.FixedHour
	if in.Aggressiveness != "" {
		next.Aggressiveness = in.Aggressiveness
	}
	if in.QuietStart != nil {
		next.QuietStart = *in.QuietStart
	}
	if in.QuietEnd != nil {
		next.QuietEnd = *in.QuietEnd
	}
	if next.Mode == domain.ModeFixed && next.FixedHour == nil {
		return domain.Preference{}, perr.InvalidArgf("fixed mode requires fixed_hour")
	}

	var out domain.Preference
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)
		groupID, ok, err := st.GoalGroup(ctx, goalID)
		if err != nil {
			return err
		}
		if !ok {
			return perr.NotFoundf("goal not found")
		}
		if _, err := s.cfg.Guards.ActiveMember(ctx, userID, groupID); err != nil {
			return err
		}
		out, err = st.UpsertPreference(ctx, userID, goalID, next)
		return err
	})
	return out, err
}

// RunRecalculatePatterns relearns the typical logging band for every
// (user, goal) pair with enough recent history, then prunes rows the run
// did not refresh
func (s *Svc) RunRecalculatePatterns(ctx context.Context, now time.Time) (domain.PatternReport, error) {
	var report domain.PatternReport
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)
		samples, err := st.HourSamples(ctx, now.Add(-domain.PatternLookback))
		if err != nil {
			return err
		}

		type key struct{ user, goal string }
		hists := map[key]*[24]int{}
		for _, smp := range samples {
			k := key{smp.UserID, smp.GoalID}
			h := hists[k]
			if h == nil {
				h = &[24]int{}
				hists[k] = h
			}
			if smp.Hour >= 0 && smp.Hour < 24 {
				h[smp.Hour] += smp.Count
			}
		}
		report.Pairs = len(hists)

		for k, h := range hists {
			start, end, conf, ok := domain.LearnBand(*h)
			if !ok {
				continue
			}
			total := 0
			for _, n := range h {
				total += n
			}
			p := domain.Pattern{
				UserID:     k.user,
				GoalID:     k.goal,
				HourStart:  start,
				HourEnd:    end,
				Confidence: conf,
				SampleSize: total,
			}
			if err := st.UpsertPattern(ctx, p, now); err != nil {
				return err
			}
			report.Learned++
		}

		report.Removed, err = st.DeletePatternsBefore(ctx, now)
		return err
	})
	return report, err
}

// RunDispatch sends a reminder to every (user, goal) pair whose local
// clock sits in its send window and whose current period has no entry
// yet. The dedupe key makes re-runs within a period no-ops.
func (s *Svc) RunDispatch(ctx context.Context, now time.Time) (domain.DispatchReport, error) {
	var (
		report domain.DispatchReport
		due    []domain.Candidate
		starts []time.Time
	)
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)
		cands, err := st.Candidates(ctx)
		if err != nil {
			return err
		}
		report.Candidates = len(cands)

		for _, c := range cands {
			local := localTime(now, c.Timezone)
			if !domain.Eligible(local.Hour(), c.Pref, c.Pattern) {
				report.Skipped++
				continue
			}
			if c.Cadence == period.Daily && !period.ActiveOn(c.ActiveDays, local) {
				report.Skipped++
				continue
			}
			start := period.Start(c.Cadence, local)
			done, err := st.EntryExists(ctx, c.GoalID, c.UserID, start)
			if err != nil {
				return err
			}
			if done {
				report.Skipped++
				continue
			}
			inserted, err := st.InsertReminderLog(
				ctx, c.UserID, c.GoalID, domain.DedupeKey(c.UserID, c.GoalID, start), start, now,
			)
			if err != nil {
				return err
			}
			if !inserted {
				report.Skipped++
				continue
			}
			report.Sent++
			due = append(due, c)
			starts = append(starts, start)
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	// deliver after the log rows commit; a failed push is logged and the
	// dedupe row still prevents a duplicate on the next sweep
	if s.cfg.Notifier != nil {
		log := logger.C(ctx)
		for i, c := range due {
			if err := s.cfg.Notifier.ReminderDue(ctx, c.UserID, c.GoalID, c.GoalTitle, c.GroupID); err != nil {
				log.Warn().Err(err).
					Str("user_id", c.UserID).
					Str("goal_id", c.GoalID).
					Time("period_start", starts[i]).
					Msg("reminder delivery failed")
			}
		}
	}
	return report, nil
}

// RunEffectiveness stamps reminders from the last week with whether a
// progress entry followed within the follow-up window
func (s *Svc) RunEffectiveness(ctx context.Context, now time.Time) (domain.EffectivenessReport, error) {
	var report domain.EffectivenessReport
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		report.Evaluated, report.Effective, err = s.binder.Bind(q).EvaluateEffectiveness(
			ctx, now.Add(-domain.EffectivenessLookback), now, domain.EffectivenessWindow,
		)
		return err
	})
	return report, err
}

// localTime shifts an instant into the named zone, falling back to UTC on
// unknown zones
func localTime(t time.Time, tz string) time.Time {
	loc, err := time.LoadLocation(tz)
	if err != nil || tz == "" {
		return t.UTC()
	}
	return t.In(loc)
}
