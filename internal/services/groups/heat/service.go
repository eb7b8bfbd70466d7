// Package heat serves group heat reads and runs the daily recalculation
package heat

import (
	"context"
	"time"

	heatcore "pursue/internal/core/heat"
	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/platform/logger"
	"pursue/internal/services/groups/domain"
	subsdomain "pursue/internal/services/subscriptions/domain"
)

// History query bounds
const (
	defaultHistoryDays = 30
	maxHistoryDays     = 90
)

// Config carries the ports the heat views consult
type Config struct {
	Guards       domain.GuardsPort
	Entitlements domain.EntitlementsPort
	// Params tunes the scoring model; the zero value means defaults
	Params heatcore.Params
}

// Svc implements domain.HeatPort
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[domain.HeatStorage]
	cfg    Config
	now    func() time.Time
}

var _ domain.HeatPort = (*Svc)(nil)

// New constructs the heat engine
func New(db repokit.TxRunner, binder repokit.Binder[domain.HeatStorage], cfg Config) *Svc {
	if db == nil {
		panic("heat engine requires a database")
	}
	if binder == nil {
		panic("heat engine requires a storage binder")
	}
	if cfg.Guards == nil {
		panic("heat engine requires the groups guards port")
	}
	if cfg.Entitlements == nil {
		panic("heat engine requires the subscriptions entitlements port")
	}
	if cfg.Params == (heatcore.Params{}) {
		cfg.Params = heatcore.Default()
	}
	return &Svc{db: db, binder: binder, cfg: cfg, now: time.Now}
}

// Current returns the live heat row for any member
func (s *Svc) Current(ctx context.Context, userID, groupID string) (domain.HeatNow, error) {
	if _, err := s.cfg.Guards.Member(ctx, userID, groupID); err != nil {
		return domain.HeatNow{}, err
	}

	var out domain.HeatNow
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		h, found, err := s.binder.Bind(q).HeatFor(ctx, groupID)
		if err != nil {
			return err
		}
		if !found {
			// groups made before their first heat run read as cold
			out = domain.HeatNow{GroupID: groupID, TierName: heatcore.TierName(0)}
			return nil
		}
		out = domain.HeatNow{
			GroupID:      h.GroupID,
			Score:        h.Score,
			Tier:         h.Tier,
			TierName:     heatcore.TierName(h.Tier),
			StreakDays:   h.StreakDays,
			PeakScore:    h.PeakScore,
			PeakDate:     h.PeakDate,
			CalculatedAt: h.LastCalculatedAt,
		}
		return nil
	})
	return out, err
}

// History returns the premium day-by-day view with rolling stats
func (s *Svc) History(ctx context.Context, userID, groupID string, days int) (domain.HeatHistory, error) {
	if _, err := s.cfg.Guards.Member(ctx, userID, groupID); err != nil {
		return domain.HeatHistory{}, err
	}
	ent, err := s.cfg.Entitlements.Entitlement(ctx, userID)
	if err != nil {
		return domain.HeatHistory{}, err
	}
	if ent.Tier != subsdomain.TierPremium {
		upErr := perr.Reasoned(perr.ErrorCodeForbidden, "UPGRADE_REQUIRED",
			"heat history is a premium feature")
		return domain.HeatHistory{}, perr.WithMeta(upErr, map[string]any{"upgrade_required": true})
	}

	if days <= 0 {
		days = defaultHistoryDays
	}
	if days > maxHistoryDays {
		days = maxHistoryDays
	}

	var out domain.HeatHistory
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		rows, err := s.binder.Bind(q).HeatHistoryDays(ctx, groupID, days)
		if err != nil {
			return err
		}
		out = summarize(groupID, rows)
		return nil
	})
	return out, err
}

// RunDaily folds yesterday into every group's heat state. Groups already
// stamped today are skipped, which makes reruns of the job harmless
func (s *Svc) RunDaily(ctx context.Context, now time.Time) (domain.HeatReport, error) {
	var rows []domain.HeatJobRow
	if err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		rows, err = s.binder.Bind(q).GroupsForHeat(ctx, now)
		return err
	}); err != nil {
		return domain.HeatReport{}, err
	}

	log := logger.C(ctx)
	yesterday := dateOnly(now.UTC().AddDate(0, 0, -1))

	var rep domain.HeatReport
	for _, row := range rows {
		if row.Prev.LastCalculatedAt != nil && sameDay(*row.Prev.LastCalculatedAt, now) {
			rep.GroupsSkipped++
			continue
		}

		gcr := heatcore.GCR(row.PairsLogged, row.Members, row.Goals)
		res := heatcore.Update(s.cfg.Params, heatcore.Inputs{
			GCR:          gcr,
			Baseline:     row.Prev.BaselineGCR,
			Velocity:     float64(row.WeekActivities) / 7,
			MemberGrowth: memberGrowth(row.Members, row.MembersWeekAgo),
			PrevScore:    row.Prev.Score,
			PrevStreak:   row.Prev.StreakDays,
			PrevPeak:     row.Prev.PeakScore,
		})

		peakDate := row.Prev.PeakDate
		if res.NewPeak {
			peakDate = &yesterday
		}
		stamp := now
		next := domain.HeatRow{
			GroupID:          row.GroupID,
			Score:            res.Score,
			Tier:             res.Tier,
			StreakDays:       res.StreakDays,
			PeakScore:        res.PeakScore,
			PeakDate:         peakDate,
			LastCalculatedAt: &stamp,
			YesterdayGCR:     gcr,
			BaselineGCR:      res.Baseline,
		}

		err := s.db.Tx(ctx, func(q repokit.Queryer) error {
			st := s.binder.Bind(q)
			if err := st.SaveHeat(ctx, next); err != nil {
				return err
			}
			return st.InsertHeatDay(ctx, row.GroupID, domain.HeatDay{
				Date:  yesterday,
				Score: res.Score,
				Tier:  res.Tier,
				GCR:   gcr,
			})
		})
		if err != nil {
			// one bad group must not sink the whole run
			log.Error().Err(err).Str("group_id", row.GroupID).Msg("heat: save failed")
			continue
		}
		rep.GroupsProcessed++
	}

	log.Info().
		Int("processed", rep.GroupsProcessed).
		Int("skipped", rep.GroupsSkipped).
		Msg("heat: daily run complete")
	return rep, nil
}

// summarize derives the rolling stats clients chart over the history
func summarize(groupID string, days []domain.HeatDay) domain.HeatHistory {
	out := domain.HeatHistory{GroupID: groupID, Days: days, Trend: "steady"}
	if len(days) == 0 {
		out.Days = []domain.HeatDay{}
		return out
	}

	out.Avg7 = avgWindow(days, len(days)-7, len(days))
	out.Avg30 = avgWindow(days, len(days)-30, len(days))

	last := avgWindow(days, len(days)-7, len(days))
	prior := avgWindow(days, len(days)-14, len(days)-7)
	if len(days) > 7 {
		switch {
		case last-prior > 2:
			out.Trend = "rising"
		case prior-last > 2:
			out.Trend = "falling"
		}
	}
	return out
}

// avgWindow averages scores over days[from:to), clamping the bounds
func avgWindow(days []domain.HeatDay, from, to int) float64 {
	from = max(from, 0)
	to = min(to, len(days))
	if from >= to {
		return 0
	}
	sum := 0.0
	for _, d := range days[from:to] {
		sum += d.Score
	}
	return sum / float64(to-from)
}

// memberGrowth is the fractional member delta over the trailing week
func memberGrowth(now, then int) float64 {
	return float64(now-then) / float64(max(then, 1))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
