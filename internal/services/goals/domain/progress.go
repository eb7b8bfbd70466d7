package domain

// Pure progress math: moderation visibility, period expectations, and
// range aggregation. Everything here is deterministic so the formulas
// stay testable without a database.

import (
	"math"
	"time"

	"pursue/internal/core/period"
)

// Milestones are the per-(goal,user) entry counts that earn a feed shout
var Milestones = [...]int{1, 7, 30, 100, 365}

// MilestoneHit reports whether an entry count lands on a milestone
func MilestoneHit(n int) bool {
	for _, m := range Milestones {
		if n == m {
			return true
		}
	}
	return false
}

// CanSee applies the moderation overlay: owners always see their own
// rows, everyone else only clean ones
func CanSee(viewerID string, e Entry) bool {
	if e.UserID != nil && *e.UserID == viewerID {
		return true
	}
	return e.ModerationStatus == ModerationOK
}

// CountsByEntry reports whether a metric measures completion by entry
// count rather than by summed value
func CountsByEntry(metric string) bool {
	return metric == MetricBinary || metric == MetricJournal
}

// ExpectedPeriods counts the buckets of the goal's cadence inside
// [from, to]. Daily goals honor the active-day mask
func ExpectedPeriods(g Goal, from, to time.Time) int {
	if g.Cadence == string(period.Daily) && g.ActiveDays != nil && *g.ActiveDays != period.AllDays {
		n := 0
		for d := period.Date(from); !d.After(period.Date(to)); d = d.AddDate(0, 0, 1) {
			if period.ActiveOn(*g.ActiveDays, d) {
				n++
			}
		}
		return n
	}
	return period.CountInRange(period.Cadence(g.Cadence), from, to)
}

// Aggregate folds one member's entries on one goal into range totals.
// Entries are assumed to belong to the goal and the range
func Aggregate(g Goal, entries []Entry, from, to time.Time) GoalAggregate {
	agg := GoalAggregate{
		GoalID:      g.ID,
		Title:       g.Title,
		Cadence:     g.Cadence,
		MetricType:  g.MetricType,
		Unit:        g.Unit,
		TargetValue: g.TargetValue,
		Entries:     len(entries),
	}
	if CountsByEntry(g.MetricType) {
		agg.Completed = float64(len(entries))
	} else {
		for _, e := range entries {
			agg.Completed += e.Value
		}
	}

	perPeriod := 1.0
	if !CountsByEntry(g.MetricType) && g.TargetValue != nil && *g.TargetValue > 0 {
		perPeriod = *g.TargetValue
	}
	agg.Total = perPeriod * float64(ExpectedPeriods(g, from, to))
	agg.Percentage = Percentage(agg.Completed, agg.Total)
	return agg
}

// Percentage clamps round(100*completed/total) into [0,100]; a zero
// total reads zero
func Percentage(completed, total float64) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(100 * completed / total))
	return min(max(p, 0), 100)
}
