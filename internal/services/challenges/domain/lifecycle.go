package domain

import (
	"time"

	goalsdomain "pursue/internal/services/goals/domain"
	groupsdomain "pursue/internal/services/groups/domain"
)

// InitialStatus is the lifecycle state a challenge is born in: active
// when it starts today, upcoming when it starts later
func InitialStatus(start, today time.Time) string {
	if start.After(today) {
		return groupsdomain.ChallengeUpcoming
	}
	return groupsdomain.ChallengeActive
}

// Cancellable reports whether the status still allows a cancel
func Cancellable(status string) bool {
	return status == groupsdomain.ChallengeUpcoming || status == groupsdomain.ChallengeActive
}

// BuildSeeds merges template goals with any extra submitted ones, the
// template's first
func BuildSeeds(tpl *Template, extra []groupsdomain.GoalSeed) []SeedGoal {
	var out []SeedGoal
	if tpl != nil {
		for _, g := range tpl.Goals {
			id := g.ID
			out = append(out, SeedGoal{
				Title:          g.Title,
				Description:    g.Description,
				Cadence:        g.Cadence,
				MetricType:     g.MetricType,
				TargetValue:    g.TargetValue,
				Unit:           g.Unit,
				TemplateGoalID: &id,
			})
		}
	}
	for _, g := range extra {
		out = append(out, SeedGoal{
			Title:       g.Title,
			Description: g.Description,
			Cadence:     g.Cadence,
			MetricType:  g.MetricType,
			TargetValue: g.TargetValue,
			Unit:        g.Unit,
		})
	}
	return out
}

// CompletionSummary computes every member's overall completion rate over
// the challenge window: completed units summed across the goals against
// the summed expectation, clamped 0..100. Members without entries still
// get a result
func CompletionSummary(goals []goalsdomain.Goal, entries []goalsdomain.Entry, memberIDs []string, from, to time.Time) []MemberResult {
	byMember := make(map[string][]goalsdomain.Entry, len(memberIDs))
	for _, e := range entries {
		if e.UserID == nil {
			continue
		}
		byMember[*e.UserID] = append(byMember[*e.UserID], e)
	}

	out := make([]MemberResult, 0, len(memberIDs))
	for _, id := range memberIDs {
		var completed, total float64
		for _, g := range goals {
			agg := goalsdomain.Aggregate(g, entriesFor(byMember[id], g.ID), from, to)
			completed += agg.Completed
			total += agg.Total
		}
		out = append(out, MemberResult{UserID: id, Percentage: goalsdomain.Percentage(completed, total)})
	}
	return out
}

func entriesFor(entries []goalsdomain.Entry, goalID string) []goalsdomain.Entry {
	var out []goalsdomain.Entry
	for _, e := range entries {
		if e.GoalID == goalID {
			out = append(out, e)
		}
	}
	return out
}
