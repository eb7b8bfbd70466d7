package domain

import (
	"testing"
	"time"

	goalsdomain "pursue/internal/services/goals/domain"
	groupsdomain "pursue/internal/services/groups/domain"
)

func strp(s string) *string   { return &s }
func f64p(f float64) *float64 { return &f }

func TestInitialStatus(t *testing.T) {
	t.Parallel()

	today := time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start time.Time
		want  string
	}{
		{name: "starts today", start: today, want: groupsdomain.ChallengeActive},
		{name: "starts tomorrow", start: today.AddDate(0, 0, 1), want: groupsdomain.ChallengeUpcoming},
		{name: "starts next month", start: today.AddDate(0, 1, 0), want: groupsdomain.ChallengeUpcoming},
		{name: "started yesterday", start: today.AddDate(0, 0, -1), want: groupsdomain.ChallengeActive},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := InitialStatus(tc.start, today); got != tc.want {
				t.Fatalf("InitialStatus() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCancellable(t *testing.T) {
	t.Parallel()

	want := map[string]bool{
		groupsdomain.ChallengeUpcoming:  true,
		groupsdomain.ChallengeActive:    true,
		groupsdomain.ChallengeCompleted: false,
		groupsdomain.ChallengeCancelled: false,
		"":                              false,
	}
	for status, ok := range want {
		if got := Cancellable(status); got != ok {
			t.Fatalf("Cancellable(%q) = %v, want %v", status, got, ok)
		}
	}
}

func TestBuildSeeds(t *testing.T) {
	t.Parallel()

	tpl := &Template{
		ID:   "33333333-3333-3333-3333-333333333333",
		Name: "Couch to 5K",
		Goals: []TemplateGoal{
			{ID: "aaaaaaaa-0000-0000-0000-000000000001", Title: "Run", Cadence: "daily", MetricType: "binary"},
			{ID: "aaaaaaaa-0000-0000-0000-000000000002", Title: "Stretch", Cadence: "weekly", MetricType: "numeric", TargetValue: f64p(3), Unit: strp("sessions")},
		},
	}
	extra := []groupsdomain.GoalSeed{
		{Title: "Journal the run", Cadence: "daily", MetricType: "journal"},
	}

	t.Run("template goals lead and keep their linkage", func(t *testing.T) {
		t.Parallel()
		seeds := BuildSeeds(tpl, extra)
		if len(seeds) != 3 {
			t.Fatalf("len(seeds) = %d, want 3", len(seeds))
		}
		for i, g := range tpl.Goals {
			if seeds[i].Title != g.Title {
				t.Fatalf("seeds[%d].Title = %q, want %q", i, seeds[i].Title, g.Title)
			}
			if seeds[i].TemplateGoalID == nil || *seeds[i].TemplateGoalID != g.ID {
				t.Fatalf("seeds[%d].TemplateGoalID = %v, want %q", i, seeds[i].TemplateGoalID, g.ID)
			}
		}
		if seeds[1].TargetValue == nil || *seeds[1].TargetValue != 3 {
			t.Fatalf("template target not carried: %v", seeds[1].TargetValue)
		}
		if seeds[1].Unit == nil || *seeds[1].Unit != "sessions" {
			t.Fatalf("template unit not carried: %v", seeds[1].Unit)
		}
		last := seeds[2]
		if last.Title != "Journal the run" || last.TemplateGoalID != nil {
			t.Fatalf("extra seed wrong: %+v", last)
		}
	})

	t.Run("template goal ids stay distinct", func(t *testing.T) {
		t.Parallel()
		seeds := BuildSeeds(tpl, nil)
		if *seeds[0].TemplateGoalID == *seeds[1].TemplateGoalID {
			t.Fatalf("template goal ids collapsed to %q", *seeds[0].TemplateGoalID)
		}
	})

	t.Run("no template keeps only extras", func(t *testing.T) {
		t.Parallel()
		seeds := BuildSeeds(nil, extra)
		if len(seeds) != 1 || seeds[0].Title != "Journal the run" {
			t.Fatalf("seeds = %+v", seeds)
		}
	})

	t.Run("nothing in nothing out", func(t *testing.T) {
		t.Parallel()
		if seeds := BuildSeeds(nil, nil); len(seeds) != 0 {
			t.Fatalf("seeds = %+v, want none", seeds)
		}
	})
}

func TestCompletionSummary(t *testing.T) {
	t.Parallel()

	// 2026-04-06 is a Monday, so the window is exactly one ISO week
	from := time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 6)

	alice := "11111111-1111-1111-1111-111111111111"
	bob := "22222222-2222-2222-2222-222222222222"
	carol := "33333333-3333-3333-3333-333333333333"

	goals := []goalsdomain.Goal{
		// seven expected entries over the week
		{ID: "g-walk", Cadence: "daily", MetricType: goalsdomain.MetricBinary},
		// one weekly bucket against a target of twenty
		{ID: "g-read", Cadence: "weekly", MetricType: goalsdomain.MetricNumeric, TargetValue: f64p(20)},
	}

	binaries := func(userID string, n int) []goalsdomain.Entry {
		out := make([]goalsdomain.Entry, n)
		for i := range n {
			out[i] = goalsdomain.Entry{GoalID: "g-walk", UserID: &userID, Value: 1, PeriodStart: from.AddDate(0, 0, i)}
		}
		return out
	}

	entries := binaries(alice, 6)
	entries = append(entries, goalsdomain.Entry{GoalID: "g-read", UserID: &alice, Value: 10, PeriodStart: from})
	entries = append(entries, goalsdomain.Entry{GoalID: "g-read", UserID: &alice, Value: 5, PeriodStart: from})
	entries = append(entries, binaries(bob, 7)...)
	entries = append(entries, goalsdomain.Entry{GoalID: "g-read", UserID: &bob, Value: 25, PeriodStart: from})
	// a deleted author's row must not land on anyone
	entries = append(entries, goalsdomain.Entry{GoalID: "g-read", UserID: nil, Value: 100, PeriodStart: from})
	// a stray goal outside the challenge is ignored
	entries = append(entries, goalsdomain.Entry{GoalID: "g-other", UserID: &alice, Value: 50, PeriodStart: from})

	got := CompletionSummary(goals, entries, []string{alice, bob, carol}, from, to)

	// alice: (6 + 15) of (7 + 20), bob clamps, carol logged nothing
	want := []MemberResult{
		{UserID: alice, Percentage: 78},
		{UserID: bob, Percentage: 100},
		{UserID: carol, Percentage: 0},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("result[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
