package domain

import (
	"testing"
	"time"

	"pursue/internal/core/period"
)

func strp(s string) *string  { return &s }
func f64p(f float64) *float64 { return &f }
func intp(i int) *int        { return &i }

func TestCanSee(t *testing.T) {
	t.Parallel()

	owner := "11111111-1111-1111-1111-111111111111"
	other := "22222222-2222-2222-2222-222222222222"

	tests := []struct {
		name   string
		viewer string
		author *string
		status string
		want   bool
	}{
		{name: "owner sees ok", viewer: owner, author: &owner, status: ModerationOK, want: true},
		{name: "owner sees hidden", viewer: owner, author: &owner, status: ModerationHidden, want: true},
		{name: "owner sees removed", viewer: owner, author: &owner, status: ModerationRemoved, want: true},
		{name: "owner sees disputed", viewer: owner, author: &owner, status: ModerationDisputed, want: true},
		{name: "other sees ok", viewer: other, author: &owner, status: ModerationOK, want: true},
		{name: "other blocked from hidden", viewer: other, author: &owner, status: ModerationHidden, want: false},
		{name: "other blocked from removed", viewer: other, author: &owner, status: ModerationRemoved, want: false},
		{name: "other blocked from disputed", viewer: other, author: &owner, status: ModerationDisputed, want: false},
		{name: "ghost author reads as ok only", viewer: other, author: nil, status: ModerationHidden, want: false},
		{name: "ghost author clean row visible", viewer: other, author: nil, status: ModerationOK, want: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e := Entry{UserID: tc.author, ModerationStatus: tc.status}
			if got := CanSee(tc.viewer, e); got != tc.want {
				t.Fatalf("CanSee() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestExpectedPeriods(t *testing.T) {
	t.Parallel()

	// 2026-03-02 is a Monday
	mon := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		goal Goal
		from time.Time
		to   time.Time
		want int
	}{
		{
			name: "daily over two weeks",
			goal: Goal{Cadence: string(period.Daily)},
			from: mon, to: mon.AddDate(0, 0, 13),
			want: 14,
		},
		{
			name: "daily mask mon wed fri over two weeks",
			goal: Goal{Cadence: string(period.Daily), ActiveDays: intp(0b0010101)},
			from: mon, to: mon.AddDate(0, 0, 13),
			want: 6,
		},
		{
			name: "all-days mask behaves like no mask",
			goal: Goal{Cadence: string(period.Daily), ActiveDays: intp(period.AllDays)},
			from: mon, to: mon.AddDate(0, 0, 6),
			want: 7,
		},
		{
			name: "weekly across a month edge",
			goal: Goal{Cadence: string(period.Weekly)},
			from: mon, to: mon.AddDate(0, 0, 20),
			want: 3,
		},
		{
			name: "monthly single bucket",
			goal: Goal{Cadence: string(period.Monthly)},
			from: mon, to: mon.AddDate(0, 0, 10),
			want: 1,
		},
		{
			name: "single day",
			goal: Goal{Cadence: string(period.Daily)},
			from: mon, to: mon,
			want: 1,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ExpectedPeriods(tc.goal, tc.from, tc.to); got != tc.want {
				t.Fatalf("ExpectedPeriods() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestAggregate(t *testing.T) {
	t.Parallel()

	mon := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	week := mon.AddDate(0, 0, 6)

	entriesOf := func(values ...float64) []Entry {
		out := make([]Entry, len(values))
		for i, v := range values {
			out[i] = Entry{Value: v, ModerationStatus: ModerationOK}
		}
		return out
	}

	tests := []struct {
		name       string
		goal       Goal
		entries    []Entry
		completed  float64
		total      float64
		percentage int
	}{
		{
			name:      "binary counts entries",
			goal:      Goal{MetricType: MetricBinary, Cadence: string(period.Daily)},
			entries:   entriesOf(1, 1, 1),
			completed: 3, total: 7, percentage: 43,
		},
		{
			name:      "journal counts entries too",
			goal:      Goal{MetricType: MetricJournal, Cadence: string(period.Daily)},
			entries:   entriesOf(1, 1, 1, 1, 1, 1, 1),
			completed: 7, total: 7, percentage: 100,
		},
		{
			name:      "numeric sums against target",
			goal:      Goal{MetricType: MetricNumeric, Cadence: string(period.Daily), TargetValue: f64p(20)},
			entries:   entriesOf(20, 10, 5),
			completed: 35, total: 140, percentage: 25,
		},
		{
			name:      "overachieving clamps at one hundred",
			goal:      Goal{MetricType: MetricDuration, Cadence: string(period.Daily), TargetValue: f64p(10)},
			entries:   entriesOf(50, 50, 50),
			completed: 150, total: 70, percentage: 100,
		},
		{
			name:      "numeric without target counts per period",
			goal:      Goal{MetricType: MetricNumeric, Cadence: string(period.Daily)},
			entries:   entriesOf(4, 2),
			completed: 6, total: 7, percentage: 86,
		},
		{
			name:      "no entries reads zero",
			goal:      Goal{MetricType: MetricBinary, Cadence: string(period.Daily)},
			entries:   nil,
			completed: 0, total: 7, percentage: 0,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			agg := Aggregate(tc.goal, tc.entries, mon, week)
			if agg.Completed != tc.completed {
				t.Fatalf("Completed = %v, want %v", agg.Completed, tc.completed)
			}
			if agg.Total != tc.total {
				t.Fatalf("Total = %v, want %v", agg.Total, tc.total)
			}
			if agg.Percentage != tc.percentage {
				t.Fatalf("Percentage = %d, want %d", agg.Percentage, tc.percentage)
			}
			if agg.Entries != len(tc.entries) {
				t.Fatalf("Entries = %d, want %d", agg.Entries, len(tc.entries))
			}
		})
	}
}

func TestPercentage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		completed float64
		total     float64
		want      int
	}{
		{name: "zero total reads zero", completed: 5, total: 0, want: 0},
		{name: "rounds half up", completed: 1, total: 3, want: 33},
		{name: "rounds up past half", completed: 2, total: 3, want: 67},
		{name: "exact", completed: 3, total: 4, want: 75},
		{name: "clamped above", completed: 9, total: 4, want: 100},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Percentage(tc.completed, tc.total); got != tc.want {
				t.Fatalf("Percentage(%v, %v) = %d, want %d", tc.completed, tc.total, got, tc.want)
			}
		})
	}
}

func TestMilestoneHit(t *testing.T) {
	t.Parallel()

	hits := map[int]bool{0: false, 1: true, 2: false, 7: true, 8: false, 30: true, 100: true, 365: true, 366: false}
	for n, want := range hits {
		if got := MilestoneHit(n); got != want {
			t.Fatalf("MilestoneHit(%d) = %v, want %v", n, got, want)
		}
	}
}
