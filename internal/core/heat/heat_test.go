package heat

import (
	"math"
	"testing"
)

func TestTierOf(t *testing.T) {
	tests := []struct {
		score float64
		want  int
	}{
		{0, 0},
		{9.99, 0},
		{10, 1},
		{19.9, 1},
		{20, 2},
		{55, 5},
		{99.9, 9},
		{100, 9},
		{-3, 0},
		{1000, 9},
	}
	for _, tc := range tests {
		if got := TierOf(tc.score); got != tc.want {
			t.Fatalf("TierOf(%v) = %d, want %d", tc.score, got, tc.want)
		}
	}
}

func TestTierName(t *testing.T) {
	want := []string{
		"Cold", "Spark", "Ember", "Flicker", "Steady",
		"Warm", "Hot", "Blazing", "Inferno", "Supernova",
	}
	for i, w := range want {
		if got := TierName(i); got != w {
			t.Fatalf("TierName(%d) = %q, want %q", i, got, w)
		}
	}
	if TierName(-1) != "Cold" || TierName(12) != "Supernova" {
		t.Fatal("out-of-range tiers should clamp")
	}
}

func TestGCR(t *testing.T) {
	tests := []struct {
		name                  string
		logged, members, goal int
		want                  float64
	}{
		{"half", 6, 3, 4, 0.5},
		{"perfect", 12, 3, 4, 1},
		{"overcount clamps", 20, 3, 4, 1},
		{"no goals", 0, 3, 0, 0},
		{"no members", 0, 0, 4, 0},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := GCR(tc.logged, tc.members, tc.goal); got != tc.want {
				t.Fatalf("GCR = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestUpdate_QuietDayDecays(t *testing.T) {
	p := Default()
	res := Update(p, Inputs{PrevScore: 80, PrevStreak: 5, PrevPeak: 92, Baseline: 0.4})

	// Nothing happened: signal is zero, score halves under 0.5 smoothing
	if res.Score != 40 {
		t.Fatalf("score = %v, want 40", res.Score)
	}
	if res.Tier != 4 {
		t.Fatalf("tier = %d, want 4", res.Tier)
	}
	// 40 still clears the streak floor
	if res.StreakDays != 6 {
		t.Fatalf("streak = %d, want 6", res.StreakDays)
	}
	if res.NewPeak || res.PeakScore != 92 {
		t.Fatalf("peak should hold at 92, got %v new=%v", res.PeakScore, res.NewPeak)
	}
	// Baseline drifts toward zero GCR
	if want := 0.4 * (1 - p.Alpha); math.Abs(res.Baseline-want) > 1e-9 {
		t.Fatalf("baseline = %v, want %v", res.Baseline, want)
	}
}

func TestUpdate_SteadyPerfectGroupStaysHot(t *testing.T) {
	p := Default()
	in := Inputs{GCR: 1, Baseline: 1, Velocity: 12, MemberGrowth: 0, PrevScore: 90}

	res := Update(p, in)
	// uplift 1.0 and velocity saturated: signal = 100*(0.6 + 0.25) = 85
	if want := 0.5*90 + 0.5*85; math.Abs(res.Score-want) > 1e-9 {
		t.Fatalf("score = %v, want %v", res.Score, want)
	}
	if res.Tier != 8 {
		t.Fatalf("tier = %d, want 8", res.Tier)
	}
}

func TestUpdate_UpliftRewardsBeatingBaseline(t *testing.T) {
	p := Default()
	improving := Update(p, Inputs{GCR: 0.6, Baseline: 0.3})
	declining := Update(p, Inputs{GCR: 0.3, Baseline: 0.6})
	steady := Update(p, Inputs{GCR: 0.45, Baseline: 0.45})

	if !(improving.Score > steady.Score && steady.Score > declining.Score) {
		t.Fatalf("want improving > steady > declining, got %v %v %v",
			improving.Score, steady.Score, declining.Score)
	}
}

func TestUpdate_ScoreClipsAtHundred(t *testing.T) {
	p := Default()
	res := Update(p, Inputs{GCR: 1, Baseline: 0, Velocity: 100, MemberGrowth: 1, PrevScore: 100})
	if res.Score != 100 {
		t.Fatalf("score = %v, want 100", res.Score)
	}
	if res.Tier != 9 {
		t.Fatalf("tier = %d, want 9", res.Tier)
	}
}

func TestUpdate_StreakResetsBelowFloor(t *testing.T) {
	p := Default()
	res := Update(p, Inputs{PrevScore: 30, PrevStreak: 9})
	// score = 15, under the floor of 20
	if res.Score != 15 {
		t.Fatalf("score = %v, want 15", res.Score)
	}
	if res.StreakDays != 0 {
		t.Fatalf("streak = %d, want 0", res.StreakDays)
	}
}

func TestUpdate_NewPeakFlag(t *testing.T) {
	p := Default()
	res := Update(p, Inputs{GCR: 1, Baseline: 0.2, Velocity: 10, MemberGrowth: 0.2, PrevScore: 60, PrevPeak: 70})
	if !res.NewPeak {
		t.Fatalf("expected a new peak, score %v vs prev peak 70", res.Score)
	}
	if res.PeakScore != res.Score {
		t.Fatalf("peak %v should equal score %v", res.PeakScore, res.Score)
	}
}

func TestUpdate_NegativeGrowthIgnored(t *testing.T) {
	p := Default()
	shrinking := Update(p, Inputs{GCR: 0.5, Baseline: 0.5, MemberGrowth: -0.5})
	flat := Update(p, Inputs{GCR: 0.5, Baseline: 0.5, MemberGrowth: 0})
	if shrinking.Score != flat.Score {
		t.Fatalf("negative growth should floor at zero: %v vs %v", shrinking.Score, flat.Score)
	}
}

func TestUpdate_BaselineEWMA(t *testing.T) {
	p := Default()
	res := Update(p, Inputs{GCR: 0.8, Baseline: 0.4})
	want := (1-p.Alpha)*0.4 + p.Alpha*0.8
	if math.Abs(res.Baseline-want) > 1e-9 {
		t.Fatalf("baseline = %v, want %v", res.Baseline, want)
	}
}

// Converging on the same inputs day after day should settle, not oscillate.
func TestUpdate_Converges(t *testing.T) {
	p := Default()
	in := Inputs{GCR: 0.7, Baseline: 0.2, Velocity: 5}
	var prev float64
	for i := 0; i < 60; i++ {
		res := Update(p, in)
		in.Baseline = res.Baseline
		in.PrevScore = res.Score
		in.PrevStreak = res.StreakDays
		prev = res.Score
	}
	// At steady state baseline == GCR, so uplift = gcr and
	// signal = 100*(0.6*0.7 + 0.25*0.5) = 54.5, the fixed point of smoothing
	if math.Abs(prev-54.5) > 0.5 {
		t.Fatalf("steady state score = %v, want ~54.5", prev)
	}
}
