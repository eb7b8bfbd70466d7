// Package heat computes the daily group heat score.
//
// Heat is a scalar in [0,100] summarizing how alive a group felt yesterday,
// bucketed into ten named tiers. The daily job feeds each group's raw
// counters through Update; everything here is pure math so the blend is
// testable without a database.
package heat

// Params are the tunable constants of the blend. The baseline half-life and
// the velocity/growth scales are deliberate choices, not givens: Default
// documents the values the service ships with.
type Params struct {
	// Alpha is the EWMA weight on the newest GCR sample when advancing the
	// baseline. 0.15 gives the baseline a half-life of about 4.3 days.
	Alpha float64

	// Blend weights. They should sum to 1; Update does not renormalize.
	UpliftWeight   float64
	VelocityWeight float64
	GrowthWeight   float64

	// VelocitySaturation is the activities-per-day rate at which the
	// velocity term maxes out.
	VelocitySaturation float64

	// GrowthScale multiplies the fractional member delta; growth of
	// 1/GrowthScale maxes the growth term.
	GrowthScale float64

	// Smoothing is the weight of the prior score in the final blend,
	// so 0.5 means half yesterday's score, half today's signal.
	Smoothing float64

	// StreakFloor is the score that sustains a streak; the tier-2 boundary.
	StreakFloor float64
}

// Default returns the shipped constants.
func Default() Params {
	return Params{
		Alpha:              0.15,
		UpliftWeight:       0.60,
		VelocityWeight:     0.25,
		GrowthWeight:       0.15,
		VelocitySaturation: 10,
		GrowthScale:        5,
		Smoothing:          0.5,
		StreakFloor:        20,
	}
}

// Inputs are one group's counters for a single heat day.
type Inputs struct {
	// GCR is yesterday's goal-completion rate in [0,1]: the fraction of
	// (member x goal) pairs with a progress entry in the goal's
	// yesterday-bucket.
	GCR float64

	// Baseline is the persisted EWMA of past GCR samples.
	Baseline float64

	// Velocity is activities per day averaged over the trailing week.
	Velocity float64

	// MemberGrowth is the fractional member delta over the trailing week,
	// (now - then) / max(then, 1). Negative when members leave.
	MemberGrowth float64

	PrevScore  float64
	PrevStreak int
	PrevPeak   float64
}

// Result is the state to persist after folding in one day.
type Result struct {
	Score      float64
	Tier       int
	Baseline   float64
	StreakDays int
	PeakScore  float64
	// NewPeak is set when Score beat PrevPeak; the caller stamps peak_date.
	NewPeak bool
}

// Update folds one day of activity into a group's heat state.
//
// The uplift term anchors on the absolute GCR plus its delta against the
// baseline, so a steadily perfect group stays hot while a decline cools it:
// uplift = clamp01(gcr + (gcr - baseline)). Velocity and growth saturate at
// their configured scales. The three terms blend to a 0..100 signal which is
// then smoothed against the prior score and clipped.
func Update(p Params, in Inputs) Result {
	gcr := clamp01(in.GCR)
	base := clamp01(in.Baseline)

	uplift := clamp01(2*gcr - base)

	velocity := 0.0
	if p.VelocitySaturation > 0 {
		velocity = clamp01(in.Velocity / p.VelocitySaturation)
	}

	growth := clamp01(in.MemberGrowth * p.GrowthScale)

	signal := 100 * (p.UpliftWeight*uplift + p.VelocityWeight*velocity + p.GrowthWeight*growth)
	score := p.Smoothing*in.PrevScore + (1-p.Smoothing)*signal
	if score < 0 {
		score = 0
	} else if score > 100 {
		score = 100
	}

	streak := 0
	if score >= p.StreakFloor {
		streak = in.PrevStreak + 1
	}

	peak, newPeak := in.PrevPeak, false
	if score > peak {
		peak, newPeak = score, true
	}

	return Result{
		Score:      score,
		Tier:       TierOf(score),
		Baseline:   (1-p.Alpha)*base + p.Alpha*gcr,
		StreakDays: streak,
		PeakScore:  peak,
		NewPeak:    newPeak,
	}
}

// GCR computes pairsLogged / (members * goals), guarding empty groups.
func GCR(pairsLogged, members, goals int) float64 {
	denom := members * goals
	if denom <= 0 {
		return 0
	}
	return clamp01(float64(pairsLogged) / float64(denom))
}

// TierOf buckets a score into tiers 0..9. A perfect 100 stays tier 9.
func TierOf(score float64) int {
	t := int(score / 10)
	if t > 9 {
		t = 9
	}
	if t < 0 {
		t = 0
	}
	return t
}

var tierNames = [10]string{
	"Cold", "Spark", "Ember", "Flicker", "Steady",
	"Warm", "Hot", "Blazing", "Inferno", "Supernova",
}

// TierName returns the display name for a tier, clamping out-of-range input.
func TierName(tier int) string {
	if tier < 0 {
		tier = 0
	}
	if tier > 9 {
		tier = 9
	}
	return tierNames[tier]
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
