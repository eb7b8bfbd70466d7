package domain

// LearnBand finds the densest 2-hour window in a per-hour histogram of
// user-local log times, treating the clock as circular so a 23:00-01:00
// habit is one band. It returns the half-open band [start, end) and a
// confidence in [0, 1] from concentration and sample size. ok is false
// when the histogram holds fewer than MinSamples entries.
func LearnBand(hourCounts [24]int) (start, end int, confidence float64, ok bool) {
	total := 0
	for _, n := range hourCounts {
		total += n
	}
	if total < MinSamples {
		return 0, 0, 0, false
	}

	bestStart, bestCount := 0, -1
	for h := 0; h < 24; h++ {
		c := hourCounts[h] + hourCounts[(h+1)%24]
		if c > bestCount {
			bestStart, bestCount = h, c
		}
	}

	// concentration = share of samples inside the band; sample factor
	// saturates at 20 entries so a long history stops moving the score
	concentration := float64(bestCount) / float64(total)
	sampleFactor := float64(total) / 20
	if sampleFactor > 1 {
		sampleFactor = 1
	}
	return bestStart, (bestStart + 2) % 24, concentration * sampleFactor, true
}

// widen returns how many hours the aggressiveness setting adds before the
// band start and after the band end
func widen(aggressiveness string) (before, after int) {
	switch aggressiveness {
	case AggGentle:
		return 0, 0
	case AggAggressive:
		return 1, 2
	default:
		return 0, 1
	}
}

// inBand reports whether hour lies in the half-open circular band
// [start, end). An empty band (start == end) matches nothing.
func inBand(hour, start, end int) bool {
	if start == end {
		return false
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// InQuietHours reports whether hour falls inside the user's do-not-disturb
// window, which wraps around midnight when start > end. start == end means
// no quiet hours.
func InQuietHours(hour, start, end int) bool {
	if start == end {
		return false
	}
	return inBand(hour, start, end)
}

// SendWindow resolves the hours a reminder may fire in for the given
// preference. Smart mode needs a learned pattern; fixed mode anchors on
// fixed_hour. ok is false when the mode has nothing to anchor on.
func SendWindow(pref Preference, pat *Pattern) (start, end int, ok bool) {
	switch pref.Mode {
	case ModeFixed:
		if pref.FixedHour == nil {
			return 0, 0, false
		}
		start, end = *pref.FixedHour, *pref.FixedHour+1
	default:
		if pat == nil {
			return 0, 0, false
		}
		start, end = pat.HourStart, pat.HourEnd
	}
	before, after := widen(pref.Aggressiveness)
	return ((start-before)%24 + 24) % 24, (end + after) % 24, true
}

// Eligible reports whether a reminder may fire at the user's local hour:
// the preference is enabled, the hour is inside the resolved send window,
// and outside quiet hours.
func Eligible(localHour int, pref Preference, pat *Pattern) bool {
	if !pref.Enabled {
		return false
	}
	start, end, ok := SendWindow(pref, pat)
	if !ok || !inBand(localHour, start, end) {
		return false
	}
	return !InQuietHours(localHour, pref.QuietStart, pref.QuietEnd)
}
