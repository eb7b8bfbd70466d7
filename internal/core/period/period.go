// Package period implements cadence bucketing for goal progress.
//
// A bucket is the canonical start date of the period a progress entry lands
// in. Bucketing operates on calendar dates only; callers resolve the user's
// local date first, so the same date always maps to the same bucket
// regardless of timezone.
package period

import (
	"time"
)

// Cadence is the interval a goal's target is measured over.
type Cadence string

const (
	Daily   Cadence = "daily"
	Weekly  Cadence = "weekly"
	Monthly Cadence = "monthly"
	Yearly  Cadence = "yearly"
)

// Valid reports whether c is a recognized cadence.
func (c Cadence) Valid() bool {
	switch c {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// String returns the wire form of the cadence.
func (c Cadence) String() string { return string(c) }

// Date pins a calendar date to midnight UTC, discarding clock and zone.
// All bucket math happens on these normalized instants.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Start returns the bucket start for date d under cadence c:
// the date itself (daily), the Monday of d's ISO week (weekly),
// the first of the month (monthly), or January 1 (yearly).
// Unknown cadences fall back to daily.
func Start(c Cadence, d time.Time) time.Time {
	d = Date(d)
	switch c {
	case Weekly:
		// Weekday() has Sunday=0; shift so Monday=0
		back := (int(d.Weekday()) + 6) % 7
		return d.AddDate(0, 0, -back)
	case Monthly:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	case Yearly:
		return time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return d
	}
}

// Next returns the start of the bucket immediately after the one containing d.
func Next(c Cadence, d time.Time) time.Time {
	s := Start(c, d)
	switch c {
	case Weekly:
		return s.AddDate(0, 0, 7)
	case Monthly:
		return s.AddDate(0, 1, 0)
	case Yearly:
		return s.AddDate(1, 0, 0)
	default:
		return s.AddDate(0, 0, 1)
	}
}

// CountInRange returns how many buckets of cadence c intersect [from, to].
// Used when a per-period target is reported over a longer range.
func CountInRange(c Cadence, from, to time.Time) int {
	from, to = Date(from), Date(to)
	if to.Before(from) {
		return 0
	}
	n := 0
	for cur := Start(c, from); !cur.After(to); cur = Next(c, cur) {
		n++
	}
	return n
}

// AllDays is the active-day mask with every weekday set.
const AllDays = 0x7F

// DayBit returns the mask bit for d's weekday, Monday = bit 0 through
// Sunday = bit 6.
func DayBit(d time.Time) int {
	return 1 << ((int(d.Weekday()) + 6) % 7)
}

// ActiveOn reports whether the active-day mask includes d's weekday.
// A zero mask means "unset" and counts every day, same as AllDays.
func ActiveOn(mask int, d time.Time) bool {
	if mask <= 0 {
		return true
	}
	return mask&DayBit(d) != 0
}

// ValidMask reports whether mask is usable as an active-day mask:
// zero (unset) or any non-empty subset of the seven weekday bits.
func ValidMask(mask int) bool {
	return mask >= 0 && mask <= AllDays
}

// ActiveDayCount returns the number of weekdays set in mask, treating an
// unset mask as all seven.
func ActiveDayCount(mask int) int {
	if mask <= 0 || mask > AllDays {
		return 7
	}
	n := 0
	for b := 0; b < 7; b++ {
		if mask&(1<<b) != 0 {
			n++
		}
	}
	return n
}
