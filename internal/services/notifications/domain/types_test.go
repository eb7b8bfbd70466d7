package domain

import (
	"testing"
	"time"
)

func TestLocalDate(t *testing.T) {
	// 2025-03-10 01:30 UTC is still 2025-03-09 in New York but already
	// 2025-03-10 12:30 in Sydney
	now := time.Date(2025, 3, 10, 1, 30, 0, 0, time.UTC)

	cases := []struct {
		name string
		tz   string
		want string
	}{
		{"utc", "UTC", "2025-03-10"},
		{"behind", "America/New_York", "2025-03-09"},
		{"ahead", "Australia/Sydney", "2025-03-10"},
		{"empty falls back to utc", "", "2025-03-10"},
		{"garbage falls back to utc", "Not/AZone", "2025-03-10"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := LocalDate(now, tc.tz)
			if got.Format("2006-01-02") != tc.want {
				t.Fatalf("LocalDate(%q) = %s, want %s", tc.tz, got.Format("2006-01-02"), tc.want)
			}
			if h, m, s := got.Clock(); h+m+s != 0 || got.Location() != time.UTC {
				t.Fatalf("LocalDate(%q) not a midnight-UTC date: %v", tc.tz, got)
			}
		})
	}
}

func TestLocalDateMonotonicWithinZone(t *testing.T) {
	a := LocalDate(time.Date(2025, 6, 1, 0, 0, 1, 0, time.UTC), "Asia/Tokyo")
	b := LocalDate(time.Date(2025, 6, 1, 23, 59, 59, 0, time.UTC), "Asia/Tokyo")
	if b.Before(a) {
		t.Fatalf("later instant bucketed earlier: %v < %v", b, a)
	}
}
