package domain

import (
	"testing"
	"time"
)

func mustDate(t *testing.T, y, m, d int) time.Time {
	t.Helper()
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func hist(pairs ...int) [24]int {
	var h [24]int
	for i := 0; i+1 < len(pairs); i += 2 {
		h[pairs[i]] = pairs[i+1]
	}
	return h
}

func TestLearnBand(t *testing.T) {
	cases := []struct {
		name          string
		counts        [24]int
		wantStart     int
		wantEnd       int
		wantOK        bool
		minConfidence float64
		maxConfidence float64
	}{
		{
			name:   "too few samples",
			counts: hist(7, 2, 8, 2),
			wantOK: false,
		},
		{
			name:          "tight morning habit",
			counts:        hist(7, 10, 8, 10),
			wantStart:     7,
			wantEnd:       9,
			wantOK:        true,
			minConfidence: 0.99,
		},
		{
			name:          "wraps midnight",
			counts:        hist(23, 6, 0, 6),
			wantStart:     23,
			wantEnd:       1,
			wantOK:        true,
			minConfidence: 0.5,
		},
		{
			name:          "scattered logging scores low",
			counts:        hist(1, 2, 5, 2, 9, 2, 13, 2, 17, 2, 21, 2),
			wantStart:     0, // first maximal window wins on ties
			wantEnd:       2,
			wantOK:        true,
			maxConfidence: 0.35,
		},
		{
			name:          "small sample discounts confidence",
			counts:        hist(12, 5),
			wantStart:     11,
			wantEnd:       13,
			wantOK:        true,
			maxConfidence: 0.26,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start, end, conf, ok := LearnBand(tc.counts)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if !ok {
				return
			}
			if start != tc.wantStart || end != tc.wantEnd {
				t.Fatalf("band = [%d, %d), want [%d, %d)", start, end, tc.wantStart, tc.wantEnd)
			}
			if conf < 0 || conf > 1 {
				t.Fatalf("confidence %v out of [0, 1]", conf)
			}
			if tc.minConfidence > 0 && conf < tc.minConfidence {
				t.Fatalf("confidence %v, want >= %v", conf, tc.minConfidence)
			}
			if tc.maxConfidence > 0 && conf > tc.maxConfidence {
				t.Fatalf("confidence %v, want <= %v", conf, tc.maxConfidence)
			}
		})
	}
}

func TestLearnBandTieBreak(t *testing.T) {
	// hour 12 alone beats any window not containing it
	start, _, _, ok := LearnBand(hist(12, 20))
	if !ok {
		t.Fatal("expected a band")
	}
	if start != 11 && start != 12 {
		t.Fatalf("band start %d does not cover hour 12", start)
	}
}

func TestInQuietHours(t *testing.T) {
	cases := []struct {
		hour, start, end int
		want             bool
	}{
		{23, 22, 7, true},
		{3, 22, 7, true},
		{7, 22, 7, false}, // end is exclusive
		{12, 22, 7, false},
		{22, 22, 7, true},
		{10, 9, 17, true},
		{8, 9, 17, false},
		{5, 0, 0, false}, // start == end disables quiet hours
	}
	for _, tc := range cases {
		if got := InQuietHours(tc.hour, tc.start, tc.end); got != tc.want {
			t.Errorf("InQuietHours(%d, %d, %d) = %v, want %v", tc.hour, tc.start, tc.end, got, tc.want)
		}
	}
}

func intp(v int) *int { return &v }

func TestSendWindow(t *testing.T) {
	pat := &Pattern{HourStart: 7, HourEnd: 9}

	t.Run("smart without pattern has no window", func(t *testing.T) {
		if _, _, ok := SendWindow(DefaultPreference("g"), nil); ok {
			t.Fatal("expected no window")
		}
	})

	t.Run("fixed without hour has no window", func(t *testing.T) {
		p := DefaultPreference("g")
		p.Mode = ModeFixed
		if _, _, ok := SendWindow(p, nil); ok {
			t.Fatal("expected no window")
		}
	})

	t.Run("normal extends one hour after", func(t *testing.T) {
		start, end, ok := SendWindow(DefaultPreference("g"), pat)
		if !ok || start != 7 || end != 10 {
			t.Fatalf("window = [%d, %d) ok=%v, want [7, 10)", start, end, ok)
		}
	})

	t.Run("gentle keeps the band", func(t *testing.T) {
		p := DefaultPreference("g")
		p.Aggressiveness = AggGentle
		start, end, ok := SendWindow(p, pat)
		if !ok || start != 7 || end != 9 {
			t.Fatalf("window = [%d, %d) ok=%v, want [7, 9)", start, end, ok)
		}
	})

	t.Run("aggressive widens both sides and wraps", func(t *testing.T) {
		p := DefaultPreference("g")
		p.Aggressiveness = AggAggressive
		start, end, ok := SendWindow(p, &Pattern{HourStart: 0, HourEnd: 2})
		if !ok || start != 23 || end != 4 {
			t.Fatalf("window = [%d, %d) ok=%v, want [23, 4)", start, end, ok)
		}
	})

	t.Run("fixed anchors on the hour", func(t *testing.T) {
		p := DefaultPreference("g")
		p.Mode = ModeFixed
		p.FixedHour = intp(18)
		start, end, ok := SendWindow(p, nil)
		if !ok || start != 18 || end != 20 {
			t.Fatalf("window = [%d, %d) ok=%v, want [18, 20)", start, end, ok)
		}
	})
}

func TestEligible(t *testing.T) {
	pat := &Pattern{HourStart: 7, HourEnd: 9}

	base := DefaultPreference("g")
	cases := []struct {
		name string
		hour int
		pref func(Preference) Preference
		pat  *Pattern
		want bool
	}{
		{"in band", 8, nil, pat, true},
		{"normal widening catches the hour after", 9, nil, pat, true},
		{"outside band", 12, nil, pat, false},
		{"disabled", 8, func(p Preference) Preference { p.Enabled = false; return p }, pat, false},
		{"no pattern in smart mode", 8, nil, nil, false},
		{"quiet hours win over the band", 8, func(p Preference) Preference {
			p.QuietStart, p.QuietEnd = 6, 10
			return p
		}, pat, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pref := base
			if tc.pref != nil {
				pref = tc.pref(base)
			}
			if got := Eligible(tc.hour, pref, tc.pat); got != tc.want {
				t.Fatalf("Eligible(%d) = %v, want %v", tc.hour, got, tc.want)
			}
		})
	}
}

func TestDedupeKey(t *testing.T) {
	key := DedupeKey("u1", "g1", mustDate(t, 2026, 3, 9))
	if key != "reminder:u1:g1:2026-03-09" {
		t.Fatalf("key = %q", key)
	}
	if key != DedupeKey("u1", "g1", mustDate(t, 2026, 3, 9)) {
		t.Fatal("key not stable")
	}
}
