package domain

import (
	"testing"
	"time"
)

func TestDerive(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(48 * time.Hour)
	past := now.Add(-48 * time.Hour)

	sub := func(exp *time.Time) *SubscriptionRow {
		return &SubscriptionRow{Tier: TierPremium, ExpiresAt: exp}
	}

	cases := []struct {
		name   string
		latest *SubscriptionRow
		groups int
		want   Entitlement
	}{
		{"never premium no groups", nil, 0, Entitlement{TierFree, StatusActive, FreeGroupLimit}},
		{"never premium at cap", nil, 1, Entitlement{TierFree, StatusActive, FreeGroupLimit}},
		{"never premium over cap", nil, 2, Entitlement{TierFree, StatusOverLimit, FreeGroupLimit}},
		{"live premium", sub(&future), 5, Entitlement{TierPremium, StatusActive, PremiumGroupLimit}},
		{"non expiring premium", sub(nil), 3, Entitlement{TierPremium, StatusActive, PremiumGroupLimit}},
		{"lapsed premium single group", sub(&past), 1, Entitlement{TierFree, StatusExpired, FreeGroupLimit}},
		{"lapsed premium many groups", sub(&past), 5, Entitlement{TierFree, StatusOverLimit, FreeGroupLimit}},
		{"expiry exactly now", sub(&now), 1, Entitlement{TierFree, StatusExpired, FreeGroupLimit}},
	}
	for _, tc := range cases {
		if got := Derive(tc.latest, tc.groups, now); got != tc.want {
			t.Fatalf("%s: got %+v want %+v", tc.name, got, tc.want)
		}
	}
}

func TestStaleSelection(t *testing.T) {
	chosen := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	dg := DowngradeRow{DowngradeDate: chosen}

	before := chosen.Add(-time.Hour)
	after := chosen.Add(time.Hour)

	if StaleSelection(dg, nil) {
		t.Fatal("no subscription row should not stale a selection")
	}
	if StaleSelection(dg, &SubscriptionRow{ExpiresAt: &before}) {
		t.Fatal("an expiry before the selection belongs to the same episode")
	}
	if !StaleSelection(dg, &SubscriptionRow{ExpiresAt: &after}) {
		t.Fatal("a premium term newer than the selection should void it")
	}
	if StaleSelection(dg, &SubscriptionRow{}) {
		t.Fatal("a non-expiring row has no expiry to compare against")
	}
}

func TestReadOnlyUntil(t *testing.T) {
	d := DowngradeRow{DowngradeDate: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)}
	want := time.Date(2025, 3, 31, 9, 30, 0, 0, time.UTC)
	if got := d.ReadOnlyUntil(); !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestExportCapDays(t *testing.T) {
	cases := []struct {
		tier string
		want int
	}{
		{TierFree, 30},
		{TierPremium, 365},
		{"", 30},
	}
	for _, tc := range cases {
		if got := ExportCapDays(tc.tier); got != tc.want {
			t.Fatalf("tier %q: got %d want %d", tc.tier, got, tc.want)
		}
	}
}
