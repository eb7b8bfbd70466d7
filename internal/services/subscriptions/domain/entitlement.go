package domain

import "time"

// Derive computes a user's entitlement from their most recent premium row
// (nil when they never bought one) and their active group membership count.
//
// The rules are a pure function of those inputs and the instant now:
// a live premium row grants premium with the large cap; anything else is
// free with a cap of one, flagged over_limit while more active memberships
// remain than the cap allows
func Derive(latest *SubscriptionRow, activeGroups int, now time.Time) Entitlement {
	if latest != nil && latest.ActiveAt(now) {
		return Entitlement{Tier: TierPremium, Status: StatusActive, GroupLimit: PremiumGroupLimit}
	}

	status := StatusActive
	if latest != nil {
		status = StatusExpired
	}
	if activeGroups > FreeGroupLimit {
		status = StatusOverLimit
	}
	return Entitlement{Tier: TierFree, Status: status, GroupLimit: FreeGroupLimit}
}

// StaleSelection reports whether a downgrade choice predates the most recent
// premium term. A user who re-subscribed after choosing starts a fresh
// episode when that term lapses, so the old choice no longer applies
func StaleSelection(dg DowngradeRow, latest *SubscriptionRow) bool {
	return latest != nil && latest.ExpiresAt != nil && latest.ExpiresAt.After(dg.DowngradeDate)
}

// ExportCapDays is the widest export span the tier allows
func ExportCapDays(tier string) int {
	if tier == TierPremium {
		return min(PremiumExportDays, MaxExportDays)
	}
	return min(FreeExportDays, MaxExportDays)
}
