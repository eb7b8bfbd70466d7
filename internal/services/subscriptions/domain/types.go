// Package domain holds subscriptions types, ports, and tier derivation
package domain

import "time"

// Tiers and user-level statuses. They mirror the CHECK constraints on users
const (
	TierFree    = "free"
	TierPremium = "premium"

	StatusActive    = "active"
	StatusExpired   = "expired"
	StatusOverLimit = "over_limit"
)

// Group caps per tier
const (
	FreeGroupLimit    = 1
	PremiumGroupLimit = 10
)

// ReadOnlyWindow is how long a non-kept group stays readable after a
// downgrade selection before the sweep removes the membership
const ReadOnlyWindow = 30 * 24 * time.Hour

// ProductPremiumAnnual is the only purchasable product
const ProductPremiumAnnual = "pursue_premium_annual"

// Export span caps in days. The ceiling binds every tier
const (
	FreeExportDays    = 30
	PremiumExportDays = 365
	MaxExportDays     = 730
)

// Entitlement is the derived subscription state for one user at one instant
type Entitlement struct {
	Tier       string `json:"tier"`
	Status     string `json:"status"`
	GroupLimit int    `json:"group_limit"`
}

// Snapshot is the full subscription view served to the owning user
type Snapshot struct {
	Tier              string     `json:"tier"`
	Status            string     `json:"status"`
	GroupLimit        int        `json:"group_limit"`
	CurrentGroupCount int        `json:"current_group_count"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	AutoRenew         bool       `json:"auto_renew,omitempty"`
	Platform          string     `json:"platform,omitempty"`
	SelectionRequired bool       `json:"selection_required,omitempty"`
	ReadOnlyUntil     *time.Time `json:"read_only_access_until,omitempty"`
	KeptGroupID       string     `json:"kept_group_id,omitempty"`
}

// Eligibility says whether the user can buy the premium plan right now
type Eligibility struct {
	CanUpgrade bool   `json:"can_upgrade"`
	Tier       string `json:"tier"`
	ProductID  string `json:"product_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// VerifyPurchaseInput carries a store purchase for server-side validation
type VerifyPurchaseInput struct {
	Platform      string `json:"platform" validate:"required,oneof=google_play app_store"`
	PurchaseToken string `json:"purchase_token" validate:"required"`
	ProductID     string `json:"product_id"`
}

// SelectGroupInput names the one group an over-limit user keeps writable
type SelectGroupInput struct {
	KeepGroupID string `json:"keep_group_id" validate:"required,uuid4"`
}

// DowngradeResult reports the outcome of a group selection
type DowngradeResult struct {
	KeptGroupID      string    `json:"kept_group_id"`
	ReadOnlyGroupIDs []string  `json:"read_only_group_ids"`
	ReadOnlyUntil    time.Time `json:"read_only_access_until"`
}

// SweepReport counts what a downgrade sweep run did
type SweepReport struct {
	UsersProcessed     int `json:"users_processed"`
	MembershipsRemoved int `json:"memberships_removed"`
}

// SubscriptionRow mirrors user_subscriptions
type SubscriptionRow struct {
	ID                     string
	UserID                 string
	Tier                   string
	Status                 string
	StartedAt              time.Time
	ExpiresAt              *time.Time
	CancelledAt            *time.Time
	Platform               string
	PlatformSubscriptionID string
	PurchaseToken          string
	AutoRenew              bool
}

// ActiveAt reports whether the paid term still covers now.
// A null expiry never lapses
func (s SubscriptionRow) ActiveAt(now time.Time) bool {
	return s.ExpiresAt == nil || s.ExpiresAt.After(now)
}

// TransactionRow mirrors subscription_transactions
type TransactionRow struct {
	UserID                string
	SubscriptionID        string
	Platform              string
	PlatformTransactionID string
	ProductID             string
	AmountCents           int64
	PurchasedAt           time.Time
}

// DowngradeRow mirrors subscription_downgrade_history
type DowngradeRow struct {
	ID              string
	UserID          string
	DowngradeDate   time.Time
	PreviousTier    string
	GroupsBefore    int
	KeptGroupID     *string
	RemovedGroupIDs []string
	ProcessedAt     *time.Time
}

// ReadOnlyUntil is the instant the non-kept groups stop being readable
func (d DowngradeRow) ReadOnlyUntil() time.Time {
	return d.DowngradeDate.Add(ReadOnlyWindow)
}
