package domain

import (
	"context"
	"time"
)

// Storage is the persistence surface for subscriptions
type Storage interface {
	LatestSubscription(ctx context.Context, userID string) (SubscriptionRow, bool, error)
	SubscriptionByToken(ctx context.Context, userID, platform, purchaseToken string) (SubscriptionRow, bool, error)
	InsertSubscription(ctx context.Context, row SubscriptionRow) (string, error)
	RenewSubscription(ctx context.Context, id string, expiresAt time.Time, autoRenew bool) error
	InsertTransaction(ctx context.Context, row TransactionRow) (bool, error)

	ActiveGroupCount(ctx context.Context, userID string) (int, error)
	ActiveGroupIDs(ctx context.Context, userID string) ([]string, error)
	GroupRole(ctx context.Context, userID, groupID string) (string, bool, error)
	DeleteMembership(ctx context.Context, userID, groupID string) (bool, error)
	PromoteSuccessor(ctx context.Context, groupID string) (string, bool, error)
	SoftDeleteGroup(ctx context.Context, groupID string) error
	InsertActivity(ctx context.Context, groupID string, userID *string, activityType string, metadata map[string]any) error

	InsertDowngrade(ctx context.Context, row DowngradeRow) (string, error)
	LatestDowngrade(ctx context.Context, userID string) (DowngradeRow, bool, error)
	PendingDowngrades(ctx context.Context, before time.Time) ([]DowngradeRow, error)
	MarkDowngradeProcessed(ctx context.Context, id string) error

	SyncUserTier(ctx context.Context, userID string, ent Entitlement, groupCount int) error
}

// ServicePort is the subscriptions surface mounted over HTTP
type ServicePort interface {
	Snapshot(ctx context.Context, userID string) (Snapshot, error)
	Eligibility(ctx context.Context, userID string) (Eligibility, error)
	VerifyPurchase(ctx context.Context, userID string, in VerifyPurchaseInput) (Snapshot, error)
	SelectKeptGroup(ctx context.Context, userID string, in SelectGroupInput) (DowngradeResult, error)
	SweepDowngrades(ctx context.Context, now time.Time) (SweepReport, error)
}

// EntitlementsPort is consumed by other modules to enforce plan limits
type EntitlementsPort interface {
	// Entitlement derives the user's current tier, status, and group cap
	Entitlement(ctx context.Context, userID string) (Entitlement, error)

	// CheckGroupCap fails when joining or creating one more group would
	// push the user past their cap
	CheckGroupCap(ctx context.Context, userID string) error

	// CanUserWriteInGroup is the write guard every mutating group-scoped
	// endpoint consults before touching content in the group
	CanUserWriteInGroup(ctx context.Context, userID, groupID string) error

	// ExportCapDays is the widest export span the user's tier allows
	ExportCapDays(ctx context.Context, userID string) (int, error)
}

// VerifiedReceipt is the store's word on one purchase token
type VerifiedReceipt struct {
	TransactionID string
	ProductID     string
	ExpiresAt     time.Time
	AutoRenew     bool
	AmountCents   int64
}

// ReceiptVerifier validates purchase tokens with the platform stores
type ReceiptVerifier interface {
	Enabled() bool
	Verify(ctx context.Context, platform, token, productID string) (VerifiedReceipt, error)
}
