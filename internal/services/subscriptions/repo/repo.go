// Package repo provides Postgres bindings for subscriptions storage
package repo

import (
	"context"
	"encoding/json"
	"time"

	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/services/subscriptions/domain"
)

type (
	// PG is a Postgres binder for domain.Storage
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

var _ domain.Storage = (*queries)(nil)

// NewPG returns a Postgres binder for subscriptions storage
func NewPG() repokit.Binder[domain.Storage] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.Storage { return &queries{q: q} }

const subCols = `id, user_id, tier, status, started_at, expires_at, cancelled_at,
	platform, platform_subscription_id, purchase_token, auto_renew`

func scanSub(row interface{ Scan(...any) error }) (domain.SubscriptionRow, error) {
	var s domain.SubscriptionRow
	err := row.Scan(
		&s.ID, &s.UserID, &s.Tier, &s.Status, &s.StartedAt, &s.ExpiresAt, &s.CancelledAt,
		&s.Platform, &s.PlatformSubscriptionID, &s.PurchaseToken, &s.AutoRenew,
	)
	return s, err
}

// LatestSubscription returns the row whose paid term reaches furthest out.
// A null expiry sorts first because it never lapses
func (r *queries) LatestSubscription(ctx context.Context, userID string) (domain.SubscriptionRow, bool, error) {
	s, err := scanSub(r.q.QueryRow(ctx, `
		SELECT `+subCols+` FROM user_subscriptions
		WHERE user_id = $1
		ORDER BY expires_at DESC NULLS FIRST, started_at DESC
		LIMIT 1`,
		userID,
	))
	if err != nil {
		if repokit.NoRows(err) {
			return domain.SubscriptionRow{}, false, nil
		}
		return domain.SubscriptionRow{}, false, perr.FromPostgres(err, "latest subscription")
	}
	return s, true, nil
}

func (r *queries) SubscriptionByToken(ctx context.Context, userID, platform, purchaseToken string) (domain.SubscriptionRow, bool, error) {
	s, err := scanSub(r.q.QueryRow(ctx, `
		SELECT `+subCols+` FROM user_subscriptions
		WHERE user_id = $1 AND platform = $2 AND purchase_token = $3
		ORDER BY started_at DESC
		LIMIT 1`,
		userID, platform, purchaseToken,
	))
	if err != nil {
		if repokit.NoRows(err) {
			return domain.SubscriptionRow{}, false, nil
		}
		return domain.SubscriptionRow{}, false, perr.FromPostgres(err, "subscription by token")
	}
	return s, true, nil
}

func (r *queries) InsertSubscription(ctx context.Context, row domain.SubscriptionRow) (string, error) {
	var id string
	err := r.q.QueryRow(ctx, `
		INSERT INTO user_subscriptions
			(user_id, tier, status, started_at, expires_at, platform,
			 platform_subscription_id, purchase_token, auto_renew)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		row.UserID, row.Tier, row.Status, row.StartedAt, row.ExpiresAt,
		row.Platform, row.PlatformSubscriptionID, row.PurchaseToken, row.AutoRenew,
	).Scan(&id)
	if err != nil {
		return "", perr.FromPostgres(err, "insert subscription")
	}
	return id, nil
}

func (r *queries) RenewSubscription(ctx context.Context, id string, expiresAt time.Time, autoRenew bool) error {
	_, err := r.q.Exec(ctx, `
		UPDATE user_subscriptions
		SET expires_at = $2, auto_renew = $3, status = 'active', cancelled_at = NULL
		WHERE id = $1`,
		id, expiresAt, autoRenew,
	)
	if err != nil {
		return perr.FromPostgres(err, "renew subscription")
	}
	return nil
}

// InsertTransaction records a verified purchase. It reports false when the
// platform transaction was already recorded, which makes replays harmless
func (r *queries) InsertTransaction(ctx context.Context, row domain.TransactionRow) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO subscription_transactions
			(user_id, subscription_id, platform, platform_transaction_id,
			 product_id, amount_cents, purchased_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (platform, platform_transaction_id) DO NOTHING`,
		row.UserID, row.SubscriptionID, row.Platform, row.PlatformTransactionID,
		row.ProductID, row.AmountCents, row.PurchasedAt,
	)
	if err != nil {
		return false, perr.FromPostgres(err, "insert transaction")
	}
	return tag.RowsAffected() > 0, nil
}

func (r *queries) ActiveGroupCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM group_memberships m
		JOIN groups g ON g.id = m.group_id AND g.deleted_at IS NULL
		WHERE m.user_id = $1 AND m.status = 'active'`,
		userID,
	).Scan(&n)
	if err != nil {
		return 0, perr.FromPostgres(err, "active group count")
	}
	return n, nil
}

func (r *queries) ActiveGroupIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.q.Query(ctx, `
		SELECT m.group_id FROM group_memberships m
		JOIN groups g ON g.id = m.group_id AND g.deleted_at IS NULL
		WHERE m.user_id = $1 AND m.status = 'active'
		ORDER BY m.joined_at`,
		userID,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "active group ids")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, perr.FromPostgres(err, "scan group id")
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *queries) GroupRole(ctx context.Context, userID, groupID string) (string, bool, error) {
	var role string
	err := r.q.QueryRow(ctx, `
		SELECT role FROM group_memberships
		WHERE user_id = $1 AND group_id = $2 AND status = 'active'`,
		userID, groupID,
	).Scan(&role)
	if err != nil {
		if repokit.NoRows(err) {
			return "", false, nil
		}
		return "", false, perr.FromPostgres(err, "group role")
	}
	return role, true, nil
}

func (r *queries) DeleteMembership(ctx context.Context, userID, groupID string) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		DELETE FROM group_memberships
		WHERE user_id = $1 AND group_id = $2`,
		userID, groupID,
	)
	if err != nil {
		return false, perr.FromPostgres(err, "delete membership")
	}
	return tag.RowsAffected() > 0, nil
}

// PromoteSuccessor hands a group to its longest-standing active member,
// preferring admins. Callers remove the departing creator's membership first
// so the one-creator index stays satisfied
func (r *queries) PromoteSuccessor(ctx context.Context, groupID string) (string, bool, error) {
	var userID string
	err := r.q.QueryRow(ctx, `
		WITH pick AS (
			SELECT user_id FROM group_memberships
			WHERE group_id = $1 AND status = 'active'
			ORDER BY (role = 'admin') DESC, joined_at ASC
			LIMIT 1
		)
		UPDATE group_memberships m
		SET role = 'creator'
		FROM pick
		WHERE m.group_id = $1 AND m.user_id = pick.user_id
		RETURNING m.user_id`,
		groupID,
	).Scan(&userID)
	if err != nil {
		if repokit.NoRows(err) {
			return "", false, nil
		}
		return "", false, perr.FromPostgres(err, "promote successor")
	}

	if _, err := r.q.Exec(ctx, `
		UPDATE groups SET creator_user_id = $2 WHERE id = $1`,
		groupID, userID,
	); err != nil {
		return "", false, perr.FromPostgres(err, "transfer group creator")
	}
	return userID, true, nil
}

func (r *queries) SoftDeleteGroup(ctx context.Context, groupID string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE groups SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		groupID,
	)
	if err != nil {
		return perr.FromPostgres(err, "soft delete group")
	}
	return nil
}

func (r *queries) InsertActivity(ctx context.Context, groupID string, userID *string, activityType string, metadata map[string]any) error {
	meta, err := json.Marshal(metadata)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "marshal activity metadata")
	}
	if _, err := r.q.Exec(ctx, `
		INSERT INTO group_activities (group_id, user_id, activity_type, metadata)
		VALUES ($1, $2, $3, $4::jsonb)`,
		groupID, userID, activityType, meta,
	); err != nil {
		return perr.FromPostgres(err, "insert activity")
	}
	return nil
}

const downgradeCols = `id, user_id, downgrade_date, previous_tier, groups_before_downgrade,
	kept_group_id, removed_group_ids::text[], processed_at`

func scanDowngrade(row interface{ Scan(...any) error }) (domain.DowngradeRow, error) {
	var d domain.DowngradeRow
	err := row.Scan(
		&d.ID, &d.UserID, &d.DowngradeDate, &d.PreviousTier, &d.GroupsBefore,
		&d.KeptGroupID, &d.RemovedGroupIDs, &d.ProcessedAt,
	)
	return d, err
}

func (r *queries) InsertDowngrade(ctx context.Context, row domain.DowngradeRow) (string, error) {
	var id string
	err := r.q.QueryRow(ctx, `
		INSERT INTO subscription_downgrade_history
			(user_id, downgrade_date, previous_tier, groups_before_downgrade,
			 kept_group_id, removed_group_ids)
		VALUES ($1, $2, $3, $4, $5, $6::uuid[])
		RETURNING id`,
		row.UserID, row.DowngradeDate, row.PreviousTier, row.GroupsBefore,
		row.KeptGroupID, row.RemovedGroupIDs,
	).Scan(&id)
	if err != nil {
		return "", perr.FromPostgres(err, "insert downgrade")
	}
	return id, nil
}

func (r *queries) LatestDowngrade(ctx context.Context, userID string) (domain.DowngradeRow, bool, error) {
	d, err := scanDowngrade(r.q.QueryRow(ctx, `
		SELECT `+downgradeCols+` FROM subscription_downgrade_history
		WHERE user_id = $1
		ORDER BY downgrade_date DESC
		LIMIT 1`,
		userID,
	))
	if err != nil {
		if repokit.NoRows(err) {
			return domain.DowngradeRow{}, false, nil
		}
		return domain.DowngradeRow{}, false, perr.FromPostgres(err, "latest downgrade")
	}
	return d, true, nil
}

// PendingDowngrades lists unprocessed selections older than the cutoff,
// which is the sweep's work queue
func (r *queries) PendingDowngrades(ctx context.Context, before time.Time) ([]domain.DowngradeRow, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+downgradeCols+` FROM subscription_downgrade_history
		WHERE processed_at IS NULL AND downgrade_date <= $1
		ORDER BY downgrade_date`,
		before,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "pending downgrades")
	}
	defer rows.Close()

	var out []domain.DowngradeRow
	for rows.Next() {
		d, err := scanDowngrade(rows)
		if err != nil {
			return nil, perr.FromPostgres(err, "scan downgrade")
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *queries) MarkDowngradeProcessed(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE subscription_downgrade_history
		SET processed_at = NOW()
		WHERE id = $1 AND processed_at IS NULL`,
		id,
	)
	if err != nil {
		return perr.FromPostgres(err, "mark downgrade processed")
	}
	return nil
}

// SyncUserTier keeps the cached plan columns on users in step with the
// derived entitlement. The guard clause makes repeated syncs free
func (r *queries) SyncUserTier(ctx context.Context, userID string, ent domain.Entitlement, groupCount int) error {
	_, err := r.q.Exec(ctx, `
		UPDATE users SET
			current_subscription_tier = $2,
			subscription_status = $3,
			group_limit = $4,
			current_group_count = $5
		WHERE id = $1 AND (
			current_subscription_tier IS DISTINCT FROM $2 OR
			subscription_status IS DISTINCT FROM $3 OR
			group_limit IS DISTINCT FROM $4 OR
			current_group_count IS DISTINCT FROM $5
		)`,
		userID, ent.Tier, ent.Status, ent.GroupLimit, groupCount,
	)
	if err != nil {
		return perr.FromPostgres(err, "sync user tier")
	}
	return nil
}
