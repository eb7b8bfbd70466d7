// Package repo provides Postgres bindings for users storage
package repo

import (
	"context"

	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/services/users/domain"
)

type (
	// PG is a Postgres binder for domain.Storage
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

var _ domain.Storage = (*queries)(nil)

// NewPG returns a Postgres binder for users storage
func NewPG() repokit.Binder[domain.Storage] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.Storage { return &queries{q: q} }

const profileCols = `id, email, display_name, timezone, (avatar IS NOT NULL),
	current_subscription_tier, subscription_status, group_limit, current_group_count, created_at`

func scanProfile(row interface{ Scan(...any) error }) (domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(
		&p.ID, &p.Email, &p.DisplayName, &p.Timezone, &p.HasAvatar,
		&p.Tier, &p.SubscriptionStatus, &p.GroupLimit, &p.CurrentGroupCount, &p.CreatedAt,
	)
	return p, err
}

func (r *queries) ProfileByID(ctx context.Context, userID string) (domain.Profile, bool, error) {
	p, err := scanProfile(r.q.QueryRow(ctx, `
		SELECT `+profileCols+` FROM users
		WHERE id = $1 AND deleted_at IS NULL`,
		userID,
	))
	if err != nil {
		if repokit.NoRows(err) {
			return domain.Profile{}, false, nil
		}
		return domain.Profile{}, false, perr.FromPostgres(err, "profile by id")
	}
	return p, true, nil
}

func (r *queries) UpdateProfile(ctx context.Context, userID string, displayName, timezone *string) (domain.Profile, bool, error) {
	p, err := scanProfile(r.q.QueryRow(ctx, `
		UPDATE users SET
			display_name = COALESCE($2, display_name),
			timezone = COALESCE($3, timezone)
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+profileCols,
		userID, displayName, timezone,
	))
	if err != nil {
		if repokit.NoRows(err) {
			return domain.Profile{}, false, nil
		}
		return domain.Profile{}, false, perr.FromPostgres(err, "update profile")
	}
	return p, true, nil
}

func (r *queries) SetAvatar(ctx context.Context, userID string, data []byte, mime string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE users SET avatar = $2, avatar_mime = $3, avatar_updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		userID, data, mime,
	)
	if err != nil {
		return perr.FromPostgres(err, "set avatar")
	}
	return nil
}

func (r *queries) AvatarByID(ctx context.Context, userID string) (domain.Avatar, bool, error) {
	var a domain.Avatar
	err := r.q.QueryRow(ctx, `
		SELECT avatar, avatar_mime, avatar_updated_at FROM users
		WHERE id = $1 AND deleted_at IS NULL AND avatar IS NOT NULL`,
		userID,
	).Scan(&a.Data, &a.MIME, &a.UpdatedAt)
	if err != nil {
		if repokit.NoRows(err) {
			return domain.Avatar{}, false, nil
		}
		return domain.Avatar{}, false, perr.FromPostgres(err, "avatar by id")
	}
	return a, true, nil
}

func (r *queries) ClearAvatar(ctx context.Context, userID string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE users SET avatar = NULL, avatar_mime = NULL, avatar_updated_at = NULL
		WHERE id = $1 AND deleted_at IS NULL`,
		userID,
	)
	if err != nil {
		return perr.FromPostgres(err, "clear avatar")
	}
	return nil
}

// GroupsForUser lists live groups the user belongs to or awaits approval
// for, together with roster size and the current heat reading
func (r *queries) GroupsForUser(ctx context.Context, userID string) ([]domain.GroupSummary, error) {
	rows, err := r.q.Query(ctx, `
		SELECT g.id, g.name, g.icon_emoji, g.icon_color, g.visibility,
			g.is_challenge, g.challenge_status, m.role, m.status, m.joined_at,
			COALESCE(h.score, 0), COALESCE(h.tier, 0),
			(SELECT COUNT(*) FROM group_memberships mc
				WHERE mc.group_id = g.id AND mc.status = 'active') AS member_count
		FROM group_memberships m
		JOIN groups g ON g.id = m.group_id AND g.deleted_at IS NULL
		LEFT JOIN group_heat h ON h.group_id = g.id
		WHERE m.user_id = $1 AND m.status IN ('active', 'pending')
		ORDER BY m.joined_at`,
		userID,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "groups for user")
	}
	defer rows.Close()

	var out []domain.GroupSummary
	for rows.Next() {
		var g domain.GroupSummary
		if err := rows.Scan(
			&g.ID, &g.Name, &g.IconEmoji, &g.IconColor, &g.Visibility,
			&g.IsChallenge, &g.ChallengeStatus, &g.Role, &g.MembershipStatus, &g.JoinedAt,
			&g.HeatScore, &g.HeatTier, &g.MemberCount,
		); err != nil {
			return nil, perr.FromPostgres(err, "scan group summary")
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// SoftDeleteUser tombstones the account. The partial unique index on email
// releases the address for a fresh registration; the avatar is dropped
// because nothing may serve it afterwards
func (r *queries) SoftDeleteUser(ctx context.Context, userID string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE users SET deleted_at = NOW(),
			avatar = NULL, avatar_mime = NULL, avatar_updated_at = NULL
		WHERE id = $1 AND deleted_at IS NULL`,
		userID,
	)
	if err != nil {
		return perr.FromPostgres(err, "soft delete user")
	}
	return nil
}

func (r *queries) RevokeRefreshTokens(ctx context.Context, userID string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = NOW()
		WHERE user_id = $1 AND revoked_at IS NULL`,
		userID,
	)
	if err != nil {
		return perr.FromPostgres(err, "revoke refresh tokens")
	}
	return nil
}

func (r *queries) DeleteDevices(ctx context.Context, userID string) error {
	_, err := r.q.Exec(ctx, `
		DELETE FROM devices WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return perr.FromPostgres(err, "delete devices")
	}
	return nil
}
