// Package repo provides Postgres bindings for auth storage
package repo

import (
	"context"
	"time"

	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/services/auth/domain"
)

type (
	// PG is a Postgres binder for domain.Storage
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

var _ domain.Storage = (*queries)(nil)

// NewPG returns a Postgres binder for auth storage
func NewPG() repokit.Binder[domain.Storage] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.Storage { return &queries{q: q} }

const userCols = `id, email, display_name, timezone, password_hash,
	current_subscription_tier, subscription_status, (avatar IS NOT NULL), deleted_at`

func scanUser(row interface{ Scan(...any) error }) (domain.UserRow, error) {
	var u domain.UserRow
	err := row.Scan(
		&u.ID, &u.Email, &u.DisplayName, &u.Timezone, &u.PasswordHash,
		&u.Tier, &u.Status, &u.HasAvatar, &u.DeletedAt,
	)
	return u, err
}

func (r *queries) CreateUser(ctx context.Context, email, displayName, timezone string, passwordHash []byte) (domain.UserRow, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `
		INSERT INTO users (email, display_name, timezone, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userCols,
		email, displayName, timezone, passwordHash,
	))
	if err != nil {
		return domain.UserRow{}, perr.FromPostgresWithField(err, "create user")
	}
	return u, nil
}

func (r *queries) UserByEmail(ctx context.Context, email string) (domain.UserRow, bool, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `
		SELECT `+userCols+` FROM users
		WHERE email = $1 AND deleted_at IS NULL`,
		email,
	))
	if err != nil {
		if repokit.NoRows(err) {
			return domain.UserRow{}, false, nil
		}
		return domain.UserRow{}, false, perr.FromPostgres(err, "user by email")
	}
	return u, true, nil
}

func (r *queries) UserByID(ctx context.Context, id string) (domain.UserRow, bool, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `
		SELECT `+userCols+` FROM users
		WHERE id = $1 AND deleted_at IS NULL`,
		id,
	))
	if err != nil {
		if repokit.NoRows(err) {
			return domain.UserRow{}, false, nil
		}
		return domain.UserRow{}, false, perr.FromPostgres(err, "user by id")
	}
	return u, true, nil
}

func (r *queries) SetPasswordHash(ctx context.Context, userID string, hash []byte) error {
	if _, err := r.q.Exec(ctx, `
		UPDATE users SET password_hash = $2 WHERE id = $1 AND deleted_at IS NULL`,
		userID, hash,
	); err != nil {
		return perr.FromPostgres(err, "set password hash")
	}
	return nil
}

func (r *queries) InsertProvider(ctx context.Context, userID, provider, providerUserID string) error {
	if _, err := r.q.Exec(ctx, `
		INSERT INTO auth_providers (user_id, provider, provider_user_id)
		VALUES ($1, $2, $3)`,
		userID, provider, providerUserID,
	); err != nil {
		return perr.FromPostgres(err, "insert provider")
	}
	return nil
}

func (r *queries) EnsureProvider(ctx context.Context, userID, provider, providerUserID string) error {
	if _, err := r.q.Exec(ctx, `
		INSERT INTO auth_providers (user_id, provider, provider_user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, provider) DO NOTHING`,
		userID, provider, providerUserID,
	); err != nil {
		return perr.FromPostgres(err, "ensure provider")
	}
	return nil
}

func (r *queries) DeleteProvider(ctx context.Context, userID, provider string) error {
	if _, err := r.q.Exec(ctx, `
		DELETE FROM auth_providers WHERE user_id = $1 AND provider = $2`,
		userID, provider,
	); err != nil {
		return perr.FromPostgres(err, "delete provider")
	}
	return nil
}

func (r *queries) ProviderOwner(ctx context.Context, provider, providerUserID string) (string, bool, error) {
	var userID string
	err := r.q.QueryRow(ctx, `
		SELECT p.user_id FROM auth_providers p
		JOIN users u ON u.id = p.user_id AND u.deleted_at IS NULL
		WHERE p.provider = $1 AND p.provider_user_id = $2`,
		provider, providerUserID,
	).Scan(&userID)
	if err != nil {
		if repokit.NoRows(err) {
			return "", false, nil
		}
		return "", false, perr.FromPostgres(err, "provider owner")
	}
	return userID, true, nil
}

func (r *queries) ProvidersByUser(ctx context.Context, userID string) ([]domain.ProviderLink, error) {
	rows, err := r.q.Query(ctx, `
		SELECT provider, created_at FROM auth_providers
		WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "providers by user")
	}
	defer rows.Close()

	var out []domain.ProviderLink
	for rows.Next() {
		var p domain.ProviderLink
		if err := rows.Scan(&p.Provider, &p.LinkedAt); err != nil {
			return nil, perr.FromPostgres(err, "scan provider")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetAvatarIfEmpty only fills a blank avatar so it never clobbers one the
// user chose themselves
func (r *queries) SetAvatarIfEmpty(ctx context.Context, userID string, data []byte, mime string) error {
	if _, err := r.q.Exec(ctx, `
		UPDATE users SET avatar = $2, avatar_mime = $3, avatar_updated_at = NOW()
		WHERE id = $1 AND avatar IS NULL AND deleted_at IS NULL`,
		userID, data, mime,
	); err != nil {
		return perr.FromPostgres(err, "set avatar")
	}
	return nil
}

func (r *queries) InsertRefresh(ctx context.Context, userID, tokenID, tokenHash string, expiresAt time.Time) error {
	if _, err := r.q.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)`,
		tokenID, userID, tokenHash, expiresAt,
	); err != nil {
		return perr.FromPostgres(err, "insert refresh token")
	}
	return nil
}

func (r *queries) RefreshByHash(ctx context.Context, tokenHash string) (domain.RefreshRow, bool, error) {
	var t domain.RefreshRow
	err := r.q.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, revoked_at
		FROM refresh_tokens WHERE token_hash = $1
		FOR UPDATE`,
		tokenHash,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.RevokedAt)
	if err != nil {
		if repokit.NoRows(err) {
			return domain.RefreshRow{}, false, nil
		}
		return domain.RefreshRow{}, false, perr.FromPostgres(err, "refresh by hash")
	}
	return t, true, nil
}

func (r *queries) RevokeRefresh(ctx context.Context, tokenHash, replacedByID string) error {
	var rep any
	if replacedByID != "" {
		rep = replacedByID
	}
	if _, err := r.q.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = NOW(), replaced_by = $2
		WHERE token_hash = $1 AND revoked_at IS NULL`,
		tokenHash, rep,
	); err != nil {
		return perr.FromPostgres(err, "revoke refresh token")
	}
	return nil
}

func (r *queries) RevokeAllRefresh(ctx context.Context, userID string) error {
	if _, err := r.q.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = NOW()
		WHERE user_id = $1 AND revoked_at IS NULL`,
		userID,
	); err != nil {
		return perr.FromPostgres(err, "revoke all refresh tokens")
	}
	return nil
}

func (r *queries) InsertReset(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	if _, err := r.q.Exec(ctx, `
		INSERT INTO password_reset_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)`,
		userID, tokenHash, expiresAt,
	); err != nil {
		return perr.FromPostgres(err, "insert reset token")
	}
	return nil
}

func (r *queries) ResetByHash(ctx context.Context, tokenHash string) (domain.ResetRow, bool, error) {
	var t domain.ResetRow
	err := r.q.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, used_at
		FROM password_reset_tokens WHERE token_hash = $1
		FOR UPDATE`,
		tokenHash,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.UsedAt)
	if err != nil {
		if repokit.NoRows(err) {
			return domain.ResetRow{}, false, nil
		}
		return domain.ResetRow{}, false, perr.FromPostgres(err, "reset by hash")
	}
	return t, true, nil
}

func (r *queries) ConsumeReset(ctx context.Context, tokenHash string) error {
	if _, err := r.q.Exec(ctx, `
		UPDATE password_reset_tokens SET used_at = NOW()
		WHERE token_hash = $1 AND used_at IS NULL`,
		tokenHash,
	); err != nil {
		return perr.FromPostgres(err, "consume reset token")
	}
	return nil
}

func (r *queries) CountRecentResets(ctx context.Context, userID string, since time.Time) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM password_reset_tokens
		WHERE user_id = $1 AND created_at >= $2`,
		userID, since,
	).Scan(&n)
	if err != nil {
		return 0, perr.FromPostgres(err, "count recent resets")
	}
	return n, nil
}

func (r *queries) InsertConsents(ctx context.Context, userID string, types []string, policyVersion, consentHash string) error {
	for _, t := range types {
		if _, err := r.q.Exec(ctx, `
			INSERT INTO consent_records (user_id, consent_type, policy_version, consent_hash)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, consent_type, policy_version) DO NOTHING`,
			userID, t, policyVersion, consentHash,
		); err != nil {
			return perr.FromPostgres(err, "insert consent")
		}
	}
	return nil
}

func (r *queries) ConsentsByUser(ctx context.Context, userID string) ([]domain.ConsentRecord, error) {
	rows, err := r.q.Query(ctx, `
		SELECT consent_type, policy_version, accepted_at
		FROM consent_records WHERE user_id = $1
		ORDER BY accepted_at DESC, consent_type`,
		userID,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "consents by user")
	}
	defer rows.Close()

	var out []domain.ConsentRecord
	for rows.Next() {
		var c domain.ConsentRecord
		if err := rows.Scan(&c.ConsentType, &c.PolicyVersion, &c.AcceptedAt); err != nil {
			return nil, perr.FromPostgres(err, "scan consent")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
