// Package repo provides Postgres bindings for groups storage
package repo

import (
	"context"

	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/services/groups/domain"
)

type (
	// PG is a Postgres binder for domain.Storage
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

var _ domain.Storage = (*queries)(nil)

// NewPG returns a Postgres binder for groups storage
func NewPG() repokit.Binder[domain.Storage] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.Storage { return &queries{q: q} }

const groupCols = `id, name, description, icon_emoji, icon_color, (icon IS NOT NULL),
	visibility, auto_approve, is_challenge, challenge_start_date, challenge_end_date,
	challenge_status, template_id, language, creator_user_id, created_at, updated_at`

func scanGroup(row interface{ Scan(...any) error }) (domain.Group, error) {
	var g domain.Group
	err := row.Scan(
		&g.ID, &g.Name, &g.Description, &g.IconEmoji, &g.IconColor, &g.HasIcon,
		&g.Visibility, &g.AutoApprove, &g.IsChallenge, &g.ChallengeStartDate, &g.ChallengeEndDate,
		&g.ChallengeStatus, &g.TemplateID, &g.Language, &g.CreatorUserID, &g.CreatedAt, &g.UpdatedAt,
	)
	return g, err
}

func (r *queries) InsertGroup(ctx context.Context, g domain.NewGroup) (domain.Group, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO groups (name, description, icon_emoji, icon_color, visibility,
			auto_approve, language, creator_user_id, is_challenge,
			challenge_start_date, challenge_end_date, challenge_status, template_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+groupCols,
		g.Name, g.Description, g.IconEmoji, g.IconColor, g.Visibility,
		g.AutoApprove, g.Language, g.CreatorUserID, g.IsChallenge,
		g.ChallengeStartDate, g.ChallengeEndDate, g.ChallengeStatus, g.TemplateID,
	)
	out, err := scanGroup(row)
	if err != nil {
		return domain.Group{}, perr.FromPostgres(err, "insert group")
	}
	return out, nil
}

func (r *queries) GroupByID(ctx context.Context, groupID string) (domain.Group, bool, error) {
	g, err := scanGroup(r.q.QueryRow(ctx, `
		SELECT `+groupCols+` FROM groups
		WHERE id = $1 AND deleted_at IS NULL`,
		groupID,
	))
	if err != nil {
		if repokit.NoRows(err) {
			return domain.Group{}, false, nil
		}
		return domain.Group{}, false, perr.FromPostgres(err, "group by id")
	}
	return g, true, nil
}

func (r *queries) UpdateGroup(ctx context.Context, groupID string, in domain.UpdateGroupInput) (domain.Group, bool, error) {
	g, err := scanGroup(r.q.QueryRow(ctx, `
		UPDATE groups SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			icon_emoji = COALESCE($4, icon_emoji),
			icon_color = COALESCE($5, icon_color),
			visibility = COALESCE($6, visibility),
			auto_approve = COALESCE($7, auto_approve),
			language = COALESCE($8, language)
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+groupCols,
		groupID, in.Name, in.Description, in.IconEmoji, in.IconColor,
		in.Visibility, in.AutoApprove, in.Language,
	))
	if err != nil {
		if repokit.NoRows(err) {
			return domain.Group{}, false, nil
		}
		return domain.Group{}, false, perr.FromPostgres(err, "update group")
	}
	return g, true, nil
}

// HardDeleteGroup removes the group row; memberships, invites, goals,
// progress, and activities go with it through the cascades
func (r *queries) HardDeleteGroup(ctx context.Context, groupID string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM groups WHERE id = $1`, groupID)
	if err != nil {
		return perr.FromPostgres(err, "hard delete group")
	}
	return nil
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

func (r *queries) SetCreator(ctx context.Context, groupID, userID string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE groups SET creator_user_id = $2
		WHERE id = $1 AND deleted_at IS NULL`,
		groupID, userID,
	)
	if err != nil {
		return perr.FromPostgres(err, "set group creator")
	}
	return nil
}

func (r *queries) SetIcon(ctx context.Context, groupID string, data []byte, mime string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE groups SET icon = $2, icon_mime = $3, icon_updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		groupID, data, mime,
	)
	if err != nil {
		return perr.FromPostgres(err, "set group icon")
	}
	return nil
}

func (r *queries) IconByID(ctx context.Context, groupID string) (domain.Icon, bool, error) {
	var ic domain.Icon
	err := r.q.QueryRow(ctx, `
		SELECT icon, icon_mime, icon_updated_at FROM groups
		WHERE id = $1 AND deleted_at IS NULL AND icon IS NOT NULL`,
		groupID,
	).Scan(&ic.Data, &ic.MIME, &ic.UpdatedAt)
	if err != nil {
		if repokit.NoRows(err) {
			return domain.Icon{}, false, nil
		}
		return domain.Icon{}, false, perr.FromPostgres(err, "group icon")
	}
	return ic, true, nil
}
