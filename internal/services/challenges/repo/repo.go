// Package repo provides Postgres bindings for challenges storage
package repo

import (
	"context"
	"encoding/json"

	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/services/challenges/domain"
	groupsdomain "pursue/internal/services/groups/domain"
)

type (
	// PG is a Postgres binder for domain.Storage
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

var _ domain.Storage = (*queries)(nil)

// NewPG returns a Postgres binder for challenges storage
func NewPG() repokit.Binder[domain.Storage] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.Storage { return &queries{q: q} }

const templateCols = `id, name, description, emoji, category, duration_days, is_featured`

func scanTemplate(row interface{ Scan(...any) error }) (domain.Template, error) {
	var t domain.Template
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.Emoji, &t.Category, &t.DurationDays, &t.IsFeatured)
	return t, err
}

func (r *queries) Templates(ctx context.Context) ([]domain.Template, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+templateCols+` FROM group_templates
		ORDER BY is_featured DESC, category, sort_order, name`)
	if err != nil {
		return nil, perr.FromPostgres(err, "list templates")
	}
	defer rows.Close()

	var out []domain.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, perr.FromPostgres(err, "scan template")
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgres(err, "list templates")
	}
	return r.attachGoals(ctx, out)
}

func (r *queries) TemplateByID(ctx context.Context, id string) (domain.Template, bool, error) {
	t, err := scanTemplate(r.q.QueryRow(ctx, `
		SELECT `+templateCols+` FROM group_templates WHERE id = $1`, id))
	if err != nil {
		if repokit.NoRows(err) {
			return domain.Template{}, false, nil
		}
		return domain.Template{}, false, perr.FromPostgres(err, "template by id")
	}
	withGoals, err := r.attachGoals(ctx, []domain.Template{t})
	if err != nil {
		return domain.Template{}, false, err
	}
	return withGoals[0], true, nil
}

// attachGoals stitches template goals onto templates in one query
func (r *queries) attachGoals(ctx context.Context, tpls []domain.Template) ([]domain.Template, error) {
	if len(tpls) == 0 {
		return tpls, nil
	}
	ids := make([]string, len(tpls))
	for i, t := range tpls {
		ids[i] = t.ID
	}
	rows, err := r.q.Query(ctx, `
		SELECT template_id, id, title, description, cadence, metric_type, target_value, unit
		FROM group_template_goals
		WHERE template_id = ANY($1::uuid[])
		ORDER BY sort_order, title`,
		ids,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "template goals")
	}
	defer rows.Close()

	byTpl := make(map[string][]domain.TemplateGoal, len(tpls))
	for rows.Next() {
		var tplID string
		var g domain.TemplateGoal
		if err := rows.Scan(&tplID, &g.ID, &g.Title, &g.Description, &g.Cadence, &g.MetricType, &g.TargetValue, &g.Unit); err != nil {
			return nil, perr.FromPostgres(err, "scan template goal")
		}
		byTpl[tplID] = append(byTpl[tplID], g)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgres(err, "template goals")
	}
	for i := range tpls {
		goals := byTpl[tpls[i].ID]
		if goals == nil {
			goals = []domain.TemplateGoal{}
		}
		tpls[i].Goals = goals
	}
	return tpls, nil
}

func (r *queries) RecordSuggestions(ctx context.Context, userID string, templateIDs []string) error {
	if len(templateIDs) == 0 {
		return nil
	}
	if _, err := r.q.Exec(ctx, `
		INSERT INTO challenge_suggestion_log (user_id, template_id)
		SELECT $1, unnest($2::uuid[])
		ON CONFLICT (user_id, template_id) DO NOTHING`,
		userID, templateIDs,
	); err != nil {
		return perr.FromPostgres(err, "record suggestions")
	}
	return nil
}

func (r *queries) MarkSuggestionUsed(ctx context.Context, userID, templateID string) error {
	if _, err := r.q.Exec(ctx, `
		INSERT INTO challenge_suggestion_log (user_id, template_id, used_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, template_id)
		DO UPDATE SET used_at = COALESCE(challenge_suggestion_log.used_at, NOW())`,
		userID, templateID,
	); err != nil {
		return perr.FromPostgres(err, "mark suggestion used")
	}
	return nil
}

const groupCols = `id, name, description, icon_emoji, icon_color, (icon IS NOT NULL),
	visibility, auto_approve, is_challenge, challenge_start_date, challenge_end_date,
	challenge_status, template_id, language, creator_user_id, created_at, updated_at`

func (r *queries) InsertChallenge(ctx context.Context, g groupsdomain.NewGroup) (groupsdomain.Group, error) {
	var out groupsdomain.Group
	err := r.q.QueryRow(ctx, `
		INSERT INTO groups (name, description, icon_emoji, icon_color, visibility,
			auto_approve, language, creator_user_id, is_challenge,
			challenge_start_date, challenge_end_date, challenge_status, template_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9, $10, $11, $12)
		RETURNING `+groupCols,
		g.Name, g.Description, g.IconEmoji, g.IconColor, g.Visibility,
		g.AutoApprove, g.Language, g.CreatorUserID,
		g.ChallengeStartDate, g.ChallengeEndDate, g.ChallengeStatus, g.TemplateID,
	).Scan(
		&out.ID, &out.Name, &out.Description, &out.IconEmoji, &out.IconColor, &out.HasIcon,
		&out.Visibility, &out.AutoApprove, &out.IsChallenge, &out.ChallengeStartDate, &out.ChallengeEndDate,
		&out.ChallengeStatus, &out.TemplateID, &out.Language, &out.CreatorUserID, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return groupsdomain.Group{}, perr.FromPostgres(err, "insert challenge")
	}
	return out, nil
}

const challengeCols = `id, name, icon_emoji, challenge_start_date, challenge_end_date, challenge_status, template_id`

func scanChallenge(row interface{ Scan(...any) error }) (domain.Challenge, error) {
	var c domain.Challenge
	err := row.Scan(&c.ID, &c.Name, &c.Emoji, &c.StartDate, &c.EndDate, &c.Status, &c.TemplateID)
	return c, err
}

func (r *queries) ChallengeByID(ctx context.Context, id string) (domain.Challenge, bool, error) {
	c, err := scanChallenge(r.q.QueryRow(ctx, `
		SELECT `+challengeCols+` FROM groups
		WHERE id = $1 AND is_challenge AND deleted_at IS NULL`,
		id,
	))
	if err != nil {
		if repokit.NoRows(err) {
			return domain.Challenge{}, false, nil
		}
		return domain.Challenge{}, false, perr.FromPostgres(err, "challenge by id")
	}
	return c, true, nil
}

func (r *queries) SetStatus(ctx context.Context, id, status string) error {
	if _, err := r.q.Exec(ctx, `
		UPDATE groups SET challenge_status = $2
		WHERE id = $1 AND is_challenge AND deleted_at IS NULL`,
		id, status,
	); err != nil {
		return perr.FromPostgres(err, "set challenge status")
	}
	return nil
}

func (r *queries) InsertCreatorMembership(ctx context.Context, groupID, userID string) error {
	if _, err := r.q.Exec(ctx, `
		INSERT INTO group_memberships (group_id, user_id, role, status)
		VALUES ($1, $2, 'creator', 'active')`,
		groupID, userID,
	); err != nil {
		return perr.FromPostgres(err, "insert creator membership")
	}
	return nil
}

func (r *queries) InsertInvite(ctx context.Context, groupID, code, createdBy string) error {
	if _, err := r.q.Exec(ctx, `
		INSERT INTO invite_codes (group_id, code, created_by)
		VALUES ($1, $2, $3)`,
		groupID, code, createdBy,
	); err != nil {
		return perr.FromPostgres(err, "insert invite code")
	}
	return nil
}

func (r *queries) InviteCode(ctx context.Context, groupID string) (string, bool, error) {
	var code string
	err := r.q.QueryRow(ctx, `
		SELECT code FROM invite_codes
		WHERE group_id = $1 AND revoked_at IS NULL`,
		groupID,
	).Scan(&code)
	if err != nil {
		if repokit.NoRows(err) {
			return "", false, nil
		}
		return "", false, perr.FromPostgres(err, "invite code")
	}
	return code, true, nil
}

func (r *queries) InsertChallengeGoals(ctx context.Context, groupID, createdBy string, seeds []domain.SeedGoal) error {
	for _, s := range seeds {
		if _, err := r.q.Exec(ctx, `
			INSERT INTO goals (group_id, title, description, cadence, metric_type,
				target_value, unit, template_goal_id, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			groupID, s.Title, s.Description, s.Cadence, s.MetricType,
			s.TargetValue, s.Unit, s.TemplateGoalID, createdBy,
		); err != nil {
			return perr.FromPostgres(err, "insert challenge goal")
		}
	}
	return nil
}

func (r *queries) InsertHeatRow(ctx context.Context, groupID string) error {
	if _, err := r.q.Exec(ctx, `
		INSERT INTO group_heat (group_id) VALUES ($1)
		ON CONFLICT (group_id) DO NOTHING`,
		groupID,
	); err != nil {
		return perr.FromPostgres(err, "insert heat row")
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

func (r *queries) ActiveMemberIDs(ctx context.Context, groupID string) ([]string, error) {
	rows, err := r.q.Query(ctx, `
		SELECT user_id FROM group_memberships
		WHERE group_id = $1 AND status = 'active'`,
		groupID,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "active member ids")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, perr.FromPostgres(err, "scan member id")
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgres(err, "active member ids")
	}
	return out, nil
}

func (r *queries) DisplayName(ctx context.Context, userID string) (string, error) {
	var name string
	err := r.q.QueryRow(ctx, `SELECT display_name FROM users WHERE id = $1`, userID).Scan(&name)
	if err != nil {
		if repokit.NoRows(err) {
			return "", nil
		}
		return "", perr.FromPostgres(err, "display name")
	}
	return name, nil
}

func (r *queries) UserTimezone(ctx context.Context, userID string) (string, error) {
	var tz string
	err := r.q.QueryRow(ctx, `SELECT timezone FROM users WHERE id = $1`, userID).Scan(&tz)
	if err != nil {
		if repokit.NoRows(err) {
			return "", nil
		}
		return "", perr.FromPostgres(err, "user timezone")
	}
	return tz, nil
}
