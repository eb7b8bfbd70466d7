// Package repo provides Postgres bindings for goals storage
package repo

import (
	"context"

	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/services/goals/domain"
)

type (
	// PG is a Postgres binder for domain.Storage
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

var _ domain.Storage = (*queries)(nil)

// NewPG returns a Postgres binder for goals storage
func NewPG() repokit.Binder[domain.Storage] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.Storage { return &queries{q: q} }

const goalCols = `id, group_id, title, description, cadence, metric_type, target_value,
	unit, active_days, log_title_prompt, template_goal_id, created_by, created_at, updated_at`

func scanGoal(row interface{ Scan(...any) error }) (domain.Goal, error) {
	var g domain.Goal
	err := row.Scan(
		&g.ID, &g.GroupID, &g.Title, &g.Description, &g.Cadence, &g.MetricType, &g.TargetValue,
		&g.Unit, &g.ActiveDays, &g.LogTitlePrompt, &g.TemplateGoalID, &g.CreatedBy, &g.CreatedAt, &g.UpdatedAt,
	)
	return g, err
}

func (r *queries) InsertGoal(ctx context.Context, groupID, createdBy string, in domain.CreateGoalInput) (domain.Goal, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO goals (group_id, title, description, cadence, metric_type,
			target_value, unit, active_days, log_title_prompt, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+goalCols,
		groupID, in.Title, in.Description, in.Cadence, in.MetricType,
		in.TargetValue, in.Unit, in.ActiveDays, in.LogTitlePrompt, createdBy,
	)
	g, err := scanGoal(row)
	if err != nil {
		return domain.Goal{}, perr.FromPostgres(err, "insert goal")
	}
	return g, nil
}

func (r *queries) GoalByID(ctx context.Context, goalID string) (domain.Goal, bool, error) {
	g, err := scanGoal(r.q.QueryRow(ctx, `
		SELECT `+goalCols+` FROM goals
		WHERE id = $1 AND deleted_at IS NULL`,
		goalID,
	))
	if err != nil {
		if repokit.NoRows(err) {
			return domain.Goal{}, false, nil
		}
		return domain.Goal{}, false, perr.FromPostgres(err, "goal by id")
	}
	return g, true, nil
}

func (r *queries) GoalForEntry(ctx context.Context, goalID string) (domain.Goal, bool, error) {
	g, err := scanGoal(r.q.QueryRow(ctx, `
		SELECT `+goalCols+` FROM goals WHERE id = $1`,
		goalID,
	))
	if err != nil {
		if repokit.NoRows(err) {
			return domain.Goal{}, false, nil
		}
		return domain.Goal{}, false, perr.FromPostgres(err, "goal for entry")
	}
	return g, true, nil
}

func (r *queries) GoalsForGroup(ctx context.Context, groupID string) ([]domain.Goal, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+goalCols+` FROM goals
		WHERE group_id = $1 AND deleted_at IS NULL
		ORDER BY created_at, id`,
		groupID,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "goals for group")
	}
	defer rows.Close()

	var out []domain.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, perr.FromPostgres(err, "scan goal")
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *queries) UpdateGoal(ctx context.Context, goalID string, in domain.UpdateGoalInput) (domain.Goal, bool, error) {
	g, err := scanGoal(r.q.QueryRow(ctx, `
		UPDATE goals SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			target_value = COALESCE($4, target_value),
			unit = COALESCE($5, unit),
			active_days = COALESCE($6, active_days),
			log_title_prompt = COALESCE($7, log_title_prompt)
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+goalCols,
		goalID, in.Title, in.Description, in.TargetValue, in.Unit, in.ActiveDays, in.LogTitlePrompt,
	))
	if err != nil {
		if repokit.NoRows(err) {
			return domain.Goal{}, false, nil
		}
		return domain.Goal{}, false, perr.FromPostgres(err, "update goal")
	}
	return g, true, nil
}

// ArchiveGoal soft-deletes; the row keeps occupying the per-group cap
// until hard-deleted with its group
func (r *queries) ArchiveGoal(ctx context.Context, goalID string) (bool, error) {
	var id string
	err := r.q.QueryRow(ctx, `
		UPDATE goals SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING id`,
		goalID,
	).Scan(&id)
	if err != nil {
		if repokit.NoRows(err) {
			return false, nil
		}
		return false, perr.FromPostgres(err, "archive goal")
	}
	return true, nil
}
