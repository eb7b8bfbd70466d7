// Package repo implements the weekly-recap aggregation over Postgres
package repo

import (
	"context"
	"time"

	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/services/jobs/domain"
)

// PG is the Postgres jobs repository
type PG struct{}

// NewPG returns a binder for the jobs storage
func NewPG() repokit.Binder[domain.Storage] { return PG{} }

// Bind attaches a queryer
func (PG) Bind(q repokit.Queryer) domain.Storage { return &queries{q: q} }

type queries struct {
	q repokit.Queryer
}

// RecapRows counts progress entries per active member per live group over
// the window. Members with nothing logged still get a row so the recap
// can say so.
func (r *queries) RecapRows(ctx context.Context, since, until time.Time) ([]domain.RecapRow, error) {
	rows, err := r.q.Query(ctx, `
		SELECT m.user_id, gr.id, gr.name,
		       COUNT(e.id) FILTER (
		           WHERE e.user_id = m.user_id AND e.moderation_status <> 'removed'
		       )::int
		FROM groups gr
		JOIN group_memberships m ON m.group_id = gr.id AND m.status = 'active'
		JOIN users u ON u.id = m.user_id AND u.deleted_at IS NULL
		LEFT JOIN goals g ON g.group_id = gr.id AND g.deleted_at IS NULL
		LEFT JOIN progress_entries e ON e.goal_id = g.id
			AND e.logged_at >= $1 AND e.logged_at < $2
		WHERE gr.deleted_at IS NULL
		  AND (NOT gr.is_challenge OR gr.challenge_status = 'active')
		GROUP BY m.user_id, gr.id, gr.name
		ORDER BY gr.id`,
		since, until,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "recap rows")
	}
	defer rows.Close()

	out := []domain.RecapRow{}
	for rows.Next() {
		var row domain.RecapRow
		if err := rows.Scan(&row.UserID, &row.GroupID, &row.GroupName, &row.Entries); err != nil {
			return nil, perr.FromPostgres(err, "scan recap row")
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
