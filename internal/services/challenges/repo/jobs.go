package repo

import (
	"context"
	"time"

	perr "pursue/internal/platform/errors"
	"pursue/internal/services/challenges/domain"
	goalsdomain "pursue/internal/services/goals/domain"
)

func (r *queries) ActivateDue(ctx context.Context, today time.Time) (int, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE groups SET challenge_status = 'active'
		WHERE is_challenge AND deleted_at IS NULL
		  AND challenge_status = 'upcoming'
		  AND challenge_start_date <= $1 AND challenge_end_date >= $1`,
		today,
	)
	if err != nil {
		return 0, perr.FromPostgres(err, "activate due challenges")
	}
	return int(tag.RowsAffected()), nil
}

// CompleteDue also folds upcoming challenges whose whole window slipped
// past, so a stalled scheduler cannot strand them
func (r *queries) CompleteDue(ctx context.Context, today time.Time) (int, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE groups SET challenge_status = 'completed'
		WHERE is_challenge AND deleted_at IS NULL
		  AND challenge_status IN ('upcoming', 'active')
		  AND challenge_end_date < $1`,
		today,
	)
	if err != nil {
		return 0, perr.FromPostgres(err, "complete due challenges")
	}
	return int(tag.RowsAffected()), nil
}

func (r *queries) CompletionPending(ctx context.Context, limit int) ([]domain.Challenge, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+challengeCols+` FROM groups
		WHERE is_challenge AND deleted_at IS NULL
		  AND challenge_status = 'completed' AND completion_notified_at IS NULL
		ORDER BY challenge_end_date
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "completion pending")
	}
	defer rows.Close()

	var out []domain.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, perr.FromPostgres(err, "scan challenge")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgres(err, "completion pending")
	}
	return out, nil
}

func (r *queries) MarkCompletionNotified(ctx context.Context, groupID string) error {
	if _, err := r.q.Exec(ctx, `
		UPDATE groups SET completion_notified_at = NOW()
		WHERE id = $1 AND completion_notified_at IS NULL`,
		groupID,
	); err != nil {
		return perr.FromPostgres(err, "mark completion notified")
	}
	return nil
}

// ChallengeGoals scans the columns the completion aggregate reads
func (r *queries) ChallengeGoals(ctx context.Context, groupID string) ([]goalsdomain.Goal, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, group_id, title, cadence, metric_type, target_value, unit, active_days
		FROM goals
		WHERE group_id = $1 AND deleted_at IS NULL
		ORDER BY created_at, id`,
		groupID,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "challenge goals")
	}
	defer rows.Close()

	var out []goalsdomain.Goal
	for rows.Next() {
		var g goalsdomain.Goal
		if err := rows.Scan(&g.ID, &g.GroupID, &g.Title, &g.Cadence, &g.MetricType, &g.TargetValue, &g.Unit, &g.ActiveDays); err != nil {
			return nil, perr.FromPostgres(err, "scan challenge goal")
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgres(err, "challenge goals")
	}
	return out, nil
}

func (r *queries) WindowEntries(ctx context.Context, groupID string, from, to time.Time) ([]goalsdomain.Entry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT e.goal_id, e.user_id, e.value, e.period_start
		FROM progress_entries e
		JOIN goals g ON g.id = e.goal_id AND g.deleted_at IS NULL
		WHERE g.group_id = $1 AND e.period_start BETWEEN $2 AND $3`,
		groupID, from, to,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "window entries")
	}
	defer rows.Close()

	var out []goalsdomain.Entry
	for rows.Next() {
		var e goalsdomain.Entry
		if err := rows.Scan(&e.GoalID, &e.UserID, &e.Value, &e.PeriodStart); err != nil {
			return nil, perr.FromPostgres(err, "scan window entry")
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgres(err, "window entries")
	}
	return out, nil
}
