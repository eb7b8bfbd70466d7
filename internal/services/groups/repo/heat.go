package repo

import (
	"context"
	"time"

	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/services/groups/domain"
)

type (
	// HeatPG is a Postgres binder for domain.HeatStorage
	HeatPG      struct{}
	heatQueries struct{ q repokit.Queryer }
)

var _ domain.HeatStorage = (*heatQueries)(nil)

// NewHeatPG returns a Postgres binder for the heat engine
func NewHeatPG() repokit.Binder[domain.HeatStorage] { return HeatPG{} }

// Bind implements repokit.Binder
func (HeatPG) Bind(q repokit.Queryer) domain.HeatStorage { return &heatQueries{q: q} }

// GroupsForHeat gathers every live group's counters for one daily run.
// The pairs subquery resolves each goal's yesterday bucket by cadence, so
// a weekly goal logged on Tuesday still counts for Wednesday's run
func (r *heatQueries) GroupsForHeat(ctx context.Context, now time.Time) ([]domain.HeatJobRow, error) {
	yesterday := now.AddDate(0, 0, -1)
	rows, err := r.q.Query(ctx, `
		SELECT g.id,
			(SELECT COUNT(*) FROM group_memberships m
				WHERE m.group_id = g.id AND m.status = 'active') AS members,
			(SELECT COUNT(*) FROM goals gl
				WHERE gl.group_id = g.id AND gl.deleted_at IS NULL) AS goals,
			(SELECT COUNT(DISTINCT (p.goal_id, p.user_id))
				FROM progress_entries p
				JOIN goals gl ON gl.id = p.goal_id AND gl.group_id = g.id AND gl.deleted_at IS NULL
				JOIN group_memberships m ON m.group_id = g.id AND m.user_id = p.user_id AND m.status = 'active'
				WHERE p.period_start = CASE gl.cadence
					WHEN 'daily' THEN $2::date
					WHEN 'weekly' THEN date_trunc('week', $2::date)::date
					WHEN 'monthly' THEN date_trunc('month', $2::date)::date
					ELSE date_trunc('year', $2::date)::date
				END) AS pairs,
			(SELECT COUNT(*) FROM group_activities a
				WHERE a.group_id = g.id
				  AND a.created_at >= $1::timestamptz - interval '7 days') AS week_activities,
			(SELECT COUNT(*) FROM group_memberships m
				WHERE m.group_id = g.id AND m.status = 'active'
				  AND m.joined_at <= $1::timestamptz - interval '7 days') AS members_then,
			COALESCE(h.score, 0), COALESCE(h.tier, 0), COALESCE(h.streak_days, 0),
			COALESCE(h.peak_score, 0), h.peak_date, h.last_calculated_at,
			COALESCE(h.baseline_gcr, 0)
		FROM groups g
		LEFT JOIN group_heat h ON h.group_id = g.id
		WHERE g.deleted_at IS NULL
		ORDER BY g.id`,
		now, yesterday,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "groups for heat")
	}
	defer rows.Close()

	var out []domain.HeatJobRow
	for rows.Next() {
		var jr domain.HeatJobRow
		if err := rows.Scan(
			&jr.GroupID, &jr.Members, &jr.Goals, &jr.PairsLogged,
			&jr.WeekActivities, &jr.MembersWeekAgo,
			&jr.Prev.Score, &jr.Prev.Tier, &jr.Prev.StreakDays,
			&jr.Prev.PeakScore, &jr.Prev.PeakDate, &jr.Prev.LastCalculatedAt,
			&jr.Prev.BaselineGCR,
		); err != nil {
			return nil, perr.FromPostgres(err, "scan heat job row")
		}
		jr.Prev.GroupID = jr.GroupID
		out = append(out, jr)
	}
	return out, rows.Err()
}

func (r *heatQueries) SaveHeat(ctx context.Context, h domain.HeatRow) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO group_heat (group_id, score, tier, streak_days, peak_score,
			peak_date, last_calculated_at, yesterday_gcr, baseline_gcr)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (group_id) DO UPDATE SET
			score = EXCLUDED.score,
			tier = EXCLUDED.tier,
			streak_days = EXCLUDED.streak_days,
			peak_score = EXCLUDED.peak_score,
			peak_date = EXCLUDED.peak_date,
			last_calculated_at = EXCLUDED.last_calculated_at,
			yesterday_gcr = EXCLUDED.yesterday_gcr,
			baseline_gcr = EXCLUDED.baseline_gcr`,
		h.GroupID, h.Score, h.Tier, h.StreakDays, h.PeakScore,
		h.PeakDate, h.LastCalculatedAt, h.YesterdayGCR, h.BaselineGCR,
	)
	if err != nil {
		return perr.FromPostgres(err, "save heat")
	}
	return nil
}

// InsertHeatDay tolerates reruns; the history keeps the first sample of
// each day
func (r *heatQueries) InsertHeatDay(ctx context.Context, groupID string, day domain.HeatDay) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO group_heat_history (group_id, heat_date, score, tier, gcr)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (group_id, heat_date) DO NOTHING`,
		groupID, day.Date, day.Score, day.Tier, day.GCR,
	)
	if err != nil {
		return perr.FromPostgres(err, "insert heat day")
	}
	return nil
}

func (r *heatQueries) HeatFor(ctx context.Context, groupID string) (domain.HeatRow, bool, error) {
	return heatFor(ctx, r.q, groupID)
}

// HeatHistoryDays returns up to days samples, oldest first
func (r *heatQueries) HeatHistoryDays(ctx context.Context, groupID string, days int) ([]domain.HeatDay, error) {
	rows, err := r.q.Query(ctx, `
		SELECT heat_date, score, tier, gcr FROM (
			SELECT heat_date, score, tier, gcr FROM group_heat_history
			WHERE group_id = $1
			ORDER BY heat_date DESC
			LIMIT $2
		) recent
		ORDER BY heat_date`,
		groupID, days,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "heat history")
	}
	defer rows.Close()

	var out []domain.HeatDay
	for rows.Next() {
		var d domain.HeatDay
		if err := rows.Scan(&d.Date, &d.Score, &d.Tier, &d.GCR); err != nil {
			return nil, perr.FromPostgres(err, "scan heat day")
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
