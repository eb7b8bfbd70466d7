package repo

import (
	"context"
	"encoding/json"
	"time"

	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/services/groups/domain"
)

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

func (r *queries) InsertSeedGoals(ctx context.Context, groupID string, seeds []domain.GoalSeed, createdBy string) error {
	for _, s := range seeds {
		if _, err := r.q.Exec(ctx, `
			INSERT INTO goals (group_id, title, description, cadence, metric_type, target_value, unit, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			groupID, s.Title, s.Description, s.Cadence, s.MetricType, s.TargetValue, s.Unit, createdBy,
		); err != nil {
			return perr.FromPostgres(err, "insert seed goal")
		}
	}
	return nil
}

func (r *queries) InsertHeatRow(ctx context.Context, groupID string) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO group_heat (group_id) VALUES ($1)
		ON CONFLICT (group_id) DO NOTHING`,
		groupID,
	)
	if err != nil {
		return perr.FromPostgres(err, "insert heat row")
	}
	return nil
}

func (r *queries) HeatFor(ctx context.Context, groupID string) (domain.HeatRow, bool, error) {
	return heatFor(ctx, r.q, groupID)
}

// ExportRows aggregates progress per member x goal x period. Removed
// entries stay out of exports
func (r *queries) ExportRows(ctx context.Context, groupID string, from, to time.Time) ([]domain.ExportRow, error) {
	rows, err := r.q.Query(ctx, `
		SELECT p.user_id, u.display_name, g.id, g.title, g.metric_type,
			COALESCE(g.target_value, 1), p.period_start,
			COUNT(*), COALESCE(SUM(p.value), 0)
		FROM progress_entries p
		JOIN goals g ON g.id = p.goal_id AND g.group_id = $1
		JOIN users u ON u.id = p.user_id AND u.deleted_at IS NULL
		WHERE p.period_start BETWEEN $2 AND $3
		  AND p.moderation_status <> 'removed'
		GROUP BY p.user_id, u.display_name, g.id, g.title, g.metric_type, g.target_value, p.period_start
		ORDER BY u.display_name, g.title, p.period_start`,
		groupID, from, to,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "export rows")
	}
	defer rows.Close()

	var out []domain.ExportRow
	for rows.Next() {
		var (
			er      domain.ExportRow
			entries int
			sum     float64
		)
		if err := rows.Scan(&er.MemberID, &er.MemberName, &er.GoalID, &er.GoalTitle, &er.MetricType,
			&er.Target, &er.PeriodStart, &entries, &sum); err != nil {
			return nil, perr.FromPostgres(err, "scan export row")
		}
		// binary and journal goals count entries; the measured kinds sum values
		if er.MetricType == "binary" || er.MetricType == "journal" {
			er.Completed = float64(entries)
		} else {
			er.Completed = sum
		}
		er.Percentage = exportPct(er.Completed, er.Target)
		out = append(out, er)
	}
	return out, rows.Err()
}

func exportPct(completed, target float64) int {
	if target <= 0 {
		return 0
	}
	pct := int(completed/target*100 + 0.5)
	if pct < 0 {
		return 0
	}
	return min(pct, 100)
}

// heatFor is shared by the groups detail view and the heat engine binder
func heatFor(ctx context.Context, q repokit.Queryer, groupID string) (domain.HeatRow, bool, error) {
	var h domain.HeatRow
	err := q.QueryRow(ctx, `
		SELECT group_id, score, tier, streak_days, peak_score, peak_date,
			last_calculated_at, yesterday_gcr, baseline_gcr
		FROM group_heat
		WHERE group_id = $1`,
		groupID,
	).Scan(&h.GroupID, &h.Score, &h.Tier, &h.StreakDays, &h.PeakScore, &h.PeakDate,
		&h.LastCalculatedAt, &h.YesterdayGCR, &h.BaselineGCR)
	if err != nil {
		if repokit.NoRows(err) {
			return domain.HeatRow{}, false, nil
		}
		return domain.HeatRow{}, false, perr.FromPostgres(err, "heat for group")
	}
	return h, true, nil
}
