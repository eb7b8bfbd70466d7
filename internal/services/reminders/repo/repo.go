// Package repo implements reminder storage over Postgres
package repo

import (
	"context"
	"time"

	"pursue/internal/core/period"
	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/services/reminders/domain"
)

// PG is the Postgres reminders repository
type PG struct{}

// NewPG returns a binder for the reminders storage
func NewPG() repokit.Binder[domain.Storage] { return PG{} }

// Bind attaches a queryer
func (PG) Bind(q repokit.Queryer) domain.Storage { return &queries{q: q} }

type queries struct {
	q repokit.Queryer
}

// PreferencesForUser lists the caller's explicit preference rows
func (r *queries) PreferencesForUser(ctx context.Context, userID string) ([]domain.Preference, error) {
	rows, err := r.q.Query(ctx, `
		SELECT p.goal_id, p.enabled, p.mode, p.fixed_hour, p.aggressiveness,
		       p.quiet_hours_start, p.quiet_hours_end, p.last_modified_at
		FROM user_reminder_preferences p
		JOIN goals g ON g.id = p.goal_id AND g.deleted_at IS NULL
		WHERE p.user_id = $1
		ORDER BY p.last_modified_at DESC`,
		userID,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "list reminder preferences")
	}
	defer rows.Close()

	out := []domain.Preference{}
	for rows.Next() {
		var p domain.Preference
		if err := rows.Scan(
			&p.GoalID, &p.Enabled, &p.Mode, &p.FixedHour, &p.Aggressiveness,
			&p.QuietStart, &p.QuietEnd, &p.LastModifiedAt,
		); err != nil {
			return nil, perr.FromPostgres(err, "scan reminder preference")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *queries) UpsertPreference(ctx context.Context, userID, goalID string, p domain.Preference) (domain.Preference, error) {
	out := p
	out.GoalID = goalID
	err := r.q.QueryRow(ctx, `
		INSERT INTO user_reminder_preferences
			(user_id, goal_id, enabled, mode, fixed_hour, aggressiveness,
			 quiet_hours_start, quiet_hours_end, last_modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (user_id, goal_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			mode = EXCLUDED.mode,
			fixed_hour = EXCLUDED.fixed_hour,
			aggressiveness = EXCLUDED.aggressiveness,
			quiet_hours_start = EXCLUDED.quiet_hours_start,
			quiet_hours_end = EXCLUDED.quiet_hours_end,
			last_modified_at = NOW()
		RETURNING last_modified_at`,
		userID, goalID, p.Enabled, p.Mode, p.FixedHour, p.Aggressiveness,
		p.QuietStart, p.QuietEnd,
	).Scan(&out.LastModifiedAt)
	if err != nil {
		return domain.Preference{}, perr.FromPostgres(err, "upsert reminder preference")
	}
	return out, nil
}

func (r *queries) GoalGroup(ctx context.Context, goalID string) (string, bool, error) {
	var groupID string
	err := r.q.QueryRow(ctx, `
		SELECT group_id FROM goals WHERE id = $1 AND deleted_at IS NULL`,
		goalID,
	).Scan(&groupID)
	if err != nil {
		if repokit.NoRows(err) {
			return "", false, nil
		}
		return "", false, perr.FromPostgres(err, "resolve goal group")
	}
	return groupID, true, nil
}

// HourSamples buckets recent progress entries by the hour of the user's
// local clock at log time. The per-entry timezone is what the user was in
// when they logged, which is the clock the reminder should anchor on.
func (r *queries) HourSamples(ctx context.Context, since time.Time) ([]domain.HourSample, error) {
	rows, err := r.q.Query(ctx, `
		SELECT e.user_id, e.goal_id,
		       EXTRACT(HOUR FROM e.logged_at AT TIME ZONE e.user_timezone)::int,
		       COUNT(*)::int
		FROM progress_entries e
		JOIN goals g ON g.id = e.goal_id AND g.deleted_at IS NULL
		WHERE e.user_id IS NOT NULL
		  AND e.logged_at >= $1
		  AND e.moderation_status <> 'removed'
		GROUP BY e.user_id, e.goal_id, 3`,
		since,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "pattern hour samples")
	}
	defer rows.Close()

	out := []domain.HourSample{}
	for rows.Next() {
		var s domain.HourSample
		if err := rows.Scan(&s.UserID, &s.GoalID, &s.Hour, &s.Count); err != nil {
			return nil, perr.FromPostgres(err, "scan hour sample")
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *queries) UpsertPattern(ctx context.Context, p domain.Pattern, calculatedAt time.Time) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO goal_patterns
			(user_id, goal_id, typical_hour_start, typical_hour_end,
			 confidence_score, sample_size, last_calculated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, goal_id) DO UPDATE SET
			typical_hour_start = EXCLUDED.typical_hour_start,
			typical_hour_end = EXCLUDED.typical_hour_end,
			confidence_score = EXCLUDED.confidence_score,
			sample_size = EXCLUDED.sample_size,
			last_calculated_at = EXCLUDED.last_calculated_at`,
		p.UserID, p.GoalID, p.HourStart, p.HourEnd, p.Confidence, p.SampleSize, calculatedAt,
	)
	if err != nil {
		return perr.FromPostgres(err, "upsert goal pattern")
	}
	return nil
}

// DeletePatternsBefore removes patterns the latest run did not refresh,
// which is how pairs that dropped under the sample floor age out
func (r *queries) DeletePatternsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.q.Exec(ctx, `
		DELETE FROM goal_patterns WHERE last_calculated_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, perr.FromPostgres(err, "prune goal patterns")
	}
	return int(tag.RowsAffected()), nil
}

// Candidates joins active memberships against live goals with preference
// and pattern columns attached. Absent preference rows coalesce to the
// defaults; pairs with neither a preference nor a pattern are skipped
// since nothing could anchor a send for them.
func (r *queries) Candidates(ctx context.Context) ([]domain.Candidate, error) {
	rows, err := r.q.Query(ctx, `
		SELECT m.user_id, g.id, g.title, g.group_id, g.cadence,
		       COALESCE(g.active_days, 0), u.timezone,
		       COALESCE(p.enabled, TRUE), COALESCE(p.mode, 'smart'), p.fixed_hour,
		       COALESCE(p.aggressiveness, 'normal'),
		       COALESCE(p.quiet_hours_start, 22), COALESCE(p.quiet_hours_end, 7),
		       gp.typical_hour_start, gp.typical_hour_end,
		       gp.confidence_score, gp.sample_size
		FROM goals g
		JOIN groups gr ON gr.id = g.group_id AND gr.deleted_at IS NULL
		JOIN group_memberships m ON m.group_id = g.group_id AND m.status = 'active'
		JOIN users u ON u.id = m.user_id AND u.deleted_at IS NULL
		LEFT JOIN user_reminder_preferences p
			ON p.user_id = m.user_id AND p.goal_id = g.id
		LEFT JOIN goal_patterns gp
			ON gp.user_id = m.user_id AND gp.goal_id = g.id
		WHERE g.deleted_at IS NULL
		  AND COALESCE(p.enabled, TRUE)
		  AND (p.user_id IS NOT NULL OR gp.user_id IS NOT NULL)
		  AND (NOT gr.is_challenge OR gr.challenge_status = 'active')`,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "reminder candidates")
	}
	defer rows.Close()

	out := []domain.Candidate{}
	for rows.Next() {
		var (
			c                domain.Candidate
			cadence          string
			patStart, patEnd *int
			patConf          *float64
			patSamples       *int
		)
		if err := rows.Scan(
			&c.UserID, &c.GoalID, &c.GoalTitle, &c.GroupID, &cadence,
			&c.ActiveDays, &c.Timezone,
			&c.Pref.Enabled, &c.Pref.Mode, &c.Pref.FixedHour,
			&c.Pref.Aggressiveness, &c.Pref.QuietStart, &c.Pref.QuietEnd,
			&patStart, &patEnd, &patConf, &patSamples,
		); err != nil {
			return nil, perr.FromPostgres(err, "scan reminder candidate")
		}
		c.Cadence = period.Cadence(cadence)
		c.Pref.GoalID = c.GoalID
		if patStart != nil && patEnd != nil {
			c.Pattern = &domain.Pattern{
				UserID:     c.UserID,
				GoalID:     c.GoalID,
				HourStart:  *patStart,
				HourEnd:    *patEnd,
				Confidence: derefFloat(patConf),
				SampleSize: derefInt(patSamples),
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *queries) EntryExists(ctx context.Context, goalID, userID string, periodStart time.Time) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM progress_entries
			WHERE goal_id = $1 AND user_id = $2 AND period_start = $3
		)`,
		goalID, userID, periodStart,
	).Scan(&exists)
	if err != nil {
		return false, perr.FromPostgres(err, "check period entry")
	}
	return exists, nil
}

func (r *queries) InsertReminderLog(ctx context.Context, userID, goalID, dedupeKey string, periodStart, sentAt time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO reminder_log (user_id, goal_id, dedupe_key, period_start, sent_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (dedupe_key) DO NOTHING`,
		userID, goalID, dedupeKey, periodStart, sentAt,
	)
	if err != nil {
		return false, perr.FromPostgres(err, "log reminder")
	}
	return tag.RowsAffected() > 0, nil
}

// EvaluateEffectiveness stamps every unevaluated reminder from the window,
// marking it effective when a progress entry for the same (user, goal)
// landed within the follow-up window of the send
func (r *queries) EvaluateEffectiveness(ctx context.Context, since, now time.Time, window time.Duration) (int, int, error) {
	rows, err := r.q.Query(ctx, `
		UPDATE reminder_log rl
		SET effective = EXISTS (
			SELECT 1 FROM progress_entries e
			WHERE e.goal_id = rl.goal_id
			  AND e.user_id = rl.user_id
			  AND e.logged_at >= rl.sent_at
			  AND e.logged_at < rl.sent_at + $3::interval
		),
		evaluated_at = $2
		WHERE rl.evaluated_at IS NULL AND rl.sent_at >= $1 AND rl.sent_at <= $2
		RETURNING rl.effective`,
		since, now, window.String(),
	)
	if err != nil {
		return 0, 0, perr.FromPostgres(err, "evaluate reminders")
	}
	defer rows.Close()

	evaluated, effective := 0, 0
	for rows.Next() {
		var eff bool
		if err := rows.Scan(&eff); err != nil {
			return 0, 0, perr.FromPostgres(err, "scan reminder evaluation")
		}
		evaluated++
		if eff {
			effective++
		}
	}
	return evaluated, effective, rows.Err()
}

func derefFloat(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
