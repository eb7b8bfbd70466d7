package repo

import (
	"context"
	"encoding/json"
	"time"

	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/services/goals/domain"
)

const entryCols = `id, goal_id, user_id, value, note, log_title, period_start,
	user_timezone, logged_at, moderation_status`

func scanEntry(row interface{ Scan(...any) error }) (domain.Entry, error) {
	var e domain.Entry
	err := row.Scan(
		&e.ID, &e.GoalID, &e.UserID, &e.Value, &e.Note, &e.LogTitle, &e.PeriodStart,
		&e.UserTimezone, &e.LoggedAt, &e.ModerationStatus,
	)
	return e, err
}

func (r *queries) InsertEntry(ctx context.Context, in domain.NewEntry) (domain.Entry, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO progress_entries (goal_id, user_id, value, note, log_title, period_start, user_timezone)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+entryCols,
		in.GoalID, in.UserID, in.Value, in.Note, in.LogTitle, in.PeriodStart, in.UserTimezone,
	)
	e, err := scanEntry(row)
	if err != nil {
		return domain.Entry{}, perr.FromPostgres(err, "insert progress entry")
	}
	return e, nil
}

func (r *queries) EntryByID(ctx context.Context, entryID string) (domain.Entry, bool, error) {
	e, err := scanEntry(r.q.QueryRow(ctx, `
		SELECT `+entryCols+` FROM progress_entries WHERE id = $1`,
		entryID,
	))
	if err != nil {
		if repokit.NoRows(err) {
			return domain.Entry{}, false, nil
		}
		return domain.Entry{}, false, perr.FromPostgres(err, "progress entry by id")
	}
	return e, true, nil
}

func (r *queries) UpdateEntry(ctx context.Context, entryID string, in domain.UpdateEntryInput) (domain.Entry, bool, error) {
	e, err := scanEntry(r.q.QueryRow(ctx, `
		UPDATE progress_entries SET
			value = COALESCE($2, value),
			note = COALESCE($3, note),
			log_title = COALESCE($4, log_title)
		WHERE id = $1
		RETURNING `+entryCols,
		entryID, in.Value, in.Note, in.LogTitle,
	))
	if err != nil {
		if repokit.NoRows(err) {
			return domain.Entry{}, false, nil
		}
		return domain.Entry{}, false, perr.FromPostgres(err, "update progress entry")
	}
	return e, true, nil
}

func (r *queries) DeleteEntry(ctx context.Context, entryID string) (bool, error) {
	var id string
	err := r.q.QueryRow(ctx, `
		DELETE FROM progress_entries WHERE id = $1 RETURNING id`,
		entryID,
	).Scan(&id)
	if err != nil {
		if repokit.NoRows(err) {
			return false, nil
		}
		return false, perr.FromPostgres(err, "delete progress entry")
	}
	return true, nil
}

func (r *queries) scanEntries(rows repokit.Rows, what string) ([]domain.Entry, error) {
	defer rows.Close()
	var out []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, perr.FromPostgres(err, what)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *queries) EntriesSince(ctx context.Context, goalIDs []string, minPeriod time.Time) ([]domain.Entry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+entryCols+` FROM progress_entries
		WHERE goal_id = ANY($1::uuid[]) AND period_start >= $2
		ORDER BY logged_at`,
		goalIDs, minPeriod,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "entries since")
	}
	return r.scanEntries(rows, "scan entry")
}

func (r *queries) EntriesForGoal(ctx context.Context, goalID string, from, to time.Time) ([]domain.Entry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+entryCols+` FROM progress_entries
		WHERE goal_id = $1 AND period_start BETWEEN $2 AND $3
		ORDER BY period_start DESC, logged_at DESC`,
		goalID, from, to,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "entries for goal")
	}
	return r.scanEntries(rows, "scan entry")
}

func (r *queries) EntriesForGoalUser(ctx context.Context, goalID, userID string, from, to time.Time) ([]domain.Entry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+entryCols+` FROM progress_entries
		WHERE goal_id = $1 AND user_id = $2 AND period_start BETWEEN $3 AND $4
		ORDER BY period_start DESC, logged_at DESC`,
		goalID, userID, from, to,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "entries for goal user")
	}
	return r.scanEntries(rows, "scan entry")
}

// EntriesForMember spans live goals only; archived goals drop out of
// member summaries
func (r *queries) EntriesForMember(ctx context.Context, groupID, userID string, from, to time.Time) ([]domain.Entry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT e.id, e.goal_id, e.user_id, e.value, e.note, e.log_title, e.period_start,
			e.user_timezone, e.logged_at, e.moderation_status
		FROM progress_entries e
		JOIN goals g ON g.id = e.goal_id AND g.deleted_at IS NULL
		WHERE g.group_id = $1 AND e.user_id = $2 AND e.period_start BETWEEN $3 AND $4
		ORDER BY e.period_start DESC, e.logged_at DESC`,
		groupID, userID, from, to,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "entries for member")
	}
	return r.scanEntries(rows, "scan entry")
}

func (r *queries) CountEntries(ctx context.Context, goalID, userID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM progress_entries
		WHERE goal_id = $1 AND user_id = $2`,
		goalID, userID,
	).Scan(&n)
	if err != nil {
		return 0, perr.FromPostgres(err, "count entries")
	}
	return n, nil
}

func (r *queries) Roster(ctx context.Context, groupID string) ([]domain.RosterMember, error) {
	rows, err := r.q.Query(ctx, `
		SELECT m.user_id, u.display_name, m.role, (u.avatar IS NOT NULL)
		FROM group_memberships m
		JOIN users u ON u.id = m.user_id AND u.deleted_at IS NULL
		WHERE m.group_id = $1 AND m.status = 'active'
		ORDER BY (m.role = 'creator') DESC, m.joined_at`,
		groupID,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "group roster")
	}
	defer rows.Close()

	var out []domain.RosterMember
	for rows.Next() {
		var m domain.RosterMember
		if err := rows.Scan(&m.UserID, &m.DisplayName, &m.Role, &m.HasAvatar); err != nil {
			return nil, perr.FromPostgres(err, "scan roster member")
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *queries) UserTimezone(ctx context.Context, userID string) (string, error) {
	var tz string
	err := r.q.QueryRow(ctx, `
		SELECT timezone FROM users WHERE id = $1 AND deleted_at IS NULL`,
		userID,
	).Scan(&tz)
	if err != nil {
		if repokit.NoRows(err) {
			return "", nil
		}
		return "", perr.FromPostgres(err, "user timezone")
	}
	return tz, nil
}

func (r *queries) SetUserTimezone(ctx context.Context, userID, tz string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE users SET timezone = $2 WHERE id = $1 AND deleted_at IS NULL`,
		userID, tz,
	)
	if err != nil {
		return perr.FromPostgres(err, "set user timezone")
	}
	return nil
}

const photoCols = `id, progress_entry_id, user_id, object_path, width_px, height_px,
	expires_at, object_deleted_at, created_at`

func scanPhoto(row interface{ Scan(...any) error }) (domain.Photo, error) {
	var p domain.Photo
	err := row.Scan(
		&p.ID, &p.ProgressEntryID, &p.UserID, &p.ObjectPath, &p.WidthPx, &p.HeightPx,
		&p.ExpiresAt, &p.ObjectDeletedAt, &p.CreatedAt,
	)
	return p, err
}

func (r *queries) InsertPhoto(ctx context.Context, in domain.NewPhoto) (domain.Photo, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO progress_photos (progress_entry_id, user_id, object_path, width_px, height_px, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+photoCols,
		in.ProgressEntryID, in.UserID, in.ObjectPath, in.WidthPx, in.HeightPx, in.ExpiresAt,
	)
	p, err := scanPhoto(row)
	if err != nil {
		return domain.Photo{}, perr.FromPostgres(err, "insert photo")
	}
	return p, nil
}

func (r *queries) PhotoByEntry(ctx context.Context, entryID string) (domain.Photo, bool, error) {
	p, err := scanPhoto(r.q.QueryRow(ctx, `
		SELECT `+photoCols+` FROM progress_photos WHERE progress_entry_id = $1`,
		entryID,
	))
	if err != nil {
		if repokit.NoRows(err) {
			return domain.Photo{}, false, nil
		}
		return domain.Photo{}, false, perr.FromPostgres(err, "photo by entry")
	}
	return p, true, nil
}

func (r *queries) PhotosByEntryIDs(ctx context.Context, entryIDs []string) ([]domain.Photo, error) {
	if len(entryIDs) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+photoCols+` FROM progress_photos
		WHERE progress_entry_id = ANY($1::uuid[])`,
		entryIDs,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "photos by entries")
	}
	defer rows.Close()

	var out []domain.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, perr.FromPostgres(err, "scan photo")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *queries) MarkPhotoDeleted(ctx context.Context, photoID string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE progress_photos SET object_deleted_at = NOW()
		WHERE id = $1 AND object_deleted_at IS NULL`,
		photoID,
	)
	if err != nil {
		return perr.FromPostgres(err, "mark photo deleted")
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
