// Package repo implements notification storage over Postgres
package repo

import (
	"context"
	"fmt"
	"time"

	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/services/notifications/domain"
)

// PG is the Postgres notifications repository
type PG struct{}

// NewPG returns a binder for the notifications storage
func NewPG() repokit.Binder[domain.Storage] { return PG{} }

// Bind attaches a queryer
func (PG) Bind(q repokit.Queryer) domain.Storage { return &queries{q: q} }

type queries struct {
	q repokit.Queryer
}

// UpsertDevice registers a token, stealing it from its previous owner
// when a device changes hands, and touches last_active_at
func (r *queries) UpsertDevice(ctx context.Context, userID, token, platform string) (domain.Device, error) {
	var d domain.Device
	err := r.q.QueryRow(ctx, `
		INSERT INTO devices (user_id, fcm_token, platform)
		VALUES ($1, $2, $3)
		ON CONFLICT (fcm_token) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			platform = EXCLUDED.platform,
			last_active_at = NOW()
		RETURNING id, platform, last_active_at, created_at`,
		userID, token, platform,
	).Scan(&d.ID, &d.Platform, &d.LastActiveAt, &d.CreatedAt)
	if err != nil {
		return domain.Device{}, perr.FromPostgres(err, "upsert device")
	}
	return d, nil
}

func (r *queries) DeleteDevice(ctx context.Context, userID, token string) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		DELETE FROM devices WHERE user_id = $1 AND fcm_token = $2`,
		userID, token,
	)
	if err != nil {
		return false, perr.FromPostgres(err, "delete device")
	}
	return tag.RowsAffected() > 0, nil
}

// TokensForUsers loads every live token for the given users in one pass
func (r *queries) TokensForUsers(ctx context.Context, userIDs []string) (map[string][]string, error) {
	if len(userIDs) == 0 {
		return map[string][]string{}, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT user_id, fcm_token
		FROM devices
		WHERE user_id = ANY($1::uuid[])
		ORDER BY last_active_at DESC`,
		userIDs,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "device tokens")
	}
	defer rows.Close()

	out := make(map[string][]string, len(userIDs))
	for rows.Next() {
		var uid, tok string
		if err := rows.Scan(&uid, &tok); err != nil {
			return nil, perr.FromPostgres(err, "scan device token")
		}
		out[uid] = append(out[uid], tok)
	}
	return out, rows.Err()
}

func (r *queries) InsertNotification(ctx context.Context, userID, ntype, title, body string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO user_notifications (user_id, notification_type, title, body, data)
		VALUES ($1, $2, $3, $4, $5)`,
		userID, ntype, title, body, data,
	)
	if err != nil {
		return perr.FromPostgres(err, "insert notification")
	}
	return nil
}

// InsertRecapNotification writes one recap row per (user, ISO week).
// The guard is a NOT EXISTS probe on the data payload, which keeps the
// weekly job idempotent without a dedicated dedupe table
func (r *queries) InsertRecapNotification(ctx context.Context, userID, title, body string, data map[string]any, week string) (bool, error) {
	if data == nil {
		data = map[string]any{}
	}
	data["week"] = week
	tag, err := r.q.Exec(ctx, `
		INSERT INTO user_notifications (user_id, notification_type, title, body, data)
		SELECT $1, $2, $3, $4, $5
		WHERE NOT EXISTS (
			SELECT 1 FROM user_notifications
			WHERE user_id = $1 AND notification_type = $2 AND data->>'week' = $6
		)`,
		userID, domain.TypeWeeklyRecap, title, body, data, week,
	)
	if err != nil {
		return false, perr.FromPostgres(err, "insert recap notification")
	}
	return tag.RowsAffected() > 0, nil
}

// Inbox pages the user's notifications newest first with a keyset on
// (created_at, id)
func (r *queries) Inbox(ctx context.Context, userID string, before *domain.InboxKey, limit int) ([]domain.Notification, error) {
	keyset := ""
	args := []any{userID, limit}
	if before != nil {
		keyset = `AND (created_at, id) < ($3, $4)`
		args = append(args, before.CreatedAt, before.ID)
	}
	rows, err := r.q.Query(ctx, fmt.Sprintf(`
		SELECT id, notification_type, title, body, data, read_at, created_at
		FROM user_notifications
		WHERE user_id = $1 %s
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, keyset),
		args...,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "inbox")
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Body, &n.Data, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, perr.FromPostgres(err, "scan notification")
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *queries) MarkRead(ctx context.Context, userID string, ids []string) (int, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE user_notifications SET read_at = NOW()
		WHERE user_id = $1 AND id = ANY($2::uuid[]) AND read_at IS NULL`,
		userID, ids,
	)
	if err != nil {
		return 0, perr.FromPostgres(err, "mark read")
	}
	return int(tag.RowsAffected()), nil
}

func (r *queries) MarkAllRead(ctx context.Context, userID string) (int, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE user_notifications SET read_at = NOW()
		WHERE user_id = $1 AND read_at IS NULL`,
		userID,
	)
	if err != nil {
		return 0, perr.FromPostgres(err, "mark all read")
	}
	return int(tag.RowsAffected()), nil
}

func (r *queries) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM user_notifications
		WHERE user_id = $1 AND read_at IS NULL`,
		userID,
	).Scan(&n)
	if err != nil {
		return 0, perr.FromPostgres(err, "unread count")
	}
	return n, nil
}

// InsertNudge applies the one-per-day rule through the unique key;
// a repeat surfaces as NUDGE_ALREADY_SENT
func (r *queries) InsertNudge(ctx context.Context, senderID, recipientID, groupID string, goalID *string, localDate time.Time) (domain.Nudge, error) {
	var n domain.Nudge
	var day time.Time
	err := r.q.QueryRow(ctx, `
		INSERT INTO nudges (sender_user_id, recipient_user_id, group_id, goal_id, sender_local_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, recipient_user_id, group_id, goal_id, sender_local_date, sent_at`,
		senderID, recipientID, groupID, goalID, localDate,
	).Scan(&n.ID, &n.RecipientID, &n.GroupID, &n.GoalID, &day, &n.SentAt)
	if err != nil {
		if perr.IsDuplicateKey(err) {
			return domain.Nudge{}, perr.Reasoned(perr.ErrorCodeConflict, "NUDGE_ALREADY_SENT",
				"you already nudged this member today")
		}
		return domain.Nudge{}, perr.FromPostgres(err, "insert nudge")
	}
	n.SenderLocalDate = day.Format("2006-01-02")
	return n, nil
}

func (r *queries) NudgedToday(ctx context.Context, senderID, groupID string, localDate time.Time) ([]string, error) {
	rows, err := r.q.Query(ctx, `
		SELECT recipient_user_id FROM nudges
		WHERE sender_user_id = $1 AND group_id = $2 AND sender_local_date = $3`,
		senderID, groupID, localDate,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "nudges today")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, perr.FromPostgres(err, "scan nudge recipient")
		}
		out = append(out, id)
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

func (r *queries) DisplayName(ctx context.Context, userID string) (string, error) {
	var name string
	err := r.q.QueryRow(ctx, `
		SELECT display_name FROM users WHERE id = $1 AND deleted_at IS NULL`,
		userID,
	).Scan(&name)
	if err != nil {
		if repokit.NoRows(err) {
			return "", nil
		}
		return "", perr.FromPostgres(err, "display name")
	}
	return name, nil
}

func (r *queries) GroupAdminIDs(ctx context.Context, groupID string) ([]string, error) {
	rows, err := r.q.Query(ctx, `
		SELECT user_id FROM group_memberships
		WHERE group_id = $1 AND status = 'active' AND role IN ('creator', 'admin')`,
		groupID,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "group admins")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, perr.FromPostgres(err, "scan admin id")
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *queries) GoalTitle(ctx context.Context, goalID string) (string, bool, error) {
	var title string
	err := r.q.QueryRow(ctx, `
		SELECT title FROM goals WHERE id = $1 AND deleted_at IS NULL`,
		goalID,
	).Scan(&title)
	if err != nil {
		if repokit.NoRows(err) {
			return "", false, nil
		}
		return "", false, perr.FromPostgres(err, "goal title")
	}
	return title, true, nil
}
