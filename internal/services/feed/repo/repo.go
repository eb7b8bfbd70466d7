// Package repo implements feed storage over Postgres
package repo

import (
	"context"

	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/services/feed/domain"
)

// PG is the Postgres feed repository
type PG struct{}

// NewPG returns a binder for the feed storage
func NewPG() repokit.Binder[domain.Storage] { return PG{} }

// Bind attaches a queryer
func (PG) Bind(q repokit.Queryer) domain.Storage { return &queries{q: q} }

type queries struct {
	q repokit.Queryer
}

// Activities pages the group feed newest first. Soft-deleted authors
// drop out of the join and read as ghost rows
func (r *queries) Activities(ctx context.Context, groupID string, limit, offset int) ([]domain.ActivityRow, error) {
	rows, err := r.q.Query(ctx, `
		SELECT a.id, a.group_id, a.activity_type, a.metadata, a.created_at,
		       a.user_id, u.display_name
		FROM group_activities a
		LEFT JOIN users u ON u.id = a.user_id AND u.deleted_at IS NULL
		WHERE a.group_id = $1
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT $2 OFFSET $3`,
		groupID, limit, offset,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "feed activities")
	}
	defer rows.Close()

	var out []domain.ActivityRow
	for rows.Next() {
		var a domain.ActivityRow
		if err := rows.Scan(&a.ID, &a.GroupID, &a.Type, &a.Metadata, &a.CreatedAt, &a.ActorID, &a.ActorName); err != nil {
			return nil, perr.FromPostgres(err, "scan activity")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// PhotosByEntries fetches every photo linked to the page's progress
// entries in one pass, with the owner and moderation status the overlay
// needs
func (r *queries) PhotosByEntries(ctx context.Context, entryIDs []string) ([]domain.PhotoRow, error) {
	if len(entryIDs) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT p.progress_entry_id, p.object_path, p.width_px, p.height_px,
		       p.expires_at, (p.object_deleted_at IS NOT NULL),
		       e.user_id, e.moderation_status
		FROM progress_photos p
		JOIN progress_entries e ON e.id = p.progress_entry_id
		WHERE p.progress_entry_id = ANY($1::uuid[])`,
		entryIDs,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "feed photos")
	}
	defer rows.Close()

	var out []domain.PhotoRow
	for rows.Next() {
		var p domain.PhotoRow
		if err := rows.Scan(&p.EntryID, &p.ObjectPath, &p.WidthPx, &p.HeightPx, &p.ExpiresAt, &p.ObjectGone, &p.OwnerID, &p.Moderation); err != nil {
			return nil, perr.FromPostgres(err, "scan feed photo")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ReactionsByActivities fetches the page's reactions in one pass,
// newest first. Soft-deleted reactors keep their row but lose the name
func (r *queries) ReactionsByActivities(ctx context.Context, activityIDs []string) ([]domain.ReactionRow, error) {
	if len(activityIDs) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT r.activity_id, r.user_id, r.emoji, r.created_at,
		       COALESCE(u.display_name, '')
		FROM activity_reactions r
		LEFT JOIN users u ON u.id = r.user_id AND u.deleted_at IS NULL
		WHERE r.activity_id = ANY($1::uuid[])
		ORDER BY r.created_at DESC, r.user_id`,
		activityIDs,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "feed reactions")
	}
	defer rows.Close()

	var out []domain.ReactionRow
	for rows.Next() {
		var rr domain.ReactionRow
		if err := rows.Scan(&rr.ActivityID, &rr.UserID, &rr.Emoji, &rr.CreatedAt, &rr.DisplayName); err != nil {
			return nil, perr.FromPostgres(err, "scan reaction")
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

func (r *queries) ActivityByID(ctx context.Context, id string) (domain.ActivityRef, bool, error) {
	var ref domain.ActivityRef
	err := r.q.QueryRow(ctx, `
		SELECT id, group_id, activity_type, user_id
		FROM group_activities
		WHERE id = $1`,
		id,
	).Scan(&ref.ID, &ref.GroupID, &ref.Type, &ref.OwnerID)
	if err != nil {
		if repokit.NoRows(err) {
			return domain.ActivityRef{}, false, nil
		}
		return domain.ActivityRef{}, false, perr.FromPostgres(err, "activity by id")
	}
	return ref, true, nil
}

// UpsertReaction applies the one-reaction-per-user rule. Swapping to a
// different emoji refreshes the timestamp; repeating the same one keeps
// it. The returned emoji is the one replaced, nil on a first reaction
func (r *queries) UpsertReaction(ctx context.Context, activityID, userID, emoji string) (*string, error) {
	var prev *string
	err := r.q.QueryRow(ctx, `
		WITH old AS (
			SELECT emoji FROM activity_reactions
			WHERE activity_id = $1 AND user_id = $2
		)
		INSERT INTO activity_reactions (activity_id, user_id, emoji)
		VALUES ($1, $2, $3)
		ON CONFLICT (activity_id, user_id) DO UPDATE SET
			emoji = EXCLUDED.emoji,
			created_at = CASE
				WHEN activity_reactions.emoji = EXCLUDED.emoji THEN activity_reactions.created_at
				ELSE NOW()
			END
		RETURNING (SELECT emoji FROM old)`,
		activityID, userID, emoji,
	).Scan(&prev)
	if err != nil {
		return nil, perr.FromPostgres(err, "upsert reaction")
	}
	return prev, nil
}

func (r *queries) DeleteReaction(ctx context.Context, activityID, userID string) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		DELETE FROM activity_reactions
		WHERE activity_id = $1 AND user_id = $2`,
		activityID, userID,
	)
	if err != nil {
		return false, perr.FromPostgres(err, "delete reaction")
	}
	return tag.RowsAffected() > 0, nil
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
