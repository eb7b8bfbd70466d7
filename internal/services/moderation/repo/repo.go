// Package repo implements moderation storage over Postgres
package repo

import (
	"context"

	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/services/moderation/domain"
)

// PG is the Postgres moderation repository
type PG struct{}

// NewPG returns a binder for the moderation storage
func NewPG() repokit.Binder[domain.Storage] { return PG{} }

// Bind attaches a queryer
func (PG) Bind(q repokit.Queryer) domain.Storage { return &queries{q: q} }

type queries struct {
	q repokit.Queryer
}

// InsertReport applies the one-report-per-reporter rule through the
// unique key; a repeat surfaces as ALREADY_REPORTED
func (r *queries) InsertReport(ctx context.Context, reporterID, contentType, contentID, reason string) (string, error) {
	var id string
	err := r.q.QueryRow(ctx, `
		INSERT INTO content_reports (reporter_user_id, content_type, content_id, reason)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		reporterID, contentType, contentID, reason,
	).Scan(&id)
	if err != nil {
		if perr.IsDuplicateKey(err) {
			return "", perr.Reasoned(perr.ErrorCodeConflict, "ALREADY_REPORTED",
				"you already reported this content")
		}
		return "", perr.FromPostgres(err, "insert report")
	}
	return id, nil
}

func (r *queries) DistinctReporters(ctx context.Context, contentType, contentID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(DISTINCT reporter_user_id) FROM content_reports
		WHERE content_type = $1 AND content_id = $2`,
		contentType, contentID,
	).Scan(&n)
	if err != nil {
		return 0, perr.FromPostgres(err, "count reporters")
	}
	return n, nil
}

// InsertDispute applies the one-dispute-per-author rule the same way
func (r *queries) InsertDispute(ctx context.Context, disputantID, contentType, contentID, explanation string) (string, error) {
	var id string
	err := r.q.QueryRow(ctx, `
		INSERT INTO content_disputes (disputant_user_id, content_type, content_id, explanation)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		disputantID, contentType, contentID, explanation,
	).Scan(&id)
	if err != nil {
		if perr.IsDuplicateKey(err) {
			return "", perr.Reasoned(perr.ErrorCodeConflict, "ALREADY_DISPUTED",
				"you already disputed this decision")
		}
		return "", perr.FromPostgres(err, "insert dispute")
	}
	return id, nil
}

func (r *queries) EntryRef(ctx context.Context, entryID string) (domain.EntryRef, bool, error) {
	var ref domain.EntryRef
	err := r.q.QueryRow(ctx, `
		SELECT e.id, e.user_id, g.group_id, e.moderation_status,
		       COALESCE(e.note, ''), COALESCE(e.log_title, '')
		FROM progress_entries e
		JOIN goals g ON g.id = e.goal_id
		WHERE e.id = $1`,
		entryID,
	).Scan(&ref.ID, &ref.OwnerID, &ref.GroupID, &ref.ModerationStatus, &ref.Note, &ref.LogTitle)
	if err != nil {
		if repokit.NoRows(err) {
			return domain.EntryRef{}, false, nil
		}
		return domain.EntryRef{}, false, perr.FromPostgres(err, "entry ref")
	}
	return ref, true, nil
}

// SetEntryStatus transitions the moderation status only when the row
// still sits at the expected state, so racing reports cannot double-flip
func (r *queries) SetEntryStatus(ctx context.Context, entryID, from, to string) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE progress_entries SET moderation_status = $3
		WHERE id = $1 AND moderation_status = $2`,
		entryID, from, to,
	)
	if err != nil {
		return false, perr.FromPostgres(err, "set entry status")
	}
	return tag.RowsAffected() > 0, nil
}

func (r *queries) ActiveMemberCount(ctx context.Context, groupID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM group_memberships
		WHERE group_id = $1 AND status = 'active'`,
		groupID,
	).Scan(&n)
	if err != nil {
		return 0, perr.FromPostgres(err, "active member count")
	}
	return n, nil
}

func (r *queries) PublicGroupExists(ctx context.Context, groupID string) (bool, error) {
	var ok bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM groups
			WHERE id = $1 AND visibility = 'public' AND deleted_at IS NULL
		)`,
		groupID,
	).Scan(&ok)
	if err != nil {
		return false, perr.FromPostgres(err, "public group exists")
	}
	return ok, nil
}

func (r *queries) UserExists(ctx context.Context, userID string) (bool, error) {
	var ok bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM users WHERE id = $1 AND deleted_at IS NULL
		)`,
		userID,
	).Scan(&ok)
	if err != nil {
		return false, perr.FromPostgres(err, "user exists")
	}
	return ok, nil
}
