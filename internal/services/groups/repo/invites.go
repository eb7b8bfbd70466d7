package repo

import (
	"context"
	"time"

	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/services/groups/domain"
)

func (r *queries) LiveInvite(ctx context.Context, groupID string) (domain.InviteRow, bool, error) {
	var iv domain.InviteRow
	err := r.q.QueryRow(ctx, `
		SELECT id, group_id, code, created_by, revoked_at, created_at FROM invite_codes
		WHERE group_id = $1 AND revoked_at IS NULL`,
		groupID,
	).Scan(&iv.ID, &iv.GroupID, &iv.Code, &iv.CreatedBy, &iv.RevokedAt, &iv.CreatedAt)
	if err != nil {
		if repokit.NoRows(err) {
			return domain.InviteRow{}, false, nil
		}
		return domain.InviteRow{}, false, perr.FromPostgres(err, "live invite")
	}
	return iv, true, nil
}

// LookupCode resolves a live code to its group so join can reason about
// challenge state without a second query
func (r *queries) LookupCode(ctx context.Context, code string) (domain.CodeLookup, bool, error) {
	var cl domain.CodeLookup
	err := r.q.QueryRow(ctx, `
		SELECT i.id, i.group_id, i.code, i.created_by, i.revoked_at, i.created_at,
			g.name, g.is_challenge, g.challenge_status
		FROM invite_codes i
		JOIN groups g ON g.id = i.group_id AND g.deleted_at IS NULL
		WHERE i.code = $1 AND i.revoked_at IS NULL`,
		code,
	).Scan(&cl.ID, &cl.GroupID, &cl.Code, &cl.CreatedBy, &cl.RevokedAt, &cl.CreatedAt,
		&cl.GroupName, &cl.IsChallenge, &cl.ChallengeStatus)
	if err != nil {
		if repokit.NoRows(err) {
			return domain.CodeLookup{}, false, nil
		}
		return domain.CodeLookup{}, false, perr.FromPostgres(err, "lookup code")
	}
	return cl, true, nil
}

// InsertInvite keeps the duplicate-key cause detectable so the mint loop
// can retry on code collisions
func (r *queries) InsertInvite(ctx context.Context, groupID, code, createdBy string) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO invite_codes (group_id, code, created_by)
		VALUES ($1, $2, $3)`,
		groupID, code, createdBy,
	)
	if err != nil {
		return perr.FromPostgres(err, "insert invite")
	}
	return nil
}

func (r *queries) RevokeInvites(ctx context.Context, groupID string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE invite_codes SET revoked_at = NOW()
		WHERE group_id = $1 AND revoked_at IS NULL`,
		groupID,
	)
	if err != nil {
		return perr.FromPostgres(err, "revoke invites")
	}
	return nil
}

func (r *queries) PendingRequestCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM join_requests
		WHERE user_id = $1 AND status = 'pending'`,
		userID,
	).Scan(&n)
	if err != nil {
		return 0, perr.FromPostgres(err, "pending request count")
	}
	return n, nil
}

func (r *queries) LastDecline(ctx context.Context, groupID, userID string) (time.Time, bool, error) {
	var t time.Time
	err := r.q.QueryRow(ctx, `
		SELECT reviewed_at FROM join_requests
		WHERE group_id = $1 AND user_id = $2 AND status = 'declined' AND reviewed_at IS NOT NULL
		ORDER BY reviewed_at DESC
		LIMIT 1`,
		groupID, userID,
	).Scan(&t)
	if err != nil {
		if repokit.NoRows(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, perr.FromPostgres(err, "last decline")
	}
	return t, true, nil
}

const requestCols = `id, group_id, user_id, note, status, created_at, reviewed_at`

func (r *queries) InsertJoinRequest(ctx context.Context, groupID, userID, note string) (domain.JoinRequest, error) {
	var jr domain.JoinRequest
	err := r.q.QueryRow(ctx, `
		INSERT INTO join_requests (group_id, user_id, note)
		VALUES ($1, $2, $3)
		RETURNING `+requestCols,
		groupID, userID, note,
	).Scan(&jr.ID, &jr.GroupID, &jr.UserID, &jr.Note, &jr.Status, &jr.CreatedAt, &jr.ReviewedAt)
	if err != nil {
		if perr.IsDuplicateKey(err) {
			return domain.JoinRequest{}, perr.Conflictf("a join request is already pending")
		}
		return domain.JoinRequest{}, perr.FromPostgres(err, "insert join request")
	}
	return jr, nil
}

func (r *queries) JoinRequestByID(ctx context.Context, requestID string) (domain.JoinRequest, bool, error) {
	var jr domain.JoinRequest
	err := r.q.QueryRow(ctx, `
		SELECT `+requestCols+` FROM join_requests
		WHERE id = $1`,
		requestID,
	).Scan(&jr.ID, &jr.GroupID, &jr.UserID, &jr.Note, &jr.Status, &jr.CreatedAt, &jr.ReviewedAt)
	if err != nil {
		if repokit.NoRows(err) {
			return domain.JoinRequest{}, false, nil
		}
		return domain.JoinRequest{}, false, perr.FromPostgres(err, "join request by id")
	}
	return jr, true, nil
}

// ReviewJoinRequest stamps the decision; only a still-pending request
// reviews, so racing admins cannot double-apply
func (r *queries) ReviewJoinRequest(ctx context.Context, requestID, status, reviewerID string) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE join_requests SET status = $2, reviewed_at = NOW(), reviewed_by = $3
		WHERE id = $1 AND status = 'pending'`,
		requestID, status, reviewerID,
	)
	if err != nil {
		return false, perr.FromPostgres(err, "review join request")
	}
	return tag.RowsAffected() > 0, nil
}

func (r *queries) PendingRequestsForGroup(ctx context.Context, groupID string) ([]domain.JoinRequest, error) {
	rows, err := r.q.Query(ctx, `
		SELECT jr.id, jr.group_id, jr.user_id, u.display_name, jr.note, jr.status, jr.created_at, jr.reviewed_at
		FROM join_requests jr
		JOIN users u ON u.id = jr.user_id AND u.deleted_at IS NULL
		WHERE jr.group_id = $1 AND jr.status = 'pending'
		ORDER BY jr.created_at`,
		groupID,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "pending requests")
	}
	defer rows.Close()

	var out []domain.JoinRequest
	for rows.Next() {
		var jr domain.JoinRequest
		if err := rows.Scan(&jr.ID, &jr.GroupID, &jr.UserID, &jr.DisplayName, &jr.Note, &jr.Status, &jr.CreatedAt, &jr.ReviewedAt); err != nil {
			return nil, perr.FromPostgres(err, "scan join request")
		}
		out = append(out, jr)
	}
	return out, rows.Err()
}

// DeleteRequestNotifications clears the admin inbox entries that pointed at
// a just-reviewed request
func (r *queries) DeleteRequestNotifications(ctx context.Context, requestID string) error {
	_, err := r.q.Exec(ctx, `
		DELETE FROM user_notifications
		WHERE notification_type = 'join_request' AND data->>'request_id' = $1`,
		requestID,
	)
	if err != nil {
		return perr.FromPostgres(err, "delete request notifications")
	}
	return nil
}
