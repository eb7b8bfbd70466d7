package repo

import (
	"context"

	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/services/groups/domain"
)

func (r *queries) MembershipFor(ctx context.Context, groupID, userID string) (domain.Membership, bool, error) {
	var m domain.Membership
	err := r.q.QueryRow(ctx, `
		SELECT group_id, user_id, role, status, joined_at FROM group_memberships
		WHERE group_id = $1 AND user_id = $2`,
		groupID, userID,
	).Scan(&m.GroupID, &m.UserID, &m.Role, &m.Status, &m.JoinedAt)
	if err != nil {
		if repokit.NoRows(err) {
			return domain.Membership{}, false, nil
		}
		return domain.Membership{}, false, perr.FromPostgres(err, "membership for user")
	}
	return m, true, nil
}

func (r *queries) InsertMembership(ctx context.Context, groupID, userID, role, status string) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO group_memberships (group_id, user_id, role, status)
		VALUES ($1, $2, $3, $4)`,
		groupID, userID, role, status,
	)
	if err != nil {
		if perr.IsDuplicateKey(err) {
			return perr.Conflictf("already a member of this group")
		}
		return perr.FromPostgres(err, "insert membership")
	}
	return nil
}

func (r *queries) SetMembershipStatus(ctx context.Context, groupID, userID, status string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE group_memberships SET status = $3
		WHERE group_id = $1 AND user_id = $2`,
		groupID, userID, status,
	)
	if err != nil {
		return perr.FromPostgres(err, "set membership status")
	}
	return nil
}

func (r *queries) SetMembershipRole(ctx context.Context, groupID, userID, role string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE group_memberships SET role = $3
		WHERE group_id = $1 AND user_id = $2`,
		groupID, userID, role,
	)
	if err != nil {
		return perr.FromPostgres(err, "set membership role")
	}
	return nil
}

func (r *queries) DeleteMembership(ctx context.Context, groupID, userID string) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		DELETE FROM group_memberships
		WHERE group_id = $1 AND user_id = $2`,
		groupID, userID,
	)
	if err != nil {
		return false, perr.FromPostgres(err, "delete membership")
	}
	return tag.RowsAffected() > 0, nil
}

// Members lists the roster, creators first, then by seniority. Declined
// rows stay hidden
func (r *queries) Members(ctx context.Context, groupID string) ([]domain.Member, error) {
	rows, err := r.q.Query(ctx, `
		SELECT m.user_id, u.display_name, (u.avatar IS NOT NULL), m.role, m.status, m.joined_at
		FROM group_memberships m
		JOIN users u ON u.id = m.user_id AND u.deleted_at IS NULL
		WHERE m.group_id = $1 AND m.status <> 'declined'
		ORDER BY (m.role = 'creator') DESC, m.joined_at`,
		groupID,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "group members")
	}
	defer rows.Close()

	var out []domain.Member
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.UserID, &m.DisplayName, &m.HasAvatar, &m.Role, &m.Status, &m.JoinedAt); err != nil {
			return nil, perr.FromPostgres(err, "scan member")
		}
		out = append(out, m)
	}
	return out, rows.Err()
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

func (r *queries) ActiveAdminCountExcluding(ctx context.Context, groupID, userID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM group_memberships
		WHERE group_id = $1 AND user_id <> $2
		  AND status = 'active' AND role IN ('creator', 'admin')`,
		groupID, userID,
	).Scan(&n)
	if err != nil {
		return 0, perr.FromPostgres(err, "active admin count")
	}
	return n, nil
}

// SuccessorCandidates returns the active roster minus the leaver, each with
// the freshest sign of life: the user's last activity in this group, their
// last progress entry on any of its goals, or their device's last check-in
func (r *queries) SuccessorCandidates(ctx context.Context, groupID, excludeUserID string) ([]domain.Candidate, error) {
	rows, err := r.q.Query(ctx, `
		SELECT m.user_id, m.role, m.joined_at,
			GREATEST(
				COALESCE((SELECT MAX(a.created_at) FROM group_activities a
					WHERE a.group_id = m.group_id AND a.user_id = m.user_id), 'epoch'::timestamptz),
				COALESCE((SELECT MAX(p.logged_at) FROM progress_entries p
					JOIN goals g ON g.id = p.goal_id AND g.group_id = m.group_id
					WHERE p.user_id = m.user_id), 'epoch'::timestamptz),
				COALESCE((SELECT MAX(d.last_active_at) FROM devices d
					WHERE d.user_id = m.user_id), 'epoch'::timestamptz)
			) AS last_active
		FROM group_memberships m
		WHERE m.group_id = $1 AND m.user_id <> $2 AND m.status = 'active'`,
		groupID, excludeUserID,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "successor candidates")
	}
	defer rows.Close()

	var out []domain.Candidate
	for rows.Next() {
		var c domain.Candidate
		if err := rows.Scan(&c.UserID, &c.Role, &c.JoinedAt, &c.LastActive); err != nil {
			return nil, perr.FromPostgres(err, "scan candidate")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *queries) MembershipsByUser(ctx context.Context, userID string) ([]domain.Membership, error) {
	rows, err := r.q.Query(ctx, `
		SELECT m.group_id, m.user_id, m.role, m.status, m.joined_at
		FROM group_memberships m
		JOIN groups g ON g.id = m.group_id AND g.deleted_at IS NULL
		WHERE m.user_id = $1 AND m.status <> 'declined'
		ORDER BY m.joined_at`,
		userID,
	)
	if err != nil {
		return nil, perr.FromPostgres(err, "memberships by user")
	}
	defer rows.Close()

	var out []domain.Membership
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Role, &m.Status, &m.JoinedAt); err != nil {
			return nil, perr.FromPostgres(err, "scan membership")
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *queries) PurgeMembershipRows(ctx context.Context, userID string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM group_memberships WHERE user_id = $1`, userID)
	if err != nil {
		return perr.FromPostgres(err, "purge membership rows")
	}
	return nil
}
