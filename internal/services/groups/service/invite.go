package service

import (
	"context"
	"time"

	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/services/groups/domain"
	subsdomain "pursue/internal/services/subscriptions/domain"
)

// Invite returns the live invite code. Active members only; pending
// members wait until they are approved
func (s *Svc) Invite(ctx context.Context, userID, groupID string) (domain.InviteInfo, error) {
	var info domain.InviteInfo
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		g, _, err := s.activeMemberOf(ctx, st, userID, groupID)
		if err != nil {
			return err
		}
		iv, found, err := st.LiveInvite(ctx, groupID)
		if err != nil {
			return err
		}
		if !found {
			return perr.NotFoundf("no active invite code")
		}
		info = domain.InviteInfo{
			Code:      iv.Code,
			URL:       inviteURL(g, iv.Code),
			CreatedAt: iv.CreatedAt,
		}
		return nil
	})
	return info, err
}

// RegenerateInvite revokes the live code and mints a fresh one in a single
// transaction, so the group never has zero or two live codes
func (s *Svc) RegenerateInvite(ctx context.Context, userID, groupID string) (domain.InviteInfo, error) {
	var info domain.InviteInfo
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		g, _, err := s.adminOf(ctx, st, userID, groupID)
		if err != nil {
			return err
		}
		if err := s.cfg.Entitlements.CanUserWriteInGroup(ctx, userID, groupID); err != nil {
			return err
		}

		var oldCode string
		if iv, found, err := st.LiveInvite(ctx, groupID); err != nil {
			return err
		} else if found {
			oldCode = iv.Code
		}
		if err := st.RevokeInvites(ctx, groupID); err != nil {
			return err
		}
		code, err := mintInvite(ctx, st, groupID, userID)
		if err != nil {
			return err
		}
		if err := st.InsertActivity(ctx, groupID, &userID, "invite_regenerated", map[string]any{
			"old_code": oldCode,
			"new_code": code,
		}); err != nil {
			return err
		}

		info = domain.InviteInfo{
			Code:      code,
			URL:       inviteURL(g, code),
			CreatedAt: s.now(),
		}
		return nil
	})
	return info, err
}

// ExportProgress aggregates member-by-goal completion over a date range,
// bounded by the tier's export window
func (s *Svc) ExportProgress(ctx context.Context, userID, groupID string, from, to time.Time) (domain.Export, error) {
	if to.Before(from) {
		return domain.Export{}, perr.WithField(
			perr.Newf(perr.ErrorCodeValidation, "the range end precedes its start"), "to")
	}

	capDays, err := s.cfg.Entitlements.ExportCapDays(ctx, userID)
	if err != nil {
		return domain.Export{}, err
	}
	span := int(to.Sub(from).Hours()/24) + 1
	if span > capDays {
		rangeErr := perr.Reasonedf(perr.ErrorCodeValidation, "EXPORT_RANGE_TOO_LARGE",
			"your plan exports up to %d days at a time", capDays)
		return domain.Export{}, perr.WithMeta(rangeErr, map[string]any{
			"max_days":         capDays,
			"requested_days":   span,
			"upgrade_required": capDays < subsdomain.PremiumExportDays,
		})
	}

	var out domain.Export
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		if _, _, err := s.activeMemberOf(ctx, st, userID, groupID); err != nil {
			return err
		}
		rows, err := st.ExportRows(ctx, groupID, from, to)
		if err != nil {
			return err
		}
		if rows == nil {
			rows = []domain.ExportRow{}
		}
		out = domain.Export{GroupID: groupID, From: from, To: to, Rows: rows}
		return nil
	})
	return out, err
}
