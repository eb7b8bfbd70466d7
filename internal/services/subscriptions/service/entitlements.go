package service

import (
	"context"
	"time"

	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/platform/logger"
	"pursue/internal/services/subscriptions/domain"
)

// Entitlement derives the user's current tier, status, and group cap
func (s *Svc) Entitlement(ctx context.Context, userID string) (domain.Entitlement, error) {
	var ent domain.Entitlement
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		latest, found, err := st.LatestSubscription(ctx, userID)
		if err != nil {
			return err
		}
		count, err := st.ActiveGroupCount(ctx, userID)
		if err != nil {
			return err
		}
		ent = domain.Derive(rowPtr(latest, found), count, s.now())
		return nil
	})
	return ent, err
}

// CheckGroupCap fails when one more active membership would pass the cap
func (s *Svc) CheckGroupCap(ctx context.Context, userID string) error {
	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		latest, found, err := st.LatestSubscription(ctx, userID)
		if err != nil {
			return err
		}
		count, err := st.ActiveGroupCount(ctx, userID)
		if err != nil {
			return err
		}

		ent := domain.Derive(rowPtr(latest, found), count, s.now())
		if count < ent.GroupLimit {
			return nil
		}
		limErr := perr.Reasonedf(perr.ErrorCodeTooManyRequests, "GROUP_LIMIT_REACHED",
			"your plan allows %d active group(s)", ent.GroupLimit)
		return perr.WithMeta(limErr, map[string]any{
			"group_limit":         ent.GroupLimit,
			"current_group_count": count,
		})
	})
}

// CanUserWriteInGroup is the write guard consulted by every mutating
// group-scoped endpoint. Users in good standing pass untouched; over-limit
// users may only write in the group they chose to keep
func (s *Svc) CanUserWriteInGroup(ctx context.Context, userID, groupID string) error {
	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		latest, found, err := st.LatestSubscription(ctx, userID)
		if err != nil {
			return err
		}
		count, err := st.ActiveGroupCount(ctx, userID)
		if err != nil {
			return err
		}

		lp := rowPtr(latest, found)
		ent := domain.Derive(lp, count, s.now())
		if ent.Status != domain.StatusOverLimit {
			return nil
		}

		dg, ok, err := st.LatestDowngrade(ctx, userID)
		if err != nil {
			return err
		}
		var dgp *domain.DowngradeRow
		if ok {
			dgp = &dg
		}
		return decideWrite(ent, lp, dgp, groupID)
	})
}

// decideWrite is the pure core of the write guard
func decideWrite(ent domain.Entitlement, latest *domain.SubscriptionRow, dg *domain.DowngradeRow, groupID string) error {
	if ent.Status != domain.StatusOverLimit {
		return nil
	}
	if dg == nil || domain.StaleSelection(*dg, latest) {
		return perr.Reasoned(perr.ErrorCodeForbidden, "SUBSCRIPTION_GROUP_SELECTION_REQUIRED",
			"pick one group to keep before making changes")
	}
	if dg.KeptGroupID != nil && *dg.KeptGroupID == groupID {
		return nil
	}
	roErr := perr.Reasoned(perr.ErrorCodeForbidden, "GROUP_READ_ONLY",
		"this group is read-only after a plan downgrade")
	return perr.WithMeta(roErr, map[string]any{
		"read_only_until": dg.ReadOnlyUntil().UTC().Format(time.RFC3339),
	})
}

// ExportCapDays is the widest export span the user's tier allows
func (s *Svc) ExportCapDays(ctx context.Context, userID string) (int, error) {
	ent, err := s.Entitlement(ctx, userID)
	if err != nil {
		return 0, err
	}
	return domain.ExportCapDays(ent.Tier), nil
}

// SweepDowngrades removes memberships whose read-only window has lapsed.
// It runs inside the daily heat job and is idempotent: processed selections
// never come back, and a user who re-subscribed is skipped untouched.
// When the departing member created the group, the longest-standing active
// member takes over; an empty group is soft-deleted instead
func (s *Svc) SweepDowngrades(ctx context.Context, now time.Time) (domain.SweepReport, error) {
	var rep domain.SweepReport
	cutoff := now.Add(-domain.ReadOnlyWindow)

	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		pending, err := st.PendingDowngrades(ctx, cutoff)
		if err != nil {
			return err
		}

		for _, dg := range pending {
			latest, found, err := st.LatestSubscription(ctx, dg.UserID)
			if err != nil {
				return err
			}
			if found && latest.ActiveAt(now) {
				// premium again, the episode resolved itself
				if err := st.MarkDowngradeProcessed(ctx, dg.ID); err != nil {
					return err
				}
				continue
			}

			for _, gid := range dg.RemovedGroupIDs {
				removed, err := s.removeMembership(ctx, st, dg.UserID, gid)
				if err != nil {
					return err
				}
				if removed {
					rep.MembershipsRemoved++
				}
			}

			count, err := st.ActiveGroupCount(ctx, dg.UserID)
			if err != nil {
				return err
			}
			ent := domain.Derive(rowPtr(latest, found), count, now)
			if err := st.SyncUserTier(ctx, dg.UserID, ent, count); err != nil {
				return err
			}
			if err := st.MarkDowngradeProcessed(ctx, dg.ID); err != nil {
				return err
			}
			rep.UsersProcessed++
		}
		return nil
	})
	if err != nil {
		return domain.SweepReport{}, err
	}

	if rep.UsersProcessed > 0 {
		logger.C(ctx).Info().
			Int("users", rep.UsersProcessed).
			Int("memberships_removed", rep.MembershipsRemoved).
			Msg("subscriptions: downgrade sweep")
	}
	return rep, nil
}

// removeMembership drops one membership and keeps the group coherent when
// the leaver was its creator
func (s *Svc) removeMembership(ctx context.Context, st domain.Storage, userID, groupID string) (bool, error) {
	role, isMember, err := st.GroupRole(ctx, userID, groupID)
	if err != nil {
		return false, err
	}
	if !isMember {
		return false, nil
	}

	removed, err := st.DeleteMembership(ctx, userID, groupID)
	if err != nil || !removed {
		return false, err
	}

	if role == "creator" {
		successor, promoted, err := st.PromoteSuccessor(ctx, groupID)
		if err != nil {
			return false, err
		}
		if !promoted {
			if err := st.SoftDeleteGroup(ctx, groupID); err != nil {
				return false, err
			}
			return true, nil
		}
		meta := map[string]any{
			"promoted_user_id": successor,
			"reason":           "subscription_downgrade",
		}
		if err := st.InsertActivity(ctx, groupID, &successor, "member_promoted", meta); err != nil {
			return false, err
		}
	}
	return true, nil
}
