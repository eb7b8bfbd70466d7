package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pursue/internal/core/invite"
	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/platform/logger"
	"pursue/internal/platform/tasks"
	"pursue/internal/services/groups/domain"
)

// JoinByCode redeems an invite code into a pending membership
func (s *Svc) JoinByCode(ctx context.Context, userID string, in domain.JoinByCodeInput) (domain.JoinResult, error) {
	code := invite.Normalize(in.Code)
	if !invite.Valid(code) {
		return domain.JoinResult{}, perr.NotFoundf("invite code not found")
	}

	var (
		res    domain.JoinResult
		notify func(context.Context) error
	)
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		lk, found, err := st.LookupCode(ctx, code)
		if err != nil {
			return err
		}
		if !found {
			return perr.NotFoundf("invite code not found")
		}
		if lk.IsChallenge && challengeOver(lk.ChallengeStatus) {
			return perr.Reasoned(perr.ErrorCodeForbidden, "CHALLENGE_NOT_ACTIVE",
				"this challenge has ended")
		}
		if err := rejectExistingMember(ctx, st, lk.GroupID, userID); err != nil {
			return err
		}
		if err := s.cfg.Entitlements.CheckGroupCap(ctx, userID); err != nil {
			return err
		}
		if err := upsertMembership(ctx, st, lk.GroupID, userID, domain.MembershipPending); err != nil {
			return err
		}

		res = domain.JoinResult{GroupID: lk.GroupID, MembershipStatus: domain.MembershipPending}
		groupID, groupName := lk.GroupID, lk.GroupName
		notify = func(ctx context.Context) error {
			return s.cfg.Notifier.JoinPending(ctx, groupID, groupName, userID)
		}
		return nil
	})
	if err != nil {
		return domain.JoinResult{}, err
	}
	s.notify(ctx, "groups.join_pending_notify", notify)
	return res, nil
}

// RequestJoin files a join request against a public group. Auto-approve
// groups skip the queue and mint the membership immediately
func (s *Svc) RequestJoin(ctx context.Context, userID, groupID string, in domain.JoinRequestInput) (domain.JoinResult, error) {
	var (
		res    domain.JoinResult
		notify func(context.Context) error
	)
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		g, err := s.groupByID(ctx, st, groupID)
		if err != nil {
			return err
		}
		if g.Visibility != domain.VisibilityPublic {
			// private groups are joined by code only, and stay unlisted
			return perr.NotFoundf("group not found")
		}
		if err := rejectExistingMember(ctx, st, g.ID, userID); err != nil {
			return err
		}

		pending, err := st.PendingRequestCount(ctx, userID)
		if err != nil {
			return err
		}
		if pending >= domain.MaxPendingRequests {
			limErr := perr.Reasonedf(perr.ErrorCodeResourceLimit, "RESOURCE_LIMIT_EXCEEDED",
				"you already have %d open join requests", pending)
			return perr.WithMeta(limErr, map[string]any{"limit": domain.MaxPendingRequests})
		}
		declinedAt, declined, err := st.LastDecline(ctx, g.ID, userID)
		if err != nil {
			return err
		}
		if declined {
			if until := declinedAt.Add(domain.DeclineCooldown); s.now().Before(until) {
				cdErr := perr.Reasoned(perr.ErrorCodeTooManyRequests, "COOLDOWN_ACTIVE",
					"a declined request blocks this group for 30 days")
				return perr.WithMeta(cdErr, map[string]any{
					"cooldown_until": until.UTC().Format(time.RFC3339),
				})
			}
		}

		if g.AutoApprove {
			if err := s.cfg.Entitlements.CheckGroupCap(ctx, userID); err != nil {
				return err
			}
			if err := upsertMembership(ctx, st, g.ID, userID, domain.MembershipActive); err != nil {
				return err
			}
			if err := st.InsertActivity(ctx, g.ID, &userID, "member_joined", nil); err != nil {
				return err
			}
			res = domain.JoinResult{GroupID: g.ID, MembershipStatus: domain.MembershipActive}
			return nil
		}

		req, err := st.InsertJoinRequest(ctx, g.ID, userID, in.Note)
		if err != nil {
			return err
		}
		res = domain.JoinResult{GroupID: g.ID, MembershipStatus: "requested"}
		groupName := g.Name
		notify = func(ctx context.Context) error {
			return s.cfg.Notifier.JoinRequested(ctx, g.ID, groupName, userID, req.ID)
		}
		return nil
	})
	if err != nil {
		return domain.JoinResult{}, err
	}
	s.notify(ctx, "groups.join_requested_notify", notify)
	return res, nil
}

// PendingRequests lists the open queue for admins
func (s *Svc) PendingRequests(ctx context.Context, userID, groupID string) ([]domain.JoinRequest, error) {
	var out []domain.JoinRequest
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		if _, _, err := s.adminOf(ctx, st, userID, groupID); err != nil {
			return err
		}
		reqs, err := st.PendingRequestsForGroup(ctx, groupID)
		if err != nil {
			return err
		}
		out = reqs
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.JoinRequest{}
	}
	return out, nil
}

// Approve promotes a pending request into an active membership
func (s *Svc) Approve(ctx context.Context, userID, groupID, requestID string) error {
	var notify func(context.Context) error
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		g, _, err := s.adminOf(ctx, st, userID, groupID)
		if err != nil {
			return err
		}
		if err := s.cfg.Entitlements.CanUserWriteInGroup(ctx, userID, groupID); err != nil {
			return err
		}
		req, err := pendingRequest(ctx, st, groupID, requestID)
		if err != nil {
			return err
		}
		if err := s.cfg.Entitlements.CheckGroupCap(ctx, req.UserID); err != nil {
			// the cap error talks to the requester; the admin needs their own wording
			if perr.ReasonOf(err) == "GROUP_LIMIT_REACHED" {
				return perr.Reasoned(perr.ErrorCodeConflict, "MEMBER_AT_GROUP_LIMIT",
					"the requester is already at their group limit")
			}
			return err
		}

		applied, err := st.ReviewJoinRequest(ctx, requestID, domain.RequestApproved, userID)
		if err != nil {
			return err
		}
		if !applied {
			return perr.NotFoundf("join request not found")
		}
		if err := upsertMembership(ctx, st, groupID, req.UserID, domain.MembershipActive); err != nil {
			return err
		}
		if err := st.DeleteRequestNotifications(ctx, requestID); err != nil {
			return err
		}
		if err := st.InsertActivity(ctx, groupID, &req.UserID, "member_joined", nil); err != nil {
			return err
		}

		groupName := g.Name
		notify = func(ctx context.Context) error {
			return s.cfg.Notifier.RequestApproved(ctx, groupID, groupName, req.UserID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.notify(ctx, "groups.request_approved_notify", notify)
	return nil
}

// Decline turns a pending request down and starts its cooldown clock
func (s *Svc) Decline(ctx context.Context, userID, groupID, requestID string) error {
	var notify func(context.Context) error
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		g, _, err := s.adminOf(ctx, st, userID, groupID)
		if err != nil {
			return err
		}
		if err := s.cfg.Entitlements.CanUserWriteInGroup(ctx, userID, groupID); err != nil {
			return err
		}
		req, err := pendingRequest(ctx, st, groupID, requestID)
		if err != nil {
			return err
		}

		applied, err := st.ReviewJoinRequest(ctx, requestID, domain.RequestDeclined, userID)
		if err != nil {
			return err
		}
		if !applied {
			return perr.NotFoundf("join request not found")
		}
		if err := st.DeleteRequestNotifications(ctx, requestID); err != nil {
			return err
		}

		groupName := g.Name
		notify = func(ctx context.Context) error {
			return s.cfg.Notifier.RequestDeclined(ctx, groupID, groupName, req.UserID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.notify(ctx, "groups.request_declined_notify", notify)
	return nil
}

// Members lists the roster for any member
func (s *Svc) Members(ctx context.Context, userID, groupID string) ([]domain.Member, error) {
	var out []domain.Member
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		if _, _, err := s.memberOf(ctx, st, userID, groupID); err != nil {
			return err
		}
		members, err := st.Members(ctx, groupID)
		if err != nil {
			return err
		}
		out = members
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Member{}
	}
	return out, nil
}

// RemoveMember kicks a member out. Admin-only, and never the creator
func (s *Svc) RemoveMember(ctx context.Context, userID, groupID, memberID string) error {
	if uuid.Validate(memberID) != nil {
		return perr.NotFoundf("member not found")
	}
	if memberID == userID {
		return perr.Newf(perr.ErrorCodeInvalidArgument, "leave the group instead of removing yourself")
	}
	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		if _, _, err := s.adminOf(ctx, st, userID, groupID); err != nil {
			return err
		}
		if err := s.cfg.Entitlements.CanUserWriteInGroup(ctx, userID, groupID); err != nil {
			return err
		}
		target, found, err := st.MembershipFor(ctx, groupID, memberID)
		if err != nil {
			return err
		}
		if !found {
			return perr.NotFoundf("member not found")
		}
		if target.Role == domain.RoleCreator {
			return perr.Reasoned(perr.ErrorCodeForbidden, "CANNOT_REMOVE_CREATOR",
				"the group creator cannot be removed")
		}
		if _, err := st.DeleteMembership(ctx, groupID, memberID); err != nil {
			return err
		}
		return st.InsertActivity(ctx, groupID, &memberID, "member_left", map[string]any{
			"removed_by": userID,
		})
	})
}

// ChangeRole promotes or demotes another member between admin and member
func (s *Svc) ChangeRole(ctx context.Context, userID, groupID, memberID string, in domain.ChangeRoleInput) error {
	if uuid.Validate(memberID) != nil {
		return perr.NotFoundf("member not found")
	}
	if memberID == userID {
		return perr.Newf(perr.ErrorCodeInvalidArgument, "you cannot change your own role")
	}
	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		if _, _, err := s.adminOf(ctx, st, userID, groupID); err != nil {
			return err
		}
		if err := s.cfg.Entitlements.CanUserWriteInGroup(ctx, userID, groupID); err != nil {
			return err
		}
		target, found, err := st.MembershipFor(ctx, groupID, memberID)
		if err != nil {
			return err
		}
		if !found {
			return perr.NotFoundf("member not found")
		}
		if target.Role == domain.RoleCreator {
			return perr.Reasoned(perr.ErrorCodeForbidden, "CANNOT_DEMOTE_CREATOR",
				"the group creator's role cannot be changed")
		}
		if target.Status != domain.MembershipActive {
			return perr.Conflictf("only active members can hold a role")
		}
		if target.Role == in.Role {
			return nil
		}
		if err := st.SetMembershipRole(ctx, groupID, memberID, in.Role); err != nil {
			return err
		}
		if in.Role == domain.RoleAdmin {
			return st.InsertActivity(ctx, groupID, &memberID, "member_promoted", map[string]any{
				"new_role":    domain.RoleAdmin,
				"promoted_by": userID,
			})
		}
		return nil
	})
}

// Leave removes the caller's own membership. The last active member takes
// the group down with them; the last admin hands off to a successor first
func (s *Svc) Leave(ctx context.Context, userID, groupID string) (domain.LeaveResult, error) {
	var res domain.LeaveResult
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		g, m, err := s.memberOf(ctx, st, userID, groupID)
		if err != nil {
			return err
		}
		r, err := s.leaveLocked(ctx, st, g, m)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	return res, err
}

// leaveLocked runs the leave inside an already-open transaction
func (s *Svc) leaveLocked(ctx context.Context, st domain.Storage, g domain.Group, m domain.Membership) (domain.LeaveResult, error) {
	// pending members withdraw without ceremony
	if m.Status != domain.MembershipActive {
		_, err := st.DeleteMembership(ctx, g.ID, m.UserID)
		return domain.LeaveResult{}, err
	}

	activeCount, err := st.ActiveMemberCount(ctx, g.ID)
	if err != nil {
		return domain.LeaveResult{}, err
	}
	if activeCount <= 1 {
		if _, err := st.DeleteMembership(ctx, g.ID, m.UserID); err != nil {
			return domain.LeaveResult{}, err
		}
		if err := st.SoftDeleteGroup(ctx, g.ID); err != nil {
			return domain.LeaveResult{}, err
		}
		return domain.LeaveResult{GroupDeleted: true}, nil
	}

	var successor *domain.Candidate
	if m.IsAdmin() {
		others, err := st.ActiveAdminCountExcluding(ctx, g.ID, m.UserID)
		if err != nil {
			return domain.LeaveResult{}, err
		}
		if others == 0 {
			cands, err := st.SuccessorCandidates(ctx, g.ID, m.UserID)
			if err != nil {
				return domain.LeaveResult{}, err
			}
			if c, ok := PickSuccessor(cands); ok {
				successor = &c
			}
		}
	}

	// the leaver's row goes first so the one-creator index never sees two
	if _, err := st.DeleteMembership(ctx, g.ID, m.UserID); err != nil {
		return domain.LeaveResult{}, err
	}

	var res domain.LeaveResult
	if successor != nil {
		newRole := domain.RoleAdmin
		if m.Role == domain.RoleCreator {
			newRole = domain.RoleCreator
		}
		if err := st.SetMembershipRole(ctx, g.ID, successor.UserID, newRole); err != nil {
			return domain.LeaveResult{}, err
		}
		if newRole == domain.RoleCreator {
			if err := st.SetCreator(ctx, g.ID, successor.UserID); err != nil {
				return domain.LeaveResult{}, err
			}
		}
		if err := st.InsertActivity(ctx, g.ID, &successor.UserID, "member_promoted", map[string]any{
			"reason":   "auto_last_admin_left",
			"new_role": newRole,
		}); err != nil {
			return domain.LeaveResult{}, err
		}
		res.PromotedUserID = successor.UserID
		res.PromotedUserRole = newRole
	}

	leaverID := m.UserID
	if err := st.InsertActivity(ctx, g.ID, &leaverID, "member_left", nil); err != nil {
		return domain.LeaveResult{}, err
	}
	return res, nil
}

// RemoveUserFromAllGroups walks a user out of every group through the
// normal leave path, then sweeps whatever rows the walk could not reach.
// Account deletion calls this before tombstoning the user
func (s *Svc) RemoveUserFromAllGroups(ctx context.Context, userID string) error {
	var memberships []domain.Membership
	if err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		memberships, err = s.binder.Bind(q).MembershipsByUser(ctx, userID)
		return err
	}); err != nil {
		return err
	}

	for _, m := range memberships {
		err := s.db.Tx(ctx, func(q repokit.Queryer) error {
			st := s.binder.Bind(q)

			g, found, err := st.GroupByID(ctx, m.GroupID)
			if err != nil {
				return err
			}
			if !found {
				// the group folded since the listing
				_, err := st.DeleteMembership(ctx, m.GroupID, userID)
				return err
			}
			_, err = s.leaveLocked(ctx, st, g, m)
			return err
		})
		if err != nil {
			return err
		}
	}

	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		return s.binder.Bind(q).PurgeMembershipRows(ctx, userID)
	})
}

// PickSuccessor ranks candidates by most recent activity; anyone within
// the recency window of the leader ties, and the earliest joiner wins
func PickSuccessor(cands []domain.Candidate) (domain.Candidate, bool) {
	if len(cands) == 0 {
		return domain.Candidate{}, false
	}
	top := cands[0]
	for _, c := range cands[1:] {
		if c.LastActive.After(top.LastActive) {
			top = c
		}
	}
	best := top
	for _, c := range cands {
		if top.LastActive.Sub(c.LastActive) <= domain.SuccessorWindow && c.JoinedAt.Before(best.JoinedAt) {
			best = c
		}
	}
	return best, true
}

// challengeOver reports whether a challenge can no longer be joined
func challengeOver(status *string) bool {
	if status == nil {
		return false
	}
	return *status == domain.ChallengeCompleted || *status == domain.ChallengeCancelled
}

// rejectExistingMember answers the conflict taxonomy for repeat joins.
// Declined rows pass; they are revived by the next upsert
func rejectExistingMember(ctx context.Context, st domain.Storage, groupID, userID string) error {
	m, found, err := st.MembershipFor(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	switch m.Status {
	case domain.MembershipActive:
		return perr.Reasoned(perr.ErrorCodeConflict, "ALREADY_MEMBER",
			"already a member of this group")
	case domain.MembershipPending:
		return perr.Reasoned(perr.ErrorCodeConflict, "ALREADY_REQUESTED",
			"membership is already waiting on approval")
	default:
		return nil
	}
}

// upsertMembership inserts a membership or revives a previously declined row
func upsertMembership(ctx context.Context, st domain.Storage, groupID, userID, status string) error {
	_, found, err := st.MembershipFor(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if found {
		return st.SetMembershipStatus(ctx, groupID, userID, status)
	}
	return st.InsertMembership(ctx, groupID, userID, domain.RoleMember, status)
}

// pendingRequest resolves a request id inside its group or answers not-found
func pendingRequest(ctx context.Context, st domain.Storage, groupID, requestID string) (domain.JoinRequest, error) {
	if uuid.Validate(requestID) != nil {
		return domain.JoinRequest{}, perr.NotFoundf("join request not found")
	}
	req, found, err := st.JoinRequestByID(ctx, requestID)
	if err != nil {
		return domain.JoinRequest{}, err
	}
	if !found || req.GroupID != groupID || req.Status != domain.RequestPending {
		return domain.JoinRequest{}, perr.NotFoundf("join request not found")
	}
	return req, nil
}

// notify detaches a post-commit notifier call so a slow push service
// cannot hold the response
func (s *Svc) notify(ctx context.Context, name string, fn func(context.Context) error) {
	if s.cfg.Notifier == nil || fn == nil {
		return
	}
	tasks.Detach(name, logger.C(ctx), fn)
}
