// Package service implements group lifecycle, membership, and invites
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"pursue/internal/adapters/imaging"
	"pursue/internal/core/invite"
	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/platform/logger"
	"pursue/internal/platform/tasks"
	"pursue/internal/services/groups/domain"
)

// Config carries the cross-module ports. Notifier and Embedder may be
// nil in tests; membership events and embedding refreshes are then
// dropped
type Config struct {
	Entitlements domain.EntitlementsPort
	Notifier     domain.NotifierPort
	Embedder     domain.EmbedderPort
}

// Svc implements domain.ServicePort and domain.GuardsPort
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[domain.Storage]
	cfg    Config
	now    func() time.Time
}

var (
	_ domain.ServicePort = (*Svc)(nil)
	_ domain.GuardsPort  = (*Svc)(nil)
)

// New constructs the groups service
func New(db repokit.TxRunner, binder repokit.Binder[domain.Storage], cfg Config) *Svc {
	if db == nil {
		panic("groups service requires a database")
	}
	if binder == nil {
		panic("groups service requires a storage binder")
	}
	if cfg.Entitlements == nil {
		panic("groups service requires the subscriptions entitlements port")
	}
	return &Svc{db: db, binder: binder, cfg: cfg, now: time.Now}
}

// Create makes a group with its creator membership, invite code, seed
// goals, opening activity, and zero heat row in one transaction
func (s *Svc) Create(ctx context.Context, userID string, in domain.CreateGroupInput) (domain.Detail, error) {
	if err := s.cfg.Entitlements.CheckGroupCap(ctx, userID); err != nil {
		return domain.Detail{}, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Detail{}, perr.WithField(
			perr.Newf(perr.ErrorCodeValidation, "group name cannot be blank"), "name")
	}
	visibility := in.Visibility
	if visibility == "" {
		visibility = domain.VisibilityPrivate
	}

	var det domain.Detail
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		g, err := st.InsertGroup(ctx, domain.NewGroup{
			Name:          name,
			Description:   strings.TrimSpace(in.Description),
			IconEmoji:     in.IconEmoji,
			IconColor:     in.IconColor,
			Visibility:    visibility,
			AutoApprove:   in.AutoApprove,
			Language:      in.Language,
			CreatorUserID: userID,
		})
		if err != nil {
			return err
		}
		if err := st.InsertMembership(ctx, g.ID, userID, domain.RoleCreator, domain.MembershipActive); err != nil {
			return err
		}
		code, err := mintInvite(ctx, st, g.ID, userID)
		if err != nil {
			return err
		}
		if len(in.Goals) > 0 {
			if err := st.InsertSeedGoals(ctx, g.ID, in.Goals, userID); err != nil {
				return err
			}
		}
		if err := st.InsertActivity(ctx, g.ID, &userID, "group_created", map[string]any{
			"group_name": g.Name,
		}); err != nil {
			return err
		}
		if err := st.InsertHeatRow(ctx, g.ID); err != nil {
			return err
		}

		det = domain.Detail{
			Group:            g,
			MemberCount:      1,
			Role:             domain.RoleCreator,
			MembershipStatus: domain.MembershipActive,
			InviteCode:       code,
			InviteURL:        invite.JoinURL(code),
		}
		return nil
	})
	if err == nil {
		s.reindex(ctx, det.Group.ID)
	}
	return det, err
}

// reindex detaches a post-commit search-embedding refresh so a slow
// vendor cannot hold the response
func (s *Svc) reindex(ctx context.Context, groupID string) {
	if s.cfg.Embedder == nil {
		return
	}
	tasks.Detach("groups.search_embedding", logger.C(ctx), func(ctx context.Context) error {
		return s.cfg.Embedder.RefreshGroup(ctx, groupID)
	})
}

// mintInvite retries fresh codes until the unique index stops objecting
func mintInvite(ctx context.Context, st domain.Storage, groupID, userID string) (string, error) {
	for range invite.MaxAttempts {
		code, err := invite.NewCode()
		if err != nil {
			return "", err
		}
		err = st.InsertInvite(ctx, groupID, code, userID)
		if err == nil {
			return code, nil
		}
		if !perr.IsDuplicateKey(err) {
			return "", err
		}
	}
	return "", perr.Reasonedf(perr.ErrorCodeUnavailable, "CODE_GENERATION_FAILED",
		"could not mint a unique invite code")
}

// Get serves the member view of a group
func (s *Svc) Get(ctx context.Context, userID, groupID string) (domain.Detail, error) {
	var det domain.Detail
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		g, m, err := s.memberOf(ctx, st, userID, groupID)
		if err != nil {
			return err
		}
		d, err := s.assembleDetail(ctx, st, g, m)
		if err != nil {
			return err
		}
		det = d
		return nil
	})
	return det, err
}

// Update patches group settings. Admin-only, and blocked while the admin's
// plan holds this group read-only
func (s *Svc) Update(ctx context.Context, userID, groupID string, in domain.UpdateGroupInput) (domain.Detail, error) {
	var det domain.Detail
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		_, m, err := s.adminOf(ctx, st, userID, groupID)
		if err != nil {
			return err
		}
		if err := s.cfg.Entitlements.CanUserWriteInGroup(ctx, userID, groupID); err != nil {
			return err
		}
		if in.Name != nil {
			trimmed := strings.TrimSpace(*in.Name)
			if trimmed == "" {
				return perr.WithField(
					perr.Newf(perr.ErrorCodeValidation, "group name cannot be blank"), "name")
			}
			in.Name = &trimmed
		}

		g, found, err := st.UpdateGroup(ctx, groupID, in)
		if err != nil {
			return err
		}
		if !found {
			return perr.NotFoundf("group not found")
		}
		d, err := s.assembleDetail(ctx, st, g, m)
		if err != nil {
			return err
		}
		det = d
		return nil
	})
	if err == nil && (in.Name != nil || in.Description != nil) {
		s.reindex(ctx, groupID)
	}
	return det, err
}

// Delete removes the group and everything under it. Creator-only
func (s *Svc) Delete(ctx context.Context, userID, groupID string) error {
	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		if _, err := s.creatorMembership(ctx, st, userID, groupID); err != nil {
			return err
		}
		return st.HardDeleteGroup(ctx, groupID)
	})
}

// Icon returns the stored icon bytes for any member
func (s *Svc) Icon(ctx context.Context, userID, groupID string) (domain.Icon, error) {
	var ic domain.Icon
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		if _, _, err := s.memberOf(ctx, st, userID, groupID); err != nil {
			return err
		}
		got, found, err := st.IconByID(ctx, groupID)
		if err != nil {
			return err
		}
		if !found {
			return perr.NotFoundf("no icon set")
		}
		ic = got
		return nil
	})
	return ic, err
}

// SetIcon shrinks and stores the group icon. Admin-only
func (s *Svc) SetIcon(ctx context.Context, userID, groupID string, data []byte) (domain.Detail, error) {
	res, err := imaging.Shrink(data, imaging.AvatarMaxEdge)
	if err != nil {
		return domain.Detail{}, err
	}

	var det domain.Detail
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		_, m, err := s.adminOf(ctx, st, userID, groupID)
		if err != nil {
			return err
		}
		if err := s.cfg.Entitlements.CanUserWriteInGroup(ctx, userID, groupID); err != nil {
			return err
		}
		if err := st.SetIcon(ctx, groupID, res.Data, res.MIME); err != nil {
			return err
		}
		g, found, err := st.GroupByID(ctx, groupID)
		if err != nil {
			return err
		}
		if !found {
			return perr.NotFoundf("group not found")
		}
		d, err := s.assembleDetail(ctx, st, g, m)
		if err != nil {
			return err
		}
		det = d
		return nil
	})
	return det, err
}

// assembleDetail decorates a group row with counters, heat, and the
// caller's invite view. Pending members never see the code
func (s *Svc) assembleDetail(ctx context.Context, st domain.Storage, g domain.Group, m domain.Membership) (domain.Detail, error) {
	count, err := st.ActiveMemberCount(ctx, g.ID)
	if err != nil {
		return domain.Detail{}, err
	}
	det := domain.Detail{
		Group:            g,
		MemberCount:      count,
		Role:             m.Role,
		MembershipStatus: m.Status,
	}

	if h, ok, err := st.HeatFor(ctx, g.ID); err != nil {
		return domain.Detail{}, err
	} else if ok {
		det.HeatScore = h.Score
		det.HeatTier = h.Tier
	}

	if m.Status == domain.MembershipActive {
		if iv, ok, err := st.LiveInvite(ctx, g.ID); err != nil {
			return domain.Detail{}, err
		} else if ok {
			det.InviteCode = iv.Code
			det.InviteURL = inviteURL(g, iv.Code)
		}
	}
	return det, nil
}

func inviteURL(g domain.Group, code string) string {
	if g.IsChallenge {
		return invite.ChallengeURL(code)
	}
	return invite.JoinURL(code)
}

// Guards. Handlers resolve ids through these so nonexistent and forbidden
// resources are indistinguishable from outside.

// Group implements domain.GuardsPort
func (s *Svc) Group(ctx context.Context, groupID string) (domain.Group, error) {
	var g domain.Group
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		got, err := s.groupByID(ctx, s.binder.Bind(q), groupID)
		if err != nil {
			return err
		}
		g = got
		return nil
	})
	return g, err
}

// Member implements domain.GuardsPort
func (s *Svc) Member(ctx context.Context, userID, groupID string) (domain.Membership, error) {
	return s.guard(ctx, userID, groupID, requireMember)
}

// ActiveMember implements domain.GuardsPort
func (s *Svc) ActiveMember(ctx context.Context, userID, groupID string) (domain.Membership, error) {
	return s.guard(ctx, userID, groupID, requireActive)
}

// Admin implements domain.GuardsPort
func (s *Svc) Admin(ctx context.Context, userID, groupID string) (domain.Membership, error) {
	return s.guard(ctx, userID, groupID, requireAdmin)
}

// Creator implements domain.GuardsPort
func (s *Svc) Creator(ctx context.Context, userID, groupID string) (domain.Membership, error) {
	return s.guard(ctx, userID, groupID, requireCreator)
}

type guardLevel int

const (
	requireMember guardLevel = iota
	requireActive
	requireAdmin
	requireCreator
)

func (s *Svc) guard(ctx context.Context, userID, groupID string, level guardLevel) (domain.Membership, error) {
	var m domain.Membership
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)
		_, got, err := s.membershipAt(ctx, st, userID, groupID, level)
		if err != nil {
			return err
		}
		m = got
		return nil
	})
	return m, err
}

// groupByID folds malformed ids, missing rows, and soft-deleted groups
// into one not-found answer
func (s *Svc) groupByID(ctx context.Context, st domain.Storage, groupID string) (domain.Group, error) {
	if uuid.Validate(groupID) != nil {
		return domain.Group{}, perr.NotFoundf("group not found")
	}
	g, found, err := st.GroupByID(ctx, groupID)
	if err != nil {
		return domain.Group{}, err
	}
	if !found {
		return domain.Group{}, perr.NotFoundf("group not found")
	}
	return g, nil
}

func (s *Svc) membershipAt(ctx context.Context, st domain.Storage, userID, groupID string, level guardLevel) (domain.Group, domain.Membership, error) {
	g, err := s.groupByID(ctx, st, groupID)
	if err != nil {
		return domain.Group{}, domain.Membership{}, err
	}
	m, found, err := st.MembershipFor(ctx, groupID, userID)
	if err != nil {
		return domain.Group{}, domain.Membership{}, err
	}
	if err := checkStanding(m, found, level); err != nil {
		return domain.Group{}, domain.Membership{}, err
	}
	return g, m, nil
}

// checkStanding is the pure core of the role guards
func checkStanding(m domain.Membership, found bool, level guardLevel) error {
	if !found || m.Status == domain.MembershipDeclined {
		return perr.Newf(perr.ErrorCodeForbidden, "you are not a member of this group")
	}
	switch level {
	case requireMember:
		return nil
	case requireActive:
		if m.Status != domain.MembershipActive {
			return perr.Newf(perr.ErrorCodeForbidden, "membership is not active")
		}
		return nil
	case requireAdmin:
		if !m.IsAdmin() || m.Status != domain.MembershipActive {
			return perr.Newf(perr.ErrorCodeForbidden, "admin access required")
		}
		return nil
	default:
		if m.Role != domain.RoleCreator {
			return perr.Newf(perr.ErrorCodeForbidden, "only the group creator can do this")
		}
		return nil
	}
}

// in-transaction guard helpers

func (s *Svc) memberOf(ctx context.Context, st domain.Storage, userID, groupID string) (domain.Group, domain.Membership, error) {
	return s.membershipAt(ctx, st, userID, groupID, requireMember)
}

func (s *Svc) activeMemberOf(ctx context.Context, st domain.Storage, userID, groupID string) (domain.Group, domain.Membership, error) {
	return s.membershipAt(ctx, st, userID, groupID, requireActive)
}

func (s *Svc) adminOf(ctx context.Context, st domain.Storage, userID, groupID string) (domain.Group, domain.Membership, error) {
	return s.membershipAt(ctx, st, userID, groupID, requireAdmin)
}

func (s *Svc) creatorMembership(ctx context.Context, st domain.Storage, userID, groupID string) (domain.Membership, error) {
	_, m, err := s.membershipAt(ctx, st, userID, groupID, requireCreator)
	return m, err
}
