// Package service implements the challenge lifecycle
package service

import (
	"context"
	"strings"
	"time"

	"pursue/internal/core/invite"
	"pursue/internal/core/period"
	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/platform/logger"
	"pursue/internal/platform/tasks"
	"pursue/internal/services/challenges/domain"
	groupsdomain "pursue/internal/services/groups/domain"
	subsdomain "pursue/internal/services/subscriptions/domain"
)

// Config carries the cross-module ports. Notifier and Embedder may be
// nil in tests; lifecycle pushes and embedding refreshes are then
// dropped
type Config struct {
	Guards       domain.GroupGuardPort
	Entitlements domain.EntitlementsPort
	Notifier     domain.NotifierPort
	Embedder     domain.EmbedderPort
}

// Svc implements domain.ServicePort
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[domain.Storage]
	cfg    Config
	now    func() time.Time
}

var _ domain.ServicePort = (*Svc)(nil)

// New constructs the challenges service
func New(db repokit.TxRunner, binder repokit.Binder[domain.Storage], cfg Config) *Svc {
	if db == nil {
		panic("challenges service requires a database")
	}
	if binder == nil {
		panic("challenges service requires a storage binder")
	}
	if cfg.Guards == nil {
		panic("challenges service requires the groups guard port")
	}
	if cfg.Entitlements == nil {
		panic("challenges service requires the subscriptions entitlements port")
	}
	return &Svc{db: db, binder: binder, cfg: cfg, now: time.Now}
}

// Templates lists every blueprint and remembers they were shown to the
// caller; creating from one later stamps the suggestion as used
func (s *Svc) Templates(ctx context.Context, userID string) ([]domain.Template, error) {
	var out []domain.Template
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)
		var err error
		out, err = st.Templates(ctx)
		if err != nil {
			return err
		}
		if len(out) == 0 {
			return nil
		}
		ids := make([]string, len(out))
		for i, t := range out {
			ids[i] = t.ID
		}
		return st.RecordSuggestions(ctx, userID, ids)
	})
	if out == nil {
		out = []domain.Template{}
	}
	return out, err
}

// Create makes a challenge group with its creator membership, invite
// code, seed goals, opening activity, heat row, and suggestion stamp in
// one transaction
func (s *Svc) Create(ctx context.Context, userID string, in domain.CreateChallengeInput) (groupsdomain.Detail, error) {
	if err := s.cfg.Entitlements.CheckGroupCap(ctx, userID); err != nil {
		return groupsdomain.Detail{}, err
	}

	start, err := time.Parse("2006-01-02", in.StartDate)
	if err != nil {
		return groupsdomain.Detail{}, perr.WithField(
			perr.Newf(perr.ErrorCodeValidation, "dates use the YYYY-MM-DD form"), "start_date")
	}
	startD := period.Date(start)

	var explicitEnd *time.Time
	if in.EndDate != nil {
		e, err := time.Parse("2006-01-02", *in.EndDate)
		if err != nil {
			return groupsdomain.Detail{}, perr.WithField(
				perr.Newf(perr.ErrorCodeValidation, "dates use the YYYY-MM-DD form"), "end_date")
		}
		d := period.Date(e)
		explicitEnd = &d
	}

	if in.TemplateID == nil {
		ent, err := s.cfg.Entitlements.Entitlement(ctx, userID)
		if err != nil {
			return groupsdomain.Detail{}, err
		}
		if ent.Tier != subsdomain.TierPremium {
			upErr := perr.Reasoned(perr.ErrorCodeForbidden, "UPGRADE_REQUIRED",
				"custom challenges are a premium feature")
			return groupsdomain.Detail{}, perr.WithMeta(upErr, map[string]any{"upgrade_required": true})
		}
		if len(in.Goals) == 0 {
			return groupsdomain.Detail{}, perr.WithField(
				perr.Newf(perr.ErrorCodeValidation, "a custom challenge needs at least one goal"), "goals")
		}
	}

	var det groupsdomain.Detail
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		tz, err := st.UserTimezone(ctx, userID)
		if err != nil {
			return err
		}
		today := period.Date(s.now().In(locationOrUTC(tz)))
		if startD.Before(today) {
			return perr.WithField(
				perr.Newf(perr.ErrorCodeValidation, "a challenge cannot start in the past"), "start_date")
		}
		if startD.After(today.AddDate(0, 0, domain.MaxStartLeadDays)) {
			return perr.WithField(
				perr.Newf(perr.ErrorCodeValidation, "challenges start within %d days", domain.MaxStartLeadDays), "start_date")
		}

		var tpl *domain.Template
		if in.TemplateID != nil {
			t, ok, err := st.TemplateByID(ctx, *in.TemplateID)
			if err != nil {
				return err
			}
			if !ok {
				return perr.NotFoundf("template not found")
			}
			tpl = &t
		}

		end, err := challengeEnd(startD, tpl, explicitEnd)
		if err != nil {
			return err
		}

		name, desc, emoji := resolveIdentity(in, tpl)
		if name == "" {
			return perr.WithField(
				perr.Newf(perr.ErrorCodeValidation, "challenge name cannot be blank"), "name")
		}
		visibility := in.Visibility
		if visibility == "" {
			visibility = groupsdomain.VisibilityPrivate
		}
		status := domain.InitialStatus(startD, today)

		g, err := st.InsertChallenge(ctx, groupsdomain.NewGroup{
			Name:               name,
			Description:        desc,
			IconEmoji:          emoji,
			IconColor:          in.IconColor,
			Visibility:         visibility,
			AutoApprove:        in.AutoApprove,
			Language:           in.Language,
			CreatorUserID:      userID,
			IsChallenge:        true,
			ChallengeStartDate: &startD,
			ChallengeEndDate:   &end,
			ChallengeStatus:    &status,
			TemplateID:         in.TemplateID,
		})
		if err != nil {
			return err
		}
		if err := st.InsertCreatorMembership(ctx, g.ID, userID); err != nil {
			return err
		}
		code, err := mintInvite(ctx, st, g.ID, userID)
		if err != nil {
			return err
		}
		if err := st.InsertChallengeGoals(ctx, g.ID, userID, domain.BuildSeeds(tpl, in.Goals)); err != nil {
			return err
		}
		meta := map[string]any{"challenge_name": g.Name}
		if in.TemplateID != nil {
			meta["template_id"] = *in.TemplateID
		}
		if err := st.InsertActivity(ctx, g.ID, &userID, "challenge_created", meta); err != nil {
			return err
		}
		if err := st.InsertHeatRow(ctx, g.ID); err != nil {
			return err
		}
		if tpl != nil {
			if err := st.MarkSuggestionUsed(ctx, userID, tpl.ID); err != nil {
				return err
			}
		}

		det = groupsdomain.Detail{
			Group:            g,
			MemberCount:      1,
			Role:             groupsdomain.RoleCreator,
			MembershipStatus: groupsdomain.MembershipActive,
			InviteCode:       code,
			InviteURL:        invite.ChallengeURL(code),
		}
		return nil
	})
	if err == nil && s.cfg.Embedder != nil {
		groupID := det.Group.ID
		tasks.Detach("challenges.search_embedding", logger.C(ctx), func(ctx context.Context) error {
			return s.cfg.Embedder.RefreshGroup(ctx, groupID)
		})
	}
	return det, err
}

// Cancel stops an upcoming or active challenge. Creator-only; members
// hear about it after commit
func (s *Svc) Cancel(ctx context.Context, userID, challengeID string) error {
	if _, err := s.cfg.Guards.Creator(ctx, userID, challengeID); err != nil {
		return err
	}

	var (
		name       string
		recipients []string
	)
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		ch, ok, err := st.ChallengeByID(ctx, challengeID)
		if err != nil {
			return err
		}
		if !ok {
			return perr.NotFoundf("challenge not found")
		}
		if !domain.Cancellable(ch.Status) {
			return perr.Conflictf("only upcoming or active challenges can be cancelled")
		}
		if err := st.SetStatus(ctx, challengeID, groupsdomain.ChallengeCancelled); err != nil {
			return err
		}
		if err := st.InsertActivity(ctx, challengeID, &userID, "challenge_cancelled", map[string]any{
			"challenge_name": ch.Name,
		}); err != nil {
			return err
		}

		members, err := st.ActiveMemberIDs(ctx, challengeID)
		if err != nil {
			return err
		}
		name = ch.Name
		for _, id := range members {
			if id != userID {
				recipients = append(recipients, id)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.cfg.Notifier != nil && len(recipients) > 0 {
		tasks.Detach("challenges.cancel_pushes", logger.C(ctx), func(ctx context.Context) error {
			return s.cfg.Notifier.ChallengeCancelled(ctx, challengeID, name, recipients)
		})
	}
	return nil
}

// InviteCard is the shareable challenge summary, attributed to the
// member fetching it
func (s *Svc) InviteCard(ctx context.Context, userID, challengeID string) (domain.InviteCard, error) {
	if _, err := s.cfg.Guards.ActiveMember(ctx, userID, challengeID); err != nil {
		return domain.InviteCard{}, err
	}

	var card domain.InviteCard
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		ch, ok, err := st.ChallengeByID(ctx, challengeID)
		if err != nil {
			return err
		}
		if !ok {
			return perr.NotFoundf("challenge not found")
		}
		code, ok, err := st.InviteCode(ctx, challengeID)
		if err != nil {
			return err
		}
		if !ok {
			return perr.NotFoundf("no live invite code for this challenge")
		}
		sharer, err := st.DisplayName(ctx, userID)
		if err != nil {
			return err
		}

		card = domain.InviteCard{
			ChallengeID: ch.ID,
			Name:        ch.Name,
			Emoji:       ch.Emoji,
			StartDate:   ch.StartDate,
			EndDate:     ch.EndDate,
			Code:        code,
			URL:         invite.ChallengeURL(code),
			InvitedBy:   domain.Attribution{UserID: userID, DisplayName: sharer},
		}
		return nil
	})
	return card, err
}

// challengeEnd resolves the end date: a template's fixed duration wins,
// otherwise the explicit end date
func challengeEnd(start time.Time, tpl *domain.Template, explicit *time.Time) (time.Time, error) {
	if tpl != nil && tpl.DurationDays != nil {
		return start.AddDate(0, 0, *tpl.DurationDays-1), nil
	}
	if explicit == nil {
		return time.Time{}, perr.WithField(
			perr.Newf(perr.ErrorCodeValidation, "an end date is required"), "end_date")
	}
	if explicit.Before(start) {
		return time.Time{}, perr.WithField(
			perr.Newf(perr.ErrorCodeValidation, "the end date precedes the start"), "end_date")
	}
	return *explicit, nil
}

// resolveIdentity fills blank identity fields from the template
func resolveIdentity(in domain.CreateChallengeInput, tpl *domain.Template) (name, desc string, emoji *string) {
	name = strings.TrimSpace(in.Name)
	desc = strings.TrimSpace(in.Description)
	emoji = in.IconEmoji
	if tpl == nil {
		return name, desc, emoji
	}
	if name == "" {
		name = tpl.Name
	}
	if desc == "" {
		desc = tpl.Description
	}
	if emoji == nil {
		emoji = tpl.Emoji
	}
	return name, desc, emoji
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

func locationOrUTC(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}
