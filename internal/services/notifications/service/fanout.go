package service

// Cross-module delivery. Every method lands an inbox row and pushes to
// the recipients' devices best-effort; callers run these through
// tasks.Detach after their own transaction commits, so a slow vendor
// never holds up the originating request.

import (
	"context"
	"fmt"

	"pursue/internal/modkit/repokit"
	"pursue/internal/platform/logger"
	challdomain "pursue/internal/services/challenges/domain"
	"pursue/internal/services/notifications/domain"
)

// JoinPending tells a group's admins someone joined by invite code and
// awaits approval
func (s *Svc) JoinPending(ctx context.Context, groupID, groupName, joinerID string) error {
	return s.toAdmins(ctx, groupID, joinerID, domain.TypeJoinPending,
		"New member waiting", "%s wants to join "+groupName, map[string]any{
			"group_id": groupID,
			"user_id":  joinerID,
		})
}

// JoinRequested tells a public group's admins about a join request.
// The request id rides in the payload so approval can clear the row
func (s *Svc) JoinRequested(ctx context.Context, groupID, groupName, requesterID, requestID string) error {
	return s.toAdmins(ctx, groupID, requesterID, domain.TypeJoinRequested,
		"Join request", "%s asked to join "+groupName, map[string]any{
			"group_id":   groupID,
			"user_id":    requesterID,
			"request_id": requestID,
		})
}

// RequestApproved tells the requester they are in
func (s *Svc) RequestApproved(ctx context.Context, groupID, groupName, userID string) error {
	s.deliver(ctx, []string{userID}, domain.TypeRequestApproved,
		"Welcome to "+groupName, "Your request to join was approved", map[string]any{
			"group_id": groupID,
		}, "")
	return nil
}

// RequestDeclined tells the requester the group passed
func (s *Svc) RequestDeclined(ctx context.Context, groupID, groupName, userID string) error {
	s.deliver(ctx, []string{userID}, domain.TypeRequestDeclined,
		"Request declined", "Your request to join "+groupName+" was declined", map[string]any{
			"group_id": groupID,
		}, "")
	return nil
}

// ReactionAdded tells an activity's owner someone reacted. Reactions
// collapse per activity on the vendor side so a popular post does not
// buzz the owner once per emoji
func (s *Svc) ReactionAdded(ctx context.Context, recipientID, groupID, activityID, emoji, reactorName string) error {
	s.deliver(ctx, []string{recipientID}, domain.TypeReaction,
		reactorName+" reacted "+emoji, "", map[string]any{
			"group_id":    groupID,
			"activity_id": activityID,
			"emoji":       emoji,
		}, "reaction:"+activityID)
	return nil
}

// ChallengeCancelled fans the cancellation out to the remaining members
func (s *Svc) ChallengeCancelled(ctx context.Context, groupID, name string, recipients []string) error {
	s.deliver(ctx, recipients, domain.TypeChallengeCancelled,
		"Challenge cancelled", name+" was cancelled by its creator", map[string]any{
			"group_id": groupID,
		}, "challenge:"+groupID)
	return nil
}

// ChallengeCompleted sends each member their own completion rate
func (s *Svc) ChallengeCompleted(ctx context.Context, groupID, name string, results []challdomain.MemberResult) error {
	for _, res := range results {
		s.deliver(ctx, []string{res.UserID}, domain.TypeChallengeCompleted,
			name+" is complete",
			fmt.Sprintf("You finished at %d%%", res.Percentage), map[string]any{
				"group_id":   groupID,
				"percentage": res.Percentage,
			}, "challenge:"+groupID)
	}
	return nil
}

// ReminderDue nudges a user about an unlogged goal
func (s *Svc) ReminderDue(ctx context.Context, userID, goalID, goalTitle, groupID string) error {
	s.deliver(ctx, []string{userID}, domain.TypeReminder,
		"Time for "+goalTitle, "Log today's progress before the day gets away", map[string]any{
			"group_id": groupID,
			"goal_id":  goalID,
		}, "reminder:"+goalID)
	return nil
}

// WeeklyRecap sends one member their week-in-review. It reports false
// when the recap for that ISO week was already delivered
func (s *Svc) WeeklyRecap(ctx context.Context, userID, groupID, groupName, week string, entries int) (bool, error) {
	title := "Your week in " + groupName
	body := fmt.Sprintf("You logged %d times this week", entries)
	if entries == 0 {
		body = "A fresh week is a fresh start"
	}

	var inserted bool
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		inserted, err = s.binder.Bind(q).InsertRecapNotification(ctx, userID, title, body, map[string]any{
			"group_id": groupID,
			"entries":  entries,
		}, week)
		return err
	})
	if err != nil || !inserted {
		return false, err
	}
	s.push(ctx, []string{userID}, title, body, map[string]string{"group_id": groupID}, "recap:"+week)
	return true, nil
}

// toAdmins resolves the group's admins (minus the actor) and delivers.
// bodyFmt carries one %s for the actor's display name
func (s *Svc) toAdmins(ctx context.Context, groupID, actorID, ntype, title, bodyFmt string, data map[string]any) error {
	var (
		admins []string
		actor  string
	)
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)
		var err error
		if admins, err = st.GroupAdminIDs(ctx, groupID); err != nil {
			return err
		}
		actor, err = st.DisplayName(ctx, actorID)
		return err
	})
	if err != nil {
		return err
	}
	if actor == "" {
		actor = "Someone"
	}

	recipients := admins[:0]
	for _, id := range admins {
		if id != actorID {
			recipients = append(recipients, id)
		}
	}
	s.deliver(ctx, recipients, ntype, title, fmt.Sprintf(bodyFmt, actor), data, "")
	return nil
}

// deliver writes inbox rows and pushes in one sweep. Inbox failures
// log and the push still goes out; per-recipient isolation keeps one
// bad row from starving the rest
func (s *Svc) deliver(ctx context.Context, recipients []string, ntype, title, body string, data map[string]any, collapseKey string) {
	if len(recipients) == 0 {
		return
	}
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)
		for _, uid := range recipients {
			if err := st.InsertNotification(ctx, uid, ntype, title, body, data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.C(ctx).Warn().Err(err).Str("type", ntype).Msg("notifications: inbox write failed")
	}

	push := make(map[string]string, len(data))
	for k, v := range data {
		push[k] = fmt.Sprint(v)
	}
	push["type"] = ntype
	s.push(ctx, recipients, title, body, push, collapseKey)
}

// push resolves device tokens and hands the batch to the vendor
func (s *Svc) push(ctx context.Context, recipients []string, title, body string, data map[string]string, collapseKey string) {
	if s.cfg.Push == nil || !s.cfg.Push.Enabled() {
		return
	}
	var byUser map[string][]string
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		byUser, err = s.binder.Bind(q).TokensForUsers(ctx, recipients)
		return err
	})
	if err != nil {
		logger.C(ctx).Warn().Err(err).Msg("notifications: token lookup failed")
		return
	}

	var tokens []string
	for _, t := range byUser {
		tokens = append(tokens, t...)
	}
	if len(tokens) == 0 {
		return
	}
	if err := s.cfg.Push.SendToTokens(ctx, tokens, title, body, data, collapseKey); err != nil {
		logger.C(ctx).Warn().Err(err).Int("tokens", len(tokens)).Msg("notifications: push failed")
	}
}
