package service

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"pursue/internal/core/period"
	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/platform/logger"
	"pursue/internal/platform/tasks"
	"pursue/internal/services/goals/domain"
	groupsdomain "pursue/internal/services/groups/domain"
)

// LogProgress records one period of progress. The caller must be an
// active member with write access, the goal live, a parent challenge in
// its window, and the date not in the caller's future
func (s *Svc) LogProgress(ctx context.Context, userID string, in domain.LogProgressInput) (domain.Entry, error) {
	if err := uuid.Validate(in.GoalID); err != nil {
		return domain.Entry{}, perr.NotFoundf("goal not found")
	}
	userDate, err := time.Parse("2006-01-02", in.UserDate)
	if err != nil {
		return domain.Entry{}, perr.WithField(
			perr.Newf(perr.ErrorCodeValidation, "dates use the YYYY-MM-DD form"), "user_date")
	}

	var entry domain.Entry
	var goal domain.Goal
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		g, err := goalByID(ctx, st, in.GoalID)
		if err != nil {
			return err
		}
		goal = g
		if _, err := s.cfg.Groups.ActiveMember(ctx, userID, g.GroupID); err != nil {
			return err
		}
		if err := s.cfg.Writes.CanUserWriteInGroup(ctx, userID, g.GroupID); err != nil {
			return err
		}

		cached, err := st.UserTimezone(ctx, userID)
		if err != nil {
			return err
		}
		loc, err := resolveLocation(in.Timezone, cached)
		if err != nil {
			return err
		}

		grp, err := s.cfg.Groups.Group(ctx, g.GroupID)
		if err != nil {
			return err
		}
		if w := groupsdomain.ChallengeWindow(grp, s.now().In(loc)); w != groupsdomain.WindowActive {
			return perr.WithMeta(
				perr.Reasoned(perr.ErrorCodeForbidden, "CHALLENGE_NOT_ACTIVE",
					"this challenge is not accepting logs"),
				map[string]any{"window": w})
		}

		today := period.Date(s.now().In(loc))
		if period.Date(userDate).After(today) {
			return perr.WithField(
				perr.Newf(perr.ErrorCodeValidation, "progress cannot be logged for a future date"), "user_date")
		}
		if g.Cadence == string(period.Daily) && g.ActiveDays != nil && !period.ActiveOn(*g.ActiveDays, userDate) {
			return perr.WithField(
				perr.Newf(perr.ErrorCodeValidation, "this goal is not scheduled on that day"), "user_date")
		}

		value, err := resolveValue(g.MetricType, in.Value)
		if err != nil {
			return err
		}

		entry, err = st.InsertEntry(ctx, domain.NewEntry{
			GoalID:       g.ID,
			UserID:       userID,
			Value:        value,
			Note:         in.Note,
			LogTitle:     in.LogTitle,
			PeriodStart:  period.Start(period.Cadence(g.Cadence), userDate),
			UserTimezone: loc.String(),
		})
		if err != nil {
			if perr.IsDuplicateKey(err) {
				return errDuplicateEntry()
			}
			return err
		}

		if err := st.InsertActivity(ctx, g.GroupID, &userID, "progress_logged", map[string]any{
			"progress_entry_id": entry.ID,
			"goal_id":           g.ID,
			"goal_title":        g.Title,
		}); err != nil {
			return err
		}

		if in.Timezone != "" && in.Timezone != cached {
			return st.SetUserTimezone(ctx, userID, in.Timezone)
		}
		return nil
	})
	if err != nil {
		return domain.Entry{}, err
	}

	s.evalMilestones(ctx, goal, userID, entry.ID)
	return entry, nil
}

// GoalEntries lists a goal's entries for a group member, moderation
// overlay applied
func (s *Svc) GoalEntries(ctx context.Context, userID, goalID string, from, to time.Time) ([]domain.Entry, error) {
	from, to, err := s.normalizeRange(from, to)
	if err != nil {
		return nil, err
	}

	out := []domain.Entry{}
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		g, err := goalByID(ctx, st, goalID)
		if err != nil {
			return err
		}
		if _, err := s.cfg.Groups.Member(ctx, userID, g.GroupID); err != nil {
			return err
		}

		entries, err := st.EntriesForGoal(ctx, g.ID, from, to)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if domain.CanSee(userID, e) {
				out = append(out, e)
			}
		}
		return s.flagPhotos(ctx, st, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MyGoalEntries lists the caller's own entries on a goal
func (s *Svc) MyGoalEntries(ctx context.Context, userID, goalID string, from, to time.Time) ([]domain.Entry, error) {
	from, to, err := s.normalizeRange(from, to)
	if err != nil {
		return nil, err
	}

	out := []domain.Entry{}
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		g, err := goalByID(ctx, st, goalID)
		if err != nil {
			return err
		}
		if _, err := s.cfg.Groups.Member(ctx, userID, g.GroupID); err != nil {
			return err
		}

		entries, err := st.EntriesForGoalUser(ctx, g.ID, userID, from, to)
		if err != nil {
			return err
		}
		out = append(out, entries...)
		return s.flagPhotos(ctx, st, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateEntry edits the caller's own entry. Binary and journal entries
// keep their unit value
func (s *Svc) UpdateEntry(ctx context.Context, userID, entryID string, in domain.UpdateEntryInput) (domain.Entry, error) {
	var out domain.Entry
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		e, err := entryByID(ctx, st, entryID)
		if err != nil {
			return err
		}
		g, err := parentGoal(ctx, st, e)
		if err != nil {
			return err
		}
		if _, err := s.cfg.Groups.Member(ctx, userID, g.GroupID); err != nil {
			return err
		}
		if e.UserID == nil || *e.UserID != userID {
			return perr.Forbiddenf("you can only edit your own entries")
		}
		if domain.CountsByEntry(g.MetricType) {
			in.Value = nil
		}

		out, _, err = st.UpdateEntry(ctx, entryID, in)
		return err
	})
	if err != nil {
		return domain.Entry{}, err
	}
	return out, nil
}

// DeleteEntry removes an entry. Owners delete their own; group admins
// delete anyone's. The photo object, if any, is collected after commit
func (s *Svc) DeleteEntry(ctx context.Context, userID, entryID string) error {
	var orphanPath string
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		e, err := entryByID(ctx, st, entryID)
		if err != nil {
			return err
		}
		g, err := parentGoal(ctx, st, e)
		if err != nil {
			return err
		}
		if e.UserID != nil && *e.UserID == userID {
			if _, err := s.cfg.Groups.Member(ctx, userID, g.GroupID); err != nil {
				return err
			}
		} else if _, err := s.cfg.Groups.Admin(ctx, userID, g.GroupID); err != nil {
			return err
		}

		p, found, err := st.PhotoByEntry(ctx, e.ID)
		if err != nil {
			return err
		}
		if found && p.ObjectDeletedAt == nil {
			orphanPath = p.ObjectPath
		}

		deleted, err := st.DeleteEntry(ctx, e.ID)
		if err != nil {
			return err
		}
		if !deleted {
			return perr.NotFoundf("progress entry not found")
		}
		return nil
	})
	if err != nil {
		return err
	}
	if orphanPath != "" {
		s.collectObject(ctx, orphanPath)
	}
	return nil
}

// MemberProgress aggregates one member's standing across the group's
// live goals over a range
func (s *Svc) MemberProgress(ctx context.Context, userID, groupID, memberID string, from, to time.Time) (domain.MemberProgress, error) {
	if err := uuid.Validate(memberID); err != nil {
		return domain.MemberProgress{}, perr.NotFoundf("member not found")
	}
	if _, err := s.cfg.Groups.Member(ctx, userID, groupID); err != nil {
		return domain.MemberProgress{}, err
	}
	from, to, err := s.normalizeRange(from, to)
	if err != nil {
		return domain.MemberProgress{}, err
	}

	out := domain.MemberProgress{
		GroupID: groupID,
		UserID:  memberID,
		From:    from,
		To:      to,
		Goals:   []domain.GoalAggregate{},
	}
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		roster, err := st.Roster(ctx, groupID)
		if err != nil {
			return err
		}
		onRoster := false
		for _, m := range roster {
			if m.UserID == memberID {
				onRoster = true
				break
			}
		}
		if !onRoster {
			return perr.NotFoundf("member not found")
		}

		goals, err := st.GoalsForGroup(ctx, groupID)
		if err != nil {
			return err
		}
		entries, err := st.EntriesForMember(ctx, groupID, memberID, from, to)
		if err != nil {
			return err
		}

		byGoal := make(map[string][]domain.Entry, len(goals))
		for _, e := range entries {
			if !domain.CanSee(userID, e) {
				continue
			}
			byGoal[e.GoalID] = append(byGoal[e.GoalID], e)
		}
		for _, g := range goals {
			out.Goals = append(out.Goals, domain.Aggregate(g, byGoal[g.ID], from, to))
		}
		return nil
	})
	if err != nil {
		return domain.MemberProgress{}, err
	}
	return out, nil
}

// evalMilestones checks the author's entry count after commit and drops
// a feed shout when it lands on a milestone. Best-effort
func (s *Svc) evalMilestones(ctx context.Context, goal domain.Goal, userID, entryID string) {
	log := logger.C(ctx)
	tasks.Detach("goals.milestones", log, func(ctx context.Context) error {
		return s.db.Tx(ctx, func(q repokit.Queryer) error {
			st := s.binder.Bind(q)

			n, err := st.CountEntries(ctx, goal.ID, userID)
			if err != nil {
				return err
			}
			if !domain.MilestoneHit(n) {
				return nil
			}
			return st.InsertActivity(ctx, goal.GroupID, &userID, "milestone_reached", map[string]any{
				"goal_id":           goal.ID,
				"goal_title":        goal.Title,
				"milestone":         n,
				"progress_entry_id": entryID,
			})
		})
	})
}

// flagPhotos marks which entries still carry a viewable photo, in one
// batched read
func (s *Svc) flagPhotos(ctx context.Context, st domain.Storage, entries []domain.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	photos, err := st.PhotosByEntryIDs(ctx, ids)
	if err != nil {
		return err
	}

	now := s.now()
	live := make(map[string]struct{}, len(photos))
	for _, p := range photos {
		if p.ObjectDeletedAt == nil && now.Before(p.ExpiresAt) {
			live[p.ProgressEntryID] = struct{}{}
		}
	}
	for i := range entries {
		_, entries[i].HasPhoto = live[entries[i].ID]
	}
	return nil
}

// normalizeRange fills range defaults (the last 30 days) and bounds the
// span
func (s *Svc) normalizeRange(from, to time.Time) (time.Time, time.Time, error) {
	today := period.Date(s.now().UTC())
	if to.IsZero() {
		to = today
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -29)
	}
	from, to = period.Date(from), period.Date(to)
	if to.Before(from) {
		return from, to, perr.WithField(
			perr.Newf(perr.ErrorCodeValidation, "the range end precedes its start"), "to")
	}
	if int(to.Sub(from).Hours()/24)+1 > domain.MaxRangeDays {
		return from, to, perr.WithField(
			perr.Newf(perr.ErrorCodeValidation, "progress ranges span at most a year"), "to")
	}
	return from, to, nil
}

// resolveValue settles the stored value per metric: counted metrics pin
// it to one, measured metrics require it
func resolveValue(metric string, v *float64) (float64, error) {
	if domain.CountsByEntry(metric) {
		return 1, nil
	}
	if v == nil {
		return 0, perr.WithField(
			perr.Newf(perr.ErrorCodeValidation, "a value is required for this goal"), "value")
	}
	return *v, nil
}

// entryByID resolves an entry. Malformed ids read as missing
func entryByID(ctx context.Context, st domain.Storage, entryID string) (domain.Entry, error) {
	if err := uuid.Validate(entryID); err != nil {
		return domain.Entry{}, perr.NotFoundf("progress entry not found")
	}
	e, found, err := st.EntryByID(ctx, entryID)
	if err != nil {
		return domain.Entry{}, err
	}
	if !found {
		return domain.Entry{}, perr.NotFoundf("progress entry not found")
	}
	return e, nil
}

// errDuplicateEntry reports a second log for the same period. It reads
// as a plain 400, unlike the other conflict reasons
func errDuplicateEntry() error {
	return perr.WithHTTPStatus(
		perr.Reasoned(perr.ErrorCodeConflict, "DUPLICATE_ENTRY",
			"progress for this period is already logged"),
		http.StatusBadRequest)
}

// parentGoal resolves an entry's goal, archived included
func parentGoal(ctx context.Context, st domain.Storage, e domain.Entry) (domain.Goal, error) {
	g, found, err := st.GoalForEntry(ctx, e.GoalID)
	if err != nil {
		return domain.Goal{}, err
	}
	if !found {
		return domain.Goal{}, perr.NotFoundf("goal not found")
	}
	return g, nil
}
