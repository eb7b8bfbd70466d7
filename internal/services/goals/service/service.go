// Package service implements goal lifecycle and the progress ledger
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"pursue/internal/core/period"
	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/services/goals/domain"
	groupsdomain "pursue/internal/services/groups/domain"
)

// Config carries the cross-module ports
type Config struct {
	Groups domain.GroupGuardPort
	Writes domain.WriteGuardPort
	Photos domain.ObjectStorePort
}

// Svc implements domain.ServicePort
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[domain.Storage]
	cfg    Config
	now    func() time.Time
}

var _ domain.ServicePort = (*Svc)(nil)

// New constructs the goals service
func New(db repokit.TxRunner, binder repokit.Binder[domain.Storage], cfg Config) *Svc {
	if db == nil {
		panic("goals service requires a database")
	}
	if binder == nil {
		panic("goals service requires a storage binder")
	}
	if cfg.Groups == nil {
		panic("goals service requires the groups guard port")
	}
	if cfg.Writes == nil {
		panic("goals service requires the subscriptions write guard")
	}
	if cfg.Photos == nil {
		panic("goals service requires an object store")
	}
	return &Svc{db: db, binder: binder, cfg: cfg, now: time.Now}
}

// CreateGoal adds a goal to the group. Admin-only; the 100-goal cap is
// enforced by the store
func (s *Svc) CreateGoal(ctx context.Context, userID, groupID string, in domain.CreateGoalInput) (domain.Goal, error) {
	if _, err := s.cfg.Groups.Admin(ctx, userID, groupID); err != nil {
		return domain.Goal{}, err
	}
	if err := s.cfg.Writes.CanUserWriteInGroup(ctx, userID, groupID); err != nil {
		return domain.Goal{}, err
	}

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return domain.Goal{}, perr.WithField(
			perr.Newf(perr.ErrorCodeValidation, "goal title cannot be blank"), "title")
	}
	if err := validateMask(in.Cadence, in.ActiveDays); err != nil {
		return domain.Goal{}, err
	}

	var goal domain.Goal
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		g, err := st.InsertGoal(ctx, groupID, userID, in)
		if err != nil {
			if perr.IsResourceLimit(err) {
				return perr.WithMeta(
					perr.Reasonedf(perr.ErrorCodeResourceLimit, "RESOURCE_LIMIT_EXCEEDED",
						"this group is at its %d-goal limit", domain.GoalsPerGroup),
					map[string]any{"limit": domain.GoalsPerGroup})
			}
			return err
		}
		goal = g

		return st.InsertActivity(ctx, groupID, &userID, "goal_created", map[string]any{
			"goal_id":    g.ID,
			"goal_title": g.Title,
		})
	})
	if err != nil {
		return domain.Goal{}, err
	}
	return goal, nil
}

// Goal returns one live goal to a group member
func (s *Svc) Goal(ctx context.Context, userID, goalID string) (domain.Goal, error) {
	var goal domain.Goal
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)
		g, err := goalByID(ctx, st, goalID)
		if err != nil {
			return err
		}
		if _, err := s.cfg.Groups.Member(ctx, userID, g.GroupID); err != nil {
			return err
		}
		goal = g
		return nil
	})
	if err != nil {
		return domain.Goal{}, err
	}
	return goal, nil
}

// UpdateGoal patches a goal. Mask edits are refused while a parent
// challenge is running and are echoed to the feed
func (s *Svc) UpdateGoal(ctx context.Context, userID, goalID string, in domain.UpdateGoalInput) (domain.Goal, error) {
	var goal domain.Goal
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)
		g, err := goalByID(ctx, st, goalID)
		if err != nil {
			return err
		}
		goal = g
		return nil
	})
	if err != nil {
		return domain.Goal{}, err
	}

	if _, err := s.cfg.Groups.Admin(ctx, userID, goal.GroupID); err != nil {
		return domain.Goal{}, err
	}
	if err := s.cfg.Writes.CanUserWriteInGroup(ctx, userID, goal.GroupID); err != nil {
		return domain.Goal{}, err
	}
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" {
			return domain.Goal{}, perr.WithField(
				perr.Newf(perr.ErrorCodeValidation, "goal title cannot be blank"), "title")
		}
		in.Title = &t
	}

	maskChange := in.ActiveDays != nil && (goal.ActiveDays == nil || *goal.ActiveDays != *in.ActiveDays)
	if maskChange {
		if err := validateMask(goal.Cadence, in.ActiveDays); err != nil {
			return domain.Goal{}, err
		}
		g, err := s.cfg.Groups.Group(ctx, goal.GroupID)
		if err != nil {
			return domain.Goal{}, err
		}
		if groupsdomain.ChallengeWindow(g, s.now().UTC()) == groupsdomain.WindowActive {
			return domain.Goal{}, perr.Reasoned(perr.ErrorCodeForbidden,
				"CHALLENGE_GOALS_LOCKED", "goals are locked while the challenge runs")
		}
	}

	var out domain.Goal
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		g, found, err := st.UpdateGoal(ctx, goalID, in)
		if err != nil {
			return err
		}
		if !found {
			return perr.NotFoundf("goal not found")
		}
		out = g

		if maskChange {
			return st.InsertActivity(ctx, g.GroupID, &userID, "goal_updated", map[string]any{
				"goal_id":         g.ID,
				"goal_title":      g.Title,
				"old_active_days": goal.ActiveDays,
				"new_active_days": *in.ActiveDays,
			})
		}
		return nil
	})
	if err != nil {
		return domain.Goal{}, err
	}
	return out, nil
}

// ArchiveGoal soft-deletes a goal. The row keeps counting toward the
// group cap until the group itself is hard-deleted
func (s *Svc) ArchiveGoal(ctx context.Context, userID, goalID string) error {
	var goal domain.Goal
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)
		g, err := goalByID(ctx, st, goalID)
		if err != nil {
			return err
		}
		goal = g
		return nil
	})
	if err != nil {
		return err
	}

	if _, err := s.cfg.Groups.Admin(ctx, userID, goal.GroupID); err != nil {
		return err
	}
	if err := s.cfg.Writes.CanUserWriteInGroup(ctx, userID, goal.GroupID); err != nil {
		return err
	}

	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		archived, err := st.ArchiveGoal(ctx, goalID)
		if err != nil {
			return err
		}
		if !archived {
			return perr.NotFoundf("goal not found")
		}
		return st.InsertActivity(ctx, goal.GroupID, &userID, "goal_archived", map[string]any{
			"goal_id":    goal.ID,
			"goal_title": goal.Title,
		})
	})
}

// GoalsWithProgress lists the group's live goals with current-period
// entries and the roster. Beyond the goal list it costs exactly two
// queries: one entry range scan and one roster read
func (s *Svc) GoalsWithProgress(ctx context.Context, userID, groupID string) (domain.GroupGoalList, error) {
	if _, err := s.cfg.Groups.Member(ctx, userID, groupID); err != nil {
		return domain.GroupGoalList{}, err
	}

	out := domain.GroupGoalList{GroupID: groupID, Goals: []domain.GoalProgress{}}
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		goals, err := st.GoalsForGroup(ctx, groupID)
		if err != nil {
			return err
		}
		roster, err := st.Roster(ctx, groupID)
		if err != nil {
			return err
		}
		out.Members = roster
		if len(goals) == 0 {
			return nil
		}

		tz, err := st.UserTimezone(ctx, userID)
		if err != nil {
			return err
		}
		today := s.now().In(locationOrUTC(tz))

		// current bucket per goal; the scan starts at the earliest one
		ids := make([]string, len(goals))
		buckets := make([]time.Time, len(goals))
		var minPeriod time.Time
		for i, g := range goals {
			ids[i] = g.ID
			buckets[i] = period.Start(period.Cadence(g.Cadence), today)
			if minPeriod.IsZero() || buckets[i].Before(minPeriod) {
				minPeriod = buckets[i]
			}
		}

		entries, err := st.EntriesSince(ctx, ids, minPeriod)
		if err != nil {
			return err
		}
		byGoal := make(map[string][]domain.Entry, len(goals))
		for _, e := range entries {
			byGoal[e.GoalID] = append(byGoal[e.GoalID], e)
		}

		for i, g := range goals {
			gp := domain.GoalProgress{Goal: g, PeriodStart: buckets[i], Entries: []domain.EntryLite{}}
			seen := make(map[string]struct{})
			for _, e := range byGoal[g.ID] {
				if !e.PeriodStart.Equal(buckets[i]) || !domain.CanSee(userID, e) {
					continue
				}
				gp.Entries = append(gp.Entries, domain.EntryLite{
					ID:       e.ID,
					UserID:   e.UserID,
					Value:    e.Value,
					LogTitle: e.LogTitle,
					LoggedAt: e.LoggedAt,
				})
				if e.UserID != nil {
					seen[*e.UserID] = struct{}{}
				}
			}
			gp.CompletedMembers = len(seen)
			out.Goals = append(out.Goals, gp)
		}
		return nil
	})
	if err != nil {
		return domain.GroupGoalList{}, err
	}
	if out.Members == nil {
		out.Members = []domain.RosterMember{}
	}
	return out, nil
}

// goalByID resolves a live goal. Malformed ids read as missing
func goalByID(ctx context.Context, st domain.Storage, goalID string) (domain.Goal, error) {
	if err := uuid.Validate(goalID); err != nil {
		return domain.Goal{}, perr.NotFoundf("goal not found")
	}
	g, found, err := st.GoalByID(ctx, goalID)
	if err != nil {
		return domain.Goal{}, err
	}
	if !found {
		return domain.Goal{}, perr.NotFoundf("goal not found")
	}
	return g, nil
}

// validateMask rejects day masks on anything but daily goals. The
// all-days value passes everywhere as a null-equivalent
func validateMask(cadence string, mask *int) error {
	if mask == nil {
		return nil
	}
	if *mask < 1 || !period.ValidMask(*mask) {
		return perr.WithField(
			perr.Newf(perr.ErrorCodeValidation, "active days are a 7-bit Monday-to-Sunday mask"), "active_days")
	}
	if cadence != string(period.Daily) && *mask != period.AllDays {
		return perr.WithField(
			perr.Newf(perr.ErrorCodeValidation, "active days apply to daily goals only"), "active_days")
	}
	return nil
}

// locationOrUTC loads an IANA zone, falling back to UTC on anything stale
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

// resolveLocation prefers the submitted timezone, then the cached one
func resolveLocation(submitted, cached string) (*time.Location, error) {
	if submitted != "" {
		loc, err := time.LoadLocation(submitted)
		if err != nil {
			return nil, perr.WithField(
				perr.Newf(perr.ErrorCodeValidation, "unknown timezone"), "timezone")
		}
		return loc, nil
	}
	return locationOrUTC(cached), nil
}
