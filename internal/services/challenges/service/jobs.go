package service

import (
	"context"
	"time"

	"pursue/internal/core/period"
	"pursue/internal/modkit/repokit"
	"pursue/internal/platform/logger"
	"pursue/internal/services/challenges/domain"
)

// completionBatch caps how many finished challenges one run drains
const completionBatch = 100

// RunStatusUpdate walks every challenge against the given clock and
// flips the statuses the dates demand. Reruns move nothing
func (s *Svc) RunStatusUpdate(ctx context.Context, now time.Time) (domain.StatusTransitions, error) {
	today := period.Date(now.UTC())

	var out domain.StatusTransitions
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)
		activated, err := st.ActivateDue(ctx, today)
		if err != nil {
			return err
		}
		completed, err := st.CompleteDue(ctx, today)
		if err != nil {
			return err
		}
		out = domain.StatusTransitions{Activated: activated, Completed: completed}
		return nil
	})
	if err != nil {
		return domain.StatusTransitions{}, err
	}

	logger.C(ctx).Info().
		Int("activated", out.Activated).
		Int("completed", out.Completed).
		Msg("challenges: statuses updated")
	return out, nil
}

// RunCompletionPushes sends every member of a freshly completed
// challenge their completion rate. A challenge is stamped only after
// its pushes went out, so a failed send retries on the next run
func (s *Svc) RunCompletionPushes(ctx context.Context) (domain.CompletionRun, error) {
	var pending []domain.Challenge
	if err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		pending, err = s.binder.Bind(q).CompletionPending(ctx, completionBatch)
		return err
	}); err != nil {
		return domain.CompletionRun{}, err
	}

	log := logger.C(ctx)
	var run domain.CompletionRun
	for _, ch := range pending {
		results, err := s.completionResults(ctx, ch)
		if err != nil {
			// one bad challenge must not sink the whole run
			log.Error().Err(err).Str("group_id", ch.ID).Msg("challenges: completion summary failed")
			continue
		}
		if s.cfg.Notifier != nil {
			if err := s.cfg.Notifier.ChallengeCompleted(ctx, ch.ID, ch.Name, results); err != nil {
				log.Error().Err(err).Str("group_id", ch.ID).Msg("challenges: completion push failed")
				continue
			}
		}
		if err := s.db.Tx(ctx, func(q repokit.Queryer) error {
			return s.binder.Bind(q).MarkCompletionNotified(ctx, ch.ID)
		}); err != nil {
			log.Error().Err(err).Str("group_id", ch.ID).Msg("challenges: completion stamp failed")
			continue
		}
		run.Challenges++
		run.Notified += len(results)
	}

	log.Info().
		Int("challenges", run.Challenges).
		Int("notified", run.Notified).
		Msg("challenges: completion pushes sent")
	return run, nil
}

// completionResults loads the whole window in one transaction and folds
// it in memory
func (s *Svc) completionResults(ctx context.Context, ch domain.Challenge) ([]domain.MemberResult, error) {
	var results []domain.MemberResult
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		goals, err := st.ChallengeGoals(ctx, ch.ID)
		if err != nil {
			return err
		}
		members, err := st.ActiveMemberIDs(ctx, ch.ID)
		if err != nil {
			return err
		}
		entries, err := st.WindowEntries(ctx, ch.ID, ch.StartDate, ch.EndDate)
		if err != nil {
			return err
		}
		results = domain.CompletionSummary(goals, entries, members, ch.StartDate, ch.EndDate)
		return nil
	})
	return results, err
}
