// Package service applies the report and dispute rules
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/platform/logger"
	"pursue/internal/platform/tasks"
	goalsdomain "pursue/internal/services/goals/domain"
	"pursue/internal/services/moderation/domain"
)

// Config carries the cross-module ports. Screen may be nil; reported
// entries then hide on the reporter threshold only
type Config struct {
	Guards domain.GroupGuardPort
	Screen domain.ScreenPort
}

// Svc implements domain.ServicePort
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[domain.Storage]
	cfg    Config
	now    func() time.Time
}

var _ domain.ServicePort = (*Svc)(nil)

// New constructs the moderation service
func New(db repokit.TxRunner, binder repokit.Binder[domain.Storage], cfg Config) *Svc {
	if db == nil {
		panic("moderation service requires a database")
	}
	if binder == nil {
		panic("moderation service requires a storage binder")
	}
	if cfg.Guards == nil {
		panic("moderation service requires the groups guard port")
	}
	return &Svc{db: db, binder: binder, cfg: cfg, now: time.Now}
}

// Report flags a piece of content. Progress-entry reports come only
// from groupmates and may tip the entry over the auto-hide threshold
// inside the same transaction
func (s *Svc) Report(ctx context.Context, userID string, in domain.ReportInput) (domain.ReportResult, error) {
	if uuid.Validate(in.ContentID) != nil {
		return domain.ReportResult{}, perr.NotFoundf("content not found")
	}

	var entry *domain.EntryRef
	switch in.ContentType {
	case domain.ContentProgressEntry:
		ref, err := s.entryRef(ctx, in.ContentID)
		if err != nil {
			return domain.ReportResult{}, err
		}
		if ref.OwnerID == userID {
			return domain.ReportResult{}, perr.InvalidArgf("you cannot report your own content")
		}
		if _, err := s.cfg.Guards.ActiveMember(ctx, userID, ref.GroupID); err != nil {
			return domain.ReportResult{}, err
		}
		entry = &ref
	case domain.ContentGroup:
		if err := s.requirePublicGroup(ctx, in.ContentID); err != nil {
			return domain.ReportResult{}, err
		}
	case domain.ContentUsername:
		if in.ContentID == userID {
			return domain.ReportResult{}, perr.InvalidArgf("you cannot report your own content")
		}
		if err := s.requireUser(ctx, in.ContentID); err != nil {
			return domain.ReportResult{}, err
		}
	}

	var res domain.ReportResult
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)
		id, err := st.InsertReport(ctx, userID, in.ContentType, in.ContentID, in.Reason)
		if err != nil {
			return err
		}
		res = domain.ReportResult{ID: id, CreatedAt: s.now().UTC()}

		if entry == nil || entry.ModerationStatus != goalsdomain.ModerationOK {
			return nil
		}
		reporters, err := st.DistinctReporters(ctx, in.ContentType, in.ContentID)
		if err != nil {
			return err
		}
		members, err := st.ActiveMemberCount(ctx, entry.GroupID)
		if err != nil {
			return err
		}
		if reporters < domain.AutoHideThreshold(members) {
			return nil
		}
		hidden, err := st.SetEntryStatus(ctx, entry.ID, goalsdomain.ModerationOK, goalsdomain.ModerationHidden)
		if err != nil {
			return err
		}
		res.AutoHidden = hidden
		return nil
	})
	if err != nil {
		return domain.ReportResult{}, err
	}

	if res.AutoHidden {
		logger.C(ctx).Info().
			Str("entry_id", in.ContentID).
			Msg("moderation: entry auto-hidden")
	} else if entry != nil && entry.ModerationStatus == goalsdomain.ModerationOK {
		s.screenEntry(ctx, *entry)
	}
	return res, nil
}

// screenEntry runs the reported text through the safety vendor after the
// report commits. A flagged verdict hides the entry without waiting for
// more reporters; vendor failure changes nothing.
func (s *Svc) screenEntry(ctx context.Context, entry domain.EntryRef) {
	if s.cfg.Screen == nil || !s.cfg.Screen.Enabled() {
		return
	}
	text := entry.ScreenText()
	if text == "" {
		return
	}
	tasks.Detach("moderation.screen", logger.C(ctx), func(ctx context.Context) error {
		allowed, labels, err := s.cfg.Screen.CheckText(ctx, text)
		if err != nil || allowed {
			return err
		}
		return s.db.Tx(ctx, func(q repokit.Queryer) error {
			hidden, err := s.binder.Bind(q).SetEntryStatus(
				ctx, entry.ID, goalsdomain.ModerationOK, goalsdomain.ModerationHidden,
			)
			if err != nil {
				return err
			}
			if hidden {
				logger.C(ctx).Info().
					Str("entry_id", entry.ID).
					Strs("labels", labels).
					Msg("moderation: entry hidden by screen")
			}
			return nil
		})
	})
}

// Dispute lets an author contest a removal. Only removed content can
// be disputed, and only by its owner; everyone else reads the entry as
// not found
func (s *Svc) Dispute(ctx context.Context, userID string, in domain.DisputeInput) (domain.DisputeResult, error) {
	if uuid.Validate(in.ContentID) != nil {
		return domain.DisputeResult{}, perr.NotFoundf("content not found")
	}
	if in.ContentType != domain.ContentProgressEntry {
		return domain.DisputeResult{}, perr.InvalidArgf("only progress entries can be disputed")
	}

	ref, err := s.entryRef(ctx, in.ContentID)
	if err != nil {
		return domain.DisputeResult{}, err
	}
	if ref.OwnerID != userID {
		return domain.DisputeResult{}, perr.NotFoundf("content not found")
	}
	if ref.ModerationStatus != goalsdomain.ModerationRemoved {
		return domain.DisputeResult{}, perr.Reasoned(perr.ErrorCodeConflict, "NOT_DISPUTABLE",
			"only removed content can be disputed")
	}

	var res domain.DisputeResult
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)
		id, err := st.InsertDispute(ctx, userID, in.ContentType, in.ContentID, in.Explanation)
		if err != nil {
			return err
		}
		if _, err := st.SetEntryStatus(ctx, ref.ID, goalsdomain.ModerationRemoved, goalsdomain.ModerationDisputed); err != nil {
			return err
		}
		res = domain.DisputeResult{ID: id, Status: goalsdomain.ModerationDisputed, CreatedAt: s.now().UTC()}
		return nil
	})
	return res, err
}

func (s *Svc) entryRef(ctx context.Context, entryID string) (domain.EntryRef, error) {
	var ref domain.EntryRef
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r, ok, err := s.binder.Bind(q).EntryRef(ctx, entryID)
		if err != nil {
			return err
		}
		if !ok {
			return perr.NotFoundf("content not found")
		}
		ref = r
		return nil
	})
	return ref, err
}

func (s *Svc) requirePublicGroup(ctx context.Context, groupID string) error {
	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		ok, err := s.binder.Bind(q).PublicGroupExists(ctx, groupID)
		if err != nil {
			return err
		}
		if !ok {
			return perr.NotFoundf("content not found")
		}
		return nil
	})
}

func (s *Svc) requireUser(ctx context.Context, userID string) error {
	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		ok, err := s.binder.Bind(q).UserExists(ctx, userID)
		if err != nil {
			return err
		}
		if !ok {
			return perr.NotFoundf("content not found")
		}
		return nil
	})
}
