// Package service assembles the group feed and applies the reaction
// write rules
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/platform/logger"
	"pursue/internal/platform/tasks"
	"pursue/internal/services/feed/domain"
)

// signConcurrency bounds parallel signed-URL minting per page
const signConcurrency = 8

// Config carries the cross-module ports. Notifier may be nil in tests;
// reaction pushes are then dropped
type Config struct {
	Guards   domain.GroupGuardPort
	Photos   domain.ObjectStorePort
	Notifier domain.NotifierPort
}

// Svc implements domain.ServicePort
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[domain.Storage]
	cfg    Config
	now    func() time.Time
}

var _ domain.ServicePort = (*Svc)(nil)

// New constructs the feed service
func New(db repokit.TxRunner, binder repokit.Binder[domain.Storage], cfg Config) *Svc {
	if db == nil {
		panic("feed service requires a database")
	}
	if binder == nil {
		panic("feed service requires a storage binder")
	}
	if cfg.Guards == nil {
		panic("feed service requires the groups guard port")
	}
	if cfg.Photos == nil {
		panic("feed service requires an object store")
	}
	return &Svc{db: db, binder: binder, cfg: cfg, now: time.Now}
}

// Feed returns one page of a group's activity, newest first, with
// photos and reactions attached. Membership gates the read; the probe
// row past the limit detects another page without a count
func (s *Svc) Feed(ctx context.Context, userID, groupID string, offset, limit int) (domain.Page, error) {
	if _, err := s.cfg.Guards.ActiveMember(ctx, userID, groupID); err != nil {
		return domain.Page{}, err
	}
	offset, limit = domain.ClampPage(offset, limit)

	var (
		rows   []domain.ActivityRow
		photos []domain.PhotoRow
		reacts []domain.ReactionRow
	)
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)
		var err error
		if rows, err = st.Activities(ctx, groupID, limit+1, offset); err != nil {
			return err
		}

		visible := rows
		if len(visible) > limit {
			visible = visible[:limit]
		}
		ids := make([]string, len(visible))
		var entryIDs []string
		for i, a := range visible {
			ids[i] = a.ID
			if a.Type == domain.TypeProgressLogged {
				if id, ok := domain.EntryID(a.Metadata); ok {
					entryIDs = append(entryIDs, id)
				}
			}
		}
		if photos, err = st.PhotosByEntries(ctx, entryIDs); err != nil {
			return err
		}
		reacts, err = st.ReactionsByActivities(ctx, ids)
		return err
	})
	if err != nil {
		return domain.Page{}, err
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	signed := s.signPhotos(ctx, userID, photos)
	byActivity := make(map[string][]domain.ReactionRow, len(rows))
	for _, r := range reacts {
		byActivity[r.ActivityID] = append(byActivity[r.ActivityID], r)
	}

	page := domain.Page{
		Activities: make([]domain.Activity, 0, len(rows)),
		Offset:     offset,
		Limit:      limit,
		HasMore:    hasMore,
	}
	for _, r := range rows {
		a := domain.Activity{
			ID:        r.ID,
			Type:      r.Type,
			Metadata:  r.Metadata,
			CreatedAt: r.CreatedAt,
			Reactions: domain.Summarize(byActivity[r.ID], userID),
		}
		if r.ActorID != nil && r.ActorName != nil {
			a.Actor = &domain.Actor{UserID: *r.ActorID, DisplayName: *r.ActorName}
		}
		if r.Type == domain.TypeProgressLogged {
			if id, ok := domain.EntryID(r.Metadata); ok {
				a.Photo = signed[id]
			}
		}
		page.Activities = append(page.Activities, a)
	}
	return page, nil
}

// signPhotos mints signed URLs for the usable photo rows in parallel.
// A failed mint drops that photo to null rather than failing the page
func (s *Svc) signPhotos(ctx context.Context, viewerID string, photos []domain.PhotoRow) map[string]*domain.Photo {
	now := s.now().UTC()
	out := make(map[string]*domain.Photo, len(photos))

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(signConcurrency)
	for _, p := range photos {
		if !domain.PhotoUsable(viewerID, p, now) {
			continue
		}
		g.Go(func() error {
			url, err := s.cfg.Photos.SignedURL(ctx, p.ObjectPath)
			if err != nil {
				logger.C(ctx).Warn().Err(err).Str("entry_id", p.EntryID).Msg("feed: photo sign failed")
				return nil
			}
			mu.Lock()
			out[p.EntryID] = &domain.Photo{URL: url, WidthPx: p.WidthPx, HeightPx: p.HeightPx, ExpiresAt: p.ExpiresAt}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// React upserts the caller's reaction on an activity. Swapping from a
// different emoji reports replaced; repeating the same one is
// idempotent and stays silent
func (s *Svc) React(ctx context.Context, userID, activityID string, in domain.ReactInput) (domain.ReactResult, error) {
	ref, err := s.activity(ctx, activityID)
	if err != nil {
		return domain.ReactResult{}, err
	}
	if _, err := s.cfg.Guards.ActiveMember(ctx, userID, ref.GroupID); err != nil {
		return domain.ReactResult{}, err
	}

	var (
		prev *string
		name string
	)
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)
		var err error
		if prev, err = st.UpsertReaction(ctx, activityID, userID, in.Emoji); err != nil {
			return err
		}
		name, err = st.DisplayName(ctx, userID)
		return err
	})
	if err != nil {
		return domain.ReactResult{}, err
	}

	s.notifyReaction(ctx, ref, userID, name, in.Emoji, prev)
	return domain.ReactResult{Emoji: in.Emoji, Replaced: prev != nil && *prev != in.Emoji}, nil
}

// Unreact removes the caller's reaction. Removing nothing still reads
// as success so clients can retry freely
func (s *Svc) Unreact(ctx context.Context, userID, activityID string) error {
	ref, err := s.activity(ctx, activityID)
	if err != nil {
		return err
	}
	if _, err := s.cfg.Guards.ActiveMember(ctx, userID, ref.GroupID); err != nil {
		return err
	}
	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		_, err := s.binder.Bind(q).DeleteReaction(ctx, activityID, userID)
		return err
	})
}

// activity resolves the target row; malformed and unknown ids both read
// as not found
func (s *Svc) activity(ctx context.Context, activityID string) (domain.ActivityRef, error) {
	if uuid.Validate(activityID) != nil {
		return domain.ActivityRef{}, perr.NotFoundf("activity not found")
	}
	var ref domain.ActivityRef
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r, ok, err := s.binder.Bind(q).ActivityByID(ctx, activityID)
		if err != nil {
			return err
		}
		if !ok {
			return perr.NotFoundf("activity not found")
		}
		ref = r
		return nil
	})
	return ref, err
}

// notifyReaction pushes a best-effort note to the activity's owner.
// Self-reactions and same-emoji repeats stay silent
func (s *Svc) notifyReaction(ctx context.Context, ref domain.ActivityRef, reactorID, reactorName, emoji string, prev *string) {
	if s.cfg.Notifier == nil || ref.OwnerID == nil || *ref.OwnerID == reactorID {
		return
	}
	if prev != nil && *prev == emoji {
		return
	}
	owner := *ref.OwnerID
	short := domain.ShortName(reactorName)
	tasks.Detach("feed.reaction_push", logger.C(ctx), func(ctx context.Context) error {
		return s.cfg.Notifier.ReactionAdded(ctx, owner, ref.GroupID, ref.ID, emoji, short)
	})
}
