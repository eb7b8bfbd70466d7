package service

import (
	"context"

	"github.com/google/uuid"

	"pursue/internal/adapters/imaging"
	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/platform/logger"
	"pursue/internal/platform/tasks"
	"pursue/internal/services/goals/domain"
)

// AttachPhoto pins one photo to the caller's own entry while its edit
// window is open. The object lands in storage before the row so a
// committed row never points at nothing
func (s *Svc) AttachPhoto(ctx context.Context, userID, entryID string, data []byte) (domain.PhotoView, error) {
	img, err := imaging.Shrink(data, imaging.PhotoMaxEdge)
	if err != nil {
		return domain.PhotoView{}, err
	}

	var entry domain.Entry
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
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
			return perr.Forbiddenf("you can only attach a photo to your own entry")
		}
		if s.now().Sub(e.LoggedAt) > domain.PhotoWindow {
			return perr.Reasoned(perr.ErrorCodeForbidden, "EDIT_WINDOW_CLOSED",
				"photos attach within 15 minutes of logging")
		}
		if _, found, err := st.PhotoByEntry(ctx, e.ID); err != nil {
			return err
		} else if found {
			return perr.Conflictf("a photo is already attached to this entry")
		}
		entry = e
		return nil
	})
	if err != nil {
		return domain.PhotoView{}, err
	}

	path := "progress/" + entry.ID + "/" + uuid.NewString() + ".jpg"
	if err := s.cfg.Photos.Upload(ctx, path, img.Data, img.MIME); err != nil {
		return domain.PhotoView{}, err
	}

	var view domain.PhotoView
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		p, err := st.InsertPhoto(ctx, domain.NewPhoto{
			ProgressEntryID: entry.ID,
			UserID:          userID,
			ObjectPath:      path,
			WidthPx:         img.Width,
			HeightPx:        img.Height,
			ExpiresAt:       s.now().Add(domain.PhotoLifetime),
		})
		if err != nil {
			if perr.IsDuplicateKey(err) {
				return perr.Conflictf("a photo is already attached to this entry")
			}
			return err
		}
		view = domain.PhotoView{ID: p.ID, WidthPx: p.WidthPx, HeightPx: p.HeightPx, ExpiresAt: p.ExpiresAt}
		return nil
	})
	if err != nil {
		// the row never landed; reclaim the object
		s.collectObject(ctx, path)
		return domain.PhotoView{}, err
	}

	// signing is best-effort here; the client refetches on a blank URL
	if url, serr := s.cfg.Photos.SignedURL(ctx, path); serr == nil {
		view.URL = url
	} else {
		logger.C(ctx).Warn().Err(serr).Str("entry_id", entry.ID).Msg("photo: sign after attach failed")
	}
	return view, nil
}

// PhotoFor returns a freshly signed view of an entry's photo
func (s *Svc) PhotoFor(ctx context.Context, userID, entryID string) (domain.PhotoView, error) {
	var photo domain.Photo
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
		if !domain.CanSee(userID, e) {
			return perr.NotFoundf("progress entry not found")
		}

		p, found, err := st.PhotoByEntry(ctx, e.ID)
		if err != nil {
			return err
		}
		if !found || p.ObjectDeletedAt != nil {
			return perr.NotFoundf("no photo attached")
		}
		if !s.now().Before(p.ExpiresAt) {
			return perr.Reasoned(perr.ErrorCodeGone, "PHOTO_EXPIRED", "this photo has expired")
		}
		photo = p
		return nil
	})
	if err != nil {
		return domain.PhotoView{}, err
	}

	url, err := s.cfg.Photos.SignedURL(ctx, photo.ObjectPath)
	if err != nil {
		return domain.PhotoView{}, err
	}
	return domain.PhotoView{
		ID:        photo.ID,
		URL:       url,
		WidthPx:   photo.WidthPx,
		HeightPx:  photo.HeightPx,
		ExpiresAt: photo.ExpiresAt,
	}, nil
}

// DeletePhoto retires an entry's photo. Owners remove their own; group
// admins remove anyone's
func (s *Svc) DeletePhoto(ctx context.Context, userID, entryID string) error {
	var path string
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
		if !found || p.ObjectDeletedAt != nil {
			return perr.NotFoundf("no photo attached")
		}
		path = p.ObjectPath
		return st.MarkPhotoDeleted(ctx, p.ID)
	})
	if err != nil {
		return err
	}
	s.collectObject(ctx, path)
	return nil
}

// collectObject drops a photo blob from the object store after commit.
// Failures are logged and swallowed; the row already reads as deleted
func (s *Svc) collectObject(ctx context.Context, path string) {
	log := logger.C(ctx)
	tasks.Detach("goals.photo_gc", log, func(ctx context.Context) error {
		return s.cfg.Photos.Delete(ctx, path)
	})
}
