// Package service implements user self-management
package service

import (
	"context"
	"strings"
	"time"

	"pursue/internal/adapters/imaging"
	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/platform/logger"
	"pursue/internal/services/users/domain"
)

// Config carries the service knobs. Memberships may be nil in tests; account
// deletion then skips the group walk
type Config struct {
	Memberships domain.MembershipsPort
}

// Svc implements domain.ServicePort
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[domain.Storage]
	cfg    Config
	now    func() time.Time
}

var _ domain.ServicePort = (*Svc)(nil)

// New constructs the users service
func New(db repokit.TxRunner, binder repokit.Binder[domain.Storage], cfg Config) *Svc {
	if db == nil {
		panic("users service requires a database")
	}
	if binder == nil {
		panic("users service requires a storage binder")
	}
	return &Svc{db: db, binder: binder, cfg: cfg, now: time.Now}
}

// Me returns the caller's own profile
func (s *Svc) Me(ctx context.Context, userID string) (domain.Profile, error) {
	var p domain.Profile
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		got, found, err := s.binder.Bind(q).ProfileByID(ctx, userID)
		if err != nil {
			return err
		}
		if !found {
			return perr.NotFoundf("user not found")
		}
		p = got
		return nil
	})
	return p, err
}

// UpdateMe patches display name and timezone. Absent fields keep their
// stored values
func (s *Svc) UpdateMe(ctx context.Context, userID string, in domain.UpdateProfileInput) (domain.Profile, error) {
	name, err := normalizeDisplayName(in.DisplayName)
	if err != nil {
		return domain.Profile{}, err
	}
	tz, err := normalizeTimezone(in.Timezone)
	if err != nil {
		return domain.Profile{}, err
	}

	var p domain.Profile
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		got, found, err := s.binder.Bind(q).UpdateProfile(ctx, userID, name, tz)
		if err != nil {
			return err
		}
		if !found {
			return perr.NotFoundf("user not found")
		}
		p = got
		return nil
	})
	return p, err
}

func normalizeDisplayName(name *string) (*string, error) {
	if name == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return nil, perr.WithField(
			perr.Newf(perr.ErrorCodeValidation, "display name cannot be blank"), "display_name")
	}
	return &trimmed, nil
}

// normalizeTimezone accepts any name the IANA database resolves
func normalizeTimezone(tz *string) (*string, error) {
	if tz == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*tz)
	if _, err := time.LoadLocation(trimmed); err != nil || trimmed == "" {
		return nil, perr.WithField(
			perr.Newf(perr.ErrorCodeValidation, "unknown timezone %q", *tz), "timezone")
	}
	return &trimmed, nil
}

// UploadAvatar shrinks the image to the avatar edge and stores the result
func (s *Svc) UploadAvatar(ctx context.Context, userID string, data []byte) (domain.Profile, error) {
	res, err := imaging.Shrink(data, imaging.AvatarMaxEdge)
	if err != nil {
		return domain.Profile{}, err
	}

	var p domain.Profile
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)
		if err := st.SetAvatar(ctx, userID, res.Data, res.MIME); err != nil {
			return err
		}
		got, found, err := st.ProfileByID(ctx, userID)
		if err != nil {
			return err
		}
		if !found {
			return perr.NotFoundf("user not found")
		}
		p = got
		return nil
	})
	return p, err
}

// Avatar returns the stored image bytes
func (s *Svc) Avatar(ctx context.Context, userID string) (domain.Avatar, error) {
	var a domain.Avatar
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		got, found, err := s.binder.Bind(q).AvatarByID(ctx, userID)
		if err != nil {
			return err
		}
		if !found {
			return perr.NotFoundf("no avatar set")
		}
		a = got
		return nil
	})
	return a, err
}

// DeleteAvatar removes the stored image. Deleting an absent avatar is a no-op
func (s *Svc) DeleteAvatar(ctx context.Context, userID string) error {
	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		return s.binder.Bind(q).ClearAvatar(ctx, userID)
	})
}

// MyGroups lists the caller's memberships with group summaries
func (s *Svc) MyGroups(ctx context.Context, userID string) ([]domain.GroupSummary, error) {
	var out []domain.GroupSummary
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		got, err := s.binder.Bind(q).GroupsForUser(ctx, userID)
		if err != nil {
			return err
		}
		out = got
		return nil
	})
	if out == nil {
		out = []domain.GroupSummary{}
	}
	return out, err
}

// DeleteAccount soft-deletes the user. The group walk runs first, outside
// the tombstone transaction, so successor promotion sees a live roster
func (s *Svc) DeleteAccount(ctx context.Context, userID string) error {
	if s.cfg.Memberships != nil {
		if err := s.cfg.Memberships.RemoveUserFromAllGroups(ctx, userID); err != nil {
			return err
		}
	}

	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)
		if err := st.SoftDeleteUser(ctx, userID); err != nil {
			return err
		}
		if err := st.RevokeRefreshTokens(ctx, userID); err != nil {
			return err
		}
		return st.DeleteDevices(ctx, userID)
	})
	if err != nil {
		return err
	}

	logger.C(ctx).Info().Str("user_id", userID).Msg("users: account deleted")
	return nil
}
