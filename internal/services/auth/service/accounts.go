package service

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/services/auth/domain"
)

// ChangePassword verifies the current password before setting a new one.
// Live sessions survive; clients call RevokeAllSessions when they want a
// clean slate
func (s *Svc) ChangePassword(ctx context.Context, userID string, in domain.ChangePasswordInput) error {
	var u domain.UserRow
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var found bool
		var err error
		u, found, err = s.binder.Bind(q).UserByID(ctx, userID)
		if err != nil {
			return err
		}
		if !found {
			return perr.NotFoundf("user not found")
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(u.PasswordHash) == 0 ||
		bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(in.CurrentPassword)) != nil {
		return perr.Reasoned(perr.ErrorCodeUnauthorized, "INVALID_CREDENTIALS", "current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "hash password")
	}
	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)
		if err := st.SetPasswordHash(ctx, userID, hash); err != nil {
			return err
		}
		return st.EnsureProvider(ctx, userID, domain.ProviderEmail, u.Email)
	})
}

// Providers lists linked sign-in methods with per-row unlink eligibility
func (s *Svc) Providers(ctx context.Context, userID string) ([]domain.ProviderLink, error) {
	var out []domain.ProviderLink
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.binder.Bind(q).ProvidersByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	markUnlinkable(out)
	return out, nil
}

// markUnlinkable flags rows that can go without stranding the account.
// Unlinking email also clears the password, so the rule is simply "another
// provider must remain"
func markUnlinkable(links []domain.ProviderLink) {
	for i := range links {
		links[i].CanUnlink = len(links) > 1
	}
}

// LinkGoogle attaches a verified Google identity to an existing account
func (s *Svc) LinkGoogle(ctx context.Context, userID, idToken string) ([]domain.ProviderLink, error) {
	if s.cfg.Google == nil {
		return nil, perr.Unavailablef("google sign-in is not configured")
	}
	ident, err := s.cfg.Google.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}

	var out []domain.ProviderLink
	var hasAvatar bool
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		owner, ok, err := st.ProviderOwner(ctx, domain.ProviderGoogle, ident.Sub)
		if err != nil {
			return err
		}
		switch {
		case ok && owner != userID:
			return perr.Reasoned(perr.ErrorCodeConflict, "PROVIDER_ALREADY_LINKED",
				"this google account is linked to another user")
		case !ok:
			if err := st.InsertProvider(ctx, userID, domain.ProviderGoogle, ident.Sub); err != nil {
				return err
			}
		}

		u, found, err := st.UserByID(ctx, userID)
		if err != nil {
			return err
		}
		if !found {
			return perr.NotFoundf("user not found")
		}
		hasAvatar = u.HasAvatar

		out, err = st.ProvidersByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	markUnlinkable(out)

	if ident.Picture != "" && !hasAvatar {
		s.importAvatar(ctx, userID, ident.Picture)
	}
	return out, nil
}

// UnlinkProvider removes a sign-in method. The last provider can never be
// unlinked; unlinking email also clears the stored password hash
func (s *Svc) UnlinkProvider(ctx context.Context, userID, provider string) ([]domain.ProviderLink, error) {
	if provider != domain.ProviderEmail && provider != domain.ProviderGoogle {
		return nil, perr.InvalidArgf("unknown provider %q", provider)
	}

	var out []domain.ProviderLink
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		links, err := st.ProvidersByUser(ctx, userID)
		if err != nil {
			return err
		}
		linked := false
		for _, l := range links {
			if l.Provider == provider {
				linked = true
				break
			}
		}
		if !linked {
			return perr.NotFoundf("provider not linked")
		}
		if len(links) <= 1 {
			return perr.Reasoned(perr.ErrorCodeConflict, "LAST_PROVIDER",
				"cannot unlink the only sign-in method")
		}

		if err := st.DeleteProvider(ctx, userID, provider); err != nil {
			return err
		}
		if provider == domain.ProviderEmail {
			if err := st.SetPasswordHash(ctx, userID, nil); err != nil {
				return err
			}
		}

		out, err = st.ProvidersByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	markUnlinkable(out)
	return out, nil
}

// Consents lists accepted policy versions
func (s *Svc) Consents(ctx context.Context, userID string) ([]domain.ConsentRecord, error) {
	var out []domain.ConsentRecord
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.binder.Bind(q).ConsentsByUser(ctx, userID)
		return err
	})
	return out, err
}

// AcceptConsents records acceptance of a policy version for the flagged types
func (s *Svc) AcceptConsents(ctx context.Context, userID string, in domain.AcceptConsentsInput) ([]domain.ConsentRecord, error) {
	var types []string
	if in.Terms {
		types = append(types, domain.ConsentTerms)
	}
	if in.Privacy {
		types = append(types, domain.ConsentPrivacy)
	}
	if len(types) == 0 {
		return nil, perr.New(perr.ErrorCodeValidation, "at least one consent flag is required")
	}

	var out []domain.ConsentRecord
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		u, found, err := st.UserByID(ctx, userID)
		if err != nil {
			return err
		}
		if !found {
			return perr.NotFoundf("user not found")
		}
		if err := st.InsertConsents(ctx, userID, types, in.PolicyVersion, s.consentHash(u.Email, in.PolicyVersion)); err != nil {
			return err
		}
		out, err = st.ConsentsByUser(ctx, userID)
		return err
	})
	return out, err
}

// RevokeAllSessions invalidates every live refresh token for the user
func (s *Svc) RevokeAllSessions(ctx context.Context, userID string) error {
	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		return s.binder.Bind(q).RevokeAllRefresh(ctx, userID)
	})
}
