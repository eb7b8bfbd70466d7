// Package service implements the auth session lifecycle
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pursue/internal/adapters/imaging"
	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/platform/logger"
	"pursue/internal/platform/tasks"
	"pursue/internal/services/auth/domain"
)

// Config carries the signing and policy knobs
type Config struct {
	Signer        *Signer
	Google        domain.GoogleVerifier
	ConsentSalt   string
	PolicyVersion string

	// ResetTTL bounds reset-token life; ResetMaxPerHour caps issuance per
	// account on top of the per-IP limiter
	ResetTTL        time.Duration
	ResetMaxPerHour int
}

// Svc implements domain.ServicePort and domain.AccountsPort
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[domain.Storage]
	cfg    Config
	httpc  *http.Client
	now    func() time.Time
}

var (
	_ domain.ServicePort  = (*Svc)(nil)
	_ domain.AccountsPort = (*Svc)(nil)
)

// New constructs the auth service
func New(db repokit.TxRunner, binder repokit.Binder[domain.Storage], cfg Config) *Svc {
	if db == nil {
		panic("auth.Service requires a non-nil TxRunner")
	}
	if binder == nil {
		panic("auth.Service requires a non-nil Storage binder")
	}
	if cfg.Signer == nil {
		panic("auth.Service requires a Signer")
	}
	if cfg.PolicyVersion == "" {
		cfg.PolicyVersion = "1.0"
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = time.Hour
	}
	if cfg.ResetMaxPerHour <= 0 {
		cfg.ResetMaxPerHour = 3
	}
	return &Svc{
		db:     db,
		binder: binder,
		cfg:    cfg,
		httpc:  &http.Client{Timeout: 5 * time.Second},
		now:    time.Now,
	}
}

// errInvalidCredentials never says which part was wrong
func errInvalidCredentials() error {
	return perr.Reasoned(perr.ErrorCodeUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// resolveTimezone defaults empty input to UTC and rejects unknown zone names
func resolveTimezone(tz string) (string, error) {
	if tz == "" {
		return "UTC", nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return "", perr.WithField(perr.New(perr.ErrorCodeValidation, "unknown timezone"), "timezone")
	}
	return tz, nil
}

func snapshot(u domain.UserRow) domain.UserSnapshot {
	return domain.UserSnapshot{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Timezone:    u.Timezone,
		Tier:        u.Tier,
		Status:      u.Status,
		HasPassword: len(u.PasswordHash) > 0,
		HasAvatar:   u.HasAvatar,
	}
}

// consentHash fingerprints (email, policy version) without storing either on
// the consent row
func (s *Svc) consentHash(email, policyVersion string) string {
	sum := sha256.Sum256([]byte(s.cfg.ConsentSalt + "|" + email + "|" + policyVersion))
	return hex.EncodeToString(sum[:])
}

// grant mints a token pair and persists the refresh row inside the caller's tx
func (s *Svc) grant(ctx context.Context, st domain.Storage, userID string) (domain.TokenPair, error) {
	access, exp, err := s.cfg.Signer.MintAccess(userID)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, tokenID, hash, rexp, err := s.cfg.Signer.MintRefresh(userID)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if err := st.InsertRefresh(ctx, userID, tokenID, hash, rexp); err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}

// Register creates an email/password account with its provider and consent
// rows in one tx and signs the user in
func (s *Svc) Register(ctx context.Context, in domain.RegisterInput) (domain.Session, error) {
	email := normalizeEmail(in.Email)
	tz, err := resolveTimezone(in.Timezone)
	if err != nil {
		return domain.Session{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Session{}, perr.Wrap(err, perr.ErrorCodeUnknown, "hash password")
	}

	var sess domain.Session
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		u, err := st.CreateUser(ctx, email, strings.TrimSpace(in.DisplayName), tz, hash)
		if err != nil {
			if perr.IsDuplicateKey(err) {
				return perr.Reasoned(perr.ErrorCodeDuplicateKey, "EMAIL_EXISTS", "email already registered")
			}
			return err
		}
		if err := st.InsertProvider(ctx, u.ID, domain.ProviderEmail, email); err != nil {
			return err
		}
		consents := []string{domain.ConsentTerms, domain.ConsentPrivacy}
		if err := st.InsertConsents(ctx, u.ID, consents, s.cfg.PolicyVersion, s.consentHash(email, s.cfg.PolicyVersion)); err != nil {
			return err
		}

		pair, err := s.grant(ctx, st, u.ID)
		if err != nil {
			return err
		}
		sess = domain.Session{User: snapshot(u), Tokens: pair, IsNewUser: true}
		return nil
	})
	if err != nil {
		return domain.Session{}, err
	}
	return sess, nil
}

// Login verifies email/password credentials and issues a fresh pair.
// Earlier refresh tokens stay valid until they rotate or expire
func (s *Svc) Login(ctx context.Context, in domain.LoginInput) (domain.Session, error) {
	email := normalizeEmail(in.Email)

	var u domain.UserRow
	var found bool
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		u, found, err = s.binder.Bind(q).UserByEmail(ctx, email)
		return err
	})
	if err != nil {
		return domain.Session{}, err
	}
	// bcrypt runs outside the tx so a pool connection is not held for it
	if !found || len(u.PasswordHash) == 0 {
		return domain.Session{}, errInvalidCredentials()
	}
	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(in.Password)) != nil {
		return domain.Session{}, errInvalidCredentials()
	}

	var pair domain.TokenPair
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		pair, err = s.grant(ctx, s.binder.Bind(q), u.ID)
		return err
	})
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{User: snapshot(u), Tokens: pair}, nil
}

// GoogleSignIn resolves a verified Google identity to a session.
// Three cases: the provider is already linked (plain sign-in), the email
// matches an existing account (link the provider), or nobody matches and a
// new account is created, which requires explicit consent acceptance
func (s *Svc) GoogleSignIn(ctx context.Context, in domain.GoogleInput) (domain.Session, error) {
	if s.cfg.Google == nil {
		return domain.Session{}, perr.Unavailablef("google sign-in is not configured")
	}
	ident, err := s.cfg.Google.Verify(ctx, in.IDToken)
	if err != nil {
		return domain.Session{}, err
	}
	email := normalizeEmail(ident.Email)

	var sess domain.Session
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		if uid, ok, err := st.ProviderOwner(ctx, domain.ProviderGoogle, ident.Sub); err != nil {
			return err
		} else if ok {
			u, found, err := st.UserByID(ctx, uid)
			if err != nil {
				return err
			}
			if !found {
				return errInvalidCredentials()
			}
			pair, err := s.grant(ctx, st, u.ID)
			if err != nil {
				return err
			}
			sess = domain.Session{User: snapshot(u), Tokens: pair}
			return nil
		}

		if u, ok, err := st.UserByEmail(ctx, email); err != nil {
			return err
		} else if ok {
			if err := st.InsertProvider(ctx, u.ID, domain.ProviderGoogle, ident.Sub); err != nil {
				return err
			}
			pair, err := s.grant(ctx, st, u.ID)
			if err != nil {
				return err
			}
			sess = domain.Session{User: snapshot(u), Tokens: pair}
			return nil
		}

		if !in.AcceptTerms || !in.AcceptPrivacy {
			return perr.Reasoned(perr.ErrorCodeInvalidArgument, "CONSENT_REQUIRED",
				"terms and privacy acceptance is required for new accounts")
		}
		tz, err := resolveTimezone(in.Timezone)
		if err != nil {
			return err
		}
		name := strings.TrimSpace(ident.Name)
		if name == "" {
			name = email
			if at := strings.IndexByte(email, '@'); at > 0 {
				name = email[:at]
			}
		}

		u, err := st.CreateUser(ctx, email, name, tz, nil)
		if err != nil {
			return err
		}
		if err := st.InsertProvider(ctx, u.ID, domain.ProviderGoogle, ident.Sub); err != nil {
			return err
		}
		consents := []string{domain.ConsentTerms, domain.ConsentPrivacy}
		if err := st.InsertConsents(ctx, u.ID, consents, s.cfg.PolicyVersion, s.consentHash(email, s.cfg.PolicyVersion)); err != nil {
			return err
		}
		pair, err := s.grant(ctx, st, u.ID)
		if err != nil {
			return err
		}
		sess = domain.Session{User: snapshot(u), Tokens: pair, IsNewUser: true}
		return nil
	})
	if err != nil {
		return domain.Session{}, err
	}

	if ident.Picture != "" && !sess.User.HasAvatar {
		s.importAvatar(ctx, sess.User.ID, ident.Picture)
	}
	return sess, nil
}

// importAvatar pulls the provider profile picture for accounts without an
// avatar. Detached and best-effort; sign-in never waits on it
func (s *Svc) importAvatar(ctx context.Context, userID, url string) {
	log := logger.C(ctx)
	tasks.Detach("auth.avatar_import", log, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := s.httpc.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return perr.Newf(perr.ErrorCodeUnavailable, "avatar fetch status %d", resp.StatusCode)
		}
		raw, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
		if err != nil {
			return err
		}
		img, err := imaging.Shrink(raw, imaging.AvatarMaxEdge)
		if err != nil {
			return err
		}
		return s.db.Tx(ctx, func(q repokit.Queryer) error {
			return s.binder.Bind(q).SetAvatarIfEmpty(ctx, userID, img.Data, img.MIME)
		})
	})
}

// Refresh rotates a refresh token: the presented row is revoked and a new
// pair minted in one tx, so each refresh token grants exactly one rotation
func (s *Svc) Refresh(ctx context.Context, in domain.RefreshInput) (domain.TokenPair, error) {
	userID, tokenID, err := s.cfg.Signer.VerifyRefresh(in.RefreshToken)
	if err != nil {
		return domain.TokenPair{}, err
	}
	hash := HashToken(in.RefreshToken)

	var pair domain.TokenPair
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		row, ok, err := st.RefreshByHash(ctx, hash)
		if err != nil {
			return err
		}
		if !ok {
			return perr.Unauthorizedf("invalid token")
		}
		if row.RevokedAt != nil {
			return perr.Reasoned(perr.ErrorCodeUnauthorized, "TOKEN_REVOKED", "refresh token already used")
		}
		if s.now().After(row.ExpiresAt) {
			return perr.Unauthorizedf("refresh token expired")
		}
		// the row must agree with the signed claims
		if row.UserID != userID || row.ID != tokenID {
			return perr.Unauthorizedf("invalid token")
		}
		if _, found, err := st.UserByID(ctx, userID); err != nil {
			return err
		} else if !found {
			return perr.Unauthorizedf("invalid token")
		}

		access, exp, err := s.cfg.Signer.MintAccess(userID)
		if err != nil {
			return err
		}
		refresh, newID, newHash, newExp, err := s.cfg.Signer.MintRefresh(userID)
		if err != nil {
			return err
		}
		if err := st.RevokeRefresh(ctx, hash, newID); err != nil {
			return err
		}
		if err := st.InsertRefresh(ctx, userID, newID, newHash, newExp); err != nil {
			return err
		}
		pair = domain.TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}
		return nil
	})
	if err != nil {
		return domain.TokenPair{}, err
	}
	return pair, nil
}

// Logout revokes the presented refresh token. Revoking twice is a no-op
func (s *Svc) Logout(ctx context.Context, in domain.LogoutInput) error {
	if _, _, err := s.cfg.Signer.VerifyRefresh(in.RefreshToken); err != nil {
		return err
	}
	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		return s.binder.Bind(q).RevokeRefresh(ctx, HashToken(in.RefreshToken), "")
	})
}

// ForgotPassword issues a reset token for known accounts. The response is
// identical whether or not the email exists
func (s *Svc) ForgotPassword(ctx context.Context, in domain.ForgotPasswordInput) error {
	email := normalizeEmail(in.Email)
	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		u, found, err := st.UserByEmail(ctx, email)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		n, err := st.CountRecentResets(ctx, u.ID, s.now().Add(-time.Hour))
		if err != nil {
			return err
		}
		if n >= s.cfg.ResetMaxPerHour {
			logger.C(ctx).Info().Str("user_id", u.ID).Msg("auth: reset issuance capped")
			return nil
		}

		tok, err := newResetToken()
		if err != nil {
			return err
		}
		if err := st.InsertReset(ctx, u.ID, HashToken(tok), s.now().Add(s.cfg.ResetTTL)); err != nil {
			return err
		}
		// delivery is a mail concern outside this service; the hash prefix
		// lets operators correlate a support ticket with the issued row
		logger.C(ctx).Info().
			Str("user_id", u.ID).
			Str("token_hash_prefix", HashToken(tok)[:8]).
			Msg("auth: password reset token issued")
		return nil
	})
}

// ResetPassword consumes a reset token, sets the new password and revokes
// every live session
func (s *Svc) ResetPassword(ctx context.Context, in domain.ResetPasswordInput) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "hash password")
	}
	tokenHash := HashToken(in.Token)

	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		row, ok, err := st.ResetByHash(ctx, tokenHash)
		if err != nil {
			return err
		}
		if !ok || row.UsedAt != nil || s.now().After(row.ExpiresAt) {
			return perr.Unauthorizedf("invalid or expired reset token")
		}
		u, found, err := st.UserByID(ctx, row.UserID)
		if err != nil {
			return err
		}
		if !found {
			return perr.Unauthorizedf("invalid or expired reset token")
		}

		if err := st.SetPasswordHash(ctx, u.ID, hash); err != nil {
			return err
		}
		// a password implies the email provider; google-only accounts gain it here
		if err := st.EnsureProvider(ctx, u.ID, domain.ProviderEmail, u.Email); err != nil {
			return err
		}
		if err := st.ConsumeReset(ctx, tokenHash); err != nil {
			return err
		}
		return st.RevokeAllRefresh(ctx, u.ID)
	})
}

func newResetToken() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeUnknown, "generate reset token")
	}
	return hex.EncodeToString(b[:]), nil
}
