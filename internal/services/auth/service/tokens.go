package service

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	perr "pursue/internal/platform/errors"
)

const (
	tokenIssuer = "pursue"

	typAccess  = "access"
	typRefresh = "refresh"
)

// claims is the signed claim set for both token kinds.
// TokenID is only present on refresh tokens; it names the row at rest
type claims struct {
	jwt.RegisteredClaims
	Typ     string `json:"typ"`
	TokenID string `json:"tid,omitempty"`
}

// Signer mints and verifies HS256 session tokens
type Signer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewSigner builds a Signer; zero TTLs get the defaults (1h access, 30d refresh)
func NewSigner(secret string, accessTTL, refreshTTL time.Duration) *Signer {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &Signer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// MintAccess returns a signed access token and its expiry
func (s *Signer) MintAccess(userID string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.accessTTL)
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Typ: typAccess,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "sign access token")
	}
	return tok, exp, nil
}

// MintRefresh returns a signed refresh token, the row id it carries, and the
// at-rest hash of the token string
func (s *Signer) MintRefresh(userID string) (tok, tokenID, hash string, expiresAt time.Time, err error) {
	now := s.now()
	expiresAt = now.Add(s.refreshTTL)
	tokenID = uuid.NewString()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   userID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Typ:     typRefresh,
		TokenID: tokenID,
	}
	tok, err = jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", "", "", time.Time{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "sign refresh token")
	}
	return tok, tokenID, HashToken(tok), expiresAt, nil
}

// VerifyAccess validates an access token and returns the subject user id
func (s *Signer) VerifyAccess(raw string) (string, error) {
	c, err := s.verify(raw, typAccess)
	if err != nil {
		return "", err
	}
	return c.Subject, nil
}

// VerifyRefresh validates a refresh token and returns (userID, tokenID)
func (s *Signer) VerifyRefresh(raw string) (string, string, error) {
	c, err := s.verify(raw, typRefresh)
	if err != nil {
		return "", "", err
	}
	if c.TokenID == "" {
		return "", "", perr.Unauthorizedf("invalid token")
	}
	return c.Subject, c.TokenID, nil
}

func (s *Signer) verify(raw, wantTyp string) (*claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, perr.Unauthorizedf("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil || !tok.Valid {
		return nil, perr.Unauthorizedf("invalid token")
	}
	c, ok := tok.Claims.(*claims)
	if !ok || c.Subject == "" || c.Typ != wantTyp {
		return nil, perr.Unauthorizedf("invalid token")
	}
	return c, nil
}

// HashToken is the at-rest digest for refresh and reset tokens
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
