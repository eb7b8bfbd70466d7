package domain

import (
	"context"
	"net/http"
	"time"
)

// ServicePort exposes the session lifecycle
type ServicePort interface {
	Register(ctx context.Context, in RegisterInput) (Session, error)
	Login(ctx context.Context, in LoginInput) (Session, error)
	GoogleSignIn(ctx context.Context, in GoogleInput) (Session, error)
	Refresh(ctx context.Context, in RefreshInput) (TokenPair, error)
	Logout(ctx context.Context, in LogoutInput) error
	ForgotPassword(ctx context.Context, in ForgotPasswordInput) error
	ResetPassword(ctx context.Context, in ResetPasswordInput) error
}

// AccountsPort exposes account-security operations consumed by the users module
type AccountsPort interface {
	ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) error
	Providers(ctx context.Context, userID string) ([]ProviderLink, error)
	LinkGoogle(ctx context.Context, userID, idToken string) ([]ProviderLink, error)
	UnlinkProvider(ctx context.Context, userID, provider string) ([]ProviderLink, error)
	Consents(ctx context.Context, userID string) ([]ConsentRecord, error)
	AcceptConsents(ctx context.Context, userID string, in AcceptConsentsInput) ([]ConsentRecord, error)
	RevokeAllSessions(ctx context.Context, userID string) error
}

// TokensPort parses bearer tokens for the auth middleware
type TokensPort interface {
	Parse(r *http.Request) (userID string, err error)
}

// GoogleVerifier is the identity half of the google adapter
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (GoogleIdentity, error)
}

// GoogleIdentity is the verified claim set auth needs from Google
type GoogleIdentity struct {
	Sub     string
	Email   string
	Name    string
	Picture string
}

// Storage is the repo surface behind the auth service
type Storage interface {
	CreateUser(ctx context.Context, email, displayName, timezone string, passwordHash []byte) (UserRow, error)
	UserByEmail(ctx context.Context, email string) (UserRow, bool, error)
	UserByID(ctx context.Context, id string) (UserRow, bool, error)
	SetPasswordHash(ctx context.Context, userID string, hash []byte) error

	InsertProvider(ctx context.Context, userID, provider, providerUserID string) error
	EnsureProvider(ctx context.Context, userID, provider, providerUserID string) error
	DeleteProvider(ctx context.Context, userID, provider string) error
	ProviderOwner(ctx context.Context, provider, providerUserID string) (userID string, ok bool, err error)
	ProvidersByUser(ctx context.Context, userID string) ([]ProviderLink, error)

	SetAvatarIfEmpty(ctx context.Context, userID string, data []byte, mime string) error

	InsertRefresh(ctx context.Context, userID, tokenID, tokenHash string, expiresAt time.Time) error
	RefreshByHash(ctx context.Context, tokenHash string) (RefreshRow, bool, error)
	RevokeRefresh(ctx context.Context, tokenHash, replacedByID string) error
	RevokeAllRefresh(ctx context.Context, userID string) error

	InsertReset(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	ResetByHash(ctx context.Context, tokenHash string) (ResetRow, bool, error)
	ConsumeReset(ctx context.Context, tokenHash string) error
	CountRecentResets(ctx context.Context, userID string, since time.Time) (int, error)

	InsertConsents(ctx context.Context, userID string, types []string, policyVersion, consentHash string) error
	ConsentsByUser(ctx context.Context, userID string) ([]ConsentRecord, error)
}
