// Package domain holds auth types and ports
package domain

import "time"

// Provider names persisted on auth_providers rows
const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

// Consent types persisted on consent_records rows
const (
	ConsentTerms   = "terms"
	ConsentPrivacy = "privacy"
)

// RegisterInput is the email/password signup payload
type RegisterInput struct {
	Email         string `json:"email" validate:"required,email,max=320"`
	Password      string `json:"password" validate:"required,min=8,max=72"`
	DisplayName   string `json:"display_name" validate:"required,min=1,max=60"`
	Timezone      string `json:"timezone" validate:"omitempty,max=64"`
	AcceptTerms   bool   `json:"accept_terms" validate:"required"`
	AcceptPrivacy bool   `json:"accept_privacy" validate:"required"`
}

// LoginInput is the email/password login payload
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// GoogleInput carries a Google ID token plus consents for first sign-in
type GoogleInput struct {
	IDToken       string `json:"id_token" validate:"required"`
	AcceptTerms   bool   `json:"accept_terms"`
	AcceptPrivacy bool   `json:"accept_privacy"`
	Timezone      string `json:"timezone" validate:"omitempty,max=64"`
}

// RefreshInput presents a refresh token for rotation
type RefreshInput struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutInput revokes the presented refresh token
type LogoutInput struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ForgotPasswordInput requests a reset email
type ForgotPasswordInput struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordInput consumes a reset token
type ResetPasswordInput struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

// LinkGoogleInput attaches a Google identity to the signed-in account
type LinkGoogleInput struct {
	IDToken string `json:"id_token" validate:"required"`
}

// ChangePasswordInput verifies the old password before setting a new one
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// AcceptConsentsInput records acceptance of a policy version
type AcceptConsentsInput struct {
	Terms         bool   `json:"terms"`
	Privacy       bool   `json:"privacy"`
	PolicyVersion string `json:"policy_version" validate:"required,max=32"`
}

// Ack is a generic acknowledgement body
type Ack struct {
	Message string `json:"message"`
}

// TokenPair is the session grant returned by register/login/refresh
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Session is a token pair plus the authenticated user snapshot
type Session struct {
	User      UserSnapshot `json:"user"`
	Tokens    TokenPair    `json:"tokens"`
	IsNewUser bool         `json:"is_new_user,omitempty"`
}

// UserSnapshot is the auth-facing user projection
type UserSnapshot struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Timezone    string `json:"timezone"`
	Tier        string `json:"current_subscription_tier"`
	Status      string `json:"subscription_status"`
	HasPassword bool   `json:"has_password"`
	HasAvatar   bool   `json:"has_avatar"`
}

// ProviderLink is one linked sign-in method
type ProviderLink struct {
	Provider  string    `json:"provider"`
	LinkedAt  time.Time `json:"linked_at"`
	CanUnlink bool      `json:"can_unlink"`
}

// ConsentRecord is one accepted policy version
type ConsentRecord struct {
	ConsentType   string    `json:"consent_type"`
	PolicyVersion string    `json:"policy_version"`
	AcceptedAt    time.Time `json:"accepted_at"`
}

// UserRow is the storage projection the service works with
type UserRow struct {
	ID           string
	Email        string
	DisplayName  string
	Timezone     string
	PasswordHash []byte
	Tier         string
	Status       string
	HasAvatar    bool
	DeletedAt    *time.Time
}

// RefreshRow is a refresh token at rest
type RefreshRow struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// ResetRow is a password reset token at rest
type ResetRow struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
}
