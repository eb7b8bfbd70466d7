package module

import (
	"time"

	"pursue/internal/platform/config"
)

// Options holds configuration settings for the auth module
type Options struct {
	JWTSecret     string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ResetTTL      time.Duration
	PolicyVersion string

	ConsentSalt    string
	GoogleAudience string

	// LoginAttempts failed credential calls per LoginWindow per IP;
	// ResetRequests reset issuances per ResetWindow per IP
	LoginAttempts int
	LoginWindow   time.Duration
	ResetRequests int
	ResetWindow   time.Duration
}

// FromConfig reads configuration settings from the config.Conf
func FromConfig(cfg config.Conf) Options {
	af := cfg.Prefix("AUTH_")
	return Options{
		JWTSecret:     af.MustString("JWT_SECRET"),
		AccessTTL:     af.MayDuration("ACCESS_TTL", time.Hour),
		RefreshTTL:    af.MayDuration("REFRESH_TTL", 30*24*time.Hour),
		ResetTTL:      af.MayDuration("RESET_TTL", time.Hour),
		PolicyVersion: af.MayString("POLICY_VERSION", "1.0"),

		ConsentSalt:    cfg.MustString("CONSENT_HASH_SALT"),
		GoogleAudience: cfg.MayString("GOOGLE_OAUTH_AUDIENCE", ""),

		LoginAttempts: af.MayInt("LOGIN_ATTEMPTS", 5),
		LoginWindow:   af.MayDuration("LOGIN_WINDOW", 15*time.Minute),
		ResetRequests: af.MayInt("RESET_REQUESTS", 3),
		ResetWindow:   af.MayDuration("RESET_WINDOW", time.Hour),
	}
}
