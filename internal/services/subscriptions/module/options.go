package module

import (
	"time"

	"pursue/internal/platform/config"
	"pursue/internal/platform/net/middleware"
)

// Options configure the subscriptions module
type Options struct {
	// Auth guards every subscription endpoint
	Auth middleware.AuthPort

	VerifierBaseURL string
	VerifierAPIKey  string
	VerifierTimeout time.Duration
}

// FromConfig reads the module options from the environment
func FromConfig(cfg config.Conf) Options {
	rc := cfg.Prefix("RECEIPTS_")
	return Options{
		VerifierBaseURL: rc.MayString("BASE_URL", ""),
		VerifierAPIKey:  rc.MayString("API_KEY", ""),
		VerifierTimeout: rc.MayDuration("TIMEOUT", 10*time.Second),
	}
}
