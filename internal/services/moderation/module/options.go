package module

import (
	"time"

	"pursue/internal/platform/config"
	"pursue/internal/platform/net/middleware"
	"pursue/internal/services/moderation/domain"
)

// Options carries the moderation module's collaborators and the safety
// vendor settings. An empty ScreenBaseURL disables vendor screening.
type Options struct {
	Auth   middleware.AuthPort
	Guards domain.GroupGuardPort

	ScreenBaseURL string
	ScreenAPIKey  string
	ScreenTimeout time.Duration
}

// FromConfig reads the vendor settings from the environment
func FromConfig(cfg config.Conf) Options {
	sc := cfg.Prefix("SCREEN_")
	return Options{
		ScreenBaseURL: sc.MayString("BASE_URL", ""),
		ScreenAPIKey:  sc.MayString("API_KEY", ""),
		ScreenTimeout: sc.MayDuration("TIMEOUT", 10*time.Second),
	}
}
