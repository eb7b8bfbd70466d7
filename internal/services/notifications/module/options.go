package module

import (
	"time"

	"pursue/internal/platform/config"
	"pursue/internal/platform/net/middleware"
	"pursue/internal/services/notifications/domain"
)

// Options carries the notifications module's collaborators and the
// push vendor settings. An empty PushBaseURL disables delivery;
// notifications then stop at the inbox
type Options struct {
	Auth   middleware.AuthPort
	Guards domain.GroupGuardPort

	PushBaseURL   string
	PushServerKey string
	PushTimeout   time.Duration
}

// FromConfig reads the vendor settings from the environment
func FromConfig(cfg config.Conf) Options {
	pc := cfg.Prefix("PUSH_")
	return Options{
		PushBaseURL:   pc.MayString("BASE_URL", ""),
		PushServerKey: pc.MayString("SERVER_KEY", ""),
		PushTimeout:   pc.MayDuration("TIMEOUT", 5*time.Second),
	}
}
