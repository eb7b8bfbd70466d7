package module

import (
	"pursue/internal/platform/config"
	"pursue/internal/services/jobs/domain"
)

// Options carries the scheduler key and the module ports the jobs drive
type Options struct {
	Key string

	Challenges    domain.ChallengePort
	Heat          domain.HeatPort
	Subscriptions domain.SubscriptionPort
	Reminders     domain.ReminderPort
	Recap         domain.RecapNotifier
}

// FromConfig reads the scheduler key from the environment. An empty key
// leaves the endpoints mounted but rejecting.
func FromConfig(cfg config.Conf) Options {
	return Options{Key: cfg.MayString("JOBS_KEY", "")}
}
