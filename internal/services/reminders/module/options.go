package module

import (
	"pursue/internal/platform/net/middleware"
	"pursue/internal/services/reminders/domain"
)

// Options carries the reminders module's collaborators. A nil Notifier
// records dispatches without delivering them.
type Options struct {
	Auth     middleware.AuthPort
	Guards   domain.GroupGuardPort
	Notifier domain.NotifierPort
}
