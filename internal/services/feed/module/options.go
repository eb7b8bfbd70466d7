package module

import (
	"pursue/internal/platform/net/middleware"
	"pursue/internal/services/feed/domain"
)

// Options carries the feed module's collaborators. Notifier may be nil
// until the notifications module is wired; reaction pushes are then
// dropped
type Options struct {
	Auth     middleware.AuthPort
	Guards   domain.GroupGuardPort
	Photos   domain.ObjectStorePort
	Notifier domain.NotifierPort
}
