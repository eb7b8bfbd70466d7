package module

import (
	"pursue/internal/platform/net/middleware"
	"pursue/internal/services/goals/domain"
)

// Options carries the cross-module ports the goals module runs on.
// Progress limits POST /progress and Uploads limits photo upload, both
// per user; either may be nil, which disables that limit
type Options struct {
	Auth     middleware.AuthPort
	Groups   domain.GroupGuardPort
	Writes   domain.WriteGuardPort
	Photos   domain.ObjectStorePort
	Progress *middleware.RateLimiter
	Uploads  *middleware.RateLimiter
}
