package module

import (
	authdomain "pursue/internal/services/auth/domain"
	"pursue/internal/services/users/domain"

	"pursue/internal/platform/net/middleware"
)

// Options carries the cross-module ports the users module runs on.
// Uploads is the shared image-upload limiter; nil disables rate limiting
type Options struct {
	Auth        middleware.AuthPort
	Accounts    authdomain.AccountsPort
	Memberships domain.MembershipsPort
	Uploads     *middleware.RateLimiter
}
