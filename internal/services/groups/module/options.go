package module

import (
	"pursue/internal/platform/net/middleware"
	"pursue/internal/services/groups/domain"
)

// Options carries the cross-module ports the groups module runs on.
// Notifier may be nil, which drops membership pushes; a nil Embedder
// skips search-embedding refreshes. Uploads is the shared image-upload
// limiter; nil disables rate limiting
type Options struct {
	Auth         middleware.AuthPort
	Entitlements domain.EntitlementsPort
	Notifier     domain.NotifierPort
	Embedder     domain.EmbedderPort
	Uploads      *middleware.RateLimiter
}
