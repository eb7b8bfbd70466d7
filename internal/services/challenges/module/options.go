package module

import (
	"pursue/internal/platform/net/middleware"
	"pursue/internal/services/challenges/domain"
)

// Options carries the challenges module dependencies
type Options struct {
	Auth         middleware.AuthPort
	Guards       domain.GroupGuardPort
	Entitlements domain.EntitlementsPort

	// Notifier may be nil until the notifications module is wired; a
	// nil Embedder skips search-embedding refreshes
	Notifier domain.NotifierPort
	Embedder domain.EmbedderPort
}
