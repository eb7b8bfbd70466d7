package module

import (
	"pursue/internal/platform/net/middleware"
	"pursue/internal/services/discover/domain"
)

// Options carries the discover module dependencies. A nil Embedder
// keeps the ranker trigram-only
type Options struct {
	Auth     middleware.AuthPort
	Embedder domain.EmbedderPort
}
