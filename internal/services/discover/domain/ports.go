package domain

import (
	"context"

	"github.com/pgvector/pgvector-go"
)

// ServicePort is the discover surface plus the embedding refresh hook
// the group-writing modules call post-commit
type ServicePort interface {
	Search(ctx context.Context, in SearchInput) (Page, error)
	PublicDetail(ctx context.Context, groupID string) (PublicDetail, error)
	Suggestions(ctx context.Context, q string) ([]string, error)
	RefreshGroup(ctx context.Context, groupID string) error
}

// EmbedderPort is the semantic-vector vendor. The embeddings adapter
// satisfies it; a disabled adapter keeps search trigram-only
type EmbedderPort interface {
	Enabled() bool
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchParams drive the ranked query. QueryVec is nil whenever no
// embedding could be obtained; the blend then collapses to trigram
type SearchParams struct {
	Q          string
	Language   string
	Categories []string
	QueryVec   *pgvector.Vector
	After      *PageKey
	Limit      int
}

// BrowseParams drive the query-less listing
type BrowseParams struct {
	Sort       string
	Language   string
	Categories []string
	After      *PageKey
	Limit      int
}

// Storage is the read surface over public groups plus the embedding
// write
type Storage interface {
	Search(ctx context.Context, p SearchParams) ([]Row, error)
	Browse(ctx context.Context, p BrowseParams) ([]Row, error)
	PublicByID(ctx context.Context, groupID string) (PublicRow, bool, error)
	Suggest(ctx context.Context, q string, limit int) ([]string, error)

	// SearchDoc assembles the text a group is embedded from
	SearchDoc(ctx context.Context, groupID string) (string, bool, error)
	SetEmbedding(ctx context.Context, groupID string, vec pgvector.Vector) error
}
