package repositories

import (
	"context"

	"github.com/cartillasalud/backend/internal/domain/entities"
)

// DirectorySearchRepository indexes directory entries in a search engine.
// Indexing is best-effort: callers log failures and never roll back the
// originating write.
type DirectorySearchRepository interface {
	InitSchema(ctx context.Context) error
	IndexBatch(ctx context.Context, entries []*entities.DirectoryEntry) error
	DeleteByProvider(ctx context.Context, providerID string) error
	Search(ctx context.Context, filter DirectoryFilter) ([]*entities.DirectoryEntry, int, error)
}
