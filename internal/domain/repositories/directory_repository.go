package repositories

import (
	"context"

	"github.com/cartillasalud/backend/internal/domain/entities"
)

// DirectoryFilter narrows directory reads. Zero values mean "no filter".
type DirectoryFilter struct {
	Provider  string
	Plan      string
	Specialty string
	Province  string
	Locality  string
	Category  string
	Status    *entities.Status
	Limit     int
	Offset    int
}

// DirectoryRepository persists the denormalized directory table and performs
// the cascade and regeneration statements that keep it consistent with the
// normalized tables.
type DirectoryRepository interface {
	Truncate(ctx context.Context, q Queryer) error
	InsertBatch(ctx context.Context, q Queryer, entries []*entities.DirectoryEntry) error
	DeleteByProvider(ctx context.Context, q Queryer, providerID string) error
	EntriesByProvider(ctx context.Context, q Queryer, providerID string) ([]*entities.DirectoryEntry, error)

	// UpdateByProvider applies already-translated directory column values to
	// every entry of the provider.
	UpdateByProvider(ctx context.Context, q Queryer, providerID string, fields map[string]interface{}) error

	// RenameDimension rewrites a denormalized name column from oldName to
	// newName. Row cardinality is never changed by a rename.
	RenameDimension(ctx context.Context, q Queryer, column, oldName, newName string) error

	// SetStatusByDimension flips the status on every entry whose denormalized
	// column equals name.
	SetStatusByDimension(ctx context.Context, q Queryer, column, name string, status entities.Status) error

	// RecomputeCategoryNames rebuilds the comma-joined category_names string
	// from the link tables for every provider linked to the category.
	RecomputeCategoryNames(ctx context.Context, q Queryer, categoryID string) error

	// Regenerate reconciles the normalized tables against the distinct values
	// present in the directory: missing plans, categories, specialties,
	// provinces, localities and providers are inserted, link tables and
	// registrations are rebuilt, and directory rows are backfilled with the
	// resolved provider and registration ids.
	Regenerate(ctx context.Context, q Queryer) error

	// List returns one page of entries plus the total count over the whole
	// filtered set.
	List(ctx context.Context, q Queryer, filter DirectoryFilter) ([]*entities.DirectoryEntry, int, error)

	// ForEach streams every entry to fn in a stable order without
	// materializing the full table.
	ForEach(ctx context.Context, q Queryer, fn func(*entities.DirectoryEntry) error) error
}
