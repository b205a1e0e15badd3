package repositories

import (
	"context"

	"github.com/cartillasalud/backend/internal/domain/entities"
)

// CatalogRepository persists the simple lookup entities described by a
// Descriptor (plans, categories, specialties, provinces, localities).
type CatalogRepository interface {
	List(ctx context.Context, q Queryer, d entities.Descriptor) ([]*entities.CatalogEntry, error)
	GetByID(ctx context.Context, q Queryer, d entities.Descriptor, id string) (*entities.CatalogEntry, error)
	Insert(ctx context.Context, q Queryer, d entities.Descriptor, entry *entities.CatalogEntry) error
	Update(ctx context.Context, q Queryer, d entities.Descriptor, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, q Queryer, d entities.Descriptor, id string) error

	// CountByField counts rows whose column equals value, excluding excludeID
	// when non-empty. Used for uniqueness checks.
	CountByField(ctx context.Context, q Queryer, d entities.Descriptor, field, value, excludeID string) (int, error)

	// ReferenceCount counts rows in the descriptor's reference table that
	// still point at the entity. A non-zero count blocks deletion.
	ReferenceCount(ctx context.Context, q Queryer, d entities.Descriptor, id string) (int, error)

	// NamesByIDs resolves ids to display names. Every id must resolve.
	NamesByIDs(ctx context.Context, q Queryer, d entities.Descriptor, ids []string) (map[string]string, error)
}
