package repositories

import (
	"context"

	"github.com/cartillasalud/backend/internal/domain/entities"
)

// Relation identifies one of the provider's many-to-many dimensions
type Relation string

const (
	RelationPlans       Relation = "plans"
	RelationCategories  Relation = "categories"
	RelationSpecialties Relation = "specialties"
)

// ProviderRepository persists providers, their link tables and registrations
type ProviderRepository interface {
	Create(ctx context.Context, q Queryer, provider *entities.Provider) error
	GetByID(ctx context.Context, q Queryer, id string) (*entities.Provider, error)
	GetByName(ctx context.Context, q Queryer, name string) (*entities.Provider, error)
	UpdateFields(ctx context.Context, q Queryer, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, q Queryer, id string) error

	// ReplaceLinks deletes every link row of the given relation for the
	// provider and inserts the full new set (full-replace, no diffing).
	ReplaceLinks(ctx context.Context, q Queryer, providerID string, rel Relation, ids []string) error
	LinkedIDs(ctx context.Context, q Queryer, providerID string, rel Relation) ([]string, error)

	// ReplaceRegistrations deletes every registration for the provider and
	// inserts the supplied set.
	ReplaceRegistrations(ctx context.Context, q Queryer, providerID string, regs []*entities.Registration) error

	// LocalityNames resolves a locality id to its name and its province name
	LocalityNames(ctx context.Context, q Queryer, localityID string) (locality, province string, err error)
}
