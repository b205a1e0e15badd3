package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cartillasalud/backend/internal/domain/entities"
	"github.com/cartillasalud/backend/internal/domain/providers"
	"github.com/cartillasalud/backend/internal/domain/repositories"
	"github.com/cartillasalud/backend/internal/infrastructure/observability"
	apperrors "github.com/cartillasalud/backend/pkg/errors"
)

// maxNameLength bounds every catalog text field
const maxNameLength = 255

// CatalogInput carries the settable fields of a catalog entity. ProvinceID is
// only meaningful for localities.
type CatalogInput struct {
	Name       string `json:"name"`
	ProvinceID string `json:"province_id,omitempty"`
}

// CatalogService implements CRUD over the closed set of catalog entities
// (plans, categories, specialties, provinces, localities), driven entirely by
// their descriptors. Renames and status changes cascade into the directory
// table inside the same transaction.
type CatalogService struct {
	store          repositories.Store
	catalogRepo    repositories.CatalogRepository
	directoryRepo  repositories.DirectoryRepository
	auditPublisher providers.AuditPublisher
	metrics        *observability.Metrics
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	store repositories.Store,
	catalogRepo repositories.CatalogRepository,
	directoryRepo repositories.DirectoryRepository,
	auditPublisher providers.AuditPublisher,
	metrics *observability.Metrics,
) *CatalogService {
	return &CatalogService{
		store:          store,
		catalogRepo:    catalogRepo,
		directoryRepo:  directoryRepo,
		auditPublisher: auditPublisher,
		metrics:        metrics,
	}
}

func descriptorFor(kind entities.EntityKind) (entities.Descriptor, error) {
	d, ok := entities.DescriptorFor(kind)
	if !ok {
		return entities.Descriptor{}, apperrors.NewValidationError("unknown entity kind: " + string(kind))
	}
	return d, nil
}

func (s *CatalogService) validateInput(ctx context.Context, q repositories.Queryer, d entities.Descriptor, input CatalogInput, excludeID string) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return apperrors.NewValidationError(fmt.Sprintf("%s name is required", d.Kind))
	}
	if len(input.Name) > maxNameLength {
		return apperrors.NewValidationError(fmt.Sprintf("%s name exceeds %d characters", d.Kind, maxNameLength))
	}

	for _, required := range d.Required {
		if required == "province_id" && input.ProvinceID == "" {
			return apperrors.NewValidationError("province_id is required")
		}
	}

	if input.ProvinceID != "" {
		if _, err := uuid.Parse(input.ProvinceID); err != nil {
			return apperrors.NewValidationError("province_id is not a valid id")
		}
		provinceDesc, _ := entities.DescriptorFor(entities.KindProvince)
		if _, err := s.catalogRepo.GetByID(ctx, q, provinceDesc, input.ProvinceID); err != nil {
			return err
		}
	}

	for _, unique := range d.Unique {
		if unique != d.NameColumn {
			continue
		}
		count, err := s.catalogRepo.CountByField(ctx, q, d, d.NameColumn, input.Name, excludeID)
		if err != nil {
			return err
		}
		if count > 0 {
			return apperrors.NewConflictError(fmt.Sprintf("%s already exists: %s", d.Kind, input.Name))
		}
	}
	return nil
}

// List returns every entity of the kind ordered by name
func (s *CatalogService) List(ctx context.Context, kind entities.EntityKind) ([]*entities.CatalogEntry, error) {
	d, err := descriptorFor(kind)
	if err != nil {
		return nil, err
	}
	return s.catalogRepo.List(ctx, s.store.Queryer(), d)
}

// Get returns one entity by id
func (s *CatalogService) Get(ctx context.Context, kind entities.EntityKind, id string) (*entities.CatalogEntry, error) {
	d, err := descriptorFor(kind)
	if err != nil {
		return nil, err
	}
	return s.catalogRepo.GetByID(ctx, s.store.Queryer(), d, id)
}

// Create validates and inserts a new entity
func (s *CatalogService) Create(ctx context.Context, kind entities.EntityKind, input CatalogInput) (*entities.CatalogEntry, error) {
	d, err := descriptorFor(kind)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entry := &entities.CatalogEntry{
		ID:         uuid.New().String(),
		Name:       strings.TrimSpace(input.Name),
		ProvinceID: input.ProvinceID,
		Status:     entities.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.store.RunInTx(ctx, func(q repositories.Queryer) error {
		if err := s.validateInput(ctx, q, d, input, ""); err != nil {
			return err
		}
		return s.catalogRepo.Insert(ctx, q, d, entry)
	})
	if err != nil {
		return nil, err
	}

	s.publishAudit(ctx, entities.AuditActionCreate, d, entry.ID, entry.Name)
	return entry, nil
}

// Update renames an entity and cascades the new name into every directory
// entry that denormalizes it
func (s *CatalogService) Update(ctx context.Context, kind entities.EntityKind, id string, input CatalogInput) (*entities.CatalogEntry, error) {
	d, err := descriptorFor(kind)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var entry *entities.CatalogEntry

	err = s.store.RunInTx(ctx, func(q repositories.Queryer) error {
		var err error
		entry, err = s.catalogRepo.GetByID(ctx, q, d, id)
		if err != nil {
			return err
		}

		if err := s.validateInput(ctx, q, d, input, id); err != nil {
			return err
		}

		newName := strings.TrimSpace(input.Name)
		oldName := entry.Name

		fields := map[string]interface{}{d.NameColumn: newName}
		if input.ProvinceID != "" && d.Kind == entities.KindLocality {
			fields["province_id"] = input.ProvinceID
			entry.ProvinceID = input.ProvinceID
		}
		if err := s.catalogRepo.Update(ctx, q, d, id, fields); err != nil {
			return err
		}
		entry.Name = newName

		if oldName == newName || d.DirectoryColumn == "" {
			return nil
		}
		if d.JoinedNames {
			return s.directoryRepo.RecomputeCategoryNames(ctx, q, id)
		}
		return s.directoryRepo.RenameDimension(ctx, q, d.DirectoryColumn, oldName, newName)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.CascadeDuration.Record(ctx, float64(time.Since(start).Milliseconds()))
	}

	s.publishAudit(ctx, entities.AuditActionUpdate, d, id, entry.Name)
	return entry, nil
}

// ToggleStatus flips an entity's status and cascades it to every directory
// entry carrying the entity's name. Joined columns are skipped because a
// directory row's status belongs to its provider and plan pair, not to one
// category among several.
func (s *CatalogService) ToggleStatus(ctx context.Context, kind entities.EntityKind, id string) (*entities.CatalogEntry, error) {
	d, err := descriptorFor(kind)
	if err != nil {
		return nil, err
	}

	var entry *entities.CatalogEntry
	err = s.store.RunInTx(ctx, func(q repositories.Queryer) error {
		var err error
		entry, err = s.catalogRepo.GetByID(ctx, q, d, id)
		if err != nil {
			return err
		}

		entry.Status = entry.Status.Toggle()
		if err := s.catalogRepo.Update(ctx, q, d, id, map[string]interface{}{"status": entry.Status}); err != nil {
			return err
		}

		if d.DirectoryColumn == "" || d.JoinedNames {
			return nil
		}
		return s.directoryRepo.SetStatusByDimension(ctx, q, d.DirectoryColumn, entry.Name, entry.Status)
	})
	if err != nil {
		return nil, err
	}

	s.publishAudit(ctx, entities.AuditActionToggleStatus, d, id, entry.Name)
	return entry, nil
}

// Delete removes an entity unless something still references it
func (s *CatalogService) Delete(ctx context.Context, kind entities.EntityKind, id string) error {
	d, err := descriptorFor(kind)
	if err != nil {
		return err
	}

	err = s.store.RunInTx(ctx, func(q repositories.Queryer) error {
		refs, err := s.catalogRepo.ReferenceCount(ctx, q, d, id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return apperrors.NewConflictError(
				fmt.Sprintf("%s is still referenced by %d %s row(s)", d.Kind, refs, d.RefTable))
		}
		return s.catalogRepo.Delete(ctx, q, d, id)
	})
	if err != nil {
		return err
	}

	s.publishAudit(ctx, entities.AuditActionDelete, d, id, "")
	return nil
}

func (s *CatalogService) publishAudit(ctx context.Context, action entities.AuditAction, d entities.Descriptor, id, name string) {
	if s.auditPublisher == nil {
		return
	}
	event := &entities.AuditEvent{
		Action:     action,
		EntityType: string(d.Kind),
		EntityIDs:  []string{id},
	}
	if name != "" {
		event.Summary = map[string]string{"name": name}
	}
	if err := s.auditPublisher.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("kind", string(d.Kind)).Msg("failed to publish catalog audit event")
	}
}
