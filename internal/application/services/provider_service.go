package services

import (
	"context"
	"sort"
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

// CreateProviderInput carries a new provider with its relation id sets.
// Registrations and directory entries are derived from the plan and specialty
// sets, one per plan and specialty pair.
type CreateProviderInput struct {
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	Phones       string   `json:"phones"`
	Email        string   `json:"email"`
	ExtraInfo    string   `json:"extra_info"`
	LocalityID   string   `json:"locality_id"`
	Status       string   `json:"status"`
	PlanIDs      []string `json:"plan_ids"`
	CategoryIDs  []string `json:"category_ids"`
	SpecialtyIDs []string `json:"specialty_ids"`
}

// UpdateProviderInput carries a partial provider update. Nil pointers and nil
// slices leave the corresponding value untouched; a non-nil slice replaces
// the full relation set.
type UpdateProviderInput struct {
	Name         *string  `json:"name,omitempty"`
	Address      *string  `json:"address,omitempty"`
	Phones       *string  `json:"phones,omitempty"`
	Email        *string  `json:"email,omitempty"`
	ExtraInfo    *string  `json:"extra_info,omitempty"`
	LocalityID   *string  `json:"locality_id,omitempty"`
	Status       *string  `json:"status,omitempty"`
	PlanIDs      []string `json:"plan_ids,omitempty"`
	CategoryIDs  []string `json:"category_ids,omitempty"`
	SpecialtyIDs []string `json:"specialty_ids,omitempty"`
}

// RegistrationSummary is one created registration with its dimensions
// resolved to names
type RegistrationSummary struct {
	ID         string `json:"id"`
	ProviderID string `json:"provider_id"`
	Plan       string `json:"plan"`
	Specialty  string `json:"specialty"`
}

// CreateProviderResult reports a provider creation: the resolved provider
// plus every registration derived from its plan and specialty sets.
type CreateProviderResult struct {
	Provider      *entities.ResolvedProvider `json:"provider"`
	Registrations []RegistrationSummary      `json:"registrations"`
	Total         int                        `json:"total"`
}

// ProviderService owns provider writes and keeps the directory table
// consistent with them. Every write runs the normalized change and its
// directory cascade in one transaction.
type ProviderService struct {
	store          repositories.Store
	providerRepo   repositories.ProviderRepository
	catalogRepo    repositories.CatalogRepository
	directoryRepo  repositories.DirectoryRepository
	searchRepo     repositories.DirectorySearchRepository
	auditPublisher providers.AuditPublisher
	metrics        *observability.Metrics
}

// NewProviderService creates a new provider service
func NewProviderService(
	store repositories.Store,
	providerRepo repositories.ProviderRepository,
	catalogRepo repositories.CatalogRepository,
	directoryRepo repositories.DirectoryRepository,
	searchRepo repositories.DirectorySearchRepository,
	auditPublisher providers.AuditPublisher,
	metrics *observability.Metrics,
) *ProviderService {
	return &ProviderService{
		store:          store,
		providerRepo:   providerRepo,
		catalogRepo:    catalogRepo,
		directoryRepo:  directoryRepo,
		searchRepo:     searchRepo,
		auditPublisher: auditPublisher,
		metrics:        metrics,
	}
}

// resolvedNames holds every display name a provider's directory entries need
type resolvedNames struct {
	plans       map[string]string
	specialties map[string]string
	categories  map[string]string
	locality    string
	province    string
}

func (s *ProviderService) resolveNames(ctx context.Context, q repositories.Queryer, planIDs, specialtyIDs, categoryIDs []string, localityID string) (*resolvedNames, error) {
	planDesc, _ := entities.DescriptorFor(entities.KindPlan)
	specialtyDesc, _ := entities.DescriptorFor(entities.KindSpecialty)
	categoryDesc, _ := entities.DescriptorFor(entities.KindCategory)

	names := &resolvedNames{}
	var err error

	if names.plans, err = s.catalogRepo.NamesByIDs(ctx, q, planDesc, planIDs); err != nil {
		return nil, err
	}
	if names.specialties, err = s.catalogRepo.NamesByIDs(ctx, q, specialtyDesc, specialtyIDs); err != nil {
		return nil, err
	}
	if names.categories, err = s.catalogRepo.NamesByIDs(ctx, q, categoryDesc, categoryIDs); err != nil {
		return nil, err
	}
	if localityID != "" {
		if names.locality, names.province, err = s.providerRepo.LocalityNames(ctx, q, localityID); err != nil {
			return nil, err
		}
	}
	return names, nil
}

// joinedCategoryNames returns the sorted, comma-joined category names
func joinedCategoryNames(names map[string]string) string {
	list := make([]string, 0, len(names))
	for _, name := range names {
		list = append(list, name)
	}
	sort.Strings(list)
	return strings.Join(list, ", ")
}

func sortedValues(names map[string]string, ids []string) []string {
	list := make([]string, 0, len(ids))
	for _, id := range ids {
		list = append(list, names[id])
	}
	sort.Strings(list)
	return list
}

// buildRegistrations derives one registration per plan and specialty pair
func buildRegistrations(providerID string, planIDs, specialtyIDs []string) []*entities.Registration {
	now := time.Now()
	regs := make([]*entities.Registration, 0, len(planIDs)*len(specialtyIDs))
	for _, planID := range planIDs {
		for _, specialtyID := range specialtyIDs {
			regs = append(regs, &entities.Registration{
				ID:          uuid.New().String(),
				ProviderID:  providerID,
				PlanID:      planID,
				SpecialtyID: specialtyID,
				CreatedAt:   now,
			})
		}
	}
	return regs
}

// buildDirectoryEntries derives one directory entry per registration
func buildDirectoryEntries(provider *entities.Provider, regs []*entities.Registration, names *resolvedNames) []*entities.DirectoryEntry {
	now := time.Now()
	categories := joinedCategoryNames(names.categories)

	entries := make([]*entities.DirectoryEntry, 0, len(regs))
	for _, reg := range regs {
		entries = append(entries, &entities.DirectoryEntry{
			ID:             uuid.New().String(),
			RegistrationID: reg.ID,
			ProviderID:     provider.ID,
			ProviderName:   provider.Name,
			Address:        provider.Address,
			Phones:         provider.Phones,
			Email:          provider.Email,
			ExtraInfo:      provider.ExtraInfo,
			LocalityName:   names.locality,
			ProvinceName:   names.province,
			CategoryNames:  categories,
			SpecialtyName:  names.specialties[reg.SpecialtyID],
			PlanName:       names.plans[reg.PlanID],
			Status:         provider.Status,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	return entries
}

// registrationSummaries resolves the created registrations to names
func registrationSummaries(regs []*entities.Registration, names *resolvedNames) []RegistrationSummary {
	out := make([]RegistrationSummary, 0, len(regs))
	for _, reg := range regs {
		out = append(out, RegistrationSummary{
			ID:         reg.ID,
			ProviderID: reg.ProviderID,
			Plan:       names.plans[reg.PlanID],
			Specialty:  names.specialties[reg.SpecialtyID],
		})
	}
	return out
}

// Create creates a provider with its relations, registrations and directory
// entries in one transaction
func (s *ProviderService) Create(ctx context.Context, input CreateProviderInput) (*CreateProviderResult, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, apperrors.NewValidationError("provider name is required")
	}
	if len(input.PlanIDs) == 0 {
		return nil, apperrors.NewValidationError("at least one plan is required")
	}
	if len(input.SpecialtyIDs) == 0 {
		return nil, apperrors.NewValidationError("at least one specialty is required")
	}

	status := entities.StatusActive
	if input.Status != "" {
		parsed, ok := entities.ParseStatus(input.Status)
		if !ok {
			return nil, apperrors.NewValidationError("invalid status: " + input.Status)
		}
		status = parsed
	}

	now := time.Now()
	provider := &entities.Provider{
		ID:         uuid.New().String(),
		Name:       input.Name,
		Address:    input.Address,
		Phones:     input.Phones,
		Email:      input.Email,
		ExtraInfo:  input.ExtraInfo,
		LocalityID: input.LocalityID,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var names *resolvedNames
	var regs []*entities.Registration
	var entries []*entities.DirectoryEntry

	err := s.store.RunInTx(ctx, func(q repositories.Queryer) error {
		existing, err := s.providerRepo.GetByName(ctx, q, input.Name)
		if err != nil && !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return err
		}
		if existing != nil {
			return apperrors.NewConflictError("provider already exists: " + input.Name)
		}

		if names, err = s.resolveNames(ctx, q, input.PlanIDs, input.SpecialtyIDs, input.CategoryIDs, input.LocalityID); err != nil {
			return err
		}

		if err := s.providerRepo.Create(ctx, q, provider); err != nil {
			return err
		}
		if err := s.providerRepo.ReplaceLinks(ctx, q, provider.ID, repositories.RelationPlans, input.PlanIDs); err != nil {
			return err
		}
		if err := s.providerRepo.ReplaceLinks(ctx, q, provider.ID, repositories.RelationCategories, input.CategoryIDs); err != nil {
			return err
		}
		if err := s.providerRepo.ReplaceLinks(ctx, q, provider.ID, repositories.RelationSpecialties, input.SpecialtyIDs); err != nil {
			return err
		}

		regs = buildRegistrations(provider.ID, input.PlanIDs, input.SpecialtyIDs)
		if err := s.providerRepo.ReplaceRegistrations(ctx, q, provider.ID, regs); err != nil {
			return err
		}

		entries = buildDirectoryEntries(provider, regs, names)
		return s.directoryRepo.InsertBatch(ctx, q, entries)
	})
	if err != nil {
		return nil, err
	}

	s.indexEntries(ctx, provider.ID, entries)
	s.publishAudit(ctx, entities.AuditActionCreate, provider.ID, map[string]string{"name": provider.Name})

	return &CreateProviderResult{
		Provider: &entities.ResolvedProvider{
			Provider:    *provider,
			Plans:       sortedValues(names.plans, input.PlanIDs),
			Categories:  sortedValues(names.categories, input.CategoryIDs),
			Specialties: sortedValues(names.specialties, input.SpecialtyIDs),
			Locality:    names.locality,
			Province:    names.province,
		},
		Registrations: registrationSummaries(regs, names),
		Total:         len(regs),
	}, nil
}

// directoryScalarFields maps provider scalar changes to directory columns
func directoryScalarFields(input UpdateProviderInput) map[string]interface{} {
	fields := map[string]interface{}{}
	if input.Name != nil {
		fields["provider_name"] = *input.Name
	}
	if input.Address != nil {
		fields["address"] = *input.Address
	}
	if input.Phones != nil {
		fields["phones"] = *input.Phones
	}
	if input.Email != nil {
		fields["email"] = *input.Email
	}
	if input.ExtraInfo != nil {
		fields["extra_info"] = *input.ExtraInfo
	}
	return fields
}

// Update applies a partial update to the provider and cascades it into the
// directory. A change to the plan or specialty set rebuilds the provider's
// registrations and directory entries; scalar changes are rewritten in place
// so row cardinality never drifts.
func (s *ProviderService) Update(ctx context.Context, id string, input UpdateProviderInput) (*entities.ResolvedProvider, error) {
	start := time.Now()

	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		if trimmed == "" {
			return nil, apperrors.NewValidationError("provider name cannot be empty")
		}
		input.Name = &trimmed
	}

	var status *entities.Status
	if input.Status != nil {
		parsed, ok := entities.ParseStatus(*input.Status)
		if !ok {
			return nil, apperrors.NewValidationError("invalid status: " + *input.Status)
		}
		status = &parsed
	}

	var resolved *entities.ResolvedProvider
	var entries []*entities.DirectoryEntry
	rebuild := input.PlanIDs != nil || input.SpecialtyIDs != nil

	err := s.store.RunInTx(ctx, func(q repositories.Queryer) error {
		provider, err := s.providerRepo.GetByID(ctx, q, id)
		if err != nil {
			return err
		}

		if input.Name != nil && *input.Name != provider.Name {
			existing, err := s.providerRepo.GetByName(ctx, q, *input.Name)
			if err != nil && !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
				return err
			}
			if existing != nil && existing.ID != id {
				return apperrors.NewConflictError("provider already exists: " + *input.Name)
			}
		}

		providerFields := map[string]interface{}{}
		if input.Name != nil {
			providerFields["name"] = *input.Name
			provider.Name = *input.Name
		}
		if input.Address != nil {
			providerFields["address"] = *input.Address
			provider.Address = *input.Address
		}
		if input.Phones != nil {
			providerFields["phones"] = *input.Phones
			provider.Phones = *input.Phones
		}
		if input.Email != nil {
			providerFields["email"] = *input.Email
			provider.Email = *input.Email
		}
		if input.ExtraInfo != nil {
			providerFields["extra_info"] = *input.ExtraInfo
			provider.ExtraInfo = *input.ExtraInfo
		}
		if input.LocalityID != nil {
			providerFields["locality_id"] = *input.LocalityID
			provider.LocalityID = *input.LocalityID
		}
		if status != nil {
			providerFields["status"] = *status
			provider.Status = *status
		}
		if len(providerFields) > 0 {
			if err := s.providerRepo.UpdateFields(ctx, q, id, providerFields); err != nil {
				return err
			}
		}

		if input.PlanIDs != nil {
			if err := s.providerRepo.ReplaceLinks(ctx, q, id, repositories.RelationPlans, input.PlanIDs); err != nil {
				return err
			}
		}
		if input.CategoryIDs != nil {
			if err := s.providerRepo.ReplaceLinks(ctx, q, id, repositories.RelationCategories, input.CategoryIDs); err != nil {
				return err
			}
		}
		if input.SpecialtyIDs != nil {
			if err := s.providerRepo.ReplaceLinks(ctx, q, id, repositories.RelationSpecialties, input.SpecialtyIDs); err != nil {
				return err
			}
		}

		planIDs, err := s.providerRepo.LinkedIDs(ctx, q, id, repositories.RelationPlans)
		if err != nil {
			return err
		}
		categoryIDs, err := s.providerRepo.LinkedIDs(ctx, q, id, repositories.RelationCategories)
		if err != nil {
			return err
		}
		specialtyIDs, err := s.providerRepo.LinkedIDs(ctx, q, id, repositories.RelationSpecialties)
		if err != nil {
			return err
		}

		names, err := s.resolveNames(ctx, q, planIDs, specialtyIDs, categoryIDs, provider.LocalityID)
		if err != nil {
			return err
		}

		if rebuild {
			regs := buildRegistrations(id, planIDs, specialtyIDs)
			if err := s.providerRepo.ReplaceRegistrations(ctx, q, id, regs); err != nil {
				return err
			}
			if err := s.directoryRepo.DeleteByProvider(ctx, q, id); err != nil {
				return err
			}
			entries = buildDirectoryEntries(provider, regs, names)
			if err := s.directoryRepo.InsertBatch(ctx, q, entries); err != nil {
				return err
			}
		} else {
			directoryFields := directoryScalarFields(input)
			if status != nil {
				directoryFields["status"] = *status
			}
			if input.LocalityID != nil {
				directoryFields["locality_name"] = names.locality
				directoryFields["province_name"] = names.province
			}
			if input.CategoryIDs != nil {
				directoryFields["category_names"] = joinedCategoryNames(names.categories)
			}
			if err := s.directoryRepo.UpdateByProvider(ctx, q, id, directoryFields); err != nil {
				return err
			}
			if entries, err = s.directoryRepo.EntriesByProvider(ctx, q, id); err != nil {
				return err
			}
		}

		resolved = &entities.ResolvedProvider{
			Provider:    *provider,
			Plans:       sortedValues(names.plans, planIDs),
			Categories:  sortedValues(names.categories, categoryIDs),
			Specialties: sortedValues(names.specialties, specialtyIDs),
			Locality:    names.locality,
			Province:    names.province,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.CascadeDuration.Record(ctx, float64(time.Since(start).Milliseconds()))
	}

	if rebuild {
		s.removeFromIndex(ctx, id)
	}
	s.indexEntries(ctx, id, entries)
	s.publishAudit(ctx, entities.AuditActionUpdate, id, map[string]string{"name": resolved.Name})

	return resolved, nil
}

// Get returns a provider with its relations resolved to names
func (s *ProviderService) Get(ctx context.Context, id string) (*entities.ResolvedProvider, error) {
	q := s.store.Queryer()

	provider, err := s.providerRepo.GetByID(ctx, q, id)
	if err != nil {
		return nil, err
	}

	planIDs, err := s.providerRepo.LinkedIDs(ctx, q, id, repositories.RelationPlans)
	if err != nil {
		return nil, err
	}
	categoryIDs, err := s.providerRepo.LinkedIDs(ctx, q, id, repositories.RelationCategories)
	if err != nil {
		return nil, err
	}
	specialtyIDs, err := s.providerRepo.LinkedIDs(ctx, q, id, repositories.RelationSpecialties)
	if err != nil {
		return nil, err
	}

	names, err := s.resolveNames(ctx, q, planIDs, specialtyIDs, categoryIDs, provider.LocalityID)
	if err != nil {
		return nil, err
	}

	return &entities.ResolvedProvider{
		Provider:    *provider,
		Plans:       sortedValues(names.plans, planIDs),
		Categories:  sortedValues(names.categories, categoryIDs),
		Specialties: sortedValues(names.specialties, specialtyIDs),
		Locality:    names.locality,
		Province:    names.province,
	}, nil
}

// ToggleStatus flips the provider's status and cascades it to every
// directory entry of the provider
func (s *ProviderService) ToggleStatus(ctx context.Context, id string) (*entities.Provider, error) {
	var provider *entities.Provider

	err := s.store.RunInTx(ctx, func(q repositories.Queryer) error {
		var err error
		provider, err = s.providerRepo.GetByID(ctx, q, id)
		if err != nil {
			return err
		}

		provider.Status = provider.Status.Toggle()
		if err := s.providerRepo.UpdateFields(ctx, q, id, map[string]interface{}{"status": provider.Status}); err != nil {
			return err
		}
		return s.directoryRepo.UpdateByProvider(ctx, q, id, map[string]interface{}{"status": provider.Status})
	})
	if err != nil {
		return nil, err
	}

	s.publishAudit(ctx, entities.AuditActionToggleStatus, id, map[string]string{"status": string(provider.Status)})
	return provider, nil
}

// SetStatusByName sets an explicit status on the provider identified by name
// and cascades it to every directory entry of the provider. Unlike
// ToggleStatus this is idempotent; setting the current status is a no-op
// write.
func (s *ProviderService) SetStatusByName(ctx context.Context, name string, status entities.Status) (*entities.Provider, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("provider name is required")
	}
	if !status.IsValid() {
		return nil, apperrors.NewValidationError("invalid status: " + string(status))
	}

	var provider *entities.Provider
	err := s.store.RunInTx(ctx, func(q repositories.Queryer) error {
		var err error
		provider, err = s.providerRepo.GetByName(ctx, q, name)
		if err != nil {
			return err
		}

		provider.Status = status
		if err := s.providerRepo.UpdateFields(ctx, q, provider.ID, map[string]interface{}{"status": status}); err != nil {
			return err
		}
		return s.directoryRepo.UpdateByProvider(ctx, q, provider.ID, map[string]interface{}{"status": status})
	})
	if err != nil {
		return nil, err
	}

	s.publishAudit(ctx, entities.AuditActionToggleStatus, provider.ID, map[string]string{
		"name":   provider.Name,
		"status": string(status),
	})
	return provider, nil
}

// Delete removes the provider with its links, registrations and directory
// entries
func (s *ProviderService) Delete(ctx context.Context, id string) error {
	err := s.store.RunInTx(ctx, func(q repositories.Queryer) error {
		if err := s.directoryRepo.DeleteByProvider(ctx, q, id); err != nil {
			return err
		}
		return s.providerRepo.Delete(ctx, q, id)
	})
	if err != nil {
		return err
	}

	s.removeFromIndex(ctx, id)
	s.publishAudit(ctx, entities.AuditActionDelete, id, nil)
	return nil
}

func (s *ProviderService) indexEntries(ctx context.Context, providerID string, entries []*entities.DirectoryEntry) {
	if s.searchRepo == nil || len(entries) == 0 {
		return
	}
	if err := s.searchRepo.IndexBatch(ctx, entries); err != nil {
		log.Warn().Err(err).Str("provider_id", providerID).Msg("failed to index directory entries")
	}
}

func (s *ProviderService) removeFromIndex(ctx context.Context, providerID string) {
	if s.searchRepo == nil {
		return
	}
	if err := s.searchRepo.DeleteByProvider(ctx, providerID); err != nil {
		log.Warn().Err(err).Str("provider_id", providerID).Msg("failed to remove directory entries from index")
	}
}

func (s *ProviderService) publishAudit(ctx context.Context, action entities.AuditAction, id string, summary map[string]string) {
	if s.auditPublisher == nil {
		return
	}
	event := &entities.AuditEvent{
		Action:     action,
		EntityType: "provider",
		EntityIDs:  []string{id},
		Summary:    summary,
	}
	if err := s.auditPublisher.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Msg("failed to publish provider audit event")
	}
}
