package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartillasalud/backend/internal/application/services"
	"github.com/cartillasalud/backend/internal/domain/entities"
	"github.com/cartillasalud/backend/internal/domain/repositories"
	apperrors "github.com/cartillasalud/backend/pkg/errors"
)

func newProviderFixture() (*fakeStore, *fakeProviderRepo, *fakeCatalogRepo, *fakeDirectoryRepo, *fakeSearchRepo, *services.ProviderService) {
	store := &fakeStore{}
	providerRepo := newFakeProviderRepo()
	providerRepo.localityName = "La Plata"
	providerRepo.provinceName = "Buenos Aires"

	catalogRepo := newFakeCatalogRepo()
	catalogRepo.addNames(entities.KindPlan, map[string]string{
		"plan-1": "Plan Basico",
		"plan-2": "Plan Premium",
	})
	catalogRepo.addNames(entities.KindSpecialty, map[string]string{
		"spec-1": "Cardiologia",
		"spec-2": "Pediatria",
		"spec-3": "Traumatologia",
	})
	catalogRepo.addNames(entities.KindCategory, map[string]string{
		"cat-1": "Clinica",
		"cat-2": "Laboratorio",
	})

	directoryRepo := &fakeDirectoryRepo{}
	searchRepo := &fakeSearchRepo{}
	svc := services.NewProviderService(store, providerRepo, catalogRepo, directoryRepo, searchRepo, nil, nil)
	return store, providerRepo, catalogRepo, directoryRepo, searchRepo, svc
}

func TestProviderService_Create_DerivesOneEntryPerPlanSpecialtyPair(t *testing.T) {
	_, providerRepo, _, directoryRepo, _, svc := newProviderFixture()

	result, err := svc.Create(context.Background(), services.CreateProviderInput{
		Name:         "Clinica del Sol",
		Address:      "Av. 7 n. 1234",
		LocalityID:   "loc-1",
		PlanIDs:      []string{"plan-1", "plan-2"},
		CategoryIDs:  []string{"cat-2", "cat-1"},
		SpecialtyIDs: []string{"spec-1", "spec-2", "spec-3"},
	})
	require.NoError(t, err)

	// One provider row, two plans by three specialties everywhere else.
	require.Len(t, providerRepo.created, 1)
	assert.Len(t, providerRepo.registrations, 6)

	require.Len(t, directoryRepo.batches, 1)
	entries := directoryRepo.batches[0]
	require.Len(t, entries, 6)

	for _, entry := range entries {
		assert.Equal(t, "Clinica del Sol", entry.ProviderName)
		assert.Equal(t, "La Plata", entry.LocalityName)
		assert.Equal(t, "Buenos Aires", entry.ProvinceName)
		assert.Equal(t, "Clinica, Laboratorio", entry.CategoryNames)
		assert.Equal(t, entities.StatusActive, entry.Status)
		assert.NotEmpty(t, entry.RegistrationID)
	}

	// The result reports every created registration as a plan and specialty
	// pair, the full 2x3 cross product.
	assert.Equal(t, 6, result.Total)
	require.Len(t, result.Registrations, 6)

	providerID := providerRepo.created[0].ID
	pairs := map[string]bool{}
	for _, reg := range result.Registrations {
		assert.NotEmpty(t, reg.ID)
		assert.Equal(t, providerID, reg.ProviderID)
		pairs[reg.Plan+"|"+reg.Specialty] = true
	}
	for _, plan := range []string{"Plan Basico", "Plan Premium"} {
		for _, specialty := range []string{"Cardiologia", "Pediatria", "Traumatologia"} {
			assert.True(t, pairs[plan+"|"+specialty], "missing registration %s / %s", plan, specialty)
		}
	}

	assert.Equal(t, []string{"Plan Basico", "Plan Premium"}, result.Provider.Plans)
	assert.Equal(t, []string{"Cardiologia", "Pediatria", "Traumatologia"}, result.Provider.Specialties)
	assert.Equal(t, "La Plata", result.Provider.Locality)
}

func TestProviderService_Create_Validation(t *testing.T) {
	_, _, _, _, _, svc := newProviderFixture()

	cases := []struct {
		name  string
		input services.CreateProviderInput
	}{
		{"missing name", services.CreateProviderInput{PlanIDs: []string{"plan-1"}, SpecialtyIDs: []string{"spec-1"}}},
		{"no plans", services.CreateProviderInput{Name: "X", SpecialtyIDs: []string{"spec-1"}}},
		{"no specialties", services.CreateProviderInput{Name: "X", PlanIDs: []string{"plan-1"}}},
		{"bad status", services.CreateProviderInput{Name: "X", Status: "Paused", PlanIDs: []string{"plan-1"}, SpecialtyIDs: []string{"spec-1"}}},
	}

	for _, tc := range cases {
		_, err := svc.Create(context.Background(), tc.input)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), tc.name)
	}
}

func TestProviderService_Create_DuplicateNameConflicts(t *testing.T) {
	_, providerRepo, _, _, _, svc := newProviderFixture()
	providerRepo.byName["Clinica del Sol"] = &entities.Provider{ID: "p-1", Name: "Clinica del Sol"}

	_, err := svc.Create(context.Background(), services.CreateProviderInput{
		Name:         "Clinica del Sol",
		PlanIDs:      []string{"plan-1"},
		SpecialtyIDs: []string{"spec-1"},
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
}

func TestProviderService_Create_UnknownPlanFails(t *testing.T) {
	_, _, _, directoryRepo, _, svc := newProviderFixture()

	_, err := svc.Create(context.Background(), services.CreateProviderInput{
		Name:         "Clinica del Sol",
		PlanIDs:      []string{"plan-404"},
		SpecialtyIDs: []string{"spec-1"},
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	assert.Empty(t, directoryRepo.batches)
}

func TestProviderService_Update_RelationChangeRebuildsEntries(t *testing.T) {
	_, providerRepo, _, directoryRepo, searchRepo, svc := newProviderFixture()
	providerRepo.byID["p-1"] = &entities.Provider{ID: "p-1", Name: "Clinica del Sol", Status: entities.StatusActive}
	providerRepo.byName["Clinica del Sol"] = providerRepo.byID["p-1"]
	providerRepo.links[repositories.RelationPlans] = []string{"plan-1", "plan-2"}
	providerRepo.links[repositories.RelationSpecialties] = []string{"spec-1"}

	// Full replace: [plan-1, plan-2] -> [plan-2].
	_, err := svc.Update(context.Background(), "p-1", services.UpdateProviderInput{
		PlanIDs: []string{"plan-2"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"plan-2"}, providerRepo.links[repositories.RelationPlans])
	assert.Equal(t, 1, providerRepo.regReplaces)
	assert.Len(t, providerRepo.registrations, 1)

	// Old entries removed, fresh set inserted.
	assert.Equal(t, []string{"p-1"}, directoryRepo.deletedProviders)
	require.Len(t, directoryRepo.batches, 1)
	assert.Len(t, directoryRepo.batches[0], 1)
	assert.Equal(t, "Plan Premium", directoryRepo.batches[0][0].PlanName)

	assert.Equal(t, []string{"p-1"}, searchRepo.deletedProviders)
}

func TestProviderService_Update_ScalarChangeKeepsCardinality(t *testing.T) {
	_, providerRepo, _, directoryRepo, _, svc := newProviderFixture()
	providerRepo.byID["p-1"] = &entities.Provider{ID: "p-1", Name: "Clinica del Sol", Status: entities.StatusActive}
	providerRepo.links[repositories.RelationPlans] = []string{"plan-1"}
	providerRepo.links[repositories.RelationSpecialties] = []string{"spec-1"}

	newPhones := "0221-999"
	_, err := svc.Update(context.Background(), "p-1", services.UpdateProviderInput{Phones: &newPhones})
	require.NoError(t, err)

	// No rebuild, only an in-place rewrite of the provider's rows.
	assert.Empty(t, directoryRepo.deletedProviders)
	assert.Empty(t, directoryRepo.batches)
	require.Len(t, directoryRepo.providerUpdates, 1)
	assert.Equal(t, "0221-999", directoryRepo.providerUpdates[0]["phones"])
}

func TestProviderService_Update_CategoryChangeRewritesJoinedNames(t *testing.T) {
	_, providerRepo, _, directoryRepo, _, svc := newProviderFixture()
	providerRepo.byID["p-1"] = &entities.Provider{ID: "p-1", Name: "Clinica del Sol", Status: entities.StatusActive}
	providerRepo.links[repositories.RelationPlans] = []string{"plan-1"}
	providerRepo.links[repositories.RelationSpecialties] = []string{"spec-1"}

	_, err := svc.Update(context.Background(), "p-1", services.UpdateProviderInput{
		CategoryIDs: []string{"cat-2", "cat-1"},
	})
	require.NoError(t, err)

	require.Len(t, directoryRepo.providerUpdates, 1)
	assert.Equal(t, "Clinica, Laboratorio", directoryRepo.providerUpdates[0]["category_names"])
}

func TestProviderService_Update_NotFound(t *testing.T) {
	_, _, _, _, _, svc := newProviderFixture()

	_, err := svc.Update(context.Background(), "missing", services.UpdateProviderInput{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestProviderService_ToggleStatus_Cascades(t *testing.T) {
	_, providerRepo, _, directoryRepo, _, svc := newProviderFixture()
	providerRepo.byID["p-1"] = &entities.Provider{ID: "p-1", Name: "Clinica del Sol", Status: entities.StatusActive}

	provider, err := svc.ToggleStatus(context.Background(), "p-1")
	require.NoError(t, err)

	assert.Equal(t, entities.StatusInactive, provider.Status)
	require.Len(t, directoryRepo.providerUpdates, 1)
	assert.Equal(t, entities.StatusInactive, directoryRepo.providerUpdates[0]["status"])
}

func TestProviderService_SetStatusByName_Cascades(t *testing.T) {
	_, providerRepo, _, directoryRepo, _, svc := newProviderFixture()
	providerRepo.byID["p-1"] = &entities.Provider{ID: "p-1", Name: "Clinica del Sol", Status: entities.StatusActive}
	providerRepo.byName["Clinica del Sol"] = providerRepo.byID["p-1"]

	provider, err := svc.SetStatusByName(context.Background(), "Clinica del Sol", entities.StatusInactive)
	require.NoError(t, err)

	assert.Equal(t, "p-1", provider.ID)
	assert.Equal(t, entities.StatusInactive, provider.Status)
	assert.Equal(t, entities.StatusInactive, providerRepo.fieldUpdates["p-1"]["status"])
	require.Len(t, directoryRepo.providerUpdates, 1)
	assert.Equal(t, entities.StatusInactive, directoryRepo.providerUpdates[0]["status"])

	// Sets, never toggles: repeating the call leaves the status in place.
	provider, err = svc.SetStatusByName(context.Background(), "Clinica del Sol", entities.StatusInactive)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusInactive, provider.Status)
}

func TestProviderService_SetStatusByName_Validation(t *testing.T) {
	_, _, _, _, _, svc := newProviderFixture()

	_, err := svc.SetStatusByName(context.Background(), "   ", entities.StatusActive)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = svc.SetStatusByName(context.Background(), "Clinica del Sol", entities.Status("Paused"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = svc.SetStatusByName(context.Background(), "Clinica Fantasma", entities.StatusInactive)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestProviderService_Delete_RemovesEntriesAndIndex(t *testing.T) {
	_, providerRepo, _, directoryRepo, searchRepo, svc := newProviderFixture()
	providerRepo.byID["p-1"] = &entities.Provider{ID: "p-1", Name: "Clinica del Sol"}

	err := svc.Delete(context.Background(), "p-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"p-1"}, providerRepo.deleted)
	assert.Equal(t, []string{"p-1"}, directoryRepo.deletedProviders)
	assert.Equal(t, []string{"p-1"}, searchRepo.deletedProviders)
}
