package services_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartillasalud/backend/internal/application/services"
	"github.com/cartillasalud/backend/internal/domain/entities"
	"github.com/cartillasalud/backend/internal/domain/repositories"
)

func directoryEntry(provider, plan, specialty string) *entities.DirectoryEntry {
	return &entities.DirectoryEntry{
		ID:            "e-" + provider + plan + specialty,
		ProviderName:  provider,
		Address:       "Av. 7 n. 1234",
		Phones:        "0221-4567890",
		LocalityName:  "La Plata",
		ProvinceName:  "Buenos Aires",
		CategoryNames: "Clinica",
		SpecialtyName: specialty,
		PlanName:      plan,
		Status:        entities.StatusActive,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
}

func TestDirectoryService_List_ReturnsRealTotal(t *testing.T) {
	directoryRepo := &fakeDirectoryRepo{
		entries: []*entities.DirectoryEntry{
			directoryEntry("Clinica del Sol", "Plan Basico", "Cardiologia"),
		},
		listTotal: 140,
	}
	svc := services.NewDirectoryService(&fakeStore{}, directoryRepo, nil, nil, nil)

	page, err := svc.List(context.Background(), repositories.DirectoryFilter{Limit: 1, Offset: 25})
	require.NoError(t, err)

	// The total reflects the whole filtered set, not the page length.
	assert.Equal(t, 140, page.Total)
	assert.Len(t, page.Entries, 1)
	assert.Equal(t, 1, page.Limit)
	assert.Equal(t, 25, page.Offset)
}

func TestDirectoryService_List_DefaultsPagination(t *testing.T) {
	directoryRepo := &fakeDirectoryRepo{}
	svc := services.NewDirectoryService(&fakeStore{}, directoryRepo, nil, nil, nil)

	page, err := svc.List(context.Background(), repositories.DirectoryFilter{Limit: 0, Offset: -5})
	require.NoError(t, err)
	assert.Equal(t, 25, page.Limit)
	assert.Equal(t, 0, page.Offset)
}

func TestDirectoryService_Search_FallsBackToDatabase(t *testing.T) {
	directoryRepo := &fakeDirectoryRepo{
		entries:   []*entities.DirectoryEntry{directoryEntry("Clinica del Sol", "Plan Basico", "Cardiologia")},
		listTotal: 1,
	}
	searchRepo := &fakeSearchRepo{searchErr: errors.New("typesense down")}
	svc := services.NewDirectoryService(&fakeStore{}, directoryRepo, searchRepo, nil, nil)

	page, err := svc.Search(context.Background(), repositories.DirectoryFilter{Provider: "Sol"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Len(t, page.Entries, 1)
}

func TestDirectoryService_Search_UsesIndexWhenAvailable(t *testing.T) {
	searchRepo := &fakeSearchRepo{
		searchEntries: []*entities.DirectoryEntry{directoryEntry("Clinica del Sol", "Plan Basico", "Cardiologia")},
		searchTotal:   7,
	}
	svc := services.NewDirectoryService(&fakeStore{}, &fakeDirectoryRepo{}, searchRepo, nil, nil)

	page, err := svc.Search(context.Background(), repositories.DirectoryFilter{Provider: "Sol"})
	require.NoError(t, err)
	assert.Equal(t, 7, page.Total)
}

func TestDirectoryService_Export_MatchesImportFormat(t *testing.T) {
	directoryRepo := &fakeDirectoryRepo{
		entries: []*entities.DirectoryEntry{
			directoryEntry("Clinica del Sol", "Plan Basico", "Cardiologia"),
			directoryEntry("Clinica del Sol", "Plan Basico", "Pediatria"),
		},
	}
	svc := services.NewDirectoryService(&fakeStore{}, directoryRepo, nil, nil, nil)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{
		"provider", "address", "phones", "email", "extra_info",
		"locality", "province", "categories", "specialty", "plan", "status",
	}, records[0])

	assert.Equal(t, "Clinica del Sol", records[1][0])
	assert.Equal(t, "Cardiologia", records[1][8])
	assert.Equal(t, "Plan Basico", records[1][9])
	assert.Equal(t, "Active", records[1][10])
	assert.Equal(t, "Pediatria", records[2][8])
}
