package services_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartillasalud/backend/internal/application/services"
	apperrors "github.com/cartillasalud/backend/pkg/errors"
)

const importHeader = "provider,address,phones,email,extra_info,locality,province,categories,specialty,plan,status\n"

func importRecord(provider, specialty, plan string) string {
	return provider + ",Some St 1,111,mail@example.com,,La Plata,Buenos Aires,\"Clinica, Laboratorio\"," + specialty + "," + plan + ",Active\n"
}

func TestImportService_Import(t *testing.T) {
	store := &fakeStore{}
	directoryRepo := &fakeDirectoryRepo{}
	audit := &fakeAuditPublisher{}
	svc := services.NewImportService(store, directoryRepo, nil, audit, nil, 2, 1000, ',')

	input := importHeader +
		importRecord("Clinica del Sol", "Cardiologia", "Plan Basico") +
		importRecord("Clinica del Sol", "Pediatria", "Plan Basico") +
		importRecord("Laboratorio Central", "Cardiologia", "Plan Premium")

	summary, err := svc.Import(context.Background(), strings.NewReader(input), services.ImportOptions{
		HasHeader: true,
		Actor:     "admin",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalProcessed)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)

	assert.True(t, directoryRepo.truncated)
	assert.True(t, directoryRepo.regenerated)

	// Batch size 2 splits three records into two batches.
	require.Len(t, directoryRepo.batches, 2)
	assert.Len(t, directoryRepo.batches[0], 2)
	assert.Len(t, directoryRepo.batches[1], 1)

	first := directoryRepo.batches[0][0]
	assert.Equal(t, "Clinica del Sol", first.ProviderName)
	assert.Equal(t, "Cardiologia", first.SpecialtyName)
	assert.Equal(t, "Plan Basico", first.PlanName)
	assert.Equal(t, "Clinica, Laboratorio", first.CategoryNames)
	assert.NotEmpty(t, first.ID)

	require.Len(t, audit.events, 1)
	assert.Equal(t, "directory", audit.events[0].EntityType)
}

func TestImportService_Import_FailsFastWithRecordPosition(t *testing.T) {
	store := &fakeStore{}
	directoryRepo := &fakeDirectoryRepo{}
	svc := services.NewImportService(store, directoryRepo, nil, nil, nil, 1000, 1000, ',')

	// The second record is missing its provider name.
	input := importHeader +
		importRecord("Clinica del Sol", "Cardiologia", "Plan Basico") +
		importRecord("", "Pediatria", "Plan Basico") +
		importRecord("Laboratorio Central", "Cardiologia", "Plan Premium")

	summary, err := svc.Import(context.Background(), strings.NewReader(input), services.ImportOptions{HasHeader: true})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrorTypeIngestion, appErr.Type)
	assert.Equal(t, 2, appErr.Record)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.Succeeded)
	assert.False(t, directoryRepo.regenerated)
}

func TestImportService_Import_RejectsWrongColumnCount(t *testing.T) {
	store := &fakeStore{}
	directoryRepo := &fakeDirectoryRepo{}
	svc := services.NewImportService(store, directoryRepo, nil, nil, nil, 1000, 1000, ',')

	input := "only,three,columns\n"

	_, err := svc.Import(context.Background(), strings.NewReader(input), services.ImportOptions{})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrorTypeIngestion, appErr.Type)
	assert.Equal(t, 1, appErr.Record)
}

func TestImportService_Import_RejectsInvalidStatus(t *testing.T) {
	store := &fakeStore{}
	directoryRepo := &fakeDirectoryRepo{}
	svc := services.NewImportService(store, directoryRepo, nil, nil, nil, 1000, 1000, ',')

	input := "Clinica del Sol,,,,,,,,Cardiologia,Plan Basico,Suspended\n"

	_, err := svc.Import(context.Background(), strings.NewReader(input), services.ImportOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeIngestion))
}

func TestImportService_Import_EmptyFile(t *testing.T) {
	store := &fakeStore{}
	directoryRepo := &fakeDirectoryRepo{}
	svc := services.NewImportService(store, directoryRepo, nil, nil, nil, 1000, 1000, ',')

	summary, err := svc.Import(context.Background(), strings.NewReader(importHeader), services.ImportOptions{HasHeader: true})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.TotalProcessed)
	assert.True(t, directoryRepo.truncated)
	assert.True(t, directoryRepo.regenerated)
	assert.Empty(t, directoryRepo.batches)
}

func TestImportService_Import_ProgressCallback(t *testing.T) {
	store := &fakeStore{}
	directoryRepo := &fakeDirectoryRepo{}
	svc := services.NewImportService(store, directoryRepo, nil, nil, nil, 10, 2, ',')

	var progress []int
	input := importHeader
	for i := 0; i < 5; i++ {
		input += importRecord("Provider", "Cardiologia", "Plan Basico")
	}

	_, err := svc.Import(context.Background(), strings.NewReader(input), services.ImportOptions{
		HasHeader:  true,
		OnProgress: func(processed int) { progress = append(progress, processed) },
	})
	require.NoError(t, err)

	// Every interval of two, plus the final partial count.
	assert.Equal(t, []int{2, 4, 5}, progress)
}

func TestImportService_Import_CustomDelimiter(t *testing.T) {
	store := &fakeStore{}
	directoryRepo := &fakeDirectoryRepo{}
	svc := services.NewImportService(store, directoryRepo, nil, nil, nil, 1000, 1000, ',')

	input := "Clinica del Sol;Some St 1;111;;;La Plata;Buenos Aires;Clinica;Cardiologia;Plan Basico;Active\n"

	summary, err := svc.Import(context.Background(), strings.NewReader(input), services.ImportOptions{Delimiter: ';'})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalProcessed)
}

func TestImportService_Import_ReindexesAfterCommit(t *testing.T) {
	store := &fakeStore{}
	directoryRepo := &fakeDirectoryRepo{}
	searchRepo := &fakeSearchRepo{}
	svc := services.NewImportService(store, directoryRepo, searchRepo, nil, nil, 1000, 1000, ',')

	input := importRecord("Clinica del Sol", "Cardiologia", "Plan Basico")

	// ForEach replays whatever the fake holds; pretend regeneration left one row.
	_, err := svc.Import(context.Background(), strings.NewReader(input), services.ImportOptions{})
	require.NoError(t, err)

	directoryRepo.entries = directoryRepo.batches[0]
	searchRepo.indexed = nil

	_, err = svc.Import(context.Background(), strings.NewReader(input), services.ImportOptions{})
	require.NoError(t, err)
	require.Len(t, searchRepo.indexed, 1)
	assert.Len(t, searchRepo.indexed[0], 1)
}
