package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartillasalud/backend/internal/domain/entities"
	"github.com/cartillasalud/backend/internal/domain/repositories"
)

var directoryRowColumns = []string{
	"id", "registration_id", "provider_id", "provider_name", "address",
	"phones", "email", "extra_info", "locality_name", "province_name",
	"category_names", "specialty_name", "plan_name", "status",
	"created_at", "updated_at",
}

func addDirectoryRow(rows *sqlmock.Rows, id, provider, plan, specialty string) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(
		id, "r-"+id, "p-1", provider, "Av. 7 n. 1234",
		"0221-4567890", "", "", "La Plata", "Buenos Aires",
		"Clinica", specialty, plan, "Active", now, now,
	)
}

func TestDirectoryAdapter_List_TotalComesFromCountQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "directory_entries"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(57))

	rows := sqlmock.NewRows(directoryRowColumns)
	addDirectoryRow(rows, "e-1", "Clinica del Sol", "Plan Basico", "Cardiologia")
	addDirectoryRow(rows, "e-2", "Clinica del Sol", "Plan Basico", "Pediatria")
	mock.ExpectQuery(`SELECT .* FROM "directory_entries".*ORDER BY`).WillReturnRows(rows)

	adapter := &DirectoryAdapter{}
	entries, total, err := adapter.List(context.Background(), db, repositories.DirectoryFilter{Limit: 2, Offset: 10})
	require.NoError(t, err)

	// The total covers the whole filtered set, not the returned page.
	assert.Equal(t, 57, total)
	require.Len(t, entries, 2)
	assert.Equal(t, "r-e-1", entries[0].RegistrationID)
	assert.Equal(t, "Cardiologia", entries[0].SpecialtyName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectoryAdapter_InsertBatch_EmptyIsNoOp(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := &DirectoryAdapter{}
	require.NoError(t, adapter.InsertBatch(context.Background(), db, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectoryAdapter_InsertBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO "directory_entries"`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	now := time.Now()
	entries := []*entities.DirectoryEntry{
		{ID: "e-1", ProviderName: "Clinica del Sol", PlanName: "Plan Basico", SpecialtyName: "Cardiologia", Status: entities.StatusActive, CreatedAt: now, UpdatedAt: now},
		{ID: "e-2", ProviderName: "Clinica del Sol", PlanName: "Plan Basico", SpecialtyName: "Pediatria", Status: entities.StatusActive, CreatedAt: now, UpdatedAt: now},
	}

	adapter := &DirectoryAdapter{}
	require.NoError(t, adapter.InsertBatch(context.Background(), db, entries))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectoryAdapter_Truncate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`TRUNCATE directory_entries`).WillReturnResult(sqlmock.NewResult(0, 0))

	adapter := &DirectoryAdapter{}
	require.NoError(t, adapter.Truncate(context.Background(), db))
}

func TestDirectoryAdapter_RenameDimension(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE "directory_entries" SET`).
		WillReturnResult(sqlmock.NewResult(0, 12))

	adapter := &DirectoryAdapter{}
	require.NoError(t, adapter.RenameDimension(context.Background(), db, "plan_name", "Plan Basico", "Plan Inicial"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectoryAdapter_SetStatusByDimension(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE "directory_entries" SET`).
		WillReturnResult(sqlmock.NewResult(0, 4))

	adapter := &DirectoryAdapter{}
	require.NoError(t, adapter.SetStatusByDimension(context.Background(), db, "plan_name", "Plan Basico", entities.StatusInactive))
}

func TestDirectoryAdapter_RecomputeCategoryNames(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE directory_entries de`).
		WithArgs("cat-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	adapter := &DirectoryAdapter{}
	require.NoError(t, adapter.RecomputeCategoryNames(context.Background(), db, "cat-1"))
}

func TestDirectoryAdapter_Regenerate_RunsEveryStatementInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	require.Len(t, regenerationStatements, 13)
	for range regenerationStatements {
		mock.ExpectExec(`.*`).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	adapter := &DirectoryAdapter{}
	require.NoError(t, adapter.Regenerate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectoryAdapter_Regenerate_NamesFailingStatement(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`TRUNCATE provider_plans`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO plans`).WillReturnError(errors.New("boom"))

	adapter := &DirectoryAdapter{}
	err = adapter.Regenerate(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "regeneration failed at: insert missing plans")
}

func TestDirectoryAdapter_ForEach_StopsOnCallbackError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows(directoryRowColumns)
	addDirectoryRow(rows, "e-1", "Clinica del Sol", "Plan Basico", "Cardiologia")
	addDirectoryRow(rows, "e-2", "Clinica del Sol", "Plan Basico", "Pediatria")
	mock.ExpectQuery(`SELECT .* FROM directory_entries ORDER BY`).WillReturnRows(rows)

	sentinel := errors.New("stop here")
	seen := 0

	adapter := &DirectoryAdapter{}
	err = adapter.ForEach(context.Background(), db, func(entry *entities.DirectoryEntry) error {
		seen++
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, seen)
}
