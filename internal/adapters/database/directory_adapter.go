package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/cartillasalud/backend/internal/domain/entities"
	"github.com/cartillasalud/backend/internal/domain/repositories"
	apperrors "github.com/cartillasalud/backend/pkg/errors"
)

// CategorySeparator joins category names into the denormalized
// category_names column.
const CategorySeparator = ", "

const directoryColumns = `id, registration_id, provider_id, provider_name, address, phones, email, extra_info, locality_name, province_name, category_names, specialty_name, plan_name, status, created_at, updated_at`

// DirectoryAdapter implements DirectoryRepository
type DirectoryAdapter struct{}

// NewDirectoryAdapter creates a new directory adapter
func NewDirectoryAdapter() repositories.DirectoryRepository {
	return &DirectoryAdapter{}
}

func scanDirectoryEntry(scan func(dest ...interface{}) error) (*entities.DirectoryEntry, error) {
	entry := &entities.DirectoryEntry{}
	var registrationID, providerID sql.NullString

	err := scan(
		&entry.ID,
		&registrationID,
		&providerID,
		&entry.ProviderName,
		&entry.Address,
		&entry.Phones,
		&entry.Email,
		&entry.ExtraInfo,
		&entry.LocalityName,
		&entry.ProvinceName,
		&entry.CategoryNames,
		&entry.SpecialtyName,
		&entry.PlanName,
		&entry.Status,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.RegistrationID = registrationID.String
	entry.ProviderID = providerID.String
	return entry, nil
}

// Truncate clears the whole directory table
func (a *DirectoryAdapter) Truncate(ctx context.Context, q repositories.Queryer) error {
	if _, err := q.ExecContext(ctx, `TRUNCATE directory_entries`); err != nil {
		return apperrors.NewInternalError("failed to truncate directory", err)
	}
	return nil
}

// InsertBatch inserts a batch of entries in one multi-row statement
func (a *DirectoryAdapter) InsertBatch(ctx context.Context, q repositories.Queryer, entries []*entities.DirectoryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	records := make([]goqu.Record, 0, len(entries))
	for _, entry := range entries {
		records = append(records, goqu.Record{
			"id":              entry.ID,
			"registration_id": sql.NullString{String: entry.RegistrationID, Valid: entry.RegistrationID != ""},
			"provider_id":     sql.NullString{String: entry.ProviderID, Valid: entry.ProviderID != ""},
			"provider_name":   entry.ProviderName,
			"address":         entry.Address,
			"phones":          entry.Phones,
			"email":           entry.Email,
			"extra_info":      entry.ExtraInfo,
			"locality_name":   entry.LocalityName,
			"province_name":   entry.ProvinceName,
			"category_names":  entry.CategoryNames,
			"specialty_name":  entry.SpecialtyName,
			"plan_name":       entry.PlanName,
			"status":          entry.Status,
			"created_at":      entry.CreatedAt,
			"updated_at":      entry.UpdatedAt,
		})
	}

	query, args, err := dialect.Insert("directory_entries").Rows(records).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build batch insert query", err)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to insert directory batch", err)
	}
	return nil
}

// DeleteByProvider removes every entry of a provider
func (a *DirectoryAdapter) DeleteByProvider(ctx context.Context, q repositories.Queryer, providerID string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM directory_entries WHERE provider_id = $1`, providerID); err != nil {
		return apperrors.NewInternalError("failed to delete directory entries", err)
	}
	return nil
}

// EntriesByProvider returns every entry of a provider
func (a *DirectoryAdapter) EntriesByProvider(ctx context.Context, q repositories.Queryer, providerID string) ([]*entities.DirectoryEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM directory_entries WHERE provider_id = $1 ORDER BY plan_name, specialty_name`, directoryColumns)

	rows, err := q.QueryContext(ctx, query, providerID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list directory entries", err)
	}
	defer rows.Close()

	var entries []*entities.DirectoryEntry
	for rows.Next() {
		entry, err := scanDirectoryEntry(rows.Scan)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan directory entry", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate directory entries", err)
	}
	return entries, nil
}

// UpdateByProvider applies translated directory column values to every entry
// of the provider
func (a *DirectoryAdapter) UpdateByProvider(ctx context.Context, q repositories.Queryer, providerID string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}

	record := goqu.Record{"updated_at": time.Now()}
	for column, value := range fields {
		record[column] = value
	}

	query, args, err := dialect.Update("directory_entries").
		Set(record).
		Where(goqu.Ex{"provider_id": providerID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build directory update query", err)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to update directory entries", err)
	}
	return nil
}

// RenameDimension rewrites a denormalized name column in place. Cardinality
// never changes on a rename.
func (a *DirectoryAdapter) RenameDimension(ctx context.Context, q repositories.Queryer, column, oldName, newName string) error {
	query, args, err := dialect.Update("directory_entries").
		Set(goqu.Record{column: newName, "updated_at": time.Now()}).
		Where(goqu.Ex{column: oldName}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build rename query", err)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError(fmt.Sprintf("failed to cascade rename on %s", column), err)
	}
	return nil
}

// SetStatusByDimension flips the status on every entry whose denormalized
// column equals name
func (a *DirectoryAdapter) SetStatusByDimension(ctx context.Context, q repositories.Queryer, column, name string, status entities.Status) error {
	query, args, err := dialect.Update("directory_entries").
		Set(goqu.Record{"status": status, "updated_at": time.Now()}).
		Where(goqu.Ex{column: name}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build status cascade query", err)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError(fmt.Sprintf("failed to cascade status on %s", column), err)
	}
	return nil
}

// RecomputeCategoryNames rebuilds category_names from the link tables for
// every provider linked to the category
func (a *DirectoryAdapter) RecomputeCategoryNames(ctx context.Context, q repositories.Queryer, categoryID string) error {
	query := `
		UPDATE directory_entries de
		SET category_names = COALESCE(sub.names, ''), updated_at = NOW()
		FROM (
			SELECT pc.provider_id, string_agg(c.name, ', ' ORDER BY c.name) AS names
			FROM provider_categories pc
			JOIN categories c ON c.id = pc.category_id
			GROUP BY pc.provider_id
		) sub
		WHERE de.provider_id = sub.provider_id
		  AND de.provider_id IN (
			SELECT provider_id FROM provider_categories WHERE category_id = $1
		  )
	`
	if _, err := q.ExecContext(ctx, query, categoryID); err != nil {
		return apperrors.NewInternalError("failed to recompute category names", err)
	}
	return nil
}

func directoryFilterWhere(ds *goqu.SelectDataset, filter repositories.DirectoryFilter) *goqu.SelectDataset {
	if filter.Provider != "" {
		ds = ds.Where(goqu.C("provider_name").ILike("%" + filter.Provider + "%"))
	}
	if filter.Plan != "" {
		ds = ds.Where(goqu.Ex{"plan_name": filter.Plan})
	}
	if filter.Specialty != "" {
		ds = ds.Where(goqu.Ex{"specialty_name": filter.Specialty})
	}
	if filter.Province != "" {
		ds = ds.Where(goqu.Ex{"province_name": filter.Province})
	}
	if filter.Locality != "" {
		ds = ds.Where(goqu.Ex{"locality_name": filter.Locality})
	}
	if filter.Category != "" {
		ds = ds.Where(goqu.C("category_names").ILike("%" + filter.Category + "%"))
	}
	if filter.Status != nil {
		ds = ds.Where(goqu.Ex{"status": *filter.Status})
	}
	return ds
}

// List returns one page of entries plus the total count over the whole
// filtered set. The count is computed with its own COUNT(*) query so that a
// partial page never misreports the total.
func (a *DirectoryAdapter) List(ctx context.Context, q repositories.Queryer, filter repositories.DirectoryFilter) ([]*entities.DirectoryEntry, int, error) {
	countQuery, countArgs, err := directoryFilterWhere(
		dialect.Select(goqu.COUNT("*")).From("directory_entries"), filter,
	).ToSQL()
	if err != nil {
		return nil, 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var total int
	if err := q.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, apperrors.NewInternalError("failed to count directory entries", err)
	}

	ds := directoryFilterWhere(
		dialect.Select(
			"id", "registration_id", "provider_id", "provider_name", "address",
			"phones", "email", "extra_info", "locality_name", "province_name",
			"category_names", "specialty_name", "plan_name", "status",
			"created_at", "updated_at",
		).From("directory_entries"), filter,
	).Order(goqu.I("provider_name").Asc(), goqu.I("plan_name").Asc(), goqu.I("specialty_name").Asc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, 0, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, apperrors.NewInternalError("failed to list directory entries", err)
	}
	defer rows.Close()

	var entries []*entities.DirectoryEntry
	for rows.Next() {
		entry, err := scanDirectoryEntry(rows.Scan)
		if err != nil {
			return nil, 0, apperrors.NewInternalError("failed to scan directory entry", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.NewInternalError("failed to iterate directory entries", err)
	}
	return entries, total, nil
}

// ForEach streams every entry to fn in a stable order
func (a *DirectoryAdapter) ForEach(ctx context.Context, q repositories.Queryer, fn func(*entities.DirectoryEntry) error) error {
	query := fmt.Sprintf(`SELECT %s FROM directory_entries ORDER BY provider_name, plan_name, specialty_name`, directoryColumns)

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return apperrors.NewInternalError("failed to stream directory entries", err)
	}
	defer rows.Close()

	for rows.Next() {
		entry, err := scanDirectoryEntry(rows.Scan)
		if err != nil {
			return apperrors.NewInternalError("failed to scan directory entry", err)
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return apperrors.NewInternalError("failed to iterate directory entries", err)
	}
	return nil
}
