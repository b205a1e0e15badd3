package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/cartillasalud/backend/internal/domain/entities"
	"github.com/cartillasalud/backend/internal/domain/repositories"
	apperrors "github.com/cartillasalud/backend/pkg/errors"
)

var dialect = goqu.Dialect("postgres")

// CatalogAdapter implements CatalogRepository for every descriptor-described
// lookup entity. It is stateless; the caller supplies the Queryer so that the
// same adapter works inside and outside a transaction.
type CatalogAdapter struct{}

// NewCatalogAdapter creates a new catalog adapter
func NewCatalogAdapter() repositories.CatalogRepository {
	return &CatalogAdapter{}
}

func catalogColumns(d entities.Descriptor) []interface{} {
	cols := []interface{}{"id", d.NameColumn}
	if d.Kind == entities.KindLocality {
		cols = append(cols, "province_id")
	}
	return append(cols, "status", "created_at", "updated_at")
}

func scanCatalogEntry(d entities.Descriptor, scan func(dest ...interface{}) error) (*entities.CatalogEntry, error) {
	entry := &entities.CatalogEntry{}
	var province sql.NullString

	dest := []interface{}{&entry.ID, &entry.Name}
	if d.Kind == entities.KindLocality {
		dest = append(dest, &province)
	}
	dest = append(dest, &entry.Status, &entry.CreatedAt, &entry.UpdatedAt)

	if err := scan(dest...); err != nil {
		return nil, err
	}
	entry.ProvinceID = province.String
	return entry, nil
}

// List retrieves every entry of the entity, ordered by name
func (a *CatalogAdapter) List(ctx context.Context, q repositories.Queryer, d entities.Descriptor) ([]*entities.CatalogEntry, error) {
	query, args, err := dialect.Select(catalogColumns(d)...).
		From(d.Table).
		Order(goqu.I(d.NameColumn).Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("failed to list %s", d.Kind), err)
	}
	defer rows.Close()

	var entries []*entities.CatalogEntry
	for rows.Next() {
		entry, err := scanCatalogEntry(d, rows.Scan)
		if err != nil {
			return nil, apperrors.NewInternalError(fmt.Sprintf("failed to scan %s row", d.Kind), err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("failed to iterate %s rows", d.Kind), err)
	}
	return entries, nil
}

// GetByID retrieves one entry by id
func (a *CatalogAdapter) GetByID(ctx context.Context, q repositories.Queryer, d entities.Descriptor, id string) (*entities.CatalogEntry, error) {
	query, args, err := dialect.Select(catalogColumns(d)...).
		From(d.Table).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build get query", err)
	}

	entry, err := scanCatalogEntry(d, q.QueryRowContext(ctx, query, args...).Scan)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("%s with id %s not found", d.Kind, id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("failed to get %s", d.Kind), err)
	}
	return entry, nil
}

// Insert creates a new entry
func (a *CatalogAdapter) Insert(ctx context.Context, q repositories.Queryer, d entities.Descriptor, entry *entities.CatalogEntry) error {
	record := goqu.Record{
		"id":         entry.ID,
		d.NameColumn: entry.Name,
		"status":     entry.Status,
		"created_at": entry.CreatedAt,
		"updated_at": entry.UpdatedAt,
	}
	if d.Kind == entities.KindLocality {
		record["province_id"] = entry.ProvinceID
	}

	query, args, err := dialect.Insert(d.Table).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError(fmt.Sprintf("failed to create %s", d.Kind), err)
	}
	return nil
}

// Update applies column changes to one entry
func (a *CatalogAdapter) Update(ctx context.Context, q repositories.Queryer, d entities.Descriptor, id string, fields map[string]interface{}) error {
	record := goqu.Record{"updated_at": time.Now()}
	for column, value := range fields {
		record[column] = value
	}

	query, args, err := dialect.Update(d.Table).
		Set(record).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError(fmt.Sprintf("failed to update %s", d.Kind), err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("%s with id %s not found", d.Kind, id))
	}
	return nil
}

// Delete removes one entry. The service checks references beforehand.
func (a *CatalogAdapter) Delete(ctx context.Context, q repositories.Queryer, d entities.Descriptor, id string) error {
	query, args, err := dialect.Delete(d.Table).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError(fmt.Sprintf("failed to delete %s", d.Kind), err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("%s with id %s not found", d.Kind, id))
	}
	return nil
}

// CountByField counts entries whose column equals value, excluding excludeID
func (a *CatalogAdapter) CountByField(ctx context.Context, q repositories.Queryer, d entities.Descriptor, field, value, excludeID string) (int, error) {
	ds := dialect.Select(goqu.COUNT("*")).
		From(d.Table).
		Where(goqu.Ex{field: value})
	if excludeID != "" {
		ds = ds.Where(goqu.C("id").Neq(excludeID))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var count int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.NewInternalError(fmt.Sprintf("failed to count %s", d.Kind), err)
	}
	return count, nil
}

// ReferenceCount counts rows still referencing the entity
func (a *CatalogAdapter) ReferenceCount(ctx context.Context, q repositories.Queryer, d entities.Descriptor, id string) (int, error) {
	query, args, err := dialect.Select(goqu.COUNT("*")).
		From(d.RefTable).
		Where(goqu.Ex{d.RefColumn: id}).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build reference count query", err)
	}

	var count int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.NewInternalError(fmt.Sprintf("failed to count references of %s", d.Kind), err)
	}
	return count, nil
}

// NamesByIDs resolves ids to names; every id must resolve
func (a *CatalogAdapter) NamesByIDs(ctx context.Context, q repositories.Queryer, d entities.Descriptor, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	query, args, err := dialect.Select("id", d.NameColumn).
		From(d.Table).
		Where(goqu.C("id").In(ids)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build names query", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("failed to resolve %s names", d.Kind), err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, apperrors.NewInternalError("failed to scan name row", err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate name rows", err)
	}

	for _, id := range ids {
		if _, ok := names[id]; !ok {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("%s with id %s not found", d.Kind, id))
		}
	}
	return names, nil
}
