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

// ProviderAdapter implements ProviderRepository
type ProviderAdapter struct{}

// NewProviderAdapter creates a new provider adapter
func NewProviderAdapter() repositories.ProviderRepository {
	return &ProviderAdapter{}
}

func linkTable(rel repositories.Relation) (string, string, error) {
	switch rel {
	case repositories.RelationPlans:
		return "provider_plans", "plan_id", nil
	case repositories.RelationCategories:
		return "provider_categories", "category_id", nil
	case repositories.RelationSpecialties:
		return "provider_specialties", "specialty_id", nil
	}
	return "", "", apperrors.NewInternalError(fmt.Sprintf("unknown relation %q", rel), nil)
}

const providerColumns = `id, name, address, phones, email, extra_info, locality_id, status, created_at, updated_at`

func scanProvider(scan func(dest ...interface{}) error) (*entities.Provider, error) {
	provider := &entities.Provider{}
	var locality sql.NullString

	err := scan(
		&provider.ID,
		&provider.Name,
		&provider.Address,
		&provider.Phones,
		&provider.Email,
		&provider.ExtraInfo,
		&locality,
		&provider.Status,
		&provider.CreatedAt,
		&provider.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	provider.LocalityID = locality.String
	return provider, nil
}

// Create creates a new provider
func (a *ProviderAdapter) Create(ctx context.Context, q repositories.Queryer, provider *entities.Provider) error {
	record := goqu.Record{
		"id":          provider.ID,
		"name":        provider.Name,
		"address":     provider.Address,
		"phones":      provider.Phones,
		"email":       provider.Email,
		"extra_info":  provider.ExtraInfo,
		"locality_id": sql.NullString{String: provider.LocalityID, Valid: provider.LocalityID != ""},
		"status":      provider.Status,
		"created_at":  provider.CreatedAt,
		"updated_at":  provider.UpdatedAt,
	}

	query, args, err := dialect.Insert("providers").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create provider", err)
	}
	return nil
}

// GetByID retrieves a provider by id
func (a *ProviderAdapter) GetByID(ctx context.Context, q repositories.Queryer, id string) (*entities.Provider, error) {
	return a.getByField(ctx, q, "id", id)
}

// GetByName retrieves a provider by name
func (a *ProviderAdapter) GetByName(ctx context.Context, q repositories.Queryer, name string) (*entities.Provider, error) {
	return a.getByField(ctx, q, "name", name)
}

func (a *ProviderAdapter) getByField(ctx context.Context, q repositories.Queryer, field, value string) (*entities.Provider, error) {
	query := fmt.Sprintf(`SELECT %s FROM providers WHERE %s = $1`, providerColumns, field)

	provider, err := scanProvider(q.QueryRowContext(ctx, query, value).Scan)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("provider with %s %s not found", field, value))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get provider", err)
	}
	return provider, nil
}

// UpdateFields applies column changes to a provider
func (a *ProviderAdapter) UpdateFields(ctx context.Context, q repositories.Queryer, id string, fields map[string]interface{}) error {
	record := goqu.Record{"updated_at": time.Now()}
	for column, value := range fields {
		record[column] = value
	}

	query, args, err := dialect.Update("providers").
		Set(record).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update provider", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("provider with id %s not found", id))
	}
	return nil
}

// Delete removes a provider. Link rows and registrations go with it.
func (a *ProviderAdapter) Delete(ctx context.Context, q repositories.Queryer, id string) error {
	for _, rel := range []repositories.Relation{repositories.RelationPlans, repositories.RelationCategories, repositories.RelationSpecialties} {
		if err := a.ReplaceLinks(ctx, q, id, rel, nil); err != nil {
			return err
		}
	}
	if err := a.ReplaceRegistrations(ctx, q, id, nil); err != nil {
		return err
	}

	result, err := q.ExecContext(ctx, `DELETE FROM providers WHERE id = $1`, id)
	if err != nil {
		return apperrors.NewInternalError("failed to delete provider", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("provider with id %s not found", id))
	}
	return nil
}

// ReplaceLinks deletes all link rows of the relation and inserts the new set
func (a *ProviderAdapter) ReplaceLinks(ctx context.Context, q repositories.Queryer, providerID string, rel repositories.Relation, ids []string) error {
	table, column, err := linkTable(rel)
	if err != nil {
		return err
	}

	if _, err := q.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE provider_id = $1`, table), providerID); err != nil {
		return apperrors.NewInternalError(fmt.Sprintf("failed to clear %s links", rel), err)
	}
	if len(ids) == 0 {
		return nil
	}

	records := make([]goqu.Record, 0, len(ids))
	for _, id := range ids {
		records = append(records, goqu.Record{"provider_id": providerID, column: id})
	}

	query, args, err := dialect.Insert(table).Rows(records).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build link insert query", err)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError(fmt.Sprintf("failed to insert %s links", rel), err)
	}
	return nil
}

// LinkedIDs returns the ids linked to the provider for the relation
func (a *ProviderAdapter) LinkedIDs(ctx context.Context, q repositories.Queryer, providerID string, rel repositories.Relation) ([]string, error) {
	table, column, err := linkTable(rel)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE provider_id = $1`, column, table), providerID)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("failed to list %s links", rel), err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewInternalError("failed to scan link row", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate link rows", err)
	}
	return ids, nil
}

// ReplaceRegistrations deletes all registrations for the provider and inserts the new set
func (a *ProviderAdapter) ReplaceRegistrations(ctx context.Context, q repositories.Queryer, providerID string, regs []*entities.Registration) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM registrations WHERE provider_id = $1`, providerID); err != nil {
		return apperrors.NewInternalError("failed to clear registrations", err)
	}
	if len(regs) == 0 {
		return nil
	}

	records := make([]goqu.Record, 0, len(regs))
	for _, reg := range regs {
		records = append(records, goqu.Record{
			"id":           reg.ID,
			"provider_id":  reg.ProviderID,
			"plan_id":      reg.PlanID,
			"specialty_id": reg.SpecialtyID,
			"created_at":   reg.CreatedAt,
		})
	}

	query, args, err := dialect.Insert("registrations").Rows(records).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build registration insert query", err)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to insert registrations", err)
	}
	return nil
}

// LocalityNames resolves a locality id to its name and province name
func (a *ProviderAdapter) LocalityNames(ctx context.Context, q repositories.Queryer, localityID string) (string, string, error) {
	query := `
		SELECT l.name, p.name
		FROM localities l
		JOIN provinces p ON p.id = l.province_id
		WHERE l.id = $1
	`

	var locality, province string
	err := q.QueryRowContext(ctx, query, localityID).Scan(&locality, &province)
	if err == sql.ErrNoRows {
		return "", "", apperrors.NewNotFoundError(fmt.Sprintf("locality with id %s not found", localityID))
	}
	if err != nil {
		return "", "", apperrors.NewInternalError("failed to resolve locality", err)
	}
	return locality, province, nil
}
