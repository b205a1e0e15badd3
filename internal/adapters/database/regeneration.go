package database

import (
	"context"

	"github.com/cartillasalud/backend/internal/domain/repositories"
	apperrors "github.com/cartillasalud/backend/pkg/errors"
)

// regenerationStatements rebuilds the normalized tables from the directory
// contents. Order matters: lookup entities before providers, providers before
// registrations and links, backfills last. Every statement is idempotent over
// the directory's current contents.
var regenerationStatements = []struct {
	name string
	sql  string
}{
	{
		name: "clear links and registrations",
		sql:  `TRUNCATE provider_plans, provider_categories, provider_specialties, registrations`,
	},
	{
		name: "insert missing plans",
		sql: `
			INSERT INTO plans (id, name, status, created_at, updated_at)
			SELECT gen_random_uuid(), d.plan_name, 'Active', NOW(), NOW()
			FROM (SELECT DISTINCT plan_name FROM directory_entries WHERE plan_name <> '') d
			LEFT JOIN plans p ON p.name = d.plan_name
			WHERE p.id IS NULL`,
	},
	{
		name: "insert missing specialties",
		sql: `
			INSERT INTO specialties (id, name, status, created_at, updated_at)
			SELECT gen_random_uuid(), d.specialty_name, 'Active', NOW(), NOW()
			FROM (SELECT DISTINCT specialty_name FROM directory_entries WHERE specialty_name <> '') d
			LEFT JOIN specialties s ON s.name = d.specialty_name
			WHERE s.id IS NULL`,
	},
	{
		name: "insert missing categories",
		sql: `
			INSERT INTO categories (id, name, status, created_at, updated_at)
			SELECT gen_random_uuid(), d.name, 'Active', NOW(), NOW()
			FROM (
				SELECT DISTINCT btrim(unnest(string_to_array(category_names, ','))) AS name
				FROM directory_entries
				WHERE category_names <> ''
			) d
			LEFT JOIN categories c ON c.name = d.name
			WHERE c.id IS NULL AND d.name <> ''`,
	},
	{
		name: "insert missing provinces",
		sql: `
			INSERT INTO provinces (id, name, status, created_at, updated_at)
			SELECT gen_random_uuid(), d.province_name, 'Active', NOW(), NOW()
			FROM (SELECT DISTINCT province_name FROM directory_entries WHERE province_name <> '') d
			LEFT JOIN provinces p ON p.name = d.province_name
			WHERE p.id IS NULL`,
	},
	{
		name: "insert missing localities",
		sql: `
			INSERT INTO localities (id, name, province_id, status, created_at, updated_at)
			SELECT gen_random_uuid(), d.locality_name, p.id, 'Active', NOW(), NOW()
			FROM (
				SELECT DISTINCT locality_name, province_name
				FROM directory_entries
				WHERE locality_name <> ''
			) d
			JOIN provinces p ON p.name = d.province_name
			LEFT JOIN localities l ON l.name = d.locality_name AND l.province_id = p.id
			WHERE l.id IS NULL`,
	},
	{
		name: "insert missing providers",
		sql: `
			INSERT INTO providers (id, name, address, phones, email, extra_info, locality_id, status, created_at, updated_at)
			SELECT gen_random_uuid(), d.provider_name, d.address, d.phones, d.email, d.extra_info, l.id, d.status, NOW(), NOW()
			FROM (
				SELECT DISTINCT ON (provider_name)
					provider_name, address, phones, email, extra_info, locality_name, province_name, status
				FROM directory_entries
				ORDER BY provider_name, created_at
			) d
			LEFT JOIN provinces pr ON pr.name = d.province_name
			LEFT JOIN localities l ON l.name = d.locality_name AND l.province_id = pr.id
			LEFT JOIN providers p ON p.name = d.provider_name
			WHERE p.id IS NULL`,
	},
	{
		name: "backfill provider ids",
		sql: `
			UPDATE directory_entries de
			SET provider_id = p.id
			FROM providers p
			WHERE de.provider_name = p.name`,
	},
	{
		name: "rebuild registrations",
		sql: `
			INSERT INTO registrations (id, provider_id, plan_id, specialty_id, created_at)
			SELECT gen_random_uuid(), d.provider_id, pl.id, sp.id, NOW()
			FROM (
				SELECT DISTINCT provider_id, plan_name, specialty_name
				FROM directory_entries
				WHERE provider_id IS NOT NULL
			) d
			JOIN plans pl ON pl.name = d.plan_name
			JOIN specialties sp ON sp.name = d.specialty_name`,
	},
	{
		name: "backfill registration ids",
		sql: `
			UPDATE directory_entries de
			SET registration_id = r.id
			FROM registrations r
			JOIN plans pl ON pl.id = r.plan_id
			JOIN specialties sp ON sp.id = r.specialty_id
			WHERE r.provider_id = de.provider_id
			  AND pl.name = de.plan_name
			  AND sp.name = de.specialty_name`,
	},
	{
		name: "rebuild plan links",
		sql: `
			INSERT INTO provider_plans (provider_id, plan_id)
			SELECT DISTINCT de.provider_id, pl.id
			FROM directory_entries de
			JOIN plans pl ON pl.name = de.plan_name
			WHERE de.provider_id IS NOT NULL`,
	},
	{
		name: "rebuild specialty links",
		sql: `
			INSERT INTO provider_specialties (provider_id, specialty_id)
			SELECT DISTINCT de.provider_id, sp.id
			FROM directory_entries de
			JOIN specialties sp ON sp.name = de.specialty_name
			WHERE de.provider_id IS NOT NULL`,
	},
	{
		name: "rebuild category links",
		sql: `
			INSERT INTO provider_categories (provider_id, category_id)
			SELECT DISTINCT de.provider_id, c.id
			FROM directory_entries de
			CROSS JOIN LATERAL unnest(string_to_array(de.category_names, ',')) AS cat(name)
			JOIN categories c ON c.name = btrim(cat.name)
			WHERE de.provider_id IS NOT NULL AND de.category_names <> ''`,
	},
}

// Regenerate reconciles the normalized tables against the distinct values in
// the directory table. Runs inside the import transaction.
func (a *DirectoryAdapter) Regenerate(ctx context.Context, q repositories.Queryer) error {
	for _, stmt := range regenerationStatements {
		if _, err := q.ExecContext(ctx, stmt.sql); err != nil {
			return apperrors.NewInternalError("regeneration failed at: "+stmt.name, err)
		}
	}
	return nil
}
