package entities

import "time"

// CatalogEntry represents a simple lookup entity (plan, category, specialty,
// province or locality). Which fields apply is driven by the entity's
// Descriptor; ProvinceID is only set for localities.
type CatalogEntry struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	ProvinceID string    `json:"province_id,omitempty" db:"province_id"`
	Status     Status    `json:"status" db:"status"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
