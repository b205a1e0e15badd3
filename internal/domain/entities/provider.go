package entities

import "time"

// Provider represents a medical service provider
type Provider struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Address    string    `json:"address" db:"address"`
	Phones     string    `json:"phones" db:"phones"`
	Email      string    `json:"email" db:"email"`
	ExtraInfo  string    `json:"extra_info" db:"extra_info"`
	LocalityID string    `json:"locality_id,omitempty" db:"locality_id"`
	Status     Status    `json:"status" db:"status"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Registration represents one provider's participation in one plan under one
// specialty. Directory entries are derived from registrations one to one.
type Registration struct {
	ID          string    `json:"id" db:"id"`
	ProviderID  string    `json:"provider_id" db:"provider_id"`
	PlanID      string    `json:"plan_id" db:"plan_id"`
	SpecialtyID string    `json:"specialty_id" db:"specialty_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ResolvedProvider is a provider with its relations resolved to names
type ResolvedProvider struct {
	Provider
	Plans       []string `json:"plans"`
	Categories  []string `json:"categories"`
	Specialties []string `json:"specialties"`
	Locality    string   `json:"locality,omitempty"`
	Province    string   `json:"province,omitempty"`
}
