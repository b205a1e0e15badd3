package entities

import "time"

// DirectoryEntry is the denormalized, read-optimized representation of one
// registration: provider contact fields plus resolved display names for every
// dimension. It is never authoritative; it is always derivable from the
// normalized tables.
type DirectoryEntry struct {
	ID             string    `json:"id" db:"id"`
	RegistrationID string    `json:"registration_id,omitempty" db:"registration_id"`
	ProviderID     string    `json:"provider_id,omitempty" db:"provider_id"`
	ProviderName   string    `json:"provider_name" db:"provider_name"`
	Address        string    `json:"address" db:"address"`
	Phones         string    `json:"phones" db:"phones"`
	Email          string    `json:"email" db:"email"`
	ExtraInfo      string    `json:"extra_info" db:"extra_info"`
	LocalityName   string    `json:"locality_name" db:"locality_name"`
	ProvinceName   string    `json:"province_name" db:"province_name"`
	CategoryNames  string    `json:"category_names" db:"category_names"`
	SpecialtyName  string    `json:"specialty_name" db:"specialty_name"`
	PlanName       string    `json:"plan_name" db:"plan_name"`
	Status         Status    `json:"status" db:"status"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
