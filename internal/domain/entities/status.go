package entities

import "strings"

// Status represents the visibility state of an entity
type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

// ParseStatus parses a status value, accepting case-insensitive input
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active":
		return StatusActive, true
	case "inactive":
		return StatusInactive, true
	}
	return "", false
}

// Toggle returns the opposite status
func (s Status) Toggle() Status {
	if s == StatusActive {
		return StatusInactive
	}
	return StatusActive
}

// IsValid reports whether s is a known status value
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusInactive
}
