package entities

import "time"

// AuditAction identifies the kind of write being attributed
type AuditAction string

const (
	AuditActionImport       AuditAction = "import"
	AuditActionCreate       AuditAction = "create"
	AuditActionUpdate       AuditAction = "update"
	AuditActionDelete       AuditAction = "delete"
	AuditActionToggleStatus AuditAction = "toggle_status"
)

// AuditEvent describes a successful write for the audit collaborator. It is
// published after commit, outside the write transaction.
type AuditEvent struct {
	ID         string            `json:"id"`
	Actor      string            `json:"actor"`
	Action     AuditAction       `json:"action"`
	EntityType string            `json:"entity_type"`
	EntityIDs  []string          `json:"entity_ids,omitempty"`
	Summary    map[string]string `json:"summary,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}
