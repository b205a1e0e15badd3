package providers

import (
	"context"

	"github.com/cartillasalud/backend/internal/domain/entities"
)

// AuditChannel is the channel audit events are published on
const AuditChannel = "directory:audit"

// AuditPublisher delivers audit events to the audit collaborator. Publishing
// happens after the write transaction has committed and is best-effort: a
// failed publish must never affect the committed write.
type AuditPublisher interface {
	Publish(ctx context.Context, event *entities.AuditEvent) error
	Close() error
}
