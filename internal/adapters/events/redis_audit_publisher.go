package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cartillasalud/backend/internal/domain/entities"
	"github.com/cartillasalud/backend/internal/domain/providers"
	redisclient "github.com/cartillasalud/backend/internal/infrastructure/clients/redis"
)

// RedisAuditPublisher delivers audit events over Redis Pub/Sub. The audit
// collaborator subscribes on the other end; delivery is fire-and-forget.
type RedisAuditPublisher struct {
	client *redisclient.Client
}

// NewRedisAuditPublisher creates a new Redis-backed audit publisher
func NewRedisAuditPublisher(client *redisclient.Client) providers.AuditPublisher {
	return &RedisAuditPublisher{client: client}
}

// Publish publishes an audit event on the audit channel
func (p *RedisAuditPublisher) Publish(ctx context.Context, event *entities.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	if err := p.client.Client().Publish(ctx, providers.AuditChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish audit event: %w", err)
	}

	log.Debug().
		Str("action", string(event.Action)).
		Str("entity_type", event.EntityType).
		Str("actor", event.Actor).
		Msg("audit event published")
	return nil
}

// Close is a no-op; the Redis client is owned by the caller
func (p *RedisAuditPublisher) Close() error {
	return nil
}
