package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/nourish/internal/billing/domain"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/nourish/pkg/observability"
	"github.com/google/uuid"
)

// CacheInvalidationConsumer drops cached snapshots when another instance
// changes a subscription.
type CacheInvalidationConsumer struct {
	snapshots Invalidator
	logger    *slog.Logger
}

// NewCacheInvalidationConsumer creates the consumer.
func NewCacheInvalidationConsumer(snapshots Invalidator, logger *slog.Logger) *CacheInvalidationConsumer {
	return &CacheInvalidationConsumer{
		snapshots: snapshots,
		logger:    observability.ForComponent(logger, "cache_invalidation"),
	}
}

func (c *CacheInvalidationConsumer) EventTypes() []string {
	return []string{domain.RoutingKeySubscriptionChanged}
}

func (c *CacheInvalidationConsumer) Handle(ctx context.Context, event *eventbus.Envelope) error {
	var payload domain.SubscriptionChangedPayload
	if err := event.DecodePayload(&payload); err != nil {
		return fmt.Errorf("decode %s: %w", event.RoutingKey, err)
	}
	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		userID = event.AggregateID
	}
	if userID == uuid.Nil {
		return fmt.Errorf("event %s carries no user", event.EventID)
	}

	c.snapshots.Invalidate(ctx, userID)
	c.logger.Debug("subscription snapshot invalidated", "user_id", userID.String())
	return nil
}

var _ eventbus.EventConsumer = (*CacheInvalidationConsumer)(nil)
