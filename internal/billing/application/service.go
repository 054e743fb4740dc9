package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/nourish/internal/billing/domain"
	sharedApplication "github.com/felixgeelhaar/nourish/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/nourish/internal/shared/domain"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/nourish/pkg/observability"
	"github.com/google/uuid"
)

// Invalidator drops a user's cached snapshot.
type Invalidator interface {
	Invalidate(ctx context.Context, userID uuid.UUID)
}

// Service reads and changes subscription records.
type Service struct {
	subscriptions domain.SubscriptionRepository
	profiles      domain.ProfileRepository
	uow           sharedApplication.UnitOfWork
	snapshots     Invalidator
	publisher     eventbus.Publisher
	outbox        outbox.Repository
	logger        *slog.Logger
}

// NewService creates a new billing service. A nil publisher disables events.
func NewService(
	subscriptions domain.SubscriptionRepository,
	profiles domain.ProfileRepository,
	uow sharedApplication.UnitOfWork,
	snapshots Invalidator,
	publisher eventbus.Publisher,
	logger *slog.Logger,
) *Service {
	return &Service{
		subscriptions: subscriptions,
		profiles:      profiles,
		uow:           uow,
		snapshots:     snapshots,
		publisher:     publisher,
		logger:        observability.ForComponent(logger, "billing_service"),
	}
}

// WithOutbox stages events in the subscription's transaction instead of
// publishing them after commit. The worker's outbox processor relays them.
func (s *Service) WithOutbox(repo outbox.Repository) *Service {
	s.outbox = repo
	return s
}

// GetSubscription returns the user's subscription record.
func (s *Service) GetSubscription(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.subscriptions.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domain.ErrSubscriptionNotFound
	}
	return sub, nil
}

// RecordCheckout applies a completed checkout to the user's subscription.
func (s *Service) RecordCheckout(ctx context.Context, checkout domain.Checkout) (*domain.Subscription, error) {
	if err := checkout.Validate(); err != nil {
		return nil, err
	}
	return s.change(ctx, checkout.UserID, func(sub *domain.Subscription) error {
		return sub.Activate(checkout)
	}, true)
}

// CancelSubscription cancels the user's subscription.
func (s *Service) CancelSubscription(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	return s.change(ctx, userID, (*domain.Subscription).Cancel, false)
}

func (s *Service) change(ctx context.Context, userID uuid.UUID, apply func(*domain.Subscription) error, create bool) (*domain.Subscription, error) {
	var sub *domain.Subscription
	err := sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		existing, err := s.subscriptions.FindByUserID(txCtx, userID)
		if err != nil {
			return err
		}
		if existing == nil {
			if !create {
				return domain.ErrSubscriptionNotFound
			}
			existing = domain.NewSubscription(userID)
		}
		if err := apply(existing); err != nil {
			return err
		}
		if err := s.subscriptions.Upsert(txCtx, existing); err != nil {
			return err
		}
		if err := s.profiles.SetSubscriptionStatus(txCtx, userID, string(existing.Status)); err != nil {
			return err
		}
		if s.outbox != nil {
			if err := s.stage(txCtx, existing); err != nil {
				return err
			}
		}
		sub = existing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update subscription: %w", err)
	}

	s.snapshots.Invalidate(ctx, userID)
	if s.outbox == nil {
		s.publish(ctx, sub)
	}
	return sub, nil
}

type payloadEvent interface {
	sharedDomain.DomainEvent
	EventPayload() any
}

// stage writes the aggregate's events to the outbox inside the transaction.
func (s *Service) stage(ctx context.Context, sub *domain.Subscription) error {
	events := sub.DomainEvents()
	sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(ctx, sub.UserID))

	messages := make([]*outbox.Message, 0, len(events))
	for _, event := range events {
		pe, ok := event.(payloadEvent)
		if !ok {
			continue
		}
		msg, err := outbox.NewMessage(pe, pe.EventPayload())
		if err != nil {
			return err
		}
		messages = append(messages, msg)
	}
	if err := s.outbox.SaveBatch(ctx, messages); err != nil {
		return fmt.Errorf("stage events: %w", err)
	}
	sub.ClearDomainEvents()
	return nil
}

// publish sends the aggregate's events. The change is already committed, so
// failures are logged rather than returned.
func (s *Service) publish(ctx context.Context, sub *domain.Subscription) {
	events := sub.DomainEvents()
	sub.ClearDomainEvents()
	if s.publisher == nil {
		return
	}

	sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(ctx, sub.UserID))
	for _, event := range events {
		pe, ok := event.(payloadEvent)
		if !ok {
			continue
		}
		if err := eventbus.PublishEvent(ctx, s.publisher, pe, pe.EventPayload()); err != nil {
			s.logger.Error("failed to publish event",
				"routing_key", event.RoutingKey(),
				observability.ErrorKey, err,
			)
		}
	}
}
