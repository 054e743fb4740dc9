package domain

import (
	"time"

	sharedDomain "github.com/felixgeelhaar/nourish/internal/shared/domain"
)

const (
	// AggregateTypeSubscription is the aggregate type of billing events.
	AggregateTypeSubscription = "subscription"

	// RoutingKeySubscriptionChanged is published whenever entitlement may
	// have changed.
	RoutingKeySubscriptionChanged = "billing.subscription.changed"
)

// SubscriptionChanged is raised by every status transition.
type SubscriptionChanged struct {
	sharedDomain.BaseEvent
	Payload SubscriptionChangedPayload
}

// SubscriptionChangedPayload is the wire payload of SubscriptionChanged.
type SubscriptionChangedPayload struct {
	UserID           string     `json:"user_id"`
	PreviousStatus   string     `json:"previous_status,omitempty"`
	Status           string     `json:"status"`
	PlanID           *string    `json:"plan_id,omitempty"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
}

// NewSubscriptionChanged creates the event for a transition from previous.
func NewSubscriptionChanged(sub *Subscription, previous SubscriptionStatus) *SubscriptionChanged {
	return &SubscriptionChanged{
		BaseEvent: sharedDomain.NewBaseEvent(sub.UserID, AggregateTypeSubscription, RoutingKeySubscriptionChanged),
		Payload: SubscriptionChangedPayload{
			UserID:           sub.UserID.String(),
			PreviousStatus:   string(previous),
			Status:           string(sub.Status),
			PlanID:           sub.PlanID,
			CurrentPeriodEnd: sub.CurrentPeriodEnd,
		},
	}
}

// EventPayload returns the value serialized into the event envelope.
func (e *SubscriptionChanged) EventPayload() any {
	return e.Payload
}
