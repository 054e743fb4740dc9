package domain

import (
	"strings"
	"time"

	sharedDomain "github.com/felixgeelhaar/nourish/internal/shared/domain"
	"github.com/google/uuid"
)

// SubscriptionStatus is the billing state stored on a subscription record.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Known reports whether the status is one the resolver understands.
func (s SubscriptionStatus) Known() bool {
	switch s {
	case SubscriptionActive, SubscriptionTrialing, SubscriptionPastDue, SubscriptionCanceled:
		return true
	}
	return false
}

// Entitled reports whether the status grants premium access.
func (s SubscriptionStatus) Entitled() bool {
	return s == SubscriptionActive || s == SubscriptionTrialing
}

// ParseSubscriptionStatus normalizes a stored status. "cancelled" is accepted
// as a spelling of canceled.
func ParseSubscriptionStatus(raw string) SubscriptionStatus {
	status := SubscriptionStatus(strings.ToLower(strings.TrimSpace(raw)))
	if status == "cancelled" {
		return SubscriptionCanceled
	}
	return status
}

// Subscription is a user's subscription record, the primary entitlement source.
type Subscription struct {
	sharedDomain.BaseAggregateRoot

	UserID                 uuid.UUID
	Status                 SubscriptionStatus
	PlanID                 *string
	CurrentPeriodEnd       *time.Time
	ProviderCustomerID     string
	ProviderSubscriptionID string
	UpdatedAt              time.Time
}

// NewSubscription creates an empty record for userID.
func NewSubscription(userID uuid.UUID) *Subscription {
	return &Subscription{UserID: userID}
}

// Usable reports whether the record can answer an entitlement question.
func (s *Subscription) Usable() bool {
	return s != nil && s.Status.Known()
}

// Activate applies a completed checkout.
func (s *Subscription) Activate(checkout Checkout) error {
	if err := checkout.Validate(); err != nil {
		return err
	}
	previous := s.Status

	plan := checkout.PlanID
	s.PlanID = &plan
	s.Status = SubscriptionActive
	if checkout.Trial {
		s.Status = SubscriptionTrialing
	}
	s.CurrentPeriodEnd = checkout.CurrentPeriodEnd
	s.ProviderCustomerID = checkout.CustomerID
	s.ProviderSubscriptionID = checkout.SubscriptionID
	s.UpdatedAt = time.Now().UTC()

	s.AddDomainEvent(NewSubscriptionChanged(s, previous))
	return nil
}

// Cancel ends the subscription.
func (s *Subscription) Cancel() error {
	if s.Status == SubscriptionCanceled {
		return ErrAlreadyCanceled
	}
	previous := s.Status
	s.Status = SubscriptionCanceled
	s.UpdatedAt = time.Now().UTC()

	s.AddDomainEvent(NewSubscriptionChanged(s, previous))
	return nil
}

// Checkout describes a completed hosted checkout.
type Checkout struct {
	UserID           uuid.UUID
	PlanID           string
	CurrentPeriodEnd *time.Time
	CustomerID       string
	SubscriptionID   string
	Trial            bool
}

// Validate checks the checkout has what a subscription record needs.
func (c Checkout) Validate() error {
	if c.UserID == uuid.Nil {
		return ErrInvalidCheckout
	}
	if strings.TrimSpace(c.PlanID) == "" {
		return ErrInvalidCheckout
	}
	return nil
}
