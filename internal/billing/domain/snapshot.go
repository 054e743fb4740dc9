package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the canonical entitlement status exposed to callers.
type Status string

const (
	StatusNone     Status = "none"
	StatusActive   Status = "active"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
)

// Source names where a snapshot came from.
type Source string

const (
	SourcePrimary          Source = "primary"
	SourceSecondaryProfile Source = "secondary_profile"
	SourceTertiaryCheck    Source = "tertiary_check"
	SourceCached           Source = "cached"
)

// Snapshot is the resolved entitlement state for one user.
type Snapshot struct {
	Status           Status     `json:"status"`
	PlanID           *string    `json:"plan_id,omitempty"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	HasEntitlement   bool       `json:"has_entitlement"`
	Source           Source     `json:"source"`
	ResolvedAt       time.Time  `json:"resolved_at"`
}

// CacheKey is the cache key for a user's snapshot.
func CacheKey(userID uuid.UUID) string {
	return "subscription:" + userID.String()
}

// SnapshotFromSubscription builds a primary snapshot from a usable record.
func SnapshotFromSubscription(sub *Subscription, resolvedAt time.Time) Snapshot {
	return Snapshot{
		Status:           sub.Status.SnapshotStatus(),
		PlanID:           sub.PlanID,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
		HasEntitlement:   sub.Status.Entitled(),
		Source:           SourcePrimary,
		ResolvedAt:       resolvedAt,
	}
}

// SnapshotStatus maps a record status onto a snapshot status.
func (s SubscriptionStatus) SnapshotStatus() Status {
	switch s {
	case SubscriptionActive, SubscriptionTrialing:
		return StatusActive
	case SubscriptionPastDue:
		return StatusPastDue
	case SubscriptionCanceled:
		return StatusCanceled
	}
	return StatusNone
}
