package domain

import (
	"context"

	"github.com/google/uuid"
)

// SubscriptionRepository persists subscription records.
type SubscriptionRepository interface {
	Upsert(ctx context.Context, subscription *Subscription) error
	// FindByUserID returns nil, nil when the user has no record.
	FindByUserID(ctx context.Context, userID uuid.UUID) (*Subscription, error)
}

// ProfileRepository reads and updates profile rows.
type ProfileRepository interface {
	// FindByUserID returns nil, nil when the user has no profile.
	FindByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error)
	SetSubscriptionStatus(ctx context.Context, userID uuid.UUID, status string) error
}

// PremiumChecker is the narrow-scope remote entitlement check for the
// current session.
type PremiumChecker interface {
	HasPremiumAccess(ctx context.Context) (bool, error)
}
