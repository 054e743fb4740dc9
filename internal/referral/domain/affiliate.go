package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Affiliate is a user who owns a referral code.
type Affiliate struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Code        string
	DisplayName string
	Verified    bool
	CreatedAt   time.Time
}

// NewAffiliate creates an affiliate owning code.
func NewAffiliate(userID uuid.UUID, displayName string, code ReferralCode) (*Affiliate, error) {
	if userID == uuid.Nil {
		return nil, ErrInvalidAffiliate
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, ErrInvalidAffiliate
	}
	return &Affiliate{
		ID:          uuid.New(),
		UserID:      userID,
		Code:        code.Code,
		DisplayName: displayName,
		Verified:    code.Verified,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// AffiliateRepository persists affiliates. The store's unique constraint on
// code is authoritative: Create returns ErrCodeTaken when it is violated.
type AffiliateRepository interface {
	CodeChecker
	Create(ctx context.Context, affiliate *Affiliate) error
	// FindByUserID returns nil, nil when the user is not an affiliate.
	FindByUserID(ctx context.Context, userID uuid.UUID) (*Affiliate, error)
}
