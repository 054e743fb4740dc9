// Package domain models referral codes, affiliates and the client's record
// of accepted referrals.
package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultSource is the attribution source used when none is given.
const DefaultSource = "direct"

// ReferralCode is an allocated affiliate code.
type ReferralCode struct {
	Code    string
	OwnerID uuid.UUID
	// Verified is false when the code could not be confirmed unused.
	Verified bool
}

func (c ReferralCode) String() string {
	return c.Code
}

// NormalizeCode trims and lowercases a code typed or linked by a user.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// NormalizeSource returns source, or DefaultSource when blank.
func NormalizeSource(source string) string {
	source = strings.TrimSpace(source)
	if source == "" {
		return DefaultSource
	}
	return source
}

// PendingReferral is a referral accepted on this client but not yet credited.
type PendingReferral struct {
	Code    string    `json:"code"`
	Source  string    `json:"source"`
	ArmedAt time.Time `json:"armed_at"`
}

// CodeChecker reports whether a code is already owned by an affiliate.
type CodeChecker interface {
	CodeExists(ctx context.Context, code string) (bool, error)
}

// CreditGateway asks the backend to credit a referral. Every attempt of one
// acceptance carries the same idempotency key.
type CreditGateway interface {
	Credit(ctx context.Context, code, source, idempotencyKey string) error
}
