package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Profile is the user's profile row. Its coarse subscription status field is
// the secondary entitlement source.
type Profile struct {
	UserID             uuid.UUID
	DisplayName        string
	SubscriptionStatus string
}

// activeEquivalent lists the profile status values that grant access.
var activeEquivalent = map[string]struct{}{
	"active":   {},
	"trialing": {},
	"premium":  {},
	"pro":      {},
}

// IsActiveEquivalent reports whether a profile status grants premium access.
func IsActiveEquivalent(status string) bool {
	_, ok := activeEquivalent[strings.ToLower(strings.TrimSpace(status))]
	return ok
}

// Entitled reports whether the profile grants premium access.
func (p *Profile) Entitled() bool {
	return p != nil && IsActiveEquivalent(p.SubscriptionStatus)
}

// SnapshotStatus maps the profile status onto a snapshot status. ok is false
// when the profile carries no recognizable status.
func (p *Profile) SnapshotStatus() (status Status, ok bool) {
	if p == nil {
		return StatusNone, false
	}
	if p.Entitled() {
		return StatusActive, true
	}
	switch ParseSubscriptionStatus(p.SubscriptionStatus) {
	case SubscriptionPastDue:
		return StatusPastDue, true
	case SubscriptionCanceled:
		return StatusCanceled, true
	}
	return StatusNone, false
}
