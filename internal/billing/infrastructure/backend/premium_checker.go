// Package backend adapts the hosted backend's billing functions.
package backend

import (
	"context"

	"github.com/felixgeelhaar/nourish/internal/billing/domain"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/rpc"
)

// DefaultPremiumCheckPath is the narrow-scope entitlement endpoint.
const DefaultPremiumCheckPath = rpc.FunctionsPath + "check-premium-access"

// Getter is the part of rpc.Client the checker needs.
type Getter interface {
	Get(ctx context.Context, path string, out any, opts ...rpc.CallOption) error
}

// PremiumChecker asks the backend whether the current session has premium access.
type PremiumChecker struct {
	client Getter
	path   string
}

// NewPremiumChecker creates a checker against path, or the default path when empty.
func NewPremiumChecker(client Getter, path string) *PremiumChecker {
	if path == "" {
		path = DefaultPremiumCheckPath
	}
	return &PremiumChecker{client: client, path: path}
}

type premiumAccessResponse struct {
	HasPremiumAccess bool `json:"hasPremiumAccess"`
}

// HasPremiumAccess implements domain.PremiumChecker.
func (c *PremiumChecker) HasPremiumAccess(ctx context.Context) (bool, error) {
	var resp premiumAccessResponse
	if err := c.client.Get(ctx, c.path, &resp); err != nil {
		return false, err
	}
	return resp.HasPremiumAccess, nil
}

var _ domain.PremiumChecker = (*PremiumChecker)(nil)
