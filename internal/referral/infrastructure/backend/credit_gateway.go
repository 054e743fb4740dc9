// Package backend adapts the hosted backend's referral function.
package backend

import (
	"context"

	"github.com/felixgeelhaar/nourish/internal/referral/domain"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/rpc"
)

// AcceptReferralFunction is the backend function that credits a referral.
const AcceptReferralFunction = "accept-referral"

// Invoker is the part of rpc.Client the gateway needs.
type Invoker interface {
	Invoke(ctx context.Context, function string, body any, out any, opts ...rpc.CallOption) error
}

// CreditGateway credits referrals through the backend.
type CreditGateway struct {
	client Invoker
}

// NewCreditGateway creates a new gateway.
func NewCreditGateway(client Invoker) *CreditGateway {
	return &CreditGateway{client: client}
}

type acceptReferralRequest struct {
	Code   string `json:"code"`
	Source string `json:"source"`
}

// Credit implements domain.CreditGateway.
func (g *CreditGateway) Credit(ctx context.Context, code, source, idempotencyKey string) error {
	return g.client.Invoke(ctx, AcceptReferralFunction,
		acceptReferralRequest{Code: code, Source: source}, nil,
		rpc.WithIdempotencyKey(idempotencyKey))
}

var _ domain.CreditGateway = (*CreditGateway)(nil)
