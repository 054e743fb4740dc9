// Package backend adapts the hosted backend's social functions.
package backend

import (
	"context"

	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/rpc"
	"github.com/felixgeelhaar/nourish/internal/social/domain"
)

// Backend function names.
const (
	ConnectFunction = "connect-social-account"
	ShareFunction   = "share-content"
)

// Invoker is the part of rpc.Client the gateway needs.
type Invoker interface {
	Invoke(ctx context.Context, function string, body any, out any, opts ...rpc.CallOption) error
}

// Gateway implements domain.Gateway over backend functions.
type Gateway struct {
	client Invoker
}

// NewGateway creates a new gateway.
func NewGateway(client Invoker) *Gateway {
	return &Gateway{client: client}
}

type connectResponse struct {
	Account domain.AccountRecord `json:"account"`
}

// Connect implements domain.Gateway.
func (g *Gateway) Connect(ctx context.Context, req domain.ConnectRequest, idempotencyKey string) (*domain.AccountRecord, error) {
	var resp connectResponse
	if err := g.client.Invoke(ctx, ConnectFunction, req, &resp, rpc.WithIdempotencyKey(idempotencyKey)); err != nil {
		return nil, err
	}
	if resp.Account.Provider == "" {
		resp.Account.Provider = req.Provider
	}
	return &resp.Account, nil
}

type shareResponse struct {
	Results []domain.ShareResult `json:"results"`
}

// Share implements domain.Gateway.
func (g *Gateway) Share(ctx context.Context, req domain.ShareRequest, idempotencyKey string) ([]domain.ShareResult, error) {
	var resp shareResponse
	if err := g.client.Invoke(ctx, ShareFunction, req, &resp, rpc.WithIdempotencyKey(idempotencyKey)); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

var _ domain.Gateway = (*Gateway)(nil)
