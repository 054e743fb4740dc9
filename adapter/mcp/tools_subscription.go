package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/nourish/adapter/cli"
	billingDomain "github.com/felixgeelhaar/nourish/internal/billing/domain"
)

type subscriptionStatusInput struct {
	Refresh bool `json:"refresh,omitempty"`
}

func registerSubscriptionTools(srv *mcp.Server, deps ToolDependencies) {
	srv.Tool("subscription.status").
		Description("Resolve the current user's subscription entitlement").
		Handler(subscriptionStatus(deps.App))
}

func subscriptionStatus(app *cli.App) func(context.Context, subscriptionStatusInput) (*billingDomain.Snapshot, error) {
	return func(ctx context.Context, input subscriptionStatusInput) (*billingDomain.Snapshot, error) {
		if app == nil || app.SubscriptionResolver == nil {
			return nil, errors.New("subscription status requires database connection")
		}
		if input.Refresh {
			app.SubscriptionResolver.Invalidate(ctx, app.CurrentUserID)
		}
		snap := app.SubscriptionResolver.Resolve(ctx, app.CurrentUserID)
		return &snap, nil
	}
}
