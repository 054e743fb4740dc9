package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/nourish/adapter/cli"
)

// ToolDependencies provides services and context for MCP tools.
type ToolDependencies struct {
	App *cli.App
}

// RegisterCLITools registers MCP tools that mirror CLI functionality.
func RegisterCLITools(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return errors.New("server is required")
	}
	if deps.App == nil {
		return errors.New("app is required")
	}

	registerCoreTools(srv, deps)
	registerSubscriptionTools(srv, deps)
	registerReferralTools(srv, deps)
	registerSocialTools(srv, deps)
	return nil
}

func registerCoreTools(srv *mcp.Server, deps ToolDependencies) {
	app := deps.App

	srv.Tool("cli.health").
		Description("Report which service groups are wired").
		Handler(func(ctx context.Context, input struct{}) (map[string]any, error) {
			return map[string]any{
				"user_id":      app.CurrentUserID.String(),
				"subscription": app.SubscriptionResolver != nil,
				"referral":     app.ReferralAcceptance != nil,
				"social":       app.SocialService != nil,
			}, nil
		})
}
