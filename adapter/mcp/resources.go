package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"
)

// RegisterResources registers MCP resources that expose Nourish state.
func RegisterResources(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}
	app := deps.App

	srv.Resource("nourish://subscription").
		Name("Subscription").
		Description("Resolved subscription entitlement for the current user").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			if app == nil || app.SubscriptionResolver == nil {
				return nil, fmt.Errorf("subscription status requires database connection")
			}
			return jsonResource(uri, app.SubscriptionResolver.Resolve(ctx, app.CurrentUserID))
		})

	srv.Resource("nourish://referral/pending").
		Name("Pending Referral").
		Description("Referral waiting to be credited, if any").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			if app == nil || app.ReferralTracker == nil {
				return nil, fmt.Errorf("referral tracking requires database connection")
			}
			pending, err := app.ReferralTracker.Pending(ctx)
			if err != nil {
				return nil, err
			}
			return jsonResource(uri, map[string]any{"pending": pending})
		})

	srv.Resource("nourish://social/providers").
		Name("Social Providers").
		Description("Supported social providers and whether each is configured").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			if app == nil || app.SocialService == nil {
				return nil, fmt.Errorf("social accounts require the backend connection")
			}
			catalogue := app.SocialService.Providers()
			providers := make([]map[string]any, 0, len(catalogue))
			for _, name := range catalogue.Names() {
				p := catalogue[name]
				providers = append(providers, map[string]any{
					"name":         p.Name,
					"display_name": p.DisplayName,
					"configured":   p.Configured(),
					"scopes":       p.Scopes,
				})
			}
			return jsonResource(uri, providers)
		})

	return nil
}

func jsonResource(uri string, v any) (*mcp.ResourceContent, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.ResourceContent{
		URI:      uri,
		MimeType: "application/json",
		Text:     string(data),
	}, nil
}
