package mcp

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"
)

// RegisterPrompts registers MCP prompts for common Nourish workflows.
func RegisterPrompts(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}

	srv.Prompt("share_recipe").
		Description("Cross-post a recipe to the user's linked social accounts.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return &mcp.PromptResult{
				Description: "Share a recipe",
				Messages: []mcp.PromptMessage{
					{
						Role: string(mcp.RoleUser),
						Content: mcp.TextContent{
							Type: "text",
							Text: `Help me share a recipe. Please:

1. Read nourish://social/providers to see which platforms are configured
2. Draft a short caption for each platform I choose
3. Call social.share with the platforms, caption, and any media URL or link

Report which platforms succeeded and show any error messages for the ones that failed.`,
						},
					},
				},
			}, nil
		})

	srv.Prompt("referral_onboarding").
		Description("Walk a new affiliate through getting a referral code.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return &mcp.PromptResult{
				Description: "Referral onboarding",
				Messages: []mcp.PromptMessage{
					{
						Role: string(mcp.RoleUser),
						Content: mcp.TextContent{
							Type: "text",
							Text: `I want to refer friends. Please:

1. Ask me which name my code should be based on
2. Call referral.allocate with that name
3. If the code is not verified, tell me it may already be taken and offer to try again`,
						},
					},
				},
			}, nil
		})

	return nil
}
