package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/nourish/adapter/cli"
	socialDomain "github.com/felixgeelhaar/nourish/internal/social/domain"
)

type socialConnectInput struct {
	Provider    string `json:"provider" jsonschema:"required"`
	Code        string `json:"code" jsonschema:"required"`
	RedirectURI string `json:"redirect_uri" jsonschema:"required"`
}

type socialShareInput struct {
	Platforms []string `json:"platforms" jsonschema:"required"`
	Caption   string   `json:"caption,omitempty"`
	MediaURL  string   `json:"media_url,omitempty"`
	Link      string   `json:"link,omitempty"`
}

func registerSocialTools(srv *mcp.Server, deps ToolDependencies) {
	srv.Tool("social.connect").
		Description("Link a social account using an OAuth authorization code").
		Handler(socialConnect(deps.App))

	srv.Tool("social.share").
		Description("Share content to one or more linked platforms").
		Handler(socialShare(deps.App))
}

func socialConnect(app *cli.App) func(context.Context, socialConnectInput) (*socialDomain.AccountRecord, error) {
	return func(ctx context.Context, input socialConnectInput) (*socialDomain.AccountRecord, error) {
		if app == nil || app.SocialService == nil {
			return nil, errors.New("social accounts require the backend connection")
		}
		return app.SocialService.ConnectAccount(ctx, input.Provider, input.Code, input.RedirectURI)
	}
}

func socialShare(app *cli.App) func(context.Context, socialShareInput) ([]socialDomain.ShareResult, error) {
	return func(ctx context.Context, input socialShareInput) ([]socialDomain.ShareResult, error) {
		if app == nil || app.SocialService == nil {
			return nil, errors.New("social accounts require the backend connection")
		}
		return app.SocialService.ShareContent(ctx, socialDomain.ShareRequest{
			Platforms: input.Platforms,
			Caption:   input.Caption,
			MediaURL:  input.MediaURL,
			Link:      input.Link,
		})
	}
}
