package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/nourish/adapter/cli"
	referralDomain "github.com/felixgeelhaar/nourish/internal/referral/domain"
)

type referralAllocateInput struct {
	Name string `json:"name" jsonschema:"required"`
}

type referralAcceptInput struct {
	Code   string `json:"code" jsonschema:"required"`
	Source string `json:"source,omitempty"`
}

func registerReferralTools(srv *mcp.Server, deps ToolDependencies) {
	srv.Tool("referral.allocate").
		Description("Suggest an unused referral code derived from a name").
		Handler(referralAllocate(deps.App))

	srv.Tool("referral.accept").
		Description("Accept a referral code; already-credited codes are skipped").
		Handler(referralAccept(deps.App))
}

func referralAllocate(app *cli.App) func(context.Context, referralAllocateInput) (map[string]any, error) {
	return func(ctx context.Context, input referralAllocateInput) (map[string]any, error) {
		if app == nil || app.ReferralAllocator == nil {
			return nil, errors.New("referral codes require database connection")
		}
		if input.Name == "" {
			return nil, errors.New("name is required")
		}
		code := app.ReferralAllocator.Allocate(ctx, input.Name)
		return map[string]any{"code": code.Code, "verified": code.Verified}, nil
	}
}

func referralAccept(app *cli.App) func(context.Context, referralAcceptInput) (map[string]any, error) {
	return func(ctx context.Context, input referralAcceptInput) (map[string]any, error) {
		if app == nil || app.ReferralAcceptance == nil {
			return nil, errors.New("referral acceptance requires database connection")
		}
		code := referralDomain.NormalizeCode(input.Code)
		if err := app.ReferralAcceptance.Accept(ctx, code, input.Source); err != nil {
			return nil, err
		}
		return map[string]any{
			"code":     code,
			"source":   referralDomain.NormalizeSource(input.Source),
			"accepted": true,
		}, nil
	}
}
