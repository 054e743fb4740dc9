package mcp

import (
	"github.com/felixgeelhaar/nourish/adapter/cli"
	"github.com/felixgeelhaar/nourish/internal/app"
)

// NewCLIApp creates a CLI application instance backed by the provided container.
func NewCLIApp(container *app.Container) *cli.App {
	cliApp := cli.NewApp(container.UserID)
	cliApp.SetBilling(container.SubscriptionResolver, container.BillingService)
	cliApp.SetReferral(
		container.ReferralAllocator,
		container.ReferralTracker,
		container.ReferralAcceptance,
		container.AffiliateService,
	)
	cliApp.SetSocialService(container.SocialService)
	return cliApp
}
