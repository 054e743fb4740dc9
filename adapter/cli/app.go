package cli

import (
	billingApp "github.com/felixgeelhaar/nourish/internal/billing/application"
	referralApp "github.com/felixgeelhaar/nourish/internal/referral/application"
	socialApp "github.com/felixgeelhaar/nourish/internal/social/application"
	"github.com/google/uuid"
)

// App holds the CLI application dependencies.
type App struct {
	// Billing
	SubscriptionResolver *billingApp.Resolver
	BillingService       *billingApp.Service

	// Referral
	ReferralAllocator  *referralApp.Allocator
	ReferralTracker    *referralApp.Tracker
	ReferralAcceptance *referralApp.AcceptanceService
	AffiliateService   *referralApp.AffiliateService

	// Social
	SocialService *socialApp.Service

	// Current user (configured per environment)
	CurrentUserID uuid.UUID
}

// NewApp creates a new CLI application for userID.
func NewApp(userID uuid.UUID) *App {
	return &App{CurrentUserID: userID}
}

// SetBilling updates the billing services.
func (a *App) SetBilling(resolver *billingApp.Resolver, service *billingApp.Service) {
	a.SubscriptionResolver = resolver
	a.BillingService = service
}

// SetReferral updates the referral services.
func (a *App) SetReferral(allocator *referralApp.Allocator, tracker *referralApp.Tracker, acceptance *referralApp.AcceptanceService, affiliates *referralApp.AffiliateService) {
	a.ReferralAllocator = allocator
	a.ReferralTracker = tracker
	a.ReferralAcceptance = acceptance
	a.AffiliateService = affiliates
}

// SetSocialService updates the social service.
func (a *App) SetSocialService(service *socialApp.Service) {
	a.SocialService = service
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}
