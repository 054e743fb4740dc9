package subscription

import (
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/nourish/adapter/cli"
	"github.com/felixgeelhaar/nourish/internal/billing/domain"
	"github.com/spf13/cobra"
)

var (
	checkoutPlan           string
	checkoutPeriodEnd      string
	checkoutCustomerID     string
	checkoutSubscriptionID string
	checkoutTrial          bool
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Record a completed checkout",
	Long: `Record a checkout completed with the payment provider and activate the
subscription for the current user.

Examples:
  nourish subscription checkout --plan pro-monthly
  nourish subscription checkout --plan pro-annual --trial --period-end 2027-01-31`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.BillingService == nil {
			return errors.New("subscription updates require database connection")
		}
		if checkoutPlan == "" {
			return errors.New("plan is required")
		}

		checkout := domain.Checkout{
			UserID:         app.CurrentUserID,
			PlanID:         checkoutPlan,
			CustomerID:     checkoutCustomerID,
			SubscriptionID: checkoutSubscriptionID,
			Trial:          checkoutTrial,
		}
		if checkoutPeriodEnd != "" {
			end, err := time.Parse(time.DateOnly, checkoutPeriodEnd)
			if err != nil {
				return fmt.Errorf("invalid period end %q (want YYYY-MM-DD): %w", checkoutPeriodEnd, err)
			}
			checkout.CurrentPeriodEnd = &end
		}

		sub, err := app.BillingService.RecordCheckout(cmd.Context(), checkout)
		if err != nil {
			return err
		}
		printSubscription(cmd.OutOrStdout(), sub)
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel the current subscription",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.BillingService == nil {
			return errors.New("subscription updates require database connection")
		}

		sub, err := app.BillingService.CancelSubscription(cmd.Context(), app.CurrentUserID)
		if errors.Is(err, domain.ErrSubscriptionNotFound) {
			fmt.Fprintln(cmd.OutOrStdout(), "No subscription found.")
			return nil
		}
		if err != nil {
			return err
		}
		printSubscription(cmd.OutOrStdout(), sub)
		return nil
	},
}

func init() {
	checkoutCmd.Flags().StringVar(&checkoutPlan, "plan", "", "plan identifier")
	checkoutCmd.Flags().StringVar(&checkoutPeriodEnd, "period-end", "", "current period end (YYYY-MM-DD)")
	checkoutCmd.Flags().StringVar(&checkoutCustomerID, "customer", "", "payment provider customer ID")
	checkoutCmd.Flags().StringVar(&checkoutSubscriptionID, "provider-subscription", "", "payment provider subscription ID")
	checkoutCmd.Flags().BoolVar(&checkoutTrial, "trial", false, "start as a trial")
}
