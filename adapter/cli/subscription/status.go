package subscription

import (
	"fmt"

	"github.com/felixgeelhaar/nourish/adapter/cli"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the resolved subscription status",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.SubscriptionResolver == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Subscription status requires database connection.")
			return nil
		}

		snap := app.SubscriptionResolver.Resolve(cmd.Context(), app.CurrentUserID)
		printSnapshot(cmd.OutOrStdout(), snap)
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Drop the cached status and resolve again",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.SubscriptionResolver == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Subscription status requires database connection.")
			return nil
		}

		app.SubscriptionResolver.Invalidate(cmd.Context(), app.CurrentUserID)
		snap := app.SubscriptionResolver.Resolve(cmd.Context(), app.CurrentUserID)
		printSnapshot(cmd.OutOrStdout(), snap)
		return nil
	},
}
