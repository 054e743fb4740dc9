package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check CLI wiring health",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil {
			return fmt.Errorf("app not initialized")
		}
		missing := 0
		for name, ok := range map[string]bool{
			"subscription": app.SubscriptionResolver != nil && app.BillingService != nil,
			"referral":     app.ReferralAcceptance != nil && app.ReferralAllocator != nil,
			"social":       app.SocialService != nil,
		} {
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: not wired\n", name)
				missing++
			}
		}
		if missing > 0 {
			return fmt.Errorf("%d service group(s) not wired", missing)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
