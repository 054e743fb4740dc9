package referral

import (
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/nourish/adapter/cli"
	"github.com/spf13/cobra"
)

var codeCmd = &cobra.Command{
	Use:   "code <name>",
	Short: "Suggest an unused referral code for a name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.ReferralAllocator == nil {
			return errors.New("referral codes require database connection")
		}

		code := app.ReferralAllocator.Allocate(cmd.Context(), strings.Join(args, " "))
		if code.Verified {
			fmt.Fprintf(cmd.OutOrStdout(), "Code: %s\n", code.Code)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Code: %s (not verified as unused)\n", code.Code)
		}
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <name>",
	Short: "Register the current user as an affiliate",
	Long: `Register the current user as an affiliate under a display name and
allocate their referral code. Registering again shows the existing code.

Examples:
  nourish referral register "Jane Doe"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.AffiliateService == nil {
			return errors.New("affiliate registration requires database connection")
		}

		affiliate, err := app.AffiliateService.Register(cmd.Context(), app.CurrentUserID, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Affiliate: %s\n", affiliate.DisplayName)
		fmt.Fprintf(cmd.OutOrStdout(), "Code: %s\n", affiliate.Code)
		return nil
	},
}
