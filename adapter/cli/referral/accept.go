package referral

import (
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/nourish/adapter/cli"
	"github.com/felixgeelhaar/nourish/internal/referral/domain"
	"github.com/felixgeelhaar/nourish/internal/shared/resilience"
	"github.com/spf13/cobra"
)

var acceptSource string

var acceptCmd = &cobra.Command{
	Use:   "accept <code>",
	Short: "Accept a referral code",
	Long: `Credit a referral code to its affiliate. Accepting a code that was
already credited on this device does nothing.

Examples:
  nourish referral accept JANE42
  nourish referral accept JANE42 --source instagram`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.ReferralAcceptance == nil {
			return errors.New("referral acceptance requires database connection")
		}

		code := domain.NormalizeCode(args[0])
		if err := app.ReferralAcceptance.Accept(cmd.Context(), code, acceptSource); err != nil {
			if msg := resilience.UpstreamMessage(err); msg != "" {
				return fmt.Errorf("referral %s was rejected: %s", code, msg)
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Referral %s accepted.\n", code)
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Retry an interrupted referral acceptance",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.ReferralAcceptance == nil {
			return errors.New("referral acceptance requires database connection")
		}

		pending, err := app.ReferralAcceptance.ResumePending(cmd.Context())
		if err != nil {
			return err
		}
		if pending == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No pending referral.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Referral %s accepted.\n", pending.Code)
		return nil
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Show the referral waiting to be credited",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.ReferralTracker == nil {
			return errors.New("referral tracking requires database connection")
		}

		pending, err := app.ReferralTracker.Pending(cmd.Context())
		if err != nil {
			return err
		}
		if pending == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No pending referral.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pending: %s (source %s, since %s)\n",
			pending.Code, pending.Source, pending.ArmedAt.Local().Format(time.RFC1123))
		return nil
	},
}

func init() {
	acceptCmd.Flags().StringVar(&acceptSource, "source", domain.DefaultSource, "where the referral came from")
}
