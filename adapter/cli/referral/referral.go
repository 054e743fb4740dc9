package referral

import "github.com/spf13/cobra"

// Cmd is the referral command group.
var Cmd = &cobra.Command{
	Use:   "referral",
	Short: "Allocate and accept referral codes",
	Long: `Allocate affiliate codes and accept referrals. An accepted code is credited
at most once per device, and an interrupted acceptance can be resumed.`,
}

func init() {
	Cmd.AddCommand(codeCmd)
	Cmd.AddCommand(registerCmd)
	Cmd.AddCommand(acceptCmd)
	Cmd.AddCommand(resumeCmd)
	Cmd.AddCommand(pendingCmd)
}
