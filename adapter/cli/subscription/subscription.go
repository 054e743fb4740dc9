package subscription

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/nourish/internal/billing/domain"
)

// Cmd is the subscription command group.
var Cmd = &cobra.Command{
	Use:   "subscription",
	Short: "Inspect and change subscription state",
	Long:  `Resolve the current entitlement, record checkouts and cancel subscriptions.`,
}

func init() {
	Cmd.AddCommand(statusCmd)
	Cmd.AddCommand(refreshCmd)
	Cmd.AddCommand(checkoutCmd)
	Cmd.AddCommand(cancelCmd)
}

func printSnapshot(w io.Writer, snap domain.Snapshot) {
	entitlement := "no"
	if snap.HasEntitlement {
		entitlement = "yes"
	}
	fmt.Fprintf(w, "Status: %s\n", snap.Status)
	fmt.Fprintf(w, "Premium access: %s\n", entitlement)
	if snap.PlanID != nil {
		fmt.Fprintf(w, "Plan: %s\n", *snap.PlanID)
	}
	if snap.CurrentPeriodEnd != nil {
		fmt.Fprintf(w, "Renews: %s\n", snap.CurrentPeriodEnd.Local().Format(time.RFC1123))
	}
	fmt.Fprintf(w, "Source: %s\n", snap.Source)
}

func printSubscription(w io.Writer, sub *domain.Subscription) {
	statusLine := string(sub.Status)
	if sub.PlanID != nil {
		statusLine = fmt.Sprintf("%s (%s)", *sub.PlanID, statusLine)
	}
	fmt.Fprintf(w, "Subscription: %s\n", statusLine)
	if sub.CurrentPeriodEnd != nil {
		fmt.Fprintf(w, "Period ends: %s\n", sub.CurrentPeriodEnd.Local().Format(time.RFC1123))
	}
}
