package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/nourish/internal/shared/resilience"
	"github.com/felixgeelhaar/nourish/pkg/observability"
)

var logger *slog.Logger

type commandStartKey struct{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nourish",
	Short: "Nourish - subscription, referral and social integrations",
	Long: `Nourish talks to the hosted backend on behalf of the current user.

It resolves subscription entitlement from several sources, allocates and
accepts referral codes exactly once, and links social accounts for sharing.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if logger == nil {
			logger = slog.Default()
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx = observability.WithCorrelationID(ctx, "")
		if app := GetApp(); app != nil {
			ctx = observability.WithUserID(ctx, app.CurrentUserID)
		}
		ctx = context.WithValue(ctx, commandStartKey{}, time.Now())
		ctx = resilience.WithRetryNotifier(ctx, RetryNotice(cmd.ErrOrStderr()))
		cmd.SetContext(ctx)
		logger.DebugContext(ctx, "command start", "command", cmd.CommandPath())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger == nil {
			logger = slog.Default()
		}
		startedAt, ok := cmd.Context().Value(commandStartKey{}).(time.Time)
		if !ok {
			return
		}
		logger.DebugContext(cmd.Context(), "command end",
			"command", cmd.CommandPath(),
			"duration_ms", time.Since(startedAt).Milliseconds(),
		)
	},
}

// RetryNotice returns a notifier that writes a single "still working..."
// line to w, however many retries follow.
func RetryNotice(w io.Writer) resilience.RetryNotifier {
	var once sync.Once
	return func(_ context.Context, _ string, _ int, _ error) {
		once.Do(func() {
			fmt.Fprintln(w, "still working...")
		})
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// AddCommand adds a command to the root command.
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}

// SetLogger sets the CLI logger.
func SetLogger(l *slog.Logger) {
	logger = l
}

