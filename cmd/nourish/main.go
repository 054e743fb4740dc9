package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/nourish/adapter/cli"
	"github.com/felixgeelhaar/nourish/adapter/cli/mcp"
	"github.com/felixgeelhaar/nourish/adapter/cli/referral"
	"github.com/felixgeelhaar/nourish/adapter/cli/social"
	"github.com/felixgeelhaar/nourish/adapter/cli/subscription"
	"github.com/felixgeelhaar/nourish/internal/app"
	"github.com/felixgeelhaar/nourish/pkg/config"
	"github.com/felixgeelhaar/nourish/pkg/observability"
)

func main() {
	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		observability.NewLogger(observability.DefaultLogConfig()).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Command output goes to stdout; keep stderr for warnings and retry notices.
	logConfig := observability.DefaultLogConfig()
	logConfig.Level = observability.LogLevelWarn
	if observability.LevelFromString(cfg.LogLevel) == observability.LogLevelDebug {
		logConfig.Level = observability.LogLevelDebug
	}
	logger := observability.NewLogger(logConfig)
	cli.SetLogger(logger)

	// Try to initialize the full container
	container, err := app.New(ctx, cfg, logger)
	if err != nil {
		if !cfg.IsDevelopment() {
			logger.Error("failed to initialize container", "error", err)
			os.Exit(1)
		}
		// In development, allow the CLI to start without storage
		logger.Warn("failed to initialize container, running in limited mode", "error", err)
		cli.SetApp(nil)
	} else {
		defer container.Close()

		cliApp := cli.NewApp(container.UserID)
		cliApp.SetBilling(container.SubscriptionResolver, container.BillingService)
		cliApp.SetReferral(
			container.ReferralAllocator,
			container.ReferralTracker,
			container.ReferralAcceptance,
			container.AffiliateService,
		)
		cliApp.SetSocialService(container.SocialService)
		cli.SetApp(cliApp)
	}

	// Register commands
	cli.AddCommand(subscription.Cmd)
	cli.AddCommand(referral.Cmd)
	cli.AddCommand(social.Cmd)
	cli.AddCommand(mcp.Cmd)

	// Execute CLI
	cli.Execute()
}
