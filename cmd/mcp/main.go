package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/nourish/internal/app"
	mcpinternal "github.com/felixgeelhaar/nourish/internal/mcp"
	"github.com/felixgeelhaar/nourish/pkg/config"
	"github.com/felixgeelhaar/nourish/pkg/observability"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		observability.LoggerFromEnv().Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logConfig := observability.DefaultLogConfig()
	if !cfg.IsDevelopment() {
		logConfig = observability.ProductionLogConfig()
	}
	logConfig.Level = observability.LevelFromString(cfg.LogLevel)
	logConfig.ServiceName = "nourish-mcp"
	logger := observability.NewLogger(logConfig)

	container, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	if err := mcpinternal.Serve(ctx, cfg, mcpinternal.NewCLIApp(container), logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
