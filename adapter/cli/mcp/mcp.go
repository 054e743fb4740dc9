// Package mcp exposes the MCP server as a nourish subcommand.
package mcp

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/nourish/internal/app"
	mcpserver "github.com/felixgeelhaar/nourish/internal/mcp"
	"github.com/felixgeelhaar/nourish/pkg/config"
	"github.com/felixgeelhaar/nourish/pkg/observability"
)

// Cmd groups the MCP subcommands.
var Cmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Nourish MCP interface",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve subscription, referral and social tools over MCP",
	RunE:  runServe,
}

func init() {
	Cmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logConfig := observability.DefaultLogConfig()
	logConfig.Output = cmd.ErrOrStderr()
	logConfig.Level = observability.LevelFromString(cfg.LogLevel)
	logConfig.ServiceName = "nourish-mcp"
	logger := observability.NewLogger(logConfig)

	ctx := cmd.Context()
	container, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer container.Close()

	err = mcpserver.Serve(ctx, cfg, mcpserver.NewCLIApp(container), logger)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
