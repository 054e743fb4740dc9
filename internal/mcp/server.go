package mcp

import (
	"context"
	"errors"
	"log/slog"

	mcpgo "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/middleware"

	"github.com/felixgeelhaar/nourish/adapter/cli"
	mcplocal "github.com/felixgeelhaar/nourish/adapter/mcp"
	"github.com/felixgeelhaar/nourish/pkg/config"
	"github.com/felixgeelhaar/nourish/pkg/observability"
)

// Version is reported to MCP clients.
var Version = "dev"

// ErrAuthTokenRequired is returned in production when MCP_AUTH_TOKEN is unset.
var ErrAuthTokenRequired = errors.New("MCP_AUTH_TOKEN is required in production")

// NewServer registers the nourish tools, resources and prompts on a new MCP
// server. Resources and prompts are optional; failing to register them is
// logged, not returned.
func NewServer(cliApp *cli.App, logger *slog.Logger) (*mcpgo.Server, error) {
	if cliApp == nil {
		return nil, errors.New("CLI app is required")
	}
	logger = observability.ForComponent(logger, "mcp")

	srv := mcpgo.NewServer(mcpgo.ServerInfo{
		Name:    "nourish-mcp",
		Version: Version,
		Capabilities: mcpgo.Capabilities{
			Tools:     true,
			Resources: true,
			Prompts:   true,
		},
	})

	deps := mcplocal.ToolDependencies{App: cliApp}
	if err := mcplocal.RegisterCLITools(srv, deps); err != nil {
		return nil, err
	}
	if err := mcplocal.RegisterResources(srv, deps); err != nil {
		logger.Warn("failed to register MCP resources", observability.ErrorKey, err)
	}
	if err := mcplocal.RegisterPrompts(srv, deps); err != nil {
		logger.Warn("failed to register MCP prompts", observability.ErrorKey, err)
	}
	return srv, nil
}

// Serve runs the MCP server over HTTP on cfg.MCPAddr until ctx is canceled.
// Requests need the bearer token from cfg.MCPAuthToken when one is set.
func Serve(ctx context.Context, cfg *config.Config, cliApp *cli.App, logger *slog.Logger) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if cfg.MCPAuthToken == "" && cfg.IsProduction() {
		return ErrAuthTokenRequired
	}
	srv, err := NewServer(cliApp, logger)
	if err != nil {
		return err
	}
	if logger == nil {
		logger = slog.Default()
	}

	adapter := slogAdapter{logger: logger}
	stack := middleware.DefaultStack(adapter)
	if cfg.MCPAuthToken != "" {
		authenticator := middleware.BearerTokenAuthenticator(middleware.StaticTokens(map[string]*middleware.Identity{
			cfg.MCPAuthToken: {ID: "nourish", Name: "nourish"},
		}))
		stack = append([]middleware.Middleware{middleware.Auth(authenticator, middleware.WithAuthLogger(adapter))}, stack...)
	} else {
		logger.Warn("MCP auth token not set; requests will be unauthenticated")
	}

	logger.Info("mcp server listening", "addr", cfg.MCPAddr)
	return mcpgo.ServeHTTPWithMiddleware(ctx, srv, cfg.MCPAddr, nil, mcpgo.WithMiddleware(stack...))
}

// slogAdapter routes middleware logging into slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Debug(msg string, fields ...middleware.Field) {
	a.log(slog.LevelDebug, msg, fields)
}

func (a slogAdapter) Info(msg string, fields ...middleware.Field) {
	a.log(slog.LevelInfo, msg, fields)
}

func (a slogAdapter) Warn(msg string, fields ...middleware.Field) {
	a.log(slog.LevelWarn, msg, fields)
}

func (a slogAdapter) Error(msg string, fields ...middleware.Field) {
	a.log(slog.LevelError, msg, fields)
}

func (a slogAdapter) log(level slog.Level, msg string, fields []middleware.Field) {
	attrs := make([]slog.Attr, 0, len(fields))
	for _, field := range fields {
		attrs = append(attrs, slog.Any(field.Key, field.Value))
	}
	a.logger.LogAttrs(context.Background(), level, msg, attrs...)
}
