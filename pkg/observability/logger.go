// Package observability provides structured logging, metrics and health
// reporting shared by the nourish binaries.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// LogFormat selects the slog handler.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// LogLevel is the minimum level a logger emits.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var slogLevels = map[LogLevel]slog.Level{
	LogLevelDebug: slog.LevelDebug,
	LogLevelInfo:  slog.LevelInfo,
	LogLevelWarn:  slog.LevelWarn,
	LogLevelError: slog.LevelError,
}

// LevelFromString maps a config value onto a LogLevel, defaulting to info.
func LevelFromString(level string) LogLevel {
	if _, ok := slogLevels[LogLevel(level)]; ok {
		return LogLevel(level)
	}
	return LogLevelInfo
}

func (l LogLevel) slog() slog.Level {
	if level, ok := slogLevels[l]; ok {
		return level
	}
	return slog.LevelInfo
}

// LogConfig configures NewLogger. A nil Output writes to stderr.
type LogConfig struct {
	Level          LogLevel
	Format         LogFormat
	Output         io.Writer
	AddSource      bool
	ServiceName    string
	ServiceVersion string
}

// DefaultLogConfig returns text logs on stderr, used by the CLI and in
// development.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:          LogLevelInfo,
		Format:         LogFormatText,
		Output:         os.Stderr,
		ServiceName:    "nourish",
		ServiceVersion: "dev",
	}
}

// ProductionLogConfig returns JSON logs with source locations on stdout for
// the worker and MCP server.
func ProductionLogConfig() LogConfig {
	cfg := DefaultLogConfig()
	cfg.Format = LogFormatJSON
	cfg.Output = os.Stdout
	cfg.AddSource = true
	cfg.ServiceVersion = "unknown"
	return cfg
}

// NewLogger builds a logger that stamps every record with the service
// identity and with the correlation and user IDs found on its context.
func NewLogger(cfg LogConfig) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level.slog(), AddSource: cfg.AddSource}

	var base slog.Handler = slog.NewTextHandler(out, opts)
	if cfg.Format == LogFormatJSON {
		base = slog.NewJSONHandler(out, opts)
	}

	var service []slog.Attr
	if cfg.ServiceName != "" {
		service = append(service, slog.String("service", cfg.ServiceName))
	}
	if cfg.ServiceVersion != "" {
		service = append(service, slog.String("version", cfg.ServiceVersion))
	}
	if len(service) > 0 {
		base = base.WithAttrs(service)
	}

	return slog.New(contextHandler{next: base})
}

// LoggerFromEnv builds the bootstrap logger used before config is loaded.
// It reads NOURISH_ENV, NOURISH_LOG_LEVEL, NOURISH_LOG_FORMAT and
// NOURISH_VERSION.
func LoggerFromEnv() *slog.Logger {
	cfg := DefaultLogConfig()
	if os.Getenv("NOURISH_ENV") == "production" {
		cfg = ProductionLogConfig()
	}
	if level, ok := os.LookupEnv("NOURISH_LOG_LEVEL"); ok {
		cfg.Level = LevelFromString(level)
	}
	if format, ok := os.LookupEnv("NOURISH_LOG_FORMAT"); ok {
		cfg.Format = LogFormat(format)
	}
	if version, ok := os.LookupEnv("NOURISH_VERSION"); ok {
		cfg.ServiceVersion = version
	}
	return NewLogger(cfg)
}

// contextHandler copies request-scoped identifiers from the context onto
// each record.
type contextHandler struct {
	next slog.Handler
}

func (h contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := CorrelationIDFromContext(ctx); id != "" {
		r.AddAttrs(slog.String(CorrelationIDKey, id))
	}
	if id := UserIDFromContext(ctx); id != uuid.Nil {
		r.AddAttrs(slog.String(UserIDKey, id.String()))
	}
	return h.next.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{next: h.next.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{next: h.next.WithGroup(name)}
}

// LogOperation returns a child logger tagged with the operation name.
func LogOperation(logger *slog.Logger, operation string, attrs ...any) *slog.Logger {
	return orDefault(logger).With(append([]any{OperationKey, operation}, attrs...)...)
}

// ForComponent returns a child logger tagged with the component name.
// A nil logger resolves to slog.Default().
func ForComponent(logger *slog.Logger, component string) *slog.Logger {
	return orDefault(logger).With("component", component)
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
