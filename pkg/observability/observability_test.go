package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("creates JSON logger with service attributes", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{
			Level:          LogLevelInfo,
			Format:         LogFormatJSON,
			Output:         &buf,
			ServiceName:    "nourish",
			ServiceVersion: "test",
		})

		logger.Info("resolved", "key", "value")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "resolved", entry["msg"])
		assert.Equal(t, "value", entry["key"])
		assert.Equal(t, "nourish", entry["service"])
		assert.Equal(t, "test", entry["version"])
	})

	t.Run("respects log level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{Level: LogLevelWarn, Format: LogFormatText, Output: &buf})

		logger.Info("info message")
		logger.Warn("warn message")

		assert.NotContains(t, buf.String(), "info message")
		assert.Contains(t, buf.String(), "warn message")
	})

	t.Run("adds correlation ID from context", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{Level: LogLevelInfo, Format: LogFormatText, Output: &buf})

		ctx := WithCorrelationID(context.Background(), "corr-123")
		logger.InfoContext(ctx, "with context")

		assert.Contains(t, buf.String(), "correlation_id=corr-123")
	})

	t.Run("adds user ID from context", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{Level: LogLevelInfo, Format: LogFormatJSON, Output: &buf})
		userID := uuid.New()

		logger.InfoContext(WithUserID(context.Background(), userID), "scoped")

		assert.Contains(t, buf.String(), `"user_id":"`+userID.String()+`"`)
	})
}

func TestLevelFromString(t *testing.T) {
	assert.Equal(t, LogLevelDebug, LevelFromString("debug"))
	assert.Equal(t, LogLevelError, LevelFromString("error"))
	assert.Equal(t, LogLevelInfo, LevelFromString("verbose"))
}

func TestContextIDs(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, CorrelationIDFromContext(ctx))
	assert.Equal(t, uuid.Nil, UserIDFromContext(ctx))

	assert.NotEmpty(t, CorrelationIDFromContext(WithCorrelationID(ctx, "")))

	userID := uuid.New()
	assert.Equal(t, userID, UserIDFromContext(WithUserID(ctx, userID)))
}

func TestInMemoryMetrics(t *testing.T) {
	m := NewInMemoryMetrics()

	m.Counter(MetricCacheHits, 1, T("cache", "subscription"))
	m.Counter(MetricCacheHits, 1, T("cache", "subscription"))
	m.Counter(MetricCacheMisses, 1)
	m.Timing(MetricOperationDuration, 5*time.Millisecond)

	assert.Equal(t, int64(2), m.GetCounter(MetricCacheHits, T("cache", "subscription")))
	assert.Equal(t, int64(1), m.GetCounter(MetricCacheMisses))
	assert.Len(t, m.GetTimings(MetricOperationDuration), 1)

	m.Counter(MetricOutboxPublished, 1, T("routing_key", "a"), T("cache", "b"))
	assert.Equal(t, int64(1), m.GetCounter(MetricOutboxPublished, T("cache", "b"), T("routing_key", "a")))

	m.Gauge(MetricOutboxLag, 3)
	m.Gauge(MetricOutboxLag, 1.5)
	assert.Equal(t, 1.5, m.GetGauge(MetricOutboxLag))

	m.Reset()
	assert.Zero(t, m.GetCounter(MetricCacheMisses))
}

func TestOrNoop(t *testing.T) {
	assert.IsType(t, NoopMetrics{}, OrNoop(nil))

	m := NewInMemoryMetrics()
	assert.Same(t, m, OrNoop(m))
}

func TestTimer_Stop(t *testing.T) {
	m := NewInMemoryMetrics()

	StartTimer(m, "resolve").Stop(errors.New("boom"))
	StartTimer(m, "resolve").Stop(nil)

	tags := []Tag{T("operation", "resolve")}
	assert.Equal(t, int64(2), m.GetCounter(MetricOperationTotal, tags...))
	assert.Equal(t, int64(1), m.GetCounter(MetricOperationErrors, tags...))
	assert.Len(t, m.GetTimings(MetricOperationDuration, tags...), 2)
}

func TestTimer_NilMetrics(t *testing.T) {
	assert.NotPanics(t, func() {
		StartTimer(nil, "resolve").Stop(nil)
	})
}

func TestHealthRegistry(t *testing.T) {
	registry := NewHealthRegistry()
	registry.Register("database", DatabaseHealthChecker(func(ctx context.Context) error { return nil }))
	registry.Register("redis", RedisHealthChecker(func(ctx context.Context) error { return errors.New("refused") }))

	health := registry.GetOverallHealth(context.Background())

	assert.Equal(t, HealthStatusDegraded, health.Status)
	assert.Equal(t, HealthStatusHealthy, health.Checks["database"].Status)
	assert.Contains(t, health.Checks["redis"].Message, "refused")

	registry.Register("database", DatabaseHealthChecker(func(ctx context.Context) error { return errors.New("down") }))
	assert.Equal(t, HealthStatusUnhealthy, registry.GetOverallHealth(context.Background()).Status)
}
