package observability

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// Metrics records counters, gauges and timings. Implementations must be safe
// for concurrent use.
type Metrics interface {
	Counter(name string, value int64, tags ...Tag)
	Gauge(name string, value float64, tags ...Tag)
	Histogram(name string, value float64, tags ...Tag)
	Timing(name string, duration time.Duration, tags ...Tag)
}

// Tag labels a metric series.
type Tag struct {
	Key   string
	Value string
}

// T is shorthand for Tag{Key: key, Value: value}.
func T(key, value string) Tag {
	return Tag{Key: key, Value: value}
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) Counter(string, int64, ...Tag)        {}
func (NoopMetrics) Gauge(string, float64, ...Tag)        {}
func (NoopMetrics) Histogram(string, float64, ...Tag)    {}
func (NoopMetrics) Timing(string, time.Duration, ...Tag) {}

// OrNoop returns m, or NoopMetrics when m is nil.
func OrNoop(m Metrics) Metrics {
	if m == nil {
		return NoopMetrics{}
	}
	return m
}

// series holds everything recorded under one name and tag set.
type series struct {
	count     int64
	gauge     float64
	values    []float64
	durations []time.Duration
}

// InMemoryMetrics keeps every series in memory. The binaries use it until a
// real sink is configured, and tests read it back through the Get methods.
type InMemoryMetrics struct {
	mu     sync.RWMutex
	series map[string]*series
}

// NewInMemoryMetrics creates an empty collector.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{series: make(map[string]*series)}
}

func (m *InMemoryMetrics) record(name string, tags []Tag, fn func(*series)) {
	key := seriesKey(name, tags)
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.series[key]
	if !ok {
		s = &series{}
		m.series[key] = s
	}
	fn(s)
}

func (m *InMemoryMetrics) lookup(name string, tags []Tag) series {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.series[seriesKey(name, tags)]; ok {
		return *s
	}
	return series{}
}

func (m *InMemoryMetrics) Counter(name string, value int64, tags ...Tag) {
	m.record(name, tags, func(s *series) { s.count += value })
}

func (m *InMemoryMetrics) Gauge(name string, value float64, tags ...Tag) {
	m.record(name, tags, func(s *series) { s.gauge = value })
}

func (m *InMemoryMetrics) Histogram(name string, value float64, tags ...Tag) {
	m.record(name, tags, func(s *series) { s.values = append(s.values, value) })
}

func (m *InMemoryMetrics) Timing(name string, duration time.Duration, tags ...Tag) {
	m.record(name, tags, func(s *series) { s.durations = append(s.durations, duration) })
}

// GetCounter returns the summed counter value.
func (m *InMemoryMetrics) GetCounter(name string, tags ...Tag) int64 {
	return m.lookup(name, tags).count
}

// GetGauge returns the last gauge value.
func (m *InMemoryMetrics) GetGauge(name string, tags ...Tag) float64 {
	return m.lookup(name, tags).gauge
}

// GetHistogram returns the recorded histogram values in order.
func (m *InMemoryMetrics) GetHistogram(name string, tags ...Tag) []float64 {
	return m.lookup(name, tags).values
}

// GetTimings returns the recorded durations in order.
func (m *InMemoryMetrics) GetTimings(name string, tags ...Tag) []time.Duration {
	return m.lookup(name, tags).durations
}

// Reset drops every series.
func (m *InMemoryMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.series)
}

// seriesKey identifies a series independent of tag order.
func seriesKey(name string, tags []Tag) string {
	if len(tags) == 0 {
		return name
	}
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = t.Key + "=" + t.Value
	}
	slices.Sort(parts)
	return name + "{" + strings.Join(parts, ",") + "}"
}

// Metric names.
const (
	MetricOperationTotal    = "nourish.operation.total"
	MetricOperationDuration = "nourish.operation.duration"
	MetricOperationErrors   = "nourish.operation.errors"

	MetricExecutorAttempts    = "nourish.executor.attempts"
	MetricExecutorRetries     = "nourish.executor.retries"
	MetricExecutorTimeouts    = "nourish.executor.timeouts"
	MetricExecutorFailures    = "nourish.executor.failures"
	MetricExecutorCircuitOpen = "nourish.executor.circuit_open"

	MetricCacheHits   = "nourish.cache.hits"
	MetricCacheMisses = "nourish.cache.misses"

	MetricSubscriptionResolved = "nourish.subscription.resolved"
	MetricSubscriptionDegraded = "nourish.subscription.degraded"

	MetricReferralCredited       = "nourish.referral.credited"
	MetricReferralSkipped        = "nourish.referral.skipped"
	MetricReferralCodeUnverified = "nourish.referral.code_unverified"

	MetricSocialConnected = "nourish.social.connected"
	MetricSocialShared    = "nourish.social.shared"

	MetricOutboxPublished = "nourish.outbox.published"
	MetricOutboxFailed    = "nourish.outbox.failed"
	MetricOutboxDead      = "nourish.outbox.dead_lettered"
	MetricOutboxLag       = "nourish.outbox.lag_seconds"
)
