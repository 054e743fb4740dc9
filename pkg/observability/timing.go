package observability

import "time"

// Timer records how long an operation took and whether it failed.
type Timer struct {
	metrics Metrics
	start   time.Time
	tags    []Tag
}

// StartTimer starts timing operation. A nil metrics discards the result.
func StartTimer(metrics Metrics, operation string, tags ...Tag) *Timer {
	return &Timer{
		metrics: OrNoop(metrics),
		start:   time.Now(),
		tags:    append([]Tag{T("operation", operation)}, tags...),
	}
}

// Stop records the duration and a total, plus an error count when err is
// non-nil. It returns the elapsed time.
func (t *Timer) Stop(err error) time.Duration {
	elapsed := time.Since(t.start)
	t.metrics.Timing(MetricOperationDuration, elapsed, t.tags...)
	t.metrics.Counter(MetricOperationTotal, 1, t.tags...)
	if err != nil {
		t.metrics.Counter(MetricOperationErrors, 1, t.tags...)
	}
	return elapsed
}
