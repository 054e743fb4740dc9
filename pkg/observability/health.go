package observability

import (
	"context"
	"maps"
	"sync"
	"time"
)

// HealthStatus is a component's health. Readiness fails only on unhealthy.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// severity orders statuses so the worst one wins when folding.
func (s HealthStatus) severity() int {
	switch s {
	case HealthStatusUnhealthy:
		return 2
	case HealthStatusDegraded:
		return 1
	default:
		return 0
	}
}

// HealthCheckResult is one component's report. Duration and Timestamp are
// filled in by the registry.
type HealthCheckResult struct {
	Status    HealthStatus  `json:"status"`
	Message   string        `json:"message,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
	Timestamp time.Time     `json:"timestamp"`
}

// HealthChecker reports on one component.
type HealthChecker func(ctx context.Context) HealthCheckResult

// HealthRegistry runs named health checks.
type HealthRegistry struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
}

func NewHealthRegistry() *HealthRegistry {
	return &HealthRegistry{checkers: make(map[string]HealthChecker)}
}

// Register adds or replaces the checker for name.
func (r *HealthRegistry) Register(name string, checker HealthChecker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[name] = checker
}

type namedResult struct {
	name   string
	result HealthCheckResult
}

// Check runs every registered checker concurrently and returns the results
// by name.
func (r *HealthRegistry) Check(ctx context.Context) map[string]HealthCheckResult {
	r.mu.RLock()
	checkers := maps.Clone(r.checkers)
	r.mu.RUnlock()

	out := make(chan namedResult, len(checkers))
	for name, checker := range checkers {
		go func() {
			start := time.Now()
			result := checker(ctx)
			result.Duration = time.Since(start)
			result.Timestamp = time.Now()
			out <- namedResult{name: name, result: result}
		}()
	}

	results := make(map[string]HealthCheckResult, len(checkers))
	for range checkers {
		nr := <-out
		results[nr.name] = nr.result
	}
	return results
}

// OverallHealth is the body served by the health endpoints.
type OverallHealth struct {
	Status    HealthStatus                 `json:"status"`
	Timestamp time.Time                    `json:"timestamp"`
	Checks    map[string]HealthCheckResult `json:"checks"`
}

// GetOverallHealth runs all checks and reports the worst status among them.
func (r *HealthRegistry) GetOverallHealth(ctx context.Context) OverallHealth {
	overall := OverallHealth{
		Status: HealthStatusHealthy,
		Checks: r.Check(ctx),
	}
	for _, result := range overall.Checks {
		if result.Status.severity() > overall.Status.severity() {
			overall.Status = result.Status
		}
	}
	overall.Timestamp = time.Now()
	return overall
}

// PingHealthChecker adapts a ping function. A failing ping reports
// failStatus.
func PingHealthChecker(component string, failStatus HealthStatus, ping func(ctx context.Context) error) HealthChecker {
	return func(ctx context.Context) HealthCheckResult {
		if err := ping(ctx); err != nil {
			return HealthCheckResult{Status: failStatus, Message: component + " unreachable: " + err.Error()}
		}
		return HealthCheckResult{Status: HealthStatusHealthy}
	}
}

// DatabaseHealthChecker is unhealthy when the database cannot be pinged.
func DatabaseHealthChecker(ping func(ctx context.Context) error) HealthChecker {
	return PingHealthChecker("database", HealthStatusUnhealthy, ping)
}

// RedisHealthChecker degrades when Redis is down; snapshots fall back to the
// backend.
func RedisHealthChecker(ping func(ctx context.Context) error) HealthChecker {
	return PingHealthChecker("redis", HealthStatusDegraded, ping)
}

func RabbitMQHealthChecker(check func(ctx context.Context) error) HealthChecker {
	return PingHealthChecker("rabbitmq", HealthStatusDegraded, check)
}
