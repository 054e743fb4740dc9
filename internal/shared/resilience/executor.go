package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/felixgeelhaar/nourish/pkg/observability"
	"github.com/sony/gobreaker/v2"
)

// RetryNotifier is called once per Execute call, right after the first retry
// has been scheduled.
type RetryNotifier func(ctx context.Context, operation string, attempt int, err error)

type notifierKey struct{}

// WithRetryNotifier attaches a notifier to ctx. It takes precedence over the
// executor's own notifier.
func WithRetryNotifier(ctx context.Context, notify RetryNotifier) context.Context {
	return context.WithValue(ctx, notifierKey{}, notify)
}

func notifierFromContext(ctx context.Context) RetryNotifier {
	notify, _ := ctx.Value(notifierKey{}).(RetryNotifier)
	return notify
}

// ExecutorConfig configures circuit breaking.
type ExecutorConfig struct {
	// CircuitBreakerEnabled enables one breaker per operation name.
	CircuitBreakerEnabled bool

	// MaxRequests is the maximum number of requests allowed in half-open state.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state.
	Interval time.Duration

	// OpenTimeout is the period of the open state.
	OpenTimeout time.Duration

	// FailureThreshold is the number of consecutive retryable failures that
	// trips the breaker.
	FailureThreshold uint32
}

// DefaultExecutorConfig returns a sensible default configuration.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		CircuitBreakerEnabled: true,
		MaxRequests:           1,
		Interval:              time.Minute,
		OpenTimeout:           30 * time.Second,
		FailureThreshold:      5,
	}
}

// Executor runs external calls under a timeout with exponential backoff.
type Executor struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
	metrics  observability.Metrics
	logger   *slog.Logger
	config   ExecutorConfig
	notify   RetryNotifier
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates a new executor.
func NewExecutor(metrics observability.Metrics, logger *slog.Logger, config ExecutorConfig) *Executor {
	return &Executor{
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
		metrics:  observability.OrNoop(metrics),
		logger:   observability.ForComponent(logger, "executor"),
		config:   config,
		sleep:    sleepContext,
	}
}

// OnRetry sets the notifier used when the context carries none.
func (e *Executor) OnRetry(notify RetryNotifier) {
	e.notify = notify
}

// BreakerState returns the circuit breaker state for an operation.
func (e *Executor) BreakerState(operation string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	breaker := e.breakers[operation]
	if breaker == nil {
		return "none"
	}
	return breaker.State().String()
}

func (e *Executor) breaker(operation string) *gobreaker.CircuitBreaker[any] {
	if !e.config.CircuitBreakerEnabled {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if breaker, exists := e.breakers[operation]; exists {
		return breaker
	}

	settings := gobreaker.Settings{
		Name:        operation,
		MaxRequests: e.config.MaxRequests,
		Interval:    e.config.Interval,
		Timeout:     e.config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= e.config.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			var failed *callError
			if errors.As(err, &failed) {
				return !failed.trip
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			e.logger.Info("circuit breaker state changed",
				"operation", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	breaker := gobreaker.NewCircuitBreaker[any](settings)
	e.breakers[operation] = breaker
	return breaker
}

// callError carries the outcome of a whole Execute call through the breaker.
// trip is set when the call failed with an error its policy treats as
// retryable.
type callError struct {
	err  error
	trip bool
}

func (c *callError) Error() string { return c.err.Error() }

func (c *callError) Unwrap() error { return c.err }

func (e *Executor) notifier(ctx context.Context) RetryNotifier {
	if notify := notifierFromContext(ctx); notify != nil {
		return notify
	}
	return e.notify
}

// Execute invokes op at most policy.MaxAttempts times. Each attempt races
// against policy.Timeout; retryable failures wait policy.Delay(attempt)
// before the next attempt. The last error is returned once attempts run out
// or a terminal error occurs.
//
// With circuit breaking enabled the breaker sees one outcome per Execute
// call, so the retries of a single call never open it mid-loop.
func Execute[R any](ctx context.Context, e *Executor, operation string, policy RetryPolicy, op func(ctx context.Context) (R, error)) (R, error) {
	var zero R
	if err := policy.Validate(); err != nil {
		return zero, err
	}

	breaker := e.breaker(operation)
	if breaker == nil {
		return retry(ctx, e, operation, policy, op)
	}

	out, err := breaker.Execute(func() (any, error) {
		result, err := retry(ctx, e, operation, policy, op)
		if err != nil {
			return nil, &callError{err: err, trip: ctx.Err() == nil && policy.retryable(err)}
		}
		return result, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		e.metrics.Counter(observability.MetricExecutorCircuitOpen, 1, observability.T("operation", operation))
		return zero, fmt.Errorf("%s: %w", operation, ErrCircuitOpen)
	}
	var failed *callError
	if errors.As(err, &failed) {
		return zero, failed.err
	}
	if err != nil {
		return zero, err
	}
	result, _ := out.(R)
	return result, nil
}

func retry[R any](ctx context.Context, e *Executor, operation string, policy RetryPolicy, op func(ctx context.Context) (R, error)) (R, error) {
	var zero R
	logger := observability.LogOperation(e.logger, operation)
	opTag := observability.T("operation", operation)
	timer := observability.StartTimer(e.metrics, operation)
	notified := false

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			timer.Stop(err)
			return zero, err
		}

		e.metrics.Counter(observability.MetricExecutorAttempts, 1, opTag)
		result, err := timeboxed(ctx, operation, policy.Timeout, op)
		if err == nil {
			logger.Debug("attempt succeeded", observability.AttemptKey, attempt)
			timer.Stop(nil)
			return result, nil
		}
		lastErr = err

		if errors.Is(err, ErrTimeout) {
			e.metrics.Counter(observability.MetricExecutorTimeouts, 1, opTag)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			timer.Stop(ctxErr)
			return zero, ctxErr
		}

		if attempt == policy.MaxAttempts || !policy.retryable(err) {
			logger.Warn("operation failed",
				observability.AttemptKey, attempt,
				observability.ErrorKey, err,
			)
			break
		}

		delay := policy.Delay(attempt)
		logger.Info("retrying operation",
			observability.AttemptKey, attempt,
			"delay_ms", delay.Milliseconds(),
			observability.ErrorKey, err,
		)
		e.metrics.Counter(observability.MetricExecutorRetries, 1, opTag,
			observability.T("attempt", strconv.Itoa(attempt)))

		if !notified {
			notified = true
			if notify := e.notifier(ctx); notify != nil {
				notify(ctx, operation, attempt, err)
			}
		}

		if err := e.sleep(ctx, delay); err != nil {
			timer.Stop(err)
			return zero, err
		}
	}

	e.metrics.Counter(observability.MetricExecutorFailures, 1, opTag)
	timer.Stop(lastErr)
	return zero, lastErr
}

// timeboxed runs op in its own goroutine and waits for whichever comes first:
// its result, the timeout or caller cancellation. The result channel is
// buffered so an abandoned attempt never blocks.
func timeboxed[R any](ctx context.Context, operation string, timeout time.Duration, op func(ctx context.Context) (R, error)) (R, error) {
	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		value R
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		value, err := op(attemptCtx)
		done <- outcome{value: value, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var zero R
	select {
	case out := <-done:
		return out.value, out.err
	case <-timer.C:
		return zero, NewError(KindTimeout, operation, fmt.Sprintf("no response within %s", timeout))
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
