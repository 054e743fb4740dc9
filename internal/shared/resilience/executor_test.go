package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felixgeelhaar/nourish/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedSleeps struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func newTestExecutor(config ExecutorConfig) (*Executor, *recordedSleeps, *observability.InMemoryMetrics) {
	metrics := observability.NewInMemoryMetrics()
	exec := NewExecutor(metrics, nil, config)
	sleeps := &recordedSleeps{}
	exec.sleep = sleeps.sleep
	return exec, sleeps, metrics
}

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: attempts,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    300 * time.Millisecond,
		Timeout:     time.Second,
	}
}

func TestExecute_Success(t *testing.T) {
	exec, sleeps, _ := newTestExecutor(ExecutorConfig{})

	result, err := Execute(context.Background(), exec, "read", fastPolicy(3), func(ctx context.Context) (string, error) {
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Empty(t, sleeps.delays)
}

func TestExecute_RetryableFailureExhaustsAttempts(t *testing.T) {
	exec, sleeps, metrics := newTestExecutor(ExecutorConfig{})

	var calls int32
	_, err := Execute(context.Background(), exec, "read", fastPolicy(4), func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, NewError(KindTransientNetwork, "read", "connection reset")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransientNetwork)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
	}, sleeps.delays)

	op := observability.T("operation", "read")
	assert.Equal(t, int64(4), metrics.GetCounter(observability.MetricExecutorAttempts, op))
	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricExecutorFailures, op))
}

func TestExecute_TerminalErrorInvokedOnce(t *testing.T) {
	exec, sleeps, _ := newTestExecutor(ExecutorConfig{})

	for _, kind := range []Kind{KindAuthenticationRequired, KindValidation, KindUpstreamRejected} {
		t.Run(string(kind), func(t *testing.T) {
			var calls int32
			_, err := Execute(context.Background(), exec, "write", fastPolicy(5), func(ctx context.Context) (int, error) {
				atomic.AddInt32(&calls, 1)
				return 0, NewError(kind, "write", "nope")
			})

			require.Error(t, err)
			kindOf, ok := KindOf(err)
			require.True(t, ok)
			assert.Equal(t, kind, kindOf)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
		})
	}
	assert.Empty(t, sleeps.delays)
}

func TestExecute_PlainErrorIsTerminal(t *testing.T) {
	exec, _, _ := newTestExecutor(ExecutorConfig{})

	var calls int32
	_, err := Execute(context.Background(), exec, "read", fastPolicy(3), func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, errors.New("boom")
	})

	assert.EqualError(t, err, "boom")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestExecute_TimeoutAbandonsAttemptAndRetries(t *testing.T) {
	exec, _, metrics := newTestExecutor(ExecutorConfig{})
	policy := fastPolicy(2)
	policy.Timeout = 20 * time.Millisecond

	var calls int32
	release := make(chan struct{})
	defer close(release)

	_, err := Execute(context.Background(), exec, "slow", policy, func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return "late", nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, int64(2), metrics.GetCounter(observability.MetricExecutorTimeouts, observability.T("operation", "slow")))
}

func TestExecute_RecoversAfterTransientFailure(t *testing.T) {
	exec, sleeps, _ := newTestExecutor(ExecutorConfig{})

	var calls int32
	result, err := Execute(context.Background(), exec, "read", fastPolicy(3), func(ctx context.Context) (int, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return 0, NewError(KindTimeout, "read", "slow")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Len(t, sleeps.delays, 2)
}

func TestExecute_NotifiesOnceAfterFirstRetry(t *testing.T) {
	exec, _, _ := newTestExecutor(ExecutorConfig{})

	var notices []int
	ctx := WithRetryNotifier(context.Background(), func(ctx context.Context, operation string, attempt int, err error) {
		assert.Equal(t, "read", operation)
		notices = append(notices, attempt)
	})

	_, err := Execute(ctx, exec, "read", fastPolicy(4), func(ctx context.Context) (int, error) {
		return 0, NewError(KindTransientNetwork, "read", "reset")
	})

	require.Error(t, err)
	assert.Equal(t, []int{1}, notices)
}

func TestExecute_ExecutorNotifierUsedWithoutContextNotifier(t *testing.T) {
	exec, _, _ := newTestExecutor(ExecutorConfig{})
	var count int
	exec.OnRetry(func(ctx context.Context, operation string, attempt int, err error) {
		count++
	})

	_, _ = Execute(context.Background(), exec, "read", fastPolicy(3), func(ctx context.Context) (int, error) {
		return 0, NewError(KindTransientNetwork, "read", "reset")
	})

	assert.Equal(t, 1, count)
}

func TestExecute_NoNoticeWithoutRetry(t *testing.T) {
	exec, _, _ := newTestExecutor(ExecutorConfig{})
	var count int
	exec.OnRetry(func(ctx context.Context, operation string, attempt int, err error) {
		count++
	})

	_, _ = Execute(context.Background(), exec, "read", fastPolicy(1), func(ctx context.Context) (int, error) {
		return 0, NewError(KindTransientNetwork, "read", "reset")
	})

	assert.Zero(t, count)
}

func TestExecute_CallerCancellation(t *testing.T) {
	exec := NewExecutor(nil, nil, ExecutorConfig{})
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	go func() {
		<-started
		cancel()
	}()

	_, err := Execute(ctx, exec, "read", fastPolicy(3), func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecute_CancelledDuringBackoff(t *testing.T) {
	exec := NewExecutor(nil, nil, ExecutorConfig{})
	policy := fastPolicy(3)
	policy.BaseDelay = time.Hour
	policy.MaxDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var calls int32
	_, err := Execute(ctx, exec, "read", policy, func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, NewError(KindTransientNetwork, "read", "reset")
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestExecute_InvalidPolicy(t *testing.T) {
	exec := NewExecutor(nil, nil, ExecutorConfig{})

	var calls int32
	_, err := Execute(context.Background(), exec, "read", RetryPolicy{MaxAttempts: 0, Timeout: time.Second}, func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 1, nil
	})

	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestExecute_CircuitBreakerOpens(t *testing.T) {
	config := DefaultExecutorConfig()
	config.FailureThreshold = 2
	exec, _, metrics := newTestExecutor(config)

	var calls int32
	failing := func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, NewError(KindTransientNetwork, "remote", "unreachable")
	}

	for i := 0; i < 2; i++ {
		_, err := Execute(context.Background(), exec, "remote", fastPolicy(1), failing)
		assert.ErrorIs(t, err, ErrTransientNetwork)
	}
	assert.Equal(t, "open", exec.BreakerState("remote"))

	_, err := Execute(context.Background(), exec, "remote", fastPolicy(3), failing)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricExecutorCircuitOpen, observability.T("operation", "remote")))

	// Other operations keep their own breaker.
	result, err := Execute(context.Background(), exec, "other", fastPolicy(1), func(ctx context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, result)
}

func TestExecute_TerminalErrorsDoNotTripBreaker(t *testing.T) {
	config := DefaultExecutorConfig()
	config.FailureThreshold = 1
	exec, _, _ := newTestExecutor(config)

	for i := 0; i < 3; i++ {
		_, err := Execute(context.Background(), exec, "validate", fastPolicy(1), func(ctx context.Context) (int, error) {
			return 0, NewError(KindValidation, "validate", "bad input")
		})
		assert.ErrorIs(t, err, ErrValidation)
	}
	assert.Equal(t, "closed", exec.BreakerState("validate"))
	assert.Equal(t, "none", exec.BreakerState("unknown"))
}

func TestExecute_DefaultBreakerLetsEveryAttemptRun(t *testing.T) {
	exec, _, _ := newTestExecutor(DefaultExecutorConfig())

	var calls int32
	failing := func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, NewError(KindTransientNetwork, "remote", "unreachable")
	}

	_, err := Execute(context.Background(), exec, "remote", fastPolicy(8), failing)
	assert.ErrorIs(t, err, ErrTransientNetwork)
	assert.NotErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(8), atomic.LoadInt32(&calls))
	assert.Equal(t, "closed", exec.BreakerState("remote"))

	_, err = Execute(context.Background(), exec, "remote", fastPolicy(3), failing)
	assert.ErrorIs(t, err, ErrTransientNetwork)
	assert.Equal(t, int32(11), atomic.LoadInt32(&calls))
}

func TestExecute_BreakerFollowsPolicyClassifier(t *testing.T) {
	config := DefaultExecutorConfig()
	config.FailureThreshold = 1
	exec, _, _ := newTestExecutor(config)

	errFlaky := errors.New("flaky upstream")
	policy := fastPolicy(2)
	policy.IsRetryable = func(err error) bool { return errors.Is(err, errFlaky) }

	var calls int32
	_, err := Execute(context.Background(), exec, "custom", policy, func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, errFlaky
	})
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, "open", exec.BreakerState("custom"))

	// A package-retryable error the policy rejects does not trip its breaker.
	policy.IsRetryable = func(error) bool { return false }
	_, err = Execute(context.Background(), exec, "strict", policy, func(ctx context.Context) (int, error) {
		return 0, NewError(KindTransientNetwork, "strict", "unreachable")
	})
	assert.ErrorIs(t, err, ErrTransientNetwork)
	assert.Equal(t, "closed", exec.BreakerState("strict"))
}

func TestExecute_CancellationDoesNotTripBreaker(t *testing.T) {
	config := DefaultExecutorConfig()
	config.FailureThreshold = 1
	exec, _, _ := newTestExecutor(config)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := Execute(ctx, exec, "cancelled", fastPolicy(3), func(ctx context.Context) (int, error) {
		cancel()
		return 0, NewError(KindTransientNetwork, "cancelled", "unreachable")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "closed", exec.BreakerState("cancelled"))
}
