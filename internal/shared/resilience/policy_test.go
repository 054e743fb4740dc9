package resilience

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_Delay(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 6, BaseDelay: 250 * time.Millisecond, MaxDelay: 3 * time.Second, Timeout: time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 250 * time.Millisecond},
		{1, 250 * time.Millisecond},
		{2, 500 * time.Millisecond},
		{3, time.Second},
		{4, 2 * time.Second},
		{5, 3 * time.Second},
		{60, 3 * time.Second},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Delay(tt.attempt))
		})
	}
}

func TestRetryPolicy_DelayUnboundedCeiling(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 100, BaseDelay: time.Second, MaxDelay: math.MaxInt64, Timeout: time.Second}

	prev := time.Duration(0)
	for attempt := 1; attempt <= 100; attempt++ {
		delay := policy.Delay(attempt)
		assert.Positive(t, delay, "attempt %d", attempt)
		assert.GreaterOrEqual(t, delay, prev, "attempt %d", attempt)
		prev = delay
	}
	assert.Equal(t, time.Duration(math.MaxInt64), policy.Delay(100))
}

func TestRetryPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())
	assert.NoError(t, WritePolicy().Validate())
	assert.NoError(t, CheckPolicy().Validate())

	invalid := []RetryPolicy{
		{MaxAttempts: 0, Timeout: time.Second},
		{MaxAttempts: 1, BaseDelay: 2 * time.Second, MaxDelay: time.Second, Timeout: time.Second},
		{MaxAttempts: 1, BaseDelay: -1, Timeout: time.Second},
		{MaxAttempts: 1},
	}
	for _, p := range invalid {
		assert.ErrorIs(t, p.Validate(), ErrValidation)
	}
}

func TestRetryPolicy_CustomClassifier(t *testing.T) {
	custom := errors.New("rate limited")
	policy := RetryPolicy{IsRetryable: func(err error) bool { return errors.Is(err, custom) }}

	assert.True(t, policy.retryable(custom))
	assert.False(t, policy.retryable(NewError(KindTimeout, "op", "")))
	assert.True(t, RetryPolicy{}.retryable(NewError(KindTimeout, "op", "")))
}

func TestError_Classification(t *testing.T) {
	rejected := NewError(KindUpstreamRejected, "share-content", "post too long")
	wrapped := fmt.Errorf("sharing: %w", rejected)

	assert.ErrorIs(t, wrapped, ErrUpstreamRejected)
	assert.NotErrorIs(t, wrapped, ErrValidation)
	assert.False(t, IsRetryable(wrapped))
	assert.Equal(t, "post too long", UpstreamMessage(wrapped))
	assert.Equal(t, "share-content: upstream_rejected: post too long", rejected.Error())

	cause := errors.New("dial tcp: refused")
	transient := WrapError(KindTransientNetwork, "", cause)
	assert.ErrorIs(t, transient, cause)
	assert.True(t, IsRetryable(transient))
	assert.Equal(t, "", UpstreamMessage(transient))
	assert.Equal(t, "transient_network: dial tcp: refused", transient.Error())

	assert.Equal(t, "timeout: operation timed out", (&Error{Kind: KindTimeout}).Error())
	assert.False(t, IsRetryable(nil))

	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
}
