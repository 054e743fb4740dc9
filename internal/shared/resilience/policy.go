package resilience

import (
	"errors"
	"fmt"
	"time"
)

// RetryPolicy describes how often and how long an operation may be attempted.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Timeout     time.Duration
	// IsRetryable classifies errors; nil uses the package default.
	IsRetryable func(error) bool
}

// Policies groups the named policies handed to application services.
type Policies struct {
	Read  RetryPolicy
	Write RetryPolicy
	Check RetryPolicy
}

// DefaultPolicies returns the stock read, write and check policies.
func DefaultPolicies() Policies {
	return Policies{
		Read:  DefaultPolicy(),
		Write: WritePolicy(),
		Check: CheckPolicy(),
	}
}

// DefaultPolicy is used for idempotent reads.
func DefaultPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Timeout:     10 * time.Second,
	}
}

// WritePolicy is used for writes that carry an idempotency key.
func WritePolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    8 * time.Second,
		Timeout:     15 * time.Second,
	}
}

// CheckPolicy bounds the narrow-scope entitlement check.
func CheckPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 2,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    time.Second,
		Timeout:     5 * time.Second,
	}
}

// Delay returns the wait before the attempt following attempt n (1-based):
// min(BaseDelay * 2^(n-1), MaxDelay).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		if delay > p.MaxDelay/2 {
			return p.MaxDelay
		}
		delay *= 2
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Validate checks the policy invariants.
func (p RetryPolicy) Validate() error {
	var errs []error
	if p.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max attempts must be at least 1, got %d", p.MaxAttempts))
	}
	if p.BaseDelay < 0 || p.MaxDelay < 0 {
		errs = append(errs, errors.New("delays must not be negative"))
	}
	if p.BaseDelay > p.MaxDelay {
		errs = append(errs, fmt.Errorf("base delay %s exceeds max delay %s", p.BaseDelay, p.MaxDelay))
	}
	if p.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if len(errs) > 0 {
		return WrapError(KindValidation, "retry policy", errors.Join(errs...))
	}
	return nil
}

func (p RetryPolicy) retryable(err error) bool {
	if p.IsRetryable != nil {
		return p.IsRetryable(err)
	}
	return IsRetryable(err)
}
