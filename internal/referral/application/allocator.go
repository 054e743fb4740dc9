// Package application allocates referral codes and tracks which referrals
// this client has already submitted for crediting.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/felixgeelhaar/nourish/internal/referral/domain"
	"github.com/felixgeelhaar/nourish/internal/shared/resilience"
	"github.com/felixgeelhaar/nourish/pkg/observability"
)

const (
	// OpCheckCode is the executor operation for the uniqueness check.
	OpCheckCode = "referral.code.check"

	maxBaseLength     = 8
	minBaseLength     = 3
	fallbackBase      = "ref"
	suffixSpace       = 10000
	maxAllocateChecks = 5
)

// Allocator derives human-readable referral codes from a name. It is a hint
// generator: the code is not reserved, and the owning store's unique
// constraint has the final word.
type Allocator struct {
	checker  domain.CodeChecker
	executor *resilience.Executor
	policy   resilience.RetryPolicy
	metrics  observability.Metrics
	logger   *slog.Logger
	intn     func(n int) int
}

// NewAllocator creates an allocator.
func NewAllocator(checker domain.CodeChecker, executor *resilience.Executor, policy resilience.RetryPolicy, metrics observability.Metrics, logger *slog.Logger) *Allocator {
	return &Allocator{
		checker:  checker,
		executor: executor,
		policy:   policy,
		metrics:  observability.OrNoop(metrics),
		logger:   observability.ForComponent(logger, "referral_allocator"),
		intn:     rand.IntN,
	}
}

// BaseCode lowercases name, keeps only [a-z0-9] and truncates to 8
// characters. Bases shorter than 3 characters become "ref".
func BaseCode(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == maxBaseLength {
				break
			}
		}
	}
	if b.Len() < minBaseLength {
		return fallbackBase
	}
	return b.String()
}

// Allocate returns a code for candidateName. It checks up to five
// candidates; when none is confirmed free, or the check itself fails, the
// last candidate is returned unverified.
func (a *Allocator) Allocate(ctx context.Context, candidateName string) domain.ReferralCode {
	base := BaseCode(candidateName)
	logger := a.logger.With("base", base)

	previous := -1
	var candidate string
	for attempt := 1; attempt <= maxAllocateChecks; attempt++ {
		suffix := a.drawSuffix(previous)
		previous = suffix
		code := fmt.Sprintf("%s%04d", base, suffix)
		candidate = code

		exists, err := resilience.Execute(ctx, a.executor, OpCheckCode, a.policy,
			func(ctx context.Context) (bool, error) {
				return a.checker.CodeExists(ctx, code)
			})
		if err != nil {
			logger.Warn("uniqueness check failed, returning unverified code",
				"code", candidate,
				observability.ErrorKey, err,
			)
			a.metrics.Counter(observability.MetricReferralCodeUnverified, 1, observability.T("reason", "check_failed"))
			return domain.ReferralCode{Code: candidate}
		}
		if !exists {
			return domain.ReferralCode{Code: candidate, Verified: true}
		}
		logger.Debug("referral code taken", "code", candidate, observability.AttemptKey, attempt)
	}

	logger.Warn("no free referral code found, returning last candidate",
		"code", candidate,
		"checks", maxAllocateChecks,
	)
	a.metrics.Counter(observability.MetricReferralCodeUnverified, 1, observability.T("reason", "exhausted"))
	return domain.ReferralCode{Code: candidate}
}

// drawSuffix returns a suffix in [0, 9999] different from previous.
func (a *Allocator) drawSuffix(previous int) int {
	for {
		suffix := a.intn(suffixSpace)
		if suffix != previous {
			return suffix
		}
	}
}
