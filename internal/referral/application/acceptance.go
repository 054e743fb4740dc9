package application

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/nourish/internal/referral/domain"
	"github.com/felixgeelhaar/nourish/internal/shared/resilience"
	"github.com/felixgeelhaar/nourish/pkg/observability"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// OpCreditReferral is the executor operation for crediting a referral.
const OpCreditReferral = "referral.credit"

// idempotencyNamespace scopes the keys derived from referral codes.
var idempotencyNamespace = uuid.MustParse("5b0f3e3c-8f52-4d2a-9a43-6a1f0d3c7e21")

// IdempotencyKey derives the crediting key for code. Every attempt and every
// resumption of one code sends the same key.
func IdempotencyKey(code string) string {
	return uuid.NewSHA1(idempotencyNamespace, []byte(domain.NormalizeCode(code))).String()
}

// AcceptanceService submits accepted referrals for crediting at most once
// per client. Overlapping submissions of one code share a single call.
type AcceptanceService struct {
	inflight singleflight.Group
	tracker  *Tracker
	gateway  domain.CreditGateway
	executor *resilience.Executor
	policy   resilience.RetryPolicy
	metrics  observability.Metrics
	logger   *slog.Logger
}

// NewAcceptanceService creates the service. policy should be the write policy.
func NewAcceptanceService(tracker *Tracker, gateway domain.CreditGateway, executor *resilience.Executor, policy resilience.RetryPolicy, metrics observability.Metrics, logger *slog.Logger) *AcceptanceService {
	return &AcceptanceService{
		tracker:  tracker,
		gateway:  gateway,
		executor: executor,
		policy:   policy,
		metrics:  observability.OrNoop(metrics),
		logger:   observability.ForComponent(logger, "referral_acceptance"),
	}
}

// Accept credits code. A code already processed on this client is a silent
// no-op. On failure the pending slot stays armed so the referral can be
// resumed later.
func (s *AcceptanceService) Accept(ctx context.Context, code, source string) error {
	code = domain.NormalizeCode(code)
	if code == "" {
		return domain.ErrInvalidCode
	}
	source = domain.NormalizeSource(source)

	return s.once(code, func() error {
		processed, err := s.tracker.IsProcessed(ctx, code)
		if err != nil {
			return err
		}
		if processed {
			s.logger.Debug("referral already processed", "code", code)
			s.metrics.Counter(observability.MetricReferralSkipped, 1)
			return nil
		}

		if err := s.tracker.SetPending(ctx, code, source); err != nil {
			return err
		}
		if err := s.credit(ctx, code, source); err != nil {
			return err
		}
		return s.tracker.ClearPendingIf(ctx, code)
	})
}

// ResumePending consumes the pending referral, if any, and submits it. A
// failed submission re-arms the slot. It returns the consumed referral.
func (s *AcceptanceService) ResumePending(ctx context.Context) (*domain.PendingReferral, error) {
	pending, err := s.tracker.TakePending(ctx)
	if err != nil || pending == nil {
		return nil, err
	}

	err = s.once(pending.Code, func() error {
		processed, err := s.tracker.IsProcessed(ctx, pending.Code)
		if err != nil {
			return err
		}
		if processed {
			s.logger.Debug("dropping pending referral already processed", "code", pending.Code)
			s.metrics.Counter(observability.MetricReferralSkipped, 1)
			return nil
		}

		if err := s.credit(ctx, pending.Code, pending.Source); err != nil {
			if rearmErr := s.tracker.SetPending(ctx, pending.Code, pending.Source); rearmErr != nil {
				s.logger.Error("failed to re-arm pending referral",
					"code", pending.Code,
					observability.ErrorKey, rearmErr,
				)
			}
			return err
		}
		return nil
	})
	return pending, err
}

// once runs submit unless a submission of code is already in flight, in
// which case it waits for that one and returns its result.
func (s *AcceptanceService) once(code string, submit func() error) error {
	_, err, _ := s.inflight.Do(code, func() (any, error) {
		return nil, submit()
	})
	return err
}

// credit submits code and marks it processed on success.
func (s *AcceptanceService) credit(ctx context.Context, code, source string) error {
	key := IdempotencyKey(code)
	_, err := resilience.Execute(ctx, s.executor, OpCreditReferral, s.policy,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.gateway.Credit(ctx, code, source, key)
		})
	if err != nil {
		s.logger.Warn("referral crediting failed", "code", code, observability.ErrorKey, err)
		return err
	}

	s.metrics.Counter(observability.MetricReferralCredited, 1, observability.T("source", source))
	s.logger.Info("referral credited", "code", code, "source", source)
	return s.tracker.MarkProcessed(ctx, code)
}
