package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/nourish/internal/referral/domain"
	"github.com/felixgeelhaar/nourish/pkg/observability"
	"github.com/google/uuid"
)

const maxRegisterAttempts = 3

// AffiliateService registers users as affiliates with an allocated code.
type AffiliateService struct {
	affiliates domain.AffiliateRepository
	allocator  *Allocator
	logger     *slog.Logger
}

// NewAffiliateService creates a new affiliate service.
func NewAffiliateService(affiliates domain.AffiliateRepository, allocator *Allocator, logger *slog.Logger) *AffiliateService {
	return &AffiliateService{
		affiliates: affiliates,
		allocator:  allocator,
		logger:     observability.ForComponent(logger, "affiliate_service"),
	}
}

// Register makes userID an affiliate. A user who already is one gets the
// existing record back. A code lost to a concurrent registration is
// reallocated up to three times.
func (s *AffiliateService) Register(ctx context.Context, userID uuid.UUID, displayName string) (*domain.Affiliate, error) {
	existing, err := s.affiliates.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	for attempt := 1; attempt <= maxRegisterAttempts; attempt++ {
		code := s.allocator.Allocate(ctx, displayName)
		code.OwnerID = userID

		affiliate, err := domain.NewAffiliate(userID, displayName, code)
		if err != nil {
			return nil, err
		}

		err = s.affiliates.Create(ctx, affiliate)
		if err == nil {
			s.logger.Info("affiliate registered", "user_id", userID.String(), "code", affiliate.Code)
			return affiliate, nil
		}
		if !errors.Is(err, domain.ErrCodeTaken) {
			return nil, err
		}
		s.logger.Warn("referral code taken at insert, reallocating",
			"code", code.Code,
			observability.AttemptKey, attempt,
		)
	}
	return nil, fmt.Errorf("register affiliate after %d attempts: %w", maxRegisterAttempts, domain.ErrCodeTaken)
}

// Get returns the user's affiliate record.
func (s *AffiliateService) Get(ctx context.Context, userID uuid.UUID) (*domain.Affiliate, error) {
	affiliate, err := s.affiliates.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, domain.ErrAffiliateNotFound
	}
	return affiliate, nil
}
