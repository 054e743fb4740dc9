package application

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/nourish/internal/referral/domain"
)

func newAffiliateFixture(repo *fakeAffiliates, suffixes ...int) *AffiliateService {
	allocator := NewAllocator(repo, newTestExecutor(), fastPolicy(1), nil, nil)
	allocator.intn = sequence(suffixes...)
	return NewAffiliateService(repo, allocator, nil)
}

func TestAffiliateService_Register(t *testing.T) {
	repo := newFakeAffiliates()
	service := newAffiliateFixture(repo, 42)
	userID := uuid.New()

	affiliate, err := service.Register(context.Background(), userID, "Anna Baker")
	require.NoError(t, err)

	assert.Equal(t, "annabake0042", affiliate.Code)
	assert.Equal(t, userID, affiliate.UserID)
	assert.True(t, affiliate.Verified)
	assert.Len(t, repo.created, 1)
}

func TestAffiliateService_RegisterIsIdempotentPerUser(t *testing.T) {
	repo := newFakeAffiliates()
	service := newAffiliateFixture(repo, 1, 2)
	userID := uuid.New()

	first, err := service.Register(context.Background(), userID, "Anna")
	require.NoError(t, err)
	second, err := service.Register(context.Background(), userID, "Anna")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.created, 1)
}

func TestAffiliateService_ReallocatesOnCodeTaken(t *testing.T) {
	repo := newFakeAffiliates()
	repo.createErrs = []error{domain.ErrCodeTaken, nil}
	service := newAffiliateFixture(repo, 10, 20)

	affiliate, err := service.Register(context.Background(), uuid.New(), "anna")
	require.NoError(t, err)
	assert.Equal(t, "anna0020", affiliate.Code)
}

func TestAffiliateService_GivesUpAfterThreeCollisions(t *testing.T) {
	repo := newFakeAffiliates()
	repo.createErrs = []error{domain.ErrCodeTaken, domain.ErrCodeTaken, domain.ErrCodeTaken}
	service := newAffiliateFixture(repo, 1, 2, 3, 4)

	_, err := service.Register(context.Background(), uuid.New(), "anna")
	assert.ErrorIs(t, err, domain.ErrCodeTaken)
	assert.Empty(t, repo.created)
}

func TestAffiliateService_OtherCreateErrorIsReturned(t *testing.T) {
	repo := newFakeAffiliates()
	boom := errors.New("disk full")
	repo.createErrs = []error{boom}
	service := newAffiliateFixture(repo, 1)

	_, err := service.Register(context.Background(), uuid.New(), "anna")
	assert.ErrorIs(t, err, boom)
}

func TestAffiliateService_Get(t *testing.T) {
	repo := newFakeAffiliates()
	service := newAffiliateFixture(repo, 5)
	userID := uuid.New()

	_, err := service.Get(context.Background(), userID)
	assert.ErrorIs(t, err, domain.ErrAffiliateNotFound)

	_, err = service.Register(context.Background(), userID, "Anna")
	require.NoError(t, err)
	affiliate, err := service.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "anna0005", affiliate.Code)
}
