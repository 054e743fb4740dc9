package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/nourish/internal/referral/domain"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/migrations"
)

func setupRepo(t *testing.T) *AffiliateRepository {
	t.Helper()
	ctx := context.Background()
	conn, err := sqlite.NewConnection(ctx, database.Config{SQLitePath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migrations.Run(ctx, conn))
	return NewAffiliateRepository(conn)
}

func TestAffiliateRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	userID := uuid.New()

	missing, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	affiliate, err := domain.NewAffiliate(userID, "Anna", domain.ReferralCode{Code: "anna0042", Verified: true})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, affiliate))

	found, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, affiliate.ID, found.ID)
	assert.Equal(t, "anna0042", found.Code)
	assert.Equal(t, "Anna", found.DisplayName)
	assert.True(t, found.Verified)
	assert.Equal(t, affiliate.CreatedAt.UnixMilli(), found.CreatedAt.UnixMilli())

	exists, err := repo.CodeExists(ctx, "ANNA0042")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.CodeExists(ctx, "anna0043")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAffiliateRepository_DuplicateCode(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)

	first, err := domain.NewAffiliate(uuid.New(), "Anna", domain.ReferralCode{Code: "anna0042"})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, first))

	second, err := domain.NewAffiliate(uuid.New(), "Anna B", domain.ReferralCode{Code: "anna0042"})
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Create(ctx, second), domain.ErrCodeTaken)
}
