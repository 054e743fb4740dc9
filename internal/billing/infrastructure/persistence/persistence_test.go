package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/nourish/internal/billing/domain"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/migrations"
)

func setupDB(t *testing.T) database.Connection {
	t.Helper()
	ctx := context.Background()
	conn, err := sqlite.NewConnection(ctx, database.Config{SQLitePath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migrations.Run(ctx, conn))
	return conn
}

func TestSubscriptionRepository_UpsertAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriptionRepository(setupDB(t))
	userID := uuid.New()

	missing, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	plan := "annual"
	periodEnd := time.Date(2027, 1, 1, 12, 0, 0, 0, time.UTC)
	sub := &domain.Subscription{
		UserID:             userID,
		Status:             domain.SubscriptionActive,
		PlanID:             &plan,
		CurrentPeriodEnd:   &periodEnd,
		ProviderCustomerID: "cus_123",
	}
	require.NoError(t, repo.Upsert(ctx, sub))

	found, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, domain.SubscriptionActive, found.Status)
	require.NotNil(t, found.PlanID)
	assert.Equal(t, "annual", *found.PlanID)
	require.NotNil(t, found.CurrentPeriodEnd)
	assert.True(t, periodEnd.Equal(*found.CurrentPeriodEnd))
	assert.Equal(t, "cus_123", found.ProviderCustomerID)
	assert.Empty(t, found.ProviderSubscriptionID)
	assert.False(t, found.UpdatedAt.IsZero())

	sub.Status = domain.SubscriptionCanceled
	sub.PlanID = nil
	sub.CurrentPeriodEnd = nil
	require.NoError(t, repo.Upsert(ctx, sub))

	found, err = repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionCanceled, found.Status)
	assert.Nil(t, found.PlanID)
	assert.Nil(t, found.CurrentPeriodEnd)
}

func TestSubscriptionRepository_UnitOfWorkRollback(t *testing.T) {
	ctx := context.Background()
	conn := setupDB(t)
	repo := NewSubscriptionRepository(conn)
	uow := database.NewUnitOfWork(conn)
	userID := uuid.New()

	txCtx, err := uow.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(txCtx, &domain.Subscription{UserID: userID, Status: domain.SubscriptionActive}))
	require.NoError(t, uow.Rollback(txCtx))

	found, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestProfileRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewProfileRepository(setupDB(t))
	userID := uuid.New()

	missing, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.SetSubscriptionStatus(ctx, userID, "premium"))
	profile, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "premium", profile.SubscriptionStatus)
	assert.Equal(t, "", profile.DisplayName)
	assert.True(t, profile.Entitled())

	require.NoError(t, repo.SetSubscriptionStatus(ctx, userID, "canceled"))
	profile, err = repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.False(t, profile.Entitled())
}
