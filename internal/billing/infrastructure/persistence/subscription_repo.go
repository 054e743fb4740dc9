// Package persistence stores billing records in SQLite or PostgreSQL.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/felixgeelhaar/nourish/internal/billing/domain"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// SubscriptionRepository implements domain.SubscriptionRepository over either driver.
type SubscriptionRepository struct {
	conn database.Connection
}

// NewSubscriptionRepository creates a new repository.
func NewSubscriptionRepository(conn database.Connection) *SubscriptionRepository {
	return &SubscriptionRepository{conn: conn}
}

// Upsert inserts or updates a subscription.
func (r *SubscriptionRepository) Upsert(ctx context.Context, subscription *domain.Subscription) error {
	db := database.ExecutorFromContext(ctx, r.conn)

	updatedAt := subscription.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	var planID sql.NullString
	if subscription.PlanID != nil {
		planID = sql.NullString{String: *subscription.PlanID, Valid: true}
	}
	var periodEnd sql.NullInt64
	if subscription.CurrentPeriodEnd != nil {
		periodEnd = sql.NullInt64{Int64: subscription.CurrentPeriodEnd.UnixMilli(), Valid: true}
	}

	_, err := db.Exec(ctx, `
		INSERT INTO subscriptions (
			user_id, status, plan_id, current_period_end,
			provider_customer_id, provider_subscription_id, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			status = excluded.status,
			plan_id = excluded.plan_id,
			current_period_end = excluded.current_period_end,
			provider_customer_id = excluded.provider_customer_id,
			provider_subscription_id = excluded.provider_subscription_id,
			updated_at = excluded.updated_at`,
		subscription.UserID.String(),
		string(subscription.Status),
		planID,
		periodEnd,
		subscription.ProviderCustomerID,
		subscription.ProviderSubscriptionID,
		updatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

// FindByUserID returns the subscription for a user, or nil when there is none.
func (r *SubscriptionRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	db := database.ExecutorFromContext(ctx, r.conn)

	var (
		status                 string
		planID                 sql.NullString
		periodEnd              sql.NullInt64
		providerCustomerID     sql.NullString
		providerSubscriptionID sql.NullString
		updatedAt              int64
	)
	err := db.QueryRow(ctx, `
		SELECT status, plan_id, current_period_end,
		       provider_customer_id, provider_subscription_id, updated_at
		FROM subscriptions
		WHERE user_id = ?`, userID.String(),
	).Scan(&status, &planID, &periodEnd, &providerCustomerID, &providerSubscriptionID, &updatedAt)
	if database.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find subscription: %w", err)
	}

	subscription := &domain.Subscription{
		UserID:                 userID,
		Status:                 domain.ParseSubscriptionStatus(status),
		ProviderCustomerID:     providerCustomerID.String,
		ProviderSubscriptionID: providerSubscriptionID.String,
		UpdatedAt:              time.UnixMilli(updatedAt).UTC(),
	}
	if planID.Valid {
		plan := planID.String
		subscription.PlanID = &plan
	}
	if periodEnd.Valid {
		end := time.UnixMilli(periodEnd.Int64).UTC()
		subscription.CurrentPeriodEnd = &end
	}
	return subscription, nil
}

var _ domain.SubscriptionRepository = (*SubscriptionRepository)(nil)
