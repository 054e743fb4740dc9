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

// ProfileRepository implements domain.ProfileRepository over either driver.
type ProfileRepository struct {
	conn database.Connection
	now  func() time.Time
}

// NewProfileRepository creates a new repository.
func NewProfileRepository(conn database.Connection) *ProfileRepository {
	return &ProfileRepository{conn: conn, now: time.Now}
}

// FindByUserID returns the profile for a user, or nil when there is none.
func (r *ProfileRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	db := database.ExecutorFromContext(ctx, r.conn)

	var (
		displayName string
		status      sql.NullString
	)
	err := db.QueryRow(ctx,
		`SELECT display_name, subscription_status FROM profiles WHERE user_id = ?`,
		userID.String(),
	).Scan(&displayName, &status)
	if database.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &domain.Profile{
		UserID:             userID,
		DisplayName:        displayName,
		SubscriptionStatus: status.String,
	}, nil
}

// SetSubscriptionStatus records the coarse status on the profile, creating
// the row when missing.
func (r *ProfileRepository) SetSubscriptionStatus(ctx context.Context, userID uuid.UUID, status string) error {
	db := database.ExecutorFromContext(ctx, r.conn)
	_, err := db.Exec(ctx, `
		INSERT INTO profiles (user_id, subscription_status, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			subscription_status = excluded.subscription_status,
			updated_at = excluded.updated_at`,
		userID.String(), status, r.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("set profile subscription status: %w", err)
	}
	return nil
}

var _ domain.ProfileRepository = (*ProfileRepository)(nil)
