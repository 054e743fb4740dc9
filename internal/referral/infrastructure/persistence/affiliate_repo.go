// Package persistence stores affiliates in SQLite or PostgreSQL.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/nourish/internal/referral/domain"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// AffiliateRepository implements domain.AffiliateRepository.
type AffiliateRepository struct {
	conn database.Connection
}

// NewAffiliateRepository creates a new repository.
func NewAffiliateRepository(conn database.Connection) *AffiliateRepository {
	return &AffiliateRepository{conn: conn}
}

// CodeExists reports whether an affiliate already owns code.
func (r *AffiliateRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	db := database.ExecutorFromContext(ctx, r.conn)
	var count int64
	err := db.QueryRow(ctx, `SELECT COUNT(1) FROM affiliates WHERE code = ?`, domain.NormalizeCode(code)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check referral code: %w", err)
	}
	return count > 0, nil
}

// Create inserts an affiliate. A duplicate code yields domain.ErrCodeTaken.
func (r *AffiliateRepository) Create(ctx context.Context, affiliate *domain.Affiliate) error {
	db := database.ExecutorFromContext(ctx, r.conn)
	_, err := db.Exec(ctx, `
		INSERT INTO affiliates (id, user_id, code, display_name, verified, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		affiliate.ID.String(),
		affiliate.UserID.String(),
		affiliate.Code,
		affiliate.DisplayName,
		affiliate.Verified,
		affiliate.CreatedAt.UnixMilli(),
	)
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("create affiliate %q: %w", affiliate.Code, domain.ErrCodeTaken)
	}
	if err != nil {
		return fmt.Errorf("create affiliate: %w", err)
	}
	return nil
}

// FindByUserID returns the user's affiliate record, or nil when there is none.
func (r *AffiliateRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Affiliate, error) {
	db := database.ExecutorFromContext(ctx, r.conn)

	var (
		id          string
		code        string
		displayName string
		verified    bool
		createdAt   int64
	)
	err := db.QueryRow(ctx, `
		SELECT id, code, display_name, verified, created_at
		FROM affiliates
		WHERE user_id = ?`, userID.String(),
	).Scan(&id, &code, &displayName, &verified, &createdAt)
	if database.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find affiliate: %w", err)
	}

	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse affiliate id: %w", err)
	}
	return &domain.Affiliate{
		ID:          parsedID,
		UserID:      userID,
		Code:        code,
		DisplayName: displayName,
		Verified:    verified,
		CreatedAt:   time.UnixMilli(createdAt).UTC(),
	}, nil
}

var _ domain.AffiliateRepository = (*AffiliateRepository)(nil)
