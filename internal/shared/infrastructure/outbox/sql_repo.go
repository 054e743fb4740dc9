package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sharedApplication "github.com/felixgeelhaar/nourish/internal/shared/application"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// SQLRepository implements Repository over either database driver.
type SQLRepository struct {
	conn database.Connection
}

// NewSQLRepository creates a new outbox repository.
func NewSQLRepository(conn database.Connection) *SQLRepository {
	return &SQLRepository{conn: conn}
}

// Save stores a message and sets its ID.
func (r *SQLRepository) Save(ctx context.Context, msg *Message) error {
	db := database.ExecutorFromContext(ctx, r.conn)

	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	err := db.QueryRow(ctx, `
		INSERT INTO outbox (
			event_id, aggregate_type, aggregate_id, routing_key, payload, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`,
		msg.EventID.String(),
		msg.AggregateType,
		msg.AggregateID.String(),
		msg.RoutingKey,
		string(msg.Payload),
		createdAt.UnixMilli(),
	).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("save outbox message %s: %w", msg.EventID, err)
	}
	return nil
}

// SaveBatch stores msgs in one transaction, joining the caller's if present.
func (r *SQLRepository) SaveBatch(ctx context.Context, msgs []*Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return sharedApplication.WithUnitOfWork(ctx, database.NewUnitOfWork(r.conn), func(txCtx context.Context) error {
		for _, msg := range msgs {
			if err := r.Save(txCtx, msg); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetUnpublished returns due messages, oldest first.
func (r *SQLRepository) GetUnpublished(ctx context.Context, limit int) ([]*Message, error) {
	db := database.ExecutorFromContext(ctx, r.conn)

	rows, err := db.Query(ctx, `
		SELECT id, event_id, aggregate_type, aggregate_id, routing_key, payload,
		       created_at, next_retry_at, retry_count, last_error
		FROM outbox
		WHERE published_at IS NULL
		  AND dead_lettered_at IS NULL
		  AND (next_retry_at IS NULL OR next_retry_at <= ?)
		ORDER BY created_at, id
		LIMIT ?`,
		time.Now().UnixMilli(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var (
			msg         Message
			eventID     string
			aggregateID string
			payload     string
			createdAt   int64
			nextRetryAt sql.NullInt64
			lastError   sql.NullString
		)
		if err := rows.Scan(
			&msg.ID, &eventID, &msg.AggregateType, &aggregateID, &msg.RoutingKey, &payload,
			&createdAt, &nextRetryAt, &msg.RetryCount, &lastError,
		); err != nil {
			return nil, fmt.Errorf("scan outbox message: %w", err)
		}
		if msg.EventID, err = uuid.Parse(eventID); err != nil {
			return nil, fmt.Errorf("outbox message %d: event id: %w", msg.ID, err)
		}
		if msg.AggregateID, err = uuid.Parse(aggregateID); err != nil {
			return nil, fmt.Errorf("outbox message %d: aggregate id: %w", msg.ID, err)
		}
		msg.Payload = []byte(payload)
		msg.CreatedAt = time.UnixMilli(createdAt).UTC()
		if nextRetryAt.Valid {
			at := time.UnixMilli(nextRetryAt.Int64).UTC()
			msg.NextRetryAt = &at
		}
		if lastError.Valid {
			text := lastError.String
			msg.LastError = &text
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return messages, nil
}

// MarkPublished marks a message as successfully published.
func (r *SQLRepository) MarkPublished(ctx context.Context, id int64) error {
	return r.exec(ctx, "mark published",
		`UPDATE outbox SET published_at = ?, next_retry_at = NULL WHERE id = ?`,
		time.Now().UnixMilli(), id,
	)
}

// MarkFailed increments the retry count and schedules the next attempt.
func (r *SQLRepository) MarkFailed(ctx context.Context, id int64, errText string, nextRetryAt time.Time) error {
	return r.exec(ctx, "mark failed",
		`UPDATE outbox SET retry_count = retry_count + 1, last_error = ?, next_retry_at = ? WHERE id = ?`,
		errText, nextRetryAt.UnixMilli(), id,
	)
}

// MarkDead parks a message so it is never picked up again.
func (r *SQLRepository) MarkDead(ctx context.Context, id int64, reason string) error {
	return r.exec(ctx, "mark dead",
		`UPDATE outbox SET retry_count = retry_count + 1, dead_lettered_at = ?, dead_letter_reason = ?, last_error = ? WHERE id = ?`,
		time.Now().UnixMilli(), reason, reason, id,
	)
}

// DeleteOld removes published messages older than the retention period.
func (r *SQLRepository) DeleteOld(ctx context.Context, olderThanDays int) (int64, error) {
	db := database.ExecutorFromContext(ctx, r.conn)

	cutoff := time.Now().AddDate(0, 0, -olderThanDays).UnixMilli()
	result, err := db.Exec(ctx, `DELETE FROM outbox WHERE published_at IS NOT NULL AND published_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old outbox messages: %w", err)
	}
	return result.RowsAffected()
}

func (r *SQLRepository) exec(ctx context.Context, op, query string, args ...any) error {
	db := database.ExecutorFromContext(ctx, r.conn)
	if _, err := db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

var _ Repository = (*SQLRepository)(nil)
