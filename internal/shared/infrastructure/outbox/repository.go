package outbox

import (
	"context"
	"time"
)

// Repository stores staged messages. Every write joins the transaction
// carried by ctx, if any.
type Repository interface {
	Save(ctx context.Context, msg *Message) error
	// SaveBatch stores msgs all-or-nothing.
	SaveBatch(ctx context.Context, msgs []*Message) error

	// GetUnpublished returns up to limit live messages whose retry time has
	// passed, oldest first.
	GetUnpublished(ctx context.Context, limit int) ([]*Message, error)

	MarkPublished(ctx context.Context, id int64) error
	// MarkFailed bumps the retry count and schedules the next attempt.
	MarkFailed(ctx context.Context, id int64, err string, nextRetryAt time.Time) error
	// MarkDead takes a message out of rotation for good.
	MarkDead(ctx context.Context, id int64, reason string) error

	// DeleteOld purges published messages older than the given number of
	// days and reports how many were removed.
	DeleteOld(ctx context.Context, olderThanDays int) (int64, error)
}
