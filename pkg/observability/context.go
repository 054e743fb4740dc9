package observability

import (
	"context"

	"github.com/google/uuid"
)

type correlationKey struct{}

type userKey struct{}

// Attribute keys shared by logs, events and metrics.
const (
	CorrelationIDKey = "correlation_id"
	UserIDKey        = "user_id"
	OperationKey     = "operation"
	ErrorKey         = "error"
	AttemptKey       = "attempt"
)

// WithCorrelationID tags ctx with a correlation ID, generating one when id
// is empty. Events raised under ctx carry the same ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationIDFromContext returns the correlation ID, or "" when unset.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// WithUserID tags ctx with the user the work is done for.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserIDFromContext returns the user ID, or uuid.Nil when unset.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	id, _ := ctx.Value(userKey{}).(uuid.UUID)
	return id
}
