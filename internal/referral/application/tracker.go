package application

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/felixgeelhaar/nourish/internal/referral/domain"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/clientstore"
)

// Storage keys of the tracker.
const (
	ProcessedKey = "referral.processed"
	PendingKey   = "referral.pending"
)

// Tracker remembers which referral codes this client has submitted, and
// holds at most one pending referral awaiting submission.
type Tracker struct {
	mu    sync.Mutex
	store clientstore.Store
	now   func() time.Time
}

// NewTracker creates a tracker over durable client storage.
func NewTracker(store clientstore.Store) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

// IsProcessed reports whether code was already credited from this client.
func (t *Tracker) IsProcessed(ctx context.Context, code string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	processed, err := t.processed(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(processed, domain.NormalizeCode(code)), nil
}

// MarkProcessed adds code to the processed set. It never removes codes.
func (t *Tracker) MarkProcessed(ctx context.Context, code string) error {
	code = domain.NormalizeCode(code)
	if code == "" {
		return domain.ErrInvalidCode
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	processed, err := t.processed(ctx)
	if err != nil {
		return err
	}
	if slices.Contains(processed, code) {
		return nil
	}
	raw, err := json.Marshal(append(processed, code))
	if err != nil {
		return fmt.Errorf("encode processed referrals: %w", err)
	}
	return t.store.Set(ctx, ProcessedKey, string(raw))
}

// Pending returns the pending referral, or nil when the slot is empty.
func (t *Tracker) Pending(ctx context.Context) (*domain.PendingReferral, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending(ctx)
}

// SetPending arms the pending slot with code, replacing its previous content.
func (t *Tracker) SetPending(ctx context.Context, code, source string) error {
	code = domain.NormalizeCode(code)
	if code == "" {
		return domain.ErrInvalidCode
	}

	raw, err := json.Marshal(domain.PendingReferral{
		Code:    code,
		Source:  domain.NormalizeSource(source),
		ArmedAt: t.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode pending referral: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Set(ctx, PendingKey, string(raw))
}

// ClearPending empties the pending slot.
func (t *Tracker) ClearPending(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Remove(ctx, PendingKey)
}

// ClearPendingIf empties the pending slot only while it holds code.
func (t *Tracker) ClearPendingIf(ctx context.Context, code string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	pending, err := t.pending(ctx)
	if err != nil || pending == nil || pending.Code != domain.NormalizeCode(code) {
		return err
	}
	return t.store.Remove(ctx, PendingKey)
}

// TakePending returns the pending referral and empties the slot in one step.
func (t *Tracker) TakePending(ctx context.Context) (*domain.PendingReferral, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pending, err := t.pending(ctx)
	if err != nil || pending == nil {
		return nil, err
	}
	if err := t.store.Remove(ctx, PendingKey); err != nil {
		return nil, err
	}
	return pending, nil
}

func (t *Tracker) processed(ctx context.Context) ([]string, error) {
	raw, ok, err := t.store.Get(ctx, ProcessedKey)
	if err != nil || !ok {
		return nil, err
	}
	var codes []string
	if err := json.Unmarshal([]byte(raw), &codes); err != nil {
		return nil, fmt.Errorf("decode processed referrals: %w", err)
	}
	return codes, nil
}

func (t *Tracker) pending(ctx context.Context) (*domain.PendingReferral, error) {
	raw, ok, err := t.store.Get(ctx, PendingKey)
	if err != nil || !ok {
		return nil, err
	}
	var pending domain.PendingReferral
	if err := json.Unmarshal([]byte(raw), &pending); err != nil {
		return nil, fmt.Errorf("decode pending referral: %w", err)
	}
	if pending.Code == "" {
		return nil, nil
	}
	return &pending, nil
}
