package application

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/nourish/internal/billing/domain"
	"github.com/felixgeelhaar/nourish/internal/shared/resilience"
	"github.com/google/uuid"
)

type fakeSubscriptions struct {
	mu      sync.Mutex
	records map[uuid.UUID]*domain.Subscription
	findErr error
	finds   int
	upserts int
}

func newFakeSubscriptions() *fakeSubscriptions {
	return &fakeSubscriptions{records: make(map[uuid.UUID]*domain.Subscription)}
}

func (f *fakeSubscriptions) Upsert(_ context.Context, sub *domain.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	copied := *sub
	f.records[sub.UserID] = &copied
	return nil
}

func (f *fakeSubscriptions) FindByUserID(_ context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finds++
	if f.findErr != nil {
		return nil, f.findErr
	}
	sub, ok := f.records[userID]
	if !ok {
		return nil, nil
	}
	copied := *sub
	return &copied, nil
}

func (f *fakeSubscriptions) findCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finds
}

type fakeProfiles struct {
	mu       sync.Mutex
	statuses map[uuid.UUID]string
	findErr  error
	finds    int
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{statuses: make(map[uuid.UUID]string)}
}

func (f *fakeProfiles) FindByUserID(_ context.Context, userID uuid.UUID) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finds++
	if f.findErr != nil {
		return nil, f.findErr
	}
	status, ok := f.statuses[userID]
	if !ok {
		return nil, nil
	}
	return &domain.Profile{UserID: userID, SubscriptionStatus: status}, nil
}

func (f *fakeProfiles) SetSubscriptionStatus(_ context.Context, userID uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[userID] = status
	return nil
}

func (f *fakeProfiles) findCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finds
}

type fakePremium struct {
	mu     sync.Mutex
	result bool
	err    error
	calls  int
}

func (f *fakePremium) HasPremiumAccess(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result, f.err
}

func (f *fakePremium) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fastPolicies() resilience.Policies {
	fast := resilience.RetryPolicy{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
		Timeout:     time.Second,
	}
	return resilience.Policies{Read: fast, Write: fast, Check: fast}
}

func newTestExecutor() *resilience.Executor {
	return resilience.NewExecutor(nil, nil, resilience.ExecutorConfig{})
}
