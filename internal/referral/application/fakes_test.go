package application

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/nourish/internal/referral/domain"
	"github.com/felixgeelhaar/nourish/internal/shared/resilience"
	"github.com/google/uuid"
)

type fakeChecker struct {
	mu      sync.Mutex
	taken   map[string]bool
	allTake bool
	err     error
	checked []string
}

func (f *fakeChecker) CodeExists(_ context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checked = append(f.checked, code)
	if f.err != nil {
		return false, f.err
	}
	return f.allTake || f.taken[code], nil
}

func (f *fakeChecker) checks() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.checked...)
}

type creditCall struct {
	code, source, key string
}

type fakeGateway struct {
	mu    sync.Mutex
	delay time.Duration
	errs  []error
	calls []creditCall
}

func (f *fakeGateway) Credit(_ context.Context, code, source, key string) error {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, creditCall{code: code, source: source, key: key})
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeGateway) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeAffiliates struct {
	fakeChecker
	byUser     map[uuid.UUID]*domain.Affiliate
	createErrs []error
	created    []*domain.Affiliate
}

func newFakeAffiliates() *fakeAffiliates {
	return &fakeAffiliates{byUser: make(map[uuid.UUID]*domain.Affiliate)}
}

func (f *fakeAffiliates) Create(_ context.Context, affiliate *domain.Affiliate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	f.created = append(f.created, affiliate)
	f.byUser[affiliate.UserID] = affiliate
	return nil
}

func (f *fakeAffiliates) FindByUserID(_ context.Context, userID uuid.UUID) (*domain.Affiliate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byUser[userID], nil
}

func fastPolicy(attempts int) resilience.RetryPolicy {
	return resilience.RetryPolicy{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
		Timeout:     time.Second,
	}
}

func newTestExecutor() *resilience.Executor {
	return resilience.NewExecutor(nil, nil, resilience.ExecutorConfig{})
}

// sequence returns an intn that yields values in order, then repeats the last.
func sequence(values ...int) func(int) int {
	var mu sync.Mutex
	i := 0
	return func(int) int {
		mu.Lock()
		defer mu.Unlock()
		v := values[i]
		if i < len(values)-1 {
			i++
		}
		return v
	}
}
