package application

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/nourish/pkg/observability"
)

func TestBaseCode(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"John Smith", "johnsmit"},
		{"anna", "anna"},
		{"Zoë-42!", "zo42"},
		{"x", "ref"},
		{"a!", "ref"},
		{"", "ref"},
		{"  ÀÉÎ ", "ref"},
		{"abc", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseCode(tt.name))
		})
	}
}

func TestAllocator_FirstCandidateFree(t *testing.T) {
	checker := &fakeChecker{}
	allocator := NewAllocator(checker, newTestExecutor(), fastPolicy(1), nil, nil)
	allocator.intn = sequence(42)

	code := allocator.Allocate(context.Background(), "John Smith")

	assert.Equal(t, "johnsmit0042", code.Code)
	assert.True(t, code.Verified)
	assert.Equal(t, []string{"johnsmit0042"}, checker.checks())
}

func TestAllocator_TakenCandidateDrawsNewSuffix(t *testing.T) {
	checker := &fakeChecker{taken: map[string]bool{"johnsmit0007": true}}
	allocator := NewAllocator(checker, newTestExecutor(), fastPolicy(1), nil, nil)
	allocator.intn = sequence(7, 7, 7, 1234)

	code := allocator.Allocate(context.Background(), "John Smith")

	assert.Equal(t, "johnsmit1234", code.Code)
	assert.True(t, code.Verified)
	assert.Equal(t, []string{"johnsmit0007", "johnsmit1234"}, checker.checks())
}

func TestAllocator_GivesUpAfterFiveChecks(t *testing.T) {
	checker := &fakeChecker{allTake: true}
	metrics := observability.NewInMemoryMetrics()
	allocator := NewAllocator(checker, newTestExecutor(), fastPolicy(1), metrics, nil)
	allocator.intn = sequence(1, 2, 3, 4, 5, 6)

	code := allocator.Allocate(context.Background(), "x")

	assert.Equal(t, "ref0005", code.Code)
	assert.False(t, code.Verified)
	assert.Len(t, checker.checks(), 5)
	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricReferralCodeUnverified, observability.T("reason", "exhausted")))
}

func TestAllocator_RandomSuffixFormat(t *testing.T) {
	checker := &fakeChecker{allTake: true}
	allocator := NewAllocator(checker, newTestExecutor(), fastPolicy(1), nil, nil)

	code := allocator.Allocate(context.Background(), "Anna Baker")

	assert.Regexp(t, regexp.MustCompile(`^annabake\d{4}$`), code.Code)
	checks := checker.checks()
	require.Len(t, checks, 5)
	for i := 1; i < len(checks); i++ {
		assert.NotEqual(t, checks[i-1], checks[i])
	}
}

func TestAllocator_CheckFailureReturnsUnverified(t *testing.T) {
	checker := &fakeChecker{err: errors.New("store unreachable")}
	allocator := NewAllocator(checker, newTestExecutor(), fastPolicy(2), nil, nil)
	allocator.intn = sequence(99)

	code := allocator.Allocate(context.Background(), "anna")

	assert.Equal(t, "anna0099", code.Code)
	assert.False(t, code.Verified)
	assert.Len(t, checker.checks(), 1)
}
