package quota

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"nutriscan/internal/infrastructure/config"
	"nutriscan/internal/infrastructure/store"
	"nutriscan/internal/pkg/common"

	"go.uber.org/zap"
)

func init() {
	// Package logging helpers expect an initialized logger.
	common.Logger = zap.NewNop()
}

var errStoreDown = errors.New("store down")

// fakeStore is an in-memory KV used to drive the counters deterministically.
type fakeStore struct {
	mu      sync.Mutex
	counts  map[string]int64
	values  map[string][]byte
	expires map[string]time.Duration
	failing bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		counts:  make(map[string]int64),
		values:  make(map[string][]byte),
		expires: make(map[string]time.Duration),
	}
}

func (s *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return nil, errStoreDown
	}
	if count, ok := s.counts[key]; ok {
		return []byte(strconv.FormatInt(count, 10)), nil
	}
	if value, ok := s.values[key]; ok {
		return value, nil
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errStoreDown
	}
	s.values[key] = value
	s.expires[key] = ttl
	return nil
}

func (s *fakeStore) Increment(ctx context.Context, key string) (int64, error) {
	return s.IncrementBy(ctx, key, 1)
}

func (s *fakeStore) IncrementBy(ctx context.Context, key string, n int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return 0, errStoreDown
	}
	s.counts[key] += n
	return s.counts[key], nil
}

func (s *fakeStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errStoreDown
	}
	s.expires[key] = ttl
	return nil
}

func (s *fakeStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return false, errStoreDown
	}
	_, inCounts := s.counts[key]
	_, inValues := s.values[key]
	return inCounts || inValues, nil
}

func (s *fakeStore) Ping(ctx context.Context) error {
	if s.failing {
		return errStoreDown
	}
	return nil
}

func testRateLimitConfig() *config.RateLimitConfig {
	return &config.RateLimitConfig{
		Enabled:        true,
		MaxRequests:    30,
		MaxLLMRequests: 10,
		Window:         time.Hour,
	}
}

func TestRateLimiterTiers(t *testing.T) {
	ctx := context.Background()
	kv := newFakeStore()
	limiter := NewRateLimiter(kv, testRateLimitConfig())

	for i := 1; i <= 10; i++ {
		decision, err := limiter.Decide(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
		if !decision.Allowed || decision.UseFallback {
			t.Fatalf("request %d: allowed=%v fallback=%v, want allowed without fallback",
				i, decision.Allowed, decision.UseFallback)
		}
	}

	for i := 11; i <= 30; i++ {
		decision, err := limiter.Decide(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
		if !decision.Allowed || !decision.UseFallback {
			t.Fatalf("request %d: allowed=%v fallback=%v, want allowed on fallback tier",
				i, decision.Allowed, decision.UseFallback)
		}
	}

	decision, err := limiter.Decide(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("request 31: unexpected error: %v", err)
	}
	if decision.Allowed {
		t.Error("request 31 should be rejected")
	}
	if decision.Count != 31 {
		t.Errorf("count = %d, want 31: the increment happens before the ceiling check", decision.Count)
	}
	if decision.RetryAfter != time.Hour {
		t.Errorf("retry after = %v, want window duration", decision.RetryAfter)
	}
}

func TestRateLimiterWindowStartsOnFirstObservation(t *testing.T) {
	ctx := context.Background()
	kv := newFakeStore()
	limiter := NewRateLimiter(kv, testRateLimitConfig())

	if _, err := limiter.Decide(ctx, "5.6.7.8"); err != nil {
		t.Fatal(err)
	}
	if ttl := kv.expires[rateLimitKeyPrefix+"5.6.7.8"]; ttl != time.Hour {
		t.Errorf("window ttl = %v, want 1h", ttl)
	}
}

func TestRateLimiterClientsIsolated(t *testing.T) {
	ctx := context.Background()
	kv := newFakeStore()
	limiter := NewRateLimiter(kv, testRateLimitConfig())

	for i := 0; i < 30; i++ {
		if _, err := limiter.Decide(ctx, "a"); err != nil {
			t.Fatal(err)
		}
	}

	decision, err := limiter.Decide(ctx, "b")
	if err != nil {
		t.Fatal(err)
	}
	if !decision.Allowed || decision.UseFallback || decision.Count != 1 {
		t.Errorf("fresh client decision = %+v", decision)
	}
}

func TestRateLimiterStoreErrorFailsClosed(t *testing.T) {
	ctx := context.Background()
	kv := newFakeStore()
	kv.failing = true
	limiter := NewRateLimiter(kv, testRateLimitConfig())

	decision, err := limiter.Decide(ctx, "1.2.3.4")
	if err == nil {
		t.Fatal("expected store error to surface")
	}
	if !decision.Allowed {
		t.Error("store failure must not reject the request")
	}
	if !decision.UseFallback {
		t.Error("store failure must deny the costly path")
	}
}

func TestUsageTrackerExhaustion(t *testing.T) {
	ctx := context.Background()
	kv := newFakeStore()
	tracker := NewUsageTracker(kv, 3)

	for i := 1; i <= 3; i++ {
		if tracker.RecordRequest(ctx) {
			t.Fatalf("request %d should not exhaust a budget of 3", i)
		}
	}
	if !tracker.RecordRequest(ctx) {
		t.Error("request 4 should report the budget exhausted")
	}
}

func TestUsageTrackerStoreErrorFailsClosed(t *testing.T) {
	ctx := context.Background()
	kv := newFakeStore()
	kv.failing = true
	tracker := NewUsageTracker(kv, 3)

	if !tracker.RecordRequest(ctx) {
		t.Error("store failure should force the fallback strategy")
	}
}

func TestTokenBudgetWatermark(t *testing.T) {
	ctx := context.Background()
	kv := newFakeStore()
	budget := NewTokenBudget(kv, 100, 0.1)

	if !budget.TryCharge(ctx, 50) {
		t.Fatal("first charge of 50 should fit under the 90 watermark")
	}
	if !budget.TryCharge(ctx, 40) {
		t.Fatal("charge reaching exactly the watermark should fit")
	}
	if budget.TryCharge(ctx, 1) {
		t.Error("charge crossing the watermark should be refused")
	}
}

func TestTokenBudgetStoreErrorFailsClosed(t *testing.T) {
	ctx := context.Background()
	kv := newFakeStore()
	kv.failing = true
	budget := NewTokenBudget(kv, 100, 0.1)

	if budget.TryCharge(ctx, 1) {
		t.Error("store failure should refuse the charge")
	}
}

func TestMonthWindow(t *testing.T) {
	now := time.Date(2024, time.March, 31, 23, 0, 0, 0, time.UTC)
	if got := monthWindow(now); got != time.Hour {
		t.Errorf("monthWindow = %v, want 1h", got)
	}

	key := monthKey(usageKeyPrefix, now)
	if key != "api_usage:2024-03" {
		t.Errorf("monthKey = %q", key)
	}
}
