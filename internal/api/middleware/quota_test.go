package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"nutriscan/internal/core/quota"
	"nutriscan/internal/infrastructure/config"
	"nutriscan/internal/infrastructure/store"
	"nutriscan/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func init() {
	common.Logger = zap.NewNop()
	gin.SetMode(gin.TestMode)
}

type fakeStore struct {
	mu      sync.Mutex
	counts  map[string]int64
	failing bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{counts: make(map[string]int64)}
}

func (f *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count, ok := f.counts[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return []byte(strconv.FormatInt(count, 10)), nil
}

func (f *fakeStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (f *fakeStore) Increment(ctx context.Context, key string) (int64, error) {
	if f.failing {
		return 0, errors.New("connection refused")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeStore) IncrementBy(ctx context.Context, key string, n int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key] += n
	return f.counts[key], nil
}

func (f *fakeStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return nil
}

func (f *fakeStore) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.counts[key]
	return ok, nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }

func guardedRouter(kv store.KV) *gin.Engine {
	limiter := quota.NewRateLimiter(kv, &config.RateLimitConfig{
		Enabled:        true,
		MaxRequests:    3,
		MaxLLMRequests: 1,
		Window:         time.Hour,
	})

	router := gin.New()
	router.POST("/scan", QuotaGuard(limiter, true), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"use_fallback": c.GetBool(ContextUseFallback)})
	})
	return router
}

func doRequest(router *gin.Engine, forwardedFor string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/scan", nil)
	req.RemoteAddr = "192.0.2.10:51234"
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestQuotaGuardTiersAndRejection(t *testing.T) {
	router := guardedRouter(newFakeStore())

	// First request rides the costly tier.
	w := doRequest(router, "")
	if w.Code != http.StatusOK {
		t.Fatalf("request 1 status = %d", w.Code)
	}
	if w.Body.String() != `{"use_fallback":false}` {
		t.Errorf("request 1 body = %s", w.Body.String())
	}

	// Requests 2 and 3 are over the costly ceiling but still allowed.
	for i := 2; i <= 3; i++ {
		w = doRequest(router, "")
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, w.Code)
		}
		if w.Body.String() != `{"use_fallback":true}` {
			t.Errorf("request %d body = %s", i, w.Body.String())
		}
	}

	// Request 4 is over the hard ceiling.
	w = doRequest(router, "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("request 4 status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "3600" {
		t.Errorf("Retry-After = %q, want 3600", got)
	}
}

func TestQuotaGuardIsolatesClients(t *testing.T) {
	router := guardedRouter(newFakeStore())

	for i := 0; i < 3; i++ {
		doRequest(router, "203.0.113.7")
	}
	if w := doRequest(router, "203.0.113.7"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("exhausted client status = %d, want 429", w.Code)
	}

	// A different forwarded client starts a fresh window.
	if w := doRequest(router, "203.0.113.8, 10.0.0.1"); w.Code != http.StatusOK {
		t.Errorf("fresh client status = %d, want 200", w.Code)
	}
}

func TestQuotaGuardStoreFailureAllowsOnFallbackTier(t *testing.T) {
	kv := newFakeStore()
	kv.failing = true
	router := guardedRouter(kv)

	w := doRequest(router, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != `{"use_fallback":true}` {
		t.Errorf("body = %s, want forced fallback", w.Body.String())
	}
}

func TestClientIdentity(t *testing.T) {
	tests := []struct {
		name         string
		forwardedFor string
		remoteAddr   string
		want         string
	}{
		{"forwarded single", "203.0.113.7", "192.0.2.10:51234", "203.0.113.7"},
		{"forwarded chain", "203.0.113.7, 10.0.0.1, 10.0.0.2", "192.0.2.10:51234", "203.0.113.7"},
		{"no forwarded header", "", "192.0.2.10:51234", "192.0.2.10"},
		{"remote without port", "", "192.0.2.10", "192.0.2.10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Request.RemoteAddr = tt.remoteAddr
			if tt.forwardedFor != "" {
				c.Request.Header.Set("X-Forwarded-For", tt.forwardedFor)
			}

			if got := clientIdentity(c); got != tt.want {
				t.Errorf("clientIdentity() = %q, want %q", got, tt.want)
			}
		})
	}
}
