package quota

import (
	"context"
	"time"

	"nutriscan/internal/infrastructure/config"
	"nutriscan/internal/infrastructure/store"
	"nutriscan/internal/pkg/common"

	"go.uber.org/zap"
)

const rateLimitKeyPrefix = "rate_limit:"

// Decision is the outcome of a per-client quota check.
type Decision struct {
	Allowed     bool
	UseFallback bool
	Count       int64
	RetryAfter  time.Duration
}

// RateLimiter counts requests per client in a rolling window and selects the
// strategy tier. The increment happens before the ceiling check, so a
// rejected request still raises the count (fail-closed).
type RateLimiter struct {
	counter        *Counter
	maxRequests    int64
	maxLLMRequests int64
	window         time.Duration
}

// NewRateLimiter creates a limiter from the rate-limit config.
func NewRateLimiter(kv store.KV, cfg *config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		counter:        NewCounter(kv),
		maxRequests:    cfg.MaxRequests,
		maxLLMRequests: cfg.MaxLLMRequests,
		window:         cfg.Window,
	}
}

// Decide counts one request for clientID and decides whether it may proceed
// and on which tier. When the store is unreachable the request is allowed
// but forced onto the fallback tier (quota checks fail closed on the costly
// path only).
func (l *RateLimiter) Decide(ctx context.Context, clientID string) (Decision, error) {
	count, err := l.counter.Observe(ctx, rateLimitKeyPrefix+clientID, l.window)
	if err != nil {
		common.LogError("rate limit counter unavailable",
			zap.String("client", clientID),
			zap.Error(err),
		)
		return Decision{Allowed: true, UseFallback: true}, err
	}

	decision := Decision{
		Allowed:     count <= l.maxRequests,
		UseFallback: count > l.maxLLMRequests,
		Count:       count,
		RetryAfter:  l.window,
	}

	if !decision.Allowed {
		common.LogWarn("client over request ceiling",
			zap.String("client", clientID),
			zap.Int64("count", count),
			zap.Int64("max_requests", l.maxRequests),
		)
	}

	return decision, nil
}
