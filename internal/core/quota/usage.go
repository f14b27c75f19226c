package quota

import (
	"context"
	"strconv"
	"time"

	"nutriscan/internal/infrastructure/store"
	"nutriscan/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	usageKeyPrefix  = "api_usage"
	tokensKeyPrefix = "llm_tokens"
)

// UsageTracker tracks the global monthly request budget for the paid
// recognition API. Once the budget is exhausted every request in the period
// is forced onto the fallback strategy; the request itself is never rejected.
type UsageTracker struct {
	counter      *Counter
	kv           store.KV
	monthlyLimit int64
}

// NewUsageTracker creates a tracker with the given monthly ceiling.
func NewUsageTracker(kv store.KV, monthlyLimit int64) *UsageTracker {
	return &UsageTracker{
		counter:      NewCounter(kv),
		kv:           kv,
		monthlyLimit: monthlyLimit,
	}
}

// RecordRequest counts one request against the current month and reports
// whether the budget is exhausted. Store errors fail closed: the costly path
// is denied rather than the error propagated.
func (t *UsageTracker) RecordRequest(ctx context.Context) bool {
	now := time.Now()
	count, err := t.counter.Observe(ctx, monthKey(usageKeyPrefix, now), monthWindow(now))
	if err != nil {
		common.LogError("monthly usage counter unavailable", zap.Error(err))
		return true
	}
	return count > t.monthlyLimit
}

// TokenBudget enforces the generative model's softer monthly token budget.
// Charging happens post-hoc from the word count of the generated answer, so
// accounting is approximate and the single request crossing the watermark
// may overshoot.
type TokenBudget struct {
	counter *Counter
	kv      store.KV
	limit   int64
	// warnThreshold reserves the top fraction of the budget; the watermark
	// is limit * (1 - warnThreshold).
	warnThreshold float64
}

// NewTokenBudget creates a token budget.
func NewTokenBudget(kv store.KV, limit int64, warnThreshold float64) *TokenBudget {
	return &TokenBudget{
		counter:       NewCounter(kv),
		kv:            kv,
		limit:         limit,
		warnThreshold: warnThreshold,
	}
}

func (b *TokenBudget) watermark() int64 {
	return int64(float64(b.limit) * (1 - b.warnThreshold))
}

// TryCharge records tokensUsed against the month if the result still fits
// under the watermark. It returns false when the budget cannot absorb the
// charge or the store is unreachable (fail closed).
func (b *TokenBudget) TryCharge(ctx context.Context, tokensUsed int64) bool {
	now := time.Now()
	key := monthKey(tokensKeyPrefix, now)

	current, err := b.currentUsage(ctx, key)
	if err != nil {
		common.LogError("token budget unavailable", zap.Error(err))
		return false
	}

	if current+tokensUsed > b.watermark() {
		common.LogWarn("monthly token budget watermark reached",
			zap.Int64("current", current),
			zap.Int64("tokens_used", tokensUsed),
			zap.Int64("watermark", b.watermark()),
		)
		return false
	}

	if _, err := b.counter.Add(ctx, key, tokensUsed, monthWindow(now)); err != nil {
		common.LogError("failed to charge token budget", zap.Error(err))
		return false
	}
	return true
}

func (b *TokenBudget) currentUsage(ctx context.Context, key string) (int64, error) {
	data, err := b.kv.Get(ctx, key)
	if err != nil {
		if err == store.ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	current, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, err
	}
	return current, nil
}
