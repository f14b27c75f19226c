package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"nutriscan/internal/infrastructure/config"
	"nutriscan/internal/infrastructure/store"
	"nutriscan/internal/pkg/common"

	"go.uber.org/zap"
)

// ResponseCache memoizes serialized responses in the shared store under
// deterministic fingerprint keys. Store failures degrade to cache misses;
// they never fail the request path.
type ResponseCache struct {
	kv  store.KV
	cfg *config.CacheConfig
}

// NewResponseCache creates the response cache.
func NewResponseCache(kv store.KV, cfg *config.CacheConfig) *ResponseCache {
	return &ResponseCache{
		kv:  kv,
		cfg: cfg,
	}
}

// ProductKey is the fingerprint for a single-record lookup.
func ProductKey(id string) string {
	return fmt.Sprintf("food_product:%s", id)
}

// SearchKey is the fingerprint for one page of a search.
func SearchKey(query string, page int) string {
	return fmt.Sprintf("food_search:%s:page:%d", query, page)
}

// ImageKey is the fingerprint for an image analysis. The digest is a
// cryptographic content hash so distinct images cannot collide onto the same
// cached analysis.
func ImageKey(image []byte, useOCR bool) string {
	digest := sha256.Sum256(image)
	return fmt.Sprintf("food_image:%s:ocr:%t", hex.EncodeToString(digest[:]), useOCR)
}

// Get returns the cached value for key. Disabled cache and store errors both
// report a miss.
func (c *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !c.cfg.Enabled {
		return nil, false
	}

	data, err := c.kv.Get(ctx, key)
	if err != nil {
		if err != store.ErrNotFound {
			common.LogWarn("cache read failed, treating as miss",
				zap.String("key", key),
				zap.Error(err),
			)
		}
		common.LogCacheMiss("response", key)
		return nil, false
	}

	common.LogCacheHit("response", key)
	return data, true
}

// Set stores value under key with the given TTL. Failures are logged and
// swallowed; the computed value is idempotently recomputable.
func (c *ResponseCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if !c.cfg.Enabled {
		return
	}

	if err := c.kv.SetWithTTL(ctx, key, value, ttl); err != nil {
		common.LogWarn("cache write failed",
			zap.String("key", key),
			zap.Error(err),
		)
		return
	}

	common.LogInfo("cache stored",
		zap.String("key", key),
		zap.Duration("ttl", ttl),
	)
}

// LookupTTL is the expiry for lookup and search results.
func (c *ResponseCache) LookupTTL() time.Duration {
	return c.cfg.LookupTTL
}

// ImageTTL is the expiry for image-derived results.
func (c *ResponseCache) ImageTTL() time.Duration {
	return c.cfg.ImageTTL
}
