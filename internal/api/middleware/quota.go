package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"nutriscan/internal/core/quota"
	"nutriscan/internal/pkg/common"
)

// ContextUseFallback is the gin context key carrying the tier decision to the
// recognition handler.
const ContextUseFallback = "use_fallback"

// QuotaGuard counts each request against the per-client window and either
// rejects it, forces the fallback strategy tier, or lets it through on the
// costly tier.
func QuotaGuard(limiter *quota.RateLimiter, enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Set(ContextUseFallback, false)
			c.Next()
			return
		}

		decision, _ := limiter.Decide(c.Request.Context(), clientIdentity(c))
		// A store failure is already folded into the decision: allowed,
		// fallback tier.

		if !decision.Allowed {
			retryAfter := int(decision.RetryAfter.Seconds())
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests",
				"code":        common.ErrCodeTooManyRequests,
				"retry_after": retryAfter,
			})
			c.Abort()
			return
		}

		c.Set(ContextUseFallback, decision.UseFallback)
		c.Next()
	}
}

// clientIdentity resolves the quota key for a request: the first hop of
// X-Forwarded-For when present, the peer address otherwise.
func clientIdentity(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
			return first
		}
	}

	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return host
}
