package api

import (
	"context"
	"net/http"
	"time"

	foodHandler "nutriscan/internal/api/handlers/food"
	"nutriscan/internal/api/handlers/health"
	"nutriscan/internal/api/middleware"
	"nutriscan/internal/core/cache"
	"nutriscan/internal/core/extract"
	"nutriscan/internal/core/foodapi"
	"nutriscan/internal/core/quota"
	"nutriscan/internal/core/recognition"
	"nutriscan/internal/infrastructure/config"
	"nutriscan/internal/infrastructure/store"
	"nutriscan/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const timeoutDuration = 120 * time.Second

// SetupRouter wires the services and registers the routes.
func SetupRouter(cfg *config.Config, kv store.KV) (*gin.Engine, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.Image.MaxSizeBytes))
	router.Use(middleware.Deduplication(cfg))

	common.LogInfo("Initializing services",
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.String("primary_model", cfg.Gemini.Model),
		zap.String("fallback_model", cfg.Fallback.Model),
	)

	respCache := cache.NewResponseCache(kv, &cfg.Cache)
	limiter := quota.NewRateLimiter(kv, &cfg.RateLimit)
	usage := quota.NewUsageTracker(kv, cfg.Usage.MonthlyAPILimit)
	budget := quota.NewTokenBudget(kv, cfg.Gemini.MonthlyTokenLimit, cfg.Gemini.WarnThreshold)

	primary := recognition.NewGeminiStrategy(recognition.NewGeminiClient(&cfg.Gemini), budget)
	fallback := recognition.NewFallbackStrategy(recognition.NewFallbackClient(&cfg.Fallback))
	selector := recognition.NewSelector(primary, fallback, usage)

	extractor := extract.NewExtractor(extract.NewProseTagger())
	usda := foodapi.NewClient(&cfg.USDA)

	// Request timeout for every route.
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetHeader("X-Request-ID")),
				zap.Duration("timeout", timeoutDuration),
			)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  common.ErrCodeRequestTimeout,
				"details": gin.H{
					"timeout": timeoutDuration.String(),
				},
			})
			c.Abort()
			return
		}
	})

	router.GET("/health", health.HealthCheck(cfg, kv))
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	api := router.Group("/api/v1")
	{
		foodGroup := api.Group("/food")
		{
			foodGroup.GET("/product", foodHandler.HandleProductLookup(usda, respCache))
			foodGroup.GET("/search", foodHandler.HandleProductSearch(usda, respCache))

			// Only the recognition route burns model quota.
			foodGroup.POST("/image",
				middleware.QuotaGuard(limiter, cfg.RateLimit.Enabled),
				foodHandler.HandleImageAnalysis(selector, extractor, usda, respCache, &cfg.Image),
			)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", cfg.Image.MaxSizeBytes),
	)

	return router, nil
}
