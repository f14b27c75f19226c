package health

import (
	"net/http"
	"runtime"
	"time"

	"nutriscan/internal/infrastructure/config"
	"nutriscan/internal/infrastructure/store"
	"nutriscan/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthResponse reports service and store health.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Store     string                 `json:"store"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
}

// HealthCheck reports overall health. A dead store degrades the status but
// the endpoint still answers 200; the request paths tolerate store loss.
func HealthCheck(cfg *config.Config, kv store.KV) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		storeStatus := "connected"
		if err := kv.Ping(c.Request.Context()); err != nil {
			common.LogWarn("store ping failed during health check", zap.Error(err))
			status = "degraded"
			storeStatus = "disconnected"
		}

		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		response := HealthResponse{
			Status:    status,
			Store:     storeStatus,
			Timestamp: time.Now(),
			Version:   cfg.App.Version,
			Runtime: map[string]interface{}{
				"goroutines": runtime.NumGoroutine(),
				"memory": map[string]interface{}{
					"alloc":       m.Alloc,
					"total_alloc": m.TotalAlloc,
					"sys":         m.Sys,
					"num_gc":      m.NumGC,
				},
			},
		}

		common.LogInfo("Health check request",
			zap.String("client_ip", c.ClientIP()),
			zap.String("path", c.Request.URL.Path),
		)

		c.JSON(http.StatusOK, response)
	}
}

// ReadinessCheck reports readiness to take traffic.
func ReadinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck reports process liveness.
func LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
