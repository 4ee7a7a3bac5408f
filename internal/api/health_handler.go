package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/metrics"
)

const serviceName = "otp-shield"

// Pinger is anything whose backing connection can be checked
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	store   Pinger
	metrics *metrics.MetricsCollector
	logger  *zap.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(
	store Pinger,
	metricsCollector *metrics.MetricsCollector,
	logger *zap.Logger,
) *HealthHandler {
	return &HealthHandler{
		store:   store,
		metrics: metricsCollector,
		logger:  logger,
	}
}

// Health returns basic health status
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"version":   "1.0.0",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// Ready checks if the service is ready to handle requests
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	start := time.Now()

	checks := make(map[string]interface{})
	allHealthy := true

	// Check storage connectivity
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	storeStart := time.Now()
	if err := h.store.Ping(ctx); err != nil {
		checks["storage"] = map[string]interface{}{
			"status":   "unhealthy",
			"error":    err.Error(),
			"duration": time.Since(storeStart).Milliseconds(),
		}
		allHealthy = false
		h.logger.Warn("storage health check failed", zap.Error(err))
	} else {
		checks["storage"] = map[string]interface{}{
			"status":   "healthy",
			"duration": time.Since(storeStart).Milliseconds(),
		}
	}

	checks["metrics"] = h.metrics.GetStats()

	status := http.StatusOK
	overallStatus := "ready"
	if !allHealthy {
		status = http.StatusServiceUnavailable
		overallStatus = "not_ready"
	}

	c.JSON(status, gin.H{
		"status":         overallStatus,
		"service":        serviceName,
		"checks":         checks,
		"total_duration": time.Since(start).Milliseconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// Live checks if the service is alive (minimal check)
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"service":   serviceName,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
