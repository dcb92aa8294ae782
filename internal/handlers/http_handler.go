package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/htm-project/neural-api/internal/ports"
)

// HTTPHandlerImpl implements the HTTPHandler interface.
type HTTPHandlerImpl struct {
	metricsCollector ports.MetricsCollector
	healthHandler    ports.HealthHandler
	metricsHandler   ports.MetricsHandler
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(
	metricsCollector ports.MetricsCollector,
	healthHandler ports.HealthHandler,
	metricsHandler ports.MetricsHandler,
) ports.HTTPHandler {
	return &HTTPHandlerImpl{
		metricsCollector: metricsCollector,
		healthHandler:    healthHandler,
		metricsHandler:   metricsHandler,
	}
}

// HealthCheck handles GET /health requests.
func (h *HTTPHandlerImpl) HealthCheck(c *gin.Context) {
	start := time.Now()

	defer func() {
		if h.metricsCollector != nil {
			h.metricsCollector.RecordProcessingTime(time.Since(start).Milliseconds())
			h.metricsCollector.IncrementRequestCount()
		}
	}()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	_, err := h.healthHandler.HandleHealthCheck(ctx)

	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	httpStatus := http.StatusOK
	if err != nil {
		response["status"] = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, response)
}

// GetMetrics handles GET /metrics requests.
func (h *HTTPHandlerImpl) GetMetrics(c *gin.Context) {
	start := time.Now()

	defer func() {
		if h.metricsCollector != nil {
			h.metricsCollector.RecordProcessingTime(time.Since(start).Milliseconds())
			h.metricsCollector.IncrementRequestCount()
		}
	}()

	var metrics map[string]interface{}
	if h.metricsCollector != nil {
		collectorMetrics := h.metricsCollector.GetMetrics()
		metrics = map[string]interface{}{
			"request_count":       getMetricValue(collectorMetrics, "total_requests", 0),
			"response_times":      []float64{},
			"error_count":         getMetricValue(collectorMetrics, "failed_requests", 0),
			"concurrent_requests": getMetricValue(collectorMetrics, "active_requests", 0),
		}
	} else {
		metrics = map[string]interface{}{
			"request_count":       0,
			"response_times":      []float64{},
			"error_count":         0,
			"concurrent_requests": 0,
		}
	}

	c.JSON(http.StatusOK, metrics)
}

// getMetricValue safely extracts an int metric value, falling back to defaultValue.
func getMetricValue(metrics map[string]interface{}, key string, defaultValue int) int {
	if value, ok := metrics[key]; ok {
		if intValue, ok := value.(int); ok {
			return intValue
		}
	}
	return defaultValue
}
