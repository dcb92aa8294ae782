package ports

import (
	"context"

	"github.com/gin-gonic/gin"
)

// HTTPHandler defines the interface for HTTP request handlers.
type HTTPHandler interface {
	// HealthCheck handles GET /health requests
	HealthCheck(c *gin.Context)

	// GetMetrics handles GET /metrics requests
	GetMetrics(c *gin.Context)
}

// HealthHandler defines the interface for health check endpoints.
type HealthHandler interface {
	// HandleHealthCheck performs health checks and returns status
	HandleHealthCheck(ctx context.Context) (map[string]interface{}, error)

	// CheckDependencies checks the health of all dependencies
	CheckDependencies(ctx context.Context) map[string]bool

	// GetSystemInfo returns basic system information
	GetSystemInfo() map[string]interface{}
}

// MetricsHandler defines the interface for metrics endpoints.
type MetricsHandler interface {
	// HandleMetrics returns current system metrics
	HandleMetrics(ctx context.Context) (map[string]interface{}, error)

	// GetPerformanceMetrics returns performance-related metrics
	GetPerformanceMetrics() map[string]interface{}

	// GetRequestMetrics returns request-related metrics
	GetRequestMetrics() map[string]interface{}

	// GetSystemMetrics returns system-related metrics
	GetSystemMetrics() map[string]interface{}
}

// Middleware defines the interface for HTTP middleware.
type Middleware interface {
	// Apply applies the middleware to a Gin handler
	Apply() gin.HandlerFunc
}

// LoggingMiddleware defines the interface for request logging middleware.
type LoggingMiddleware interface {
	Middleware

	// LogRequest logs incoming requests
	LogRequest(c *gin.Context)

	// LogResponse logs outgoing responses
	LogResponse(c *gin.Context, statusCode int, responseTime int64)
}

// ErrorMiddleware defines the interface for error handling middleware.
type ErrorMiddleware interface {
	Middleware

	// HandleError processes and logs errors
	HandleError(c *gin.Context, err error)

	// HandlePanic recovers from panics and returns appropriate error response
	HandlePanic(c *gin.Context, recovered interface{})
}

// MetricsMiddleware defines the interface for metrics collection middleware.
type MetricsMiddleware interface {
	Middleware

	// RecordRequest records request metrics
	RecordRequest(c *gin.Context)

	// RecordResponse records response metrics
	RecordResponse(c *gin.Context, statusCode int, responseTime int64)
}

// CORSMiddleware defines the interface for CORS handling middleware.
type CORSMiddleware interface {
	Middleware

	// SetCORSHeaders sets appropriate CORS headers
	SetCORSHeaders(c *gin.Context)

	// HandlePreflight handles CORS preflight requests
	HandlePreflight(c *gin.Context)
}

// Router defines the interface for HTTP routing setup.
type Router interface {
	// SetupRoutes configures all application routes
	SetupRoutes(engine *gin.Engine) error

	// RegisterAPIRoutes registers API v1 routes
	RegisterAPIRoutes(group *gin.RouterGroup) error

	// RegisterHealthRoutes registers health check routes
	RegisterHealthRoutes(engine *gin.Engine) error

	// RegisterMetricsRoutes registers metrics routes
	RegisterMetricsRoutes(engine *gin.Engine) error

	// ApplyMiddleware applies middleware to routes
	ApplyMiddleware(engine *gin.Engine) error
}
