package integration

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/htm-project/neural-api/internal/api"
	"github.com/htm-project/neural-api/internal/domain/htm"
	"github.com/htm-project/neural-api/internal/handlers"
	"github.com/htm-project/neural-api/internal/services"
)

// calculateAverageResponseTime calculates the average of response times
func calculateAverageResponseTime(times []time.Duration) time.Duration {
	if len(times) == 0 {
		return 0
	}

	var total time.Duration
	for _, t := range times {
		total += t
	}
	return total / time.Duration(len(times))
}

// generateSequentialActiveBits builds an ascending, in-range active bit set
// of the requested size for a given input width.
func generateSequentialActiveBits(count, width int, offset int) []int {
	bits := make([]int, 0, count)
	for i := 0; i < count; i++ {
		bit := (offset + i*7) % width
		bits = append(bits, bit)
	}
	return bits
}

// setupTestRouter wires the real API router (spatial pooler included) against
// an in-memory gin engine, the same way cmd/api/main.go wires it for serving.
func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	// Every HTTP integration request sends a 2048-bit encoder output.
	spConfig := htm.DefaultSpatialPoolerConfig()
	spConfig.InputWidth = 2048
	spatialPoolingService, err := services.NewSpatialPoolingService(spConfig, "integration-test-pooler")
	if err != nil {
		panic("Failed to initialize spatial pooling service: " + err.Error())
	}

	metricsCollector := &testMetricsCollector{}

	healthHandler := handlers.NewHealthHandler(nil, spatialPoolingService, metricsCollector)
	metricsHandler := handlers.NewMetricsHandler(metricsCollector)
	httpHandler := handlers.NewHTTPHandler(metricsCollector, healthHandler, metricsHandler)
	spatialPoolerHandler := handlers.NewSpatialPoolerHandler(spatialPoolingService)

	middlewareFactory := api.NewMiddlewareFactory()
	appRouter := api.NewRouter(
		httpHandler,
		spatialPoolerHandler,
		nil,
		middlewareFactory.CreateLoggingMiddleware(),
		middlewareFactory.CreateErrorMiddleware(),
		middlewareFactory.CreateMetricsMiddleware(metricsCollector),
		middlewareFactory.CreateCORSMiddleware(),
	)

	if err := appRouter.SetupRoutes(router); err != nil {
		panic("Failed to setup routes: " + err.Error())
	}

	return router
}

// testMetricsCollector is a minimal MetricsCollector for integration tests.
type testMetricsCollector struct {
	requestCount   int
	errorCount     int
	responseTime   int64
	concurrentReqs int
}

func (m *testMetricsCollector) IncrementRequestCount() { m.requestCount++ }
func (m *testMetricsCollector) IncrementErrorCount()   { m.errorCount++ }
func (m *testMetricsCollector) RecordProcessingTime(duration int64) {
	m.responseTime = duration
}
func (m *testMetricsCollector) RecordResponseTime(duration int64) {
	m.responseTime = duration
}
func (m *testMetricsCollector) SetConcurrentRequests(count int) {
	m.concurrentReqs = count
}
func (m *testMetricsCollector) GetMetrics() map[string]interface{} {
	return map[string]interface{}{
		"total_requests":           m.requestCount,
		"failed_requests":          m.errorCount,
		"successful_requests":      m.requestCount - m.errorCount,
		"average_response_time_ms": m.responseTime,
		"active_requests":          m.concurrentReqs,
		"requests_per_second":      0,
	}
}
func (m *testMetricsCollector) Reset() {
	m.requestCount = 0
	m.errorCount = 0
	m.responseTime = 0
	m.concurrentReqs = 0
}
