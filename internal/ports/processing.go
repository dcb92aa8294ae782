package ports

// MetricsCollector defines the interface for collecting processing metrics.
type MetricsCollector interface {
	// IncrementRequestCount increments the total request counter
	IncrementRequestCount()

	// IncrementErrorCount increments the error counter
	IncrementErrorCount()

	// RecordProcessingTime records the time taken for processing
	RecordProcessingTime(duration int64)

	// RecordResponseTime records the total response time
	RecordResponseTime(duration int64)

	// SetConcurrentRequests sets the current number of concurrent requests
	SetConcurrentRequests(count int)

	// GetMetrics returns current metrics snapshot
	GetMetrics() map[string]interface{}

	// Reset resets all metrics
	Reset()
}
