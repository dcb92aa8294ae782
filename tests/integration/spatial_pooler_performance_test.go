package integration

import (
	"sync"
	"testing"
	"time"

	"github.com/htm-project/neural-api/internal/cortical/spatial"
	"github.com/htm-project/neural-api/internal/domain/htm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPerfPooler(t *testing.T, inputWidth, columnCount int, globalInhibition, learningEnabled bool) *spatial.SpatialPooler {
	t.Helper()
	cfg := htm.DefaultSpatialPoolerConfig()
	cfg.InputWidth = inputWidth
	cfg.ColumnCount = columnCount
	cfg.GlobalInhibition = globalInhibition
	cfg.LearningEnabled = learningEnabled
	cfg.Mode = htm.SpatialPoolerModeDeterministic
	pooler, err := spatial.NewSpatialPooler(cfg)
	require.NoError(t, err)
	return pooler
}

func perfInput(activeBits []int, width int) *htm.PoolingInput {
	return &htm.PoolingInput{
		EncoderOutput: htm.EncoderOutput{
			Width:      width,
			ActiveBits: activeBits,
			Sparsity:   float64(len(activeBits)) / float64(width),
		},
		InputWidth: width,
		InputID:    "perf-test",
	}
}

// TestSpatialPoolerPerformance validates FR-010: spatial pooling operations
// must complete well under the 10ms budget that keeps overall API response
// times under the 100ms target.
func TestSpatialPoolerPerformance(t *testing.T) {
	t.Run("single_processing_under_10ms", func(t *testing.T) {
		testCases := []struct {
			name        string
			inputSize   int
			activeCount int
		}{
			{"small_input", 1024, 5},
			{"medium_input", 2048, 10},
			{"large_input", 4096, 20},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				pooler := newPerfPooler(t, tc.inputSize, tc.inputSize, true, false)
				input := perfInput(generateSequentialBits(tc.activeCount), tc.inputSize)

				start := time.Now()
				result, err := pooler.Process(input)
				elapsed := time.Since(start)

				require.NoError(t, err)
				assert.LessOrEqual(t, elapsed.Milliseconds(), int64(10),
					"%s: processing time should be <= 10ms, got %dms", tc.name, elapsed.Milliseconds())
				assert.NotNil(t, result)
			})
		}
	})

	t.Run("batch_processing_performance", func(t *testing.T) {
		pooler := newPerfPooler(t, 2048, 2048, true, false)

		batchSize := 100
		inputs := make([]*htm.PoolingInput, batchSize)
		for i := 0; i < batchSize; i++ {
			inputs[i] = perfInput(generateSequentialBits(5), 2048)
		}

		start := time.Now()

		for i, input := range inputs {
			iterStart := time.Now()
			_, err := pooler.Process(input)
			iterElapsed := time.Since(iterStart)
			require.NoError(t, err)

			assert.LessOrEqual(t, iterElapsed.Milliseconds(), int64(10),
				"batch item %d: processing should be <= 10ms even in batch", i)
		}

		totalElapsed := time.Since(start)
		avgTime := totalElapsed / time.Duration(batchSize)

		assert.LessOrEqual(t, avgTime.Milliseconds(), int64(8),
			"average processing time should be <= 8ms in batch processing")
	})

	t.Run("performance_with_learning_enabled", func(t *testing.T) {
		pooler := newPerfPooler(t, 2048, 2048, true, true)
		testInput := perfInput([]int{10, 20, 30, 40, 50}, 2048)
		testInput.LearningEnabled = true

		iterationCount := 50
		var processingTimes []time.Duration

		for i := 0; i < iterationCount; i++ {
			start := time.Now()
			_, err := pooler.Process(testInput)
			elapsed := time.Since(start)
			require.NoError(t, err)

			processingTimes = append(processingTimes, elapsed)

			assert.LessOrEqual(t, elapsed.Milliseconds(), int64(10),
				"iteration %d with learning: processing should be <= 10ms", i)
		}

		average := calculateAverage(processingTimes)
		assert.LessOrEqual(t, average.Milliseconds(), int64(7),
			"average processing time with learning should be <= 7ms")
	})

	t.Run("performance_with_different_configurations", func(t *testing.T) {
		configs := []struct {
			name             string
			columnCount      int
			globalInhibition bool
			learningEnabled  bool
		}{
			{"small_columns_global", 1024, true, false},
			{"medium_columns_global", 2048, true, false},
			{"large_columns_global", 4096, true, false},
			{"medium_columns_local", 2048, false, false},
			{"medium_learning", 2048, true, true},
		}

		for _, config := range configs {
			t.Run(config.name, func(t *testing.T) {
				pooler := newPerfPooler(t, 2048, config.columnCount, config.globalInhibition, config.learningEnabled)
				testInput := perfInput([]int{1, 2, 3, 4, 5}, 2048)

				start := time.Now()
				_, err := pooler.Process(testInput)
				elapsed := time.Since(start)

				require.NoError(t, err)
				assert.LessOrEqual(t, elapsed.Milliseconds(), int64(10),
					"config %s: processing should be <= 10ms", config.name)
			})
		}
	})

	t.Run("throughput_performance", func(t *testing.T) {
		// Validates FR-013: System MUST handle throughput of 1,000-5,000 requests per second.
		pooler := newPerfPooler(t, 2048, 2048, true, false)
		testInput := perfInput([]int{1, 2, 3, 4, 5}, 2048)

		duration := 1 * time.Second
		start := time.Now()
		requestCount := 0

		for time.Since(start) < duration {
			iterStart := time.Now()
			_, err := pooler.Process(testInput)
			iterElapsed := time.Since(iterStart)
			require.NoError(t, err)

			assert.LessOrEqual(t, iterElapsed.Milliseconds(), int64(10),
				"request %d: individual processing should be <= 10ms", requestCount)

			requestCount++
		}

		actualDuration := time.Since(start)
		requestsPerSecond := float64(requestCount) / actualDuration.Seconds()

		assert.GreaterOrEqual(t, requestsPerSecond, 1000.0,
			"should achieve >= 1000 requests/second, got %.1f", requestsPerSecond)

		t.Logf("achieved throughput: %.1f requests/second", requestsPerSecond)
	})

	t.Run("concurrent_processing_performance", func(t *testing.T) {
		pooler := newPerfPooler(t, 2048, 2048, true, false)

		concurrentWorkers := 10
		requestsPerWorker := 100

		var wg sync.WaitGroup
		var mu sync.Mutex
		var totalRequests int
		var maxProcessingTime time.Duration

		start := time.Now()

		for worker := 0; worker < concurrentWorkers; worker++ {
			wg.Add(1)
			go func(workerID int) {
				defer wg.Done()

				for req := 0; req < requestsPerWorker; req++ {
					testInput := perfInput([]int{workerID, req + 1, req + 2, req + 3, req + 4}, 2048)

					reqStart := time.Now()
					_, err := pooler.Process(testInput)
					reqElapsed := time.Since(reqStart)
					assert.NoError(t, err)

					mu.Lock()
					totalRequests++
					if reqElapsed > maxProcessingTime {
						maxProcessingTime = reqElapsed
					}
					mu.Unlock()

					assert.LessOrEqual(t, reqElapsed.Milliseconds(), int64(15),
						"worker %d, request %d: concurrent processing should be <= 15ms", workerID, req)
				}
			}(worker)
		}

		wg.Wait()
		totalElapsed := time.Since(start)

		concurrentThroughput := float64(totalRequests) / totalElapsed.Seconds()

		assert.GreaterOrEqual(t, concurrentThroughput, 800.0,
			"concurrent throughput should be >= 800 req/sec, got %.1f", concurrentThroughput)
		assert.LessOrEqual(t, maxProcessingTime.Milliseconds(), int64(15),
			"maximum processing time under concurrent load should be <= 15ms")

		t.Logf("concurrent performance: %.1f req/sec with %d workers", concurrentThroughput, concurrentWorkers)
	})

	t.Run("memory_usage_performance", func(t *testing.T) {
		pooler := newPerfPooler(t, 2048, 2048, true, false)

		inputCount := 1000
		var processingTimes []time.Duration

		for i := 0; i < inputCount; i++ {
			activeBits := generateVariedActiveBits(i, 5, 2048)
			testInput := perfInput(activeBits, 2048)

			start := time.Now()
			_, err := pooler.Process(testInput)
			elapsed := time.Since(start)
			require.NoError(t, err)

			processingTimes = append(processingTimes, elapsed)

			if i > 0 && i%100 == 0 {
				recentAvg := calculateAverage(processingTimes[i-100:])
				initialAvg := calculateAverage(processingTimes[0:100])

				assert.LessOrEqual(t, recentAvg.Milliseconds(), initialAvg.Milliseconds()+2,
					"performance should not degrade significantly over %d iterations", i)
			}
		}

		overallAvg := calculateAverage(processingTimes)
		assert.LessOrEqual(t, overallAvg.Milliseconds(), int64(8),
			"overall average processing time should be <= 8ms over %d iterations", inputCount)
	})
}

// TestSpatialPoolerPerformanceRegression establishes a baseline for catching
// future regressions in spatial pooling latency.
func TestSpatialPoolerPerformanceRegression(t *testing.T) {
	t.Run("baseline_performance_benchmark", func(t *testing.T) {
		pooler := newPerfPooler(t, 2048, 2048, true, false)
		standardInput := perfInput([]int{10, 20, 30, 40, 50}, 2048)

		for i := 0; i < 10; i++ {
			_, err := pooler.Process(standardInput)
			require.NoError(t, err)
		}

		iterationCount := 1000
		start := time.Now()

		for i := 0; i < iterationCount; i++ {
			_, err := pooler.Process(standardInput)
			require.NoError(t, err)
		}

		elapsed := time.Since(start)
		avgTime := elapsed / time.Duration(iterationCount)

		t.Logf("baseline performance: %.3fms average over %d iterations",
			float64(avgTime.Microseconds())/1000.0, iterationCount)

		assert.LessOrEqual(t, avgTime.Milliseconds(), int64(5),
			"baseline performance should be <= 5ms for regression testing")
	})
}

// Helper functions for performance testing

func generateSequentialBits(count int) []int {
	bits := make([]int, count)
	for i := 0; i < count; i++ {
		bits[i] = i * 10
	}
	return bits
}

func generateVariedActiveBits(seed, count, width int) []int {
	bits := make([]int, count)
	for i := 0; i < count; i++ {
		bits[i] = (seed*13 + i*17) % width
	}
	return bits
}

func calculateAverage(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return total / time.Duration(len(durations))
}
