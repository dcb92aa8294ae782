package integration

import (
	"testing"

	"github.com/htm-project/neural-api/internal/cortical/spatial"
	"github.com/htm-project/neural-api/internal/domain/htm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deterministicTestConfig() *htm.SpatialPoolerConfig {
	cfg := htm.DefaultSpatialPoolerConfig()
	cfg.Mode = htm.SpatialPoolerModeDeterministic
	cfg.LearningEnabled = false
	return cfg
}

func deterministicTestInput(activeBits []int, width int) *htm.PoolingInput {
	return &htm.PoolingInput{
		EncoderOutput: htm.EncoderOutput{
			Width:      width,
			ActiveBits: activeBits,
			Sparsity:   float64(len(activeBits)) / float64(width),
		},
		InputWidth:      width,
		InputID:         "deterministic-test",
		LearningEnabled: false,
	}
}

// TestSpatialPoolerDeterministicBehavior validates that deterministic mode
// produces identical SDRs for identical inputs (spec §4.2 mode contract).
func TestSpatialPoolerDeterministicBehavior(t *testing.T) {
	t.Run("deterministic_mode_identical_outputs", func(t *testing.T) {
		pooler, err := spatial.NewSpatialPooler(deterministicTestConfig())
		require.NoError(t, err)

		input := deterministicTestInput([]int{10, 25, 67, 89, 134}, 1024)

		result1, err := pooler.Process(input)
		require.NoError(t, err)
		result2, err := pooler.Process(input)
		require.NoError(t, err)
		result3, err := pooler.Process(input)
		require.NoError(t, err)

		assert.Equal(t, result1.NormalizedSDR.ActiveBits, result2.NormalizedSDR.ActiveBits,
			"deterministic mode should produce identical outputs for identical inputs")
		assert.Equal(t, result1.NormalizedSDR.ActiveBits, result3.NormalizedSDR.ActiveBits,
			"deterministic mode should produce identical outputs for identical inputs")
		assert.Equal(t, result1.SparsityLevel, result2.SparsityLevel)
	})

	t.Run("deterministic_mode_with_learning_disabled", func(t *testing.T) {
		pooler, err := spatial.NewSpatialPooler(deterministicTestConfig())
		require.NoError(t, err)

		inputs := []*htm.PoolingInput{
			deterministicTestInput([]int{1, 2, 3, 4, 5}, 1024),
			deterministicTestInput([]int{100, 200, 300, 400, 500}, 1024),
			deterministicTestInput([]int{600, 700, 800, 900, 1000}, 1024),
		}

		for i, input := range inputs {
			result1, err := pooler.Process(input)
			require.NoError(t, err)
			result2, err := pooler.Process(input)
			require.NoError(t, err)

			assert.Equal(t, result1.NormalizedSDR.ActiveBits, result2.NormalizedSDR.ActiveBits,
				"input %d should produce identical outputs in deterministic mode", i)
			assert.GreaterOrEqual(t, result1.SparsityLevel, 0.02)
			assert.LessOrEqual(t, result1.SparsityLevel, 0.05)
		}
	})

	t.Run("randomized_mode_maintains_sparsity", func(t *testing.T) {
		cfg := deterministicTestConfig()
		cfg.Mode = htm.SpatialPoolerModeRandomized
		cfg.LearningEnabled = true
		pooler, err := spatial.NewSpatialPooler(cfg)
		require.NoError(t, err)

		input := deterministicTestInput([]int{50, 100, 150, 200, 250}, 1024)

		for i := 0; i < 5; i++ {
			result, err := pooler.Process(input)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, result.SparsityLevel, 0.02, "result %d sparsity should be >= 2%%", i)
			assert.LessOrEqual(t, result.SparsityLevel, 0.05, "result %d sparsity should be <= 5%%", i)
		}
	})
}

// TestSpatialPoolerLearningConsistency validates that disabling learning
// freezes the pooler's output and enabling it allows permanences to adapt.
func TestSpatialPoolerLearningConsistency(t *testing.T) {
	t.Run("learning_disabled_no_adaptation", func(t *testing.T) {
		pooler, err := spatial.NewSpatialPooler(deterministicTestConfig())
		require.NoError(t, err)

		input := deterministicTestInput([]int{10, 20, 30, 40, 50}, 1024)

		first, err := pooler.Process(input)
		require.NoError(t, err)
		for i := 0; i < 20; i++ {
			result, err := pooler.Process(input)
			require.NoError(t, err)
			assert.Equal(t, first.NormalizedSDR.ActiveBits, result.NormalizedSDR.ActiveBits,
				"results should be identical when learning is disabled")
		}
	})

	t.Run("learning_enabled_adaptation", func(t *testing.T) {
		cfg := deterministicTestConfig()
		cfg.LearningEnabled = true
		pooler, err := spatial.NewSpatialPooler(cfg)
		require.NoError(t, err)

		input := deterministicTestInput([]int{10, 20, 30, 40, 50}, 1024)
		input.LearningEnabled = true

		var last *htm.PoolingResult
		for i := 0; i < 200; i++ {
			result, err := pooler.Process(input)
			require.NoError(t, err)
			last = result
		}

		assert.GreaterOrEqual(t, last.SparsityLevel, 0.02)
		assert.LessOrEqual(t, last.SparsityLevel, 0.05)
	})
}
