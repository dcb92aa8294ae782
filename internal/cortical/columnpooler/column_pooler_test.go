package columnpooler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htm-project/neural-api/internal/cortical/sdr"
	"github.com/htm-project/neural-api/internal/domain/htm"
)

func smallConfig() *htm.ColumnPoolerConfig {
	cfg := htm.DefaultColumnPoolerConfig()
	cfg.CellCount = 512
	cfg.FeedforwardWidth = 256
	cfg.SDRSize = 40
	cfg.MinNarrowedFloor = 5
	return cfg
}

func ffSDR(t *testing.T, width int, active []int) *sdr.SDR {
	t.Helper()
	s, err := sdr.NewSDR(width, active)
	require.NoError(t, err)
	return s
}

func TestComputeRejectsWidthMismatch(t *testing.T) {
	cp, err := NewColumnPooler(smallConfig())
	require.NoError(t, err)

	bad := ffSDR(t, 10, []int{1, 2})
	_, err = cp.Compute(bad, nil, nil, nil, true)
	assert.Error(t, err)
}

func TestComputeAlwaysFillsSDRSize(t *testing.T) {
	cfg := smallConfig()
	cp, err := NewColumnPooler(cfg)
	require.NoError(t, err)

	ff := ffSDR(t, cfg.FeedforwardWidth, []int{1, 5, 9, 13, 17, 21, 25, 29, 33, 37, 41, 45, 49, 53, 57, 61, 65, 69, 73, 77, 81, 85, 89, 93, 97})
	result, err := cp.Compute(ff, nil, nil, nil, true)
	require.NoError(t, err)
	assert.Len(t, result.Representation, cfg.SDRSize)
	assert.True(t, result.IsNovel, "first presentation of any object has no prior representation to reuse")
}

func TestStabilityAcrossRepeatedPresentations(t *testing.T) {
	cfg := smallConfig()
	cp, err := NewColumnPooler(cfg)
	require.NoError(t, err)

	active := []int{1, 5, 9, 13, 17, 21, 25, 29, 33, 37, 41, 45, 49, 53, 57, 61, 65, 69, 73, 77, 81, 85, 89, 93, 97}
	ff := ffSDR(t, cfg.FeedforwardWidth, active)

	var lastResult *htm.ColumnPoolerResult
	for i := 0; i < 5; i++ {
		result, err := cp.Compute(ff, nil, nil, nil, true)
		require.NoError(t, err)
		assert.Len(t, result.Representation, cfg.SDRSize)
		if i >= 1 {
			// Spec §8 CP stability: overlap(active_t, active_{t-1}) >= 0.9*sdr_size.
			assert.GreaterOrEqual(t, result.OverlapPrev, int(0.9*float64(cfg.SDRSize)))
		}
		lastResult = result
	}
	assert.False(t, lastResult.IsNovel, "representation stabilizes after repeated exposure")
}

func TestDistinctFeedforwardProducesDistinctRepresentations(t *testing.T) {
	cfg := smallConfig()
	cp, err := NewColumnPooler(cfg)
	require.NoError(t, err)

	ffA := ffSDR(t, cfg.FeedforwardWidth, []int{1, 5, 9, 13, 17, 21, 25, 29, 33, 37, 41, 45, 49, 53, 57, 61, 65, 69, 73, 77})
	ffB := ffSDR(t, cfg.FeedforwardWidth, []int{130, 134, 138, 142, 146, 150, 154, 158, 162, 166, 170, 174, 178, 182, 186, 190, 194, 198, 202, 206})

	for i := 0; i < 3; i++ {
		_, err := cp.Compute(ffA, nil, nil, nil, true)
		require.NoError(t, err)
	}
	repA := indices(cp.activeCells)
	cp.Reset()
	for i := 0; i < 3; i++ {
		_, err := cp.Compute(ffB, nil, nil, nil, true)
		require.NoError(t, err)
	}

	// After a reset, inertia from object A must not leak into object B's
	// representation (OQ-3): the two objects share no proximal synapses, so
	// B's settled representation cannot just be A's carried forward.
	repB := indices(cp.activeCells)
	assert.Len(t, repB, cfg.SDRSize)
	assert.NotEqual(t, repA, repB)
}

func TestResetClearsActiveAndPrevActive(t *testing.T) {
	cfg := smallConfig()
	cp, err := NewColumnPooler(cfg)
	require.NoError(t, err)

	ff := ffSDR(t, cfg.FeedforwardWidth, []int{2, 4, 6, 8, 10, 12, 14, 16, 18, 20})
	_, err = cp.Compute(ff, nil, nil, nil, true)
	require.NoError(t, err)
	assert.NotZero(t, countTrue(cp.activeCells))

	cp.Reset()
	assert.Zero(t, countTrue(cp.activeCells))
	assert.Zero(t, countTrue(cp.prevActiveCells))
}

func TestApplyLateralNarrowingFallsBackToFloorWithoutSupport(t *testing.T) {
	cfg := smallConfig()
	cfg.AgreementThreshold = 0.5
	cfg.MinNarrowedFloor = 2
	cp, err := NewColumnPooler(cfg)
	require.NoError(t, err)

	ff := ffSDR(t, cfg.FeedforwardWidth, []int{1, 3, 5, 7, 9, 11, 13, 15, 17, 19})
	result, err := cp.Compute(ff, nil, nil, nil, true)
	require.NoError(t, err)
	require.Len(t, result.Representation, cfg.SDRSize)

	// Two peers are given but no lateral bundle was ever grown for either
	// (no Compute call passed lateralInputs), so no cell reaches the
	// required peer-agreement count: narrowing must fall back to the
	// configured floor rather than emptying out entirely.
	peers := map[int]*sdr.SDR{
		0: ffSDR(t, cfg.FeedforwardWidth, []int{1, 3, 5}),
		1: ffSDR(t, cfg.FeedforwardWidth, []int{7, 9, 11}),
	}
	narrowed, err := cp.ApplyLateralNarrowing(peers)
	require.NoError(t, err)
	assert.Len(t, narrowed.Representation, cfg.MinNarrowedFloor)
}

func TestApplyLateralNarrowingIsIdempotentWhenAlreadyConverged(t *testing.T) {
	cfg := smallConfig()
	cfg.MinNarrowedFloor = 1
	cp, err := NewColumnPooler(cfg)
	require.NoError(t, err)

	ff := ffSDR(t, cfg.FeedforwardWidth, []int{2, 4, 6, 8, 10})
	_, err = cp.Compute(ff, nil, nil, nil, true)
	require.NoError(t, err)

	first, err := cp.ApplyLateralNarrowing(map[int]*sdr.SDR{})
	require.NoError(t, err)
	second, err := cp.ApplyLateralNarrowing(map[int]*sdr.SDR{})
	require.NoError(t, err)

	assert.ElementsMatch(t, first.Representation, second.Representation)
}
