package column

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htm-project/neural-api/internal/cortical/sdr"
	"github.com/htm-project/neural-api/internal/domain/htm"
)

func smallColumnConfig() *htm.CorticalColumnConfig {
	sp := htm.DefaultSpatialPoolerConfig()
	sp.InputWidth = 100
	sp.ColumnCount = 100
	sp.DutyCyclePeriod = 50

	tm := htm.DefaultTemporalMemoryConfig()
	tm.ColumnCount = 100
	tm.CellsPerColumn = 4

	cp := htm.DefaultColumnPoolerConfig()
	cp.CellCount = 200
	cp.SDRSize = 20
	cp.FeedforwardWidth = tm.ColumnCount * tm.CellsPerColumn
	cp.MinNarrowedFloor = 5

	g1 := htm.DefaultGridCellConfig()
	g1.ModuleSize = 8
	g1.ActiveCount = 4
	g2 := htm.DefaultGridCellConfig()
	g2.ModuleSize = 8
	g2.ActiveCount = 4
	g2.Orientation = 1.0

	d1 := htm.DefaultDisplacementConfig()
	d1.ModuleSize = 8
	d2 := htm.DefaultDisplacementConfig()
	d2.ModuleSize = 8

	return &htm.CorticalColumnConfig{
		SpatialPooler:  sp,
		TemporalMemory: tm,
		ColumnPooler:   cp,
		GridModules:    []*htm.GridCellConfig{g1, g2},
		Displacement:   []*htm.DisplacementConfig{d1, d2},
	}
}

func featureSDR(t *testing.T, width int, active []int) *sdr.SDR {
	t.Helper()
	s, err := sdr.NewSDR(width, active)
	require.NoError(t, err)
	return s
}

func TestNewRejectsMismatchedFeedforwardWidth(t *testing.T) {
	cfg := smallColumnConfig()
	cfg.ColumnPooler.FeedforwardWidth = cfg.ColumnPooler.FeedforwardWidth + 1
	_, err := New(cfg)
	require.Error(t, err)
}

func TestNewRejectsMismatchedDisplacementCount(t *testing.T) {
	cfg := smallColumnConfig()
	cfg.Displacement = cfg.Displacement[:1]
	_, err := New(cfg)
	require.Error(t, err)
}

func TestComputeProducesConsistentShapes(t *testing.T) {
	cfg := smallColumnConfig()
	col, err := New(cfg)
	require.NoError(t, err)

	feature := featureSDR(t, cfg.SpatialPooler.InputWidth, []int{1, 5, 9, 20, 37, 58, 61, 80, 91, 99})
	out, err := col.Compute(&htm.SensoryInput{Feature: feature, DeltaX: 2, DeltaY: 3}, true)
	require.NoError(t, err)

	assert.Len(t, out.Representation, cfg.ColumnPooler.SDRSize)
	assert.True(t, out.IsNovel, "first presentation has no learned proximal connections yet")

	expectedLocationWidth := len(cfg.GridModules) * cfg.GridModules[0].ModuleSize * cfg.GridModules[0].ModuleSize
	maxActiveLocationBits := len(cfg.GridModules) * cfg.GridModules[0].ActiveCount
	assert.LessOrEqual(t, len(out.Location), maxActiveLocationBits)
	for _, bit := range out.Location {
		assert.Less(t, bit, expectedLocationWidth)
	}
}

func TestComputeRejectsNilFeature(t *testing.T) {
	cfg := smallColumnConfig()
	col, err := New(cfg)
	require.NoError(t, err)

	_, err = col.Compute(&htm.SensoryInput{DeltaX: 1, DeltaY: 1}, true)
	assert.Error(t, err)
}

func TestApplyLateralNarrowingUpdatesRepresentationAndApicalCarry(t *testing.T) {
	cfg := smallColumnConfig()
	col, err := New(cfg)
	require.NoError(t, err)

	feature := featureSDR(t, cfg.SpatialPooler.InputWidth, []int{2, 4, 6, 8})
	_, err = col.Compute(&htm.SensoryInput{Feature: feature}, true)
	require.NoError(t, err)

	result, err := col.ApplyLateralNarrowing(map[int]*sdr.SDR{})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Representation)
	// The narrowed representation replaces the Compute-time one as next
	// step's apical carry (spec §4.7 step 6 applies here too).
	assert.Equal(t, result.Representation, col.prevRepresentation.ActiveBits)
}

func TestDisplacementLearnAndPredictRoundTripPerModule(t *testing.T) {
	cfg := smallColumnConfig()
	col, err := New(cfg)
	require.NoError(t, err)

	moduleWidth := cfg.GridModules[0].ModuleSize * cfg.GridModules[0].ModuleSize
	src := featureSDR(t, moduleWidth, []int{1, 2, 3, 4})
	tgt := featureSDR(t, moduleWidth, []int{10, 11, 12, 13})

	require.NoError(t, col.LearnDisplacement(0, src, tgt))

	predictions, err := col.PredictDisplacementTargets(0, src)
	require.NoError(t, err)
	require.NotEmpty(t, predictions)
	predictedTgt := featureSDR(t, moduleWidth, predictions[0].Target)
	assert.Greater(t, predictedTgt.OverlapRatio(tgt), 0.9)

	err = col.LearnDisplacement(len(cfg.GridModules), src, tgt)
	assert.Error(t, err, "module index out of range must be rejected")
}

func TestGridLocationReturnsPerModuleSDR(t *testing.T) {
	cfg := smallColumnConfig()
	col, err := New(cfg)
	require.NoError(t, err)

	loc, err := col.GridLocation(0)
	require.NoError(t, err)
	assert.Equal(t, cfg.GridModules[0].ModuleSize*cfg.GridModules[0].ModuleSize, loc.Width)
	assert.Len(t, loc.ActiveBits, cfg.GridModules[0].ActiveCount)
}

func TestResetClearsApicalCarryButPreservesHierarchicalFeedback(t *testing.T) {
	cfg := smallColumnConfig()
	col, err := New(cfg)
	require.NoError(t, err)

	feedback, err := sdr.NewSDR(cfg.ColumnPooler.CellCount, []int{1, 2, 3})
	require.NoError(t, err)
	col.ReceiveApical(feedback)

	feature := featureSDR(t, cfg.SpatialPooler.InputWidth, []int{3, 6, 9})
	_, err = col.Compute(&htm.SensoryInput{Feature: feature}, true)
	require.NoError(t, err)
	require.NotNil(t, col.prevRepresentation)

	col.Reset()
	assert.Nil(t, col.prevRepresentation)
	assert.Equal(t, feedback, col.hierarchicalApical)
}
