package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htm-project/neural-api/internal/cortical/column"
	"github.com/htm-project/neural-api/internal/cortical/region"
	"github.com/htm-project/neural-api/internal/cortical/sdr"
	"github.com/htm-project/neural-api/internal/domain/htm"
)

func levelColumnConfig(inputWidth int) *htm.CorticalColumnConfig {
	sp := htm.DefaultSpatialPoolerConfig()
	sp.InputWidth = inputWidth
	sp.ColumnCount = 50
	sp.DutyCyclePeriod = 50

	tm := htm.DefaultTemporalMemoryConfig()
	tm.ColumnCount = 50
	tm.CellsPerColumn = 4

	cp := htm.DefaultColumnPoolerConfig()
	cp.CellCount = 80
	cp.SDRSize = 8
	cp.FeedforwardWidth = tm.ColumnCount * tm.CellsPerColumn
	cp.MinNarrowedFloor = 3
	cp.AgreementThreshold = 0.5

	g := htm.DefaultGridCellConfig()
	g.ModuleSize = 6
	g.ActiveCount = 3

	d := htm.DefaultDisplacementConfig()
	d.ModuleSize = 6

	return &htm.CorticalColumnConfig{
		SpatialPooler:  sp,
		TemporalMemory: tm,
		ColumnPooler:   cp,
		GridModules:    []*htm.GridCellConfig{g},
		Displacement:   []*htm.DisplacementConfig{d},
	}
}

func newLevel(t *testing.T, nColumns, inputWidth int) *region.Region {
	t.Helper()
	cols := make([]*column.Column, nColumns)
	for i := range cols {
		c, err := column.New(levelColumnConfig(inputWidth))
		require.NoError(t, err)
		cols[i] = c
	}
	r, err := region.New(htm.DefaultRegionConfig(), cols)
	require.NoError(t, err)
	return r
}

func sensoryBatch(t *testing.T, n, width int, active []int) []*htm.SensoryInput {
	t.Helper()
	batch := make([]*htm.SensoryInput, n)
	for i := range batch {
		feature, err := sdr.NewSDR(width, active)
		require.NoError(t, err)
		batch[i] = &htm.SensoryInput{Feature: feature, DeltaX: float64(i), DeltaY: 0}
	}
	return batch
}

func TestNewRejectsEmptyLevels(t *testing.T) {
	_, err := New(htm.DefaultHierarchyConfig(), nil)
	assert.Error(t, err)
}

func TestProcessRejectsInputBatchCountMismatch(t *testing.T) {
	levels := []*region.Region{newLevel(t, 2, 40), newLevel(t, 2, 40)}
	h, err := New(htm.DefaultHierarchyConfig(), levels)
	require.NoError(t, err)

	_, err = h.Process([][]*htm.SensoryInput{sensoryBatch(t, 2, 40, []int{1, 2, 3})}, true)
	assert.Error(t, err)
}

func TestProcessRunsBottomUpOnceThenSettlesUntilConvergedOrBudgetSpent(t *testing.T) {
	levels := []*region.Region{newLevel(t, 2, 40), newLevel(t, 2, 40)}
	cfg := htm.DefaultHierarchyConfig()
	cfg.MaxSettlingIterations = 3
	h, err := New(cfg, levels)
	require.NoError(t, err)

	inputs := [][]*htm.SensoryInput{
		sensoryBatch(t, 2, 40, []int{1, 5, 9, 13, 20}),
		sensoryBatch(t, 2, 40, []int{2, 6, 10, 14, 21}),
	}

	out, err := h.Process(inputs, true)
	require.NoError(t, err)

	require.Len(t, out.Levels, 2)
	for _, lvl := range out.Levels {
		require.NotNil(t, lvl)
		assert.GreaterOrEqual(t, lvl.MeanMatchScore, 0.0)
	}
	assert.LessOrEqual(t, out.SettlingIterations, cfg.MaxSettlingIterations)
	assert.Equal(t, out.AllConverged, allConverged(out.Levels))
}

func TestProcessStopsEarlyWhenAllLevelsAlreadyConverged(t *testing.T) {
	// A single-level hierarchy trivially converges every region.vote() call
	// once its lone region has fewer than two columns worth of disagreement
	// to resolve, since MeanMatchScore defaults to 1.0 with < 2 columns.
	levels := []*region.Region{newLevel(t, 1, 40)}
	cfg := htm.DefaultHierarchyConfig()
	h, err := New(cfg, levels)
	require.NoError(t, err)

	inputs := [][]*htm.SensoryInput{sensoryBatch(t, 1, 40, []int{3, 7, 11})}
	out, err := h.Process(inputs, true)
	require.NoError(t, err)

	assert.True(t, out.AllConverged)
	assert.Equal(t, 0, out.SettlingIterations, "already converged after the single bottom-up pass")
}

func TestReceiveHierarchicalFeedbackTargetsTopmostLevel(t *testing.T) {
	levels := []*region.Region{newLevel(t, 2, 40), newLevel(t, 2, 40)}
	h, err := New(htm.DefaultHierarchyConfig(), levels)
	require.NoError(t, err)

	feedback, err := sdr.NewSDR(levels[1].GetColumnPoolerCellCount(), []int{1, 2, 3})
	require.NoError(t, err)
	h.ReceiveHierarchicalFeedback(feedback)

	_, err = levels[1].Process(sensoryBatch(t, 2, 40, []int{1, 2, 3}), true)
	require.NoError(t, err)
}

func TestResetResetsEveryLevel(t *testing.T) {
	levels := []*region.Region{newLevel(t, 2, 40), newLevel(t, 2, 40)}
	h, err := New(htm.DefaultHierarchyConfig(), levels)
	require.NoError(t, err)

	inputs := [][]*htm.SensoryInput{
		sensoryBatch(t, 2, 40, []int{1, 2, 3}),
		sensoryBatch(t, 2, 40, []int{4, 5, 6}),
	}
	_, err = h.Process(inputs, true)
	require.NoError(t, err)

	h.Reset()
	// Reset fans out to every level/column; a subsequent Settle narrows each
	// column's cleared object layer, so every column reports an empty
	// representation.
	out, err := levels[0].Settle()
	require.NoError(t, err)
	for _, co := range out.ColumnOutputs {
		require.NotNil(t, co)
		assert.Empty(t, co.Representation)
	}
}
