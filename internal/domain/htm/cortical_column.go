package htm

import (
	"github.com/htm-project/neural-api/internal/cortical/cerr"
	"github.com/htm-project/neural-api/internal/cortical/sdr"
)

const corticalColumnComponent = "cortical_column"

// CorticalColumnConfig composes one column's four layers: the L4
// feedforward pair (SP+TM), the L2/3 object layer (CP), and the L6 location
// layer (one or more grid modules sharing a displacement module each).
// Spec §4.7.
type CorticalColumnConfig struct {
	SpatialPooler  *SpatialPoolerConfig   `json:"spatial_pooler" validate:"required"`
	TemporalMemory *TemporalMemoryConfig  `json:"temporal_memory" validate:"required"`
	ColumnPooler   *ColumnPoolerConfig    `json:"column_pooler" validate:"required"`
	GridModules    []*GridCellConfig      `json:"grid_modules" validate:"required,min=1"`
	Displacement   []*DisplacementConfig  `json:"displacement" validate:"required,min=1"`
}

// Validate validates every sub-config and the cross-layer shape
// relationships spec §4.6/§4.7 require: one displacement module per grid
// module, TM's total cell count equal to the feedforward width CP is
// configured against, and SP's column count equal to TM's.
func (c *CorticalColumnConfig) Validate() error {
	if c.SpatialPooler == nil {
		return cerr.NewInvalidArgument(corticalColumnComponent, "spatial_pooler", "cannot be nil")
	}
	if err := c.SpatialPooler.Validate(); err != nil {
		return err
	}
	if c.TemporalMemory == nil {
		return cerr.NewInvalidArgument(corticalColumnComponent, "temporal_memory", "cannot be nil")
	}
	if err := c.TemporalMemory.Validate(); err != nil {
		return err
	}
	if c.ColumnPooler == nil {
		return cerr.NewInvalidArgument(corticalColumnComponent, "column_pooler", "cannot be nil")
	}
	if err := c.ColumnPooler.Validate(); err != nil {
		return err
	}
	if len(c.GridModules) == 0 {
		return cerr.NewInvalidArgument(corticalColumnComponent, "grid_modules", "must configure at least one module")
	}
	for _, g := range c.GridModules {
		if err := g.Validate(); err != nil {
			return err
		}
	}
	if len(c.Displacement) != len(c.GridModules) {
		return cerr.NewShapeMismatch(corticalColumnComponent, "one displacement module is required per grid module")
	}
	for _, d := range c.Displacement {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	if c.TemporalMemory.CellsPerColumn*c.TemporalMemory.ColumnCount != c.ColumnPooler.FeedforwardWidth {
		return cerr.NewShapeMismatch(corticalColumnComponent, "column_pooler.feedforward_width must equal temporal_memory total cell count")
	}
	if c.SpatialPooler.ColumnCount != c.TemporalMemory.ColumnCount {
		return cerr.NewShapeMismatch(corticalColumnComponent, "spatial_pooler.column_count must equal temporal_memory.column_count")
	}
	return nil
}

// DefaultCorticalColumnConfig returns a column with one module per scale in
// DefaultModuleScales, all other layers at their own package defaults, sized
// consistently (TM total cells == CP feedforward width).
func DefaultCorticalColumnConfig() *CorticalColumnConfig {
	sp := DefaultSpatialPoolerConfig()
	tm := DefaultTemporalMemoryConfig()
	cp := DefaultColumnPoolerConfig()
	cp.FeedforwardWidth = tm.CellsPerColumn * tm.ColumnCount

	scales := DefaultModuleScales()
	grids := make([]*GridCellConfig, len(scales))
	disps := make([]*DisplacementConfig, len(scales))
	for i, scale := range scales {
		g := DefaultGridCellConfig()
		g.Scale = scale
		g.Orientation = float64(i) * 3.14159265358979 / float64(len(scales))
		grids[i] = g

		d := DefaultDisplacementConfig()
		d.ModuleSize = g.ModuleSize
		disps[i] = d
	}

	return &CorticalColumnConfig{
		SpatialPooler:  sp,
		TemporalMemory: tm,
		ColumnPooler:   cp,
		GridModules:    grids,
		Displacement:   disps,
	}
}

// SensoryInput is one timestep's input to a column: a sensed feature and the
// motor displacement since the previous timestep (spec §6,
// `sensory_input{feature, Δx, Δy}`).
type SensoryInput struct {
	Feature *sdr.SDR `json:"feature" validate:"required"`
	DeltaX  float64  `json:"delta_x"`
	DeltaY  float64  `json:"delta_y"`
}

// ColumnOutput is the per-timestep output of CorticalColumn::compute: the
// L4 feedforward result plus the L2/3 object representation that becomes
// next step's apical input and this step's vote.
type ColumnOutput struct {
	ActiveColumns []int `json:"active_columns"`

	ActiveCells          []int   `json:"active_cells"`
	WinnerCells          []int   `json:"winner_cells"`
	PredictedCells       []int   `json:"predicted_cells"`
	Anomaly              float64 `json:"anomaly"`
	BurstingColumnCount  int     `json:"bursting_column_count"`
	PredictedActiveCount int     `json:"predicted_active_count"`

	Representation []int `json:"representation"`
	OverlapPrev    int   `json:"overlap_prev"`
	FFActivated    int   `json:"ff_activated"`
	InertiaRetained int  `json:"inertia_retained"`
	IsNovel        bool  `json:"is_novel"`

	Location []int `json:"location"`
}
