package column

import (
	"github.com/htm-project/neural-api/internal/cortical/columnpooler"
	"github.com/htm-project/neural-api/internal/cortical/grid"
	"github.com/htm-project/neural-api/internal/cortical/sdr"
	"github.com/htm-project/neural-api/internal/cortical/spatial"
	"github.com/htm-project/neural-api/internal/cortical/temporal"
	"github.com/htm-project/neural-api/internal/domain/htm"
)

// State is the persisted form of a cortical column: its sub-component
// states plus the cross-layer carry-over (spec §9's one-step apical delay)
// that doesn't belong to any single sub-component.
type State struct {
	Config             *htm.CorticalColumnConfig
	SpatialPooler      *spatial.State
	TemporalMemory     *temporal.State
	ColumnPooler       *columnpooler.State
	GridModules        []*grid.ModuleState
	Displacement       []*grid.DisplacementState
	PrevRepresentation *sdr.SDR
	HierarchicalApical *sdr.SDR
}

// ExportState captures everything needed to reconstruct this column
// exactly, short of its sub-components' RNG streams.
func (c *Column) ExportState() *State {
	gridStates := make([]*grid.ModuleState, len(c.gridModules))
	for i, m := range c.gridModules {
		gridStates[i] = m.ExportState()
	}
	dispStates := make([]*grid.DisplacementState, len(c.displacements))
	for i, d := range c.displacements {
		dispStates[i] = d.ExportState()
	}
	return &State{
		Config:             c.GetConfiguration(),
		SpatialPooler:      c.sp.ExportState(),
		TemporalMemory:     c.tm.ExportState(),
		ColumnPooler:       c.cp.ExportState(),
		GridModules:        gridStates,
		Displacement:       dispStates,
		PrevRepresentation: c.prevRepresentation,
		HierarchicalApical: c.hierarchicalApical,
	}
}

// RestoreColumn rebuilds a column from a previously exported state.
func RestoreColumn(state *State) (*Column, error) {
	sp, err := spatial.RestoreSpatialPooler(state.SpatialPooler)
	if err != nil {
		return nil, err
	}
	tm, err := temporal.RestoreTemporalMemory(state.TemporalMemory)
	if err != nil {
		return nil, err
	}
	cp, err := columnpooler.RestoreColumnPooler(state.ColumnPooler)
	if err != nil {
		return nil, err
	}

	gridModules := make([]*grid.Module, len(state.GridModules))
	for i, gs := range state.GridModules {
		m, err := grid.RestoreModule(gs)
		if err != nil {
			return nil, err
		}
		gridModules[i] = m
	}

	displacements := make([]*grid.DisplacementModule, len(state.Displacement))
	for i, ds := range state.Displacement {
		d, err := grid.RestoreDisplacementModule(ds)
		if err != nil {
			return nil, err
		}
		displacements[i] = d
	}

	return &Column{
		config:             state.Config,
		sp:                 sp,
		tm:                 tm,
		cp:                 cp,
		gridModules:        gridModules,
		displacements:      displacements,
		prevRepresentation: state.PrevRepresentation,
		hierarchicalApical: state.HierarchicalApical,
	}, nil
}
