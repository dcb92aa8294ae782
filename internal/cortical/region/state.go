package region

import (
	"github.com/htm-project/neural-api/internal/cortical/column"
	"github.com/htm-project/neural-api/internal/cortical/sdr"
	"github.com/htm-project/neural-api/internal/domain/htm"
)

// State is the persisted form of a region: its voting configuration, every
// column's full state, and any hierarchical feedback received but not yet
// consumed by the next Process call (spec §9's one-step delay applied at
// the region boundary).
type State struct {
	Config          *htm.RegionConfig
	Columns         []*column.State
	PendingFeedback *sdr.SDR
}

// ExportState captures everything needed to reconstruct this region
// exactly, short of its columns' sub-components' RNG streams.
func (r *Region) ExportState() *State {
	columns := make([]*column.State, len(r.columns))
	for i, c := range r.columns {
		columns[i] = c.ExportState()
	}
	return &State{
		Config:          r.GetConfiguration(),
		Columns:         columns,
		PendingFeedback: r.pendingFeedback,
	}
}

// RestoreRegion rebuilds a region from a previously exported state.
func RestoreRegion(state *State) (*Region, error) {
	columns := make([]*column.Column, len(state.Columns))
	for i, cs := range state.Columns {
		c, err := column.RestoreColumn(cs)
		if err != nil {
			return nil, err
		}
		columns[i] = c
	}
	r, err := New(state.Config, columns)
	if err != nil {
		return nil, err
	}
	r.pendingFeedback = state.PendingFeedback
	return r, nil
}
