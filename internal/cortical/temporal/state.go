package temporal

import (
	"github.com/htm-project/neural-api/internal/cortical/sdr"
	"github.com/htm-project/neural-api/internal/cortical/segment"
	"github.com/htm-project/neural-api/internal/domain/htm"
)

// State is the persisted form of a TemporalMemory: its configuration plus
// every learned dendrite segment (basal, distal, apical) and the cell
// activity carried across steps. segment.Manager and its segments already
// expose exported fields, so they gob-encode directly with no flattening.
type State struct {
	Config          *htm.TemporalMemoryConfig
	Distal          []*segment.Manager
	Basal           []*segment.Manager
	Apical          []*segment.Manager
	ActiveCells     []bool
	WinnerCells     []bool
	PredictiveCells []bool
	PrevBasalInput  *sdr.SDR
	PrevApicalInput *sdr.SDR
	Iteration       uint64
}

// ExportState captures everything needed to reconstruct this temporal
// memory exactly, short of its RNG stream.
func (tm *TemporalMemory) ExportState() *State {
	return &State{
		Config:          tm.GetConfiguration(),
		Distal:          tm.distal,
		Basal:           tm.basal,
		Apical:          tm.apical,
		ActiveCells:     append([]bool(nil), tm.activeCells...),
		WinnerCells:     append([]bool(nil), tm.winnerCells...),
		PredictiveCells: append([]bool(nil), tm.predictiveCells...),
		PrevBasalInput:  tm.prevBasalInput,
		PrevApicalInput: tm.prevApicalInput,
		Iteration:       tm.iteration,
	}
}

// RestoreTemporalMemory rebuilds a temporal memory from a previously
// exported state.
func RestoreTemporalMemory(state *State) (*TemporalMemory, error) {
	tm, err := NewTemporalMemory(state.Config)
	if err != nil {
		return nil, err
	}
	tm.distal = state.Distal
	tm.basal = state.Basal
	tm.apical = state.Apical
	tm.activeCells = append([]bool(nil), state.ActiveCells...)
	tm.winnerCells = append([]bool(nil), state.WinnerCells...)
	tm.predictiveCells = append([]bool(nil), state.PredictiveCells...)
	tm.prevBasalInput = state.PrevBasalInput
	tm.prevApicalInput = state.PrevApicalInput
	tm.iteration = state.Iteration
	tm.resetDone = false
	return tm, nil
}
