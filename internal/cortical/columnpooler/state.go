package columnpooler

import (
	"gonum.org/v1/gonum/mat"

	"github.com/htm-project/neural-api/internal/domain/htm"
)

// matrixBlob is a gob-friendly, dimension-tagged flattening of a
// gonum/mat.Dense (mirrors internal/cortical/spatial's own copy: each
// package owns the glue for its own matrices rather than sharing a
// cross-package helper for two call sites).
type matrixBlob struct {
	Rows, Cols int
	Data       []float64
}

func blobFromMatrix(m *mat.Dense) matrixBlob {
	rows, cols := m.Dims()
	data := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			data = append(data, m.At(i, j))
		}
	}
	return matrixBlob{Rows: rows, Cols: cols, Data: data}
}

func matrixFromBlob(b matrixBlob) *mat.Dense {
	m := mat.NewDense(b.Rows, b.Cols, nil)
	idx := 0
	for i := 0; i < b.Rows; i++ {
		for j := 0; j < b.Cols; j++ {
			m.Set(i, j, b.Data[idx])
			idx++
		}
	}
	return m
}

// State is the persisted form of a ColumnPooler: its configuration, every
// learned proximal and distal (internal + lateral) permanence matrix, and
// the activity carried across steps.
type State struct {
	Config                   *htm.ColumnPoolerConfig
	ProximalPermanence       matrixBlob
	ProximalPotential        matrixBlob
	InternalDistalPermanence matrixBlob
	InternalDistalPotential  matrixBlob
	LateralPermanence        map[int]matrixBlob
	LateralPotential         map[int]matrixBlob
	ActiveCells              []bool
	PrevActiveCells          []bool
}

// ExportState captures everything needed to reconstruct this column pooler
// exactly, short of its RNG stream.
func (cp *ColumnPooler) ExportState() *State {
	lateralPerm := make(map[int]matrixBlob, len(cp.lateralPermanence))
	for peer, m := range cp.lateralPermanence {
		lateralPerm[peer] = blobFromMatrix(m)
	}
	lateralPot := make(map[int]matrixBlob, len(cp.lateralPotential))
	for peer, m := range cp.lateralPotential {
		lateralPot[peer] = blobFromMatrix(m)
	}
	return &State{
		Config:                   cp.GetConfiguration(),
		ProximalPermanence:       blobFromMatrix(cp.proximalPermanence),
		ProximalPotential:        blobFromMatrix(cp.proximalPotential),
		InternalDistalPermanence: blobFromMatrix(cp.internalDistalPermanence),
		InternalDistalPotential:  blobFromMatrix(cp.internalDistalPotential),
		LateralPermanence:        lateralPerm,
		LateralPotential:         lateralPot,
		ActiveCells:              append([]bool(nil), cp.activeCells...),
		PrevActiveCells:          append([]bool(nil), cp.prevActiveCells...),
	}
}

// RestoreColumnPooler rebuilds a column pooler from a previously exported
// state.
func RestoreColumnPooler(state *State) (*ColumnPooler, error) {
	cp, err := NewColumnPooler(state.Config)
	if err != nil {
		return nil, err
	}
	cp.proximalPermanence = matrixFromBlob(state.ProximalPermanence)
	cp.proximalPotential = matrixFromBlob(state.ProximalPotential)
	cp.internalDistalPermanence = matrixFromBlob(state.InternalDistalPermanence)
	cp.internalDistalPotential = matrixFromBlob(state.InternalDistalPotential)
	for peer, blob := range state.LateralPermanence {
		cp.lateralPermanence[peer] = matrixFromBlob(blob)
	}
	for peer, blob := range state.LateralPotential {
		cp.lateralPotential[peer] = matrixFromBlob(blob)
	}
	cp.activeCells = append([]bool(nil), state.ActiveCells...)
	cp.prevActiveCells = append([]bool(nil), state.PrevActiveCells...)
	return cp, nil
}
