package spatial

import (
	"gonum.org/v1/gonum/mat"

	"github.com/htm-project/neural-api/internal/domain/htm"
)

// matrixBlob is a gob-friendly, dimension-tagged flattening of a
// gonum/mat.Dense, used so persisted payloads don't depend on gonum's own
// (un)marshaling behavior.
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

// State is the persisted form of a SpatialPooler: its configuration plus
// every learned and accumulated quantity (spec §6, "configurations plus
// learned synapses, duty cycles, boost factors").
type State struct {
	Config            *htm.SpatialPoolerConfig
	Potential         matrixBlob
	Permanences       matrixBlob
	ConnectedSynapses matrixBlob
	ActiveDutyCycles  []float64
	OverlapDutyCycles []float64
	BoostFactors      []float64
	IterationNum      int64
}

// ExportState captures everything needed to reconstruct this pooler
// exactly, short of its inhibition-neighborhood cache (deterministic from
// config, rebuilt on restore) and its RNG stream (fresh-seeded on restore,
// same as any other newly constructed pooler).
func (sp *SpatialPooler) ExportState() *State {
	return &State{
		Config:            sp.GetConfiguration(),
		Potential:         blobFromMatrix(sp.potential),
		Permanences:       blobFromMatrix(sp.permanences),
		ConnectedSynapses: blobFromMatrix(sp.connectedSynapses),
		ActiveDutyCycles:  append([]float64(nil), sp.activeDutyCycles...),
		OverlapDutyCycles: append([]float64(nil), sp.overlapDutyCycles...),
		BoostFactors:      append([]float64(nil), sp.boostFactors...),
		IterationNum:      sp.iterationNum,
	}
}

// RestoreSpatialPooler rebuilds a pooler from a previously exported state.
func RestoreSpatialPooler(state *State) (*SpatialPooler, error) {
	sp, err := NewSpatialPooler(state.Config)
	if err != nil {
		return nil, err
	}
	sp.potential = matrixFromBlob(state.Potential)
	sp.permanences = matrixFromBlob(state.Permanences)
	sp.connectedSynapses = matrixFromBlob(state.ConnectedSynapses)
	sp.activeDutyCycles = append([]float64(nil), state.ActiveDutyCycles...)
	sp.overlapDutyCycles = append([]float64(nil), state.OverlapDutyCycles...)
	sp.boostFactors = append([]float64(nil), state.BoostFactors...)
	sp.iterationNum = state.IterationNum
	return sp, nil
}
