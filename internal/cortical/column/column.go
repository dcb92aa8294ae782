// Package column implements the CorticalColumn orchestrator: L6 grid
// location, L4 feedforward (Spatial Pooler + Temporal Memory), and L2/3
// object layer (Column Pooler), wired per spec §4.7 with the one-step
// apical delay that breaks the L2/3<->L4 cycle.
package column

import (
	"github.com/htm-project/neural-api/internal/cortical/cerr"
	"github.com/htm-project/neural-api/internal/cortical/columnpooler"
	"github.com/htm-project/neural-api/internal/cortical/grid"
	"github.com/htm-project/neural-api/internal/cortical/sdr"
	"github.com/htm-project/neural-api/internal/cortical/spatial"
	"github.com/htm-project/neural-api/internal/cortical/temporal"
	"github.com/htm-project/neural-api/internal/domain/htm"
)

const component = "cortical_column"

// Column is one cortical column: a location layer (L6), a feedforward pair
// (L4 SP+TM), and an object layer (L2/3 CP).
type Column struct {
	config *htm.CorticalColumnConfig

	sp *spatial.SpatialPooler
	tm *temporal.TemporalMemory
	cp *columnpooler.ColumnPooler

	gridModules   []*grid.Module
	displacements []*grid.DisplacementModule

	// prevRepresentation is this column's own L2/3 output from the previous
	// step, fed as L4's apical input this step (spec §4.7 step 6 / §9's
	// one-step delay, which breaks the L2/3<->L4 cycle).
	prevRepresentation *sdr.SDR

	// hierarchicalApical is external feedback from a higher region/level,
	// delivered out-of-band via ReceiveApical and consumed as CP's apical
	// input on the next Compute call.
	hierarchicalApical *sdr.SDR
}

// New constructs a column and every sub-component it owns.
func New(config *htm.CorticalColumnConfig) (*Column, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	sp, err := spatial.NewSpatialPooler(config.SpatialPooler)
	if err != nil {
		return nil, err
	}
	tm, err := temporal.NewTemporalMemory(config.TemporalMemory)
	if err != nil {
		return nil, err
	}
	cp, err := columnpooler.NewColumnPooler(config.ColumnPooler)
	if err != nil {
		return nil, err
	}

	gridModules := make([]*grid.Module, len(config.GridModules))
	for i, gc := range config.GridModules {
		m, err := grid.NewModule(gc)
		if err != nil {
			return nil, err
		}
		gridModules[i] = m
	}

	displacements := make([]*grid.DisplacementModule, len(config.Displacement))
	for i, dc := range config.Displacement {
		d, err := grid.NewDisplacementModule(dc)
		if err != nil {
			return nil, err
		}
		displacements[i] = d
	}

	return &Column{
		config:        config,
		sp:            sp,
		tm:            tm,
		cp:            cp,
		gridModules:   gridModules,
		displacements: displacements,
	}, nil
}

// GetConfiguration returns a copy of the active configuration.
func (c *Column) GetConfiguration() *htm.CorticalColumnConfig {
	cfg := *c.config
	return &cfg
}

// locationSDR concatenates every grid module's current location, each in its
// own module_size^2 slot, per spec §4.6 ("location SDR is the concatenation
// of its N modules' outputs").
func (c *Column) locationSDR() (*sdr.SDR, error) {
	width := 0
	active := make([]int, 0, len(c.gridModules)*8)
	offset := 0
	for _, m := range c.gridModules {
		loc, err := m.CurrentLocation()
		if err != nil {
			return nil, err
		}
		for _, bit := range loc.ActiveBits {
			active = append(active, offset+bit)
		}
		offset += loc.Width
		width = offset
	}
	return sdr.NewSDR(width, active)
}

// Compute runs one timestep: move and anchor every grid module, feedforward
// through SP and TM with the location as basal input and this column's own
// previous representation as apical input, then form the L2/3 object
// representation (spec §4.7 steps 1-6).
func (c *Column) Compute(input *htm.SensoryInput, learn bool) (*htm.ColumnOutput, error) {
	if input == nil {
		return nil, cerr.NewInvalidArgument(component, "input", "cannot be nil")
	}
	if input.Feature == nil {
		return nil, cerr.NewInvalidArgument(component, "input.feature", "cannot be nil")
	}

	// Step 1-2: path integration and landmark anchoring on every module.
	for _, m := range c.gridModules {
		m.Move(input.DeltaX, input.DeltaY)
		if _, err := m.Anchor(input.Feature); err != nil {
			return nil, err
		}
	}

	location, err := c.locationSDR()
	if err != nil {
		return nil, err
	}

	// Step 3: L4 spatial pooling.
	sparsity := 0.0
	if input.Feature.Width > 0 {
		sparsity = float64(len(input.Feature.ActiveBits)) / float64(input.Feature.Width)
	}
	spResult, err := c.sp.Process(&htm.PoolingInput{
		EncoderOutput: htm.EncoderOutput{
			Width:      input.Feature.Width,
			ActiveBits: input.Feature.ActiveBits,
			Sparsity:   sparsity,
		},
		InputWidth:      input.Feature.Width,
		InputID:         "column",
		LearningEnabled: learn,
	})
	if err != nil {
		return nil, err
	}
	activeColumnsSDR := &spResult.NormalizedSDR

	// Step 4: L4 temporal memory, basal = location, apical = own previous
	// L2/3 output (one-step delayed).
	tmResult, err := c.tm.Compute(activeColumnsSDR, location, c.prevRepresentation, learn)
	if err != nil {
		return nil, err
	}

	ffWidth := c.config.TemporalMemory.CellsPerColumn * c.config.TemporalMemory.ColumnCount
	feedforward, err := sdr.NewSDR(ffWidth, tmResult.ActiveCells)
	if err != nil {
		return nil, err
	}
	growth, err := sdr.NewSDR(ffWidth, tmResult.WinnerCells)
	if err != nil {
		return nil, err
	}

	// Step 5: L2/3 column pooling, apical = external hierarchical feedback.
	cpResult, err := c.cp.Compute(feedforward, growth, nil, c.hierarchicalApical, learn)
	if err != nil {
		return nil, err
	}

	representation, err := sdr.NewSDR(c.config.ColumnPooler.CellCount, cpResult.Representation)
	if err != nil {
		return nil, err
	}
	// Step 6: store this step's CP output as next step's L4 apical input.
	c.prevRepresentation = representation

	return &htm.ColumnOutput{
		ActiveColumns:        append([]int(nil), spResult.ActiveColumns...),
		ActiveCells:          tmResult.ActiveCells,
		WinnerCells:          tmResult.WinnerCells,
		PredictedCells:       tmResult.PredictedCells,
		Anomaly:              tmResult.Anomaly,
		BurstingColumnCount:  tmResult.BurstingColumnCount,
		PredictedActiveCount: tmResult.PredictedActiveCount,
		Representation:       cpResult.Representation,
		OverlapPrev:          cpResult.OverlapPrev,
		FFActivated:          cpResult.FeedforwardActivated,
		InertiaRetained:      cpResult.InertiaRetained,
		IsNovel:              cpResult.IsNovel,
		Location:             location.ActiveBits,
	}, nil
}

// ApplyLateralNarrowing routes directly into the object layer's voting step
// without touching L4/L6 or advancing TM state (spec §4.7's hard
// separation requirement).
func (c *Column) ApplyLateralNarrowing(peers map[int]*sdr.SDR) (*htm.ColumnPoolerResult, error) {
	result, err := c.cp.ApplyLateralNarrowing(peers)
	if err != nil {
		return nil, err
	}
	representation, err := sdr.NewSDR(c.config.ColumnPooler.CellCount, result.Representation)
	if err != nil {
		return nil, err
	}
	c.prevRepresentation = representation
	return result, nil
}

// ReceiveApical stores hierarchical feedback consumed as CP's apical input
// on the next Compute call.
func (c *Column) ReceiveApical(feedback *sdr.SDR) {
	c.hierarchicalApical = feedback
}

// Representation returns this column's most recent L2/3 output, the vote a
// region reads during Process and Settle. Nil until the first Compute or
// ApplyLateralNarrowing call.
func (c *Column) Representation() *sdr.SDR {
	return c.prevRepresentation
}

// LearnDisplacement teaches the moduleIndex'th grid module's displacement
// module a (src, tgt) location association, driven by the host rather than
// by Compute: spec §4.7's compute sequence never calls the displacement
// module, so structural (sensed-feature-at-location) learning is a
// separate, explicitly-invoked capability per module.
func (c *Column) LearnDisplacement(moduleIndex int, src, tgt *sdr.SDR) error {
	if moduleIndex < 0 || moduleIndex >= len(c.displacements) {
		return cerr.NewInvalidArgument(component, "module_index", "out of range")
	}
	return c.displacements[moduleIndex].Learn(src, tgt)
}

// PredictDisplacementTargets asks the moduleIndex'th displacement module for
// every learned target whose source overlaps current above threshold.
func (c *Column) PredictDisplacementTargets(moduleIndex int, current *sdr.SDR) ([]htm.DisplacementPrediction, error) {
	if moduleIndex < 0 || moduleIndex >= len(c.displacements) {
		return nil, cerr.NewInvalidArgument(component, "module_index", "out of range")
	}
	return c.displacements[moduleIndex].PredictTargets(current)
}

// GridLocation returns the moduleIndex'th grid module's current location
// SDR directly, for callers that want a single module's location rather
// than the full concatenated basal input Compute builds internally.
func (c *Column) GridLocation(moduleIndex int) (*sdr.SDR, error) {
	if moduleIndex < 0 || moduleIndex >= len(c.gridModules) {
		return nil, cerr.NewInvalidArgument(component, "module_index", "out of range")
	}
	return c.gridModules[moduleIndex].CurrentLocation()
}

// Reset clears L4/L2/3 sequence state, every grid module's position (and,
// per module configuration, its anchor memory), and the one-step-delayed
// apical carry. Hierarchical feedback is untouched: it arrives from an
// independent channel and does not belong to this object's lifetime.
func (c *Column) Reset() {
	c.tm.Reset()
	c.cp.Reset()
	for _, m := range c.gridModules {
		m.Reset()
	}
	c.prevRepresentation = nil
}
