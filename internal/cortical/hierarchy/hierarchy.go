// Package hierarchy implements the Neocortex orchestrator: multiple
// cortical regions processed bottom-up, then iteratively settled with
// top-down apical feedback until every level converges or the settling
// budget runs out (spec §4.8).
package hierarchy

import (
	"github.com/htm-project/neural-api/internal/cortical/cerr"
	"github.com/htm-project/neural-api/internal/cortical/region"
	"github.com/htm-project/neural-api/internal/cortical/sdr"
	"github.com/htm-project/neural-api/internal/domain/htm"
)

const component = "hierarchy"

// Neocortex holds an ordered stack of regions, lowest level first.
type Neocortex struct {
	config *htm.HierarchyConfig
	levels []*region.Region
}

// New constructs a hierarchy over an existing, already-configured stack of
// regions ordered bottom-up.
func New(config *htm.HierarchyConfig, levels []*region.Region) (*Neocortex, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if len(levels) == 0 {
		return nil, cerr.NewInvalidArgument(component, "levels", "must configure at least one region")
	}
	return &Neocortex{config: config, levels: levels}, nil
}

// GetConfiguration returns a copy of the active configuration.
func (n *Neocortex) GetConfiguration() *htm.HierarchyConfig {
	c := *n.config
	return &c
}

// Process runs every level bottom-up exactly once, then iteratively feeds
// each level's current consensus downward as apical feedback to the level
// below and resettles every level bottom-up, stopping when all levels have
// converged or the settling budget is spent (spec §4.8). A level's own
// top-most feedback channel is whatever ReceiveHierarchicalFeedback was
// called with out-of-band, since nothing sits above it in this stack.
func (n *Neocortex) Process(inputs [][]*htm.SensoryInput, learn bool) (*htm.NeocortexOutput, error) {
	if len(inputs) != len(n.levels) {
		return nil, cerr.NewShapeMismatch(component, "input batch count must equal level count")
	}

	outputs := make([]*htm.RegionOutput, len(n.levels))
	for i, lvl := range n.levels {
		out, err := lvl.Process(inputs[i], learn)
		if err != nil {
			return nil, err
		}
		outputs[i] = out
	}

	iterations := 0
	for iterations < n.config.MaxSettlingIterations && !allConverged(outputs) {
		iterations++

		// Feed every level's just-computed consensus down to the level
		// directly below it as apical feedback. Consensus bit indices are
		// bounded by the emitting level's own cell_count; the receiving
		// level's column pooler silently ignores any bit beyond its own
		// cell_count, so levels with differing cell_count still compose
		// safely (see DESIGN.md's hierarchy section).
		for i := len(n.levels) - 1; i > 0; i-- {
			cellCount := n.levels[i].GetColumnPoolerCellCount()
			feedback, err := sdr.NewSDR(cellCount, outputs[i].Consensus)
			if err != nil {
				return nil, err
			}
			n.levels[i-1].ReceiveHierarchicalFeedback(feedback)
		}

		for i, lvl := range n.levels {
			out, err := lvl.Settle()
			if err != nil {
				return nil, err
			}
			outputs[i] = out
		}
	}

	return &htm.NeocortexOutput{
		Levels:             outputs,
		AllConverged:       allConverged(outputs),
		SettlingIterations: iterations,
	}, nil
}

func allConverged(outputs []*htm.RegionOutput) bool {
	for _, o := range outputs {
		if !o.Converged {
			return false
		}
	}
	return true
}

// ReceiveHierarchicalFeedback stores external feedback destined for the
// topmost level, broadcast to its columns at the start of the next Process
// call (mirroring Region.ReceiveHierarchicalFeedback one level up, for a
// host that sits above this whole stack).
func (n *Neocortex) ReceiveHierarchicalFeedback(feedback *sdr.SDR) {
	n.levels[len(n.levels)-1].ReceiveHierarchicalFeedback(feedback)
}

// Reset resets every level.
func (n *Neocortex) Reset() {
	for _, lvl := range n.levels {
		lvl.Reset()
	}
}
