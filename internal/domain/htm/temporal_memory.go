package htm

import "github.com/htm-project/neural-api/internal/cortical/cerr"

const temporalMemoryComponent = "temporal_memory"

// TemporalMemoryConfig represents configuration parameters for the temporal
// memory layer. Field names and defaults mirror spec §6 and follow
// SpatialPoolerConfig's naming and validation conventions.
type TemporalMemoryConfig struct {
	ColumnCount    int `json:"column_count" validate:"required,gt=0"`
	CellsPerColumn int `json:"cells_per_column" validate:"required,gt=0"`

	ActivationThreshold int `json:"activation_threshold" validate:"gte=0"`
	MinThreshold        int `json:"min_threshold" validate:"gte=0"`
	MaxNewSynapseCount  int `json:"max_new_synapse_count" validate:"gte=0"`

	MaxSegmentsPerCell    int `json:"max_segments_per_cell" validate:"required,gt=0"`
	MaxSynapsesPerSegment int `json:"max_synapses_per_segment" validate:"required,gt=0"`

	InitialPermanence   float64 `json:"initial_permanence" validate:"gt=0,lt=1"`
	ConnectedThreshold  float64 `json:"connected_threshold" validate:"gt=0,lt=1"`
	PermanenceIncrement float64 `json:"permanence_increment" validate:"gt=0,lte=1"`
	PermanenceDecrement float64 `json:"permanence_decrement" validate:"gt=0,lte=1"`
	PredictedDecrement  float64 `json:"predicted_decrement" validate:"gte=0,lte=1"`

	PruneThreshold         float64 `json:"prune_threshold" validate:"gte=0,lte=1"`
	SegmentCleanupInterval int     `json:"segment_cleanup_interval" validate:"gt=0"`
	MinViableSynapses      int     `json:"min_viable_synapses" validate:"gte=0"`

	// LearningEnabled mirrors SpatialPoolerConfig's learning toggle; callers
	// may disable learning for pure-inference passes over already-learned
	// sequences.
	LearningEnabled bool `json:"learning_enabled"`
}

// DefaultTemporalMemoryConfig returns the normative configuration from §6.
func DefaultTemporalMemoryConfig() *TemporalMemoryConfig {
	return &TemporalMemoryConfig{
		ColumnCount:            2048,
		CellsPerColumn:         32,
		ActivationThreshold:    13,
		MinThreshold:           10,
		MaxNewSynapseCount:     20,
		MaxSegmentsPerCell:     128,
		MaxSynapsesPerSegment:  64,
		InitialPermanence:      0.21,
		ConnectedThreshold:     0.5,
		PermanenceIncrement:    0.1,
		PermanenceDecrement:    0.1,
		PredictedDecrement:     0.01,
		PruneThreshold:         0.01,
		SegmentCleanupInterval: 1000,
		MinViableSynapses:      3,
		LearningEnabled:        true,
	}
}

// Validate validates the temporal memory configuration, returning a
// cerr.CoreError describing the first violation found.
func (c *TemporalMemoryConfig) Validate() error {
	if c.ColumnCount <= 0 {
		return cerr.NewInvalidArgument(temporalMemoryComponent, "column_count", "must be positive")
	}
	if c.CellsPerColumn <= 0 {
		return cerr.NewInvalidArgument(temporalMemoryComponent, "cells_per_column", "must be positive")
	}
	if c.ActivationThreshold < 0 {
		return cerr.NewInvalidArgument(temporalMemoryComponent, "activation_threshold", "cannot be negative")
	}
	if c.MinThreshold < 0 {
		return cerr.NewInvalidArgument(temporalMemoryComponent, "min_threshold", "cannot be negative")
	}
	if c.MinThreshold > c.ActivationThreshold {
		return cerr.NewInvalidArgument(temporalMemoryComponent, "min_threshold", "cannot exceed activation_threshold")
	}
	if c.MaxNewSynapseCount < 0 {
		return cerr.NewInvalidArgument(temporalMemoryComponent, "max_new_synapse_count", "cannot be negative")
	}
	if c.MaxSegmentsPerCell <= 0 {
		return cerr.NewInvalidArgument(temporalMemoryComponent, "max_segments_per_cell", "must be positive")
	}
	if c.MaxSynapsesPerSegment <= 0 {
		return cerr.NewInvalidArgument(temporalMemoryComponent, "max_synapses_per_segment", "must be positive")
	}
	if c.InitialPermanence <= 0 || c.InitialPermanence >= 1 {
		return cerr.NewInvalidArgument(temporalMemoryComponent, "initial_permanence", "must be in (0,1)")
	}
	if c.ConnectedThreshold <= 0 || c.ConnectedThreshold >= 1 {
		return cerr.NewInvalidArgument(temporalMemoryComponent, "connected_threshold", "must be in (0,1)")
	}
	if c.PermanenceIncrement <= 0 || c.PermanenceIncrement > 1 {
		return cerr.NewInvalidArgument(temporalMemoryComponent, "permanence_increment", "must be in (0,1]")
	}
	if c.PermanenceDecrement <= 0 || c.PermanenceDecrement > 1 {
		return cerr.NewInvalidArgument(temporalMemoryComponent, "permanence_decrement", "must be in (0,1]")
	}
	if c.PredictedDecrement < 0 || c.PredictedDecrement > 1 {
		return cerr.NewInvalidArgument(temporalMemoryComponent, "predicted_decrement", "must be in [0,1]")
	}
	if c.PruneThreshold < 0 || c.PruneThreshold > 1 {
		return cerr.NewInvalidArgument(temporalMemoryComponent, "prune_threshold", "must be in [0,1]")
	}
	if c.SegmentCleanupInterval <= 0 {
		return cerr.NewInvalidArgument(temporalMemoryComponent, "segment_cleanup_interval", "must be positive")
	}
	if c.MinViableSynapses < 0 {
		return cerr.NewInvalidArgument(temporalMemoryComponent, "min_viable_synapses", "cannot be negative")
	}
	return nil
}

// TotalCells returns the fixed total cell count for this configuration.
func (c *TemporalMemoryConfig) TotalCells() int {
	return c.ColumnCount * c.CellsPerColumn
}

// TemporalMemoryResult is the per-step output of the temporal memory layer,
// mirroring the `compute` contract in spec §6.
type TemporalMemoryResult struct {
	ActiveCells           []int   `json:"active_cells"`
	WinnerCells           []int   `json:"winner_cells"`
	PredictedCells        []int   `json:"predicted_cells"`
	Anomaly               float64 `json:"anomaly"`
	BurstingColumnCount   int     `json:"bursting_column_count"`
	PredictedActiveCount  int     `json:"predicted_active_count"`
}
