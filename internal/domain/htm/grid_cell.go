package htm

import "github.com/htm-project/neural-api/internal/cortical/cerr"

const gridCellComponent = "grid_cell"

// GridCellConfig represents configuration parameters for one grid cell
// module. Field names and defaults mirror spec §4.6/§9. A column typically
// owns ModulesPerColumn instances, each with a distinct Scale/Orientation.
type GridCellConfig struct {
	ModuleSize int `json:"module_size" validate:"required,gt=0"`
	ActiveCount int `json:"active_count" validate:"required,gt=0"`

	Scale       float64 `json:"scale" validate:"gt=0"`
	Orientation float64 `json:"orientation"`

	BumpSigma          float64 `json:"bump_sigma" validate:"gt=0"`
	PathIntegrationNoise float64 `json:"path_integration_noise" validate:"gte=0"`

	AnchorOverlapThreshold float64 `json:"anchor_overlap_threshold" validate:"gte=0,lte=1"`

	// PreserveAnchorMemory controls whether Reset() clears the learned
	// anchor list. Spec §4.2 leaves this explicitly configurable.
	PreserveAnchorMemory bool `json:"preserve_anchor_memory"`
}

// DefaultGridCellConfig returns the normative single-module configuration
// used by spec §8 scenario 5 ("module size 40, scale 1, orientation 0").
func DefaultGridCellConfig() *GridCellConfig {
	return &GridCellConfig{
		ModuleSize:             40,
		ActiveCount:            8,
		Scale:                  1.0,
		Orientation:            0.0,
		BumpSigma:              1.5,
		PathIntegrationNoise:   0.0,
		AnchorOverlapThreshold: 0.2,
		PreserveAnchorMemory:   true,
	}
}

// Validate validates the grid cell configuration.
func (c *GridCellConfig) Validate() error {
	if c.ModuleSize <= 0 {
		return cerr.NewInvalidArgument(gridCellComponent, "module_size", "must be positive")
	}
	if c.ActiveCount <= 0 {
		return cerr.NewInvalidArgument(gridCellComponent, "active_count", "must be positive")
	}
	if c.ActiveCount > c.ModuleSize*c.ModuleSize {
		return cerr.NewInvalidArgument(gridCellComponent, "active_count", "cannot exceed module_size squared")
	}
	if c.Scale <= 0 {
		return cerr.NewInvalidArgument(gridCellComponent, "scale", "must be positive")
	}
	if c.BumpSigma <= 0 {
		return cerr.NewInvalidArgument(gridCellComponent, "bump_sigma", "must be positive")
	}
	if c.PathIntegrationNoise < 0 {
		return cerr.NewInvalidArgument(gridCellComponent, "path_integration_noise", "cannot be negative")
	}
	if c.AnchorOverlapThreshold < 0 || c.AnchorOverlapThreshold > 1 {
		return cerr.NewInvalidArgument(gridCellComponent, "anchor_overlap_threshold", "must be in [0,1]")
	}
	return nil
}

// ModulesPerColumnDefault mirrors spec §9's Grid default.
const ModulesPerColumnDefault = 3

// DefaultModuleScales returns the example scales spec §9 names for a
// 3-module column: 1.0, 1.7 and 2.4, evenly spaced 0.7 apart.
func DefaultModuleScales() []float64 {
	return []float64{1.0, 1.7, 2.4}
}

const displacementComponent = "displacement"

// DisplacementConfig represents configuration parameters for a displacement
// module sharing a grid module's lattice geometry.
type DisplacementConfig struct {
	ModuleSize int     `json:"module_size" validate:"required,gt=0"`
	BumpSigma  float64 `json:"bump_sigma" validate:"gt=0"`

	OverlapThreshold float64 `json:"overlap_threshold" validate:"gte=0,lte=1"`
	MaxAssociations  int     `json:"max_associations" validate:"gte=0"`
}

// DefaultDisplacementConfig returns the normative default.
func DefaultDisplacementConfig() *DisplacementConfig {
	return &DisplacementConfig{
		ModuleSize:       40,
		BumpSigma:        1.5,
		OverlapThreshold: 0.2,
		MaxAssociations:  10000,
	}
}

// Validate validates the displacement configuration.
func (c *DisplacementConfig) Validate() error {
	if c.ModuleSize <= 0 {
		return cerr.NewInvalidArgument(displacementComponent, "module_size", "must be positive")
	}
	if c.BumpSigma <= 0 {
		return cerr.NewInvalidArgument(displacementComponent, "bump_sigma", "must be positive")
	}
	if c.OverlapThreshold < 0 || c.OverlapThreshold > 1 {
		return cerr.NewInvalidArgument(displacementComponent, "overlap_threshold", "must be in [0,1]")
	}
	if c.MaxAssociations < 0 {
		return cerr.NewInvalidArgument(displacementComponent, "max_associations", "cannot be negative")
	}
	return nil
}

// DisplacementPrediction is one ranked prediction from predict_targets.
type DisplacementPrediction struct {
	Target       []int   `json:"target"`
	Displacement []int   `json:"displacement"`
	Confidence   float64 `json:"confidence"`
}
