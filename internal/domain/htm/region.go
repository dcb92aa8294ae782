package htm

import "github.com/htm-project/neural-api/internal/cortical/cerr"

const regionComponent = "region"

// RegionConfig configures a CorticalRegion's voting loop. Field names and
// defaults mirror spec §6/§9.
type RegionConfig struct {
	VoteThreshold        float64 `json:"vote_threshold" validate:"gte=0,lte=1"`
	ConvergenceThreshold float64 `json:"convergence_threshold" validate:"gte=0,lte=1"`
	MaxVotingIterations  int     `json:"max_voting_iterations" validate:"required,gt=0"`
}

// DefaultRegionConfig returns the normative configuration from §6.
func DefaultRegionConfig() *RegionConfig {
	return &RegionConfig{
		VoteThreshold:        0.3,
		ConvergenceThreshold: 0.7,
		MaxVotingIterations:  10,
	}
}

// Validate validates the region configuration.
func (c *RegionConfig) Validate() error {
	if c.VoteThreshold < 0 || c.VoteThreshold > 1 {
		return cerr.NewInvalidArgument(regionComponent, "vote_threshold", "must be in [0,1]")
	}
	if c.ConvergenceThreshold < 0 || c.ConvergenceThreshold > 1 {
		return cerr.NewInvalidArgument(regionComponent, "convergence_threshold", "must be in [0,1]")
	}
	if c.MaxVotingIterations <= 0 {
		return cerr.NewInvalidArgument(regionComponent, "max_voting_iterations", "must be positive")
	}
	return nil
}

// RegionOutput is CorticalRegion::process/settle's result: every column's
// own output, the cross-column consensus, and whether voting converged.
type RegionOutput struct {
	ColumnOutputs    []*ColumnOutput `json:"column_outputs"`
	Consensus        []int           `json:"consensus"`
	Converged        bool            `json:"converged"`
	VotingIterations int             `json:"voting_iterations"`
	MeanMatchScore   float64         `json:"mean_match_score"`
}

const hierarchyComponent = "hierarchy"

// HierarchyConfig configures a Neocortex's iterative settling across levels.
type HierarchyConfig struct {
	MaxSettlingIterations int `json:"max_settling_iterations" validate:"required,gt=0"`
}

// DefaultHierarchyConfig returns the normative configuration from §6/§9.
func DefaultHierarchyConfig() *HierarchyConfig {
	return &HierarchyConfig{MaxSettlingIterations: 5}
}

// Validate validates the hierarchy configuration.
func (c *HierarchyConfig) Validate() error {
	if c.MaxSettlingIterations <= 0 {
		return cerr.NewInvalidArgument(hierarchyComponent, "max_settling_iterations", "must be positive")
	}
	return nil
}

// NeocortexOutput is Neocortex::process's result: every level's output in
// bottom-up order, plus whether all levels converged before the iteration
// budget ran out.
type NeocortexOutput struct {
	Levels            []*RegionOutput `json:"levels"`
	AllConverged      bool            `json:"all_converged"`
	SettlingIterations int            `json:"settling_iterations"`
}
