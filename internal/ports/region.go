package ports

import (
	"context"

	"github.com/htm-project/neural-api/internal/domain/htm"
)

// RegionService defines the interface for operating a CorticalRegion: a set
// of columns voting toward a shared object representation (spec §5/§9).
type RegionService interface {
	// ProcessRegion runs one sensory timestep across the region, one
	// SensoryInput per column, and returns the voting result.
	ProcessRegion(ctx context.Context, sensory []*htm.SensoryInput, learn bool) (*htm.RegionOutput, error)

	// SettleRegion re-runs the voting loop with no new sensory input and no
	// column recompute. Apical feedback delivered since the last Process is
	// applied by the next ProcessRegion, not by SettleRegion.
	SettleRegion(ctx context.Context) (*htm.RegionOutput, error)

	// GetConfiguration returns the region's voting configuration plus every
	// column's own configuration.
	GetConfiguration(ctx context.Context) (*htm.RegionConfig, []*htm.CorticalColumnConfig, error)

	// UpdateConfiguration replaces the region, recreating every column.
	UpdateConfiguration(ctx context.Context, region *htm.RegionConfig, columns []*htm.CorticalColumnConfig) error

	// Reset clears every column's learned short-term state (not learned
	// permanences), matching Region.Reset.
	Reset(ctx context.Context) error

	// HealthCheck verifies the region can still process a timestep.
	HealthCheck(ctx context.Context) error

	// GetInstanceInfo returns instance metadata for status/health responses.
	GetInstanceInfo(ctx context.Context) map[string]interface{}
}
