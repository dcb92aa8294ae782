package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/htm-project/neural-api/internal/cortical/column"
	"github.com/htm-project/neural-api/internal/cortical/region"
	"github.com/htm-project/neural-api/internal/cortical/sdr"
	"github.com/htm-project/neural-api/internal/domain/htm"
	"github.com/htm-project/neural-api/internal/ports"
)

// regionService implements the RegionService interface.
type regionService struct {
	mu               sync.RWMutex
	engine           *region.Region
	regionConfig     *htm.RegionConfig
	columnConfigs    []*htm.CorticalColumnConfig
	instanceID       string
	createdAt        time.Time
	lastProcessingAt time.Time
}

// NewRegionService creates a new region service from a region configuration
// and one CorticalColumnConfig per column.
func NewRegionService(regionConfig *htm.RegionConfig, columnConfigs []*htm.CorticalColumnConfig, instanceID string) (ports.RegionService, error) {
	if regionConfig == nil {
		regionConfig = htm.DefaultRegionConfig()
	}

	engine, err := buildRegion(regionConfig, columnConfigs)
	if err != nil {
		return nil, err
	}

	return &regionService{
		engine:        engine,
		regionConfig:  regionConfig,
		columnConfigs: columnConfigs,
		instanceID:    instanceID,
		createdAt:     time.Now(),
	}, nil
}

func buildRegion(regionConfig *htm.RegionConfig, columnConfigs []*htm.CorticalColumnConfig) (*region.Region, error) {
	if len(columnConfigs) == 0 {
		return nil, fmt.Errorf("at least one column configuration is required")
	}
	columns := make([]*column.Column, len(columnConfigs))
	for i, cfg := range columnConfigs {
		c, err := column.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create column %d: %w", i, err)
		}
		columns[i] = c
	}
	engine, err := region.New(regionConfig, columns)
	if err != nil {
		return nil, fmt.Errorf("failed to create region: %w", err)
	}
	return engine, nil
}

// ProcessRegion runs one sensory timestep across the region.
func (s *regionService) ProcessRegion(ctx context.Context, sensory []*htm.SensoryInput, learn bool) (*htm.RegionOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	out, err := s.engine.Process(sensory, learn)
	if err != nil {
		return nil, fmt.Errorf("region processing failed: %w", err)
	}
	s.lastProcessingAt = time.Now()
	return out, nil
}

// SettleRegion re-runs the voting loop with no new sensory input.
func (s *regionService) SettleRegion(ctx context.Context) (*htm.RegionOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	out, err := s.engine.Settle()
	if err != nil {
		return nil, fmt.Errorf("region settling failed: %w", err)
	}
	s.lastProcessingAt = time.Now()
	return out, nil
}

// GetConfiguration returns the region's voting configuration plus every
// column's own configuration.
func (s *regionService) GetConfiguration(ctx context.Context) (*htm.RegionConfig, []*htm.CorticalColumnConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	regionCfg := *s.regionConfig
	columnCfgs := make([]*htm.CorticalColumnConfig, len(s.columnConfigs))
	copy(columnCfgs, s.columnConfigs)
	return &regionCfg, columnCfgs, nil
}

// UpdateConfiguration replaces the region, recreating every column.
func (s *regionService) UpdateConfiguration(ctx context.Context, regionConfig *htm.RegionConfig, columnConfigs []*htm.CorticalColumnConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if regionConfig == nil {
		return fmt.Errorf("region configuration cannot be nil")
	}

	engine, err := buildRegion(regionConfig, columnConfigs)
	if err != nil {
		return err
	}

	s.engine = engine
	s.regionConfig = regionConfig
	s.columnConfigs = columnConfigs
	return nil
}

// Reset clears every column's learned short-term state.
func (s *regionService) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine.Reset()
	return nil
}

// HealthCheck verifies the region can still process a timestep.
func (s *regionService) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.engine == nil {
		return fmt.Errorf("region engine is not initialized")
	}

	sensory := make([]*htm.SensoryInput, len(s.columnConfigs))
	for i, cfg := range s.columnConfigs {
		feature, err := sdr.NewSDR(cfg.SpatialPooler.InputWidth, []int{0})
		if err != nil {
			return fmt.Errorf("health check feature construction failed: %w", err)
		}
		sensory[i] = &htm.SensoryInput{Feature: feature}
	}

	if _, err := s.engine.Process(sensory, false); err != nil {
		return fmt.Errorf("health check processing failed: %w", err)
	}
	return nil
}

// GetInstanceInfo returns instance metadata for status/health responses.
func (s *regionService) GetInstanceInfo(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"instance_id":        s.instanceID,
		"created_at":         s.createdAt,
		"last_processing_at": s.lastProcessingAt,
		"uptime_seconds":     time.Since(s.createdAt).Seconds(),
		"column_count":       len(s.columnConfigs),
		"vote_threshold":     s.regionConfig.VoteThreshold,
	}
}
