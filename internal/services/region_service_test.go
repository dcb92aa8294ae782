package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htm-project/neural-api/internal/cortical/sdr"
	"github.com/htm-project/neural-api/internal/domain/htm"
)

func newTestRegionService(t *testing.T) *regionService {
	t.Helper()
	svc, err := NewRegionService(
		htm.DefaultRegionConfig(),
		[]*htm.CorticalColumnConfig{htm.DefaultCorticalColumnConfig()},
		"test-region",
	)
	require.NoError(t, err)
	impl, ok := svc.(*regionService)
	require.True(t, ok)
	return impl
}

func testSensory(t *testing.T, width int) []*htm.SensoryInput {
	t.Helper()
	feature, err := sdr.NewSDR(width, []int{1, 3, 5, 7, 9})
	require.NoError(t, err)
	return []*htm.SensoryInput{{Feature: feature}}
}

func TestNewRegionServiceRejectsEmptyColumnConfigs(t *testing.T) {
	_, err := NewRegionService(htm.DefaultRegionConfig(), nil, "test")
	assert.Error(t, err)
}

func TestProcessRegionReturnsVotingResult(t *testing.T) {
	svc := newTestRegionService(t)
	cfg := htm.DefaultCorticalColumnConfig()

	out, err := svc.ProcessRegion(context.Background(), testSensory(t, cfg.SpatialPooler.InputWidth), true)
	require.NoError(t, err)
	assert.Len(t, out.ColumnOutputs, 1)
}

func TestSettleRegionRunsAfterProcess(t *testing.T) {
	svc := newTestRegionService(t)
	cfg := htm.DefaultCorticalColumnConfig()

	_, err := svc.ProcessRegion(context.Background(), testSensory(t, cfg.SpatialPooler.InputWidth), true)
	require.NoError(t, err)

	out, err := svc.SettleRegion(context.Background())
	require.NoError(t, err)
	assert.Len(t, out.ColumnOutputs, 1)
}

func TestGetConfigurationReturnsIndependentCopy(t *testing.T) {
	svc := newTestRegionService(t)

	regionCfg, columnCfgs, err := svc.GetConfiguration(context.Background())
	require.NoError(t, err)
	require.Len(t, columnCfgs, 1)

	regionCfg.VoteThreshold = 0.99
	again, _, err := svc.GetConfiguration(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, 0.99, again.VoteThreshold)
}

func TestUpdateConfigurationRejectsNilRegionConfig(t *testing.T) {
	svc := newTestRegionService(t)
	err := svc.UpdateConfiguration(context.Background(), nil, []*htm.CorticalColumnConfig{htm.DefaultCorticalColumnConfig()})
	assert.Error(t, err)
}

func TestUpdateConfigurationRebuildsEngine(t *testing.T) {
	svc := newTestRegionService(t)
	newRegionCfg := htm.DefaultRegionConfig()
	newRegionCfg.MaxVotingIterations = 3

	err := svc.UpdateConfiguration(context.Background(), newRegionCfg, []*htm.CorticalColumnConfig{htm.DefaultCorticalColumnConfig()})
	require.NoError(t, err)

	regionCfg, _, err := svc.GetConfiguration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, regionCfg.MaxVotingIterations)
}

func TestHealthCheckPassesWithDefaultConfiguration(t *testing.T) {
	svc := newTestRegionService(t)
	assert.NoError(t, svc.HealthCheck(context.Background()))
}

func TestResetDoesNotError(t *testing.T) {
	svc := newTestRegionService(t)
	cfg := htm.DefaultCorticalColumnConfig()

	_, err := svc.ProcessRegion(context.Background(), testSensory(t, cfg.SpatialPooler.InputWidth), true)
	require.NoError(t, err)

	assert.NoError(t, svc.Reset(context.Background()))
}
