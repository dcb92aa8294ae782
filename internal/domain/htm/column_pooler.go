package htm

import "github.com/htm-project/neural-api/internal/cortical/cerr"

const columnPoolerComponent = "column_pooler"

// ColumnPoolerConfig represents configuration parameters for the column
// pooler object layer. Field names and defaults mirror spec §6.
type ColumnPoolerConfig struct {
	CellCount        int `json:"cell_count" validate:"required,gt=0"`
	SDRSize          int `json:"sdr_size" validate:"required,gt=0"`
	FeedforwardWidth int `json:"feedforward_width" validate:"required,gt=0"`

	InitialProximalPermanence float64 `json:"initial_proximal_permanence" validate:"gt=0,lte=1"`
	ConnectedProximal         float64 `json:"connected_proximal" validate:"gt=0,lt=1"`
	ProximalIncrement         float64 `json:"proximal_increment" validate:"gte=0,lte=1"`
	ProximalDecrement         float64 `json:"proximal_decrement" validate:"gte=0,lte=1"`
	SampleSizeProximal        int     `json:"sample_size_proximal" validate:"gte=0"`
	MinThresholdProximal      int     `json:"min_threshold_proximal" validate:"gte=0"`

	InitialDistalPermanence   float64 `json:"initial_distal_permanence" validate:"gt=0,lte=1"`
	DistalActivationThreshold int    `json:"distal_activation_threshold" validate:"gte=0"`

	InertiaFactor float64 `json:"inertia_factor" validate:"gte=0,lte=1"`

	AgreementThreshold float64 `json:"agreement_threshold" validate:"gte=0,lte=1"`
	MinNarrowedFloor   int     `json:"min_narrowed_floor" validate:"gte=0"`
}

// DefaultColumnPoolerConfig returns the normative configuration from §6.
func DefaultColumnPoolerConfig() *ColumnPoolerConfig {
	return &ColumnPoolerConfig{
		CellCount:                 4096,
		SDRSize:                   40,
		FeedforwardWidth:          2048,
		InitialProximalPermanence: 0.6,
		ConnectedProximal:         0.5,
		ProximalIncrement:         0.1,
		ProximalDecrement:         0.001,
		SampleSizeProximal:        20,
		MinThresholdProximal:      10,
		InitialDistalPermanence:   0.6,
		DistalActivationThreshold: 13,
		InertiaFactor:             1.0,
		AgreementThreshold:        0.5,
		MinNarrowedFloor:          10,
	}
}

// Validate validates the column pooler configuration.
func (c *ColumnPoolerConfig) Validate() error {
	if c.CellCount <= 0 {
		return cerr.NewInvalidArgument(columnPoolerComponent, "cell_count", "must be positive")
	}
	if c.SDRSize <= 0 {
		return cerr.NewInvalidArgument(columnPoolerComponent, "sdr_size", "must be positive")
	}
	if c.SDRSize > c.CellCount {
		return cerr.NewInvalidArgument(columnPoolerComponent, "sdr_size", "cannot exceed cell_count")
	}
	if c.FeedforwardWidth <= 0 {
		return cerr.NewInvalidArgument(columnPoolerComponent, "feedforward_width", "must be positive")
	}
	if c.InitialProximalPermanence <= 0 || c.InitialProximalPermanence > 1 {
		return cerr.NewInvalidArgument(columnPoolerComponent, "initial_proximal_permanence", "must be in (0,1]")
	}
	if c.ConnectedProximal <= 0 || c.ConnectedProximal >= 1 {
		return cerr.NewInvalidArgument(columnPoolerComponent, "connected_proximal", "must be in (0,1)")
	}
	if c.InitialProximalPermanence <= c.ConnectedProximal {
		return cerr.NewInvalidArgument(columnPoolerComponent, "initial_proximal_permanence", "must exceed connected_proximal (born-connected)")
	}
	if c.ProximalIncrement < 0 || c.ProximalIncrement > 1 {
		return cerr.NewInvalidArgument(columnPoolerComponent, "proximal_increment", "must be in [0,1]")
	}
	if c.ProximalDecrement < 0 || c.ProximalDecrement > 1 {
		return cerr.NewInvalidArgument(columnPoolerComponent, "proximal_decrement", "must be in [0,1]")
	}
	if c.SampleSizeProximal < 0 {
		return cerr.NewInvalidArgument(columnPoolerComponent, "sample_size_proximal", "cannot be negative")
	}
	if c.MinThresholdProximal < 0 {
		return cerr.NewInvalidArgument(columnPoolerComponent, "min_threshold_proximal", "cannot be negative")
	}
	if c.InitialDistalPermanence <= 0 || c.InitialDistalPermanence > 1 {
		return cerr.NewInvalidArgument(columnPoolerComponent, "initial_distal_permanence", "must be in (0,1]")
	}
	if c.DistalActivationThreshold < 0 {
		return cerr.NewInvalidArgument(columnPoolerComponent, "distal_activation_threshold", "cannot be negative")
	}
	if c.InertiaFactor < 0 || c.InertiaFactor > 1 {
		return cerr.NewInvalidArgument(columnPoolerComponent, "inertia_factor", "must be in [0,1]")
	}
	if c.AgreementThreshold < 0 || c.AgreementThreshold > 1 {
		return cerr.NewInvalidArgument(columnPoolerComponent, "agreement_threshold", "must be in [0,1]")
	}
	if c.MinNarrowedFloor < 0 {
		return cerr.NewInvalidArgument(columnPoolerComponent, "min_narrowed_floor", "cannot be negative")
	}
	return nil
}

// ColumnPoolerResult is the per-call output of the column pooler, mirroring
// the `compute` contract in spec §6.
type ColumnPoolerResult struct {
	Representation       []int   `json:"representation"`
	OverlapPrev          int     `json:"overlap_prev"`
	FeedforwardActivated int     `json:"ff_activated"`
	InertiaRetained      int     `json:"inertia_retained"`
	IsNovel              bool    `json:"is_novel"`
}

