// Package grid implements HTM grid cell modules and the displacement
// module they support: hexagonal periodic location coding, path
// integration, landmark anchoring, and structural (src,displacement,tgt)
// prediction.
package grid

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/htm-project/neural-api/internal/cortical/cerr"
	"github.com/htm-project/neural-api/internal/cortical/sdr"
	"github.com/htm-project/neural-api/internal/domain/htm"
)

const component = "grid_cell"

type anchorEntry struct {
	pattern *sdr.SDR
	q, r    float64
}

// Module is one hexagonal grid cell module: a continuous toroidal axial
// position, path integration with rotation and noise, and landmark
// anchoring.
type Module struct {
	config *htm.GridCellConfig

	q, r float64

	cosTheta, sinTheta float64

	anchors []anchorEntry

	rng *rand.Rand
}

// NewModule allocates a grid cell module at the object origin (0,0).
func NewModule(config *htm.GridCellConfig) (*Module, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Module{
		config:   config,
		cosTheta: math.Cos(config.Orientation),
		sinTheta: math.Sin(config.Orientation),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// GetConfiguration returns a copy of the active configuration.
func (m *Module) GetConfiguration() *htm.GridCellConfig {
	c := *m.config
	return &c
}

func wrap(v float64, size int) float64 {
	s := float64(size)
	v = math.Mod(v, s)
	if v < 0 {
		v += s
	}
	return v
}

// wrappedDelta returns the shortest signed difference a-b on a torus of the
// given size, in (-size/2, size/2].
func wrappedDelta(a, b float64, size int) float64 {
	s := float64(size)
	d := math.Mod(a-b, s)
	if d > s/2 {
		d -= s
	} else if d < -s/2 {
		d += s
	}
	return d
}

// Move performs one path-integration step: rotate the input displacement
// into the module's frame, scale, add Gaussian noise, project to axial
// coordinates, and wrap toroidally (spec §4.6 move steps 1-4).
func (m *Module) Move(dx, dy float64) {
	xPrime := dx*m.cosTheta + dy*m.sinTheta
	yPrime := -dx*m.sinTheta + dy*m.cosTheta

	xPrime /= m.config.Scale
	yPrime /= m.config.Scale

	if m.config.PathIntegrationNoise > 0 {
		xPrime += m.rng.NormFloat64() * m.config.PathIntegrationNoise
		yPrime += m.rng.NormFloat64() * m.config.PathIntegrationNoise
	}

	dq, dr := cartesianToAxial(xPrime, yPrime)

	m.q = wrap(m.q+dq, m.config.ModuleSize)
	m.r = wrap(m.r+dr, m.config.ModuleSize)
}

// cartesianToAxial converts a pointy-top hex cartesian offset to axial
// coordinates (redblobgames' standard conversion).
func cartesianToAxial(x, y float64) (float64, float64) {
	q := (2.0 / 3.0) * x
	r := (-1.0/3.0)*x + (math.Sqrt(3)/3.0)*y
	return q, r
}

// hexDistanceSquared computes the squared hex distance in axial coordinates
// per spec §4.2: d² = 3(dq² + dq·dr + dr²), using toroidally-wrapped deltas.
func (m *Module) hexDistanceSquared(q1, r1, q2, r2 float64) float64 {
	dq := wrappedDelta(q1, q2, m.config.ModuleSize)
	dr := wrappedDelta(r1, r2, m.config.ModuleSize)
	return 3 * (dq*dq + dq*dr + dr*dr)
}

type cellActivation struct {
	index int
	value float64
}

// CurrentLocation returns the module's current position as a Gaussian-bump
// SDR over the module_size x module_size lattice.
func (m *Module) CurrentLocation() (*sdr.SDR, error) {
	return m.locationSDRAt(m.q, m.r)
}

func (m *Module) locationSDRAt(q, r float64) (*sdr.SDR, error) {
	size := m.config.ModuleSize
	activations := make([]cellActivation, 0, size*size)
	twoSigmaSq := 2 * m.config.BumpSigma * m.config.BumpSigma

	for qi := 0; qi < size; qi++ {
		for ri := 0; ri < size; ri++ {
			d2 := m.hexDistanceSquared(float64(qi), float64(ri), q, r)
			activation := math.Exp(-d2 / twoSigmaSq)
			activations = append(activations, cellActivation{index: qi*size + ri, value: activation})
		}
	}

	sort.SliceStable(activations, func(i, j int) bool {
		return activations[i].value > activations[j].value
	})

	n := m.config.ActiveCount
	if n > len(activations) {
		n = len(activations)
	}
	active := make([]int, n)
	for i := 0; i < n; i++ {
		active[i] = activations[i].index
	}
	sort.Ints(active)

	return sdr.NewSDR(size*size, active)
}

// Anchor snaps the module's position to a previously-learned landmark if
// sensory overlaps it above threshold, otherwise learns a new landmark at
// the current position. Returns true iff an existing landmark was matched.
func (m *Module) Anchor(sensory *sdr.SDR) (bool, error) {
	if sensory == nil {
		return false, cerr.NewInvalidArgument(component, "sensory", "cannot be nil")
	}

	bestRatio := -1.0
	bestIdx := -1
	for i, entry := range m.anchors {
		ratio := sensory.OverlapRatio(entry.pattern)
		if ratio > bestRatio {
			bestRatio = ratio
			bestIdx = i
		}
	}

	if bestIdx >= 0 && bestRatio >= m.config.AnchorOverlapThreshold {
		m.q = m.anchors[bestIdx].q
		m.r = m.anchors[bestIdx].r
		return true, nil
	}

	m.anchors = append(m.anchors, anchorEntry{pattern: sensory.Clone(), q: m.q, r: m.r})
	return false, nil
}

// Reset returns the module to the object origin. Anchor memory is cleared
// only if the configuration disables PreserveAnchorMemory.
func (m *Module) Reset() {
	m.q, m.r = 0, 0
	if !m.config.PreserveAnchorMemory {
		m.anchors = nil
	}
}

// Position returns the module's current continuous axial position.
func (m *Module) Position() (float64, float64) {
	return m.q, m.r
}
