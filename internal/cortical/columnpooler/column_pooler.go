// Package columnpooler implements the HTM Column Pooler object layer: a
// stable sparse representation that persists across repeated observations
// of the same object via born-connected proximal synapses, distal
// self-reinforcement, and lateral-vote narrowing against peer columns.
package columnpooler

import (
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/htm-project/neural-api/internal/cortical/cerr"
	"github.com/htm-project/neural-api/internal/cortical/sdr"
	"github.com/htm-project/neural-api/internal/domain/htm"
)

const component = "column_pooler"

// ColumnPooler holds the dense proximal and internal-distal permanence
// matrices (see SPEC_FULL.md Open Question OQ-1) plus per-peer lateral
// permanence matrices grown lazily as peers are observed.
type ColumnPooler struct {
	config *htm.ColumnPoolerConfig

	proximalPermanence *mat.Dense // [cellCount x feedforwardWidth]
	proximalPotential  *mat.Dense // [cellCount x feedforwardWidth], 0/1 grown-synapse mask

	internalDistalPermanence *mat.Dense // [cellCount x cellCount]
	internalDistalPotential  *mat.Dense

	lateralPermanence map[int]*mat.Dense
	lateralPotential  map[int]*mat.Dense

	activeCells     []bool
	prevActiveCells []bool

	rng *rand.Rand
}

// NewColumnPooler allocates a column pooler with empty proximal/distal
// permanence matrices.
func NewColumnPooler(config *htm.ColumnPoolerConfig) (*ColumnPooler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ColumnPooler{
		config:                   config,
		proximalPermanence:       mat.NewDense(config.CellCount, config.FeedforwardWidth, nil),
		proximalPotential:        mat.NewDense(config.CellCount, config.FeedforwardWidth, nil),
		internalDistalPermanence: mat.NewDense(config.CellCount, config.CellCount, nil),
		internalDistalPotential:  mat.NewDense(config.CellCount, config.CellCount, nil),
		lateralPermanence:        make(map[int]*mat.Dense),
		lateralPotential:         make(map[int]*mat.Dense),
		activeCells:              make([]bool, config.CellCount),
		prevActiveCells:          make([]bool, config.CellCount),
		rng:                      rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// GetConfiguration returns a copy of the active configuration.
func (cp *ColumnPooler) GetConfiguration() *htm.ColumnPoolerConfig {
	c := *cp.config
	return &c
}

// Reset clears active-cell state (both current and previous), per OQ-3:
// inertia must not survive an object reset.
func (cp *ColumnPooler) Reset() {
	for i := range cp.activeCells {
		cp.activeCells[i] = false
		cp.prevActiveCells[i] = false
	}
}

func indices(bits []bool) []int {
	out := make([]int, 0)
	for i, b := range bits {
		if b {
			out = append(out, i)
		}
	}
	return out
}

// proximalOverlap returns, for each cell, the number of connected proximal
// synapses whose presynaptic source is active in ff.
func (cp *ColumnPooler) proximalOverlap(ff *sdr.SDR) []int {
	overlap := make([]int, cp.config.CellCount)
	for _, bit := range ff.ActiveBits {
		for cell := 0; cell < cp.config.CellCount; cell++ {
			if cp.proximalPotential.At(cell, bit) > 0 && cp.proximalPermanence.At(cell, bit) >= cp.config.ConnectedProximal {
				overlap[cell]++
			}
		}
	}
	return overlap
}

// activeLateralSegmentCount returns, per cell, the count of active
// internal-distal plus peer lateral-distal bundles (spec step 2).
func (cp *ColumnPooler) activeLateralSegmentCount(prevActive *sdr.SDR, peerActiveSets map[int]*sdr.SDR) []int {
	counts := make([]int, cp.config.CellCount)

	internalActivity := cp.bundleActivity(cp.internalDistalPermanence, cp.internalDistalPotential, prevActive)
	for cell, a := range internalActivity {
		if a >= cp.config.DistalActivationThreshold {
			counts[cell]++
		}
	}

	for peerIdx, peerActive := range peerActiveSets {
		perm, ok := cp.lateralPermanence[peerIdx]
		if !ok {
			continue
		}
		pot := cp.lateralPotential[peerIdx]
		activity := cp.bundleActivity(perm, pot, peerActive)
		for cell, a := range activity {
			if a >= cp.config.DistalActivationThreshold {
				counts[cell]++
			}
		}
	}
	return counts
}

// bundleActivity counts, per cell, connected synapses active in against.
// Spec §6 defines a single connected-permanence threshold for the column
// pooler (connected_proximal); it doubles as the distal connected threshold
// since born-connected synapses start above it regardless of bundle type.
func (cp *ColumnPooler) bundleActivity(perm, pot *mat.Dense, against *sdr.SDR) []int {
	activity := make([]int, cp.config.CellCount)
	for _, bit := range against.ActiveBits {
		if bit < 0 || bit >= pot.RawMatrix().Cols {
			continue
		}
		for cell := 0; cell < cp.config.CellCount; cell++ {
			if pot.At(cell, bit) > 0 && perm.At(cell, bit) >= cp.config.ConnectedProximal {
				activity[cell]++
			}
		}
	}
	return activity
}

// Compute runs one column pooler step. lateralInputs is keyed by stable peer
// index; apical may be nil.
func (cp *ColumnPooler) Compute(feedforward, growthCandidates *sdr.SDR, lateralInputs map[int]*sdr.SDR, apical *sdr.SDR, learn bool) (*htm.ColumnPoolerResult, error) {
	if feedforward == nil {
		return nil, cerr.NewInvalidArgument(component, "feedforward", "cannot be nil")
	}
	if feedforward.Width != cp.config.FeedforwardWidth {
		return nil, cerr.NewShapeMismatch(component, "feedforward width does not match configured feedforward_width")
	}

	// prev_active and active are shifted to the same value at the end of
	// every call (spec step 5), so the state most recently written to either
	// field is this step's "previous" activation.
	prevActiveSDR, err := sliceToSDR(cp.activeCells)
	if err != nil {
		return nil, err
	}

	overlap := cp.proximalOverlap(feedforward)
	ffSupported := make([]bool, cp.config.CellCount)
	for cell, o := range overlap {
		ffSupported[cell] = o >= cp.config.MinThresholdProximal
	}

	lateralCount := cp.activeLateralSegmentCount(prevActiveSDR, lateralInputs)

	var apicalSupported []bool
	if apical != nil {
		apicalSupported = make([]bool, cp.config.CellCount)
		activity := cp.bundleActivity(cp.internalDistalPermanence, cp.internalDistalPotential, apical)
		for cell, a := range activity {
			apicalSupported[cell] = a >= cp.config.DistalActivationThreshold
		}
	}

	newActive := make([]bool, cp.config.CellCount)
	chosen := 0
	inertiaRetained := 0

	type candidate struct {
		cell      int
		lateral   int
		overlap   int
		isPrev    bool
		apicalHit bool
	}

	var p1, p2, p3 []candidate
	cap2 := int(float64(cp.config.SDRSize) * cp.config.InertiaFactor)

	for cell := 0; cell < cp.config.CellCount; cell++ {
		c := candidate{cell: cell, lateral: lateralCount[cell], overlap: overlap[cell], isPrev: cp.activeCells[cell]}
		if apicalSupported != nil {
			c.apicalHit = apicalSupported[cell]
		}
		switch {
		case ffSupported[cell] && lateralCount[cell] > 0:
			p1 = append(p1, c)
		case c.isPrev && (lateralCount[cell] > 0 || ffSupported[cell]):
			p2 = append(p2, c)
		case ffSupported[cell]:
			p3 = append(p3, c)
		}
	}

	rankKey := func(c candidate) (int, int) {
		score := c.lateral
		if c.apicalHit {
			score++
		}
		return score, c.overlap
	}
	sortCandidates(p1, rankKey)
	sortCandidates(p2, rankKey)
	sortCandidates(p3, rankKey)

	for _, c := range p1 {
		if chosen >= cp.config.SDRSize {
			break
		}
		if newActive[c.cell] {
			continue
		}
		newActive[c.cell] = true
		chosen++
	}
	p2Used := 0
	for _, c := range p2 {
		if chosen >= cp.config.SDRSize || p2Used >= cap2 {
			break
		}
		if newActive[c.cell] {
			continue
		}
		newActive[c.cell] = true
		chosen++
		p2Used++
		inertiaRetained++
	}
	for _, c := range p3 {
		if chosen >= cp.config.SDRSize {
			break
		}
		if newActive[c.cell] {
			continue
		}
		newActive[c.cell] = true
		chosen++
	}

	isNovel := chosen == 0
	if chosen < cp.config.SDRSize {
		remaining := cp.config.SDRSize - chosen
		pool := make([]int, 0, cp.config.CellCount)
		for cell := 0; cell < cp.config.CellCount; cell++ {
			if !newActive[cell] {
				pool = append(pool, cell)
			}
		}
		for _, cell := range sampleN(cp.rng, pool, remaining) {
			newActive[cell] = true
			chosen++
		}
	}

	if learn {
		cp.learn(newActive, feedforward, growthCandidates, prevActiveSDR, lateralInputs)
	}

	overlapPrev := prevActiveSDR.Overlap(mustSDR(sliceToSDR(newActive)))

	cp.prevActiveCells = newActive
	cp.activeCells = newActive

	return &htm.ColumnPoolerResult{
		Representation:       indices(newActive),
		OverlapPrev:          overlapPrev,
		FeedforwardActivated: countTrue(ffSupported),
		InertiaRetained:      inertiaRetained,
		IsNovel:              isNovel,
	}, nil
}

func (cp *ColumnPooler) learn(newActive []bool, feedforward, growthCandidates *sdr.SDR, prevActive *sdr.SDR, lateralInputs map[int]*sdr.SDR) {
	growth := growthCandidates
	if growth == nil {
		growth = feedforward
	}
	growthSet := make(map[int]bool, len(growth.ActiveBits))
	for _, b := range growth.ActiveBits {
		growthSet[b] = true
	}

	for cell, active := range newActive {
		if !active {
			continue
		}
		cp.adaptProximal(cell, feedforward, growthSet)
		cp.adaptDistal(cp.internalDistalPermanence, cp.internalDistalPotential, cell, prevActive)
		for peerIdx, peerActive := range lateralInputs {
			cp.ensurePeerMatrices(peerIdx, peerActive.Width)
			cp.adaptDistal(cp.lateralPermanence[peerIdx], cp.lateralPotential[peerIdx], cell, peerActive)
		}
	}
}

func (cp *ColumnPooler) ensurePeerMatrices(peerIdx, width int) {
	if _, ok := cp.lateralPermanence[peerIdx]; ok {
		return
	}
	cp.lateralPermanence[peerIdx] = mat.NewDense(cp.config.CellCount, width, nil)
	cp.lateralPotential[peerIdx] = mat.NewDense(cp.config.CellCount, width, nil)
}

func (cp *ColumnPooler) adaptProximal(cell int, feedforward *sdr.SDR, growthSet map[int]bool) {
	for _, bit := range feedforward.ActiveBits {
		if cp.proximalPotential.At(cell, bit) == 0 {
			continue
		}
		if growthSet[bit] {
			cp.proximalPermanence.Set(cell, bit, clamp(cp.proximalPermanence.At(cell, bit)+cp.config.ProximalIncrement))
		} else {
			cp.proximalPermanence.Set(cell, bit, clamp(cp.proximalPermanence.At(cell, bit)-cp.config.ProximalDecrement))
		}
	}

	candidates := make([]int, 0)
	for _, bit := range feedforward.ActiveBits {
		if growthSet[bit] && cp.proximalPotential.At(cell, bit) == 0 {
			candidates = append(candidates, bit)
		}
	}
	for _, bit := range sampleN(cp.rng, candidates, cp.config.SampleSizeProximal) {
		cp.proximalPotential.Set(cell, bit, 1)
		cp.proximalPermanence.Set(cell, bit, cp.config.InitialProximalPermanence)
	}
}

func (cp *ColumnPooler) adaptDistal(perm, pot *mat.Dense, cell int, against *sdr.SDR) {
	if perm == nil || against == nil {
		return
	}
	for _, bit := range against.ActiveBits {
		if bit >= pot.RawMatrix().Cols {
			continue
		}
		if pot.At(cell, bit) == 0 {
			pot.Set(cell, bit, 1)
			perm.Set(cell, bit, cp.config.InitialDistalPermanence)
		}
	}
}

// ApplyLateralNarrowing keeps only currently-active cells supported by at
// least ceil(N_peers * agreement_threshold) peers. No feedforward
// reprocessing, no learning.
func (cp *ColumnPooler) ApplyLateralNarrowing(peerActiveSets map[int]*sdr.SDR) (*htm.ColumnPoolerResult, error) {
	nPeers := len(peerActiveSets)
	required := int(ceilFloat(float64(nPeers) * cp.config.AgreementThreshold))

	supportCount := make([]int, cp.config.CellCount)
	for peerIdx, peerActive := range peerActiveSets {
		perm, ok := cp.lateralPermanence[peerIdx]
		if !ok {
			continue
		}
		pot := cp.lateralPotential[peerIdx]
		activity := cp.bundleActivity(perm, pot, peerActive)
		for cell, a := range activity {
			if a >= cp.config.DistalActivationThreshold {
				supportCount[cell]++
			}
		}
	}

	type ranked struct {
		cell    int
		support int
	}
	var survivors []ranked
	for cell := range cp.activeCells {
		if !cp.activeCells[cell] {
			continue
		}
		if supportCount[cell] >= required {
			survivors = append(survivors, ranked{cell, supportCount[cell]})
		}
	}

	if len(survivors) < cp.config.MinNarrowedFloor {
		var allActive []ranked
		for cell := range cp.activeCells {
			if cp.activeCells[cell] {
				allActive = append(allActive, ranked{cell, supportCount[cell]})
			}
		}
		sort.SliceStable(allActive, func(i, j int) bool {
			return allActive[i].support > allActive[j].support
		})
		floor := cp.config.MinNarrowedFloor
		if floor > len(allActive) {
			floor = len(allActive)
		}
		survivors = allActive[:floor]
	}

	newActive := make([]bool, cp.config.CellCount)
	for _, r := range survivors {
		newActive[r.cell] = true
	}
	cp.prevActiveCells = newActive
	cp.activeCells = newActive

	return &htm.ColumnPoolerResult{
		Representation: indices(newActive),
	}, nil
}
