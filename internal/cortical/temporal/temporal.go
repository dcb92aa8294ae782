// Package temporal implements HTM Temporal Memory: per-step activation of
// specific cells within active columns, Hebbian learning against the
// previous timestep, and computation of the next predictive set. Distal
// segments drive column-level prediction; optional basal and apical inputs
// modulate which cell within a bursting column is chosen as winner.
package temporal

import (
	"math/rand"
	"time"

	"github.com/htm-project/neural-api/internal/cortical/cerr"
	"github.com/htm-project/neural-api/internal/cortical/sdr"
	"github.com/htm-project/neural-api/internal/cortical/segment"
	"github.com/htm-project/neural-api/internal/domain/htm"
)

const component = "temporal_memory"

// TemporalMemory holds per-cell distal/basal/apical segment managers plus
// the two-timestep activation state the compute cycle shadows each step.
type TemporalMemory struct {
	config *htm.TemporalMemoryConfig

	distal []*segment.Manager
	basal  []*segment.Manager
	apical []*segment.Manager

	activeCells     []bool
	winnerCells     []bool
	predictiveCells []bool

	prevBasalInput  *sdr.SDR
	prevApicalInput *sdr.SDR

	iteration uint64
	resetDone bool
	rng       *rand.Rand
}

// NewTemporalMemory allocates per-cell segment managers for every cell in
// config.ColumnCount * config.CellsPerColumn.
func NewTemporalMemory(config *htm.TemporalMemoryConfig) (*TemporalMemory, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	total := config.TotalCells()
	tm := &TemporalMemory{
		config:          config,
		distal:          make([]*segment.Manager, total),
		basal:           make([]*segment.Manager, total),
		apical:          make([]*segment.Manager, total),
		activeCells:     make([]bool, total),
		winnerCells:     make([]bool, total),
		predictiveCells: make([]bool, total),
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for i := 0; i < total; i++ {
		tm.distal[i] = segment.NewManager(i, config.MaxSegmentsPerCell, config.MaxSynapsesPerSegment)
		tm.basal[i] = segment.NewManager(i, config.MaxSegmentsPerCell, config.MaxSynapsesPerSegment)
		tm.apical[i] = segment.NewManager(i, config.MaxSegmentsPerCell, config.MaxSynapsesPerSegment)
	}
	return tm, nil
}

func (tm *TemporalMemory) totalCells() int { return tm.config.TotalCells() }

func (tm *TemporalMemory) columnOf(cell int) int { return cell / tm.config.CellsPerColumn }

// GetConfiguration returns a copy of the active configuration.
func (tm *TemporalMemory) GetConfiguration() *htm.TemporalMemoryConfig {
	c := *tm.config
	return &c
}

func sliceToSDR(bits []bool) (*sdr.SDR, error) {
	active := make([]int, 0)
	for i, b := range bits {
		if b {
			active = append(active, i)
		}
	}
	return sdr.NewSDR(len(bits), active)
}

func indicesOf(bits []bool) []int {
	out := make([]int, 0)
	for i, b := range bits {
		if b {
			out = append(out, i)
		}
	}
	return out
}

// cellScore caches, for one cell, whether it has an active distal/basal/
// apical segment and its best matching (non-necessarily-active) segment.
type cellScore struct {
	hasActive       bool
	activeSegments  []*segment.DendriteSegment
	bestMatching    *segment.DendriteSegment
	bestMatchingPot int
}

func scoreManagers(managers []*segment.Manager, against *sdr.SDR, activationThreshold, minThreshold int, connectedThreshold float64) []cellScore {
	scores := make([]cellScore, len(managers))
	for i, mgr := range managers {
		var active []*segment.DendriteSegment
		var bestMatch *segment.DendriteSegment
		bestPotential := -1
		for _, seg := range mgr.Segments {
			connected := seg.ComputeActivity(against, connectedThreshold)
			if connected >= activationThreshold {
				active = append(active, seg)
			}
			potential := seg.ComputePotentialActivity(against)
			if potential >= minThreshold && potential > bestPotential {
				bestMatch = seg
				bestPotential = potential
			}
		}
		scores[i] = cellScore{
			hasActive:       len(active) > 0,
			activeSegments:  active,
			bestMatching:    bestMatch,
			bestMatchingPot: bestPotential,
		}
	}
	return scores
}

// Reset clears activation state. Idempotent after the first call.
func (tm *TemporalMemory) Reset() {
	if tm.resetDone && !tm.anyActive() {
		return
	}
	for i := range tm.activeCells {
		tm.activeCells[i] = false
		tm.winnerCells[i] = false
		tm.predictiveCells[i] = false
	}
	tm.prevBasalInput = nil
	tm.prevApicalInput = nil
	tm.resetDone = true
}

func (tm *TemporalMemory) anyActive() bool {
	for _, b := range tm.activeCells {
		if b {
			return true
		}
	}
	return false
}

// Compute runs one temporal memory step. basalInput and apicalInput may be
// nil when the canonical distal-only pathway is used.
func (tm *TemporalMemory) Compute(activeColumns, basalInput, apicalInput *sdr.SDR, learn bool) (*htm.TemporalMemoryResult, error) {
	if activeColumns == nil {
		return nil, cerr.NewInvalidArgument(component, "active_columns", "cannot be nil")
	}
	if activeColumns.Width != tm.config.ColumnCount {
		return nil, cerr.NewShapeMismatch(component, "active columns width does not match configured column_count")
	}

	tm.resetDone = false
	tm.iteration++
	learn = learn && tm.config.LearningEnabled

	// Step 1: shadow previous state.
	prevActiveCells := tm.activeCells
	prevWinnerCells := tm.winnerCells
	prevPredictiveCells := tm.predictiveCells
	prevBasalInput := tm.prevBasalInput
	prevApicalInput := tm.prevApicalInput

	prevActiveSDR, err := sliceToSDR(prevActiveCells)
	if err != nil {
		return nil, err
	}
	prevWinnerIndices := indicesOf(prevWinnerCells)

	// Step 2: build segment caches against prev_active (and prev basal/apical).
	distalScores := scoreManagers(tm.distal, prevActiveSDR, tm.config.ActivationThreshold, tm.config.MinThreshold, tm.config.ConnectedThreshold)

	var basalScores, apicalScores []cellScore
	if basalInput != nil && prevBasalInput != nil {
		basalScores = scoreManagers(tm.basal, prevBasalInput, tm.config.ActivationThreshold, tm.config.MinThreshold, tm.config.ConnectedThreshold)
	}
	if apicalInput != nil && prevApicalInput != nil {
		apicalScores = scoreManagers(tm.apical, prevApicalInput, tm.config.ActivationThreshold, tm.config.MinThreshold, tm.config.ConnectedThreshold)
	}

	// Step 3: predicted cells/columns, driven by distal only.
	predictedColumns := make([]bool, tm.config.ColumnCount)
	for cell, score := range distalScores {
		if score.hasActive {
			predictedColumns[tm.columnOf(cell)] = true
		}
	}

	// Step 4: activate cells.
	newActive := make([]bool, tm.totalCells())
	newWinner := make([]bool, tm.totalCells())
	burstingColumns := 0
	predictedActiveColumns := 0
	activeColumnCount := 0

	for col := 0; col < tm.config.ColumnCount; col++ {
		if !activeColumns.IsActive(col) {
			continue
		}
		activeColumnCount++
		start := col * tm.config.CellsPerColumn
		end := start + tm.config.CellsPerColumn

		if predictedColumns[col] {
			predictedActiveColumns++
			for cell := start; cell < end; cell++ {
				if distalScores[cell].hasActive {
					newActive[cell] = true
					newWinner[cell] = true
				}
			}
			continue
		}

		burstingColumns++
		for cell := start; cell < end; cell++ {
			newActive[cell] = true
		}
		winner := tm.selectBurstWinner(start, end, distalScores, basalScores, apicalScores)
		newWinner[winner] = true
	}

	anomaly := 0.0
	if activeColumnCount > 0 {
		anomaly = 1.0 - float64(predictedActiveColumns)/float64(activeColumnCount)
	}

	// Step 6: learn.
	if learn {
		tm.learnOnWinners(newWinner, newActive, distalScores, prevActiveSDR, prevWinnerIndices)
		tm.punishIncorrectPredictions(prevPredictiveCells, activeColumns, distalScores, prevActiveSDR)
	}

	// Step 7: recompute predictive set against the new active cells.
	newActiveSDR, err := sliceToSDR(newActive)
	if err != nil {
		return nil, err
	}
	newDistalScores := scoreManagers(tm.distal, newActiveSDR, tm.config.ActivationThreshold, tm.config.MinThreshold, tm.config.ConnectedThreshold)
	newPredictive := make([]bool, tm.totalCells())
	for cell, score := range newDistalScores {
		newPredictive[cell] = score.hasActive
	}

	// Step 8: periodic maintenance.
	if tm.config.SegmentCleanupInterval > 0 && tm.iteration%uint64(tm.config.SegmentCleanupInterval) == 0 {
		tm.maintainAll()
	}

	tm.activeCells = newActive
	tm.winnerCells = newWinner
	tm.predictiveCells = newPredictive
	tm.prevBasalInput = basalInput
	tm.prevApicalInput = apicalInput

	return &htm.TemporalMemoryResult{
		ActiveCells:          indicesOf(newActive),
		WinnerCells:          indicesOf(newWinner),
		PredictedCells:       indicesOf(newPredictive),
		Anomaly:              anomaly,
		BurstingColumnCount:  burstingColumns,
		PredictedActiveCount: predictedActiveColumns,
	}, nil
}

// selectBurstWinner picks one cell in [start,end) per the four-tier
// winner-preference: best combined basal+apical score, then best matching
// distal activity, then fewest existing segments, ties by lowest index.
func (tm *TemporalMemory) selectBurstWinner(start, end int, distalScores, basalScores, apicalScores []cellScore) int {
	best := start
	bestModScore := -1
	bestMatchActivity := -1
	bestSegmentCount := -1

	for cell := start; cell < end; cell++ {
		modScore := 0
		if basalScores != nil && basalScores[cell].hasActive {
			modScore++
		}
		if apicalScores != nil && apicalScores[cell].hasActive {
			modScore++
		}
		matchActivity := distalScores[cell].bestMatchingPot
		segCount := len(tm.distal[cell].Segments)

		better := false
		switch {
		case modScore > bestModScore:
			better = true
		case modScore == bestModScore && matchActivity > bestMatchActivity:
			better = true
		case modScore == bestModScore && matchActivity == bestMatchActivity && (bestSegmentCount == -1 || segCount < bestSegmentCount):
			better = true
		}
		if better {
			best = cell
			bestModScore = modScore
			bestMatchActivity = matchActivity
			bestSegmentCount = segCount
		}
	}
	return best
}

func (tm *TemporalMemory) learnOnWinners(newWinner, newActive []bool, distalScores []cellScore, prevActiveSDR *sdr.SDR, prevWinnerIndices []int) {
	for cell, isWinner := range newWinner {
		if !isWinner {
			continue
		}
		score := distalScores[cell]
		if score.hasActive {
			// predicted winner: reinforce every active segment.
			for _, seg := range score.activeSegments {
				tm.reinforceAndGrow(seg, prevActiveSDR, prevWinnerIndices)
			}
			continue
		}
		// burst winner.
		if score.bestMatching != nil {
			tm.reinforceAndGrow(score.bestMatching, prevActiveSDR, prevWinnerIndices)
			continue
		}
		if len(prevWinnerIndices) == 0 {
			continue
		}
		newSeg := tm.distal[cell].CreateSegment(segment.Distal, tm.iteration)
		sample := tm.sampleIndices(prevWinnerIndices, tm.config.MaxNewSynapseCount)
		newSeg.AddSynapses(sample, tm.config.InitialPermanence, tm.iteration, tm.config.MaxSynapsesPerSegment)
	}
}

func (tm *TemporalMemory) reinforceAndGrow(seg *segment.DendriteSegment, prevActiveSDR *sdr.SDR, prevWinnerIndices []int) {
	seg.AdaptSynapses(prevActiveSDR, tm.config.PermanenceIncrement, tm.config.PermanenceDecrement)
	seg.LastActivated = tm.iteration

	connected := make(map[int]bool, len(seg.Synapses))
	for _, syn := range seg.Synapses {
		connected[syn.PresynapticIndex] = true
	}
	candidates := make([]int, 0, len(prevWinnerIndices))
	for _, idx := range prevWinnerIndices {
		if !connected[idx] {
			candidates = append(candidates, idx)
		}
	}
	nGrow := tm.config.MaxNewSynapseCount - len(seg.Synapses)
	if nGrow <= 0 || len(candidates) == 0 {
		return
	}
	sample := tm.sampleIndices(candidates, nGrow)
	seg.AddSynapses(sample, tm.config.InitialPermanence, tm.iteration, tm.config.MaxSynapsesPerSegment)
}

func (tm *TemporalMemory) sampleIndices(pool []int, n int) []int {
	if n <= 0 || len(pool) == 0 {
		return nil
	}
	if n >= len(pool) {
		out := make([]int, len(pool))
		copy(out, pool)
		return out
	}
	shuffled := make([]int, len(pool))
	copy(shuffled, pool)
	tm.rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:n]
}

func (tm *TemporalMemory) punishIncorrectPredictions(prevPredictiveCells []bool, activeColumns *sdr.SDR, distalScores []cellScore, prevActiveSDR *sdr.SDR) {
	for cell, wasPredicted := range prevPredictiveCells {
		if !wasPredicted {
			continue
		}
		col := tm.columnOf(cell)
		if activeColumns.IsActive(col) {
			continue
		}
		for _, seg := range distalScores[cell].activeSegments {
			seg.PunishSynapses(prevActiveSDR, tm.config.PredictedDecrement)
		}
	}
}

func (tm *TemporalMemory) maintainAll() {
	for i := 0; i < tm.totalCells(); i++ {
		tm.distal[i].Maintain(tm.config.PruneThreshold, tm.config.MinViableSynapses)
		tm.basal[i].Maintain(tm.config.PruneThreshold, tm.config.MinViableSynapses)
		tm.apical[i].Maintain(tm.config.PruneThreshold, tm.config.MinViableSynapses)
	}
}
