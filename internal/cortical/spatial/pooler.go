// Package spatial implements the HTM Spatial Pooler: competitive inhibition
// over proximal dendrites that converts a dense encoder output into a sparse
// active-column SDR at a stable target density.
package spatial

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/htm-project/neural-api/internal/cortical/sdr"
	"github.com/htm-project/neural-api/internal/domain/htm"
)

// SpatialPooler implements the HTM spatial pooler algorithm.
type SpatialPooler struct {
	config *htm.SpatialPoolerConfig

	// potential marks, per column, which input bits are in that column's
	// potential pool (the only bits its proximal permanences may ever cover).
	potential *mat.Dense // [columnCount x inputWidth], 0/1

	// permanences holds the proximal synapse permanence for every (column,
	// input) pair in the potential pool; entries outside the pool stay 0 and
	// are never touched by learning.
	permanences       *mat.Dense // [columnCount x inputWidth]
	connectedSynapses *mat.Dense // [columnCount x inputWidth] - binary connected matrix

	neighbors [][]int // precomputed local-inhibition neighborhoods, column-indexed

	activeDutyCycles  []float64
	overlapDutyCycles []float64
	boostFactors      []float64

	iterationNum   int64
	lastUpdateTime time.Time

	rng *rand.Rand

	metrics *htm.SpatialPoolerMetrics
}

const component = "spatial_pooler"
const minBoostFloor = 0.01

// NewSpatialPooler creates a new spatial pooler with the given configuration.
func NewSpatialPooler(config *htm.SpatialPoolerConfig) (*SpatialPooler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	sp := &SpatialPooler{
		config:            config,
		permanences:       mat.NewDense(config.ColumnCount, config.InputWidth, nil),
		connectedSynapses: mat.NewDense(config.ColumnCount, config.InputWidth, nil),
		activeDutyCycles:  make([]float64, config.ColumnCount),
		overlapDutyCycles: make([]float64, config.ColumnCount),
		boostFactors:      make([]float64, config.ColumnCount),
		iterationNum:      0,
		lastUpdateTime:    time.Now(),
		metrics:           htm.NewSpatialPoolerMetrics(),
	}

	if config.IsDeterministic() {
		sp.rng = rand.New(rand.NewSource(42)) // fixed seed for deterministic behavior
	} else {
		sp.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	if err := sp.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize spatial pooler: %w", err)
	}

	return sp, nil
}

// Process transforms encoder output into a normalized active-column SDR.
func (sp *SpatialPooler) Process(input *htm.PoolingInput) (*htm.PoolingResult, error) {
	startTime := time.Now()

	if err := input.Validate(); err != nil {
		sp.metrics.RecordError(htm.PoolingErrorInvalidInput)
		return nil, err
	}
	if input.EncoderOutput.Width != sp.config.InputWidth {
		sp.metrics.RecordError(htm.PoolingErrorInvalidInput)
		return nil, htm.NewPoolingErrorWithInput(htm.PoolingErrorInvalidInput,
			fmt.Sprintf("input width %d does not match configured input width %d", input.EncoderOutput.Width, sp.config.InputWidth),
			input.InputID)
	}

	inputVector := sp.createInputVector(input.EncoderOutput)

	// Phase 1: raw connected overlap, forced to zero below stimulus threshold.
	overlapScores := sp.calculateOverlap(inputVector)

	// Phase 2: boosting.
	boosted := make([]float64, len(overlapScores))
	for i, o := range overlapScores {
		boosted[i] = o * sp.boostFactors[i]
	}

	// Phase 3: inhibition.
	var activeColumns []int
	if sp.config.GlobalInhibition {
		activeColumns = sp.globalInhibition(boosted)
	} else {
		activeColumns = sp.localInhibition(boosted)
	}

	// Phase 4: learning.
	learningOccurred := false
	if input.LearningEnabled && sp.config.IsLearningEnabled() {
		sp.adaptSynapses(inputVector, activeColumns)
		learningOccurred = true
		sp.updateDutyCycles(activeColumns, overlapScores)
		sp.rescueDeadColumns()
	}

	outputSDR, err := sdr.NewSDR(sp.config.ColumnCount, activeColumns)
	if err != nil {
		sp.metrics.RecordError(htm.PoolingErrorProcessing)
		return nil, fmt.Errorf("output SDR creation failed: %w", err)
	}

	processingTime := time.Since(startTime).Milliseconds()
	avgOverlap := sp.calculateAverageOverlap(overlapScores, activeColumns)
	boostingApplied := input.LearningEnabled && sp.config.BoostStrength > 0

	result := &htm.PoolingResult{
		NormalizedSDR:    *outputSDR,
		InputID:          input.InputID,
		ProcessingTime:   processingTime,
		ActiveColumns:    activeColumns,
		AvgOverlap:       avgOverlap,
		SparsityLevel:    outputSDR.Sparsity,
		LearningOccurred: learningOccurred,
		BoostingApplied:  boostingApplied,
	}

	sp.metrics.RecordProcessing(processingTime, outputSDR.Sparsity, learningOccurred, boostingApplied)
	sp.iterationNum++

	return result, nil
}

// GetConfiguration returns a copy of the current configuration.
func (sp *SpatialPooler) GetConfiguration() *htm.SpatialPoolerConfig {
	configCopy := *sp.config
	return &configCopy
}

// GetMetrics returns a copy of current performance and behavioral metrics.
func (sp *SpatialPooler) GetMetrics() *htm.SpatialPoolerMetrics {
	metricsCopy := *sp.metrics
	return &metricsCopy
}

// UpdateConfiguration swaps in a new configuration for non-structural
// changes (learning rate, boosting, inhibition parameters). Input width and
// column count cannot change without recreating the pooler, since they
// determine the matrix dimensions already allocated.
func (sp *SpatialPooler) UpdateConfiguration(newConfig *htm.SpatialPoolerConfig) error {
	if err := newConfig.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if newConfig.InputWidth != sp.config.InputWidth {
		return fmt.Errorf("cannot change input width after initialization")
	}
	if newConfig.ColumnCount != sp.config.ColumnCount {
		return fmt.Errorf("cannot change column count after initialization")
	}
	sp.config = newConfig
	return nil
}

// ActiveDutyCycles exposes the per-column active duty cycle, primarily for
// tests asserting the warm-up testable property.
func (sp *SpatialPooler) ActiveDutyCycles() []float64 {
	out := make([]float64, len(sp.activeDutyCycles))
	copy(out, sp.activeDutyCycles)
	return out
}

// ResetMetrics discards accumulated processing/error counters without
// touching learned state (permanences, boost factors, duty cycles).
func (sp *SpatialPooler) ResetMetrics() {
	sp.metrics = htm.NewSpatialPoolerMetrics()
}

// IsHealthy reports whether the pooler's learned state is still internally
// consistent: every column must retain at least one connected proximal
// synapse, since a column with none can never activate again.
func (sp *SpatialPooler) IsHealthy() bool {
	if sp.connectedSynapses == nil {
		return false
	}
	rows, cols := sp.connectedSynapses.Dims()
	for r := 0; r < rows; r++ {
		connected := 0
		for c := 0; c < cols; c++ {
			if sp.connectedSynapses.At(r, c) > 0 {
				connected++
			}
		}
		if connected == 0 {
			return false
		}
	}
	return true
}

// GetDiagnostics returns a snapshot of internal state useful for debugging
// and the diagnostics HTTP endpoint.
func (sp *SpatialPooler) GetDiagnostics() map[string]interface{} {
	return map[string]interface{}{
		"iteration_num":     sp.iterationNum,
		"input_width":       sp.config.InputWidth,
		"column_count":      sp.config.ColumnCount,
		"global_inhibition": sp.config.GlobalInhibition,
		"mean_boost_factor": meanFloat64(sp.boostFactors),
		"mean_active_duty":  meanFloat64(sp.activeDutyCycles),
		"mean_overlap_duty": meanFloat64(sp.overlapDutyCycles),
		"last_update_time":  sp.lastUpdateTime,
		"healthy":           sp.IsHealthy(),
	}
}

func meanFloat64(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return stat.Mean(v, nil)
}

// initialize builds the potential pools and seeds permanences within them.
func (sp *SpatialPooler) initialize() error {
	rows, cols := sp.config.ColumnCount, sp.config.InputWidth
	sp.potential = mat.NewDense(rows, cols, nil)

	potentialSize := int(float64(2*sp.config.PotentialRadius+1) * sp.config.PotentialPct)
	if potentialSize < 1 {
		potentialSize = 1
	}

	for col := 0; col < rows; col++ {
		center := int(float64(col) * float64(cols) / float64(rows))
		candidates := sp.topographicNeighborhood(center, sp.config.PotentialRadius, cols)

		sp.rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })

		take := potentialSize
		if take > len(candidates) {
			take = len(candidates)
		}
		for _, input := range candidates[:take] {
			sp.potential.Set(col, input, 1.0)
			perm := sp.config.ConnectedThreshold + (sp.rng.Float64()-0.5)*0.2
			if perm < 0 {
				perm = 0
			}
			if perm > 1 {
				perm = 1
			}
			sp.permanences.Set(col, input, perm)
		}
	}

	sp.updateConnectedSynapses()

	for i := range sp.boostFactors {
		sp.boostFactors[i] = 1.0
	}

	sp.precomputeNeighborhoods()

	return nil
}

// topographicNeighborhood returns every input index within radius of center
// (wrapping toroidally, per spec §4.3's 1D wrap-around input space).
func (sp *SpatialPooler) topographicNeighborhood(center, radius, size int) []int {
	if radius <= 0 || radius*2+1 >= size {
		all := make([]int, size)
		for i := range all {
			all[i] = i
		}
		return all
	}
	out := make([]int, 0, 2*radius+1)
	for d := -radius; d <= radius; d++ {
		idx := ((center+d)%size + size) % size
		out = append(out, idx)
	}
	return out
}

// precomputeNeighborhoods computes the local-inhibition neighborhood for
// every column, reused across every Process call under local inhibition.
func (sp *SpatialPooler) precomputeNeighborhoods() {
	sp.neighbors = make([][]int, sp.config.ColumnCount)
	for col := range sp.neighbors {
		sp.neighbors[col] = sp.topographicNeighborhood(col, sp.config.InhibitionRadius, sp.config.ColumnCount)
	}
}

func (sp *SpatialPooler) createInputVector(encoderOutput htm.EncoderOutput) []float64 {
	inputVector := make([]float64, encoderOutput.Width)
	for _, bit := range encoderOutput.ActiveBits {
		inputVector[bit] = 1.0
	}
	return inputVector
}

// calculateOverlap computes connected-synapse overlap per column, forcing
// columns below stimulus_threshold to zero.
func (sp *SpatialPooler) calculateOverlap(inputVector []float64) []float64 {
	rows, cols := sp.connectedSynapses.Dims()
	overlapScores := make([]float64, rows)

	for col := 0; col < rows; col++ {
		overlap := 0.0
		for input := 0; input < cols; input++ {
			if sp.connectedSynapses.At(col, input) > 0 && inputVector[input] > 0 {
				overlap++
			}
		}
		if overlap < float64(sp.config.StimulusThreshold) {
			overlap = 0.0
		}
		overlapScores[col] = overlap
	}

	return overlapScores
}

// globalInhibition selects the top ceil(column_count*rho) boosted overlaps,
// tie-broken by random permutation in randomized mode or column index in
// deterministic mode.
func (sp *SpatialPooler) globalInhibition(boosted []float64) []int {
	target := sp.config.GetExpectedActiveColumns()

	type columnScore struct {
		column int
		score  float64
	}
	scores := make([]columnScore, len(boosted))
	for i, score := range boosted {
		scores[i] = columnScore{column: i, score: score}
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score == scores[j].score {
			if sp.config.IsDeterministic() {
				return scores[i].column < scores[j].column
			}
			return sp.rng.Float64() < 0.5
		}
		return scores[i].score > scores[j].score
	})

	active := make([]int, 0, target)
	for i := 0; i < len(scores) && len(active) < target; i++ {
		if scores[i].score > 0 {
			active = append(active, scores[i].column)
		}
	}

	sort.Ints(active)
	return active
}

// localInhibition activates column c iff fewer than ceil(|N(c)|*rho) of its
// neighbors have strictly greater boosted overlap. Ties resolve by
// neighborhood rank (index order), not randomness, per spec.
func (sp *SpatialPooler) localInhibition(boosted []float64) []int {
	active := make([]int, 0, sp.config.ColumnCount/10+1)

	for col := 0; col < sp.config.ColumnCount; col++ {
		if boosted[col] <= 0 {
			continue
		}
		neighborhood := sp.neighbors[col]
		density := sp.config.LocalAreaDensity
		if density <= 0 {
			density = sp.config.SparsityRatio
		}
		allowance := int(math.Ceil(density * float64(len(neighborhood))))
		if allowance < 1 {
			allowance = 1
		}

		greater := 0
		for _, n := range neighborhood {
			if n == col {
				continue
			}
			if boosted[n] > boosted[col] || (boosted[n] == boosted[col] && n < col) {
				greater++
			}
		}
		if greater < allowance {
			active = append(active, col)
		}
	}

	sort.Ints(active)
	return active
}

// adaptSynapses strengthens proximal permanences to active input bits and
// weakens the rest, restricted to each column's potential pool.
func (sp *SpatialPooler) adaptSynapses(inputVector []float64, activeColumns []int) {
	inc := sp.config.PermanenceIncrement
	dec := sp.config.PermanenceDecrement

	for _, col := range activeColumns {
		for input := 0; input < len(inputVector); input++ {
			if sp.potential.At(col, input) == 0 {
				continue
			}
			current := sp.permanences.At(col, input)
			var updated float64
			if inputVector[input] > 0 {
				updated = current + inc
			} else {
				updated = current - dec
			}
			if updated < 0 {
				updated = 0
			}
			if updated > 1 {
				updated = 1
			}
			sp.permanences.Set(col, input, updated)
		}
	}

	sp.updateConnectedSynapses()
}

func (sp *SpatialPooler) updateConnectedSynapses() {
	rows, cols := sp.permanences.Dims()
	threshold := sp.config.ConnectedThreshold

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			if sp.permanences.At(row, col) >= threshold {
				sp.connectedSynapses.Set(row, col, 1.0)
			} else {
				sp.connectedSynapses.Set(row, col, 0.0)
			}
		}
	}
}

// updateDutyCycles applies an exponential moving average over
// duty_cycle_period steps to each column's active and overlap duty cycles,
// then recomputes boost factors.
func (sp *SpatialPooler) updateDutyCycles(activeColumns []int, overlapScores []float64) {
	period := float64(sp.config.DutyCyclePeriod)
	alpha := 1.0 / period

	activeSet := make(map[int]bool, len(activeColumns))
	for _, c := range activeColumns {
		activeSet[c] = true
	}

	for i := range sp.activeDutyCycles {
		value := 0.0
		if activeSet[i] {
			value = 1.0
		}
		sp.activeDutyCycles[i] = sp.activeDutyCycles[i]*(1-alpha) + alpha*value
	}

	for i, overlap := range overlapScores {
		value := 0.0
		if overlap > 0 {
			value = 1.0
		}
		sp.overlapDutyCycles[i] = sp.overlapDutyCycles[i]*(1-alpha) + alpha*value
	}

	sp.updateBoostFactors()
}

// updateBoostFactors recomputes each column's boost factor from the gap
// between its active duty cycle and its target density (global rho, or the
// local neighborhood's mean active duty under local inhibition).
func (sp *SpatialPooler) updateBoostFactors() {
	if sp.config.BoostStrength == 0 {
		for i := range sp.boostFactors {
			sp.boostFactors[i] = 1.0
		}
		return
	}

	for i := range sp.boostFactors {
		target := sp.config.SparsityRatio
		if !sp.config.GlobalInhibition {
			target = sp.localMeanActiveDuty(i)
		}
		if target < minBoostFloor {
			target = minBoostFloor
		}
		boost := math.Exp(sp.config.BoostStrength * (target - sp.activeDutyCycles[i]) / target)
		sp.boostFactors[i] = clampBoost(boost, 1.0, sp.config.MaxBoost)
	}
}

func (sp *SpatialPooler) localMeanActiveDuty(col int) float64 {
	neighborhood := sp.neighbors[col]
	samples := make([]float64, len(neighborhood))
	for i, n := range neighborhood {
		samples[i] = sp.activeDutyCycles[n]
	}
	return stat.Mean(samples, nil)
}

// rescueDeadColumns bumps every proximal permanence on columns whose
// overlap duty cycle has fallen below min_pct_overlap_duty_cycle, the SP's
// dead-column rescue (spec §4.3 homeostasis, step 3).
func (sp *SpatialPooler) rescueDeadColumns() {
	if sp.config.MinPctOverlapDutyCycle <= 0 {
		return
	}
	floor := sp.config.MinPctOverlapDutyCycle
	bump := 0.1 * sp.config.ConnectedThreshold

	_, cols := sp.permanences.Dims()
	for col := range sp.overlapDutyCycles {
		if sp.overlapDutyCycles[col] >= floor {
			continue
		}
		for input := 0; input < cols; input++ {
			if sp.potential.At(col, input) == 0 {
				continue
			}
			updated := sp.permanences.At(col, input) + bump
			if updated > 1 {
				updated = 1
			}
			sp.permanences.Set(col, input, updated)
		}
	}
	sp.updateConnectedSynapses()
}

func (sp *SpatialPooler) calculateAverageOverlap(overlapScores []float64, activeColumns []int) float64 {
	if len(activeColumns) == 0 {
		return 0.0
	}
	total := 0.0
	for _, col := range activeColumns {
		total += overlapScores[col]
	}
	return total / float64(len(activeColumns))
}

func clampBoost(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ValidateParameterConsistency reports configuration issues Config.Validate
// doesn't catch on its own: values that are each individually legal but
// combine into a pooler that can't behave the way spec §4.3 expects (an
// inhibition radius that can't discriminate any neighborhood, a sparsity
// ratio that rounds down to zero active columns, boosting enabled with no
// headroom to apply it).
func (sp *SpatialPooler) ValidateParameterConsistency() []string {
	var issues []string
	cfg := sp.config

	if expected := float64(cfg.ColumnCount) * cfg.SparsityRatio; expected < 1 {
		issues = append(issues, "sparsity ratio too low: would produce < 1 active column")
	}
	if cfg.LearningEnabled && cfg.LearningRate == 0 {
		issues = append(issues, "learning enabled but learning rate is zero")
	}
	if cfg.BoostStrength > 0 && cfg.MaxBoost <= 1 {
		issues = append(issues, "boost strength > 0 but max boost <= 1")
	}
	if !cfg.GlobalInhibition && cfg.InhibitionRadius >= cfg.ColumnCount {
		issues = append(issues, "inhibition radius >= column count")
	}
	if cfg.SemanticThresholds.SimilarInputMinOverlap <= cfg.SemanticThresholds.DifferentInputMaxOverlap {
		issues = append(issues, "similar input threshold <= different input threshold")
	}

	return issues
}
