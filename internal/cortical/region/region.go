// Package region implements the CorticalRegion voting loop over a set of
// independent columns, and settling with no new sensory input.
package region

import (
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/htm-project/neural-api/internal/cortical/cerr"
	"github.com/htm-project/neural-api/internal/cortical/column"
	"github.com/htm-project/neural-api/internal/cortical/sdr"
	"github.com/htm-project/neural-api/internal/domain/htm"
)

const component = "region"

// Region holds a fixed set of columns that vote toward a shared object
// representation. Phase 1 (column compute) runs in parallel across
// columns since each owns disjoint state (spec §5); the voting loop itself
// is sequential, since every iteration reads a representation every other
// column wrote in the previous one.
type Region struct {
	config  *htm.RegionConfig
	columns []*column.Column

	pendingFeedback *sdr.SDR
}

// New constructs a region over an existing, already-configured set of
// columns. Every column must share the same Column Pooler cell_count and
// sdr_size, since voting compares representations bit-for-bit across them.
func New(config *htm.RegionConfig, columns []*column.Column) (*Region, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, cerr.NewInvalidArgument(component, "columns", "must configure at least one column")
	}
	cellCount := columns[0].GetConfiguration().ColumnPooler.CellCount
	sdrSize := columns[0].GetConfiguration().ColumnPooler.SDRSize
	for _, c := range columns[1:] {
		cfg := c.GetConfiguration().ColumnPooler
		if cfg.CellCount != cellCount || cfg.SDRSize != sdrSize {
			return nil, cerr.NewShapeMismatch(component, "every column must share the same column_pooler cell_count and sdr_size")
		}
	}
	return &Region{config: config, columns: columns}, nil
}

// GetConfiguration returns a copy of the active configuration.
func (r *Region) GetConfiguration() *htm.RegionConfig {
	c := *r.config
	return &c
}

// GetColumnPoolerCellCount returns the column_pooler cell_count shared by
// every column in this region (New enforces that they all agree), the
// width a hierarchy needs when sizing feedback destined for this region.
func (r *Region) GetColumnPoolerCellCount() int {
	return r.columns[0].GetConfiguration().ColumnPooler.CellCount
}

// Process runs one sensory timestep across every column in parallel, then
// the voting loop (spec §4.8).
func (r *Region) Process(sensory []*htm.SensoryInput, learn bool) (*htm.RegionOutput, error) {
	if len(sensory) != len(r.columns) {
		return nil, cerr.NewShapeMismatch(component, "sensory input count must equal column count")
	}

	if r.pendingFeedback != nil {
		for _, c := range r.columns {
			c.ReceiveApical(r.pendingFeedback)
		}
	}

	outputs := make([]*htm.ColumnOutput, len(r.columns))
	g := new(errgroup.Group)
	for i := range r.columns {
		i := i
		g.Go(func() error {
			out, err := r.columns[i].Compute(sensory[i], learn)
			if err != nil {
				return err
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	consensus, converged, iterations, meanScore, err := r.vote()
	if err != nil {
		return nil, err
	}

	return &htm.RegionOutput{
		ColumnOutputs:    outputs,
		Consensus:        consensus,
		Converged:        converged,
		VotingIterations: iterations,
		MeanMatchScore:   meanScore,
	}, nil
}

// Settle repeats only the voting loop over the columns' current
// representations: no sensory input, no column recompute. Required for
// hierarchical settling (spec §4.8).
func (r *Region) Settle() (*htm.RegionOutput, error) {
	consensus, converged, iterations, meanScore, err := r.vote()
	if err != nil {
		return nil, err
	}

	outputs := make([]*htm.ColumnOutput, len(r.columns))
	for i, c := range r.columns {
		rep := c.Representation()
		if rep == nil {
			continue
		}
		outputs[i] = &htm.ColumnOutput{Representation: append([]int(nil), rep.ActiveBits...)}
	}

	return &htm.RegionOutput{
		ColumnOutputs:    outputs,
		Consensus:        consensus,
		Converged:        converged,
		VotingIterations: iterations,
		MeanMatchScore:   meanScore,
	}, nil
}

// vote runs up to max_voting_iterations of: compute consensus bits, feed
// every column its peers and narrow, reread representations, check
// convergence by mean pairwise match_score.
func (r *Region) vote() ([]int, bool, int, float64, error) {
	cp := r.columns[0].GetConfiguration().ColumnPooler
	cellCount, targetSize := cp.CellCount, cp.SDRSize

	reps := make([]*sdr.SDR, len(r.columns))
	for i, c := range r.columns {
		rep := c.Representation()
		if rep == nil {
			empty, err := sdr.NewSDR(cellCount, nil)
			if err != nil {
				return nil, false, 0, 0, err
			}
			rep = empty
		}
		reps[i] = rep
	}

	converged := false
	iterations := 0
	meanScore := meanPairwiseMatchScore(reps)

	for iterations = 1; iterations <= r.config.MaxVotingIterations; iterations++ {
		for i, c := range r.columns {
			peers := make(map[int]*sdr.SDR, len(r.columns)-1)
			for j, rep := range reps {
				if j != i {
					peers[j] = rep
				}
			}
			result, err := c.ApplyLateralNarrowing(peers)
			if err != nil {
				return nil, false, 0, 0, err
			}
			narrowed, err := sdr.NewSDR(cellCount, result.Representation)
			if err != nil {
				return nil, false, 0, 0, err
			}
			reps[i] = narrowed
		}

		meanScore = meanPairwiseMatchScore(reps)
		if meanScore >= r.config.ConvergenceThreshold {
			converged = true
			break
		}
	}
	if iterations > r.config.MaxVotingIterations {
		iterations = r.config.MaxVotingIterations
	}

	consensus, err := computeConsensus(reps, cellCount, len(r.columns), r.config.VoteThreshold, targetSize)
	if err != nil {
		return nil, false, 0, 0, err
	}

	return consensus.ActiveBits, converged, iterations, meanScore, nil
}

// computeConsensus keeps bits supported by at least vote_threshold·N_columns
// columns, capping to target_size by descending support count when more
// survive (spec §4.8).
func computeConsensus(reps []*sdr.SDR, width, nCols int, voteThreshold float64, targetSize int) (*sdr.SDR, error) {
	support := make([]int, width)
	for _, rep := range reps {
		for _, bit := range rep.ActiveBits {
			support[bit]++
		}
	}
	required := int(math.Ceil(voteThreshold * float64(nCols)))

	type candidate struct{ index, support int }
	var candidates []candidate
	for idx, s := range support {
		if s >= required && s > 0 {
			candidates = append(candidates, candidate{idx, s})
		}
	}
	if len(candidates) > targetSize {
		sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].support > candidates[j].support })
		candidates = candidates[:targetSize]
	}

	bits := make([]int, len(candidates))
	for i, c := range candidates {
		bits[i] = c.index
	}
	sort.Ints(bits)
	return sdr.NewSDR(width, bits)
}

// meanPairwiseMatchScore averages MatchScore over every ordered pair of
// distinct representations. A region of fewer than two columns is
// trivially converged.
func meanPairwiseMatchScore(reps []*sdr.SDR) float64 {
	if len(reps) < 2 {
		return 1.0
	}
	sum := 0.0
	count := 0
	for i := range reps {
		for j := range reps {
			if i == j {
				continue
			}
			sum += reps[i].MatchScore(reps[j])
			count++
		}
	}
	if count == 0 {
		return 1.0
	}
	return sum / float64(count)
}

// ReceiveHierarchicalFeedback stores feedback from a higher level, broadcast
// to every column at the start of the next Process call.
func (r *Region) ReceiveHierarchicalFeedback(feedback *sdr.SDR) {
	r.pendingFeedback = feedback
}

// Reset resets every column. Hierarchical feedback is untouched, matching
// Column.Reset's treatment of its own apical feedback channel.
func (r *Region) Reset() {
	for _, c := range r.columns {
		c.Reset()
	}
}
