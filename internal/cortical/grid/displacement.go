package grid

import (
	"math"
	"sort"

	"github.com/htm-project/neural-api/internal/cortical/cerr"
	"github.com/htm-project/neural-api/internal/cortical/sdr"
	"github.com/htm-project/neural-api/internal/domain/htm"
)

type association struct {
	src, disp, tgt *sdr.SDR
}

// DisplacementModule learns (source_location, displacement, target_location)
// associations and predicts targets from the current location alone,
// independent of exploration order (spec §4.6).
type DisplacementModule struct {
	config       *htm.DisplacementConfig
	associations []association
}

// NewDisplacementModule allocates an empty displacement module.
func NewDisplacementModule(config *htm.DisplacementConfig) (*DisplacementModule, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &DisplacementModule{config: config}, nil
}

// GetConfiguration returns a copy of the active configuration.
func (d *DisplacementModule) GetConfiguration() *htm.DisplacementConfig {
	c := *d.config
	return &c
}

// decodeCentroid computes a circular-mean-decoded (q,r) centroid for an
// active set of cells over a module_size x module_size lattice, treating
// each axis as circular (toroidal) via the standard atan2-of-sum-of-unit-
// vectors trick.
func decodeCentroid(s *sdr.SDR, moduleSize int) (float64, float64) {
	if len(s.ActiveBits) == 0 {
		return 0, 0
	}
	var sumCosQ, sumSinQ, sumCosR, sumSinR float64
	step := 2 * math.Pi / float64(moduleSize)
	for _, bit := range s.ActiveBits {
		q := bit / moduleSize
		r := bit % moduleSize
		sumCosQ += math.Cos(float64(q) * step)
		sumSinQ += math.Sin(float64(q) * step)
		sumCosR += math.Cos(float64(r) * step)
		sumSinR += math.Sin(float64(r) * step)
	}
	angleQ := math.Atan2(sumSinQ, sumCosQ)
	angleR := math.Atan2(sumSinR, sumCosR)
	q := wrap(angleQ/step, moduleSize)
	r := wrap(angleR/step, moduleSize)
	return q, r
}

// bumpSDR renders a Gaussian bump centered at (q,r) over the same lattice
// shape a grid Module uses, with the given active cell count.
func bumpSDR(q, r float64, moduleSize, activeCount int, sigma float64) (*sdr.SDR, error) {
	activations := make([]cellActivation, 0, moduleSize*moduleSize)
	twoSigmaSq := 2 * sigma * sigma
	for qi := 0; qi < moduleSize; qi++ {
		for ri := 0; ri < moduleSize; ri++ {
			dq := wrappedDelta(float64(qi), q, moduleSize)
			dr := wrappedDelta(float64(ri), r, moduleSize)
			d2 := 3 * (dq*dq + dq*dr + dr*dr)
			activations = append(activations, cellActivation{index: qi*moduleSize + ri, value: math.Exp(-d2 / twoSigmaSq)})
		}
	}
	sort.SliceStable(activations, func(i, j int) bool { return activations[i].value > activations[j].value })
	n := activeCount
	if n > len(activations) {
		n = len(activations)
	}
	active := make([]int, n)
	for i := 0; i < n; i++ {
		active[i] = activations[i].index
	}
	sort.Ints(active)
	return sdr.NewSDR(moduleSize*moduleSize, active)
}

// Learn records a (src, displacement, tgt) association. The displacement is
// rendered as a hex-centered Gaussian bump around the toroidally-wrapped
// centroid difference tgt-src.
func (d *DisplacementModule) Learn(src, tgt *sdr.SDR) error {
	if src == nil || tgt == nil {
		return cerr.NewInvalidArgument("displacement", "src_tgt", "cannot be nil")
	}
	srcQ, srcR := decodeCentroid(src, d.config.ModuleSize)
	tgtQ, tgtR := decodeCentroid(tgt, d.config.ModuleSize)

	dq := wrappedDelta(tgtQ, srcQ, d.config.ModuleSize)
	dr := wrappedDelta(tgtR, srcR, d.config.ModuleSize)

	disp, err := bumpSDR(wrap(dq, d.config.ModuleSize), wrap(dr, d.config.ModuleSize), d.config.ModuleSize, len(src.ActiveBits), d.config.BumpSigma)
	if err != nil {
		return err
	}

	d.associations = append(d.associations, association{src: src.Clone(), disp: disp, tgt: tgt.Clone()})
	if d.config.MaxAssociations > 0 && len(d.associations) > d.config.MaxAssociations {
		d.associations = d.associations[len(d.associations)-d.config.MaxAssociations:]
	}
	return nil
}

// PredictTargets returns every learned association whose source overlaps
// current above the configured threshold, ranked by descending overlap.
// The predicted target is the stored tgt, never recomputed, so predictions
// depend only on the current location, not on exploration order.
func (d *DisplacementModule) PredictTargets(current *sdr.SDR) ([]htm.DisplacementPrediction, error) {
	if current == nil {
		return nil, cerr.NewInvalidArgument("displacement", "current", "cannot be nil")
	}

	type scored struct {
		pred  htm.DisplacementPrediction
		ratio float64
	}
	var results []scored
	for _, a := range d.associations {
		ratio := current.OverlapRatio(a.src)
		if ratio >= d.config.OverlapThreshold {
			results = append(results, scored{
				pred: htm.DisplacementPrediction{
					Target:       append([]int(nil), a.tgt.ActiveBits...),
					Displacement: append([]int(nil), a.disp.ActiveBits...),
					Confidence:   ratio,
				},
				ratio: ratio,
			})
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].ratio > results[j].ratio })

	out := make([]htm.DisplacementPrediction, len(results))
	for i, r := range results {
		out[i] = r.pred
	}
	return out, nil
}

// Reset is a no-op: learned (src,disp,tgt) structure is object-invariant
// sensorimotor knowledge, analogous to TM/CP synapses, and survives resets.
func (d *DisplacementModule) Reset() {}
