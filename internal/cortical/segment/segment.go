// Package segment implements the dendrite/synapse substrate the temporal
// memory uses for its distal, basal and apical segments: permanence-based
// Hebbian synapses grouped into dendrite segments, with bounded, LRU-evicted
// segment pools per cell.
package segment

import (
	"sort"

	"github.com/htm-project/neural-api/internal/cortical/cerr"
	"github.com/htm-project/neural-api/internal/cortical/sdr"
)

const component = "segment"

// Type identifies which dendrite a segment models. All four share the same
// synapse-lifecycle mechanics; only where they attach and what they're
// scored against differs, which is a concern of the owning layer, not this
// package.
type Type string

const (
	Proximal Type = "proximal"
	Distal   Type = "distal"
	Apical   Type = "apical"
	Basal    Type = "basal"
)

// Synapse connects a segment to one presynaptic cell/column index with a
// clamped permanence in [0,1].
type Synapse struct {
	PresynapticIndex int     `json:"presynaptic_index"`
	Permanence       float64 `json:"permanence"`
	CreatedAt        uint64  `json:"created_at"`
}

func clampPermanence(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Connected reports whether the synapse's permanence meets the given
// connected threshold.
func (s Synapse) Connected(connectedThreshold float64) bool {
	return s.Permanence >= connectedThreshold
}

// DendriteSegment owns a list of synapses onto a single cell. The same
// struct serves proximal, distal, apical, and basal roles.
type DendriteSegment struct {
	CellIndex     int       `json:"cell_index"`
	SegmentType   Type      `json:"segment_type"`
	CreatedAt     uint64    `json:"created_at"`
	LastActivated uint64    `json:"last_activated"`
	Synapses      []Synapse `json:"synapses"`
}

// NewDendriteSegment creates an empty segment on cellIndex, stamped with the
// current iteration.
func NewDendriteSegment(cellIndex int, segType Type, iteration uint64) *DendriteSegment {
	return &DendriteSegment{
		CellIndex:     cellIndex,
		SegmentType:   segType,
		CreatedAt:     iteration,
		LastActivated: iteration,
	}
}

// ComputeActivity counts connected synapses (permanence >= connectedThreshold)
// whose presynaptic source is active in activeSet. O(|segment|).
func (d *DendriteSegment) ComputeActivity(activeSet *sdr.SDR, connectedThreshold float64) int {
	count := 0
	for _, syn := range d.Synapses {
		if syn.Connected(connectedThreshold) && activeSet.IsActive(syn.PresynapticIndex) {
			count++
		}
	}
	return count
}

// ComputePotentialActivity counts any synapse (regardless of permanence)
// whose presynaptic source is active in activeSet.
func (d *DendriteSegment) ComputePotentialActivity(activeSet *sdr.SDR) int {
	count := 0
	for _, syn := range d.Synapses {
		if activeSet.IsActive(syn.PresynapticIndex) {
			count++
		}
	}
	return count
}

// AdaptSynapses clamp-increments every synapse whose source is active and
// clamp-decrements every other synapse on the segment.
func (d *DendriteSegment) AdaptSynapses(activeSet *sdr.SDR, inc, dec float64) {
	for i := range d.Synapses {
		if activeSet.IsActive(d.Synapses[i].PresynapticIndex) {
			d.Synapses[i].Permanence = clampPermanence(d.Synapses[i].Permanence + inc)
		} else {
			d.Synapses[i].Permanence = clampPermanence(d.Synapses[i].Permanence - dec)
		}
	}
}

// PunishSynapses clamp-decrements only the synapses whose source is active,
// used to weaken a segment that predicted a column that never activated.
func (d *DendriteSegment) PunishSynapses(activeSet *sdr.SDR, dec float64) {
	for i := range d.Synapses {
		if activeSet.IsActive(d.Synapses[i].PresynapticIndex) {
			d.Synapses[i].Permanence = clampPermanence(d.Synapses[i].Permanence - dec)
		}
	}
}

// BumpAllPermanences clamp-increments every synapse's permanence by delta.
func (d *DendriteSegment) BumpAllPermanences(delta float64) {
	for i := range d.Synapses {
		d.Synapses[i].Permanence = clampPermanence(d.Synapses[i].Permanence + delta)
	}
}

// AddSynapses grows new synapses onto targets not already present, up to
// maxSynapsesPerSegment total, keeping the highest-permanence entries when
// the segment would otherwise overflow. Targets already connected are
// skipped so a presynaptic index never appears twice on one segment.
func (d *DendriteSegment) AddSynapses(targets []int, initPerm float64, iteration uint64, maxSynapsesPerSegment int) {
	existing := make(map[int]bool, len(d.Synapses))
	for _, syn := range d.Synapses {
		existing[syn.PresynapticIndex] = true
	}

	for _, t := range targets {
		if existing[t] {
			continue
		}
		existing[t] = true
		d.Synapses = append(d.Synapses, Synapse{
			PresynapticIndex: t,
			Permanence:       clampPermanence(initPerm),
			CreatedAt:        iteration,
		})
	}

	if maxSynapsesPerSegment > 0 && len(d.Synapses) > maxSynapsesPerSegment {
		sort.Slice(d.Synapses, func(i, j int) bool {
			return d.Synapses[i].Permanence > d.Synapses[j].Permanence
		})
		d.Synapses = d.Synapses[:maxSynapsesPerSegment]
	}
}

// prune removes synapses below pruneThreshold in place.
func (d *DendriteSegment) prune(pruneThreshold float64) {
	kept := d.Synapses[:0]
	for _, syn := range d.Synapses {
		if syn.Permanence >= pruneThreshold {
			kept = append(kept, syn)
		}
	}
	d.Synapses = kept
}

// Manager holds the bounded segment pool for a single cell, enforcing
// max_segments_per_cell via least-recently-activated eviction.
type Manager struct {
	CellIndex             int                `json:"cell_index"`
	MaxSegmentsPerCell    int                `json:"max_segments_per_cell"`
	MaxSynapsesPerSegment int                `json:"max_synapses_per_segment"`
	Segments              []*DendriteSegment `json:"segments"`
}

// NewManager builds an empty per-cell segment manager.
func NewManager(cellIndex, maxSegmentsPerCell, maxSynapsesPerSegment int) *Manager {
	return &Manager{
		CellIndex:             cellIndex,
		MaxSegmentsPerCell:    maxSegmentsPerCell,
		MaxSynapsesPerSegment: maxSynapsesPerSegment,
	}
}

// CreateSegment allocates a new segment on this cell, evicting the least
// recently activated segment first if the manager is already at capacity.
func (m *Manager) CreateSegment(segType Type, iteration uint64) *DendriteSegment {
	if m.MaxSegmentsPerCell > 0 && len(m.Segments) >= m.MaxSegmentsPerCell {
		m.evictLRU()
	}
	seg := NewDendriteSegment(m.CellIndex, segType, iteration)
	m.Segments = append(m.Segments, seg)
	return seg
}

func (m *Manager) evictLRU() {
	if len(m.Segments) == 0 {
		return
	}
	oldestIdx := 0
	for i, seg := range m.Segments {
		if seg.LastActivated < m.Segments[oldestIdx].LastActivated {
			oldestIdx = i
		}
	}
	m.Segments = append(m.Segments[:oldestIdx], m.Segments[oldestIdx+1:]...)
}

// Maintain prunes sub-threshold synapses from every segment, removes
// segments whose surviving synapse count drops below minViable, and
// re-enforces the max-synapses-per-segment cap on survivors.
func (m *Manager) Maintain(pruneThreshold float64, minViable int) {
	survivors := m.Segments[:0]
	for _, seg := range m.Segments {
		seg.prune(pruneThreshold)
		if len(seg.Synapses) >= minViable {
			if m.MaxSynapsesPerSegment > 0 && len(seg.Synapses) > m.MaxSynapsesPerSegment {
				sort.Slice(seg.Synapses, func(i, j int) bool {
					return seg.Synapses[i].Permanence > seg.Synapses[j].Permanence
				})
				seg.Synapses = seg.Synapses[:m.MaxSynapsesPerSegment]
			}
			survivors = append(survivors, seg)
		}
	}
	m.Segments = survivors
}

// BestMatchingSegment returns the segment with the highest potential
// activity against activeSet, and that activity count. Returns (nil, 0) if
// the manager has no segments.
func (m *Manager) BestMatchingSegment(activeSet *sdr.SDR) (*DendriteSegment, int) {
	var best *DendriteSegment
	bestActivity := -1
	for _, seg := range m.Segments {
		activity := seg.ComputePotentialActivity(activeSet)
		if activity > bestActivity {
			best = seg
			bestActivity = activity
		}
	}
	if best == nil {
		return nil, 0
	}
	return best, bestActivity
}

// ValidateConfig checks the structural parameters shared by every segment
// manager, returning a cerr.CoreError describing the first violation.
func ValidateConfig(maxSegmentsPerCell, maxSynapsesPerSegment int) error {
	if maxSegmentsPerCell <= 0 {
		return cerr.NewInvalidArgument(component, "max_segments_per_cell", "must be positive")
	}
	if maxSynapsesPerSegment <= 0 {
		return cerr.NewInvalidArgument(component, "max_synapses_per_segment", "must be positive")
	}
	return nil
}
