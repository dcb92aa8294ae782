package grid

import (
	"github.com/htm-project/neural-api/internal/cortical/sdr"
	"github.com/htm-project/neural-api/internal/domain/htm"
)

// AnchorRecord is the exported-field mirror of anchorEntry, needed because
// gob only encodes exported struct fields.
type AnchorRecord struct {
	Pattern *sdr.SDR
	Q, R    float64
}

// ModuleState is the persisted form of a grid cell module: its
// configuration, current position, and every learned anchor (spec §6,
// "grid anchor memory").
type ModuleState struct {
	Config  *htm.GridCellConfig
	Q, R    float64
	Anchors []AnchorRecord
}

// ExportState captures everything needed to reconstruct this grid module
// exactly, short of its RNG stream.
func (m *Module) ExportState() *ModuleState {
	anchors := make([]AnchorRecord, len(m.anchors))
	for i, a := range m.anchors {
		anchors[i] = AnchorRecord{Pattern: a.pattern, Q: a.q, R: a.r}
	}
	return &ModuleState{
		Config:  m.GetConfiguration(),
		Q:       m.q,
		R:       m.r,
		Anchors: anchors,
	}
}

// RestoreModule rebuilds a grid module from a previously exported state.
func RestoreModule(state *ModuleState) (*Module, error) {
	m, err := NewModule(state.Config)
	if err != nil {
		return nil, err
	}
	m.q, m.r = state.Q, state.R
	m.anchors = make([]anchorEntry, len(state.Anchors))
	for i, a := range state.Anchors {
		m.anchors[i] = anchorEntry{pattern: a.Pattern, q: a.Q, r: a.R}
	}
	return m, nil
}

// AssociationRecord is the exported-field mirror of association.
type AssociationRecord struct {
	Source, Displacement, Target *sdr.SDR
}

// DisplacementState is the persisted form of a displacement module: its
// configuration plus every learned (source, displacement, target)
// association (spec §6, "displacement associations").
type DisplacementState struct {
	Config       *htm.DisplacementConfig
	Associations []AssociationRecord
}

// ExportState captures everything needed to reconstruct this displacement
// module exactly.
func (d *DisplacementModule) ExportState() *DisplacementState {
	records := make([]AssociationRecord, len(d.associations))
	for i, a := range d.associations {
		records[i] = AssociationRecord{Source: a.src, Displacement: a.disp, Target: a.tgt}
	}
	return &DisplacementState{
		Config:       d.GetConfiguration(),
		Associations: records,
	}
}

// RestoreDisplacementModule rebuilds a displacement module from a
// previously exported state.
func RestoreDisplacementModule(state *DisplacementState) (*DisplacementModule, error) {
	d, err := NewDisplacementModule(state.Config)
	if err != nil {
		return nil, err
	}
	d.associations = make([]association, len(state.Associations))
	for i, r := range state.Associations {
		d.associations[i] = association{src: r.Source, disp: r.Displacement, tgt: r.Target}
	}
	return d, nil
}
