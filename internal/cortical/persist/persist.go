// Package persist implements the snapshot/serialization layer: a gob
// payload per component plus an FNV-1a checksum over that payload,
// normative per spec §6 ("Checksum (FNV-1a) over the full payload is
// normative"). Deserialization goes through a Registry of per-kind
// factories that the host populates explicitly (spec §9: "Process-wide
// factories exist only for the deserialization layer... must be explicitly
// populated by the host"), mirroring the teacher's sensor registry
// (internal/sensors/registry.go) rather than any package-level init().
package persist

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/htm-project/neural-api/internal/cortical/cerr"
)

const component = "persist"

// StateFactory returns a fresh, blank pointer to the state type a Kind
// decodes into, e.g. func() any { return &spatial.State{} }.
type StateFactory func() any

// Registry maps a component kind name to the factory that produces a blank
// instance of its persisted state type, for Load to decode into.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]StateFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]StateFactory)}
}

// Register adds a factory for the given kind. Re-registering an existing
// kind is rejected, matching the teacher's sensor registry.
func (r *Registry) Register(kind string, factory StateFactory) error {
	if kind == "" {
		return cerr.NewInvalidArgument(component, "kind", "cannot be empty")
	}
	if factory == nil {
		return cerr.NewInvalidArgument(component, "factory", "cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[kind]; exists {
		return cerr.NewInvalidArgument(component, "kind", fmt.Sprintf("%q is already registered", kind))
	}
	r.factories[kind] = factory
	return nil
}

// Create returns a blank state instance for the given kind.
func (r *Registry) Create(kind string) (any, error) {
	r.mu.RLock()
	factory, exists := r.factories[kind]
	r.mu.RUnlock()
	if !exists {
		return nil, cerr.NewInvalidArgument(component, "kind", fmt.Sprintf("unknown kind %q", kind))
	}
	return factory(), nil
}

// List returns every registered kind, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Snapshot is one component's persisted payload: which kind it decodes as,
// its gob-encoded bytes, and the FNV-1a checksum over those bytes.
type Snapshot struct {
	Kind     string
	Payload  []byte
	Checksum uint32
}

// Save gob-encodes state and wraps it with its kind name and checksum.
// state must be a pointer to one of the component State types (e.g.
// *spatial.State) produced by that component's ExportState method.
func Save(kind string, state any) (*Snapshot, error) {
	if kind == "" {
		return nil, cerr.NewInvalidArgument(component, "kind", "cannot be empty")
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, cerr.NewStateCorruption(component, "encode failed: "+err.Error())
	}
	return &Snapshot{
		Kind:     kind,
		Payload:  buf.Bytes(),
		Checksum: checksum(buf.Bytes()),
	}, nil
}

// Load verifies snap's checksum, creates a blank state instance for its
// kind via reg, and gob-decodes the payload into it. The caller then passes
// the decoded state to the matching RestoreX constructor (e.g.
// spatial.RestoreSpatialPooler) to get a live component back.
func Load(reg *Registry, snap *Snapshot) (any, error) {
	if snap == nil {
		return nil, cerr.NewInvalidArgument(component, "snapshot", "cannot be nil")
	}
	if checksum(snap.Payload) != snap.Checksum {
		return nil, cerr.NewStateCorruption(component, "checksum mismatch: payload does not match recorded checksum")
	}
	blank, err := reg.Create(snap.Kind)
	if err != nil {
		return nil, err
	}
	if err := gob.NewDecoder(bytes.NewReader(snap.Payload)).Decode(blank); err != nil {
		return nil, cerr.NewStateCorruption(component, "decode failed: "+err.Error())
	}
	return blank, nil
}

func checksum(payload []byte) uint32 {
	h := fnv.New32a()
	h.Write(payload)
	return h.Sum32()
}
