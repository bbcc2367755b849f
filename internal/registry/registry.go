// Package registry holds the process-wide band registry: the one piece of
// mutable state the build driver shares across per-band workers (spec.md
// §5, §9), guarded by a single mutex. It assigns each band both the
// numeric index N spec.md §6's file names use and an in-process uuid.
// The uuid is generated fresh in every run and is not persisted, so it
// does not identify a band across rebuilds.
package registry

import (
	"sync"

	"github.com/google/uuid"

	"github.com/cwsl/sdrindex/internal/band"
)

// Entry is one registered band: its derived Key, its in-progress Band,
// and the stable identifiers assigned to it.
type Entry struct {
	ID    string // uuid, stable for the same Key within one run
	Index int    // numeric N, used in waterfall_bandN.dat etc.
	Band  *band.Band
}

// Registry maps band.Key to Entry. Insert/lookup are serialized by a
// single mutex; nothing else in the build driver holds process-wide
// mutable state.
type Registry struct {
	mu      sync.Mutex
	entries []*Entry
	byKey   map[band.Key]*Entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{byKey: make(map[band.Key]*Entry)}
}

// Register assigns a stable Entry to b at the given index, creating one
// on first sight of b.Key. index must come from the caller's own
// deterministic ordering (classifier.Bands()'s first-seen order) rather
// than from registration order: artifact file names are derived from
// index, so an order that depends on goroutine scheduling would make two
// runs of the same input swap which band lands under waterfall_band0.dat
// vs waterfall_band1.dat. Safe for concurrent use, but callers should
// register every band sequentially before any concurrent per-band work
// begins.
func (r *Registry) Register(b *band.Band, index int) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.byKey[b.Key]; ok {
		return e
	}
	e := &Entry{ID: uuid.NewString(), Index: index, Band: b}
	r.entries = append(r.entries, e)
	r.byKey[b.Key] = e
	return e
}

// Entries returns every registered band in assignment (index) order.
func (r *Registry) Entries() []*Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// ByID looks up a band by its uuid.
func (r *Registry) ByID(id string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}
