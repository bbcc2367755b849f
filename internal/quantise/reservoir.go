package quantise

import "math/rand"

// DefaultReservoirCap is the sampling bound of spec.md §4.3: "accumulates
// a reservoir of <= 1,000,000 uniformly sub-sampled power values".
const DefaultReservoirCap = 1_000_000

// Reservoir implements uniform reservoir sampling (Algorithm R) over a
// stream of float64 power samples, bounded at Cap entries. When the
// stream has produced at most Cap values, the reservoir holds every one
// of them — spec.md §4.3's "if total samples <= the reservoir cap, uses
// exact percentiles" falls out of this for free.
type Reservoir struct {
	cap  int
	data []float64
	seen int64
	rng  *rand.Rand
}

// NewReservoir creates a reservoir bounded at cap entries. rng must not be
// nil; callers that need determinism (e.g. idempotent rebuilds) should
// supply a seeded source.
func NewReservoir(cap int, rng *rand.Rand) *Reservoir {
	return &Reservoir{cap: cap, rng: rng}
}

// Add offers one value to the reservoir.
func (r *Reservoir) Add(x float64) {
	r.seen++
	if len(r.data) < r.cap {
		r.data = append(r.data, x)
		return
	}
	j := r.rng.Int63n(r.seen)
	if j < int64(r.cap) {
		r.data[j] = x
	}
}

// AddAll offers every value in xs.
func (r *Reservoir) AddAll(xs []float64) {
	for _, x := range xs {
		r.Add(x)
	}
}

// Samples returns the current reservoir contents. The caller must not
// retain a reference across further Add calls.
func (r *Reservoir) Samples() []float64 { return r.data }

// Seen returns the total number of values offered so far.
func (r *Reservoir) Seen() int64 { return r.seen }
