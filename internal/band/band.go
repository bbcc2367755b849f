// Package band implements the band classifier and grid reconciler of
// spec.md §4.1-4.2: grouping trace records by frequency-grid fingerprint,
// freezing a canonical axis per band, and reconciling near-matching grids
// onto it.
package band

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cwsl/sdrindex/internal/trace"
)

// State is the per-band build state of spec.md §4 "State machine".
type State int

const (
	StateOpen State = iota
	StateAxisFixed
	StateQuantising
	StateIndexed
	StateSealed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateAxisFixed:
		return "AXIS_FIXED"
	case StateQuantising:
		return "QUANTISING"
	case StateIndexed:
		return "INDEXED"
	case StateSealed:
		return "SEALED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Row is one accepted trace, already aligned onto the band's canonical
// frequency axis.
type Row struct {
	Timestamp float64
	Power     []float64
	Seq       int // insertion order, used to break timestamp ties deterministically
}

// DriftError reports a record rejected because its grid differs from the
// band's canonical axis by more than the configured tolerance: spec.md
// §7's GridDrift.
type DriftError struct {
	Key Key
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("band: grid drift beyond tolerance for %s", e.Key)
}

// Band accumulates accepted records for one frequency grid during the
// build's streaming classification pass.
type Band struct {
	Key       Key
	Canonical []float64 // frozen after the first accepted record
	Rows      []Row
	Unix0     float64 // set by Finalize: timestamp of the earliest row
	Rejected  int     // count of DriftError rejections
	State     State

	mu sync.Mutex
}

func newBand(key Key) *Band {
	return &Band{Key: key, State: StateOpen}
}

// Accept classifies one record into this band: freezing the canonical
// axis on the first call, then accepting bit-identical or
// tolerance-reconcilable records and rejecting the rest with a
// *DriftError. tolerance is the relative per-sample tolerance of spec.md
// §4.1 (default 1e-6, see Options.GridTolerance). seq is a
// monotonically-increasing insertion counter supplied by the Classifier,
// used only to break timestamp ties in Finalize.
func (b *Band) Accept(r trace.Record, tolerance float64, seq int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.Canonical == nil {
		b.Canonical = append([]float64(nil), r.Freqs...)
		b.State = StateAxisFixed
		b.Rows = append(b.Rows, Row{Timestamp: r.Timestamp, Power: append([]float64(nil), r.Power...), Seq: seq})
		return nil
	}

	if sameAxis(r.Freqs, b.Canonical) {
		b.Rows = append(b.Rows, Row{Timestamp: r.Timestamp, Power: append([]float64(nil), r.Power...), Seq: seq})
		return nil
	}

	if withinTolerance(r.Freqs, b.Canonical, tolerance) {
		resampled, err := reconcile(r.Freqs, r.Power, b.Canonical)
		if err != nil {
			return err
		}
		b.Rows = append(b.Rows, Row{Timestamp: r.Timestamp, Power: resampled, Seq: seq})
		return nil
	}

	b.Rejected++
	return &DriftError{Key: b.Key}
}

// Finalize performs the band's final stable sort by ascending timestamp
// (ties broken by insertion order, spec.md §5) and computes Unix0. It must
// run exactly once, after the decoder has reached EOF for this band
// (across every contributing chunk).
func (b *Band) Finalize() {
	b.mu.Lock()
	defer b.mu.Unlock()

	sort.SliceStable(b.Rows, func(i, j int) bool {
		if b.Rows[i].Timestamp != b.Rows[j].Timestamp {
			return b.Rows[i].Timestamp < b.Rows[j].Timestamp
		}
		return b.Rows[i].Seq < b.Rows[j].Seq
	})
	if len(b.Rows) > 0 {
		b.Unix0 = b.Rows[0].Timestamp
	}
}

// NTraces returns the number of accepted rows.
func (b *Band) NTraces() int { return len(b.Rows) }

// NFreqs returns the canonical axis length, or 0 if no record has been
// accepted yet.
func (b *Band) NFreqs() int { return len(b.Canonical) }
