package band

import (
	"fmt"
	"math"

	"github.com/cwsl/sdrindex/internal/trace"
)

// Key is the derived tuple spec.md §3 uses to group records into bands:
// (n_freqs, round(f_start), round(f_stop)). Two records match iff their
// keys are equal.
type Key struct {
	NFreqs int
	FStart int64 // round(f_start, 0), hertz
	FStop  int64 // round(f_stop, 0), hertz
}

func (k Key) String() string {
	return fmt.Sprintf("band[n=%d,%d-%dHz]", k.NFreqs, k.FStart, k.FStop)
}

// KeyOf derives a Key from a record's frequency axis.
func KeyOf(r trace.Record) Key {
	return Key{
		NFreqs: len(r.Freqs),
		FStart: int64(math.Round(r.Freqs[0])),
		FStop:  int64(math.Round(r.Freqs[len(r.Freqs)-1])),
	}
}
