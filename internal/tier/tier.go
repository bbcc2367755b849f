// Package tier builds the frequency-axis pyramid of spec.md §4.6: level 0
// is the band's summary reinterpreted as (min, max, mean) triples, and
// each further level halves the bin count by contiguous pairwise
// aggregation until at most 256 bins remain.
package tier

import (
	"github.com/cwsl/sdrindex/internal/summary"
)

// DefaultCap is the bin-count ceiling that terminates the pyramid
// (spec.md §3's TierPyramid: "the coarsest level has at most 256 bins").
const DefaultCap = 256

// Level is one level of the pyramid.
type Level struct {
	NBins int       `json:"n_bins"`
	Min   []float64 `json:"min"`
	Max   []float64 `json:"max"`
	Mean  []float64 `json:"mean"`
}

// Pyramid is the full ordered list of levels plus the canonical frequency
// endpoints the axis is linear over (spec.md §4.6: "shared across levels").
type Pyramid struct {
	FStart float64 `json:"f_start"`
	FStop  float64 `json:"f_stop"`
	Levels []Level `json:"levels"`
}

// Build constructs the pyramid from a band's summary triple and its
// canonical frequency endpoints, halving bin counts until a level with at
// most cap bins is produced (cap=0 selects DefaultCap).
func Build(t summary.Triple, fStart, fStop float64, cap int) Pyramid {
	if cap <= 0 {
		cap = DefaultCap
	}

	level0 := Level{
		NBins: len(t.Max),
		Min:   toFloat64(t.Min),
		Max:   toFloat64(t.Max),
		Mean:  toFloat64(t.Avg),
	}

	levels := []Level{level0}
	for levels[len(levels)-1].NBins > cap {
		levels = append(levels, halve(levels[len(levels)-1]))
	}

	return Pyramid{FStart: fStart, FStop: fStop, Levels: levels}
}

// halve derives level k+1 from level k by contiguous pairwise aggregation
// (spec.md §4.6): min/max take the extremum of the pair, mean is the
// simple average of the pair (bins are equal-width, so arithmetic mean is
// exact). An unpaired trailing bin is copied through unchanged.
func halve(in Level) Level {
	nOut := (in.NBins + 1) / 2
	out := Level{NBins: nOut, Min: make([]float64, nOut), Max: make([]float64, nOut), Mean: make([]float64, nOut)}

	for j := 0; j < nOut; j++ {
		i0, i1 := 2*j, 2*j+1
		if i1 < in.NBins {
			out.Min[j] = minOf(in.Min[i0], in.Min[i1])
			out.Max[j] = maxOf(in.Max[i0], in.Max[i1])
			out.Mean[j] = (in.Mean[i0] + in.Mean[i1]) / 2
		} else {
			out.Min[j] = in.Min[i0]
			out.Max[j] = in.Max[i0]
			out.Mean[j] = in.Mean[i0]
		}
	}
	return out
}

func toFloat64(xs []float32) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}

func minOf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxOf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// BinCounts returns the bin count of each level, the value spec.md §6's
// meta_bandN.json `levels` field persists.
func (p Pyramid) BinCounts() []int {
	out := make([]int, len(p.Levels))
	for i, l := range p.Levels {
		out[i] = l.NBins
	}
	return out
}
