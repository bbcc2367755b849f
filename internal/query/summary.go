package query

import "github.com/cwsl/sdrindex/internal/tier"

// SummaryResponse is the summary() result of spec.md §4.7: a frequency
// axis and its matching min/avg/max vectors, decimated to at most
// maxPts points.
type SummaryResponse struct {
	Freqs []float64 `json:"freqs"`
	Min   []float64 `json:"min"`
	Avg   []float64 `json:"avg"`
	Max   []float64 `json:"max"`
}

// Summary selects the coarsest pyramid level whose in-window bin count
// is still >= maxPts, then stride-decimates it down to exactly
// min(bins_in_range, maxPts) points. f0 >= f1, or a window that misses
// the pyramid's axis entirely, collapses to an empty SummaryResponse
// rather than an error (spec.md §7's QueryRangeInvalid is a soft
// condition on this surface, not a hard failure).
func Summary(p tier.Pyramid, f0, f1 float64, maxPts int) SummaryResponse {
	if maxPts <= 0 {
		maxPts = 1
	}
	if f0 >= f1 || f1 < p.FStart || f0 > p.FStop {
		return SummaryResponse{}
	}
	lo, hi := f0, f1
	if lo < p.FStart {
		lo = p.FStart
	}
	if hi > p.FStop {
		hi = p.FStop
	}

	level, lo0, hi0 := chooseLevel(p, lo, hi, maxPts)
	if level.NBins == 0 || hi0 < lo0 {
		return SummaryResponse{}
	}

	nIn := hi0 - lo0 + 1
	nOut := nIn
	if nOut > maxPts {
		nOut = maxPts
	}

	freqs := binFreqs(p.FStart, p.FStop, level.NBins)
	out := SummaryResponse{
		Freqs: make([]float64, 0, nOut),
		Min:   make([]float64, 0, nOut),
		Avg:   make([]float64, 0, nOut),
		Max:   make([]float64, 0, nOut),
	}
	for k := 0; k < nOut; k++ {
		idx := lo0 + strideIndex(k, nOut, nIn)
		out.Freqs = append(out.Freqs, freqs[idx])
		out.Min = append(out.Min, level.Min[idx])
		out.Avg = append(out.Avg, level.Mean[idx])
		out.Max = append(out.Max, level.Max[idx])
	}
	return out
}

// chooseLevel picks the coarsest level whose [lo, hi] window still holds
// at least maxPts bins, and returns the level plus the inclusive bin
// index range covering [lo, hi] on that level's axis. Falls back to the
// finest level if every level undershoots maxPts.
func chooseLevel(p tier.Pyramid, lo, hi float64, maxPts int) (tier.Level, int, int) {
	best := p.Levels[0]
	bestLo, bestHi := windowIndices(p.FStart, p.FStop, best.NBins, lo, hi)
	for _, lvl := range p.Levels {
		l0, h0 := windowIndices(p.FStart, p.FStop, lvl.NBins, lo, hi)
		n := h0 - l0 + 1
		if n >= maxPts {
			best, bestLo, bestHi = lvl, l0, h0
		}
	}
	return best, bestLo, bestHi
}

// windowIndices returns the inclusive bin index range whose bin centers
// fall within [lo, hi] on an evenly spaced nBins-point axis over
// [fStart, fStop].
func windowIndices(fStart, fStop float64, nBins int, lo, hi float64) (int, int) {
	freqs := binFreqs(fStart, fStop, nBins)
	l0, h0 := -1, -1
	for i, f := range freqs {
		if f >= lo && l0 == -1 {
			l0 = i
		}
		if f <= hi {
			h0 = i
		}
	}
	if l0 == -1 {
		l0 = 0
	}
	if h0 == -1 {
		h0 = nBins - 1
	}
	if h0 < l0 {
		h0 = l0
	}
	return l0, h0
}

// binFreqs computes the evenly spaced bin-center frequency axis of an
// nBins-point pyramid level (spec.md §4.6: bins are equal-width over
// [f_start, f_stop]).
func binFreqs(fStart, fStop float64, nBins int) []float64 {
	out := make([]float64, nBins)
	if nBins == 1 {
		out[0] = fStart
		return out
	}
	step := (fStop - fStart) / float64(nBins-1)
	for i := range out {
		out[i] = fStart + float64(i)*step
	}
	return out
}

// strideIndex maps output position k of nOut evenly across [0, nIn) so
// the first and last samples of the window are always included.
func strideIndex(k, nOut, nIn int) int {
	if nOut <= 1 {
		return 0
	}
	idx := (k * (nIn - 1)) / (nOut - 1)
	if idx >= nIn {
		idx = nIn - 1
	}
	return idx
}
