// Package summary implements the per-band summary aggregator of spec.md
// §4.5: column-wise max/min and a Welford running mean across all rows,
// computed in float32 space from the band's float-precision power (not
// from the quantised int16 store, to preserve resolution).
package summary

// Triple holds the three per-frequency-bin vectors spec.md §3's
// SummaryTriple defines.
type Triple struct {
	Max []float32
	Avg []float32
	Min []float32
}

// Aggregator accumulates a Triple one row at a time.
type Aggregator struct {
	n     int64
	max   []float64
	min   []float64
	mean  []float64 // Welford running mean, kept in float64 to avoid drift
	nCols int
}

// NewAggregator creates an aggregator over nFreqs frequency bins.
func NewAggregator(nFreqs int) *Aggregator {
	return &Aggregator{nCols: nFreqs}
}

// Add folds one row (length nFreqs, in dB) into the running statistics.
func (a *Aggregator) Add(row []float64) {
	if a.max == nil {
		a.max = append([]float64(nil), row...)
		a.min = append([]float64(nil), row...)
		a.mean = append([]float64(nil), row...)
		a.n = 1
		return
	}
	a.n++
	for j, v := range row {
		if v > a.max[j] {
			a.max[j] = v
		}
		if v < a.min[j] {
			a.min[j] = v
		}
		// Welford update: mean += (x - mean) / n
		a.mean[j] += (v - a.mean[j]) / float64(a.n)
	}
}

// Finalize returns the accumulated Triple as float32 vectors. Calling it
// before any Add produces three nFreqs-length vectors of zeros.
func (a *Aggregator) Finalize() Triple {
	t := Triple{
		Max: make([]float32, a.nCols),
		Avg: make([]float32, a.nCols),
		Min: make([]float32, a.nCols),
	}
	for j := 0; j < a.nCols; j++ {
		if a.max != nil {
			t.Max[j] = float32(a.max[j])
			t.Avg[j] = float32(a.mean[j])
			t.Min[j] = float32(a.min[j])
		}
	}
	return t
}
