package quantise

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Range holds the dynamic-range parameters spec.md §3 attaches to a
// sealed band: db_min/db_max plus the derived int16 scale factor.
type Range struct {
	DBMin float64
	DBMax float64
	Scale float64
}

// RangeSelector computes (db_min, db_max) from a sample of observed power
// values. Isolating this behind a func type is what makes the Open
// Question of spec.md §9 (percentile vs. strict min/max) a one-function
// swap: see MinMaxSelector below for the alternative.
type RangeSelector func(samples []float64) (dbMin, dbMax float64)

// PercentileSelector returns a RangeSelector computing the 0.5th/99.5th
// percentile of the samples, widened by widenDB on each side — the
// robust-against-impulsive-interference method spec.md §4.3 and §9
// choose by default.
func PercentileSelector(widenDB float64) RangeSelector {
	return func(samples []float64) (float64, float64) {
		if len(samples) == 0 {
			return 0, 1
		}
		sorted := append([]float64(nil), samples...)
		sort.Float64s(sorted)
		p005 := stat.Quantile(0.005, stat.LinInterp, sorted, nil)
		p995 := stat.Quantile(0.995, stat.LinInterp, sorted, nil)
		return p005 - widenDB, p995 + widenDB
	}
}

// MinMaxSelector returns a RangeSelector using the exact min/max of the
// samples — the strict-compatibility alternative spec.md §9 notes an
// implementer may need instead, with the rest of the pipeline unaffected.
func MinMaxSelector() RangeSelector {
	return func(samples []float64) (float64, float64) {
		if len(samples) == 0 {
			return 0, 1
		}
		lo, hi := samples[0], samples[0]
		for _, v := range samples[1:] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		return lo, hi
	}
}

// DefaultWidenDB is the dB margin spec.md §4.3 adds on each side of the
// selected percentile range.
const DefaultWidenDB = 2.0

// NewRange derives a Range from samples using selector, guarding against a
// degenerate (zero-width) range.
func NewRange(samples []float64, selector RangeSelector) Range {
	dbMin, dbMax := selector(samples)
	if dbMax <= dbMin {
		dbMax = dbMin + 1
	}
	const int16Span = 65534 // -32768..32767 inclusive minus one code, per spec.md §3
	return Range{
		DBMin: dbMin,
		DBMax: dbMax,
		Scale: int16Span / (dbMax - dbMin),
	}
}
