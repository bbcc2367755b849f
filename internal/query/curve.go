// Package query implements the read-only query surface of spec.md §4.7:
// summary sampling, waterfall tile extraction, and peak detection over
// sealed, memory-mapped artifacts. Nothing here mutates persisted state;
// invalid ranges collapse to an empty response rather than an error
// (spec.md §7).
package query

import "fmt"

// Curve selects which of the three summary vectors an operation reads
// from. Dispatch is a tagged selector, not polymorphism, per spec.md §9.
type Curve int

const (
	CurveMax Curve = iota
	CurveAvg
	CurveMin
)

// ParseCurve maps "max"/"avg"/"min" to a Curve. Any other input is a
// QueryRangeInvalid per SPEC_FULL.md §6 — the caller should treat the
// returned error as "collapse to an empty response", not a panic.
func ParseCurve(s string) (Curve, error) {
	switch s {
	case "max":
		return CurveMax, nil
	case "avg":
		return CurveAvg, nil
	case "min":
		return CurveMin, nil
	default:
		return 0, fmt.Errorf("query: unknown curve %q", s)
	}
}

func (c Curve) pick(min, avg, max []float64) []float64 {
	switch c {
	case CurveMax:
		return max
	case CurveMin:
		return min
	default:
		return avg
	}
}
