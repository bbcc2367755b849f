package query

import (
	"math"
	"sort"
)

// NoHeightFilter passed as minHeight disables the height filter entirely,
// keeping every peak regardless of its absolute power. math.Inf isn't a
// compile-time constant, so this is a package-level var, not a const.
var NoHeightFilter = math.Inf(-1)

// Peak is one detected local maximum of spec.md §4.7's peaks() surface.
type Peak struct {
	Freq       float64 `json:"freq"`
	Power      float64 `json:"power"`
	Prominence float64 `json:"prominence"`
}

// Peaks finds local maxima in curve (indexed in lockstep with freqs) and
// keeps those passing all three independent filters spec.md §4.7 names:
// minHeight (absolute power floor; pass NoHeightFilter to disable),
// minProminence (dB above the higher of its two flanking troughs), and
// minDistanceHz, applied last by greedily suppressing any peak within
// minDistanceHz of a stronger one already kept. Results are returned
// strongest-first, capped at maxPeaks. No pack example implements peak
// detection; this is a standard-library-only construction (DESIGN.md
// notes the justification).
func Peaks(freqs, curve []float64, minHeight, minProminence, minDistanceHz float64, maxPeaks int) []Peak {
	if len(freqs) != len(curve) || len(curve) < 3 {
		return nil
	}

	var candidates []Peak
	for i := 1; i < len(curve)-1; i++ {
		if curve[i] <= curve[i-1] || curve[i] <= curve[i+1] {
			continue
		}
		if curve[i] < minHeight {
			continue
		}
		prom := prominence(curve, i)
		if prom < minProminence {
			continue
		}
		candidates = append(candidates, Peak{Freq: freqs[i], Power: curve[i], Prominence: prom})
	}

	sort.Slice(candidates, func(a, b int) bool { return candidates[a].Power > candidates[b].Power })

	var kept []Peak
	for _, c := range candidates {
		if maxPeaks > 0 && len(kept) >= maxPeaks {
			break
		}
		tooClose := false
		for _, k := range kept {
			if absFloat(c.Freq-k.Freq) < minDistanceHz {
				tooClose = true
				break
			}
		}
		if !tooClose {
			kept = append(kept, c)
		}
	}
	return kept
}

// prominence is the height of curve[i] above the higher of the two
// nearest troughs on either side, the standard topographic-prominence
// definition restricted to this one curve (no saddle search across
// neighboring peaks).
func prominence(curve []float64, i int) float64 {
	leftMin := curve[i]
	for j := i - 1; j >= 0; j-- {
		if curve[j] > curve[i] {
			break
		}
		if curve[j] < leftMin {
			leftMin = curve[j]
		}
	}
	rightMin := curve[i]
	for j := i + 1; j < len(curve); j++ {
		if curve[j] > curve[i] {
			break
		}
		if curve[j] < rightMin {
			rightMin = curve[j]
		}
	}
	base := leftMin
	if rightMin > base {
		base = rightMin
	}
	return curve[i] - base
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
