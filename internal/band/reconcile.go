package band

import "gonum.org/v1/gonum/interp"

// sameAxis reports whether got equals want bit-for-bit. Both slices are
// assumed to be the same length (same Key).
func sameAxis(got, want []float64) bool {
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// withinTolerance reports whether every sample of got is within relTol
// relative distance of the corresponding sample of want.
func withinTolerance(got, want []float64, relTol float64) bool {
	for i := range want {
		w := want[i]
		if w == 0 {
			if got[i] != 0 {
				return false
			}
			continue
		}
		diff := got[i] - w
		if diff < 0 {
			diff = -diff
		}
		if diff/absFloat(w) > relTol {
			return false
		}
	}
	return true
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// reconcile re-samples power, measured at freqs, onto the canonical
// frequency axis by piecewise-linear interpolation. Samples that fall
// outside [freqs[0], freqs[len-1]] are clamped to the nearest endpoint
// value. The result is deterministic and reproduces the original sample
// exactly at points that coincide with freqs.
func reconcile(freqs, power, canonical []float64) ([]float64, error) {
	var pl interp.PiecewiseLinear
	if err := pl.Fit(freqs, power); err != nil {
		return nil, err
	}

	lo, hi := freqs[0], freqs[len(freqs)-1]
	loVal, hiVal := power[0], power[len(power)-1]

	out := make([]float64, len(canonical))
	for i, f := range canonical {
		switch {
		case f <= lo:
			out[i] = loVal
		case f >= hi:
			out[i] = hiVal
		default:
			out[i] = pl.Predict(f)
		}
	}
	return out, nil
}
