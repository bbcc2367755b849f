package query

import (
	"math"
	"testing"

	"github.com/cwsl/sdrindex/internal/summary"
	"github.com/cwsl/sdrindex/internal/tier"
)

func toneTriple(n int, toneIdx int) summary.Triple {
	max := make([]float32, n)
	avg := make([]float32, n)
	min := make([]float32, n)
	for i := range max {
		floor := float32(-90)
		max[i] = floor
		avg[i] = floor
		min[i] = floor - 1
	}
	max[toneIdx] = -70
	avg[toneIdx] = -70
	min[toneIdx] = -71
	return summary.Triple{Max: max, Avg: avg, Min: min}
}

func TestSummary_OutputWithinWindowAndCap(t *testing.T) {
	n := 4096
	fStart, fStop := 100.0e6, 100.1e6
	p := tier.Build(toneTriple(n, n/2), fStart, fStop, 256)

	resp := Summary(p, 100.04e6, 100.06e6, 50)
	if len(resp.Freqs) > 50 {
		t.Fatalf("output length %d exceeds max_pts 50", len(resp.Freqs))
	}
	if len(resp.Freqs) == 0 {
		t.Fatalf("expected non-empty response")
	}
	if resp.Freqs[0] < 100.04e6 {
		t.Fatalf("freqs[0] %v < f0", resp.Freqs[0])
	}
	if resp.Freqs[len(resp.Freqs)-1] > 100.06e6 {
		t.Fatalf("freqs[-1] %v > f1", resp.Freqs[len(resp.Freqs)-1])
	}
	for j := range resp.Max {
		if !(resp.Min[j] <= resp.Avg[j] && resp.Avg[j] <= resp.Max[j]) {
			t.Fatalf("min<=avg<=max violated at %d", j)
		}
	}

	toneFreq := fStart + float64(n/2)*(fStop-fStart)/float64(n-1)
	found := false
	for i := 1; i < len(resp.Max)-1; i++ {
		if resp.Max[i] >= resp.Max[i-1] && resp.Max[i] >= resp.Max[i+1] && resp.Max[i] > -80 {
			found = true
			// The decimated curve comes from a coarser tier, so "near the
			// tone" means within one bin of the returned curve.
			if math.Abs(resp.Freqs[i]-toneFreq) > resp.Freqs[i+1]-resp.Freqs[i] {
				t.Fatalf("peak bin %v far from tone %v", resp.Freqs[i], toneFreq)
			}
		}
	}
	if !found {
		t.Fatalf("expected a local maximum representing the tone in the decimated curve")
	}
}

func TestSummary_InvalidRangeCollapsesToEmpty(t *testing.T) {
	p := tier.Build(toneTriple(64, 32), 100e6, 100.1e6, 256)

	if resp := Summary(p, 200e6, 300e6, 10); len(resp.Freqs) != 0 {
		t.Fatalf("expected empty response for out-of-range window")
	}
	if resp := Summary(p, 100.05e6, 100.01e6, 10); len(resp.Freqs) != 0 {
		t.Fatalf("expected empty response for f0 >= f1")
	}
}
