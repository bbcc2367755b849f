package summary

import (
	"bytes"
	"testing"
)

func TestAggregatorInvariant(t *testing.T) {
	agg := NewAggregator(3)
	agg.Add([]float64{-90, -80, -70})
	agg.Add([]float64{-95, -75, -60})
	agg.Add([]float64{-85, -85, -65})

	tr := agg.Finalize()
	for j := range tr.Max {
		if !(tr.Min[j] <= tr.Avg[j] && tr.Avg[j] <= tr.Max[j]) {
			t.Fatalf("invariant violated at bin %d: min=%v avg=%v max=%v", j, tr.Min[j], tr.Avg[j], tr.Max[j])
		}
	}
	if tr.Max[1] != -75 {
		t.Fatalf("expected max[1]=-75, got %v", tr.Max[1])
	}
	if tr.Min[2] != -70 {
		t.Fatalf("expected min[2]=-70, got %v", tr.Min[2])
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	tr := Triple{
		Max: []float32{1, 2, 3},
		Avg: []float32{0.5, 1.5, 2.5},
		Min: []float32{0, 1, 2},
	}
	var buf bytes.Buffer
	if err := Write(&buf, tr); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for i := range tr.Max {
		if got.Max[i] != tr.Max[i] || got.Avg[i] != tr.Avg[i] || got.Min[i] != tr.Min[i] {
			t.Fatalf("round trip mismatch at %d: got %+v want %+v", i, got, tr)
		}
	}
}
