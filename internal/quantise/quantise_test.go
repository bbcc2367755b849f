package quantise

import (
	"math/rand"
	"testing"
)

func TestRangeRoundTrip(t *testing.T) {
	r := NewRange([]float64{-90, -80, -70, -60, -50}, MinMaxSelector())
	for _, db := range []float64{-90, -85.5, -70, -50} {
		q := r.Quantise(db)
		got := r.Dequantise(q)
		maxErr := (r.DBMax - r.DBMin) / 65534
		if diff := got - db; diff > maxErr+1e-9 || diff < -(maxErr+1e-9) {
			t.Fatalf("round trip error too large for %v: got %v (diff %v > %v)", db, got, diff, maxErr)
		}
	}
}

func TestQuantiseClips(t *testing.T) {
	r := Range{DBMin: -100, DBMax: -20, Scale: 65534.0 / 80}
	if q := r.Quantise(-1000); q != -32768 {
		t.Fatalf("expected clip to -32768, got %d", q)
	}
	if q := r.Quantise(1000); q != 32767 {
		t.Fatalf("expected clip to 32767, got %d", q)
	}
}

func TestReservoirExactWhenUnderCap(t *testing.T) {
	res := NewReservoir(1000, rand.New(rand.NewSource(1)))
	samples := []float64{1, 2, 3, 4, 5}
	res.AddAll(samples)
	if len(res.Samples()) != len(samples) {
		t.Fatalf("expected exact retention under cap, got %d of %d", len(res.Samples()), len(samples))
	}
}

func TestReservoirBoundedOverCap(t *testing.T) {
	res := NewReservoir(100, rand.New(rand.NewSource(1)))
	for i := 0; i < 10000; i++ {
		res.Add(float64(i))
	}
	if len(res.Samples()) != 100 {
		t.Fatalf("expected reservoir capped at 100, got %d", len(res.Samples()))
	}
	if res.Seen() != 10000 {
		t.Fatalf("expected Seen()=10000, got %d", res.Seen())
	}
}

func TestOutlierWidensLessThan10DB(t *testing.T) {
	// S6: reservoir contains an outlier at +200 dB.
	samples := make([]float64, 0, 1001)
	for i := 0; i < 1000; i++ {
		samples = append(samples, -90+float64(i%10))
	}
	samples = append(samples, 200)

	r := NewRange(samples, PercentileSelector(DefaultWidenDB))
	if r.DBMax-(-90+9) > 10 {
		t.Fatalf("expected db_max within 10dB of the body of the distribution, got db_max=%v", r.DBMax)
	}
	q := r.Quantise(200)
	if q < -32768 || q > 32767 {
		t.Fatalf("int16 overflow: %d", q)
	}
}
