package query

import (
	"math"
	"testing"
)

func TestPeaks_SingleToneAboveNoiseFloor(t *testing.T) {
	n := 1024
	fStart, fStop := 100.0e6, 100.1e6
	binWidth := (fStop - fStart) / float64(n-1)
	toneIdx := int(math.Round((100.05e6 - fStart) / binWidth))

	freqs := make([]float64, n)
	curve := make([]float64, n)
	for i := range freqs {
		freqs[i] = fStart + float64(i)*binWidth
		curve[i] = -90
	}
	curve[toneIdx] = -70

	peaks := Peaks(freqs, curve, NoHeightFilter, 10, 2*binWidth, 10)
	if len(peaks) != 1 {
		t.Fatalf("expected exactly one peak, got %d", len(peaks))
	}
	if diff := peaks[0].Freq - 100.05e6; diff > binWidth/2 || diff < -binWidth/2 {
		t.Fatalf("peak freq %v too far from tone: diff %v > %v", peaks[0].Freq, diff, binWidth/2)
	}
}

func TestPeaks_BelowProminenceIsIgnored(t *testing.T) {
	n := 64
	freqs := make([]float64, n)
	curve := make([]float64, n)
	for i := range freqs {
		freqs[i] = float64(i)
		curve[i] = -90
	}
	curve[32] = -85 // only 5 dB above floor

	peaks := Peaks(freqs, curve, NoHeightFilter, 10, 1, 10)
	if len(peaks) != 0 {
		t.Fatalf("expected no peaks below prominence threshold, got %d", len(peaks))
	}
}

func TestPeaks_HeightFiltersLowPeaks(t *testing.T) {
	n := 64
	freqs := make([]float64, n)
	curve := make([]float64, n)
	for i := range freqs {
		freqs[i] = float64(i)
		curve[i] = -90
	}
	curve[20] = -60 // clears height
	curve[40] = -75 // high enough prominence, too weak to clear height

	peaks := Peaks(freqs, curve, -65, 10, 1, 10)
	if len(peaks) != 1 {
		t.Fatalf("expected exactly one peak above the height floor, got %d", len(peaks))
	}
	if peaks[0].Freq != 20 {
		t.Fatalf("expected the peak at freq 20, got %v", peaks[0].Freq)
	}
}

func TestPeaks_MinDistanceSuppressesWeakerNeighbor(t *testing.T) {
	n := 64
	freqs := make([]float64, n)
	curve := make([]float64, n)
	for i := range freqs {
		freqs[i] = float64(i)
		curve[i] = -90
	}
	curve[30] = -60
	curve[32] = -65

	peaks := Peaks(freqs, curve, NoHeightFilter, 10, 5, 10)
	if len(peaks) != 1 {
		t.Fatalf("expected the closer, weaker peak suppressed, got %d peaks", len(peaks))
	}
	if peaks[0].Freq != 30 {
		t.Fatalf("expected the stronger peak at freq 30, got %v", peaks[0].Freq)
	}
}
