package query

import (
	"context"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/cwsl/sdrindex/internal/build"
	"github.com/cwsl/sdrindex/internal/decoder"
	"github.com/cwsl/sdrindex/internal/metrics"
	"github.com/cwsl/sdrindex/internal/registry"
	"github.com/cwsl/sdrindex/internal/trace"
)

type fakeOpener struct {
	chunks map[string][]trace.Record
}

func (f *fakeOpener) Open(path string) (decoder.Iterator, error) {
	return decoder.NewSliceIterator(f.chunks[path]), nil
}

func linspace(a, b float64, n int) []float64 {
	out := make([]float64, n)
	step := (b - a) / float64(n-1)
	for i := range out {
		out[i] = a + float64(i)*step
	}
	return out
}

// sealFixture runs the build driver over one tone-bearing band and
// returns the sealed output directory.
func sealFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	freqs := linspace(100e6, 100.1e6, 256)
	binWidth := (freqs[len(freqs)-1] - freqs[0]) / float64(len(freqs)-1)
	toneIdx := 128

	var chunk []trace.Record
	for i := 0; i < 50; i++ {
		power := make([]float64, len(freqs))
		for j := range power {
			power[j] = -90
		}
		power[toneIdx] = -50
		chunk = append(chunk, trace.Record{Timestamp: float64(i), Freqs: freqs, Power: power})
	}

	opener := &fakeOpener{chunks: map[string][]trace.Record{"c": chunk}}
	reg := registry.New()
	m := metrics.NewBuild(prometheus.NewRegistry())

	result, err := build.Run(context.Background(), opener, []string{"c"}, reg, m, build.Options{OutDir: dir, Seed: 1})
	if err != nil {
		t.Fatalf("build.Run: %v", err)
	}
	if result.BandsSealed != 1 {
		t.Fatalf("expected 1 sealed band, got %d", result.BandsSealed)
	}
	_ = binWidth
	return dir
}

func TestService_ListBandsReportsSealedBand(t *testing.T) {
	dir := sealFixture(t)
	svc, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer svc.Close()

	bands, err := svc.ListBands()
	if err != nil {
		t.Fatalf("ListBands: %v", err)
	}
	if len(bands) != 1 {
		t.Fatalf("expected 1 band, got %d", len(bands))
	}
	if bands[0].ID != "0" || bands[0].Index != 0 {
		t.Fatalf("expected id/index 0, got %+v", bands[0])
	}
	if bands[0].Meta.NTraces != 50 {
		t.Fatalf("expected n_traces=50, got %d", bands[0].Meta.NTraces)
	}
}

func TestService_SummaryByID(t *testing.T) {
	dir := sealFixture(t)
	svc, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer svc.Close()

	resp, err := svc.Summary("0", 100e6, 100.1e6, 64)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(resp.Freqs) == 0 {
		t.Fatalf("expected a non-empty summary")
	}
}

func TestService_WaterfallTileByID(t *testing.T) {
	dir := sealFixture(t)
	svc, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer svc.Close()

	resp, err := svc.WaterfallTile("0", 100e6, 100.1e6, 0, 49, 32, 16)
	if err != nil {
		t.Fatalf("WaterfallTile: %v", err)
	}
	if len(resp.PNG) == 0 {
		t.Fatalf("expected a non-empty PNG")
	}
}

func TestService_PeaksByID(t *testing.T) {
	dir := sealFixture(t)
	svc, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer svc.Close()

	peaks, err := svc.Peaks("0", "max", NoHeightFilter, 10, 1000, math.Inf(-1), math.Inf(1), 10)
	if err != nil {
		t.Fatalf("Peaks: %v", err)
	}
	if len(peaks) != 1 {
		t.Fatalf("expected exactly one peak, got %d", len(peaks))
	}
}

func TestService_UnknownIDIsNotFound(t *testing.T) {
	dir := sealFixture(t)
	promReg := prometheus.NewRegistry()
	qm := metrics.NewQuery(promReg)
	svc, err := Open(dir, qm)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer svc.Close()

	if _, err := svc.Summary("99", 0, math.Inf(1), 64); err == nil {
		t.Fatalf("expected an error for an unknown band id")
	}
	if got := testutil.ToFloat64(qm.NotFound); got != 1 {
		t.Fatalf("expected NotFound counter to be 1, got %v", got)
	}
}
