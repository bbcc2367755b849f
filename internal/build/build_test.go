package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cwsl/sdrindex/internal/decoder"
	"github.com/cwsl/sdrindex/internal/manifest"
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

func TestRun_SingleGridMergesIntoOneBand(t *testing.T) {
	dir := t.TempDir()
	freqs := linspace(100e6, 100.1e6, 1024)

	var chunk1, chunk2 []trace.Record
	for i := 0; i < 100; i++ {
		power := make([]float64, len(freqs))
		for j := range power {
			power[j] = -90
		}
		chunk1 = append(chunk1, trace.Record{Timestamp: float64(i), Freqs: freqs, Power: power})
		chunk2 = append(chunk2, trace.Record{Timestamp: float64(i + 100), Freqs: freqs, Power: power})
	}

	opener := &fakeOpener{chunks: map[string][]trace.Record{"chunk1": chunk1, "chunk2": chunk2}}
	reg := registry.New()
	m := metrics.NewBuild(prometheus.NewRegistry())

	result, err := Run(context.Background(), opener, []string{"chunk1", "chunk2"}, reg, m, Options{OutDir: dir, Seed: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.BandsSealed != 1 {
		t.Fatalf("expected 1 sealed band, got %d", result.BandsSealed)
	}
	if result.Manifests[0].Meta.NTraces != 200 {
		t.Fatalf("expected n_traces=200, got %d", result.Manifests[0].Meta.NTraces)
	}
	if result.Manifests[0].Meta.NFreqs != 1024 {
		t.Fatalf("expected n_freqs=1024, got %d", result.Manifests[0].Meta.NFreqs)
	}

	info, err := os.Stat(filepath.Join(dir, "waterfall_band0.dat"))
	if err != nil {
		t.Fatalf("stat waterfall_band0.dat: %v", err)
	}
	if want := int64(200 * 1024 * 2); info.Size() != want {
		t.Fatalf("waterfall_band0.dat size = %d, want %d", info.Size(), want)
	}

	meta, err := manifest.ReadFile(filepath.Join(dir, "meta_band0.json"))
	if err != nil {
		t.Fatalf("ReadFile meta: %v", err)
	}
	if meta.NTraces != 200 {
		t.Fatalf("persisted meta n_traces = %d, want 200", meta.NTraces)
	}

	for _, name := range []string{"freqs0_band0.bin", "rel_t_band0.bin", "summary_band0.arc", "tiers_band0.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected artifact %s to exist: %v", name, err)
		}
	}
}

func TestRun_DistinctNFreqsProduceTwoIndependentBands(t *testing.T) {
	dir := t.TempDir()
	freqsA := linspace(100e6, 100.1e6, 1024)
	freqsB := linspace(100e6, 100.1e6, 1025)

	mkRecord := func(freqs []float64, ts float64) trace.Record {
		power := make([]float64, len(freqs))
		for j := range power {
			power[j] = -90
		}
		return trace.Record{Timestamp: ts, Freqs: freqs, Power: power}
	}

	chunk := []trace.Record{mkRecord(freqsA, 0), mkRecord(freqsB, 0), mkRecord(freqsA, 1), mkRecord(freqsB, 1)}
	opener := &fakeOpener{chunks: map[string][]trace.Record{"c": chunk}}
	reg := registry.New()
	m := metrics.NewBuild(prometheus.NewRegistry())

	result, err := Run(context.Background(), opener, []string{"c"}, reg, m, Options{OutDir: dir, Seed: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.BandsSealed != 2 {
		t.Fatalf("expected 2 sealed bands, got %d", result.BandsSealed)
	}

	indices := map[int]bool{}
	for _, mf := range result.Manifests {
		indices[mf.Index] = true
	}
	if !indices[0] || !indices[1] {
		t.Fatalf("expected band indices 0 and 1, got %v", indices)
	}
}

// TestRun_IndexAssignmentIsDeterministicAcrossRuns pins down the fix for
// the index-assignment race: since bands are sealed concurrently, index
// must come from classifier.Bands()'s first-seen order, not from
// whichever goroutine happens to call Register first. Running the same
// input twice must put the same band (here, identified by its n_freqs)
// at the same index both times.
func TestRun_IndexAssignmentIsDeterministicAcrossRuns(t *testing.T) {
	freqsA := linspace(100e6, 100.1e6, 1024)
	freqsB := linspace(100e6, 100.1e6, 1025)

	mkRecord := func(freqs []float64, ts float64) trace.Record {
		power := make([]float64, len(freqs))
		for j := range power {
			power[j] = -90
		}
		return trace.Record{Timestamp: ts, Freqs: freqs, Power: power}
	}
	chunk := []trace.Record{mkRecord(freqsA, 0), mkRecord(freqsB, 0), mkRecord(freqsA, 1), mkRecord(freqsB, 1)}

	indexForNFreqs := func() map[int]int {
		dir := t.TempDir()
		opener := &fakeOpener{chunks: map[string][]trace.Record{"c": chunk}}
		reg := registry.New()
		m := metrics.NewBuild(prometheus.NewRegistry())

		result, err := Run(context.Background(), opener, []string{"c"}, reg, m, Options{OutDir: dir, Seed: 1})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		out := make(map[int]int)
		for _, mf := range result.Manifests {
			out[mf.Meta.NFreqs] = mf.Index
		}
		return out
	}

	first := indexForNFreqs()
	for i := 0; i < 5; i++ {
		got := indexForNFreqs()
		if got[1024] != first[1024] || got[1025] != first[1025] {
			t.Fatalf("run %d: index assignment drifted: got %v, want %v", i, got, first)
		}
	}
}

// TestRun_RebuildIsIdempotent runs the same inputs through the output
// directory twice and requires every sealed artifact to come out
// byte-identical the second time (spec.md §8 property 6).
func TestRun_RebuildIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	freqs := linspace(100e6, 100.1e6, 512)

	var chunk []trace.Record
	for i := 0; i < 40; i++ {
		power := make([]float64, len(freqs))
		for j := range power {
			power[j] = -90 + float64(j%7)
		}
		chunk = append(chunk, trace.Record{Timestamp: float64(i), Freqs: freqs, Power: power})
	}
	opener := &fakeOpener{chunks: map[string][]trace.Record{"c": chunk}}

	readAll := func() map[string][]byte {
		names := []string{
			"waterfall_band0.dat", "meta_band0.json", "freqs0_band0.bin",
			"rel_t_band0.bin", "summary_band0.arc", "tiers_band0.json",
		}
		out := make(map[string][]byte, len(names))
		for _, name := range names {
			b, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				t.Fatalf("read %s: %v", name, err)
			}
			out[name] = b
		}
		return out
	}

	reg1 := registry.New()
	m1 := metrics.NewBuild(prometheus.NewRegistry())
	if _, err := Run(context.Background(), opener, []string{"c"}, reg1, m1, Options{OutDir: dir, Seed: 7}); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	first := readAll()

	reg2 := registry.New()
	m2 := metrics.NewBuild(prometheus.NewRegistry())
	if _, err := Run(context.Background(), opener, []string{"c"}, reg2, m2, Options{OutDir: dir, Seed: 7}); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	second := readAll()

	for name, want := range first {
		got := second[name]
		if len(got) != len(want) {
			t.Fatalf("%s: length changed across rebuild: %d vs %d", name, len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("%s: byte %d differs across rebuild", name, i)
			}
		}
	}
}

func TestRun_EmptyChunkListIsInputMissing(t *testing.T) {
	dir := t.TempDir()
	opener := &fakeOpener{chunks: map[string][]trace.Record{}}
	reg := registry.New()
	m := metrics.NewBuild(prometheus.NewRegistry())

	_, err := Run(context.Background(), opener, nil, reg, m, Options{OutDir: dir})
	if err == nil {
		t.Fatalf("expected InputMissing error")
	}
	var buildErr *Error
	if !errors.As(err, &buildErr) || buildErr.Kind != InputMissing {
		t.Fatalf("expected InputMissing, got %v", err)
	}
}
