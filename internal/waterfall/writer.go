package waterfall

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cwsl/sdrindex/internal/quantise"
	"github.com/cwsl/sdrindex/internal/summary"
)

// Row is one input row to the writer: a timestamp and power samples
// already aligned onto a band's canonical frequency axis.
type Row struct {
	Timestamp float64
	Power     []float64
}

// BuildInput is everything Build needs to seal one band's
// waterfall_bandN.dat and compute its summary and rel_t. Build writes
// only the .dat file; the caller persists the summary, rel_t and freqs0
// files.
type BuildInput struct {
	Dir       string
	Index     int
	Canonical []float64 // canonical frequency axis, length n_freqs
	Rows      []Row     // time-ordered (already sorted + tie-broken)
	Unix0     float64
	Reservoir *quantise.Reservoir
	Selector  quantise.RangeSelector
}

// BuildOutput is what a sealed band publishes back to the build driver.
type BuildOutput struct {
	Range   quantise.Range
	Summary summary.Triple
	RelTime []int64
	NTraces int
	NFreqs  int
}

func bandPaths(dir string, index int) (scratch, finalTmp, final string) {
	scratch = filepath.Join(dir, fmt.Sprintf(".scratch_band%d.tmp", index))
	final = filepath.Join(dir, fmt.Sprintf("waterfall_band%d.dat", index))
	finalTmp = final + ".tmp"
	return
}

// Build runs the two-phase pipeline of spec.md §4.4: stream rows to a
// zstd-compressed float32 scratch file while feeding the quantiser's
// reservoir, derive the dynamic range, then rewrite the scratch rows into
// the sealed int16 store while accumulating the summary aggregator in
// float32 space. The final store is published via rename-on-complete; any
// failure rolls back every partial output for this band (spec.md §7's
// IOFailure policy).
func Build(in BuildInput) (out BuildOutput, err error) {
	nTraces := len(in.Rows)
	nFreqs := len(in.Canonical)
	scratchPath, finalTmp, finalPath := bandPaths(in.Dir, in.Index)

	rollback := func() {
		os.Remove(scratchPath)
		os.Remove(finalTmp)
		os.Remove(finalPath)
	}
	defer func() {
		if err != nil {
			rollback()
		}
	}()

	if nTraces == 0 {
		return BuildOutput{}, fmt.Errorf("waterfall: empty band (0 accepted rows)")
	}

	// Phase 1: stream to scratch, accumulate the quantiser reservoir.
	quantiser := quantise.New(in.Reservoir, in.Selector)
	sw, err := newScratchWriter(scratchPath)
	if err != nil {
		return BuildOutput{}, err
	}
	for _, row := range in.Rows {
		quantiser.Observe(row.Power)
		if err = sw.WriteRow(toFloat32(row.Power)); err != nil {
			sw.Close()
			return BuildOutput{}, fmt.Errorf("waterfall: write scratch row: %w", err)
		}
	}
	if err = sw.Close(); err != nil {
		return BuildOutput{}, err
	}

	rng := quantiser.Finalize()

	// Phase 2: re-read scratch sequentially, quantise into the sealed
	// store, and accumulate the summary in the same float32 space the
	// scratch file already holds (not from the int16 we're producing).
	sr, err := openScratchReader(scratchPath)
	if err != nil {
		return BuildOutput{}, err
	}
	defer sr.Close()

	f, data, err := createSealed(finalTmp, nTraces, nFreqs)
	if err != nil {
		return BuildOutput{}, err
	}
	defer f.Close()

	agg := summary.NewAggregator(nFreqs)
	for i := 0; i < nTraces; i++ {
		row, rerr := sr.ReadRow(nFreqs)
		if rerr != nil {
			err = fmt.Errorf("waterfall: read scratch row %d: %w", i, rerr)
			return BuildOutput{}, err
		}

		quantised := make([]int16, nFreqs)
		rowF64 := make([]float64, nFreqs)
		for j, v := range row {
			quantised[j] = rng.Quantise(float64(v))
			rowF64[j] = float64(v)
		}
		if nTraces > 0 {
			writeRow(data, i, nFreqs, quantised)
		}
		agg.Add(rowF64)
	}

	if data != nil {
		if merr := syncMmap(data); merr != nil {
			err = fmt.Errorf("waterfall: sync mmap: %w", merr)
			return BuildOutput{}, err
		}
		if merr := unmap(data); merr != nil {
			err = fmt.Errorf("waterfall: munmap: %w", merr)
			return BuildOutput{}, err
		}
	}
	if cerr := f.Close(); cerr != nil {
		err = fmt.Errorf("waterfall: close %s: %w", finalTmp, cerr)
		return BuildOutput{}, err
	}

	// Rename-on-complete: the sealed name never exists until every row is
	// written (spec.md §4.4).
	if rerr := os.Rename(finalTmp, finalPath); rerr != nil {
		err = fmt.Errorf("waterfall: rename %s -> %s: %w", finalTmp, finalPath, rerr)
		return BuildOutput{}, err
	}

	os.Remove(scratchPath)

	timestamps := make([]float64, nTraces)
	for i, row := range in.Rows {
		timestamps[i] = row.Timestamp
	}

	return BuildOutput{
		Range:   rng,
		Summary: agg.Finalize(),
		RelTime: RelTime(timestamps, in.Unix0),
		NTraces: nTraces,
		NFreqs:  nFreqs,
	}, nil
}

func toFloat32(xs []float64) []float32 {
	out := make([]float32, len(xs))
	for i, x := range xs {
		out[i] = float32(x)
	}
	return out
}
