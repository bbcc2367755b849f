package waterfall

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// WriteFreqs persists the canonical frequency axis as freqs0_bandN.bin:
// little-endian float64, length n_freqs (spec.md §6).
func WriteFreqs(path string, freqs []float64) error {
	buf := make([]byte, 8*len(freqs))
	for i, f := range freqs {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(f))
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("waterfall: write %s: %w", path, err)
	}
	return nil
}

// ReadFreqs loads a freqs0_bandN.bin file.
func ReadFreqs(path string) ([]float64, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("waterfall: read %s: %w", path, err)
	}
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("waterfall: %s has non-multiple-of-8 size %d", path, len(buf))
	}
	out := make([]float64, len(buf)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return out, nil
}

// RelTime computes rel_t[i] = floor(timestamp_i - unix0) as spec.md §3
// defines, for every row timestamp in order.
func RelTime(timestamps []float64, unix0 float64) []int64 {
	out := make([]int64, len(timestamps))
	for i, ts := range timestamps {
		out[i] = int64(math.Floor(ts - unix0))
	}
	return out
}

// WriteRelTime persists rel_t as rel_t_bandN.bin: little-endian int64,
// length n_traces, non-decreasing (spec.md §6).
func WriteRelTime(path string, relT []int64) error {
	buf := make([]byte, 8*len(relT))
	for i, t := range relT {
		binary.LittleEndian.PutUint64(buf[8*i:], uint64(t))
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("waterfall: write %s: %w", path, err)
	}
	return nil
}

// ReadRelTime loads a rel_t_bandN.bin file.
func ReadRelTime(path string) ([]int64, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("waterfall: read %s: %w", path, err)
	}
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("waterfall: %s has non-multiple-of-8 size %d", path, len(buf))
	}
	out := make([]int64, len(buf)/8)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return out, nil
}
