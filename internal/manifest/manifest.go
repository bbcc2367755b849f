// Package manifest implements the metadata emitter of spec.md §4.7 and the
// meta_bandN.json / BandManifest contract of spec.md §6.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
)

// Meta is meta_bandN.json, with exactly the keys spec.md §6 names.
type Meta struct {
	DBMin   float64 `json:"db_min"`
	DBMax   float64 `json:"db_max"`
	Scale   float64 `json:"scale"`
	NTraces int     `json:"n_traces"`
	NFreqs  int     `json:"n_freqs"`
	FStart  float64 `json:"f_start"`
	FStop   float64 `json:"f_stop"`
	Unix0   float64 `json:"unix0"`
	Levels  []int   `json:"levels"`
}

// WriteFile persists a Meta as meta_bandN.json.
func WriteFile(path string, m Meta) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("manifest: create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("manifest: encode %s: %w", path, err)
	}
	return f.Sync()
}

// ReadFile loads a Meta from a meta_bandN.json file.
func ReadFile(path string) (Meta, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Meta{}, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	var m Meta
	if err := json.Unmarshal(b, &m); err != nil {
		return Meta{}, fmt.Errorf("manifest: decode %s: %w", path, err)
	}
	return m, nil
}

// BandSummary is the list_bands() entry of spec.md §6, with fields for
// the per-band skip/reject counters implied by spec.md §7. Only the
// build driver's Result fills RejectedRecords; SkippedRecords is never
// filled (skips are counted run-wide, not per band), and neither counter
// is persisted, so query.Service.ListBands reports both as zero.
type BandSummary struct {
	ID              string `json:"id"`
	Index           int    `json:"index"`
	Meta            Meta   `json:"meta"`
	RejectedRecords int    `json:"rejected_records"`
	SkippedRecords  int    `json:"skipped_records"`
}
