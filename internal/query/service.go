package query

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cwsl/sdrindex/internal/manifest"
	"github.com/cwsl/sdrindex/internal/metrics"
	"github.com/cwsl/sdrindex/internal/quantise"
	"github.com/cwsl/sdrindex/internal/summary"
	"github.com/cwsl/sdrindex/internal/tier"
	"github.com/cwsl/sdrindex/internal/waterfall"
)

// Service is the id-keyed read-only surface spec.md §6's External
// Interfaces describe: list_bands(), get_summary(id,...),
// get_waterfall_tile(id,...), and detect_peaks(id,...). It answers
// queries against one sealed output directory by opening each band's
// artifacts on first use and keeping them mapped for the life of the
// Service.
//
// A build run's registry.Entry.ID is an in-process uuid that never
// reaches disk; a Service opened in a separate process from the batch
// command has no way to recover it, so band identity here is the
// artifact index itself, stringified, recovered by globbing
// meta_band*.json in dir (spec.md §6 does not mandate any particular id
// shape, only that list_bands() and the other three calls agree on one).
type Service struct {
	dir     string
	metrics *metrics.Query

	mu     sync.Mutex
	opened map[string]*openBand
}

// openBand is one band's lazily-opened artifact set.
type openBand struct {
	pyramid tier.Pyramid
	store   *waterfall.Store
	freqs   []float64
	relT    []int64
	triple  summary.Triple
	rng     quantise.Range
}

// Open prepares a Service over dir, a directory sealed by one or more
// build.Run calls. It does not eagerly open every band's artifacts;
// ListBands reads just the meta_bandN.json files, and the per-band calls
// open the rest on first use. m may be nil to disable metrics.
func Open(dir string, m *metrics.Query) (*Service, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("query: open %s: %w", dir, err)
	}
	return &Service{dir: dir, metrics: m, opened: make(map[string]*openBand)}, nil
}

// Close unmaps every band this Service has opened.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, ob := range s.opened {
		if ob.store == nil {
			continue
		}
		if err := ob.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ListBands is list_bands(): every sealed band's manifest, ordered by
// index.
func (s *Service) ListBands() ([]manifest.BandSummary, error) {
	indices, err := s.sealedIndices()
	if err != nil {
		return nil, err
	}
	out := make([]manifest.BandSummary, 0, len(indices))
	for _, idx := range indices {
		meta, err := manifest.ReadFile(s.metaPath(idx))
		if err != nil {
			return nil, fmt.Errorf("query: list_bands: %w", err)
		}
		out = append(out, manifest.BandSummary{ID: strconv.Itoa(idx), Index: idx, Meta: meta})
	}
	return out, nil
}

// sealedIndices returns every band index with a meta_bandN.json present
// in s.dir, ascending.
func (s *Service) sealedIndices() ([]int, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "meta_band*.json"))
	if err != nil {
		return nil, fmt.Errorf("query: glob %s: %w", s.dir, err)
	}
	indices := make([]int, 0, len(matches))
	for _, m := range matches {
		base := filepath.Base(m)
		trimmed := strings.TrimSuffix(strings.TrimPrefix(base, "meta_band"), ".json")
		idx, err := strconv.Atoi(trimmed)
		if err != nil {
			continue
		}
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices, nil
}

func (s *Service) metaPath(idx int) string {
	return filepath.Join(s.dir, fmt.Sprintf("meta_band%d.json", idx))
}

// band resolves id to its open artifact set, opening it on first use.
// An "unknown band id" error is returned (and s.metrics.NotFound incremented, if set)
// when id does not name a sealed band in s.dir.
func (s *Service) band(id string) (*openBand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ob, ok := s.opened[id]; ok {
		return ob, nil
	}

	idx, err := strconv.Atoi(id)
	if err != nil {
		return nil, s.notFound(id)
	}
	meta, err := manifest.ReadFile(s.metaPath(idx))
	if err != nil {
		return nil, s.notFound(id)
	}

	pyramid, err := tier.ReadFile(filepath.Join(s.dir, fmt.Sprintf("tiers_band%d.json", idx)))
	if err != nil {
		return nil, fmt.Errorf("query: band %s: %w", id, err)
	}
	store, err := waterfall.Open(filepath.Join(s.dir, fmt.Sprintf("waterfall_band%d.dat", idx)), meta.NTraces, meta.NFreqs)
	if err != nil {
		return nil, fmt.Errorf("query: band %s: %w", id, err)
	}
	freqs, err := waterfall.ReadFreqs(filepath.Join(s.dir, fmt.Sprintf("freqs0_band%d.bin", idx)))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("query: band %s: %w", id, err)
	}
	relT, err := waterfall.ReadRelTime(filepath.Join(s.dir, fmt.Sprintf("rel_t_band%d.bin", idx)))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("query: band %s: %w", id, err)
	}
	triple, err := summary.ReadFile(filepath.Join(s.dir, fmt.Sprintf("summary_band%d.arc", idx)))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("query: band %s: %w", id, err)
	}

	ob := &openBand{
		pyramid: pyramid,
		store:   store,
		freqs:   freqs,
		relT:    relT,
		triple:  triple,
		rng:     quantise.Range{DBMin: meta.DBMin, DBMax: meta.DBMax, Scale: meta.Scale},
	}
	s.opened[id] = ob
	return ob, nil
}

func (s *Service) notFound(id string) error {
	if s.metrics != nil {
		s.metrics.NotFound.Inc()
	}
	return fmt.Errorf("query: unknown band id %q", id)
}

// Summary is get_summary(id, f0, f1, max_points) of spec.md §4.7/§6.
func (s *Service) Summary(id string, f0, f1 float64, maxPts int) (SummaryResponse, error) {
	if s.metrics != nil {
		s.metrics.SummaryRequests.Inc()
	}
	ob, err := s.band(id)
	if err != nil {
		return SummaryResponse{}, err
	}
	resp := Summary(ob.pyramid, f0, f1, maxPts)
	if len(resp.Freqs) == 0 && s.metrics != nil {
		s.metrics.QueryRangeInvalid.Inc()
	}
	return resp, nil
}

// WaterfallTile is get_waterfall_tile(id, f0, f1, t0, t1, max_w, max_t)
// of spec.md §4.7/§6.
func (s *Service) WaterfallTile(id string, f0, f1 float64, t0, t1 int64, maxW, maxT int) (TileResponse, error) {
	if s.metrics != nil {
		s.metrics.TileRequests.Inc()
	}
	ob, err := s.band(id)
	if err != nil {
		return TileResponse{}, err
	}
	resp := WaterfallTile(ob.store, ob.freqs, ob.relT, ob.rng, f0, f1, t0, t1, maxW, maxT)
	if resp.PNG == nil && s.metrics != nil {
		s.metrics.QueryRangeInvalid.Inc()
	}
	return resp, nil
}

// Peaks is detect_peaks(id, curve, height?, prominence?, distance?, f0?,
// f1?) of spec.md §4.7/§6. curveName is "max"/"avg"/"min"; an
// unrecognized value is QueryRangeInvalid (empty result, no error),
// consistent with the query surface never panicking on bad input
// (spec.md §7). f0/f1 restrict the search to a frequency window; pass
// math.Inf(-1)/math.Inf(1) (or the band's own bounds) to search the
// whole band.
func (s *Service) Peaks(id, curveName string, minHeight, minProminence, minDistanceHz, f0, f1 float64, maxPeaks int) ([]Peak, error) {
	if s.metrics != nil {
		s.metrics.PeaksRequests.Inc()
	}
	ob, err := s.band(id)
	if err != nil {
		return nil, err
	}
	curve, err := ParseCurve(curveName)
	if err != nil {
		if s.metrics != nil {
			s.metrics.QueryRangeInvalid.Inc()
		}
		return nil, nil
	}
	vec := curve.pick(toFloat64(ob.triple.Min), toFloat64(ob.triple.Avg), toFloat64(ob.triple.Max))

	freqs, vec := windowCurve(ob.freqs, vec, f0, f1)
	if len(freqs) == 0 {
		if s.metrics != nil {
			s.metrics.QueryRangeInvalid.Inc()
		}
		return nil, nil
	}
	return Peaks(freqs, vec, minHeight, minProminence, minDistanceHz, maxPeaks), nil
}

// windowCurve restricts freqs/vec (indexed in lockstep) to [f0, f1],
// clamped to the data's own bounds. An empty or out-of-range window
// returns two empty slices.
func windowCurve(freqs, vec []float64, f0, f1 float64) ([]float64, []float64) {
	if len(freqs) == 0 || f0 >= f1 || f1 < freqs[0] || f0 > freqs[len(freqs)-1] {
		return nil, nil
	}
	lo, hi := f0, f1
	if lo < freqs[0] {
		lo = freqs[0]
	}
	if hi > freqs[len(freqs)-1] {
		hi = freqs[len(freqs)-1]
	}
	i0, i1 := windowIndices(freqs[0], freqs[len(freqs)-1], len(freqs), lo, hi)
	return freqs[i0 : i1+1], vec[i0 : i1+1]
}

func toFloat64(xs []float32) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}
