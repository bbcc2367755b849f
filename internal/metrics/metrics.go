// Package metrics instruments the build pipeline and query surface with
// Prometheus collectors: hand-built counters and histograms registered
// directly against a Registerer, not promauto.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Build holds the build-side collectors of SPEC_FULL.md §3/§6.
type Build struct {
	BandsSealed        prometheus.Counter
	BandsFailed        prometheus.Counter
	BandsEmptyDropped  prometheus.Counter
	RecordsSkipped     prometheus.Counter
	RecordsRejected    prometheus.Counter
	QuantiseDuration   prometheus.Histogram
}

// NewBuild creates and registers the build-side collectors against reg.
// Pass a fresh prometheus.NewRegistry() in tests to avoid collisions with
// the default global registry.
func NewBuild(reg prometheus.Registerer) *Build {
	b := &Build{
		BandsSealed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sdrindex_bands_sealed_total",
			Help: "Number of bands successfully sealed.",
		}),
		BandsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sdrindex_bands_failed_total",
			Help: "Number of bands that failed and were rolled back.",
		}),
		BandsEmptyDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sdrindex_bands_empty_dropped_total",
			Help: "Number of bands dropped for having zero accepted records.",
		}),
		RecordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sdrindex_records_skipped_total",
			Help: "Number of records skipped due to a per-record decode failure.",
		}),
		RecordsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sdrindex_records_rejected_total",
			Help: "Number of records rejected due to grid drift beyond tolerance.",
		}),
		QuantiseDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sdrindex_quantise_duration_seconds",
			Help:    "Time spent in a band's two-phase quantisation and store write.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(b.BandsSealed, b.BandsFailed, b.BandsEmptyDropped, b.RecordsSkipped, b.RecordsRejected, b.QuantiseDuration)
	return b
}

// Timer measures a duration and records it into a histogram on Stop.
type Timer struct {
	start time.Time
	obs   prometheus.Observer
}

// StartTimer begins timing against obs.
func StartTimer(obs prometheus.Observer) *Timer {
	return &Timer{start: time.Now(), obs: obs}
}

// Stop records the elapsed duration.
func (t *Timer) Stop() {
	t.obs.Observe(time.Since(t.start).Seconds())
}

// Query holds the query-side collectors.
type Query struct {
	SummaryRequests   prometheus.Counter
	TileRequests      prometheus.Counter
	PeaksRequests     prometheus.Counter
	QueryRangeInvalid prometheus.Counter
	NotFound          prometheus.Counter
}

// NewQuery creates and registers the query-side collectors against reg.
func NewQuery(reg prometheus.Registerer) *Query {
	q := &Query{
		SummaryRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sdrindex_query_summary_requests_total",
			Help: "Number of summary() calls served.",
		}),
		TileRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sdrindex_query_tile_requests_total",
			Help: "Number of waterfall_tile() calls served.",
		}),
		PeaksRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sdrindex_query_peaks_requests_total",
			Help: "Number of peaks() calls served.",
		}),
		QueryRangeInvalid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sdrindex_query_range_invalid_total",
			Help: "Number of queries that collapsed to an empty response due to an invalid range.",
		}),
		NotFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sdrindex_query_not_found_total",
			Help: "Number of queries against an unknown band id.",
		}),
	}
	reg.MustRegister(q.SummaryRequests, q.TileRequests, q.PeaksRequests, q.QueryRangeInvalid, q.NotFound)
	return q
}
