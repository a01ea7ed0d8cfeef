// Package metrics exposes Prometheus counters and histograms for the cache,
// the context store, generation and the HTTP boundary.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "kotae"

// Lookup and load outcomes used as label values.
const (
	ResultHit     = "hit"
	ResultMiss    = "miss"
	ResultError   = "error"
	ResultOK      = "ok"
	ResultTimeout = "timeout"
)

// LatencyBuckets covers local models answering in a few seconds up to the generation timeout.
var LatencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120}

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	CacheLookups        *prometheus.CounterVec
	CacheCorruptEntries prometheus.Counter
	CacheInserts        prometheus.Counter
	CacheScanned        prometheus.Histogram
	Generations         *prometheus.CounterVec
	GenerationLatency   prometheus.Histogram
	ContextLoads        *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
	HTTPLatency         *prometheus.HistogramVec
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "semcache_lookups_total",
			Help:      "Semantic cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		CacheCorruptEntries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "semcache_corrupt_entries_total",
			Help:      "Cache entries skipped during lookup because they could not be decoded",
		}),
		CacheInserts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "semcache_inserts_total",
			Help:      "Entries written to the semantic cache",
		}),
		CacheScanned: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "semcache_scanned_entries",
			Help:      "Entries compared per lookup",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		Generations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rag_generations_total",
			Help:      "Generation provider calls by result (ok, error, timeout)",
		}, []string{"result"}),
		GenerationLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rag_generation_seconds",
			Help:      "Generation provider latency in seconds",
			Buckets:   LatencyBuckets,
		}),
		ContextLoads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appctx_loads_total",
			Help:      "Knowledge-base loads by result (ok, error)",
		}, []string{"result"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   LatencyBuckets,
		}, []string{"route"}),
	}
}

// CacheLookup records one lookup outcome and how many entries it compared.
func (m *Metrics) CacheLookup(result string, scanned int) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
	if result != ResultError {
		m.CacheScanned.Observe(float64(scanned))
	}
}

// CorruptEntry counts one skipped cache entry.
func (m *Metrics) CorruptEntry() {
	if m == nil {
		return
	}
	m.CacheCorruptEntries.Inc()
}

// CacheInsert counts one cache write.
func (m *Metrics) CacheInsert() {
	if m == nil {
		return
	}
	m.CacheInserts.Inc()
}

// Generation records a provider call.
func (m *Metrics) Generation(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.Generations.WithLabelValues(result).Inc()
	m.GenerationLatency.Observe(d.Seconds())
}

// ContextLoad records a knowledge-base load attempt.
func (m *Metrics) ContextLoad(result string) {
	if m == nil {
		return
	}
	m.ContextLoads.WithLabelValues(result).Inc()
}
