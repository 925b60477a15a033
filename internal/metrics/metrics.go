package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	EventsIngested *prometheus.CounterVec
	Digests        *prometheus.CounterVec
	DigestErrors   *prometheus.CounterVec
	DigestDuration *prometheus.HistogramVec
	CacheHits      *prometheus.CounterVec
}

// New registers the collectors with reg. Tests pass a fresh
// prometheus.NewRegistry(); main passes prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EventsIngested: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sorters_events_ingested_total",
			Help: "Number of events accepted by the ingestion endpoint",
		}, []string{"type"}),
		Digests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sorters_digests_total",
			Help: "Number of digests computed",
		}, []string{"feed"}),
		DigestErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sorters_digest_errors_total",
			Help: "Number of digests that failed",
		}, []string{"feed", "kind"}),
		DigestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sorters_digest_duration_seconds",
			Help:    "Time spent loading, digesting and rendering a feed",
			Buckets: prometheus.DefBuckets,
		}, []string{"feed"}),
		CacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sorters_feed_cache_hits_total",
			Help: "Number of feed requests served from cache",
		}, []string{"feed"}),
	}
}
