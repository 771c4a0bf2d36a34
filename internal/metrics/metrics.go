package metrics

import (
	"strconv"
	"time"

	"github.com/goliatone/go-timeoff/pkg/cachestore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Client store counters, labelled by store name
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeoff_cache_requests_total",
			Help: "Total number of store fetches",
		},
		[]string{"store"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeoff_cache_hits_total",
			Help: "Fetches served from a fresh entry",
		},
		[]string{"store"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeoff_cache_misses_total",
			Help: "Fetches that went to the network",
		},
		[]string{"store"},
	)

	CacheStaleServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeoff_cache_stale_served_total",
			Help: "Failed fetches answered with a stale entry",
		},
		[]string{"store"},
	)

	CacheEmptyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeoff_cache_empty_failures_total",
			Help: "Failed fetches with nothing cached to fall back on",
		},
		[]string{"store"},
	)

	CacheResyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeoff_cache_resyncs_total",
			Help: "Resyncs triggered by failed optimistic mutations",
		},
		[]string{"store"},
	)

	// REST layer
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeoff_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"route", "method", "code"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timeoff_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

// CacheRecorder feeds cachestore outcomes into the counters above.
type CacheRecorder struct{}

var (
	_ cachestore.Recorder       = CacheRecorder{}
	_ cachestore.ResyncRecorder = CacheRecorder{}
)

// Record counts one fetch outcome.
func (CacheRecorder) Record(store, key string, source cachestore.Source) {
	CacheRequests.WithLabelValues(store).Inc()
	switch source {
	case cachestore.SourceCache:
		CacheHits.WithLabelValues(store).Inc()
	case cachestore.SourceNetwork:
		CacheMisses.WithLabelValues(store).Inc()
	case cachestore.SourceStale:
		CacheMisses.WithLabelValues(store).Inc()
		CacheStaleServed.WithLabelValues(store).Inc()
	case cachestore.SourceEmpty:
		CacheMisses.WithLabelValues(store).Inc()
		CacheEmptyFailures.WithLabelValues(store).Inc()
	}
}

// RecordResync counts a resync after a failed mutation.
func (CacheRecorder) RecordResync(store string) {
	CacheResyncs.WithLabelValues(store).Inc()
}

// ObserveHTTP records one served request.
func ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	HTTPDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
