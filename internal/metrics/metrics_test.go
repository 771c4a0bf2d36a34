package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/goliatone/go-timeoff/pkg/cachestore"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCacheRecorderCountsSources(t *testing.T) {
	store := "test-sources"
	rec := CacheRecorder{}

	rec.Record(store, "k", cachestore.SourceCache)
	rec.Record(store, "k", cachestore.SourceNetwork)
	rec.Record(store, "k", cachestore.SourceStale)
	rec.Record(store, "k", cachestore.SourceEmpty)
	rec.RecordResync(store)

	if got := testutil.ToFloat64(CacheRequests.WithLabelValues(store)); got != 4 {
		t.Fatalf("expected 4 requests, got %v", got)
	}
	if got := testutil.ToFloat64(CacheHits.WithLabelValues(store)); got != 1 {
		t.Fatalf("expected 1 hit, got %v", got)
	}
	if got := testutil.ToFloat64(CacheMisses.WithLabelValues(store)); got != 3 {
		t.Fatalf("expected 3 misses, got %v", got)
	}
	if got := testutil.ToFloat64(CacheStaleServed.WithLabelValues(store)); got != 1 {
		t.Fatalf("expected 1 stale, got %v", got)
	}
	if got := testutil.ToFloat64(CacheEmptyFailures.WithLabelValues(store)); got != 1 {
		t.Fatalf("expected 1 empty failure, got %v", got)
	}
	if got := testutil.ToFloat64(CacheResyncs.WithLabelValues(store)); got != 1 {
		t.Fatalf("expected 1 resync, got %v", got)
	}
}

func TestObserveHTTP(t *testing.T) {
	ObserveHTTP("/test-route", http.MethodGet, http.StatusTeapot, 10*time.Millisecond)
	got := testutil.ToFloat64(HTTPRequests.WithLabelValues("/test-route", http.MethodGet, "418"))
	if got != 1 {
		t.Fatalf("expected 1 request, got %v", got)
	}
}
