package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Increment paths recorded by the activity pipeline.
const (
	IncrementPathBuffered = "buffered"
	IncrementPathDirect   = "direct"
	IncrementPathFallback = "fallback"
)

// MetricsService encapsulates Prometheus instrumentation for the rollup
// and counter pipelines.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec

	incrementsTotal     *prometheus.CounterVec
	drainBatches        prometheus.Counter
	drainedCourses      prometheus.Counter
	drainedFields       prometheus.Counter
	drainDuration       prometheus.Observer
	drainLockContention prometheus.Counter

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	incrementsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "activity_increments_total",
		Help: "Page-view increments by write path",
	}, []string{"path"})

	drainBatches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "activity_drain_batches_total",
		Help: "Completed buffered-increment drain attempts",
	})

	drainedCourses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "activity_drained_courses_total",
		Help: "Course hashes consolidated by the drainer",
	})

	drainedFields := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "activity_drained_fields_total",
		Help: "Counter fields applied to the durable store by the drainer",
	})

	drainDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "activity_drain_duration_seconds",
		Help:    "Wall time of buffered-increment drains",
		Buckets: prometheus.DefBuckets,
	})

	drainLockContention := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "activity_drain_lock_contention_total",
		Help: "Drain attempts skipped because the shard lease was held",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite,
		cacheHitRatio, cacheHits, cacheMisses, dbQueryDuration,
		incrementsTotal, drainBatches, drainedCourses, drainedFields,
		drainDuration, drainLockContention, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:            registry,
		handler:             handler,
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		cacheLatency:        cacheLatency,
		cacheWrite:          cacheWrite,
		cacheHitRatio:       cacheHitRatio,
		cacheHits:           cacheHits,
		cacheMisses:         cacheMisses,
		dbQueryDuration:     dbQueryDuration,
		incrementsTotal:     incrementsTotal,
		drainBatches:        drainBatches,
		drainedCourses:      drainedCourses,
		drainedFields:       drainedFields,
		drainDuration:       drainDuration,
		drainLockContention: drainLockContention,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache set operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordIncrement counts one page-view increment on the given write path.
func (m *MetricsService) RecordIncrement(path string) {
	if m == nil {
		return
	}
	m.incrementsTotal.WithLabelValues(path).Inc()
}

// RecordDrain records a completed drain attempt.
func (m *MetricsService) RecordDrain(courses, fields int, duration time.Duration) {
	if m == nil {
		return
	}
	m.drainBatches.Inc()
	m.drainedCourses.Add(float64(courses))
	m.drainedFields.Add(float64(fields))
	m.drainDuration.Observe(duration.Seconds())
}

// RecordDrainContention counts a drain attempt skipped due to a held lease.
func (m *MetricsService) RecordDrainContention() {
	if m == nil {
		return
	}
	m.drainLockContention.Inc()
}
