package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appErrors "github.com/roomly/roombook-api/pkg/errors"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer,
// the scheduling engine and the commit protocol.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	schedulingRuns     *prometheus.CounterVec
	schedulingDuration prometheus.Observer
	scoredCandidates   prometheus.Observer

	commitAttempts *prometheus.CounterVec

	cacheLatency prometheus.Observer
	cacheWrite   prometheus.Observer
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
}

// NewMetricsService registers the collectors on a private registry.
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

	schedulingRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduling_runs_total",
		Help: "Scheduling runs partitioned by whether a recommendation was found",
	}, []string{"outcome"})

	schedulingDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduling_run_duration_seconds",
		Help:    "Duration of one scheduling run over the candidate cross-product",
		Buckets: prometheus.DefBuckets,
	})

	scoredCandidates := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduling_scored_candidates",
		Help:    "Feasible candidates scored per scheduling run",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
	})

	commitAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_commit_attempts_total",
		Help: "Booking commit attempts partitioned by result code",
	}, []string{"result"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, schedulingRuns, schedulingDuration, scoredCandidates, commitAttempts, cacheLatency, cacheWrite, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		schedulingRuns:     schedulingRuns,
		schedulingDuration: schedulingDuration,
		scoredCandidates:   scoredCandidates,
		commitAttempts:     commitAttempts,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
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

// ObserveSchedulingRun records one engine run.
func (m *MetricsService) ObserveSchedulingRun(recommended bool, scored int, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "recommended"
	if !recommended {
		outcome = "none"
	}
	m.schedulingRuns.WithLabelValues(outcome).Inc()
	m.schedulingDuration.Observe(duration.Seconds())
	m.scoredCandidates.Observe(float64(scored))
}

// ObserveCommitAttempt records one commit attempt keyed by its result code.
func (m *MetricsService) ObserveCommitAttempt(err error) {
	if m == nil {
		return
	}
	result := "committed"
	if err != nil {
		result = appErrors.FromError(err).Code
	}
	m.commitAttempts.WithLabelValues(result).Inc()
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks the duration of cache set operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}
