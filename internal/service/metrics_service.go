package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/coaching-notes-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides
// lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	accessDecisions *prometheus.CounterVec
	accessDenials   *prometheus.CounterVec
	auditEntries    prometheus.Counter
	bulkItems       *prometheus.CounterVec
	retentionNotes  *prometheus.CounterVec
	exportNotes     *prometheus.CounterVec
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	decisionCount        uint64
	denialCount          uint64
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

	accessDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "access_decisions_total",
		Help: "Access-control evaluations by action and outcome",
	}, []string{"action", "outcome"})

	accessDenials := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "access_denials_total",
		Help: "Access denials by machine-readable reason",
	}, []string{"reason"})

	auditEntries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_entries_total",
		Help: "Audit ledger appends",
	})

	bulkItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bulk_items_total",
		Help: "Bulk operation item outcomes",
	}, []string{"kind", "result"})

	retentionNotes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "retention_notes_total",
		Help: "Notes flagged or deleted by retention passes",
	}, []string{"outcome"})

	exportNotes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "export_notes_total",
		Help: "Notes included in or skipped from exports",
	}, []string{"result"})

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

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, accessDecisions, accessDenials,
		auditEntries, bulkItems, retentionNotes, exportNotes,
		cacheHitRatio, cacheHits, cacheMisses, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		accessDecisions: accessDecisions,
		accessDenials:   accessDenials,
		auditEntries:    auditEntries,
		bulkItems:       bulkItems,
		retentionNotes:  retentionNotes,
		exportNotes:     exportNotes,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
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

// ObserveHTTPRequest records request metrics and aggregates simple stats
// for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordDecision counts one access-control evaluation.
func (m *MetricsService) RecordDecision(action models.Action, decision models.Decision) {
	if m == nil {
		return
	}
	outcome := "allow"
	if !decision.Allowed {
		outcome = "deny"
		m.accessDenials.WithLabelValues(decision.Reason).Inc()
		atomic.AddUint64(&m.denialCount, 1)
	}
	m.accessDecisions.WithLabelValues(string(action), outcome).Inc()
	atomic.AddUint64(&m.decisionCount, 1)
}

// RecordAuditAppend counts one ledger append.
func (m *MetricsService) RecordAuditAppend() {
	if m == nil {
		return
	}
	m.auditEntries.Inc()
}

// RecordBulkItem counts one per-note bulk outcome.
func (m *MetricsService) RecordBulkItem(kind models.BulkKind, success bool) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.bulkItems.WithLabelValues(string(kind), result).Inc()
}

// RecordRetention counts retention pass outcomes.
func (m *MetricsService) RecordRetention(flagged, deleted int) {
	if m == nil {
		return
	}
	m.retentionNotes.WithLabelValues("flagged").Add(float64(flagged))
	m.retentionNotes.WithLabelValues("deleted").Add(float64(deleted))
}

// RecordExport counts exported and skipped notes.
func (m *MetricsService) RecordExport(exported, skipped int) {
	if m == nil {
		return
	}
	m.exportNotes.WithLabelValues("exported").Add(float64(exported))
	m.exportNotes.WithLabelValues("skipped").Add(float64(skipped))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
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

// Snapshot returns aggregated metrics suitable for the status endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	totalLookups := hits + misses
	if totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		AccessDecisionsTotal:     atomic.LoadUint64(&m.decisionCount),
		AccessDenialsTotal:       atomic.LoadUint64(&m.denialCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
