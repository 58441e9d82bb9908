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

// MetricsSnapshot is a compact JSON view of process counters.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	NotificationsSent        uint64    `json:"notificationsSent"`
	NotificationsSkipped     uint64    `json:"notificationsSkipped"`
	AttachmentTransitions    uint64    `json:"attachmentTransitions"`
	ReportsGenerated         uint64    `json:"reportsGenerated"`
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic and
// the portal's domain events.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	reports         *prometheus.CounterVec
	reportDuration  prometheus.Observer
	cacheOps        *prometheus.CounterVec

	requestCount         uint64
	requestDurationTotal uint64
	notificationsSent    uint64
	notificationsSkipped uint64
	transitionCount      uint64
	reportCount          uint64
	cacheHits            uint64
	cacheMisses          uint64
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

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Notifications by type and outcome (sent or skipped)",
	}, []string{"type", "outcome"})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attachment_transitions_total",
		Help: "Attachment status transitions by target status",
	}, []string{"status"})

	reports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reports_generated_total",
		Help: "Generated reports by type and format",
	}, []string{"type", "format"})

	reportDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "report_render_seconds",
		Help:    "Time spent querying and rendering reports",
		Buckets: prometheus.DefBuckets,
	})

	cacheOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_operations_total",
		Help: "Dashboard cache lookups by result",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, notifications, transitions, reports, reportDuration, cacheOps, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		notifications:   notifications,
		transitions:     transitions,
		reports:         reports,
		reportDuration:  reportDuration,
		cacheOps:        cacheOps,
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

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
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

// ObserveNotification counts a send attempt by outcome.
func (m *MetricsService) ObserveNotification(notificationType string, sent bool) {
	if m == nil {
		return
	}
	outcome := "skipped"
	if sent {
		outcome = "sent"
		atomic.AddUint64(&m.notificationsSent, 1)
	} else {
		atomic.AddUint64(&m.notificationsSkipped, 1)
	}
	m.notifications.WithLabelValues(notificationType, outcome).Inc()
}

// ObserveAttachmentTransition counts a successful status change.
func (m *MetricsService) ObserveAttachmentTransition(status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status).Inc()
	atomic.AddUint64(&m.transitionCount, 1)
}

// ObserveReport records a generated report and its render time.
func (m *MetricsService) ObserveReport(reportType, format string, duration time.Duration) {
	if m == nil {
		return
	}
	m.reports.WithLabelValues(reportType, format).Inc()
	m.reportDuration.Observe(duration.Seconds())
	atomic.AddUint64(&m.reportCount, 1)
}

// ObserveCache records a cache lookup outcome.
func (m *MetricsService) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheOps.WithLabelValues("hit").Inc()
		atomic.AddUint64(&m.cacheHits, 1)
		return
	}
	m.cacheOps.WithLabelValues("miss").Inc()
	atomic.AddUint64(&m.cacheMisses, 1)
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	hits := atomic.LoadUint64(&m.cacheHits)
	misses := atomic.LoadUint64(&m.cacheMisses)
	var hitRatio float64
	if hits+misses > 0 {
		hitRatio = float64(hits) / float64(hits+misses)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		NotificationsSent:        atomic.LoadUint64(&m.notificationsSent),
		NotificationsSkipped:     atomic.LoadUint64(&m.notificationsSkipped),
		AttachmentTransitions:    atomic.LoadUint64(&m.transitionCount),
		ReportsGenerated:         atomic.LoadUint64(&m.reportCount),
		CacheHitRatio:            hitRatio,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
