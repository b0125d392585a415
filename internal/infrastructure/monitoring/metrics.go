// Package monitoring exposes Prometheus metrics for the bridge.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Submission metrics
	SubmissionsTotal *prometheus.CounterVec
	PendingRequests  prometheus.Gauge
	RequestsExpired  prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// Notification metrics
	NotificationsDropped prometheus.Counter

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bridge_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		SubmissionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_submissions_total",
				Help: "Total number of code submissions by terminal result",
			},
			[]string{"result"},
		),
		PendingRequests: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bridge_pending_requests",
				Help: "Number of submissions awaiting a peer reply",
			},
		),
		RequestsExpired: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_requests_expired_total",
				Help: "Total number of submissions that timed out unanswered",
			},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bridge_ws_connections",
				Help: "Number of active peer connections",
			},
		),
		WSMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_ws_messages_total",
				Help: "Total number of peer channel messages",
			},
			[]string{"direction", "type"},
		),

		NotificationsDropped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_notifications_dropped_total",
				Help: "Total number of notifications evicted unread",
			},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bridge_uptime_seconds",
				Help: "Bridge uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordSubmission records a submission's terminal result
func (m *Metrics) RecordSubmission(result string) {
	m.SubmissionsTotal.WithLabelValues(result).Inc()
}

// SetPendingRequests sets the pending submissions gauge
func (m *Metrics) SetPendingRequests(count int) {
	m.PendingRequests.Set(float64(count))
}

// AddRequestsExpired counts submissions that timed out unanswered
func (m *Metrics) AddRequestsExpired(n int) {
	m.RequestsExpired.Add(float64(n))
	m.SubmissionsTotal.WithLabelValues("timeout").Add(float64(n))
}

// RecordWSMessage records a peer channel message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments the peer connection gauge
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements the peer connection gauge
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// AddNotificationsDropped counts evicted notifications
func (m *Metrics) AddNotificationsDropped(n int) {
	m.NotificationsDropped.Add(float64(n))
}
