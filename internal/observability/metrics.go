package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	adminRequestsTotal     *prometheus.CounterVec
	adminLatencySeconds    *prometheus.HistogramVec
	adminErrorsTotal       *prometheus.CounterVec
	transitionsTotal       *prometheus.CounterVec
	notificationDeliveries *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the portal.
func RegisterMetrics() {
	registerOnce.Do(func() {
		adminRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_admin_requests_total",
			Help: "Total number of admin API requests served.",
		}, []string{"method", "route", "status"})

		adminLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_admin_latency_seconds",
			Help:    "Latency distribution for admin API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		adminErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_admin_errors_total",
			Help: "Total number of error responses returned by admin endpoints.",
		}, []string{"method", "route", "status"})

		transitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_application_transitions_total",
			Help: "Total number of committed application status transitions.",
		}, []string{"from", "to"})

		notificationDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_notification_deliveries_total",
			Help: "Per-recipient notification delivery attempts by outcome.",
		}, []string{"kind", "outcome"})

		prometheus.MustRegister(adminRequestsTotal, adminLatencySeconds, adminErrorsTotal, transitionsTotal, notificationDeliveries)
	})
}

// AdminRequests exposes the counter for admin requests.
func AdminRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return adminRequestsTotal
}

// AdminLatency exposes the latency histogram for admin requests.
func AdminLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return adminLatencySeconds
}

// AdminErrors exposes the counter for admin error responses.
func AdminErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return adminErrorsTotal
}

// ApplicationTransitions exposes the counter for status transitions.
func ApplicationTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return transitionsTotal
}

// NotificationDeliveries exposes the counter for delivery attempts.
func NotificationDeliveries() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationDeliveries
}
