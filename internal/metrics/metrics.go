package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Reconcile runs by scope (group, all) and result
	ReconcileCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pillgood_reconcile_total",
			Help: "Total number of notification reconciles",
		},
		[]string{"scope", "result"},
	)

	ReconcileDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pillgood_reconcile_duration_seconds",
			Help:    "Notification reconcile duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"scope"},
	)

	// Gateway calls by operation (schedule, cancel) and result (ok, failed, denied)
	GatewayOpCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pillgood_gateway_operations_total",
			Help: "Total number of notification gateway operations",
		},
		[]string{"operation", "result"},
	)

	// Delivered notifications by status (sent, failed, duplicate)
	DeliveryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pillgood_notification_delivery_total",
			Help: "Total number of notification deliveries",
		},
		[]string{"status"},
	)

	// Recorded doses by kind (taken, skipped, duplicate)
	DoseCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pillgood_dose_recorded_total",
			Help: "Total number of recorded doses",
		},
		[]string{"kind"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pillgood_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)
)

func RecordReconcile(scope string, err error, duration time.Duration) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	ReconcileCount.WithLabelValues(scope, result).Inc()
	ReconcileDuration.WithLabelValues(scope).Observe(duration.Seconds())
}

func IncrementGatewayOp(operation, result string) {
	GatewayOpCount.WithLabelValues(operation, result).Inc()
}

func IncrementDelivery(status string) {
	DeliveryCount.WithLabelValues(status).Inc()
}

func IncrementDose(kind string) {
	DoseCount.WithLabelValues(kind).Inc()
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
