// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipekeep_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recipekeep_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	accountsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recipekeep_accounts_created_total",
		Help: "Number of accounts created",
	})

	imageUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipekeep_image_uploads_total",
		Help: "Recipe image uploads by result",
	}, []string{"result"})

	storageOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipekeep_image_store_operations_total",
		Help: "Image store operations by backend, operation and result",
	}, []string{"backend", "op", "result"})
)

// ObserveHTTPRequest records an HTTP request metric.
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncAccountsCreated counts a newly created account.
func IncAccountsCreated() {
	accountsCreated.Inc()
}

// ObserveImageUpload counts an upload attempt with result "success",
// "invalid" or "error".
func ObserveImageUpload(result string) {
	imageUploads.WithLabelValues(result).Inc()
}

// ObserveStorage counts an image store call.
func ObserveStorage(backend, op string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	storageOperations.WithLabelValues(backend, op, result).Inc()
}
