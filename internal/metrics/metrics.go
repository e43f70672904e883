package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, route, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, route, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// UploadsTotal counts upload attempts by result (ok, invalid, storage_error, registry_error).
	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_uploads_total",
			Help: "Total number of asset uploads by result",
		},
		[]string{"result"},
	)

	// UploadBytes observes the size of stored uploads.
	UploadBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "asset_upload_bytes",
			Help:    "Size of stored uploads in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
	)

	// LoginsTotal counts POST /token outcomes (success, invalid_credentials, error).
	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Total number of login attempts by result",
		},
		[]string{"result"},
	)
)

var initOnce sync.Once

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal, UploadsTotal, UploadBytes, LoginsTotal)
	})
}

// RecordRequest records duration and count for an HTTP request.
// route should be the matched route pattern, not the raw path, to keep cardinality bounded.
func RecordRequest(method, route string, statusCode int, durationSeconds float64) {
	if route == "" {
		route = "unmatched"
	}
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, route, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, route, status).Inc()
}

// RecordUpload counts an upload attempt; size is observed only for successful uploads.
func RecordUpload(result string, size int64) {
	UploadsTotal.WithLabelValues(result).Inc()
	if result == "ok" {
		UploadBytes.Observe(float64(size))
	}
}

// RecordLogin counts a login attempt.
func RecordLogin(result string) {
	LoginsTotal.WithLabelValues(result).Inc()
}
