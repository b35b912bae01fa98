package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "localhunt",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "localhunt",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RatingUpdatesTotal counts aggregate writes by mode and outcome.
	RatingUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "localhunt",
			Name:      "rating_updates_total",
			Help:      "Vendor rating aggregate updates",
		},
		[]string{"mode", "status"}, // mode: incremental / recompute
	)

	// RatingDriftCorrectedTotal counts vendors whose stored aggregate differed
	// from a full recompute.
	RatingDriftCorrectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "localhunt",
			Name:      "rating_drift_corrected_total",
			Help:      "Vendors whose rating was corrected by a full recompute",
		},
	)

	// VendorQueriesTotal counts vendor searches by filter path.
	VendorQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "localhunt",
			Name:      "vendor_queries_total",
			Help:      "Vendor queries by path",
		},
		[]string{"path"}, // geo / keyword / plain
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestDuration,
		httpRequestsTotal,
		RatingUpdatesTotal,
		RatingDriftCorrectedTotal,
		VendorQueriesTotal,
	)
}

// Middleware records HTTP request duration and count.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		path := normalizePath(c.FullPath())

		httpRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}

// normalizePath keeps unmatched routes out of the label space.
func normalizePath(path string) string {
	if path == "" {
		return "unknown"
	}
	return path
}

// ObserveRatingUpdate records the outcome of one aggregate write.
func ObserveRatingUpdate(mode string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	RatingUpdatesTotal.WithLabelValues(mode, status).Inc()
}
