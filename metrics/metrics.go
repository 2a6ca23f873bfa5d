package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests by route and status.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration measures HTTP request latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// MeasurementsIngested counts accepted spectrum measurements.
	MeasurementsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spectrum_measurements_ingested_total",
			Help: "Total number of spectrum measurements ingested",
		},
	)

	// AnomaliesDetected counts classifier verdicts flagged as anomalous.
	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spectrum_anomalies_detected_total",
			Help: "Total number of anomalies detected by the classifier",
		},
		[]string{"type", "location_id"},
	)

	// AnalysisLatency measures end-to-end classifier call latency.
	AnalysisLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "spectrum_analysis_latency_seconds",
			Help:    "Classifier call latency in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// AnalysisFailures counts classifier calls that fell back to the
	// non-anomalous default verdict.
	AnalysisFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spectrum_analysis_failures_total",
			Help: "Total number of classifier calls that failed and fell back",
		},
	)
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Middleware records request counts and latency per chi route pattern, so
// parameterized paths collapse into one series.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		endpoint := r.URL.Path
		if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
			if pattern := routeCtx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		RequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(recorder.status)).Inc()
		RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(started).Seconds())
	})
}
