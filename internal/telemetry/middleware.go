package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	requestDurationHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	requestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_count_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	activeRequestsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_active",
			Help: "Number of active HTTP requests",
		},
	)

	// Error metrics
	errorCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "error_total",
			Help: "Total number of errors by kind and component",
		},
		[]string{"kind", "component"},
	)

	// Training metrics
	trainingJobCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "training_jobs_total",
			Help: "Total number of training jobs by algorithm and outcome",
		},
		[]string{"algorithm", "status"},
	)

	trainingDurationHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "training_job_duration_seconds",
			Help:    "Duration of training jobs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"algorithm", "status"},
	)

	activeJobsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "training_jobs_active",
			Help: "Number of training jobs currently running",
		},
	)

	// Prediction metrics
	predictionCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of prediction requests by algorithm and outcome",
		},
		[]string{"algorithm", "status"},
	)
)

// MetricsHandler returns an http.Handler that serves the metrics endpoint
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// MetricsMiddleware wraps an http.Handler and records metrics about the
// request. Paths are labelled by route template to keep cardinality bounded.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}

		activeRequestsGauge.Inc()
		defer activeRequestsGauge.Dec()

		next.ServeHTTP(sw, r)

		if sw.status == 0 {
			sw.status = http.StatusOK
		}

		duration := time.Since(start).Seconds()
		labels := prometheus.Labels{
			"method": r.Method,
			"path":   routePath(r),
			"status": fmt.Sprintf("%d", sw.status),
		}

		requestDurationHistogram.With(labels).Observe(duration)
		requestCounter.With(labels).Inc()
	})
}

func routePath(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}

// statusWriter wraps http.ResponseWriter to capture the status code
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// RecordTrainingJob records a finished job in both Prometheus and OTel.
func RecordTrainingJob(ctx context.Context, algorithm, status string, duration time.Duration) {
	trainingJobCounter.WithLabelValues(algorithm, status).Inc()
	if duration > 0 {
		trainingDurationHistogram.WithLabelValues(algorithm, status).Observe(duration.Seconds())
	}
	recordOTelJob(ctx, algorithm, status, duration)
}

// TrackActiveJob increments the running job gauge and returns its decrement.
func TrackActiveJob() func() {
	activeJobsGauge.Inc()
	return activeJobsGauge.Dec
}

func RecordPrediction(algorithm, status string) {
	predictionCounter.WithLabelValues(algorithm, status).Inc()
}

// RecordError records an error occurrence by kind and component
func RecordError(kind string, component string) {
	errorCounter.WithLabelValues(kind, component).Inc()
}
