package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theblitlabs/tinyml-runner/internal/config"
)

func value(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	if m.Counter != nil {
		return m.GetCounter().GetValue()
	}
	return m.GetGauge().GetValue()
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(MetricsMiddleware)
	r.HandleFunc("/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := value(t, requestCounter.WithLabelValues("GET", "/jobs/{id}", "404"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/abc", nil))
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/def", nil))

	after := value(t, requestCounter.WithLabelValues("GET", "/jobs/{id}", "404"))
	assert.Equal(t, before+2, after)
}

func TestStatusWriterDefaultsToOK(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec}
	_, err := sw.Write([]byte("ok"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, sw.status)
}

func TestRecordTrainingJob(t *testing.T) {
	before := value(t, trainingJobCounter.WithLabelValues("knn", "succeeded"))
	RecordTrainingJob(context.Background(), "knn", "succeeded", 1500*time.Millisecond)
	assert.Equal(t, before+1, value(t, trainingJobCounter.WithLabelValues("knn", "succeeded")))

	done := TrackActiveJob()
	assert.Equal(t, 1.0, value(t, activeJobsGauge))
	done()
	assert.Equal(t, 0.0, value(t, activeJobsGauge))
}

func TestMetricsHandlerExposesTrainingMetrics(t *testing.T) {
	RecordPrediction("svm", "succeeded")

	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "predictions_total"))
}

func TestInitTelemetryDisabled(t *testing.T) {
	shutdown, err := InitTelemetry(context.Background(), &config.Config{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
