package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/theblitlabs/tinyml-runner/internal/api/handlers"
	"github.com/theblitlabs/tinyml-runner/internal/api/middleware"
	"github.com/theblitlabs/tinyml-runner/internal/config"
	"github.com/theblitlabs/tinyml-runner/internal/database/repositories"
	"github.com/theblitlabs/tinyml-runner/internal/execution/trainer"
	"github.com/theblitlabs/tinyml-runner/internal/mocks"
	"github.com/theblitlabs/tinyml-runner/internal/models"
	"github.com/theblitlabs/tinyml-runner/internal/monitoring/health"
	"github.com/theblitlabs/tinyml-runner/internal/services"
	"github.com/theblitlabs/tinyml-runner/internal/storage"
	"github.com/theblitlabs/tinyml-runner/internal/utils/errorutil"
)

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// newServer wires the real services around a shell script standing in for
// the trainer binary.
func newServer(t *testing.T, script string) http.Handler {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}

	binDir := t.TempDir()
	bin := filepath.Join(binDir, "demo")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"+script), 0o755))

	ws, err := storage.NewWorkspace(config.StorageConfig{Root: t.TempDir()})
	require.NoError(t, err)

	cfg := config.TrainerConfig{
		Binary:           bin,
		DatasetMode:      config.DatasetModeInline,
		MetricsFile:      "metrics.json",
		ImageFile:        "visual.png",
		WeightsFile:      "weights.json",
		ParameterAliases: config.DefaultParameterAliases(),
	}
	repo := repositories.NewMemoryJobRepository()
	runner := trainer.NewProcessRunner()

	training := services.NewTrainingService(cfg, ws, runner, repo, nil)
	prediction := services.NewPredictionService(config.PredictorConfig{Binary: bin, OutputFile: "metrics.json"}, cfg.WeightsFile, ws, runner, repo)

	return NewRouter(
		handlers.NewTrainingHandler(training, 1<<20),
		handlers.NewPredictionHandler(prediction, 1<<20),
		RouterConfig{},
	)
}

func TestTrainEndToEnd(t *testing.T) {
	h := newServer(t, `echo "$4" > args.txt
echo '{ "r2": 87.5, "time_ms": 120 }' > metrics.json
`)

	body := `{
		"algorithm": "linear-regression",
		"parameters": {"learning_rate": 0.01, "epochs": 500},
		"dataset": "x,y\n1,2\n2,4\n3,6"
	}`
	rec := do(t, h, http.MethodPost, "/train", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		JobID      string                 `json:"job_id"`
		Metrics    map[string]interface{} `json:"metrics"`
		Parameters map[string]interface{} `json:"parameters"`
		Image      string                 `json:"image"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))

	assert.Equal(t, "87.50%", result.Metrics["r2"])
	assert.Equal(t, 120.0, result.Metrics["time_ms"])
	assert.Equal(t, 0.01, result.Parameters["learning_rate"])
	assert.Equal(t, 500.0, result.Parameters["epochs"])
	assert.Empty(t, result.Image)
	assert.Contains(t, rec.Body.String(), `"time_ms":120`)

	rec = do(t, h, http.MethodGet, "/jobs/"+result.JobID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"succeeded"`)

	rec = do(t, h, http.MethodGet, "/jobs?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var jobs []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jobs))
	assert.Len(t, jobs, 1)
}

func TestTrainTrainerStderr(t *testing.T) {
	h := newServer(t, `echo "Error: could not open dataset" >&2
exit 1
`)

	rec := do(t, h, http.MethodPost, "/train",
		`{"algorithm":"knn","parameters":{"k":5},"dataset":"a,b\n1,2"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Error: could not open dataset\n"}`, rec.Body.String())
}

func TestTrainMissingAlgorithm(t *testing.T) {
	h := newServer(t, "exit 0\n")

	rec := do(t, h, http.MethodPost, "/train", `{"algorithm": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"algorithm is required"}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/train", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func newMockRouter(training *mocks.MockTrainingService, prediction *mocks.MockPredictionService, cfg RouterConfig) http.Handler {
	return NewRouter(
		handlers.NewTrainingHandler(training, 1024),
		handlers.NewPredictionHandler(prediction, 1024),
		cfg,
	)
}

func TestPredictRoute(t *testing.T) {
	prediction := &mocks.MockPredictionService{}
	h := newMockRouter(&mocks.MockTrainingService{}, prediction, RouterConfig{})

	prediction.On("Predict", mock.Anything, mock.MatchedBy(func(req *models.PredictRequest) bool {
		return req.Features == "1, 2" && req.Algorithm == "knn" && req.K != nil && *req.K == 3
	})).Return(&models.PredictResponse{Prediction: &models.PredictionValue{Prediction: "setosa"}}, nil)

	rec := do(t, h, http.MethodPost, "/predict", `{"features":"1, 2","algorithm":"knn","k":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"prediction":{"prediction":"setosa"}}`, rec.Body.String())
}

func TestSaveFeaturesRoute(t *testing.T) {
	prediction := &mocks.MockPredictionService{}
	h := newMockRouter(&mocks.MockTrainingService{}, prediction, RouterConfig{})

	prediction.On("SaveFeatures", mock.Anything, &models.SaveFeaturesRequest{}).
		Return("", errorutil.Validation("features are required"))
	prediction.On("SaveFeatures", mock.Anything, &models.SaveFeaturesRequest{Features: "1,2"}).
		Return("/data/features.txt", nil)

	rec := do(t, h, http.MethodPost, "/save-features", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/save-features", `{"features":"1,2"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBodyLimit(t *testing.T) {
	h := newMockRouter(&mocks.MockTrainingService{}, &mocks.MockPredictionService{}, RouterConfig{})

	body := `{"algorithm":"knn","parameters":{"k":1},"dataset":"` + strings.Repeat("x", 4096) + `"}`
	rec := do(t, h, http.MethodPost, "/train", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "exceeds")
}

func TestGetJobNotFound(t *testing.T) {
	training := &mocks.MockTrainingService{}
	h := newMockRouter(training, &mocks.MockPredictionService{}, RouterConfig{})

	id := uuid.NewString()
	training.On("GetJob", mock.Anything, id).Return(nil, services.ErrJobNotFound)

	rec := do(t, h, http.MethodGet, "/jobs/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuth(t *testing.T) {
	training := &mocks.MockTrainingService{}
	h := newMockRouter(training, &mocks.MockPredictionService{}, RouterConfig{JWTSecret: "s3cret"})
	training.On("ListJobs", mock.Anything, 0, 0).Return([]*models.TrainingJob{}, nil)

	rec := do(t, h, http.MethodGet, "/jobs", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	token, err := middleware.SignToken("s3cret", "tester")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	bad, err := middleware.SignToken("other", "tester")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/jobs", nil)
	req.Header.Set("Authorization", "Bearer "+bad)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newMockRouter(&mocks.MockTrainingService{}, &mocks.MockPredictionService{}, RouterConfig{JWTSecret: "x"})

	rec := do(t, h, http.MethodOptions, "/train", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthReportsComponents(t *testing.T) {
	checker := health.NewChecker(time.Second)
	checker.Register("trainer", func(context.Context) (string, error) { return "", errors.New("missing binary") })

	h := newMockRouter(&mocks.MockTrainingService{}, &mocks.MockPredictionService{},
		RouterConfig{Health: handlers.NewHealthHandler(checker)})

	rec := do(t, h, http.MethodGet, "/health?full=true", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
	assert.Contains(t, rec.Body.String(), "missing binary")
}
