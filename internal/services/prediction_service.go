package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/theblitlabs/tinyml-runner/internal/config"
	"github.com/theblitlabs/tinyml-runner/internal/execution/trainer"
	"github.com/theblitlabs/tinyml-runner/internal/models"
	"github.com/theblitlabs/tinyml-runner/internal/normalizer"
	"github.com/theblitlabs/tinyml-runner/internal/storage"
	"github.com/theblitlabs/tinyml-runner/internal/telemetry"
	"github.com/theblitlabs/tinyml-runner/internal/utils/errorutil"
	"github.com/theblitlabs/tinyml-runner/pkg/logger"
)

const featuresFileName = "features.txt"

// The predictor writes a trailing comma after the last field.
var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

// PredictionService runs the predictor against the weights of a finished
// training job.
type PredictionService struct {
	cfg         config.PredictorConfig
	weightsFile string
	workspace   *storage.Workspace
	runner      trainer.Runner
	repo        JobRepository
}

func NewPredictionService(cfg config.PredictorConfig, weightsFile string, workspace *storage.Workspace, runner trainer.Runner, repo JobRepository) *PredictionService {
	return &PredictionService{
		cfg:         cfg,
		weightsFile: weightsFile,
		workspace:   workspace,
		runner:      runner,
		repo:        repo,
	}
}

func (s *PredictionService) Predict(ctx context.Context, req *models.PredictRequest) (*models.PredictResponse, error) {
	log := logger.WithComponent("predictor")

	if req == nil || strings.TrimSpace(req.Features) == "" {
		return nil, errorutil.Validation("features are required")
	}
	if strings.TrimSpace(req.Algorithm) == "" {
		return nil, errorutil.Validation("algorithm is required")
	}

	algorithm := strings.TrimSpace(req.Algorithm)
	if alg, ok := models.ParseAlgorithm(algorithm); ok {
		algorithm = string(alg)
	}

	job, err := s.resolveJob(ctx, req.JobID, algorithm)
	if err != nil {
		telemetry.RecordPrediction(algorithm, "rejected")
		return nil, err
	}

	resp, err := s.run(ctx, job, algorithm, req)
	if err != nil {
		telemetry.RecordPrediction(algorithm, "failed")
		log.Error().Err(err).Str("job_id", job.ID.String()).Msg("Prediction failed")
		return nil, err
	}

	telemetry.RecordPrediction(algorithm, "succeeded")
	log.Info().
		Str("job_id", job.ID.String()).
		Str("algorithm", algorithm).
		Interface("prediction", resp.Prediction.Prediction).
		Msg("Prediction served")
	return resp, nil
}

func (s *PredictionService) resolveJob(ctx context.Context, jobID, algorithm string) (*models.TrainingJob, error) {
	if jobID == "" {
		job, err := s.repo.LatestSucceeded(ctx, algorithm)
		if errors.Is(err, ErrJobNotFound) {
			return nil, errorutil.Validation("no trained %s model available", algorithm)
		}
		return job, err
	}

	id, err := uuid.Parse(jobID)
	if err != nil {
		return nil, errorutil.Validation("invalid job id %q", jobID)
	}
	job, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrJobNotFound) {
		return nil, errorutil.Validation("training job %s not found", jobID)
	}
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusSucceeded {
		return nil, errorutil.Validation("training job %s did not succeed", jobID)
	}
	if job.Algorithm != algorithm {
		return nil, errorutil.Validation("training job %s used %s, not %s", jobID, job.Algorithm, algorithm)
	}
	return job, nil
}

func (s *PredictionService) run(ctx context.Context, job *models.TrainingJob, algorithm string, req *models.PredictRequest) (*models.PredictResponse, error) {
	jobDir, err := s.workspace.OpenJob(job.ID)
	if err != nil {
		return nil, err
	}

	predDir, err := jobDir.CreatePredictionDir()
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(filepath.Join(predDir, featuresFileName), []byte(req.Features), 0o644); err != nil {
		return nil, errorutil.IO(err, "failed to write features")
	}

	var k *int
	if alg, ok := models.ParseAlgorithm(algorithm); ok && alg.UsesK() {
		k = req.K
	}

	weights := trainer.RelativeTo(predDir, jobDir.File(s.weightsFile))
	out, err := s.runner.Run(ctx, trainer.Invocation{
		Program: s.cfg.Binary,
		Args:    trainer.PredictArgs(algorithm, weights, featuresFileName, k),
		Dir:     predDir,
		Root:    jobDir.Path,
	})
	if err != nil {
		return nil, err
	}
	if out.Failed() {
		return nil, errorutil.Subprocess(out.Reason(), nil)
	}

	value, err := ReadPrediction(filepath.Join(predDir, s.cfg.OutputFile))
	if err != nil {
		return nil, err
	}
	return &models.PredictResponse{Prediction: &models.PredictionValue{Prediction: value}}, nil
}

// ReadPrediction reads the predictor artifact and returns its prediction
// field.
func ReadPrediction(path string) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errorutil.Parse(err, "prediction artifact unreadable")
	}

	record, err := normalizer.DecodeArtifact(trailingComma.ReplaceAll(data, []byte("$1")))
	if err != nil {
		return nil, err
	}

	value, ok := record["prediction"]
	if !ok {
		return nil, errorutil.Parse(nil, "prediction artifact has no prediction field")
	}
	return value, nil
}

// SaveFeatures stores a feature line at the shared features location.
func (s *PredictionService) SaveFeatures(_ context.Context, req *models.SaveFeaturesRequest) (string, error) {
	if req == nil || req.Features == "" {
		return "", errorutil.Validation("features are required")
	}

	path, err := s.workspace.SaveFeatures(req.Features)
	if err != nil {
		return "", err
	}

	log := logger.WithComponent("predictor")
	log.Debug().Str("path", path).Int("bytes", len(req.Features)).Msg("Features saved")
	return path, nil
}
