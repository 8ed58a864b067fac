package services

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/theblitlabs/tinyml-runner/internal/catalog"
	"github.com/theblitlabs/tinyml-runner/internal/config"
	"github.com/theblitlabs/tinyml-runner/internal/database/repositories"
	"github.com/theblitlabs/tinyml-runner/internal/execution/trainer"
	"github.com/theblitlabs/tinyml-runner/internal/models"
	"github.com/theblitlabs/tinyml-runner/internal/normalizer"
	"github.com/theblitlabs/tinyml-runner/internal/storage"
	"github.com/theblitlabs/tinyml-runner/internal/telemetry"
	"github.com/theblitlabs/tinyml-runner/internal/utils/errorutil"
	"github.com/theblitlabs/tinyml-runner/pkg/logger"
)

var ErrJobNotFound = repositories.ErrJobNotFound

const (
	defaultJobListLimit = 50
	maxJobListLimit     = 500
)

// TrainingService dispatches training jobs: it validates the request, gives
// the job its own workspace, runs the trainer there and normalizes the
// metrics artifact it leaves behind.
type TrainingService struct {
	cfg       config.TrainerConfig
	workspace *storage.Workspace
	runner    trainer.Runner
	repo      JobRepository
	archiver  storage.Archiver
}

// NewTrainingService wires the dispatcher. archiver may be nil.
func NewTrainingService(cfg config.TrainerConfig, workspace *storage.Workspace, runner trainer.Runner, repo JobRepository, archiver storage.Archiver) *TrainingService {
	return &TrainingService{
		cfg:       cfg,
		workspace: workspace,
		runner:    runner,
		repo:      repo,
		archiver:  archiver,
	}
}

// ValidateTrainingRequest checks algorithm, parameters and dataset, in that
// order.
func ValidateTrainingRequest(req *models.TrainingRequest) error {
	if req == nil || strings.TrimSpace(req.Algorithm) == "" {
		return errorutil.Validation("algorithm is required")
	}
	if len(req.Parameters) == 0 {
		return errorutil.Validation("parameters are required")
	}
	if req.Dataset == "" {
		return errorutil.Validation("dataset is required")
	}
	return nil
}

// Train runs one job to completion. The job is detached from ctx
// cancellation; only trainer.timeout bounds it.
func (s *TrainingService) Train(ctx context.Context, req *models.TrainingRequest) (*models.TrainingResult, error) {
	log := logger.WithComponent("dispatcher")

	if err := ValidateTrainingRequest(req); err != nil {
		telemetry.RecordError(string(errorutil.KindValidation), "dispatcher")
		return nil, err
	}

	algorithm := strings.TrimSpace(req.Algorithm)
	if alg, ok := models.ParseAlgorithm(algorithm); ok {
		algorithm = string(alg)
		if unknown := catalog.UnknownKeys(alg, req.Parameters); len(unknown) > 0 {
			log.Warn().
				Str("algorithm", algorithm).
				Strs("keys", unknown).
				Msg("Parameters outside the algorithm schema are passed through unvalidated")
		}
	} else {
		log.Warn().Str("algorithm", algorithm).Msg("Unknown algorithm, passing it to the trainer as is")
	}

	job := models.NewTrainingJob(algorithm, req.Parameters)
	if err := job.Transition(models.JobStatusValidated); err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	ctx, span := telemetry.Tracer().Start(ctx, "training.dispatch",
		trace.WithAttributes(
			attribute.String("job.id", job.ID.String()),
			attribute.String("job.algorithm", algorithm),
		))
	defer span.End()

	defer telemetry.TrackActiveJob()()

	log.Info().
		Str("job_id", job.ID.String()).
		Str("algorithm", algorithm).
		Int("parameters", len(req.Parameters)).
		Int("dataset_bytes", len(req.Dataset)).
		Msg("Training job received")

	result, err := s.run(ctx, job, req)
	s.finish(ctx, span, job, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *TrainingService) run(ctx context.Context, job *models.TrainingJob, req *models.TrainingRequest) (*models.TrainingResult, error) {
	log := logger.WithComponent("dispatcher").With().Str("job_id", job.ID.String()).Logger()

	jobDir, err := s.workspace.CreateJob(job.ID)
	if err != nil {
		return nil, err
	}
	job.WorkDir = jobDir.Path

	if err := s.repo.Create(ctx, job); err != nil {
		return nil, errorutil.IO(err, "failed to record training job")
	}

	datasetPath, err := s.persistDataset(ctx, job, jobDir, req)
	if err != nil {
		return nil, err
	}

	// The trainer runs inside the job directory, so the dataset is passed by
	// its name there.
	args := trainer.BuildArgs(s.cfg, job.Algorithm, req.Parameters, filepath.Base(datasetPath))
	if err := job.Transition(models.JobStatusTrainerInvoked); err != nil {
		return nil, err
	}

	_, span := telemetry.Tracer().Start(ctx, "training.invoke")
	out, err := s.runner.Run(ctx, trainer.Invocation{
		Program: s.cfg.Binary,
		Args:    args,
		Dir:     jobDir.Path,
		Root:    jobDir.Path,
	})
	span.End()

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errorutil.Subprocess("trainer timed out after "+s.cfg.Timeout.String(), err)
		}
		return nil, err
	}
	if out.Failed() {
		log.Error().
			Int("exit_code", out.ExitCode).
			Str("stderr", out.Stderr).
			Msg("Trainer failed")
		return nil, errorutil.Subprocess(out.Reason(), nil)
	}

	log.Debug().Dur("duration", out.Duration).Msg("Trainer finished")

	result, err := normalizer.NormalizeFile(jobDir.File(s.cfg.MetricsFile), req.Parameters)
	if err != nil {
		return nil, err
	}

	image, err := readImage(jobDir.File(s.cfg.ImageFile))
	if err != nil {
		return nil, err
	}
	result.Image = image
	result.JobID = job.ID.String()
	job.Metrics = result.Metrics

	return result, nil
}

func (s *TrainingService) persistDataset(ctx context.Context, job *models.TrainingJob, jobDir *storage.JobDir, req *models.TrainingRequest) (string, error) {
	_, span := telemetry.Tracer().Start(ctx, "training.persist_dataset")
	defer span.End()

	path, err := jobDir.WriteDataset(req.Dataset, req.Format())
	if err != nil {
		return "", err
	}

	if s.archiver != nil {
		cid, err := s.archiver.Archive(ctx, []byte(req.Dataset))
		if err != nil {
			return "", errorutil.IO(err, "failed to archive dataset")
		}
		job.DatasetCID = cid
		span.SetAttributes(attribute.String("dataset.cid", cid))
	}

	if err := job.Transition(models.JobStatusDatasetPersisted); err != nil {
		return "", err
	}
	return path, nil
}

// readImage returns the base64 of the image artifact, or "" if the trainer
// wrote none.
func readImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", errorutil.IO(err, "failed to read image artifact")
	}
	if len(data) == 0 {
		return "", nil
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (s *TrainingService) finish(ctx context.Context, span trace.Span, job *models.TrainingJob, err error) {
	log := logger.WithComponent("dispatcher")

	if err != nil {
		job.Fail(err)
		kind := string(errorutil.KindOf(err))
		if kind == "" {
			kind = "internal"
		}
		telemetry.RecordError(kind, "dispatcher")
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		log.Error().Err(err).Str("job_id", job.ID.String()).Str("kind", kind).Msg("Training job failed")
	} else {
		if terr := job.Transition(models.JobStatusSucceeded); terr != nil {
			log.Error().Err(terr).Str("job_id", job.ID.String()).Msg("Unexpected job state")
		}
		log.Info().
			Str("job_id", job.ID.String()).
			Int64("duration_ms", job.DurationMs).
			Int("metrics", len(job.Metrics)).
			Msg("Training job succeeded")
	}

	span.SetAttributes(attribute.String("job.status", string(job.Status)))
	telemetry.RecordTrainingJob(ctx, job.Algorithm, string(job.Status), time.Duration(job.DurationMs)*time.Millisecond)

	// Jobs that failed before their record was created have nothing to update.
	if job.WorkDir == "" {
		return
	}
	if uerr := s.repo.Update(ctx, job); uerr != nil {
		log.Error().Err(uerr).Str("job_id", job.ID.String()).Msg("Failed to update job record")
	}
}

func (s *TrainingService) GetJob(ctx context.Context, id string) (*models.TrainingJob, error) {
	jobID, err := uuid.Parse(id)
	if err != nil {
		return nil, errorutil.Validation("invalid job id %q", id)
	}
	return s.repo.Get(ctx, jobID)
}

// ListJobs returns job records newest first. limit <= 0 selects the default.
func (s *TrainingService) ListJobs(ctx context.Context, limit, offset int) ([]*models.TrainingJob, error) {
	if limit <= 0 {
		limit = defaultJobListLimit
	}
	if limit > maxJobListLimit {
		limit = maxJobListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}
