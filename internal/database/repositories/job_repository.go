package repositories

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/theblitlabs/tinyml-runner/internal/models"
)

var ErrJobNotFound = errors.New("training job not found")

const jobColumns = `id, algorithm, parameters, status, metrics, error,
	dataset_cid, work_dir, duration_ms, created_at, completed_at`

type JobRepository struct {
	db *sqlx.DB
}

func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

type dbJob struct {
	ID          uuid.UUID        `db:"id"`
	Algorithm   string           `db:"algorithm"`
	Parameters  []byte           `db:"parameters"`
	Status      models.JobStatus `db:"status"`
	Metrics     []byte           `db:"metrics"`
	Error       string           `db:"error"`
	DatasetCID  string           `db:"dataset_cid"`
	WorkDir     string           `db:"work_dir"`
	DurationMs  int64            `db:"duration_ms"`
	CreatedAt   time.Time        `db:"created_at"`
	CompletedAt *time.Time       `db:"completed_at"`
}

func toDBJob(job *models.TrainingJob) (*dbJob, error) {
	params := job.Parameters
	if params == nil {
		params = models.Parameters{}
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal parameters: %w", err)
	}

	var metricsJSON []byte
	if job.Metrics != nil {
		if metricsJSON, err = json.Marshal(job.Metrics); err != nil {
			return nil, fmt.Errorf("failed to marshal metrics: %w", err)
		}
	}

	return &dbJob{
		ID:          job.ID,
		Algorithm:   job.Algorithm,
		Parameters:  paramsJSON,
		Status:      job.Status,
		Metrics:     metricsJSON,
		Error:       job.Error,
		DatasetCID:  job.DatasetCID,
		WorkDir:     job.WorkDir,
		DurationMs:  job.DurationMs,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	}, nil
}

func decodeJSON(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func (d *dbJob) toModel() (*models.TrainingJob, error) {
	job := &models.TrainingJob{
		ID:          d.ID,
		Algorithm:   d.Algorithm,
		Status:      d.Status,
		Error:       d.Error,
		DatasetCID:  d.DatasetCID,
		WorkDir:     d.WorkDir,
		DurationMs:  d.DurationMs,
		CreatedAt:   d.CreatedAt,
		CompletedAt: d.CompletedAt,
	}

	if len(d.Parameters) > 0 {
		if err := decodeJSON(d.Parameters, &job.Parameters); err != nil {
			return nil, fmt.Errorf("failed to unmarshal parameters: %w", err)
		}
	}
	if len(d.Metrics) > 0 {
		if err := decodeJSON(d.Metrics, &job.Metrics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
		}
	}
	return job, nil
}

func (r *JobRepository) Create(ctx context.Context, job *models.TrainingJob) error {
	row, err := toDBJob(job)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO training_jobs (
			id, algorithm, parameters, status, metrics, error,
			dataset_cid, work_dir, duration_ms, created_at, completed_at
		) VALUES (
			:id, :algorithm, :parameters, :status, :metrics, :error,
			:dataset_cid, :work_dir, :duration_ms, :created_at, :completed_at
		)
	`

	_, err = r.db.NamedExecContext(ctx, query, row)
	return err
}

func (r *JobRepository) Update(ctx context.Context, job *models.TrainingJob) error {
	row, err := toDBJob(job)
	if err != nil {
		return err
	}

	query := `
		UPDATE training_jobs SET
			status = :status,
			metrics = :metrics,
			error = :error,
			dataset_cid = :dataset_cid,
			work_dir = :work_dir,
			duration_ms = :duration_ms,
			completed_at = :completed_at
		WHERE id = :id
	`

	result, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (r *JobRepository) Get(ctx context.Context, id uuid.UUID) (*models.TrainingJob, error) {
	var row dbJob
	query := `SELECT ` + jobColumns + ` FROM training_jobs WHERE id = $1`

	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return row.toModel()
}

// LatestSucceeded returns the most recent successful job for algorithm.
func (r *JobRepository) LatestSucceeded(ctx context.Context, algorithm string) (*models.TrainingJob, error) {
	var row dbJob
	query := `SELECT ` + jobColumns + ` FROM training_jobs
		WHERE algorithm = $1 AND status = $2
		ORDER BY created_at DESC LIMIT 1`

	if err := r.db.GetContext(ctx, &row, query, algorithm, models.JobStatusSucceeded); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return row.toModel()
}

func (r *JobRepository) List(ctx context.Context, limit, offset int) ([]*models.TrainingJob, error) {
	var rows []dbJob
	query := `SELECT ` + jobColumns + ` FROM training_jobs ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, err
	}

	jobs := make([]*models.TrainingJob, len(rows))
	for i := range rows {
		job, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		jobs[i] = job
	}
	return jobs, nil
}
