package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/theblitlabs/tinyml-runner/internal/models"
)

// MemoryJobRepository keeps job records for the life of the process. It is
// used when no database is configured.
type MemoryJobRepository struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*models.TrainingJob
}

func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{jobs: make(map[uuid.UUID]*models.TrainingJob)}
}

func copyJob(job *models.TrainingJob) *models.TrainingJob {
	c := *job
	if job.Parameters != nil {
		c.Parameters = job.Parameters.Clone()
	}
	if job.Metrics != nil {
		c.Metrics = make(models.Metrics, len(job.Metrics))
		for k, v := range job.Metrics {
			c.Metrics[k] = v
		}
	}
	return &c
}

func (r *MemoryJobRepository) Create(_ context.Context, job *models.TrainingJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = copyJob(job)
	return nil
}

func (r *MemoryJobRepository) Update(_ context.Context, job *models.TrainingJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		return ErrJobNotFound
	}
	r.jobs[job.ID] = copyJob(job)
	return nil
}

func (r *MemoryJobRepository) Get(_ context.Context, id uuid.UUID) (*models.TrainingJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return copyJob(job), nil
}

func (r *MemoryJobRepository) sorted() []*models.TrainingJob {
	jobs := make([]*models.TrainingJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs
}

func (r *MemoryJobRepository) LatestSucceeded(_ context.Context, algorithm string) (*models.TrainingJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, job := range r.sorted() {
		if job.Algorithm == algorithm && job.Status == models.JobStatusSucceeded {
			return copyJob(job), nil
		}
	}
	return nil, ErrJobNotFound
}

func (r *MemoryJobRepository) List(_ context.Context, limit, offset int) ([]*models.TrainingJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := r.sorted()
	if offset >= len(jobs) {
		return []*models.TrainingJob{}, nil
	}
	jobs = jobs[offset:]
	if limit > 0 && limit < len(jobs) {
		jobs = jobs[:limit]
	}

	out := make([]*models.TrainingJob, len(jobs))
	for i, job := range jobs {
		out[i] = copyJob(job)
	}
	return out, nil
}
