package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusReceived         JobStatus = "received"
	JobStatusValidated        JobStatus = "validated"
	JobStatusDatasetPersisted JobStatus = "dataset_persisted"
	JobStatusTrainerInvoked   JobStatus = "trainer_invoked"
	JobStatusSucceeded        JobStatus = "succeeded"
	JobStatusFailed           JobStatus = "failed"
)

var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusReceived:         {JobStatusValidated, JobStatusFailed},
	JobStatusValidated:        {JobStatusDatasetPersisted, JobStatusFailed},
	JobStatusDatasetPersisted: {JobStatusTrainerInvoked, JobStatusFailed},
	JobStatusTrainerInvoked:   {JobStatusSucceeded, JobStatusFailed},
}

// IsTerminal reports whether no further transitions are allowed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

type TrainingJob struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Algorithm   string     `json:"algorithm" db:"algorithm"`
	Parameters  Parameters `json:"parameters" db:"-"`
	Status      JobStatus  `json:"status" db:"status"`
	Metrics     Metrics    `json:"metrics,omitempty" db:"-"`
	Error       string     `json:"error,omitempty" db:"error"`
	DatasetCID  string     `json:"dataset_cid,omitempty" db:"dataset_cid"`
	WorkDir     string     `json:"-" db:"work_dir"`
	DurationMs  int64      `json:"duration_ms" db:"duration_ms"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

func NewTrainingJob(algorithm string, params Parameters) *TrainingJob {
	return &TrainingJob{
		ID:         uuid.New(),
		Algorithm:  algorithm,
		Parameters: params,
		Status:     JobStatusReceived,
		CreatedAt:  time.Now(),
	}
}

// Transition moves the job forward along
// received → validated → dataset_persisted → trainer_invoked → {succeeded, failed}.
// Any non-terminal state may fail.
func (j *TrainingJob) Transition(to JobStatus) error {
	for _, next := range jobTransitions[j.Status] {
		if next == to {
			j.Status = to
			if to.IsTerminal() {
				now := time.Now()
				j.CompletedAt = &now
				j.DurationMs = now.Sub(j.CreatedAt).Milliseconds()
			}
			return nil
		}
	}
	return fmt.Errorf("invalid job transition %s -> %s", j.Status, to)
}

// Fail records err and moves the job to failed.
func (j *TrainingJob) Fail(err error) {
	if j.Status.IsTerminal() {
		return
	}
	if err != nil {
		j.Error = err.Error()
	}
	_ = j.Transition(JobStatusFailed)
}
