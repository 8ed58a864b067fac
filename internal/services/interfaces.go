package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/theblitlabs/tinyml-runner/internal/models"
)

type JobRepository interface {
	Create(ctx context.Context, job *models.TrainingJob) error
	Update(ctx context.Context, job *models.TrainingJob) error
	Get(ctx context.Context, id uuid.UUID) (*models.TrainingJob, error)
	LatestSucceeded(ctx context.Context, algorithm string) (*models.TrainingJob, error)
	List(ctx context.Context, limit, offset int) ([]*models.TrainingJob, error)
}

type ITrainingService interface {
	Train(ctx context.Context, req *models.TrainingRequest) (*models.TrainingResult, error)
	GetJob(ctx context.Context, id string) (*models.TrainingJob, error)
	ListJobs(ctx context.Context, limit, offset int) ([]*models.TrainingJob, error)
}

type IPredictionService interface {
	Predict(ctx context.Context, req *models.PredictRequest) (*models.PredictResponse, error)
	SaveFeatures(ctx context.Context, req *models.SaveFeaturesRequest) (string, error)
}
