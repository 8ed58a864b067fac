package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/theblitlabs/tinyml-runner/internal/models"
)

type MockTrainingService struct {
	mock.Mock
}

func (m *MockTrainingService) Train(ctx context.Context, req *models.TrainingRequest) (*models.TrainingResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TrainingResult), args.Error(1)
}

func (m *MockTrainingService) GetJob(ctx context.Context, id string) (*models.TrainingJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TrainingJob), args.Error(1)
}

func (m *MockTrainingService) ListJobs(ctx context.Context, limit, offset int) ([]*models.TrainingJob, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.TrainingJob), args.Error(1)
}

type MockPredictionService struct {
	mock.Mock
}

func (m *MockPredictionService) Predict(ctx context.Context, req *models.PredictRequest) (*models.PredictResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PredictResponse), args.Error(1)
}

func (m *MockPredictionService) SaveFeatures(ctx context.Context, req *models.SaveFeaturesRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}
