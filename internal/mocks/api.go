package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/theblitlabs/tinyml-runner/internal/models"
)

// MockAPI stands in for the HTTP client used by the workbench.
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) Train(ctx context.Context, req *models.TrainingRequest) (*models.TrainingResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TrainingResult), args.Error(1)
}

func (m *MockAPI) Predict(ctx context.Context, req *models.PredictRequest) (*models.PredictResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PredictResponse), args.Error(1)
}
