package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/theblitlabs/tinyml-runner/internal/models"
)

type MockJobRepository struct {
	mock.Mock
}

func (m *MockJobRepository) Create(ctx context.Context, job *models.TrainingJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobRepository) Update(ctx context.Context, job *models.TrainingJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobRepository) Get(ctx context.Context, id uuid.UUID) (*models.TrainingJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TrainingJob), args.Error(1)
}

func (m *MockJobRepository) LatestSucceeded(ctx context.Context, algorithm string) (*models.TrainingJob, error) {
	args := m.Called(ctx, algorithm)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TrainingJob), args.Error(1)
}

func (m *MockJobRepository) List(ctx context.Context, limit, offset int) ([]*models.TrainingJob, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.TrainingJob), args.Error(1)
}
