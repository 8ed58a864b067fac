package workbench

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/theblitlabs/tinyml-runner/internal/dataset"
	"github.com/theblitlabs/tinyml-runner/internal/mocks"
	"github.com/theblitlabs/tinyml-runner/internal/models"
	"github.com/theblitlabs/tinyml-runner/internal/prediction"
	"github.com/theblitlabs/tinyml-runner/internal/utils/errorutil"
)

const housing = `size,rooms,price
50,2,100
80,3,160
120,4,240
`

func ready(t *testing.T, api *mocks.MockAPI, alg string) *Workbench {
	w := New(api)
	_, err := w.LoadDataset("housing.csv", housing)
	require.NoError(t, err)
	require.NoError(t, w.SelectAlgorithm(alg))
	return w
}

func TestTrainRequiresAlgorithmAndDataset(t *testing.T) {
	api := &mocks.MockAPI{}
	w := New(api)

	_, err := w.Train(context.Background())
	assert.ErrorIs(t, err, ErrNoAlgorithm)

	require.NoError(t, w.SelectAlgorithm("linear-regression"))
	_, err = w.Train(context.Background())
	assert.ErrorIs(t, err, ErrNoDataset)

	_, err = w.LoadDataset("housing.csv", housing)
	require.NoError(t, err)
	w.ClearDataset()
	_, err = w.Train(context.Background())
	assert.ErrorIs(t, err, ErrNoDataset)

	api.AssertNotCalled(t, "Train", mock.Anything, mock.Anything)
}

func TestTrainSuccessAppendsHistory(t *testing.T) {
	api := &mocks.MockAPI{}
	w := ready(t, api, "linear-regression")
	require.NoError(t, w.SetParameter("learning_rate", 0.05))

	api.On("Train", mock.Anything, mock.MatchedBy(func(req *models.TrainingRequest) bool {
		return req.Algorithm == "linear-regression" &&
			req.DatasetFormat == "csv" &&
			req.Dataset == housing &&
			req.Parameters["learning_rate"] == 0.05
	})).Return(&models.TrainingResult{
		JobID:   "job-1",
		Metrics: models.Metrics{"r2": "87.50%", "accuracy": "90.00%", "time_ms": 120},
	}, nil).Once()

	result, err := w.Train(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "job-1", result.JobID)
	assert.Equal(t, result, w.Displayed())
	require.NotEmpty(t, result.View.Entries)
	assert.Equal(t, "87.50%", result.View.Entries[0].Text)

	entries := w.History()
	require.Len(t, entries, 1)
	assert.Equal(t, "Linear Regression #1", entries[0].Name)
	assert.Equal(t, "R² Score: 87.50%", entries[0].Summary)
	api.AssertExpectations(t)
}

func TestTrainFailureLeavesHistoryUntouched(t *testing.T) {
	api := &mocks.MockAPI{}
	w := ready(t, api, "knn")

	api.On("Train", mock.Anything, mock.Anything).
		Return(nil, errorutil.Response("Error: could not open dataset")).Once()

	_, err := w.Train(context.Background())
	require.Error(t, err)
	assert.Empty(t, w.History())
	assert.Nil(t, w.Displayed())

	_, err = w.PredictionInputs()
	assert.ErrorIs(t, err, ErrNotTrained)
}

func TestTrainRejectsConcurrentRun(t *testing.T) {
	api := &mocks.MockAPI{}
	w := ready(t, api, "svm")

	started := make(chan struct{})
	release := make(chan struct{})
	api.On("Train", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&models.TrainingResult{Metrics: models.Metrics{"accuracy": "80.00%"}}, nil).Once()

	done := make(chan error, 1)
	go func() {
		_, err := w.Train(context.Background())
		done <- err
	}()

	<-started
	_, err := w.Train(context.Background())
	assert.ErrorIs(t, err, ErrTrainInFlight)

	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("training did not finish")
	}
	assert.Len(t, w.History(), 1)
}

func TestPredictUsesTrainedModel(t *testing.T) {
	api := &mocks.MockAPI{}
	w := ready(t, api, "knn")
	require.NoError(t, w.SetParameter("k", 4))

	api.On("Train", mock.Anything, mock.Anything).
		Return(&models.TrainingResult{Metrics: models.Metrics{"accuracy": "95.00%"}}, nil).Once()
	_, err := w.Train(context.Background())
	require.NoError(t, err)

	// selecting another algorithm after training does not change the inputs
	require.NoError(t, w.SelectAlgorithm("k-means-clustering"))

	inputs, err := w.PredictionInputs()
	require.NoError(t, err)
	assert.Equal(t, []prediction.Input{
		{Column: "size", Type: dataset.ColumnNumeric},
		{Column: "rooms", Type: dataset.ColumnNumeric},
	}, inputs)

	api.On("Predict", mock.Anything, mock.MatchedBy(func(req *models.PredictRequest) bool {
		return req.Features == "70, 3" && req.Algorithm == "knn" && req.K != nil && *req.K == 4
	})).Return(&models.PredictResponse{Prediction: &models.PredictionValue{Prediction: 140.0}}, nil).Once()

	v, err := w.Predict(context.Background(), map[string]string{"size": "70", "rooms": "3"})
	require.NoError(t, err)
	assert.Equal(t, 140.0, v)

	_, err = w.Predict(context.Background(), map[string]string{"size": "70"})
	var incomplete *prediction.IncompleteError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, []string{"rooms"}, incomplete.Missing)

	api.AssertExpectations(t)
}

func TestShowHistoryDoesNotCallServer(t *testing.T) {
	api := &mocks.MockAPI{}
	w := ready(t, api, "decision-tree")

	api.On("Train", mock.Anything, mock.Anything).
		Return(&models.TrainingResult{Metrics: models.Metrics{"accuracy": "70.00%"}}, nil).Once()
	api.On("Train", mock.Anything, mock.Anything).
		Return(&models.TrainingResult{Metrics: models.Metrics{"accuracy": "75.00%"}}, nil).Once()

	_, err := w.Train(context.Background())
	require.NoError(t, err)
	_, err = w.Train(context.Background())
	require.NoError(t, err)

	shown, err := w.ShowHistory(0)
	require.NoError(t, err)
	assert.Equal(t, "70.00%", shown.Metrics["accuracy"])
	assert.Equal(t, shown, w.Displayed())

	_, err = w.ShowHistory(5)
	assert.True(t, errorutil.IsKind(err, errorutil.KindValidation))

	api.AssertNumberOfCalls(t, "Train", 2)
}

func TestLoadDatasetKeepsPreviousOnError(t *testing.T) {
	w := New(&mocks.MockAPI{})
	_, err := w.LoadDataset("housing.csv", housing)
	require.NoError(t, err)

	_, err = w.LoadDataset("notes.txt", "hello")
	assert.True(t, errorutil.IsKind(err, errorutil.KindParse))
	assert.Equal(t, 3, w.Profile().RowCount)
}

func TestSelectAlgorithmResetsParameters(t *testing.T) {
	w := New(&mocks.MockAPI{})
	require.NoError(t, w.SelectAlgorithm("knn"))
	require.NoError(t, w.SetParameter("k", 9))

	require.NoError(t, w.SelectAlgorithm("knn"))
	assert.Equal(t, 5.0, w.Parameters()["k"])

	assert.Error(t, w.SelectAlgorithm("random-forest"))
	assert.Error(t, w.SetParameter("k", 99))
}

func TestPredictSendsTrainedJobID(t *testing.T) {
	const jobID = "3f6c1c52-8d3e-4f7a-9b1e-000000000001"

	api := &mocks.MockAPI{}
	w := ready(t, api, "linear-regression")

	api.On("Train", mock.Anything, mock.Anything).
		Return(&models.TrainingResult{JobID: jobID, Metrics: models.Metrics{"r2": "87.50%"}}, nil).Once()
	_, err := w.Train(context.Background())
	require.NoError(t, err)

	var sent *models.PredictRequest
	api.On("Predict", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(*models.PredictRequest) }).
		Return(&models.PredictResponse{Prediction: &models.PredictionValue{Prediction: 150.0}}, nil).Once()

	_, err = w.Predict(context.Background(), map[string]string{"size": "75", "rooms": "3"})
	require.NoError(t, err)
	require.NotNil(t, sent)
	assert.Equal(t, jobID, sent.JobID)
	assert.Nil(t, sent.K)

	api.AssertExpectations(t)
}
