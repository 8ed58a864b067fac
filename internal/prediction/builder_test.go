package prediction

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theblitlabs/tinyml-runner/internal/dataset"
	"github.com/theblitlabs/tinyml-runner/internal/models"
	"github.com/theblitlabs/tinyml-runner/internal/utils/errorutil"
)

const iris = `sepal_length,sepal_width,color,species
5.1,3.5,red,setosa
4.9,3.0,blue,setosa
6.2,2.9,red,versicolor
`

func profile(t *testing.T) *dataset.Profile {
	p, err := dataset.ParseCSV(iris)
	require.NoError(t, err)
	return p
}

func TestInputsSkipTargetForSupervised(t *testing.T) {
	b := NewBuilder(profile(t), models.AlgorithmKNN, nil)

	assert.Equal(t, []Input{
		{Column: "sepal_length", Type: dataset.ColumnNumeric},
		{Column: "sepal_width", Type: dataset.ColumnNumeric},
		{Column: "color", Type: dataset.ColumnCategorical},
	}, b.Inputs())
}

func TestInputsKeepAllColumnsForClustering(t *testing.T) {
	b := NewBuilder(profile(t), models.AlgorithmKMeans, nil)

	inputs := b.Inputs()
	require.Len(t, inputs, 4)
	assert.Equal(t, "species", inputs[3].Column)
}

func TestInputsFallBackToSampling(t *testing.T) {
	p := &dataset.Profile{
		Header: []string{"a", "b", "target"},
		Rows: []dataset.Row{
			{"a": "1", "b": "x", "target": "y"},
			{"a": "2", "b": "3", "target": "n"},
		},
	}

	b := NewBuilder(p, models.AlgorithmSVM, nil)
	assert.Equal(t, []Input{
		{Column: "a", Type: dataset.ColumnNumeric},
		{Column: "b", Type: dataset.ColumnNumeric},
	}, b.Inputs())
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name   string
		alg    models.Algorithm
		params models.Parameters
		values map[string]string
		want   *models.PredictRequest
	}{
		{
			name:   "knn carries trained k",
			alg:    models.AlgorithmKNN,
			params: models.Parameters{"k": json.Number("7")},
			values: map[string]string{"sepal_length": "5.0", "sepal_width": " 3 ", "color": "red"},
			want:   &models.PredictRequest{Features: "5, 3, red", Algorithm: "knn", K: intPtr(7)},
		},
		{
			name:   "knn defaults k",
			alg:    models.AlgorithmKNN,
			values: map[string]string{"sepal_length": "5.25", "sepal_width": "3", "color": "blue"},
			want:   &models.PredictRequest{Features: "5.25, 3, blue", Algorithm: "knn", K: intPtr(DefaultK)},
		},
		{
			name:   "no k for decision tree",
			alg:    models.AlgorithmDecisionTree,
			params: models.Parameters{"k": 4.0},
			values: map[string]string{"sepal_length": "12abc", "sepal_width": "1e3", "color": "red"},
			want:   &models.PredictRequest{Features: "12, 1000, red", Algorithm: "decision-tree"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(profile(t), tt.alg, tt.params)
			got, err := b.Build(tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildRejectsIncompleteSubmission(t *testing.T) {
	b := NewBuilder(profile(t), models.AlgorithmKNN, nil)

	req, err := b.Build(map[string]string{"sepal_length": "5", "sepal_width": "  "})
	assert.Nil(t, req)
	require.Error(t, err)
	assert.True(t, errorutil.IsKind(err, errorutil.KindValidation))

	var incomplete *IncompleteError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, []string{"sepal_width", "color"}, incomplete.Missing)
}

func TestBuildRejectsNonNumeric(t *testing.T) {
	b := NewBuilder(profile(t), models.AlgorithmKNN, nil)

	_, err := b.Build(map[string]string{"sepal_length": "abc", "sepal_width": "3", "color": "red"})
	require.Error(t, err)
	assert.Equal(t, "sepal_length must be a number", err.Error())
}

func TestExtractPrediction(t *testing.T) {
	v, err := ExtractPrediction(&models.PredictResponse{Prediction: &models.PredictionValue{Prediction: "setosa"}})
	require.NoError(t, err)
	assert.Equal(t, "setosa", v)

	for _, resp := range []*models.PredictResponse{nil, {}, {Prediction: &models.PredictionValue{}}} {
		_, err := ExtractPrediction(resp)
		assert.True(t, errorutil.IsKind(err, errorutil.KindResponse))
	}
}

func TestFormatPrediction(t *testing.T) {
	assert.Equal(t, "1.5", FormatPrediction(1.5))
	assert.Equal(t, "setosa", FormatPrediction("setosa"))
	assert.Equal(t, "2", FormatPrediction(json.Number("2")))
}

func intPtr(i int) *int { return &i }
