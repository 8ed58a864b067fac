// Package prediction turns user-entered feature values into prediction
// requests for the model trained last.
package prediction

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/theblitlabs/tinyml-runner/internal/dataset"
	"github.com/theblitlabs/tinyml-runner/internal/models"
	"github.com/theblitlabs/tinyml-runner/internal/utils/errorutil"
)

// DefaultK is sent when the trained parameters carry no k.
const DefaultK = 3

// Input is one typed feature field.
type Input struct {
	Column string             `json:"column"`
	Type   dataset.ColumnType `json:"type"`
}

// IncompleteError lists the inputs left empty on submission.
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return "missing " + strings.Join(e.Missing, ", ")
}

// Builder holds the input fields for one trained model.
type Builder struct {
	algorithm models.Algorithm
	inputs    []Input
	k         int
}

// NewBuilder derives the inputs from the profile header. Supervised models
// treat the last column as the target and leave it out.
func NewBuilder(p *dataset.Profile, alg models.Algorithm, params models.Parameters) *Builder {
	b := &Builder{algorithm: alg, k: DefaultK}

	columns := p.Header
	if !alg.IsClustering() && len(columns) > 0 {
		columns = columns[:len(columns)-1]
	}
	for _, col := range columns {
		b.inputs = append(b.inputs, Input{Column: col, Type: p.TypeOf(col)})
	}

	if v, ok := params.Float("k"); ok && v >= 1 {
		b.k = int(v)
	}
	return b
}

func (b *Builder) Algorithm() models.Algorithm {
	return b.algorithm
}

func (b *Builder) Inputs() []Input {
	out := make([]Input, len(b.inputs))
	copy(out, b.inputs)
	return out
}

// Build assembles a request from values keyed by column. Nothing is sent
// unless every input has a value.
func (b *Builder) Build(values map[string]string) (*models.PredictRequest, error) {
	var missing []string
	for _, in := range b.inputs {
		if strings.TrimSpace(values[in.Column]) == "" {
			missing = append(missing, in.Column)
		}
	}
	if len(missing) > 0 {
		return nil, &errorutil.Error{
			Kind:    errorutil.KindValidation,
			Message: "please fill in all feature values",
			Err:     &IncompleteError{Missing: missing},
		}
	}

	features := make([]string, len(b.inputs))
	for i, in := range b.inputs {
		raw := strings.TrimSpace(values[in.Column])
		if in.Type != dataset.ColumnNumeric {
			features[i] = raw
			continue
		}
		f, ok := dataset.LeadingFloat(raw)
		if !ok {
			return nil, errorutil.Validation("%s must be a number", in.Column)
		}
		features[i] = formatNumber(f)
	}

	req := &models.PredictRequest{
		Features:  strings.Join(features, ", "),
		Algorithm: string(b.algorithm),
	}
	if b.algorithm.UsesK() {
		k := b.k
		req.K = &k
	}
	return req, nil
}

// formatNumber renders f the way it is written into the features string:
// shortest round-trip digits, exponent form only for very large or small
// magnitudes.
func formatNumber(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs >= 1e21 || abs < 1e-6) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ExtractPrediction returns the scalar prediction of a response.
func ExtractPrediction(resp *models.PredictResponse) (interface{}, error) {
	if resp == nil || resp.Prediction == nil || resp.Prediction.Prediction == nil {
		return nil, errorutil.Response("prediction not found in response")
	}
	return resp.Prediction.Prediction, nil
}

// FormatPrediction renders a prediction value for display.
func FormatPrediction(v interface{}) string {
	switch val := v.(type) {
	case float64:
		return formatNumber(val)
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
