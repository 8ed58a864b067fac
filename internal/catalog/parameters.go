package catalog

import (
	"fmt"
	"math"

	"github.com/theblitlabs/tinyml-runner/internal/models"
)

type ParamKind string

const (
	ParamKindRange ParamKind = "range"
	ParamKindEnum  ParamKind = "enum"
)

// ParamSpec describes one tunable parameter. Enum parameters use Options and
// DefaultOption; range parameters use Min, Max, Step and Default.
type ParamSpec struct {
	Key           string    `json:"key"`
	Label         string    `json:"label"`
	Kind          ParamKind `json:"kind"`
	Min           float64   `json:"min,omitempty"`
	Max           float64   `json:"max,omitempty"`
	Step          float64   `json:"step,omitempty"`
	Default       float64   `json:"default,omitempty"`
	Options       []string  `json:"options,omitempty"`
	DefaultOption string    `json:"default_option,omitempty"`
}

func (s ParamSpec) DefaultValue() interface{} {
	if s.Kind == ParamKindEnum {
		return s.DefaultOption
	}
	return s.Default
}

// Validate checks v against the spec bounds or options.
func (s ParamSpec) Validate(v interface{}) error {
	if s.Kind == ParamKindEnum {
		str := models.FormatValue(v)
		for _, o := range s.Options {
			if o == str {
				return nil
			}
		}
		return fmt.Errorf("%s must be one of %v", s.Key, s.Options)
	}

	f, ok := models.ToFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%s must be a number", s.Key)
	}
	if f < s.Min || f > s.Max {
		return fmt.Errorf("%s must be between %g and %g", s.Key, s.Min, s.Max)
	}
	return nil
}

var (
	learningRate = ParamSpec{Key: "learning_rate", Label: "Learning Rate", Kind: ParamKindRange, Min: 0.001, Max: 0.1, Step: 0.001, Default: 0.01}
	epochs       = ParamSpec{Key: "epochs", Label: "Epochs", Kind: ParamKindRange, Min: 100, Max: 1000, Step: 100, Default: 500}
)

var schemas = map[models.Algorithm][]ParamSpec{
	models.AlgorithmLinearRegression:   {learningRate, epochs},
	models.AlgorithmLogisticRegression: {learningRate, epochs},
	models.AlgorithmKNN: {
		{Key: "k", Label: "Number of Neighbors (k)", Kind: ParamKindRange, Min: 1, Max: 20, Step: 1, Default: 5},
	},
	models.AlgorithmKMeans: {
		{Key: "k", Label: "Number of Clusters (k)", Kind: ParamKindRange, Min: 2, Max: 10, Step: 1, Default: 3},
		{Key: "max_iterations", Label: "Max Iterations", Kind: ParamKindRange, Min: 100, Max: 1000, Step: 100, Default: 300},
	},
	models.AlgorithmDecisionTree: {
		{Key: "max_depth", Label: "Max Depth", Kind: ParamKindRange, Min: 1, Max: 20, Step: 1, Default: 5},
		{Key: "min_samples_split", Label: "Min Samples Split", Kind: ParamKindRange, Min: 2, Max: 20, Step: 1, Default: 2},
	},
	models.AlgorithmSVM: {
		{Key: "c", Label: "Regularization Parameter (C)", Kind: ParamKindRange, Min: 0.1, Max: 10, Step: 0.1, Default: 1},
		learningRate,
		epochs,
	},
}

// Schema returns the ordered parameter specs for alg. The slice is a copy.
func Schema(alg models.Algorithm) ([]ParamSpec, bool) {
	specs, ok := schemas[alg]
	if !ok {
		return nil, false
	}
	out := make([]ParamSpec, len(specs))
	copy(out, specs)
	return out, true
}

// Lookup finds the spec for key within alg's schema.
func Lookup(alg models.Algorithm, key string) (ParamSpec, bool) {
	for _, s := range schemas[alg] {
		if s.Key == key {
			return s, true
		}
	}
	return ParamSpec{}, false
}

// Defaults returns a parameter map holding every schema default for alg.
func Defaults(alg models.Algorithm) models.Parameters {
	params := models.Parameters{}
	for _, s := range schemas[alg] {
		params[s.Key] = s.DefaultValue()
	}
	return params
}

// UnknownKeys returns the keys of params that alg's schema does not define.
func UnknownKeys(alg models.Algorithm, params models.Parameters) []string {
	var unknown []string
	for _, k := range params.Keys() {
		if _, ok := Lookup(alg, k); !ok {
			unknown = append(unknown, k)
		}
	}
	return unknown
}
