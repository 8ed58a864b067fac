package catalog

import (
	"errors"
	"fmt"

	"github.com/theblitlabs/tinyml-runner/internal/models"
)

var ErrNoAlgorithm = errors.New("no algorithm selected")

// Form holds the parameter values being edited for one algorithm.
type Form struct {
	algorithm models.Algorithm
	specs     []ParamSpec
	values    models.Parameters
}

func NewForm() *Form {
	return &Form{values: models.Parameters{}}
}

// Select switches the form to alg. Every previously entered value is
// discarded and the schema defaults are restored, even when alg is already
// selected.
func (f *Form) Select(alg models.Algorithm) error {
	specs, ok := Schema(alg)
	if !ok {
		return fmt.Errorf("unsupported algorithm: %s", alg)
	}
	f.algorithm = alg
	f.specs = specs
	f.values = Defaults(alg)
	return nil
}

func (f *Form) Algorithm() models.Algorithm {
	return f.algorithm
}

func (f *Form) Specs() []ParamSpec {
	return f.specs
}

// Set stores a value. Keys from the schema are validated; other keys are
// kept as entered.
func (f *Form) Set(key string, value interface{}) error {
	if f.algorithm == "" {
		return ErrNoAlgorithm
	}
	if spec, ok := Lookup(f.algorithm, key); ok {
		if err := spec.Validate(value); err != nil {
			return err
		}
		if spec.Kind == ParamKindRange {
			value, _ = models.ToFloat(value)
		}
	}
	f.values[key] = value
	return nil
}

// Values returns a copy of the current parameter map.
func (f *Form) Values() models.Parameters {
	return f.values.Clone()
}
