package normalizer

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"github.com/theblitlabs/tinyml-runner/internal/models"
	"github.com/theblitlabs/tinyml-runner/internal/utils/errorutil"
	"github.com/theblitlabs/tinyml-runner/pkg/logger"
)

// Keys copied through unchanged. Every other key is rendered as a percentage.
var excludedKeys = map[string]struct{}{
	"time_ms":   {},
	"memory_kb": {},
	"inertia":   {},
	"image":     {},
}

func IsExcluded(key string) bool {
	_, ok := excludedKeys[key]
	return ok
}

// ReadArtifact decodes the metrics artifact at path into a flat record.
// Numbers are kept as json.Number so excluded values survive byte for byte.
func ReadArtifact(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errorutil.Parse(nil, "metrics artifact not found: %s", path)
		}
		return nil, errorutil.Parse(err, "failed to read metrics artifact")
	}
	return DecodeArtifact(data)
}

// DecodeArtifact parses artifact bytes. The top level must be an object.
func DecodeArtifact(data []byte) (map[string]interface{}, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errorutil.Parse(nil, "metrics artifact is empty")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var record map[string]interface{}
	if err := dec.Decode(&record); err != nil {
		return nil, errorutil.Parse(err, "malformed metrics artifact")
	}
	if record == nil {
		return nil, errorutil.Parse(nil, "metrics artifact is not an object")
	}
	if dec.More() {
		return nil, errorutil.Parse(nil, "trailing data after metrics artifact")
	}
	return record, nil
}

// Normalize applies the formatting rule to every key of record and echoes
// params. The input is not modified.
func Normalize(record map[string]interface{}, params models.Parameters) (*models.TrainingResult, error) {
	metrics := make(models.Metrics, len(record))
	for key, value := range record {
		if IsExcluded(key) {
			metrics[key] = value
			continue
		}
		f, ok := ParseValue(value)
		if !ok {
			return nil, errorutil.Parse(nil, "metric %q is not numeric: %v", key, value)
		}
		metrics[key] = Percentage(f)
	}

	if params == nil {
		params = models.Parameters{}
	}
	return &models.TrainingResult{
		Metrics:    metrics,
		Parameters: params,
	}, nil
}

// NormalizeFile reads the artifact at path and normalizes it.
func NormalizeFile(path string, params models.Parameters) (*models.TrainingResult, error) {
	log := logger.WithComponent("normalizer")

	record, err := ReadArtifact(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Metrics artifact unusable")
		return nil, err
	}

	result, err := Normalize(record, params)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Metrics normalization failed")
		return nil, err
	}

	log.Debug().Int("metrics", len(result.Metrics)).Str("path", path).Msg("Metrics normalized")
	return result, nil
}
