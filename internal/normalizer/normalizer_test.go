package normalizer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theblitlabs/tinyml-runner/internal/models"
	"github.com/theblitlabs/tinyml-runner/internal/utils/errorutil"
)

func TestToFixed(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{87.5, "87.50"},
		{0, "0.00"},
		{1.005, "1.00"}, // binary value sits just below the tie
		{1.125, "1.13"}, // exact tie rounds away from zero
		{-1.125, "-1.13"},
		{2.675, "2.67"},
		{99.999, "100.00"},
		{-0.001, "-0.00"},
		{123456789.123, "123456789.12"},
		{1e21, "1e+21"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToFixed(tt.in, 2), "ToFixed(%v)", tt.in)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   interface{}
		want float64
		ok   bool
	}{
		{json.Number("0.875"), 0.875, true},
		{"87.50%", 87.5, true},
		{" 12 ", 12, true},
		{42, 42, true},
		{"abc", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseValue(tt.in)
		assert.Equal(t, tt.ok, ok, "ParseValue(%v)", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got)
		}
	}
}

func TestNormalize(t *testing.T) {
	record, err := DecodeArtifact([]byte(`{
		"r2": 87.5,
		"mse": "0.0123",
		"time_ms": 120,
		"memory_kb": 2048.50,
		"inertia": 15.123456,
		"image": "iVBORw0KGgo="
	}`))
	require.NoError(t, err)

	params := models.Parameters{"learning_rate": 0.01}
	result, err := Normalize(record, params)
	require.NoError(t, err)

	assert.Equal(t, "87.50%", result.Metrics["r2"])
	assert.Equal(t, "0.01%", result.Metrics["mse"])
	assert.Equal(t, json.Number("120"), result.Metrics["time_ms"])
	assert.Equal(t, json.Number("2048.50"), result.Metrics["memory_kb"])
	assert.Equal(t, json.Number("15.123456"), result.Metrics["inertia"])
	assert.Equal(t, "iVBORw0KGgo=", result.Metrics["image"])
	assert.Equal(t, params, result.Parameters)

	out, err := json.Marshal(result.Metrics)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"time_ms":120`)
}

func TestNormalizeEveryNonExcludedKeyIsPercentage(t *testing.T) {
	record := map[string]interface{}{
		"accuracy": json.Number("0.91"),
		"custom":   json.Number("3"),
		"recall":   "55",
		"time_ms":  json.Number("7"),
	}

	result, err := Normalize(record, nil)
	require.NoError(t, err)
	assert.Len(t, result.Metrics, len(record))
	assert.NotNil(t, result.Parameters)

	for key, v := range result.Metrics {
		if IsExcluded(key) {
			assert.Equal(t, record[key], v)
			continue
		}
		s, ok := v.(string)
		require.True(t, ok, key)
		assert.Regexp(t, `^-?\d+\.\d{2}%$`, s)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	record := map[string]interface{}{"r2": json.Number("87.456"), "time_ms": json.Number("5")}

	first, err := Normalize(record, nil)
	require.NoError(t, err)
	second, err := Normalize(first.Metrics, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Metrics, second.Metrics)
	assert.Equal(t, json.Number("87.456"), record["r2"])
}

func TestNormalizeRejectsNonNumeric(t *testing.T) {
	_, err := Normalize(map[string]interface{}{"accuracy": "high"}, nil)
	require.Error(t, err)
	assert.True(t, errorutil.IsKind(err, errorutil.KindParse))
}

func TestDecodeArtifactErrors(t *testing.T) {
	for _, data := range []string{"", "  ", "{", "[1,2]", "null", `{"a":1} {"b":2}`} {
		_, err := DecodeArtifact([]byte(data))
		assert.True(t, errorutil.IsKind(err, errorutil.KindParse), "%q", data)
	}
}

func TestNormalizeFile(t *testing.T) {
	dir := t.TempDir()

	_, err := NormalizeFile(filepath.Join(dir, "metrics.json"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics artifact not found")

	path := filepath.Join(dir, "metrics.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"accuracy": 0.5}`), 0o644))
	result, err := NormalizeFile(path, models.Parameters{"k": 3})
	require.NoError(t, err)
	assert.Equal(t, "0.50%", result.Metrics["accuracy"])
}
