package catalog

import (
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/theblitlabs/tinyml-runner/internal/models"
	"github.com/theblitlabs/tinyml-runner/internal/normalizer"
)

type MetricKind string

const (
	MetricPercentage MetricKind = "percentage"
	MetricMagnitude  MetricKind = "magnitude"
	MetricDuration   MetricKind = "duration_ms"
	MetricMemory     MetricKind = "memory_kb"
)

type MetricSpec struct {
	Key         string
	Label       string
	Kind        MetricKind
	Description string
}

var runtimeMetrics = []MetricSpec{
	{Key: "time_ms", Label: "Training Time", Kind: MetricDuration},
	{Key: "memory_kb", Label: "Memory Usage", Kind: MetricMemory},
}

var classificationMetrics = []MetricSpec{
	{Key: "accuracy", Label: "Accuracy", Kind: MetricPercentage, Description: "Share of correctly classified samples"},
	{Key: "precision", Label: "Precision", Kind: MetricPercentage, Description: "Share of positive predictions that were correct"},
	{Key: "recall", Label: "Recall", Kind: MetricPercentage, Description: "Share of actual positives that were found"},
	{Key: "f1_score", Label: "F1 Score", Kind: MetricPercentage, Description: "Harmonic mean of precision and recall"},
}

var metricSchemas = map[models.Algorithm][]MetricSpec{
	models.AlgorithmLinearRegression: {
		{Key: "r2", Label: "R² Score", Kind: MetricPercentage, Description: "Proportion of variance explained by the model"},
		{Key: "mse", Label: "Mean Squared Error", Kind: MetricMagnitude, Description: "Average squared difference between predicted and actual values"},
	},
	models.AlgorithmLogisticRegression: append(append([]MetricSpec{}, classificationMetrics...),
		MetricSpec{Key: "log_loss", Label: "Log Loss", Kind: MetricMagnitude, Description: "Cross-entropy of predicted probabilities"}),
	models.AlgorithmKNN:          classificationMetrics,
	models.AlgorithmDecisionTree: classificationMetrics,
	models.AlgorithmSVM:          classificationMetrics,
	models.AlgorithmKMeans: {
		{Key: "inertia", Label: "Inertia", Kind: MetricMagnitude, Description: "Sum of squared distances to the closest centroid"},
	},
}

// MetricsSchema returns the ordered metric specs displayed for alg, followed
// by the runtime metrics every trainer reports.
func MetricsSchema(alg models.Algorithm) []MetricSpec {
	specs := append([]MetricSpec{}, metricSchemas[alg]...)
	return append(specs, runtimeMetrics...)
}

type MetricEntry struct {
	Spec    MetricSpec
	Present bool
	Value   float64
	Text    string
}

// MetricsView is the full display of one result: one entry per schema
// metric, present or not, plus any extra metrics the trainer reported.
type MetricsView struct {
	Algorithm models.Algorithm
	Entries   []MetricEntry
	Extra     []MetricEntry
}

func BuildMetricsView(alg models.Algorithm, metrics models.Metrics) MetricsView {
	view := MetricsView{Algorithm: alg}
	known := map[string]struct{}{"image": {}}

	for _, spec := range MetricsSchema(alg) {
		known[spec.Key] = struct{}{}
		view.Entries = append(view.Entries, buildEntry(spec, metrics))
	}

	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		if _, ok := known[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		kind := MetricPercentage
		if normalizer.IsExcluded(k) {
			kind = MetricMagnitude
		}
		view.Extra = append(view.Extra, buildEntry(MetricSpec{Key: k, Label: MetricLabel(k), Kind: kind}, metrics))
	}
	return view
}

func buildEntry(spec MetricSpec, metrics models.Metrics) MetricEntry {
	entry := MetricEntry{Spec: spec, Text: "n/a"}
	raw, ok := metrics[spec.Key]
	if !ok {
		return entry
	}
	f, ok := normalizer.ParseValue(raw)
	if !ok {
		return entry
	}
	entry.Present = true
	entry.Value = f
	entry.Text = FormatMetric(spec.Kind, f)
	return entry
}

// FormatMetric renders a value for display according to its kind.
func FormatMetric(kind MetricKind, v float64) string {
	switch kind {
	case MetricPercentage:
		return normalizer.Percentage(v)
	case MetricDuration:
		return normalizer.ToFixed(v/1000, 2) + "s"
	case MetricMemory:
		if v < 0 {
			return normalizer.ToFixed(v, 2) + " kB"
		}
		return humanize.IBytes(uint64(v * 1024))
	default:
		return normalizer.ToFixed(v, 2)
	}
}

// MetricLabel returns the display name of a metric key.
func MetricLabel(key string) string {
	switch key {
	case "r2":
		return "R² Score"
	case "f1_score":
		return "F1 Score"
	case "inertia":
		return "Inertia"
	}
	words := strings.Split(key, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
