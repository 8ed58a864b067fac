// Package history keeps the per-session log of completed training runs.
package history

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/theblitlabs/tinyml-runner/internal/catalog"
	"github.com/theblitlabs/tinyml-runner/internal/models"
	"github.com/theblitlabs/tinyml-runner/internal/normalizer"
)

// Record is one completed job as the client saw it.
type Record struct {
	Algorithm  models.Algorithm  `json:"algorithm"`
	Parameters models.Parameters `json:"parameters"`
	Metrics    models.Metrics    `json:"metrics"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Entry is the rendered form of a record.
type Entry struct {
	Index     int
	Name      string
	Algorithm models.Algorithm
	Timestamp time.Time
	Summary   string
}

// Ledger is append-only. Records are never mutated or removed.
type Ledger struct {
	mu      sync.RWMutex
	records []Record
	now     func() time.Time
}

func NewLedger() *Ledger {
	return &Ledger{now: time.Now}
}

// Record appends a run stamped with the current time.
func (l *Ledger) Record(alg models.Algorithm, params models.Parameters, metrics models.Metrics) Record {
	return l.RecordAt(l.now(), alg, params, metrics)
}

// RecordAt appends a run that completed at ts.
func (l *Ledger) RecordAt(ts time.Time, alg models.Algorithm, params models.Parameters, metrics models.Metrics) Record {
	rec := Record{
		Algorithm:  alg,
		Parameters: params.Clone(),
		Metrics:    cloneMetrics(metrics),
		Timestamp:  ts,
	}

	l.mu.Lock()
	l.records = append(l.records, rec)
	l.mu.Unlock()

	return rec
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Get returns a copy of the record at index i.
func (l *Ledger) Get(i int) (Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if i < 0 || i >= len(l.records) {
		return Record{}, fmt.Errorf("history entry %d out of range (have %d)", i, len(l.records))
	}
	rec := l.records[i]
	rec.Parameters = rec.Parameters.Clone()
	rec.Metrics = cloneMetrics(rec.Metrics)
	return rec, nil
}

// Records returns copies of all records in insertion order.
func (l *Ledger) Records() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Record, len(l.records))
	for i, rec := range l.records {
		rec.Parameters = rec.Parameters.Clone()
		rec.Metrics = cloneMetrics(rec.Metrics)
		out[i] = rec
	}
	return out
}

// Render produces one display entry per record, in insertion order.
func (l *Ledger) Render() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := make([]Entry, len(l.records))
	for i, rec := range l.records {
		entries[i] = Entry{
			Index:     i,
			Name:      fmt.Sprintf("%s #%d", rec.Algorithm.DisplayName(), i+1),
			Algorithm: rec.Algorithm,
			Timestamp: rec.Timestamp,
			Summary:   Summary(rec.Algorithm, rec.Metrics),
		}
	}
	return entries
}

// fallbackSkip lists keys never used as the fallback summary metric.
var fallbackSkip = map[string]struct{}{
	"parameters": {},
	"time_ms":    {},
	"memory_kb":  {},
	"image":      {},
}

// Summary picks the headline metric of a run: r2 for linear regression,
// inertia for k-means, then accuracy, then f1_score, then the first other
// metric key in sorted order. A metric counts as present when it is non-zero.
func Summary(alg models.Algorithm, metrics models.Metrics) string {
	if alg == models.AlgorithmLinearRegression {
		if v, ok := present(metrics, "r2"); ok {
			return summaryText("r2", v)
		}
	}
	if alg == models.AlgorithmKMeans {
		if v, ok := present(metrics, "inertia"); ok {
			return summaryText("inertia", v)
		}
	}
	for _, key := range []string{"accuracy", "f1_score"} {
		if v, ok := present(metrics, key); ok {
			return summaryText(key, v)
		}
	}

	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		if _, skip := fallbackSkip[k]; !skip {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "No metrics available"
	}
	sort.Strings(keys)

	key := keys[0]
	if v, ok := normalizer.ParseValue(metrics[key]); ok {
		return summaryText(key, v)
	}
	text := fmt.Sprint(metrics[key])
	if key != "inertia" {
		text += "%"
	}
	return catalog.MetricLabel(key) + ": " + text
}

func present(metrics models.Metrics, key string) (float64, bool) {
	raw, ok := metrics[key]
	if !ok {
		return 0, false
	}
	v, ok := normalizer.ParseValue(raw)
	return v, ok && v != 0
}

func summaryText(key string, v float64) string {
	text := normalizer.ToFixed(v, 2)
	if key != "inertia" {
		text += "%"
	}
	return catalog.MetricLabel(key) + ": " + text
}

func cloneMetrics(m models.Metrics) models.Metrics {
	if m == nil {
		return nil
	}
	out := make(models.Metrics, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
