package dataset

import (
	"regexp"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// AnalysisThreshold is the looser share used by Analyze, which also accepts
// values with a numeric prefix such as "12px".
const AnalysisThreshold = 0.5

var leadingNumber = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)

// LeadingFloat parses the longest numeric prefix of s, ignoring leading
// whitespace.
func LeadingFloat(s string) (float64, bool) {
	m := leadingNumber.FindString(strings.TrimLeft(s, " \t\r\n"))
	if m == "" {
		return 0, false
	}
	// The match is always well-formed; out-of-range values come back as ±Inf.
	f, _ := strconv.ParseFloat(m, 64)
	return f, true
}

func hasLeadingFloat(s string) bool {
	_, ok := LeadingFloat(s)
	return ok
}

type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

type NumericStats struct {
	Min          float64   `json:"min"`
	Max          float64   `json:"max"`
	Mean         float64   `json:"mean"`
	UniqueValues []float64 `json:"unique_values"`
	NullCount    int       `json:"null_count"`
}

type CategoricalStats struct {
	UniqueValues []string       `json:"unique_values"`
	ValueCounts  map[string]int `json:"value_counts"`
	MostCommon   *ValueCount    `json:"most_common,omitempty"`
	NullCount    int            `json:"null_count"`
}

type ColumnStats struct {
	Name        string            `json:"name"`
	Type        ColumnType        `json:"type"`
	Numeric     *NumericStats     `json:"numeric,omitempty"`
	Categorical *CategoricalStats `json:"categorical,omitempty"`
}

type Analysis struct {
	NumericColumns     []string      `json:"numeric_columns"`
	CategoricalColumns []string      `json:"categorical_columns"`
	Columns            []ColumnStats `json:"columns"`
}

// Analyze computes per-column statistics in header order.
func Analyze(p *Profile) *Analysis {
	a := &Analysis{
		NumericColumns:     []string{},
		CategoricalColumns: []string{},
	}

	for _, col := range p.Header {
		values := p.Values(col)
		stats := ColumnStats{Name: col}

		if classify(values, AnalysisThreshold, hasLeadingFloat, false) == ColumnNumeric {
			stats.Type = ColumnNumeric
			stats.Numeric = numericStats(values)
			a.NumericColumns = append(a.NumericColumns, col)
		} else {
			stats.Type = ColumnCategorical
			stats.Categorical = categoricalStats(values)
			a.CategoricalColumns = append(a.CategoricalColumns, col)
		}
		a.Columns = append(a.Columns, stats)
	}
	return a
}

func numericStats(values []string) *NumericStats {
	s := &NumericStats{UniqueValues: []float64{}}
	var nums []float64
	seen := map[float64]struct{}{}

	for _, v := range values {
		if v == "" {
			s.NullCount++
		}
		f, ok := LeadingFloat(v)
		if !ok {
			continue
		}
		nums = append(nums, f)
		if _, dup := seen[f]; !dup {
			seen[f] = struct{}{}
			s.UniqueValues = append(s.UniqueValues, f)
		}
	}

	if len(nums) > 0 {
		s.Min = floats.Min(nums)
		s.Max = floats.Max(nums)
		s.Mean = stat.Mean(nums, nil)
	}
	return s
}

func categoricalStats(values []string) *CategoricalStats {
	s := &CategoricalStats{
		UniqueValues: []string{},
		ValueCounts:  map[string]int{},
	}

	for _, v := range values {
		if v == "" {
			s.NullCount++
			continue
		}
		if _, ok := s.ValueCounts[v]; !ok {
			s.UniqueValues = append(s.UniqueValues, v)
		}
		s.ValueCounts[v]++
	}

	// Ties keep the value seen first.
	for _, v := range s.UniqueValues {
		if s.MostCommon == nil || s.ValueCounts[v] > s.MostCommon.Count {
			s.MostCommon = &ValueCount{Value: v, Count: s.ValueCounts[v]}
		}
	}
	return s
}

// SampleSize is the number of leading rows inspected by SampleColumnType.
const SampleSize = 5

// SampleColumnType guesses a column type from the first SampleSize rows when
// no profile types are available. Half or more finite numbers is numeric.
func SampleColumnType(rows []Row, column string) ColumnType {
	n := len(rows)
	if n > SampleSize {
		n = SampleSize
	}
	values := make([]string, n)
	for i := 0; i < n; i++ {
		values[i] = rows[i][column]
	}
	return classify(values, 0.5, isFiniteNumber, true)
}

// TypeOf returns the profiled type of column, falling back to sampling.
func (p *Profile) TypeOf(column string) ColumnType {
	if t, ok := p.ColumnTypes[column]; ok {
		return t
	}
	return SampleColumnType(p.Rows, column)
}

// Preview returns up to n leading rows.
func (p *Profile) Preview(n int) []Row {
	if n < 0 || n > len(p.Rows) {
		n = len(p.Rows)
	}
	return p.Rows[:n]
}
