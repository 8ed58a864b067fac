package dataset

import (
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/theblitlabs/tinyml-runner/internal/utils/errorutil"
	"github.com/theblitlabs/tinyml-runner/pkg/logger"
)

type ColumnType string

const (
	ColumnNumeric     ColumnType = "numeric"
	ColumnCategorical ColumnType = "categorical"
)

// A column is numeric when more than this share of its values parse as
// finite numbers.
const NumericThreshold = 0.7

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

type Row map[string]string

// Profile is the parsed form of an uploaded tabular file.
type Profile struct {
	Header      []string              `json:"header"`
	Rows        []Row                 `json:"rows"`
	RowCount    int                   `json:"row_count"`
	ColumnCount int                   `json:"column_count"`
	ColumnTypes map[string]ColumnType `json:"column_types"`
	// Skipped counts data lines dropped for a field count mismatch.
	Skipped int `json:"skipped"`
}

// Values returns the raw values of column in row order.
func (p *Profile) Values(column string) []string {
	values := make([]string, len(p.Rows))
	for i, row := range p.Rows {
		values[i] = row[column]
	}
	return values
}

// Extension returns the lower-cased extension of filename without the dot.
func Extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// Parse builds a profile from file content and its declared extension.
func Parse(content string, ext string) (*Profile, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errorutil.Parse(nil, "empty file")
	}

	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case FormatCSV:
		return ParseCSV(content)
	case FormatJSON:
		return ParseJSON(content)
	default:
		return nil, errorutil.Parse(nil, "unsupported file format: %q", ext)
	}
}

// ParseCSV splits content on newlines and commas. The first non-empty line is
// the header; data lines whose field count differs from the header are
// logged and dropped.
func ParseCSV(content string) (*Profile, error) {
	log := logger.WithComponent("profiler")

	lines := strings.Split(content, "\n")
	var header []string
	var rows []Row
	skipped := 0

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := splitFields(line)

		if header == nil {
			header = fields
			continue
		}

		if len(fields) != len(header) {
			log.Warn().
				Int("line", i+1).
				Int("fields", len(fields)).
				Int("expected", len(header)).
				Msg("Dropping row with mismatched field count")
			skipped++
			continue
		}

		row := make(Row, len(header))
		for j, col := range header {
			row[col] = fields[j]
		}
		rows = append(rows, row)
	}

	if header == nil {
		return nil, errorutil.Parse(nil, "empty file")
	}

	return newProfile(header, rows, skipped), nil
}

func splitFields(line string) []string {
	fields := strings.Split(line, ",")
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

func newProfile(header []string, rows []Row, skipped int) *Profile {
	p := &Profile{
		Header:      header,
		Rows:        rows,
		RowCount:    len(rows),
		ColumnCount: len(header),
		ColumnTypes: make(map[string]ColumnType, len(header)),
		Skipped:     skipped,
	}
	if p.Rows == nil {
		p.Rows = []Row{}
	}
	for _, col := range header {
		p.ColumnTypes[col] = classify(p.Values(col), NumericThreshold, isFiniteNumber, false)
	}
	return p
}

// classify marks values numeric when the parseable share exceeds threshold,
// or reaches it when inclusive is set.
func classify(values []string, threshold float64, parses func(string) bool, inclusive bool) ColumnType {
	n := 0
	for _, v := range values {
		if parses(v) {
			n++
		}
	}
	limit := threshold * float64(len(values))
	if float64(n) > limit || (inclusive && float64(n) >= limit) {
		return ColumnNumeric
	}
	return ColumnCategorical
}

func isFiniteNumber(s string) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil && !math.IsInf(f, 0) && !math.IsNaN(f)
}
