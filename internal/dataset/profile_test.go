package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theblitlabs/tinyml-runner/internal/utils/errorutil"
)

func TestParseCSV(t *testing.T) {
	t.Run("header and typed columns", func(t *testing.T) {
		content := "a, b ,label\n1,x,yes\n2,y,no\n\n3,z,yes\n"

		p, err := Parse(content, "csv")
		require.NoError(t, err)

		assert.Equal(t, []string{"a", "b", "label"}, p.Header)
		assert.Equal(t, 3, p.RowCount)
		assert.Equal(t, 3, p.ColumnCount)
		assert.Equal(t, "y", p.Rows[1]["b"])
		assert.Equal(t, ColumnNumeric, p.ColumnTypes["a"])
		assert.Equal(t, ColumnCategorical, p.ColumnTypes["b"])
		assert.Equal(t, 0, p.Skipped)
	})

	t.Run("mismatched rows are dropped", func(t *testing.T) {
		p, err := Parse("a,b\n1,2\n3\n4,5,6\n7,8", "CSV")
		require.NoError(t, err)

		assert.Equal(t, 2, p.RowCount)
		assert.Equal(t, 2, p.Skipped)
		assert.Equal(t, "7", p.Rows[1]["a"])
	})

	t.Run("windows line endings", func(t *testing.T) {
		p, err := Parse("x,y\r\n1,2\r\n", "csv")
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y"}, p.Header)
		assert.Equal(t, "2", p.Rows[0]["y"])
	})

	t.Run("header only", func(t *testing.T) {
		p, err := Parse("x,y\n", "csv")
		require.NoError(t, err)
		assert.Equal(t, 0, p.RowCount)
		assert.Empty(t, p.Rows)
	})
}

func TestNumericThreshold(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected ColumnType
	}{
		// 7 of 10 is not more than 70%.
		{"exactly seventy percent", "v\n1\n2\n3\n4\n5\n6\n7\na\nb\nc", ColumnCategorical},
		{"eight of ten", "v\n1\n2\n3\n4\n5\n6\n7\n8\nb\nc", ColumnNumeric},
		{"prefix numbers are not finite", "v\n1px\n2px\n3", ColumnCategorical},
		{"exponent and sign", "v\n-1e3\n+2.5\n.5", ColumnNumeric},
		{"infinity is not finite", "v\nInf\nNaN\n1", ColumnCategorical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseCSV(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p.ColumnTypes["v"])
		})
	}
}

func TestParseJSON(t *testing.T) {
	t.Run("keeps first object key order", func(t *testing.T) {
		content := `[{"z": 1, "a": "x", "m": true}, {"z": 2.5, "a": "y", "m": null}]`

		p, err := Parse(content, "json")
		require.NoError(t, err)

		assert.Equal(t, []string{"z", "a", "m"}, p.Header)
		assert.Equal(t, 2, p.RowCount)
		assert.Equal(t, "2.5", p.Rows[1]["z"])
		assert.Equal(t, "true", p.Rows[0]["m"])
		assert.Equal(t, "", p.Rows[1]["m"])
		assert.Equal(t, ColumnNumeric, p.ColumnTypes["z"])
	})

	t.Run("drops records with a different key count", func(t *testing.T) {
		p, err := Parse(`[{"a":1,"b":2},{"a":3},{"a":4,"b":5}]`, "json")
		require.NoError(t, err)
		assert.Equal(t, 2, p.RowCount)
		assert.Equal(t, 1, p.Skipped)
	})

	t.Run("not an array", func(t *testing.T) {
		_, err := Parse(`{"a":1}`, "json")
		require.Error(t, err)
		assert.True(t, errorutil.IsKind(err, errorutil.KindParse))
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := Parse(`[{"a":1},`, "json")
		require.Error(t, err)
		assert.True(t, errorutil.IsKind(err, errorutil.KindParse))
	})
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		ext     string
	}{
		{"empty content", "", "csv"},
		{"blank lines only", "\n \n", "csv"},
		{"unsupported extension", "a,b\n1,2", "xlsx"},
		{"empty json array", "[]", "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.content, tt.ext)
			require.Error(t, err)
			assert.True(t, errorutil.IsKind(err, errorutil.KindParse))
		})
	}
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "csv", Extension("data/Iris.CSV"))
	assert.Equal(t, "json", Extension("rows.json"))
	assert.Equal(t, "", Extension("noext"))
}
