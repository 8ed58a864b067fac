package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/theblitlabs/tinyml-runner/internal/catalog"
	"github.com/theblitlabs/tinyml-runner/internal/dataset"
	"github.com/theblitlabs/tinyml-runner/internal/history"
	"github.com/theblitlabs/tinyml-runner/internal/models"
	"github.com/theblitlabs/tinyml-runner/internal/prediction"
)

type printer struct {
	out io.Writer

	green  func(a ...interface{}) string
	red    func(a ...interface{}) string
	yellow func(a ...interface{}) string
	cyan   func(a ...interface{}) string
	bold   func(a ...interface{}) string
}

func newPrinter(out io.Writer) *printer {
	return &printer{
		out:    out,
		green:  color.New(color.FgGreen).SprintFunc(),
		red:    color.New(color.FgRed).SprintFunc(),
		yellow: color.New(color.FgYellow).SprintFunc(),
		cyan:   color.New(color.FgCyan).SprintFunc(),
		bold:   color.New(color.Bold).SprintFunc(),
	}
}

func (p *printer) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format, args...)
}

func (p *printer) heading(title string) {
	p.printf("\n%s\n%s\n", p.bold(title), strings.Repeat("─", len([]rune(title))))
}

func (p *printer) success(msg string) {
	p.printf("%s %s\n", p.green("✓"), msg)
}

func (p *printer) failure(err error) {
	p.printf("%s %v\n", p.red("✗"), err)
}

func (p *printer) algorithms() {
	p.heading("Algorithms")
	for _, alg := range models.Algorithms {
		p.printf("  %-22s %s\n", p.cyan(string(alg)), alg.DisplayName())
	}
}

func (p *printer) params(alg models.Algorithm, specs []catalog.ParamSpec) {
	p.heading(alg.DisplayName() + " parameters")
	for _, s := range specs {
		switch s.Kind {
		case catalog.ParamKindEnum:
			p.printf("  %-20s %-32s default %-8s one of %s\n", p.cyan(s.Key), s.Label, s.DefaultOption, strings.Join(s.Options, ", "))
		default:
			p.printf("  %-20s %-32s default %-8g range %g..%g step %g\n", p.cyan(s.Key), s.Label, s.Default, s.Min, s.Max, s.Step)
		}
	}
}

func (p *printer) metrics(view catalog.MetricsView) {
	p.heading(view.Algorithm.DisplayName() + " results")
	for _, e := range append(append([]catalog.MetricEntry{}, view.Entries...), view.Extra...) {
		text := e.Text
		if e.Present {
			text = p.green(text)
		} else {
			text = p.yellow(text)
		}
		p.printf("  %-22s %s\n", e.Spec.Label, text)
	}
}

func (p *printer) parameters(params models.Parameters) {
	if len(params) == 0 {
		return
	}
	p.heading("Parameters")
	for _, k := range params.Keys() {
		p.printf("  %-22s %s\n", k, models.FormatValue(params[k]))
	}
}

func (p *printer) profile(prof *dataset.Profile, analysis *dataset.Analysis, rows int) {
	p.heading("Dataset")
	p.printf("  rows %d, columns %d", prof.RowCount, prof.ColumnCount)
	if prof.Skipped > 0 {
		p.printf(", %s", p.yellow(fmt.Sprintf("%d malformed rows skipped", prof.Skipped)))
	}
	p.printf("\n")

	p.heading("Columns")
	for _, col := range prof.Header {
		p.printf("  %-22s %s\n", col, prof.ColumnTypes[col])
	}

	if preview := prof.Preview(rows); len(preview) > 0 {
		p.heading("Preview")
		p.printf("  %s\n", p.bold(strings.Join(prof.Header, " | ")))
		for _, row := range preview {
			values := make([]string, len(prof.Header))
			for i, col := range prof.Header {
				values[i] = row[col]
			}
			p.printf("  %s\n", strings.Join(values, " | "))
		}
	}

	if analysis == nil {
		return
	}
	p.heading("Statistics")
	for _, st := range analysis.Columns {
		switch {
		case st.Numeric != nil:
			n := st.Numeric
			p.printf("  %-22s min %g  max %g  mean %.4f  unique %d  nulls %d\n",
				st.Name, n.Min, n.Max, n.Mean, len(n.UniqueValues), n.NullCount)
		case st.Categorical != nil:
			c := st.Categorical
			common := "-"
			if c.MostCommon != nil {
				common = fmt.Sprintf("%q (%d)", c.MostCommon.Value, c.MostCommon.Count)
			}
			p.printf("  %-22s unique %d  most common %s  nulls %d\n",
				st.Name, len(c.UniqueValues), common, c.NullCount)
		}
	}
}

func (p *printer) history(entries []history.Entry) {
	p.heading("Training history")
	if len(entries) == 0 {
		p.printf("  No training runs yet\n")
		return
	}
	for _, e := range entries {
		p.printf("  %-26s %s  %s\n", p.cyan(e.Name), e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Summary)
	}
}

func (p *printer) inputs(inputs []prediction.Input) {
	p.heading("Prediction inputs")
	for _, in := range inputs {
		p.printf("  %-22s %s\n", in.Column, in.Type)
	}
}

func (p *printer) prediction(v interface{}) {
	p.printf("%s %s\n", p.bold("Prediction:"), p.green(prediction.FormatPrediction(v)))
}
