package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethpandaops/browsertestoor/pkg/results"
)

// Console renders the results table and a one-line summary to w.
func Console(w io.Writer, summary results.Summary, res []results.TestResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("%s", summary.SuiteName)
	t.AppendHeader(table.Row{"Test", "Status", "Duration", "Detail"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Detail", WidthMax: 60},
	})

	for i := range res {
		r := &res[i]

		detail := r.Error
		if r.Status == results.StatusPassed {
			detail = ""
		}

		t.AppendRow(table.Row{
			r.TestName,
			coloredStatus(r.Status),
			formatDuration(r.Duration),
			detail,
		})
	}

	t.AppendFooter(table.Row{
		fmt.Sprintf("%d tests", summary.Statistics.TotalTests),
		fmt.Sprintf("%.1f%%", summary.Statistics.SuccessRate),
		formatDuration(summary.TotalDuration),
		"",
	})

	t.SetStyle(table.StyleLight)
	t.Render()

	fmt.Fprintf(w, "\n%d passed, %d failed, %d errors, %d skipped in %s\n",
		summary.Statistics.Passed,
		summary.Statistics.Failed,
		summary.Statistics.Errors,
		summary.Statistics.Skipped,
		formatDuration(summary.TotalDuration),
	)
}

func coloredStatus(s results.Status) string {
	switch s {
	case results.StatusPassed:
		return text.FgGreen.Sprint("✓ passed")
	case results.StatusFailed:
		return text.FgRed.Sprint("✗ failed")
	case results.StatusError:
		return text.FgMagenta.Sprint("! error")
	case results.StatusSkipped:
		return text.FgHiBlack.Sprint("- skipped")
	default:
		return string(s)
	}
}
