package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/ethpandaops/browsertestoor/pkg/results"
)

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Test Report: {{.Summary.SuiteName}}</title>
<style>
body { font-family: -apple-system, sans-serif; margin: 2rem; color: #1a1a1a; }
.cards { display: flex; gap: 1rem; flex-wrap: wrap; margin-bottom: 2rem; }
.card { border: 1px solid #ddd; border-radius: 8px; padding: 1rem 1.5rem; min-width: 7rem; text-align: center; }
.card .value { font-size: 2rem; font-weight: bold; }
.card .label { color: #666; font-size: 0.85rem; }
.result { border: 1px solid #ddd; border-radius: 8px; padding: 1rem; margin-bottom: 1rem; }
.badge { display: inline-block; padding: 0.15rem 0.6rem; border-radius: 1rem; font-size: 0.8rem; color: #fff; }
.badge.passed { background: #2e7d32; }
.badge.failed { background: #c62828; }
.badge.error { background: #6a1b9a; }
.badge.skipped { background: #757575; }
.meta { color: #666; font-size: 0.85rem; margin: 0.5rem 0; }
pre { background: #f5f5f5; padding: 0.75rem; border-radius: 4px; overflow-x: auto; }
</style>
</head>
<body>
<h1>Test Report: {{.Summary.SuiteName}}</h1>
<p class="meta">Generated {{.GeneratedAt}}{{if .Summary.RunID}} · run {{.Summary.RunID}}{{end}}</p>
<div class="cards">
<div class="card"><div class="value">{{.Summary.Statistics.TotalTests}}</div><div class="label">Total</div></div>
<div class="card"><div class="value">{{.Summary.Statistics.Passed}}</div><div class="label">Passed</div></div>
<div class="card"><div class="value">{{.Summary.Statistics.Failed}}</div><div class="label">Failed</div></div>
<div class="card"><div class="value">{{.Summary.Statistics.Errors}}</div><div class="label">Errors</div></div>
<div class="card"><div class="value">{{.Summary.Statistics.Skipped}}</div><div class="label">Skipped</div></div>
<div class="card"><div class="value">{{printf "%.1f%%" .Summary.Statistics.SuccessRate}}</div><div class="label">Success rate</div></div>
<div class="card"><div class="value">{{duration .Summary.TotalDuration}}</div><div class="label">Duration</div></div>
</div>
<h2>Results</h2>
{{range .Results}}
<div class="result">
<h3>{{.TestName}} <span class="badge {{.Status}}">{{.Status}}</span></h3>
<p class="meta">{{duration .Duration}}{{if .Metadata.URL}} · {{.Metadata.URL}}{{end}}{{if .Metadata.Environment}} · {{.Metadata.Environment}}{{end}}{{if gt .Metadata.Retries 0}} · {{.Metadata.Retries}} retries{{end}}</p>
{{if .Error}}<p><strong>Error:</strong> {{.Error}}</p>{{end}}
{{if .Output}}<pre>{{output .Output}}</pre>{{end}}
{{if .Screenshots}}<p class="meta">Screenshots: {{range .Screenshots}}{{.}} {{end}}</p>{{end}}
</div>
{{end}}
</body>
</html>
`

var htmlTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"duration": formatDuration,
	"output": func(s string) string {
		return truncate(s, maxOutputChars)
	},
}).Parse(htmlTemplate))

func renderHTML(summary results.Summary, res []results.TestResult) ([]byte, error) {
	data := struct {
		Summary     results.Summary
		GeneratedAt string
		Results     []results.TestResult
	}{
		Summary:     summary,
		GeneratedAt: summary.GeneratedAt.Format(time.RFC3339),
		Results:     res,
	}

	var buf bytes.Buffer
	if err := htmlTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing template: %w", err)
	}

	return buf.Bytes(), nil
}
