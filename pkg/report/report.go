// Package report renders a finished run as JSON, Markdown and HTML
// files plus a console table.
package report

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/browsertestoor/pkg/fsutil"
	"github.com/ethpandaops/browsertestoor/pkg/results"
)

// maxOutputChars caps agent output embedded in Markdown and HTML
// reports.
const maxOutputChars = 500

// Config controls where reports land and which formats are written.
type Config struct {
	OutputDir string
	Formats   []string
}

// Reporter writes run reports.
type Reporter interface {
	// Write renders every configured format and returns the paths of
	// the files it wrote.
	Write(summary results.Summary, res []results.TestResult) ([]string, error)
}

type reporter struct {
	log logrus.FieldLogger
	cfg *Config
}

var _ Reporter = (*reporter)(nil)

// New creates a reporter.
func New(log logrus.FieldLogger, cfg *Config) Reporter {
	return &reporter{
		log: log.WithField("component", "reporter"),
		cfg: cfg,
	}
}

func (r *reporter) Write(summary results.Summary, res []results.TestResult) ([]string, error) {
	stamp := summary.GeneratedAt.Format("20060102_150405")
	base := fsutil.Slug(summary.SuiteName)

	if base == "" {
		base = "report"
	}

	var paths []string

	for _, format := range r.cfg.Formats {
		var (
			data []byte
			ext  string
			err  error
		)

		switch format {
		case "json":
			data, err = renderJSON(summary, res)
			ext = "json"
		case "markdown":
			data = []byte(renderMarkdown(summary, res))
			ext = "md"
		case "html":
			data, err = renderHTML(summary, res)
			ext = "html"
		default:
			return nil, fmt.Errorf("unknown report format %q", format)
		}

		if err != nil {
			return nil, fmt.Errorf("rendering %s report: %w", format, err)
		}

		path, err := fsutil.WriteFile(r.cfg.OutputDir, fmt.Sprintf("%s_%s.%s", base, stamp, ext), data)
		if err != nil {
			return nil, fmt.Errorf("writing %s report: %w", format, err)
		}

		r.log.WithField("path", path).Info("Report written")

		paths = append(paths, path)
	}

	return paths, nil
}

// formatDuration formats a duration for human eyes.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.String()
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}

	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}

	return fmt.Sprintf("%ds", seconds)
}

// statusEmoji maps a result status to its report marker.
func statusEmoji(s results.Status) string {
	switch s {
	case results.StatusPassed:
		return "✅"
	case results.StatusFailed:
		return "❌"
	case results.StatusError:
		return "💥"
	case results.StatusSkipped:
		return "⏭️"
	default:
		return "❓"
	}
}

// truncate caps s at n characters, marking the cut.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "… (truncated)"
}
