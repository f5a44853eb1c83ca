package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/docker/go-units"

	"github.com/ethpandaops/browsertestoor/pkg/results"
)

func renderMarkdown(summary results.Summary, res []results.TestResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Test Report: %s\n\n", summary.SuiteName)
	fmt.Fprintf(&b, "Generated: %s\n\n", summary.GeneratedAt.Format(time.RFC3339))

	if summary.RunID != "" {
		fmt.Fprintf(&b, "Run ID: `%s`\n\n", summary.RunID)
	}

	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("|--------|-------|\n")
	fmt.Fprintf(&b, "| Total tests | %d |\n", summary.Statistics.TotalTests)
	fmt.Fprintf(&b, "| Passed | %d |\n", summary.Statistics.Passed)
	fmt.Fprintf(&b, "| Failed | %d |\n", summary.Statistics.Failed)
	fmt.Fprintf(&b, "| Errors | %d |\n", summary.Statistics.Errors)
	fmt.Fprintf(&b, "| Skipped | %d |\n", summary.Statistics.Skipped)
	fmt.Fprintf(&b, "| Success rate | %.1f%% |\n", summary.Statistics.SuccessRate)
	fmt.Fprintf(&b, "| Total duration | %s |\n", formatDuration(summary.TotalDuration))
	fmt.Fprintf(&b, "| Average duration | %s |\n\n", formatDuration(summary.Statistics.AverageDuration))

	if summary.Performance.Slowest != nil {
		b.WriteString("## Performance\n\n")
		fmt.Fprintf(&b, "- Slowest: **%s** (%s)\n", summary.Performance.Slowest.Name, formatDuration(summary.Performance.Slowest.Duration))

		if summary.Performance.Fastest != nil {
			fmt.Fprintf(&b, "- Fastest: **%s** (%s)\n", summary.Performance.Fastest.Name, formatDuration(summary.Performance.Fastest.Duration))
		}

		b.WriteString("\n")
	}

	if len(summary.FailedTests) > 0 {
		b.WriteString("## Failed Tests\n\n")

		for _, f := range summary.FailedTests {
			fmt.Fprintf(&b, "- %s **%s** (%s): %s\n", statusEmoji(f.Status), f.Name, f.Status, f.Error)
		}

		b.WriteString("\n")
	}

	if sys := summary.System; sys != nil {
		b.WriteString("## System\n\n")
		fmt.Fprintf(&b, "- Host: %s (%s/%s)\n", sys.Hostname, sys.OS, sys.Architecture)

		if sys.Platform != "" {
			fmt.Fprintf(&b, "- Platform: %s %s\n", sys.Platform, sys.PlatformVersion)
		}

		if sys.CPUModel != "" {
			fmt.Fprintf(&b, "- CPU: %s (%d cores)\n", sys.CPUModel, sys.CPUCores)
		} else {
			fmt.Fprintf(&b, "- CPU cores: %d\n", sys.CPUCores)
		}

		if sys.MemoryTotal > 0 {
			fmt.Fprintf(&b, "- Memory: %s\n", units.BytesSize(float64(sys.MemoryTotal)))
		}

		fmt.Fprintf(&b, "- Go: %s\n\n", sys.GoVersion)
	}

	b.WriteString("## Results\n\n")

	for i := range res {
		r := &res[i]

		fmt.Fprintf(&b, "### %s %s\n\n", statusEmoji(r.Status), r.TestName)
		fmt.Fprintf(&b, "- Status: %s\n", r.Status)
		fmt.Fprintf(&b, "- Duration: %s\n", formatDuration(r.Duration))

		if r.Metadata.URL != "" {
			fmt.Fprintf(&b, "- URL: %s\n", r.Metadata.URL)
		}

		if r.Metadata.Provider != "" {
			fmt.Fprintf(&b, "- Agent: %s", r.Metadata.Provider)

			if r.Metadata.Model != "" {
				fmt.Fprintf(&b, " / %s", r.Metadata.Model)
			}

			b.WriteString("\n")
		}

		if r.Metadata.Environment != "" {
			fmt.Fprintf(&b, "- Environment: %s\n", r.Metadata.Environment)
		}

		if len(r.Metadata.Tags) > 0 {
			fmt.Fprintf(&b, "- Tags: %s\n", strings.Join(r.Metadata.Tags, ", "))
		}

		if r.Metadata.Retries > 0 {
			fmt.Fprintf(&b, "- Retries used: %d\n", r.Metadata.Retries)
		}

		if r.Error != "" {
			fmt.Fprintf(&b, "- Error: %s\n", r.Error)
		}

		if r.Output != "" {
			fmt.Fprintf(&b, "\n```\n%s\n```\n", truncate(r.Output, maxOutputChars))
		}

		if len(r.Screenshots) > 0 {
			b.WriteString("\nScreenshots:\n\n")

			for _, s := range r.Screenshots {
				fmt.Fprintf(&b, "- %s\n", s)
			}
		}

		b.WriteString("\n")
	}

	return b.String()
}
