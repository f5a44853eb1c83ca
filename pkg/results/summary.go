package results

import (
	"time"

	"github.com/ethpandaops/browsertestoor/pkg/sysinfo"
)

// Statistics are the per-status counts for a finished run.
type Statistics struct {
	TotalTests  int     `json:"total_tests"`
	Passed      int     `json:"passed"`
	Failed      int     `json:"failed"`
	Errors      int     `json:"errors"`
	Skipped     int     `json:"skipped"`
	SuccessRate float64 `json:"success_rate"`

	AverageDuration        time.Duration `json:"-"`
	AverageDurationSeconds float64       `json:"average_duration_seconds"`
}

// TestTiming names a test and how long it took.
type TestTiming struct {
	Name            string        `json:"name"`
	Duration        time.Duration `json:"-"`
	DurationSeconds float64       `json:"duration_seconds"`
}

// Performance highlights the extremes of a run. Nil when no test ran.
type Performance struct {
	Slowest *TestTiming `json:"slowest,omitempty"`
	Fastest *TestTiming `json:"fastest,omitempty"`
}

// FailedTest is a summary line for a test that did not pass.
type FailedTest struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Summary aggregates a finished run.
type Summary struct {
	SuiteName   string    `json:"suite_name"`
	RunID       string    `json:"run_id,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`

	TotalDuration        time.Duration `json:"-"`
	TotalDurationSeconds float64       `json:"total_duration_seconds"`

	Statistics  Statistics        `json:"statistics"`
	Performance Performance       `json:"performance"`
	FailedTests []FailedTest      `json:"failed_tests,omitempty"`
	System      *sysinfo.Snapshot `json:"system,omitempty"`
}

// GenerateSummary computes statistics, performance extremes and
// failed-test details for a batch of results. It is a pure function
// of its inputs; success rate counts only passed tests against the
// full total and is 0 for an empty batch.
func GenerateSummary(suiteName string, results []TestResult, totalDuration time.Duration) Summary {
	s := Summary{
		SuiteName:            suiteName,
		GeneratedAt:          time.Now().UTC(),
		TotalDuration:        totalDuration,
		TotalDurationSeconds: totalDuration.Seconds(),
	}

	s.Statistics.TotalTests = len(results)

	var durationSum time.Duration

	for i := range results {
		r := &results[i]

		switch r.Status {
		case StatusPassed:
			s.Statistics.Passed++
		case StatusFailed:
			s.Statistics.Failed++
		case StatusError:
			s.Statistics.Errors++
		case StatusSkipped:
			s.Statistics.Skipped++
		}

		durationSum += r.Duration

		if r.Status == StatusFailed || r.Status == StatusError {
			s.FailedTests = append(s.FailedTests, FailedTest{
				Name:   r.TestName,
				Status: r.Status,
				Error:  r.Error,
			})
		}

		// First encountered wins on ties.
		if s.Performance.Slowest == nil || r.Duration > s.Performance.Slowest.Duration {
			s.Performance.Slowest = &TestTiming{Name: r.TestName, Duration: r.Duration, DurationSeconds: r.Duration.Seconds()}
		}

		if s.Performance.Fastest == nil || r.Duration < s.Performance.Fastest.Duration {
			s.Performance.Fastest = &TestTiming{Name: r.TestName, Duration: r.Duration, DurationSeconds: r.Duration.Seconds()}
		}
	}

	if s.Statistics.TotalTests > 0 {
		s.Statistics.SuccessRate = float64(s.Statistics.Passed) / float64(s.Statistics.TotalTests) * 100
		s.Statistics.AverageDuration = durationSum / time.Duration(s.Statistics.TotalTests)
		s.Statistics.AverageDurationSeconds = s.Statistics.AverageDuration.Seconds()
	}

	return s
}
