// Package results holds the per-test result model, the thread-safe
// collector that accumulates results during a run, and summary
// generation over a finished batch.
package results

import (
	"slices"
	"sync"
	"time"

	"github.com/ethpandaops/browsertestoor/pkg/suite"
)

// Status is the terminal state of a single test.
type Status string

const (
	// StatusPassed means the agent completed the task and the outcome
	// heuristic judged it successful.
	StatusPassed Status = "passed"

	// StatusFailed means the task ran but did not achieve its goal.
	StatusFailed Status = "failed"

	// StatusError means the harness itself broke: provider
	// construction, panics, infrastructure faults.
	StatusError Status = "error"

	// StatusSkipped means the test was never dispatched.
	StatusSkipped Status = "skipped"
)

// Metadata is the execution context snapshot attached to every result.
type Metadata struct {
	URL         string              `json:"url,omitempty"`
	Browser     suite.BrowserConfig `json:"browser"`
	Provider    string              `json:"provider,omitempty"`
	Model       string              `json:"model,omitempty"`
	Environment string              `json:"environment,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
	Retries     int                 `json:"retries"`
}

// TestResult records the outcome of one test case.
type TestResult struct {
	TestName  string    `json:"test_name"`
	Status    Status    `json:"status"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	// Duration always equals EndTime.Sub(StartTime); DurationSeconds
	// is the same value for serialization.
	Duration        time.Duration `json:"-"`
	DurationSeconds float64       `json:"duration_seconds"`

	Output      string   `json:"output,omitempty"`
	Error       string   `json:"error,omitempty"`
	Screenshots []string `json:"screenshots,omitempty"`
	Metadata    Metadata `json:"metadata"`
}

// Collector accumulates results as tests finish. It is safe for
// concurrent use.
type Collector struct {
	mu      sync.Mutex
	results []TestResult
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add appends a result. Results are stored in completion order.
func (c *Collector) Add(r TestResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.results = append(c.results, r)
}

// Results returns a copy of all collected results in completion order.
// Mutating the returned slice does not affect the collector.
func (c *Collector) Results() []TestResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.results)
}

// Len returns the number of collected results.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.results)
}

// ByStatus returns the collected results with the given status, in
// completion order.
func (c *Collector) ByStatus(status Status) []TestResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []TestResult

	for _, r := range c.results {
		if r.Status == status {
			out = append(out, r)
		}
	}

	return out
}

// ByTag returns the collected results whose metadata carries the given
// tag, in completion order.
func (c *Collector) ByTag(tag string) []TestResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []TestResult

	for _, r := range c.results {
		if slices.Contains(r.Metadata.Tags, tag) {
			out = append(out, r)
		}
	}

	return out
}
