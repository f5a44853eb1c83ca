package store

import "time"

// Run is one archived suite execution.
type Run struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	RunID     string `gorm:"not null;uniqueIndex" json:"run_id"`
	SuiteName string `gorm:"index" json:"suite_name"`

	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds float64   `json:"duration_seconds"`

	// Denormalized statistics for listing without joining results.
	TestsTotal   int     `json:"tests_total"`
	TestsPassed  int     `json:"tests_passed"`
	TestsFailed  int     `json:"tests_failed"`
	TestsErrored int     `json:"tests_errored"`
	TestsSkipped int     `json:"tests_skipped"`
	SuccessRate  float64 `json:"success_rate"`

	CreatedAt time.Time `json:"created_at"`
}

// TestRecord is one archived test result belonging to a run.
type TestRecord struct {
	ID    uint   `gorm:"primaryKey" json:"-"`
	RunID string `gorm:"not null;index" json:"run_id"`

	TestName        string    `gorm:"index" json:"test_name"`
	Status          string    `gorm:"index" json:"status"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds float64   `json:"duration_seconds"`

	Output string `gorm:"type:text" json:"output,omitempty"`
	Error  string `gorm:"type:text" json:"error,omitempty"`

	URL         string `json:"url,omitempty"`
	Provider    string `json:"provider,omitempty"`
	Model       string `json:"model,omitempty"`
	Environment string `json:"environment,omitempty"`

	// Tags serialized as a comma-separated list.
	Tags string `json:"tags,omitempty"`

	Retries     int    `json:"retries"`
	Screenshots string `gorm:"type:text" json:"screenshots,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
