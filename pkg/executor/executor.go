// Package executor turns one natural-language task into a bounded
// series of agent call attempts: per-attempt wall-clock timeout,
// retries with a fixed delay, provider rate limiting and outcome
// evaluation.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ethpandaops/browsertestoor/pkg/agent"
)

// Config controls behaviour shared by all executions.
type Config struct {
	// RetryDelay is the pause before every attempt after the first.
	RetryDelay time.Duration

	// RequestsPerMinute rate-limits agent calls per provider. 0
	// disables the limiter.
	RequestsPerMinute int

	// FailurePhrases override the default phrase list used to judge
	// agent output when no structured completion signal is present.
	FailurePhrases []string

	// CaptureScreenshots enables screenshot capture after successful
	// attempts. ScreenshotDir is where the files land.
	CaptureScreenshots bool
	ScreenshotDir      string
}

// Options carry the per-task execution parameters.
type Options struct {
	// TestName is used for logging and screenshot file names.
	TestName string

	// Timeout is the wall-clock limit for a single attempt.
	Timeout time.Duration

	// RetryCount is the number of retries after the first attempt.
	RetryCount int

	// Config is the fully merged per-call agent configuration.
	Config agent.CallConfig
}

// Outcome is the judged result of executing one task.
type Outcome struct {
	// Success is the verdict of the outcome heuristic on the final
	// attempt.
	Success bool

	// Output is the agent's stringified result from the final attempt.
	Output string

	// Error describes why the task failed. Empty on success.
	Error string

	// Screenshots are paths of captured screenshots.
	Screenshots []string

	// Attempts is the zero-indexed attempt that succeeded, or
	// RetryCount when every attempt was spent.
	Attempts int
}

// Executor runs one task through an agent caller.
type Executor interface {
	// Execute runs the task with retries. Every fault from the agent
	// call is caught at the attempt level and retried; on exhaustion
	// the task comes back as a nil error with Outcome.Success false
	// and the last fault recorded. A returned error means the run was
	// cancelled.
	Execute(ctx context.Context, caller agent.Caller, task string, opts Options) (Outcome, error)
}

type executor struct {
	log logrus.FieldLogger
	cfg *Config

	mu       sync.Mutex
	limiters map[agent.Provider]*rate.Limiter
}

var _ Executor = (*executor)(nil)

// NewExecutor creates a task executor.
func NewExecutor(log logrus.FieldLogger, cfg *Config) Executor {
	return &executor{
		log:      log.WithField("component", "executor"),
		cfg:      cfg,
		limiters: make(map[agent.Provider]*rate.Limiter),
	}
}

func (e *executor) Execute(ctx context.Context, caller agent.Caller, task string, opts Options) (Outcome, error) {
	log := e.log.WithField("test", opts.TestName)

	var (
		lastOutcome Outcome
		lastErr     error
	)

	for attempt := 0; attempt <= opts.RetryCount; attempt++ {
		if attempt > 0 {
			log.WithField("attempt", attempt).Info("Retrying task")

			select {
			case <-time.After(e.cfg.RetryDelay):
			case <-ctx.Done():
				return Outcome{Attempts: attempt}, fmt.Errorf("waiting to retry: %w", ctx.Err())
			}
		}

		if err := e.waitForSlot(ctx, opts.Config.Provider); err != nil {
			return Outcome{Attempts: attempt}, fmt.Errorf("acquiring rate limit slot: %w", err)
		}

		outcome, err := e.attempt(ctx, caller, task, opts, attempt)
		if err != nil {
			// Parent cancellation is terminal; attempt-level faults
			// are retryable.
			if ctx.Err() != nil {
				return Outcome{Attempts: attempt}, err
			}

			log.WithError(err).WithField("attempt", attempt).Warn("Task attempt errored")

			lastErr = err
			lastOutcome = Outcome{}

			continue
		}

		lastErr = nil
		lastOutcome = outcome

		if outcome.Success {
			outcome.Attempts = attempt

			return outcome, nil
		}

		log.WithFields(logrus.Fields{
			"attempt": attempt,
			"reason":  outcome.Error,
		}).Warn("Task attempt failed")
	}

	lastOutcome.Attempts = opts.RetryCount

	// Faults from the agent call are retried like any other failure;
	// on exhaustion the last one becomes the failed outcome.
	if lastErr != nil {
		lastOutcome.Success = false
		lastOutcome.Error = fmt.Sprintf("task failed after %d attempts: %s", opts.RetryCount+1, lastErr)
	}

	return lastOutcome, nil
}

// attempt runs a single agent call under the per-attempt timeout and
// judges the artifact it returns.
func (e *executor) attempt(ctx context.Context, caller agent.Caller, task string, opts Options, attempt int) (Outcome, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	art, err := caller.Run(attemptCtx, task, opts.Config)
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return Outcome{
				Success: false,
				Error:   fmt.Sprintf("task timed out after %d seconds", int(opts.Timeout.Seconds())),
			}, nil
		}

		return Outcome{}, fmt.Errorf("running agent task: %w", err)
	}

	success, reason := e.judge(art)

	outcome := Outcome{
		Success: success,
		Output:  art.Output(),
		Error:   reason,
	}

	if success && e.cfg.CaptureScreenshots {
		if path, err := e.captureScreenshot(ctx, art, opts.TestName, attempt); err != nil {
			e.log.WithError(err).WithField("test", opts.TestName).Warn("Failed to capture screenshot")
		} else {
			outcome.Screenshots = append(outcome.Screenshots, path)
		}
	}

	return outcome, nil
}

// waitForSlot blocks until the provider's rate limiter admits a call.
func (e *executor) waitForSlot(ctx context.Context, provider agent.Provider) error {
	if e.cfg.RequestsPerMinute <= 0 {
		return nil
	}

	e.mu.Lock()
	limiter, ok := e.limiters[provider]

	if !ok {
		limiter = rate.NewLimiter(rate.Limit(float64(e.cfg.RequestsPerMinute)/60.0), 1)
		e.limiters[provider] = limiter
	}
	e.mu.Unlock()

	return limiter.Wait(ctx)
}
