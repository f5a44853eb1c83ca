// Package engine orchestrates a whole suite run: setup and teardown
// hooks, sequential or bounded-parallel test dispatch, result
// collection and summary generation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ethpandaops/browsertestoor/pkg/agent"
	"github.com/ethpandaops/browsertestoor/pkg/config"
	"github.com/ethpandaops/browsertestoor/pkg/executor"
	"github.com/ethpandaops/browsertestoor/pkg/results"
	"github.com/ethpandaops/browsertestoor/pkg/runner"
	"github.com/ethpandaops/browsertestoor/pkg/suite"
	"github.com/ethpandaops/browsertestoor/pkg/sysinfo"
)

// State is the engine's position in the run lifecycle.
type State string

const (
	StateIdle        State = "idle"
	StateSettingUp   State = "setting_up"
	StateExecuting   State = "executing"
	StateTearingDown State = "tearing_down"
	StateSummarizing State = "summarizing"
)

// Run is the complete product of one suite execution.
type Run struct {
	ID        string
	SuiteName string
	StartTime time.Time
	EndTime   time.Time

	// Results are in dispatch order, one per test case.
	Results []results.TestResult

	Summary results.Summary
}

// Engine executes test suites.
type Engine interface {
	// ExecuteSuite runs the whole suite. It returns an error only
	// when the run never reached the tests (setup failure,
	// cancellation before dispatch); individual test failures are
	// reported through the results.
	ExecuteSuite(ctx context.Context, s *suite.Suite) (*Run, error)

	// Results returns a copy of everything collected so far, in
	// completion order.
	Results() []results.TestResult

	// State reports the engine's current lifecycle state.
	State() State

	// Cleanup releases the agent manager. Safe to call repeatedly.
	Cleanup() error
}

type engine struct {
	log       logrus.FieldLogger
	cfg       *config.Config
	agents    agent.Manager
	exec      executor.Executor
	collector *results.Collector

	mu    sync.Mutex
	state State

	cleanupOnce sync.Once
	cleanupErr  error
}

var _ Engine = (*engine)(nil)

// New creates an engine.
func New(log logrus.FieldLogger, cfg *config.Config, agents agent.Manager, exec executor.Executor) Engine {
	return &engine{
		log:       log.WithField("component", "engine"),
		cfg:       cfg,
		agents:    agents,
		exec:      exec,
		collector: results.NewCollector(),
		state:     StateIdle,
	}
}

func (e *engine) ExecuteSuite(ctx context.Context, s *suite.Suite) (*Run, error) {
	start := time.Now()
	runID := uuid.New().String()

	log := e.log.WithFields(logrus.Fields{
		"run_id": runID,
		"suite":  s.Name,
	})

	defer e.transition(StateIdle)

	e.transition(StateSettingUp)

	if err := e.runHook(ctx, "setup", s.SetupPrompt); err != nil {
		return nil, fmt.Errorf("suite setup: %w", err)
	}

	e.transition(StateExecuting)

	baseURL := s.BaseURL
	if e.cfg.Test.BaseURL != "" {
		baseURL = e.cfg.Test.BaseURL
	}

	r := runner.NewRunner(e.log, s, e.agents, e.exec, runner.Options{
		BaseURL:        baseURL,
		DefaultRetries: *e.cfg.Execution.MaxRetries,
	})

	parallel := s.Parallel
	if e.cfg.Test.Parallel != nil {
		parallel = *e.cfg.Test.Parallel
	}

	log.WithFields(logrus.Fields{
		"tests":    len(s.Tests),
		"parallel": parallel,
	}).Info("Executing suite")

	var batch []results.TestResult

	if parallel {
		workers := s.MaxWorkers
		if e.cfg.Test.MaxWorkers > 0 {
			workers = e.cfg.Test.MaxWorkers
		}

		if workers < 1 {
			workers = 1
		}

		batch = e.runParallel(ctx, s, r, workers)
	} else {
		batch = e.runSequential(ctx, s, r)
	}

	e.transition(StateTearingDown)

	// A broken teardown must not change test results.
	if err := e.runHook(ctx, "teardown", s.TeardownPrompt); err != nil {
		log.WithError(err).Warn("Suite teardown failed")
	}

	e.transition(StateSummarizing)

	end := time.Now()

	summary := results.GenerateSummary(s.Name, batch, end.Sub(start))
	summary.RunID = runID

	sys := sysinfo.Collect(ctx, e.log)
	summary.System = &sys

	log.WithFields(logrus.Fields{
		"passed":   summary.Statistics.Passed,
		"failed":   summary.Statistics.Failed,
		"errors":   summary.Statistics.Errors,
		"skipped":  summary.Statistics.Skipped,
		"duration": summary.TotalDuration,
	}).Info("Suite finished")

	return &Run{
		ID:        runID,
		SuiteName: s.Name,
		StartTime: start,
		EndTime:   end,
		Results:   batch,
		Summary:   summary,
	}, nil
}

// runSequential dispatches tests one at a time in declaration order.
// With fail_fast enabled, the first non-passed result halts dispatch
// and the remaining cases are recorded as skipped so the total stays
// stable.
func (e *engine) runSequential(ctx context.Context, s *suite.Suite, r runner.Runner) []results.TestResult {
	out := make([]results.TestResult, 0, len(s.Tests))

	halted := false

	for i := range s.Tests {
		tc := &s.Tests[i]

		var res results.TestResult

		switch {
		case halted:
			res = skippedResult(tc, "skipped: previous test failed with fail_fast enabled")
		case ctx.Err() != nil:
			res = skippedResult(tc, "skipped: run cancelled")
		default:
			res = e.runOne(ctx, r, tc)
		}

		e.collector.Add(res)
		out = append(out, res)

		if s.FailFast && !halted && res.Status != results.StatusPassed && res.Status != results.StatusSkipped {
			e.log.WithField("test", tc.Name).Warn("Halting dispatch, fail_fast is enabled")

			halted = true
		}
	}

	return out
}

// runParallel dispatches every test at once behind a worker
// semaphore. The returned slice is dispatch-order stable; the
// collector sees completion order.
func (e *engine) runParallel(ctx context.Context, s *suite.Suite, r runner.Runner, workers int) []results.TestResult {
	out := make([]results.TestResult, len(s.Tests))
	sem := semaphore.NewWeighted(int64(workers))

	var g errgroup.Group

	for i := range s.Tests {
		tc := &s.Tests[i]

		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				res := skippedResult(tc, "skipped: run cancelled")
				e.collector.Add(res)
				out[i] = res

				return nil
			}
			defer sem.Release(1)

			res := e.runOne(ctx, r, tc)
			e.collector.Add(res)
			out[i] = res

			return nil
		})
	}

	_ = g.Wait()

	return out
}

// runOne executes a single test with panic containment. A panicking
// worker yields a failed result instead of taking down the run.
func (e *engine) runOne(ctx context.Context, r runner.Runner, tc *suite.TestCase) (res results.TestResult) {
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			e.log.WithFields(logrus.Fields{
				"test":  tc.Name,
				"panic": p,
			}).Error("Test execution panicked")

			end := time.Now()

			res = results.TestResult{
				TestName:        tc.Name,
				Status:          results.StatusFailed,
				StartTime:       start,
				EndTime:         end,
				Duration:        end.Sub(start),
				DurationSeconds: end.Sub(start).Seconds(),
				Error:           fmt.Sprintf("panic during test execution: %v", p),
				Metadata: results.Metadata{
					Environment: tc.Environment,
					Tags:        tc.Tags,
				},
			}
		}
	}()

	return r.RunTest(ctx, tc)
}

// runHook executes a setup or teardown prompt as a real agent call
// with the suite's default configuration. An empty prompt is a no-op.
func (e *engine) runHook(ctx context.Context, name, prompt string) error {
	if prompt == "" {
		return nil
	}

	e.log.WithField("hook", name).Info("Running suite hook")

	out, err := e.exec.Execute(ctx, e.agents.Default(), prompt, executor.Options{
		TestName: name,
		Timeout:  suite.DefaultTestTimeout * time.Second,
		Config:   e.agents.DefaultConfig(),
	})
	if err != nil {
		return err
	}

	if !out.Success {
		return errors.New(out.Error)
	}

	return nil
}

func skippedResult(tc *suite.TestCase, reason string) results.TestResult {
	now := time.Now()

	return results.TestResult{
		TestName:  tc.Name,
		Status:    results.StatusSkipped,
		StartTime: now,
		EndTime:   now,
		Error:     reason,
		Metadata: results.Metadata{
			Environment: tc.Environment,
			Tags:        tc.Tags,
		},
	}
}

func (e *engine) Results() []results.TestResult {
	return e.collector.Results()
}

func (e *engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

func (e *engine) transition(next State) {
	e.mu.Lock()
	prev := e.state
	e.state = next
	e.mu.Unlock()

	e.log.WithFields(logrus.Fields{
		"from": prev,
		"to":   next,
	}).Debug("Engine state transition")
}

// Cleanup releases the agent manager. Only the first call does the
// work; later calls return the same result.
func (e *engine) Cleanup() error {
	e.cleanupOnce.Do(func() {
		e.log.Debug("Releasing agent manager")

		e.cleanupErr = e.agents.Close()
	})

	return e.cleanupErr
}
