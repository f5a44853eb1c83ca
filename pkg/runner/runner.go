// Package runner executes a single test case: it resolves the target
// URL, composes the agent task, picks the caller and maps the
// executor's outcome onto a test result.
package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/browsertestoor/pkg/agent"
	"github.com/ethpandaops/browsertestoor/pkg/executor"
	"github.com/ethpandaops/browsertestoor/pkg/results"
	"github.com/ethpandaops/browsertestoor/pkg/suite"
)

// Runner executes individual test cases from a suite.
type Runner interface {
	// RunTest executes one test case and always returns a complete
	// result, whatever went wrong.
	RunTest(ctx context.Context, tc *suite.TestCase) results.TestResult
}

// Options configure a runner for one suite run.
type Options struct {
	// BaseURL is the host-resolved base URL relative test URLs join
	// onto. May be empty.
	BaseURL string

	// DefaultRetries applies to tests that do not set retry_count.
	DefaultRetries int
}

type runner struct {
	log    logrus.FieldLogger
	suite  *suite.Suite
	agents agent.Manager
	exec   executor.Executor
	opts   Options
}

var _ Runner = (*runner)(nil)

// NewRunner creates a runner bound to one suite.
func NewRunner(log logrus.FieldLogger, s *suite.Suite, agents agent.Manager, exec executor.Executor, opts Options) Runner {
	return &runner{
		log:    log.WithField("component", "runner"),
		suite:  s,
		agents: agents,
		exec:   exec,
		opts:   opts,
	}
}

func (r *runner) RunTest(ctx context.Context, tc *suite.TestCase) results.TestResult {
	log := r.log.WithField("test", tc.Name)
	start := time.Now()

	vars := r.suite.EffectiveVariables(tc)
	resolvedURL := ResolveURL(r.opts.BaseURL, suite.Substitute(tc.URL, vars))
	browser := r.suite.EffectiveBrowser(tc)
	llm := r.suite.EffectiveLLM(tc)

	task := ComposeTask(resolvedURL, suite.Substitute(tc.Prompt, vars), suite.Substitute(tc.ExpectedOutcome, vars))

	caller, callCfg := r.resolveCaller(log, llm, browser, tc)

	retries := r.opts.DefaultRetries
	if tc.RetryCount != nil {
		retries = *tc.RetryCount
	}

	result := results.TestResult{
		TestName:  tc.Name,
		StartTime: start,
		Metadata: results.Metadata{
			URL:         resolvedURL,
			Browser:     browser,
			Provider:    string(callCfg.Provider),
			Model:       callCfg.Model,
			Environment: tc.Environment,
			Tags:        tc.Tags,
		},
	}

	log.WithFields(logrus.Fields{
		"url":      resolvedURL,
		"provider": callCfg.Provider,
		"retries":  retries,
	}).Info("Running test")

	out, err := r.exec.Execute(ctx, caller, task, executor.Options{
		TestName:   tc.Name,
		Timeout:    time.Duration(tc.Timeout) * time.Second,
		RetryCount: retries,
		Config:     callCfg,
	})

	end := time.Now()
	result.EndTime = end
	result.Duration = end.Sub(start)
	result.DurationSeconds = result.Duration.Seconds()
	result.Output = out.Output
	result.Screenshots = out.Screenshots
	result.Metadata.Retries = out.Attempts

	switch {
	case err != nil:
		result.Status = results.StatusError
		result.Error = err.Error()

		log.WithError(err).Error("Test errored")
	case out.Success:
		result.Status = results.StatusPassed

		log.WithField("duration", result.Duration).Info("Test passed")
	default:
		result.Status = results.StatusFailed
		result.Error = out.Error

		log.WithField("reason", out.Error).Warn("Test failed")
	}

	return result
}

// resolveCaller picks the agent caller and fully merged call config
// for a test. A broken provider override falls back to the shared
// default rather than failing the test.
func (r *runner) resolveCaller(log logrus.FieldLogger, llm suite.LLMConfig, browser suite.BrowserConfig, tc *suite.TestCase) (agent.Caller, agent.CallConfig) {
	override := agent.CallConfig{
		Model:       llm.Model,
		Temperature: llm.Temperature,
		MaxActions:  tc.MaxActions,
		Browser: agent.BrowserSettings{
			Type:     browser.Type,
			Headless: browser.IsHeadless(),
			Width:    browser.Viewport.Width,
			Height:   browser.Viewport.Height,
		},
	}

	caller := r.agents.Default()

	if llm.Provider != "" {
		provider, err := agent.ParseProvider(llm.Provider)

		switch {
		case err != nil:
			log.WithError(err).Warn("Invalid provider override, using default agent")
		case provider != r.agents.DefaultConfig().Provider:
			c, cerr := r.agents.ForProvider(provider)
			if cerr != nil {
				log.WithError(cerr).Warn("Failed to build provider override, using default agent")
			} else {
				caller = c
				override.Provider = provider
			}
		}
	}

	cfg := r.agents.DefaultConfig().Merge(override)
	cfg.Browser.Headless = override.Browser.Headless

	return caller, cfg
}

// ComposeTask builds the numbered natural-language task handed to the
// agent. The verify clause comes from the test's expected outcome;
// success criteria stay advisory and never reach the agent.
func ComposeTask(url, prompt, expectedOutcome string) string {
	var steps []string

	if url != "" {
		steps = append(steps, fmt.Sprintf("Navigate to %s", url))
	}

	steps = append(steps, prompt)

	if expectedOutcome != "" {
		steps = append(steps, fmt.Sprintf("Verify that: %s", expectedOutcome))
	}

	var b strings.Builder

	for i, step := range steps {
		if i > 0 {
			b.WriteByte('\n')
		}

		fmt.Fprintf(&b, "%d. %s", i+1, step)
	}

	return b.String()
}

// ResolveURL joins a test URL onto the base URL. Absolute URLs pass
// through untouched; an empty test URL resolves to the base itself.
func ResolveURL(baseURL, testURL string) string {
	if testURL == "" {
		return baseURL
	}

	if strings.Contains(testURL, "://") {
		return testURL
	}

	if baseURL == "" {
		return testURL
	}

	return strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(testURL, "/")
}
