package suite

import (
	"strings"
)

const (
	// DefaultTestTimeout is the per-test timeout in seconds when a test
	// case does not specify its own.
	DefaultTestTimeout = 120

	// DefaultMaxWorkers is the concurrency bound used when a suite
	// enables parallel execution without specifying max_workers.
	DefaultMaxWorkers = 2

	// DefaultEnvironment is assumed when a test case does not name one.
	DefaultEnvironment = "production"
)

// BrowserConfig describes the browser a test should run against.
type BrowserConfig struct {
	Type     string   `yaml:"type,omitempty" json:"type"`
	Headless *bool    `yaml:"headless,omitempty" json:"headless,omitempty"`
	Viewport Viewport `yaml:"viewport,omitempty" json:"viewport"`
	Timeout  int      `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	SlowMo   int      `yaml:"slow_mo,omitempty" json:"slow_mo,omitempty"`
	Args     []string `yaml:"args,omitempty" json:"args,omitempty"`
}

// Viewport is the browser window size in pixels.
type Viewport struct {
	Width  int `yaml:"width,omitempty" json:"width"`
	Height int `yaml:"height,omitempty" json:"height"`
}

// LLMConfig selects the model backing the agent for a test.
type LLMConfig struct {
	Provider    string   `yaml:"provider,omitempty" json:"provider,omitempty"`
	Model       string   `yaml:"model,omitempty" json:"model,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
}

// TestCase is one unit of natural-language browser work.
type TestCase struct {
	Name   string `yaml:"name"`
	Prompt string `yaml:"prompt"`

	// SuccessCriteria documents what a pass means for human readers;
	// it is never handed to the agent. ExpectedOutcome feeds the
	// task's verify clause.
	SuccessCriteria string `yaml:"success_criteria,omitempty"`
	ExpectedOutcome string `yaml:"expected_outcome,omitempty"`

	Description string `yaml:"description,omitempty"`
	URL         string `yaml:"url,omitempty"`

	// Timeout is the hard wall-clock limit for one agent call, in
	// seconds. RetryCount is the number of retries after the first
	// attempt; nil means "use the configured execution default".
	Timeout    int  `yaml:"timeout,omitempty"`
	RetryCount *int `yaml:"retry_count,omitempty"`

	Tags        []string `yaml:"tags,omitempty"`
	Environment string   `yaml:"environment,omitempty"`

	Browser *BrowserConfig `yaml:"browser,omitempty"`

	LLMProvider    string   `yaml:"llm_provider,omitempty"`
	LLMModel       string   `yaml:"llm_model,omitempty"`
	LLMTemperature *float64 `yaml:"llm_temperature,omitempty"`

	MaxActions int               `yaml:"max_actions,omitempty"`
	Variables  map[string]string `yaml:"variables,omitempty"`
}

// Suite is an ordered collection of test cases plus shared defaults
// and execution strategy.
type Suite struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Tests       []TestCase `yaml:"tests"`

	Parallel   bool `yaml:"parallel,omitempty"`
	MaxWorkers int  `yaml:"max_workers,omitempty"`
	FailFast   bool `yaml:"fail_fast,omitempty"`

	DefaultBrowser BrowserConfig `yaml:"default_browser,omitempty"`
	DefaultLLM     LLMConfig     `yaml:"default_llm,omitempty"`

	SetupPrompt    string `yaml:"setup_prompt,omitempty"`
	TeardownPrompt string `yaml:"teardown_prompt,omitempty"`

	BaseURL       string            `yaml:"base_url,omitempty"`
	ReportFormats []string          `yaml:"report_formats,omitempty"`
	OutputDir     string            `yaml:"output_dir,omitempty"`
	Variables     map[string]string `yaml:"variables,omitempty"`
}

// EffectiveBrowser returns the browser configuration for a test case:
// the case's own override merged over the suite default, the case
// winning on conflict. The suite default is never mutated.
func (s *Suite) EffectiveBrowser(tc *TestCase) BrowserConfig {
	eff := s.DefaultBrowser

	if tc.Browser == nil {
		return eff
	}

	o := tc.Browser
	if o.Type != "" {
		eff.Type = o.Type
	}

	if o.Headless != nil {
		eff.Headless = o.Headless
	}

	if o.Viewport.Width != 0 {
		eff.Viewport.Width = o.Viewport.Width
	}

	if o.Viewport.Height != 0 {
		eff.Viewport.Height = o.Viewport.Height
	}

	if o.Timeout != 0 {
		eff.Timeout = o.Timeout
	}

	if o.SlowMo != 0 {
		eff.SlowMo = o.SlowMo
	}

	if len(o.Args) > 0 {
		eff.Args = o.Args
	}

	return eff
}

// EffectiveLLM returns the LLM configuration for a test case: the
// case's llm_* fields merged over the suite default, the case winning
// on conflict.
func (s *Suite) EffectiveLLM(tc *TestCase) LLMConfig {
	eff := s.DefaultLLM

	if tc.LLMProvider != "" {
		eff.Provider = tc.LLMProvider
	}

	if tc.LLMModel != "" {
		eff.Model = tc.LLMModel
	}

	if tc.LLMTemperature != nil {
		eff.Temperature = tc.LLMTemperature
	}

	return eff
}

// EffectiveVariables merges suite variables with the test case's own,
// the case winning on conflict. The returned map is freshly allocated.
func (s *Suite) EffectiveVariables(tc *TestCase) map[string]string {
	merged := make(map[string]string, len(s.Variables)+len(tc.Variables))

	for k, v := range s.Variables {
		merged[k] = v
	}

	for k, v := range tc.Variables {
		merged[k] = v
	}

	return merged
}

// IsHeadless reports whether the browser config asks for headless mode.
// Unset defaults to true.
func (b BrowserConfig) IsHeadless() bool {
	if b.Headless == nil {
		return true
	}

	return *b.Headless
}

// Substitute replaces {{name}} placeholders in s with values from
// vars. Unknown placeholders are left untouched.
func Substitute(s string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(s, "{{") {
		return s
	}

	for k, v := range vars {
		s = strings.ReplaceAll(s, "{{"+k+"}}", v)
	}

	return s
}
