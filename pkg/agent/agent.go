// Package agent is the boundary to the external browser agent. The
// orchestrator never drives a browser or an LLM itself; it hands a
// natural-language task to a Caller and inspects the Artifact that
// comes back.
package agent

import (
	"context"
)

// Caller runs one natural-language task through the external agent.
type Caller interface {
	// Run executes the task and blocks until the agent finishes or
	// ctx is done. The returned Artifact is only valid when err is
	// nil.
	Run(ctx context.Context, task string, cfg CallConfig) (Artifact, error)

	// Close releases resources held by the caller.
	Close() error
}

// Artifact is the opaque product of one agent call.
type Artifact interface {
	// Output is the stringified final result of the agent's work.
	Output() string

	// Done reports the agent's structured completion signal. ok is
	// false when the agent did not provide one and callers must fall
	// back to inspecting Output.
	Done() (done, ok bool)
}

// Screenshotter is implemented by artifacts that can produce a
// screenshot of the final browser state. Callers must check for it
// with a type assertion.
type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

// BrowserSettings describe the browser the agent should drive.
type BrowserSettings struct {
	Type     string `json:"type,omitempty"`
	Headless bool   `json:"headless"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// CallConfig carries the per-call agent settings. Values are always
// passed by value; shared defaults are never handed out as pointers.
type CallConfig struct {
	Provider    Provider        `json:"provider"`
	Model       string          `json:"model,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	UseVision   bool            `json:"use_vision"`
	MaxSteps    int             `json:"max_steps,omitempty"`
	MaxActions  int             `json:"max_actions,omitempty"`
	Browser     BrowserSettings `json:"browser"`
}

// Merge returns a copy of c with the non-zero fields of o applied on
// top. Neither receiver nor argument is mutated.
func (c CallConfig) Merge(o CallConfig) CallConfig {
	if o.Provider != "" {
		c.Provider = o.Provider
	}

	if o.Model != "" {
		c.Model = o.Model
	}

	if o.Temperature != nil {
		c.Temperature = o.Temperature
	}

	if o.UseVision {
		c.UseVision = true
	}

	if o.MaxSteps != 0 {
		c.MaxSteps = o.MaxSteps
	}

	if o.MaxActions != 0 {
		c.MaxActions = o.MaxActions
	}

	if o.Browser.Type != "" {
		c.Browser.Type = o.Browser.Type
	}

	if o.Browser.Width != 0 {
		c.Browser.Width = o.Browser.Width
	}

	if o.Browser.Height != 0 {
		c.Browser.Height = o.Browser.Height
	}

	return c
}
