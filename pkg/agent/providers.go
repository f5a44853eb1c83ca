package agent

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Provider identifies an LLM backend the agent can run on.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderOpenAI Provider = "openai"
	ProviderGroq   Provider = "groq"
)

// Options configure how callers reach the agent service.
type Options struct {
	// Endpoint is the base URL of the browser-agent service.
	Endpoint string

	// DefaultModel is used when a call config names no model.
	DefaultModel string
}

type constructor func(log logrus.FieldLogger, opts Options) (Caller, error)

// callers is the closed set of supported providers. Adding a provider
// means adding a constructor here at compile time.
var callers = map[Provider]constructor{
	ProviderGoogle: newHTTPCaller,
	ProviderOpenAI: newHTTPCaller,
	ProviderGroq:   newHTTPCaller,
}

// ParseProvider validates a provider name from config or suite input.
func ParseProvider(s string) (Provider, error) {
	p := Provider(s)
	if _, ok := callers[p]; !ok {
		return "", fmt.Errorf("unknown provider %q", s)
	}

	return p, nil
}

// New constructs a caller for the given provider. Unknown providers
// fail fast instead of being discovered at call time.
func New(provider Provider, log logrus.FieldLogger, opts Options) (Caller, error) {
	ctor, ok := callers[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}

	c, err := ctor(log, opts)
	if err != nil {
		return nil, fmt.Errorf("constructing %s caller: %w", provider, err)
	}

	return c, nil
}
