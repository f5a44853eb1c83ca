package suite

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a test suite file from the given path.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading suite file: %w", err)
	}

	return Parse(data)
}

// Parse parses a YAML test suite document, applies defaults and
// validates it.
func Parse(data []byte) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing suite file: %w", err)
	}

	s.applyDefaults()

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validating suite: %w", err)
	}

	return &s, nil
}

// applyDefaults sets default values for unspecified suite options.
func (s *Suite) applyDefaults() {
	if s.MaxWorkers == 0 {
		s.MaxWorkers = DefaultMaxWorkers
	}

	if s.DefaultBrowser.Type == "" {
		s.DefaultBrowser.Type = "chromium"
	}

	if s.DefaultBrowser.Viewport.Width == 0 {
		s.DefaultBrowser.Viewport.Width = 1280
	}

	if s.DefaultBrowser.Viewport.Height == 0 {
		s.DefaultBrowser.Viewport.Height = 720
	}

	for i := range s.Tests {
		tc := &s.Tests[i]

		if tc.Timeout == 0 {
			tc.Timeout = DefaultTestTimeout
		}

		if tc.Environment == "" {
			tc.Environment = DefaultEnvironment
		}
	}
}

// Validate checks the suite for errors.
func (s *Suite) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("suite name is required")
	}

	if len(s.Tests) == 0 {
		return fmt.Errorf("suite %q has no tests", s.Name)
	}

	if s.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be at least 1, got %d", s.MaxWorkers)
	}

	seen := make(map[string]struct{}, len(s.Tests))

	for i := range s.Tests {
		tc := &s.Tests[i]

		if tc.Name == "" {
			return fmt.Errorf("test %d: name is required", i)
		}

		if tc.Prompt == "" {
			return fmt.Errorf("test %q: prompt is required", tc.Name)
		}

		if tc.Timeout < 1 {
			return fmt.Errorf("test %q: timeout must be positive, got %d", tc.Name, tc.Timeout)
		}

		if tc.RetryCount != nil && *tc.RetryCount < 0 {
			return fmt.Errorf("test %q: retry_count must not be negative, got %d", tc.Name, *tc.RetryCount)
		}

		if _, ok := seen[tc.Name]; ok {
			return fmt.Errorf("duplicate test name %q", tc.Name)
		}

		seen[tc.Name] = struct{}{}
	}

	return nil
}
