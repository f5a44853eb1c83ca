package suite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
		check   func(t *testing.T, s *Suite)
	}{
		{
			name: "minimal suite with defaults",
			yaml: `
name: smoke
tests:
  - name: homepage loads
    prompt: Navigate to the homepage and confirm it loads
`,
			check: func(t *testing.T, s *Suite) {
				t.Helper()
				require.Len(t, s.Tests, 1)
				assert.Equal(t, "smoke", s.Name)
				assert.Equal(t, DefaultTestTimeout, s.Tests[0].Timeout)
				assert.Equal(t, DefaultEnvironment, s.Tests[0].Environment)
				assert.Nil(t, s.Tests[0].RetryCount)
				assert.Equal(t, DefaultMaxWorkers, s.MaxWorkers)
				assert.Equal(t, "chromium", s.DefaultBrowser.Type)
				assert.Equal(t, 1280, s.DefaultBrowser.Viewport.Width)
				assert.Equal(t, 720, s.DefaultBrowser.Viewport.Height)
			},
		},
		{
			name: "full test case fields",
			yaml: `
name: checkout
base_url: https://shop.example.com
parallel: true
max_workers: 4
fail_fast: true
variables:
  user: alice
tests:
  - name: add to cart
    prompt: Add the first product to the cart as {{user}}
    success_criteria: Cart badge shows 1 item
    url: /products
    timeout: 45
    retry_count: 2
    tags: [cart, critical]
    environment: staging
    llm_provider: openai
    llm_model: gpt-4o
    max_actions: 30
    variables:
      user: bob
`,
			check: func(t *testing.T, s *Suite) {
				t.Helper()
				require.Len(t, s.Tests, 1)
				tc := s.Tests[0]
				assert.Equal(t, 45, tc.Timeout)
				require.NotNil(t, tc.RetryCount)
				assert.Equal(t, 2, *tc.RetryCount)
				assert.Equal(t, "staging", tc.Environment)
				assert.Equal(t, []string{"cart", "critical"}, tc.Tags)
				assert.True(t, s.Parallel)
				assert.True(t, s.FailFast)
				assert.Equal(t, 4, s.MaxWorkers)
			},
		},
		{
			name:    "missing suite name",
			yaml:    "tests:\n  - name: a\n    prompt: b\n",
			wantErr: "suite name is required",
		},
		{
			name:    "no tests",
			yaml:    "name: empty\n",
			wantErr: "has no tests",
		},
		{
			name:    "missing prompt",
			yaml:    "name: s\ntests:\n  - name: a\n",
			wantErr: "prompt is required",
		},
		{
			name:    "duplicate test names",
			yaml:    "name: s\ntests:\n  - name: a\n    prompt: p\n  - name: a\n    prompt: q\n",
			wantErr: "duplicate test name",
		},
		{
			name:    "negative retry count",
			yaml:    "name: s\ntests:\n  - name: a\n    prompt: p\n    retry_count: -1\n",
			wantErr: "retry_count must not be negative",
		},
		{
			name:    "invalid yaml",
			yaml:    "name: [broken",
			wantErr: "parsing suite file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse([]byte(tt.yaml))

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)

				return
			}

			require.NoError(t, err)

			if tt.check != nil {
				tt.check(t, s)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "suite.yaml")

	content := `
name: smoke
tests:
  - name: homepage loads
    prompt: Open the homepage
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "smoke", s.Name)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading suite file")
}

func TestEffectiveBrowser(t *testing.T) {
	headless := false
	s := &Suite{
		DefaultBrowser: BrowserConfig{
			Type:     "chromium",
			Viewport: Viewport{Width: 1280, Height: 720},
			Timeout:  30,
		},
	}

	tests := []struct {
		name string
		tc   TestCase
		want BrowserConfig
	}{
		{
			name: "no override returns suite default",
			tc:   TestCase{},
			want: s.DefaultBrowser,
		},
		{
			name: "partial override keeps unset fields",
			tc: TestCase{Browser: &BrowserConfig{
				Type:     "firefox",
				Headless: &headless,
			}},
			want: BrowserConfig{
				Type:     "firefox",
				Headless: &headless,
				Viewport: Viewport{Width: 1280, Height: 720},
				Timeout:  30,
			},
		},
		{
			name: "viewport override",
			tc: TestCase{Browser: &BrowserConfig{
				Viewport: Viewport{Width: 375, Height: 812},
			}},
			want: BrowserConfig{
				Type:     "chromium",
				Viewport: Viewport{Width: 375, Height: 812},
				Timeout:  30,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.EffectiveBrowser(&tt.tc)
			assert.Equal(t, tt.want, got)

			// Suite default must remain untouched.
			assert.Equal(t, "chromium", s.DefaultBrowser.Type)
		})
	}
}

func TestEffectiveLLM(t *testing.T) {
	temp := 0.2
	s := &Suite{DefaultLLM: LLMConfig{Provider: "google", Model: "gemini-2.0-flash"}}

	got := s.EffectiveLLM(&TestCase{})
	assert.Equal(t, s.DefaultLLM, got)

	got = s.EffectiveLLM(&TestCase{LLMProvider: "groq", LLMTemperature: &temp})
	assert.Equal(t, "groq", got.Provider)
	assert.Equal(t, "gemini-2.0-flash", got.Model)
	require.NotNil(t, got.Temperature)
	assert.Equal(t, 0.2, *got.Temperature)
}

func TestEffectiveVariables(t *testing.T) {
	s := &Suite{Variables: map[string]string{"user": "alice", "env": "prod"}}
	tc := &TestCase{Variables: map[string]string{"user": "bob"}}

	got := s.EffectiveVariables(tc)
	assert.Equal(t, map[string]string{"user": "bob", "env": "prod"}, got)

	// The merge must not leak back into the suite map.
	assert.Equal(t, "alice", s.Variables["user"])
}

func TestSubstitute(t *testing.T) {
	tests := []struct {
		name string
		in   string
		vars map[string]string
		want string
	}{
		{
			name: "single placeholder",
			in:   "Log in as {{user}}",
			vars: map[string]string{"user": "alice"},
			want: "Log in as alice",
		},
		{
			name: "repeated placeholder",
			in:   "{{host}}/a and {{host}}/b",
			vars: map[string]string{"host": "example.com"},
			want: "example.com/a and example.com/b",
		},
		{
			name: "unknown placeholder left alone",
			in:   "visit {{page}}",
			vars: map[string]string{"user": "alice"},
			want: "visit {{page}}",
		},
		{
			name: "no vars",
			in:   "plain text",
			vars: nil,
			want: "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Substitute(tt.in, tt.vars))
		})
	}
}

func TestIsHeadless(t *testing.T) {
	var b BrowserConfig

	assert.True(t, b.IsHeadless())

	f := false
	b.Headless = &f
	assert.False(t, b.IsHeadless())
}
