package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "global:\n  log_level: \"\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.Global.LogLevel)
	assert.Equal(t, DefaultAgentProvider, cfg.Agent.Provider)
	assert.Equal(t, DefaultAgentEndpoint, cfg.Agent.Endpoint)
	assert.Equal(t, DefaultAgentMaxSteps, cfg.Agent.MaxSteps)
	assert.InDelta(t, 5.0, cfg.Execution.RetryDelay, 0.001)
	require.NotNil(t, cfg.Execution.MaxRetries)
	assert.Equal(t, DefaultMaxRetries, *cfg.Execution.MaxRetries)
	assert.Equal(t, DefaultOutputDir, cfg.Reporting.OutputDir)
	assert.Equal(t, []string{"json", "markdown"}, cfg.Reporting.Formats)
	assert.Nil(t, cfg.Test.Parallel)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
global:
  log_level: debug
agent:
  provider: openai
  model: gpt-4o
  use_vision: true
  max_steps: 25
  endpoint: http://agent:9000
  requests_per_minute: 10
execution:
  retry_delay: 0.5
  max_retries: 3
test:
  parallel: true
  max_workers: 8
  base_url: https://staging.example.com
reporting:
  output_dir: ./out
  formats: [json, markdown, html]
  screenshots: true
database:
  driver: sqlite
  sqlite:
    path: ./runs.db
upload:
  s3:
    bucket: reports
    region: us-east-1
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Global.LogLevel)
	assert.Equal(t, "openai", cfg.Agent.Provider)
	assert.True(t, cfg.Agent.UseVision)
	assert.Equal(t, 25, cfg.Agent.MaxSteps)
	assert.Equal(t, 10, cfg.Agent.RequestsPerMinute)
	assert.InDelta(t, 0.5, cfg.Execution.RetryDelay, 0.001)
	require.NotNil(t, cfg.Execution.MaxRetries)
	assert.Equal(t, 3, *cfg.Execution.MaxRetries)
	require.NotNil(t, cfg.Test.Parallel)
	assert.True(t, *cfg.Test.Parallel)
	assert.Equal(t, 8, cfg.Test.MaxWorkers)
	assert.Equal(t, "https://staging.example.com", cfg.Test.BaseURL)
	assert.True(t, cfg.Reporting.Screenshots)
	require.NotNil(t, cfg.Database)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	require.NotNil(t, cfg.Upload)
	assert.Equal(t, "reports", cfg.Upload.S3.Bucket)
}

func TestLoadEnvVarOverrides(t *testing.T) {
	content := `
global:
  log_level: info
execution:
  retry_delay: 2
  max_retries: 1
test:
  max_workers: 2
  base_url: https://original.example.com
`

	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "no env vars uses yaml values",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "info", cfg.Global.LogLevel)
				assert.InDelta(t, 2.0, cfg.Execution.RetryDelay, 0.001)
				assert.Equal(t, "https://original.example.com", cfg.Test.BaseURL)
			},
		},
		{
			name: "string override - log_level",
			envVars: map[string]string{
				"BROWSERTESTOOR_GLOBAL_LOG_LEVEL": "debug",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Global.LogLevel)
			},
		},
		{
			name: "float override - retry_delay",
			envVars: map[string]string{
				"BROWSERTESTOOR_EXECUTION_RETRY_DELAY": "0.25",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.InDelta(t, 0.25, cfg.Execution.RetryDelay, 0.001)
			},
		},
		{
			name: "int override - max_retries",
			envVars: map[string]string{
				"BROWSERTESTOOR_EXECUTION_MAX_RETRIES": "5",
			},
			validate: func(t *testing.T, cfg *Config) {
				require.NotNil(t, cfg.Execution.MaxRetries)
				assert.Equal(t, 5, *cfg.Execution.MaxRetries)
			},
		},
		{
			name: "bool override - test parallel",
			envVars: map[string]string{
				"BROWSERTESTOOR_TEST_PARALLEL": "true",
			},
			validate: func(t *testing.T, cfg *Config) {
				require.NotNil(t, cfg.Test.Parallel)
				assert.True(t, *cfg.Test.Parallel)
			},
		},
		{
			name: "int override - max_workers",
			envVars: map[string]string{
				"BROWSERTESTOOR_TEST_MAX_WORKERS": "16",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 16, cfg.Test.MaxWorkers)
			},
		},
		{
			name: "string override - base_url",
			envVars: map[string]string{
				"BROWSERTESTOOR_TEST_BASE_URL": "https://override.example.com",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "https://override.example.com", cfg.Test.BaseURL)
			},
		},
		{
			name: "bool override - screenshots",
			envVars: map[string]string{
				"BROWSERTESTOOR_REPORTING_SCREENSHOTS": "true",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Reporting.Screenshots)
			},
		},
		{
			name: "bool override - agent use_vision",
			envVars: map[string]string{
				"BROWSERTESTOOR_AGENT_USE_VISION": "true",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Agent.UseVision)
			},
		},
		{
			name: "int override - agent max_steps",
			envVars: map[string]string{
				"BROWSERTESTOOR_AGENT_MAX_STEPS": "99",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 99, cfg.Agent.MaxSteps)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load(writeConfig(t, content))
			require.NoError(t, err)
			tt.validate(t, cfg)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "negative retry delay",
			content: "execution:\n  retry_delay: -1\n",
			wantErr: "retry_delay must not be negative",
		},
		{
			name:    "negative max retries",
			content: "execution:\n  max_retries: -2\n",
			wantErr: "max_retries must not be negative",
		},
		{
			name:    "unknown report format",
			content: "reporting:\n  formats: [pdf]\n",
			wantErr: "unknown report format",
		},
		{
			name:    "unknown database driver",
			content: "database:\n  driver: oracle\n",
			wantErr: "unknown database driver",
		},
		{
			name:    "sqlite without path",
			content: "database:\n  driver: sqlite\n",
			wantErr: "database.sqlite.path is required",
		},
		{
			name:    "s3 without bucket",
			content: "upload:\n  s3:\n    region: us-east-1\n",
			wantErr: "upload.s3.bucket is required",
		},
		{
			name:    "invalid yaml",
			content: "agent: [nope",
			wantErr: "parsing config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.Global.LogLevel)
	assert.Equal(t, DefaultAgentEndpoint, cfg.Agent.Endpoint)
	assert.Equal(t, DefaultOutputDir, cfg.Reporting.OutputDir)
	assert.Equal(t, []string{"json", "markdown"}, cfg.Reporting.Formats)
}

func TestAPIConfigMissingDatabase(t *testing.T) {
	path := writeConfig(t, `
api:
  server:
    listen: ":9090"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown database driver")
}

func TestAPIConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
api:
  server:
    rate_limit:
      enabled: true
  database:
    driver: sqlite
    sqlite:
      path: ./runs.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.API)
	assert.Equal(t, ":8080", cfg.API.Server.Listen)
	assert.Equal(t, 120, cfg.API.Server.RateLimit.RequestsPerMinute)
}
