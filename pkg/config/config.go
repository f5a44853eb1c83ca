package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultOutputDir is the default directory for run reports.
	DefaultOutputDir = "./reports"

	// DefaultMaxRetries is the retry count applied to tests that do
	// not set their own.
	DefaultMaxRetries = 1

	// DefaultRetryDelay is the pause in seconds between attempts.
	DefaultRetryDelay = 5.0

	// DefaultAgentEndpoint is where the browser-agent sidecar listens.
	DefaultAgentEndpoint = "http://localhost:8931"

	// DefaultAgentMaxSteps bounds the agent's action loop per task.
	DefaultAgentMaxSteps = 50

	// DefaultAgentProvider is used when neither suite nor test picks one.
	DefaultAgentProvider = "google"

	// envPrefix is the prefix for environment variable overrides.
	envPrefix = "BROWSERTESTOOR"
)

// envKeys are the dotted config paths that may be overridden through
// BROWSERTESTOOR_* environment variables.
var envKeys = []string{
	"global.log_level",
	"execution.retry_delay",
	"execution.max_retries",
	"reporting.screenshots",
	"agent.use_vision",
	"agent.max_steps",
	"agent.endpoint",
	"test.parallel",
	"test.max_workers",
	"test.base_url",
}

// Config is the root configuration for browsertestoor.
type Config struct {
	Global    GlobalConfig    `yaml:"global" mapstructure:"global"`
	Agent     AgentConfig     `yaml:"agent" mapstructure:"agent"`
	Execution ExecutionConfig `yaml:"execution" mapstructure:"execution"`
	Test      TestConfig      `yaml:"test" mapstructure:"test"`
	Reporting ReportingConfig `yaml:"reporting" mapstructure:"reporting"`
	Database  *DatabaseConfig `yaml:"database,omitempty" mapstructure:"database"`
	Upload    *UploadConfig   `yaml:"upload,omitempty" mapstructure:"upload"`
	API       *APIConfig      `yaml:"api,omitempty" mapstructure:"api"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// AgentConfig configures the default agent boundary.
type AgentConfig struct {
	Provider    string   `yaml:"provider,omitempty" mapstructure:"provider"`
	Model       string   `yaml:"model,omitempty" mapstructure:"model"`
	Temperature *float64 `yaml:"temperature,omitempty" mapstructure:"temperature"`
	UseVision   bool     `yaml:"use_vision" mapstructure:"use_vision"`
	MaxSteps    int      `yaml:"max_steps,omitempty" mapstructure:"max_steps"`

	// Endpoint is the browser-agent sidecar the HTTP caller posts
	// tasks to.
	Endpoint string `yaml:"endpoint,omitempty" mapstructure:"endpoint"`

	// RequestsPerMinute rate-limits agent calls per provider. 0
	// disables the limiter.
	RequestsPerMinute int `yaml:"requests_per_minute,omitempty" mapstructure:"requests_per_minute"`
}

// ExecutionConfig controls the retry behaviour shared by all tests.
type ExecutionConfig struct {
	// RetryDelay is the pause between attempts, in seconds.
	RetryDelay float64 `yaml:"retry_delay,omitempty" mapstructure:"retry_delay"`

	// MaxRetries applies to tests that do not set retry_count.
	MaxRetries *int `yaml:"max_retries,omitempty" mapstructure:"max_retries"`
}

// TestConfig carries host-level overrides that beat suite settings.
type TestConfig struct {
	// Parallel, when set, replaces the suite's parallel flag outright.
	Parallel *bool `yaml:"parallel,omitempty" mapstructure:"parallel"`

	// MaxWorkers, when positive, replaces the suite's max_workers.
	MaxWorkers int `yaml:"max_workers,omitempty" mapstructure:"max_workers"`

	// BaseURL, when set, replaces the suite's base_url.
	BaseURL string `yaml:"base_url,omitempty" mapstructure:"base_url"`
}

// ReportingConfig controls report rendering.
type ReportingConfig struct {
	OutputDir   string   `yaml:"output_dir,omitempty" mapstructure:"output_dir"`
	Formats     []string `yaml:"formats,omitempty" mapstructure:"formats"`
	Screenshots bool     `yaml:"screenshots" mapstructure:"screenshots"`
}

// UploadConfig contains remote storage settings for report upload.
type UploadConfig struct {
	S3 *S3Config `yaml:"s3,omitempty" mapstructure:"s3"`
}

// S3Config contains S3-compatible storage settings.
type S3Config struct {
	EndpointURL     string `yaml:"endpoint_url,omitempty" mapstructure:"endpoint_url"`
	Region          string `yaml:"region,omitempty" mapstructure:"region"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	Prefix          string `yaml:"prefix,omitempty" mapstructure:"prefix"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `yaml:"force_path_style" mapstructure:"force_path_style"`
}

// DatabaseConfig contains connection settings for the run archive.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver" mapstructure:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite,omitempty" mapstructure:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres,omitempty" mapstructure:"postgres"`
}

// SQLiteConfig contains SQLite-specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	SSLMode  string `yaml:"ssl_mode,omitempty" mapstructure:"ssl_mode"`
}

// Default returns a configuration with every default applied and
// environment variable overrides honoured. Used when no config file
// is given.
func Default() (*Config, error) {
	cfg, err := fromMap(map[string]any{})
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Load reads a configuration file, applies environment variable
// overrides and defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg, err := fromMap(raw)
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// fromMap merges the parsed YAML document with environment variable
// overrides through viper. Each key in envKeys is readable as
// BROWSERTESTOOR_<KEY_WITH_UNDERSCORES>.
func fromMap(raw map[string]any) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.MergeConfigMap(raw); err != nil {
		return nil, fmt.Errorf("merging config: %w", err)
	}

	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	// Environment values arrive as strings; decode them into the
	// typed fields they override.
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for unspecified configuration
// options.
func (c *Config) applyDefaults() {
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = DefaultLogLevel
	}

	if c.Agent.Provider == "" {
		c.Agent.Provider = DefaultAgentProvider
	}

	if c.Agent.Endpoint == "" {
		c.Agent.Endpoint = DefaultAgentEndpoint
	}

	if c.Agent.MaxSteps == 0 {
		c.Agent.MaxSteps = DefaultAgentMaxSteps
	}

	if c.Execution.RetryDelay == 0 {
		c.Execution.RetryDelay = DefaultRetryDelay
	}

	if c.Execution.MaxRetries == nil {
		n := DefaultMaxRetries
		c.Execution.MaxRetries = &n
	}

	if c.Reporting.OutputDir == "" {
		c.Reporting.OutputDir = DefaultOutputDir
	}

	if len(c.Reporting.Formats) == 0 {
		c.Reporting.Formats = []string{"json", "markdown"}
	}

	if c.API != nil {
		c.API.applyDefaults()
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Execution.RetryDelay < 0 {
		return fmt.Errorf("execution.retry_delay must not be negative, got %g", c.Execution.RetryDelay)
	}

	if c.Execution.MaxRetries != nil && *c.Execution.MaxRetries < 0 {
		return fmt.Errorf("execution.max_retries must not be negative, got %d", *c.Execution.MaxRetries)
	}

	if c.Test.MaxWorkers < 0 {
		return fmt.Errorf("test.max_workers must not be negative, got %d", c.Test.MaxWorkers)
	}

	for _, f := range c.Reporting.Formats {
		switch f {
		case "json", "markdown", "html":
		default:
			return fmt.Errorf("unknown report format %q", f)
		}
	}

	if c.Database != nil {
		if err := c.Database.Validate(); err != nil {
			return err
		}
	}

	if c.Upload != nil && c.Upload.S3 != nil && c.Upload.S3.Bucket == "" {
		return fmt.Errorf("upload.s3.bucket is required")
	}

	if c.API != nil {
		if err := c.API.Database.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Validate checks the database settings for errors.
func (d *DatabaseConfig) Validate() error {
	switch d.Driver {
	case "sqlite":
		if d.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required for the sqlite driver")
		}
	case "postgres":
		if d.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", d.Driver)
	}

	return nil
}
