package config

// APIConfig contains the results API server configuration.
type APIConfig struct {
	Server   APIServerConfig `yaml:"server" mapstructure:"server"`
	Database DatabaseConfig  `yaml:"database" mapstructure:"database"`
}

// APIServerConfig contains HTTP server settings.
type APIServerConfig struct {
	Listen      string          `yaml:"listen" mapstructure:"listen"`
	CORSOrigins []string        `yaml:"cors_origins,omitempty" mapstructure:"cors_origins"`
	RateLimit   RateLimitConfig `yaml:"rate_limit,omitempty" mapstructure:"rate_limit"`
}

// RateLimitConfig configures per-IP rate limiting.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute,omitempty" mapstructure:"requests_per_minute"`
}

// applyDefaults sets default values for unspecified API options.
func (a *APIConfig) applyDefaults() {
	if a.Server.Listen == "" {
		a.Server.Listen = ":8080"
	}

	if a.Server.RateLimit.Enabled && a.Server.RateLimit.RequestsPerMinute == 0 {
		a.Server.RateLimit.RequestsPerMinute = 120
	}
}
