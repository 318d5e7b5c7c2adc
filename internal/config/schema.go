// Package config provides configuration management for jwctl.
package config

import (
	"time"

	rperrors "github.com/jumpwire-ai/jwctl/internal/errors"
	"github.com/jumpwire-ai/jwctl/internal/resilience"
)

// Config file lookup.
var (
	// ConfigFileNames are the base names searched for, in order.
	ConfigFileNames = []string{"config"}
	// ConfigFileExtensions are the supported extensions, in order.
	ConfigFileExtensions = []string{"yaml", "yml"}
)

// Config is the complete jwctl configuration.
type Config struct {
	// URL is the gateway base URL.
	URL string `mapstructure:"url" yaml:"url"`
	// Token is the operator bearer token.
	Token    string         `mapstructure:"token" yaml:"token,omitempty"`
	Approval ApprovalConfig `mapstructure:"approval" yaml:"approval"`
	Retry    RetryConfig    `mapstructure:"retry" yaml:"retry"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
}

// ApprovalConfig bounds the approval workflow.
type ApprovalConfig struct {
	// Timeout is the overall budget from resolve to commit.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// RequestTimeout bounds each HTTP call.
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// RetryConfig configures retries of transient gateway failures.
type RetryConfig struct {
	MaxRetries   int           `mapstructure:"max_retries" yaml:"max_retries"`
	InitialDelay time.Duration `mapstructure:"initial_delay" yaml:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
	Multiplier   float64       `mapstructure:"multiplier" yaml:"multiplier"`
	Jitter       bool          `mapstructure:"jitter" yaml:"jitter"`
}

// OutputConfig configures output and logging.
type OutputConfig struct {
	// Format is "text" or "json".
	Format     string `mapstructure:"format" yaml:"format"`
	Color      bool   `mapstructure:"color" yaml:"color"`
	Verbose    bool   `mapstructure:"verbose" yaml:"verbose"`
	LogLevel   string `mapstructure:"log_level" yaml:"log_level"`
	Timestamps bool   `mapstructure:"timestamps" yaml:"timestamps"`
	LogFile    string `mapstructure:"log_file" yaml:"log_file,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	policy := resilience.DefaultPolicy()
	return &Config{
		Approval: ApprovalConfig{
			Timeout:        60 * time.Second,
			RequestTimeout: 10 * time.Second,
		},
		Retry: RetryConfig{
			MaxRetries:   policy.MaxRetries,
			InitialDelay: policy.InitialDelay,
			MaxDelay:     policy.MaxDelay,
			Multiplier:   policy.Multiplier,
			Jitter:       policy.Jitter,
		},
		Output: OutputConfig{
			Format:   "text",
			Color:    true,
			LogLevel: "info",
		},
	}
}

// Policy converts the retry settings to a resilience policy.
func (c RetryConfig) Policy() resilience.Policy {
	return resilience.Policy{
		MaxRetries:   c.MaxRetries,
		InitialDelay: c.InitialDelay,
		MaxDelay:     c.MaxDelay,
		Multiplier:   c.Multiplier,
		Jitter:       c.Jitter,
	}
}

// Masked returns a copy with the token replaced by its masked form.
func (c *Config) Masked() *Config {
	out := *c
	if out.Token != "" {
		out.Token = rperrors.RedactToken(out.Token)
	}
	return &out
}
