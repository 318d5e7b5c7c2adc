package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	rperrors "github.com/jumpwire-ai/jwctl/internal/errors"
)

// ValidationError contains all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var parts []string

	if len(e.Errors) > 0 {
		parts = append(parts, fmt.Sprintf("Errors:\n  - %s", strings.Join(e.Errors, "\n  - ")))
	}
	if len(e.Warnings) > 0 {
		parts = append(parts, fmt.Sprintf("Warnings:\n  - %s", strings.Join(e.Warnings, "\n  - ")))
	}

	return fmt.Sprintf("configuration validation failed:\n%s", strings.Join(parts, "\n"))
}

// HasErrors returns true if there are validation errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// HasWarnings returns true if there are validation warnings.
func (e *ValidationError) HasWarnings() bool {
	return len(e.Warnings) > 0
}

// Addf adds a formatted error.
func (e *ValidationError) Addf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

// Warnf adds a formatted warning.
func (e *ValidationError) Warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// Validator validates configuration.
type Validator struct {
	errors *ValidationError
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{errors: &ValidationError{}}
}

// Validate validates the configuration. Warnings are kept for the caller to report.
func (v *Validator) Validate(cfg *Config) error {
	v.validateURL(cfg)
	v.validateApproval(cfg.Approval)
	v.validateRetry(cfg.Retry)
	v.validateOutput(cfg.Output)

	if v.errors.HasErrors() {
		return rperrors.Validation("config.Validate", v.errors.Error())
	}
	return nil
}

// Warnings returns the warnings collected by the last Validate call.
func (v *Validator) Warnings() []string {
	return v.errors.Warnings
}

func (v *Validator) validateURL(cfg *Config) {
	if cfg.URL == "" {
		return
	}

	raw := cfg.URL
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		v.errors.Addf("url: invalid URL %q: %v", cfg.URL, err)
		return
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		v.errors.Addf("url: scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		v.errors.Addf("url: missing host in %q", cfg.URL)
	}
	if u.Scheme == "http" && cfg.Token != "" {
		v.errors.Warnf("url: token will be sent over plain http to %s", u.Host)
	}
}

func (v *Validator) validateApproval(cfg ApprovalConfig) {
	if cfg.Timeout <= 0 {
		v.errors.Addf("approval.timeout: must be positive, got %s", cfg.Timeout)
	}
	if cfg.RequestTimeout <= 0 {
		v.errors.Addf("approval.request_timeout: must be positive, got %s", cfg.RequestTimeout)
	}
	if cfg.Timeout > 0 && cfg.RequestTimeout > cfg.Timeout {
		v.errors.Warnf("approval.request_timeout (%s) exceeds approval.timeout (%s)", cfg.RequestTimeout, cfg.Timeout)
	}
}

func (v *Validator) validateRetry(cfg RetryConfig) {
	if cfg.MaxRetries < 0 || cfg.MaxRetries > 10 {
		v.errors.Addf("retry.max_retries: must be between 0 and 10, got %d", cfg.MaxRetries)
	}
	if cfg.InitialDelay < 0 {
		v.errors.Addf("retry.initial_delay: must not be negative, got %s", cfg.InitialDelay)
	}
	if cfg.MaxDelay < cfg.InitialDelay {
		v.errors.Addf("retry.max_delay: must be at least retry.initial_delay (%s), got %s", cfg.InitialDelay, cfg.MaxDelay)
	}
	if cfg.Multiplier < 1 {
		v.errors.Addf("retry.multiplier: must be at least 1, got %g", cfg.Multiplier)
	}
}

func (v *Validator) validateOutput(cfg OutputConfig) {
	validFormats := []string{"text", "json"}
	if !slices.Contains(validFormats, cfg.Format) {
		v.errors.Addf("output.format: must be one of %v, got %q", validFormats, cfg.Format)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(cfg.LogLevel)) {
		v.errors.Addf("output.log_level: must be one of %v, got %q", validLevels, cfg.LogLevel)
	}
}

// Validate validates cfg with a fresh Validator.
func Validate(cfg *Config) ([]string, error) {
	v := NewValidator()
	err := v.Validate(cfg)
	return v.Warnings(), err
}
