package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jumpwire-ai/jwctl/internal/credentials"
	rperrors "github.com/jumpwire-ai/jwctl/internal/errors"
)

// EnvPrefix is the prefix of environment overrides, e.g. JW_URL.
const EnvPrefix = "JW"

var (
	// envVarPattern matches ${VAR} or ${VAR:-default} syntax
	envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)
	// simpleEnvVarPattern matches $VAR syntax
	simpleEnvVarPattern = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// TokenSource supplies a stored token used when no other source sets one.
type TokenSource interface {
	Load() (string, error)
}

// Loader handles configuration loading and merging.
// Precedence, lowest first: defaults, stored token, config file, JW_* environment, merged values.
type Loader struct {
	v           *viper.Viper
	configPath  string
	searchPaths []string
	tokens      TokenSource
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	l := &Loader{v: v}
	if dir, err := credentials.ConfigDir(); err == nil {
		l.searchPaths = []string{dir}
	}
	return l
}

// WithConfigPath sets an explicit config file path, which must exist.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithSearchPaths replaces the directories searched for config files.
func (l *Loader) WithSearchPaths(paths ...string) *Loader {
	l.searchPaths = paths
	return l
}

// WithTokenStore sets the lowest-precedence token source.
func (l *Loader) WithTokenStore(src TokenSource) *Loader {
	l.tokens = src
	return l
}

// MergeConfig sets values that override every other source.
// Keys use dotted paths such as "approval.timeout".
func (l *Loader) MergeConfig(values map[string]any) {
	for key, value := range values {
		l.v.Set(key, value)
	}
}

// Load loads the configuration.
func (l *Loader) Load() (*Config, error) {
	const op = "config.Load"

	if err := l.setDefaults(); err != nil {
		return nil, err
	}

	if err := l.loadConfigFile(); err != nil {
		return nil, rperrors.ConfigWrap(err, op, "failed to load config file")
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, rperrors.ConfigWrap(err, op, "failed to unmarshal config")
	}

	cfg.URL = expandEnvVar(cfg.URL)
	cfg.Token = strings.TrimSpace(expandEnvVar(cfg.Token))
	cfg.Output.LogFile = expandEnvVar(cfg.Output.LogFile)

	return cfg, nil
}

func (l *Loader) setDefaults() error {
	defaults := DefaultConfig()

	token := ""
	if l.tokens != nil {
		stored, err := l.tokens.Load()
		if err != nil {
			return err
		}
		token = stored
	}

	l.v.SetDefault("url", defaults.URL)
	l.v.SetDefault("token", token)

	l.v.SetDefault("approval.timeout", defaults.Approval.Timeout)
	l.v.SetDefault("approval.request_timeout", defaults.Approval.RequestTimeout)

	l.v.SetDefault("retry.max_retries", defaults.Retry.MaxRetries)
	l.v.SetDefault("retry.initial_delay", defaults.Retry.InitialDelay)
	l.v.SetDefault("retry.max_delay", defaults.Retry.MaxDelay)
	l.v.SetDefault("retry.multiplier", defaults.Retry.Multiplier)
	l.v.SetDefault("retry.jitter", defaults.Retry.Jitter)

	l.v.SetDefault("output.format", defaults.Output.Format)
	l.v.SetDefault("output.color", defaults.Output.Color)
	l.v.SetDefault("output.verbose", defaults.Output.Verbose)
	l.v.SetDefault("output.log_level", defaults.Output.LogLevel)
	l.v.SetDefault("output.timestamps", defaults.Output.Timestamps)
	l.v.SetDefault("output.log_file", defaults.Output.LogFile)
	return nil
}

func (l *Loader) loadConfigFile() error {
	if l.configPath != "" {
		l.v.SetConfigFile(l.configPath)
		if err := l.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", l.configPath, err)
		}
		return nil
	}

	for _, searchPath := range l.searchPaths {
		for _, name := range ConfigFileNames {
			for _, ext := range ConfigFileExtensions {
				configFile := filepath.Join(searchPath, name+"."+ext)
				if _, err := os.Stat(configFile); err == nil {
					l.v.SetConfigFile(configFile)
					if err := l.v.ReadInConfig(); err != nil {
						return fmt.Errorf("reading config file %s: %w", configFile, err)
					}
					return nil
				}
			}
		}
	}

	// No config file is fine.
	return nil
}

// expandEnvVar expands ${VAR}, ${VAR:-default} and $VAR references.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envVarPattern.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}
		defaultValue := ""
		if len(submatch) > 2 {
			defaultValue = submatch[2]
		}
		if value := os.Getenv(submatch[1]); value != "" {
			return value
		}
		return defaultValue
	})

	// Unset $VAR references are left as written.
	return simpleEnvVarPattern.ReplaceAllStringFunc(result, func(match string) string {
		if value := os.Getenv(match[1:]); value != "" {
			return value
		}
		return match
	})
}

// GetConfigPath returns the path to the loaded config file, if any.
func (l *Loader) GetConfigPath() string {
	return l.v.ConfigFileUsed()
}

// MarshalYAML renders cfg as YAML with the token masked.
func MarshalYAML(cfg *Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg.Masked())
	if err != nil {
		return nil, rperrors.InternalWrap(err, "config.MarshalYAML", "failed to encode config")
	}
	return out, nil
}
