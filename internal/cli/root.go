// Package cli provides the command-line interface for jwctl.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/jumpwire-ai/jwctl/internal/config"
	"github.com/jumpwire-ai/jwctl/internal/credentials"
	rperrors "github.com/jumpwire-ai/jwctl/internal/errors"
	"github.com/jumpwire-ai/jwctl/internal/version"
)

var (
	// Version information set by main.
	versionInfo struct {
		Version string
		Commit  string
		Date    string
	}

	// Global flags
	cfgFile     string
	urlFlag     string
	tokenFlag   string
	verbose     bool
	timestamps  bool
	outputJSON  bool
	noColor     bool
	logLevel    string
	timeoutFlag time.Duration

	// Global config
	cfg *config.Config

	// Logger
	logger *log.Logger

	// logFile holds the log file handle for cleanup
	logFile *os.File

	styles = DefaultStyles()
)

// newTokenStore opens the persisted token file.
var newTokenStore = func() (*credentials.Store, error) {
	return credentials.DefaultStore()
}

// SetVersionInfo sets the version information from main.
func SetVersionInfo(v, commit, date string) {
	version.Set(v)
	versionInfo.Version = version.Get()
	versionInfo.Commit = commit
	versionInfo.Date = date
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "jwctl",
	Short: "Operator client for the JumpWire gateway",
	Long: `jwctl approves pending database connections and SSO logins held by
a JumpWire gateway, and inspects the gateway and your operator token.

The gateway URL and token come from, lowest precedence first:
  ~/.config/jwctl/token, ~/.config/jwctl/config.yaml, JW_* environment
  variables, and command-line flags.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		return initConfig(cmd)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExecuteContext runs the root command with a context for graceful shutdown.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	logger = log.NewWithOptions(os.Stderr, log.Options{})

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.config/jwctl/config.yaml)")
	flags.StringVar(&urlFlag, "url", "", "gateway URL")
	flags.StringVar(&tokenFlag, "token", "", "operator token")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVar(&timestamps, "timestamps", false, "include timestamps in log output")
	flags.BoolVar(&outputJSON, "json", false, "output results as JSON")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
	flags.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.DurationVar(&timeoutFlag, "timeout", 0, "overall approval timeout (default 60s)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(manifestsCmd)
	rootCmd.AddCommand(configCmd)
}

// flagOverrides returns the config values set explicitly on the command line.
func flagOverrides(cmd *cobra.Command) map[string]any {
	values := make(map[string]any)
	changed := cmd.Flags().Changed

	if changed("url") {
		values["url"] = urlFlag
	}
	if changed("token") {
		values["token"] = tokenFlag
	}
	if changed("verbose") {
		values["output.verbose"] = verbose
	}
	if changed("timestamps") {
		values["output.timestamps"] = timestamps
	}
	if changed("json") && outputJSON {
		values["output.format"] = "json"
	}
	if changed("no-color") && noColor {
		values["output.color"] = false
	}
	if changed("log-level") {
		values["output.log_level"] = logLevel
	}
	if changed("timeout") {
		values["approval.timeout"] = timeoutFlag
	}
	return values
}

// loadAndValidateConfig loads and validates the configuration. It returns
// the config file used, empty when none was found, and any warnings.
func loadAndValidateConfig(cmd *cobra.Command) (string, []string, error) {
	store, err := newTokenStore()
	if err != nil {
		return "", nil, err
	}

	loader := config.NewLoader().WithTokenStore(store)
	if cfgFile != "" {
		loader.WithConfigPath(cfgFile)
	}
	loader.MergeConfig(flagOverrides(cmd))

	cfg, err = loader.Load()
	if err != nil {
		return "", nil, fmt.Errorf("failed to load config: %w", err)
	}

	warnings, err := config.Validate(cfg)
	if err != nil {
		return "", nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return loader.GetConfigPath(), warnings, nil
}

// configureLogger rebuilds the logger from the loaded configuration.
func configureLogger(w io.Writer) {
	level, err := log.ParseLevel(strings.ToLower(cfg.Output.LogLevel))
	if err != nil {
		level = log.InfoLevel
	}
	if cfg.Output.Verbose {
		level = log.DebugLevel
	}

	formatter := log.TextFormatter
	if cfg.Output.Format == "json" {
		formatter = log.JSONFormatter
	}

	logger = log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: cfg.Output.Timestamps,
		TimeFormat:      time.RFC3339,
	})
}

// configureLogFile sets up log file output if specified.
func configureLogFile() error {
	if cfg.Output.LogFile == "" {
		return nil
	}

	var err error
	logFile, err = os.OpenFile(cfg.Output.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	logger.SetOutput(logFile)
	return nil
}

// initConfig loads configuration and configures logging and styling.
func initConfig(cmd *cobra.Command) error {
	configFile, warnings, err := loadAndValidateConfig(cmd)
	if err != nil {
		return err
	}

	configureLogger(cmd.ErrOrStderr())
	if !cfg.Output.Color {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	if err := configureLogFile(); err != nil {
		return err
	}

	for _, w := range warnings {
		logger.Warn(w)
	}
	logger.Debug("configuration loaded", "file", configFile, "url", cfg.URL, "authenticated", cfg.Token != "")
	return nil
}

// Cleanup closes any open resources. Should be called before program exit.
func Cleanup() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// ReportError prints err to w unless the command already reported it.
func ReportError(w io.Writer, err error) {
	var outcome *OutcomeError
	if err == nil || errors.As(err, &outcome) {
		return
	}
	newPrinter(w).Error(rperrors.RedactSensitive(err.Error()))
}

// isJSON reports whether results are printed as JSON.
func isJSON() bool {
	return outputJSON || (cfg != nil && cfg.Output.Format == "json")
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		v := versionInfo.Version
		if v == "" {
			v = version.Get()
		}
		fmt.Fprintf(out, "jwctl %s\n", v)
		if verbose {
			fmt.Fprintf(out, "  commit: %s\n", versionInfo.Commit)
			fmt.Fprintf(out, "  built:  %s\n", versionInfo.Date)
		}
	},
}
