package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	plusserver "github.com/W-Z-FinTech-GmbH/sms-plusserver"
	"github.com/W-Z-FinTech-GmbH/sms-plusserver/internal/config"
	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

// SetVersion is called from main to inject build-time version info.
func SetVersion(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date
}

var rootCmd = &cobra.Command{
	Use:   "plussms",
	Short: "Send SMS through the Plusserver platform",
	Long: `plussms submits text messages to the Plusserver SMS platform and tracks
their delivery. Credentials and defaults are read from plussms.toml and
PLUSSMS_* environment variables.

Send a message and wait for it to arrive:
  plussms send +4917512345678 "Server is back up" --wait

Check on a delivery later:
  plussms state <handle>`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.PersistentFlags().String("config", "", "Path to plussms.toml config file")
	rootCmd.PersistentFlags().Int("timeout", 0, "HTTP timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(waitCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// serviceFlags registers the platform connection flags shared by the
// commands that talk to the SMS platform.
func serviceFlags(cmd *cobra.Command) {
	cmd.Flags().String("put-url", "", "Submit endpoint URL (overrides config)")
	cmd.Flags().String("state-url", "", "State query endpoint URL (overrides config)")
	cmd.Flags().String("username", "", "Platform username (or set PLUSSMS_USERNAME)")
	cmd.Flags().String("password", "", "Platform password (or set PLUSSMS_PASSWORD)")
	cmd.Flags().String("project", "", "Project tag shown in the platform message logs")
}

// loadConfig resolves the effective configuration for a command
// (defaults, then config file, then PLUSSMS_* environment, then flags).
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	// Collect CLI flag overrides.
	flags := make(map[string]string)
	if v, _ := cmd.Flags().GetString("put-url"); v != "" {
		flags["put-url"] = v
	}
	if v, _ := cmd.Flags().GetString("state-url"); v != "" {
		flags["state-url"] = v
	}
	if v, _ := cmd.Flags().GetString("username"); v != "" {
		flags["username"] = v
	}
	if v, _ := cmd.Flags().GetString("password"); v != "" {
		flags["password"] = v
	}
	if v, _ := cmd.Flags().GetString("project"); v != "" {
		flags["project"] = v
	}
	if v, _ := cmd.Flags().GetInt("timeout"); v > 0 {
		flags["timeout"] = strconv.Itoa(v)
	}

	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath, flags)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// newService builds the platform client for a command from the resolved
// configuration. The --verbose flag forces debug logging.
func newService(cmd *cobra.Command, cfg *config.Config) *plusserver.Service {
	level := cfg.Logging.Level
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	logger := newLogger(level, cfg.Logging.Format)
	return plusserver.NewService(cfg.ClientConfig(logger))
}

// newLogger builds a slog logger writing to stderr.
func newLogger(level, format string) *slog.Logger {
	lvl := new(slog.LevelVar)
	lvl.Set(parseSlogLevel(level))
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// parseSlogLevel converts a config log level string to a slog.Level.
func parseSlogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
