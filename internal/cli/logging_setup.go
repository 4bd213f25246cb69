package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rshade/massbatch/internal/config"
	"github.com/rshade/massbatch/internal/logging"
)

// Environment variables honored over the config file, below CLI flags.
const (
	envLogLevel  = "MASSBATCH_LOG_LEVEL"
	envLogFormat = "MASSBATCH_LOG_FORMAT"
)

// setupLogging configures logging based on config file, environment, and
// CLI flags, attaches the logger to the command context, and returns the
// close function for the log file handle.
func setupLogging(cmd *cobra.Command) (func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	loggingCfg := cfg.Logging

	debug, _ := cmd.Flags().GetBool("debug")
	if debug {
		loggingCfg.Level = "debug"
		loggingCfg.Format = "console"
		loggingCfg.File = ""
	}
	if envLevel := os.Getenv(envLogLevel); envLevel != "" && !debug {
		loggingCfg.Level = envLevel
	}
	if envFormat := os.Getenv(envLogFormat); envFormat != "" {
		loggingCfg.Format = envFormat
	}

	base, closeFn, err := logging.New(loggingCfg)
	if err != nil {
		return nil, err
	}
	logger = base.With().Str("component", "cli").Logger()

	ctx := logging.WithContext(cmd.Context(), logger)
	cmd.SetContext(ctx)

	logger.Debug().Str("command", cmd.Name()).Msg("command started")
	return closeFn, nil
}

// loadConfig reads the configuration named by the --config flag, falling
// back to defaults when the flag is unset or the file is absent.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}
