package app

import (
	"fmt"
	"os"
	"slices"

	"github.com/rs/zerolog"

	"github.com/agentstation/courtsync/internal/config"
	"github.com/agentstation/courtsync/pkg/logging"
)

// NewLogger creates the application logger.
// Log level precedence (highest to lowest):
//  1. --log-level flag
//  2. -q/--quiet (warn), which wins over -v/--verbose (debug)
//  3. log.level from the config file or LOG_LEVEL
//  4. info
func NewLogger(cfg *config.Config, flags Flags) zerolog.Logger {
	level := determineLogLevel(cfg, flags)

	return logging.NewLoggerFromConfig(&logging.Config{
		Level:     level,
		Format:    cfg.Log.Format,
		Output:    cfg.Log.Output,
		NoColor:   flags.NoColor || os.Getenv("NO_COLOR") != "",
		AddCaller: level == "debug" || level == "trace",
		Fields:    map[string]any{"service": "courtsync"},
	})
}

func determineLogLevel(cfg *config.Config, flags Flags) string {
	if flags.LogLevel != "" {
		validated := validateLogLevel(flags.LogLevel)
		if validated != flags.LogLevel {
			fmt.Fprintf(os.Stderr, "Warning: invalid log level %q, using %q\n", flags.LogLevel, validated)
		}
		return validated
	}

	if flags.Verbose && flags.Quiet {
		fmt.Fprintf(os.Stderr, "Warning: both --verbose and --quiet specified, using --quiet\n")
		return "warn"
	}
	if flags.Quiet {
		return "warn"
	}
	if flags.Verbose {
		return "debug"
	}

	if cfg != nil && cfg.Log.Level != "" {
		return validateLogLevel(cfg.Log.Level)
	}
	return "info"
}

// validateLogLevel returns level if it is known and "info" otherwise.
func validateLogLevel(level string) string {
	if slices.Contains([]string{"trace", "debug", "info", "warn", "error"}, level) {
		return level
	}
	return "info"
}
