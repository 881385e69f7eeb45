// Package app wires configuration, logging and the upstream clients for the
// courtsync CLI and owns their lifecycle.
package app

import (
	"context"
	"io"
	"os"
	gosync "sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/agentstation/courtsync/cmd/application"
	"github.com/agentstation/courtsync/internal/cmd/output"
	"github.com/agentstation/courtsync/internal/config"
	"github.com/agentstation/courtsync/internal/telemetry"
	"github.com/agentstation/courtsync/pkg/errors"
)

// App is the courtsync application.
type App struct {
	version application.VersionInfo

	config *config.Config
	flags  Flags
	logger *zerolog.Logger
	out    io.Writer

	// Wired lazily by Services.
	mu       gosync.Mutex
	wired    *wiring
	broker   *telemetry.Broker
	stopTel  context.CancelFunc
	redis    *redis.Client

	configInjected bool
	loggerInjected bool
}

// Flags are the global command line flags.
type Flags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
	NoColor    bool
	Format     string
	LogLevel   string
}

var _ application.Application = (*App)(nil)

// New creates an App and loads configuration from the default locations.
// --config is honoured later, once flags are parsed.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	a := &App{
		version: application.VersionInfo{Version: version, Commit: commit, Date: date, BuiltBy: builtBy},
		out:     os.Stdout,
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	if a.config == nil {
		cfg, err := config.Load("")
		if err != nil {
			return nil, errors.WrapResource("load", "config", "", err)
		}
		a.config = cfg
	}
	if a.logger == nil {
		logger := NewLogger(a.config, a.flags)
		a.logger = &logger
	}
	return a, nil
}

// Config returns the application configuration.
func (a *App) Config() *config.Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the --format flag, or a table on a terminal and JSON
// otherwise.
func (a *App) OutputFormat() output.Format {
	return output.DetectFormat(a.flags.Format)
}

// Version returns the build information.
func (a *App) Version() application.VersionInfo {
	return a.version
}

// Shutdown stops telemetry, flushing queued events, and closes the Redis
// client if one was opened.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	broker, stop, rdb := a.broker, a.stopTel, a.redis
	a.broker, a.stopTel, a.redis, a.wired = nil, nil, nil, nil
	a.mu.Unlock()

	if stop != nil {
		stop()
		select {
		case <-broker.Done():
		case <-ctx.Done():
			a.logger.Warn().Msg("Telemetry did not drain before shutdown deadline")
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			return errors.WrapIO("close", "redis", err)
		}
	}
	return nil
}

// Option configures an App.
type Option func(*App) error

// WithConfig sets the configuration instead of loading it. --config is then
// ignored.
func WithConfig(cfg *config.Config) Option {
	return func(a *App) error {
		a.config = cfg
		a.configInjected = true
		return nil
	}
}

// WithLogger sets the logger. Logging flags are then ignored.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		a.loggerInjected = true
		return nil
	}
}

// WithOutput redirects command output, which defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(a *App) error {
		a.out = w
		return nil
	}
}
