// Package application defines what courtsync commands need from the
// application, so commands can be tested against a Mock instead of live
// upstream clients.
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            svc, err := app.Services(cmd.Context())
//	            if err != nil {
//	                return err
//	            }
//	            stats, err := svc.Syncer.FullSync(cmd.Context())
//	            ...
//	        },
//	    }
//	}
package application

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/agentstation/courtsync/internal/cmd/output"
	"github.com/agentstation/courtsync/internal/config"
	"github.com/agentstation/courtsync/internal/server/handlers"
	"github.com/agentstation/courtsync/internal/telemetry"
	"github.com/agentstation/courtsync/pkg/sync"
)

// Syncer is the part of *sync.Syncer the commands use.
type Syncer interface {
	FullSync(ctx context.Context) (*sync.Statistics, error)
	SyncCourt(ctx context.Context, courtID string) (*sync.Statistics, error)
}

// Services are the wired runtime dependencies of a command.
type Services struct {
	Syncer Syncer
	// Components are the upstreams reported by the health endpoint.
	Components []handlers.Component
	Metrics    *telemetry.Metrics
	Gatherer   prometheus.Gatherer
}

// VersionInfo describes the build.
type VersionInfo struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
	BuiltBy string `json:"built_by" yaml:"built_by"`
}

// Application is implemented by cmd/courtsync/app.App.
//
// Thread Safety: All methods must be safe for concurrent access.
type Application interface {
	Config() *config.Config
	Logger() *zerolog.Logger

	// OutputFormat is the --format flag, or the detected default.
	OutputFormat() output.Format

	// Services wires the upstream clients. Shared parts (clients, locks,
	// telemetry) are created once; each call returns a fresh Syncer built
	// with opts on top of the configured ones.
	Services(ctx context.Context, opts ...sync.Option) (*Services, error)

	Version() VersionInfo
}
