// Package handlers provides HTTP request handlers for the courtsync API.
package handlers

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/courtsync/internal/telemetry"
	"github.com/agentstation/courtsync/pkg/sync"
)

// FullSyncer runs a full reconciliation pass.
type FullSyncer interface {
	FullSync(ctx context.Context) (*sync.Statistics, error)
}

// Pinger reports whether an upstream service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Component is an upstream checked by the health endpoint.
type Component struct {
	Name   string
	Pinger Pinger
}

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	syncer        FullSyncer
	components    []Component
	metrics       *telemetry.Metrics
	logger        *zerolog.Logger
	healthTimeout time.Duration
	now           func() time.Time
}

// New creates a new Handlers instance. metrics may be nil.
func New(syncer FullSyncer, components []Component, metrics *telemetry.Metrics, logger *zerolog.Logger) *Handlers {
	return &Handlers{
		syncer:        syncer,
		components:    components,
		metrics:       metrics,
		logger:        logger,
		healthTimeout: 5 * time.Second,
		now:           time.Now,
	}
}
