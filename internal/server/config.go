package server

import (
	"time"

	"github.com/agentstation/courtsync/internal/server/middleware"
)

// Config holds server configuration.
type Config struct {
	Host string
	Port int

	// Auth verifies bearer tokens on PUT /sync.
	Auth middleware.AuthConfig

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	MetricsEnabled bool
}

// DefaultConfig returns a Config with sensible defaults. A full sync can take
// minutes, so the write timeout is generous.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Minute,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		MetricsEnabled:  true,
	}
}
