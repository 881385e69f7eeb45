package application

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/courtsync/internal/cmd/output"
	"github.com/agentstation/courtsync/internal/config"
	"github.com/agentstation/courtsync/pkg/sync"
)

// Mock is an Application for command tests. Unset funcs return zero values.
type Mock struct {
	ConfigFunc       func() *config.Config
	LoggerFunc       func() *zerolog.Logger
	OutputFormatFunc func() output.Format
	ServicesFunc     func(ctx context.Context, opts ...sync.Option) (*Services, error)
	VersionFunc      func() VersionInfo
}

var _ Application = (*Mock)(nil)

// Config implements Application.
func (m *Mock) Config() *config.Config {
	if m.ConfigFunc == nil {
		return &config.Config{}
	}
	return m.ConfigFunc()
}

// Logger implements Application.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc == nil {
		logger := zerolog.Nop()
		return &logger
	}
	return m.LoggerFunc()
}

// OutputFormat implements Application.
func (m *Mock) OutputFormat() output.Format {
	if m.OutputFormatFunc == nil {
		return output.FormatJSON
	}
	return m.OutputFormatFunc()
}

// Services implements Application.
func (m *Mock) Services(ctx context.Context, opts ...sync.Option) (*Services, error) {
	if m.ServicesFunc == nil {
		return &Services{}, nil
	}
	return m.ServicesFunc(ctx, opts...)
}

// Version implements Application.
func (m *Mock) Version() VersionInfo {
	if m.VersionFunc == nil {
		return VersionInfo{Version: "dev"}
	}
	return m.VersionFunc()
}
