package cmd_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/courtsync/cmd/application"
	"github.com/agentstation/courtsync/cmd/courtsync/cmd"
	"github.com/agentstation/courtsync/internal/cmd/output"
	"github.com/agentstation/courtsync/internal/config"
	"github.com/agentstation/courtsync/internal/telemetry"
	"github.com/agentstation/courtsync/pkg/differ"
	"github.com/agentstation/courtsync/pkg/errors"
	"github.com/agentstation/courtsync/pkg/sync"
)

type stubSyncer struct {
	stats   *sync.Statistics
	err     error
	full    int
	courtID string
}

func (s *stubSyncer) FullSync(context.Context) (*sync.Statistics, error) {
	s.full++
	return s.stats, s.err
}

func (s *stubSyncer) SyncCourt(_ context.Context, courtID string) (*sync.Statistics, error) {
	s.courtID = courtID
	return s.stats, s.err
}

func sampleStats() *sync.Statistics {
	stats := sync.NewStatistics()
	stats.Record(sync.CourtDifferences{CourtID: "SHFCC", UpdateType: differ.ClassUpdate, NumberPhonesInserted: 1})
	return stats
}

type harness struct {
	syncer  *stubSyncer
	metrics *telemetry.Metrics
	opts    []sync.Option
	app     *application.Mock
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	h := &harness{
		syncer:  &stubSyncer{stats: sampleStats()},
		metrics: telemetry.NewMetrics(prometheus.NewRegistry()),
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	h.app = &application.Mock{
		ConfigFunc: func() *config.Config { return cfg },
		ServicesFunc: func(_ context.Context, opts ...sync.Option) (*application.Services, error) {
			h.opts = opts
			return &application.Services{Syncer: h.syncer, Metrics: h.metrics, Gatherer: prometheus.NewRegistry()}, nil
		},
	}
	return h
}

func TestSyncCommandFull(t *testing.T) {
	h := newHarness(t, nil)
	c := cmd.NewSyncCommand(h.app)
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetArgs([]string{})

	require.NoError(t, c.ExecuteContext(context.Background()))
	assert.Equal(t, 1, h.syncer.full)
	assert.Empty(t, h.opts, "no dry-run option without the flag")

	var decoded sync.Statistics
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, differ.ClassUpdate, decoded.Courts["SHFCC"].UpdateType)

	assert.Equal(t, 1, testutil.CollectAndCount(h.metrics.SyncDuration))
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.CourtOutcomes.WithLabelValues("UPDATE")), 0)
}

func TestSyncCommandCourtDryRun(t *testing.T) {
	h := newHarness(t, nil)
	h.app.OutputFormatFunc = func() output.Format { return output.FormatTable }
	c := cmd.NewSyncCommand(h.app)
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetArgs([]string{"--court", "SHFCC", "--dry-run"})

	require.NoError(t, c.ExecuteContext(context.Background()))
	assert.Equal(t, "SHFCC", h.syncer.courtID)
	assert.Zero(t, h.syncer.full)
	assert.Contains(t, out.String(), "SHFCC")

	options := (&sync.Options{ApplyChanges: true}).Apply(h.opts...)
	assert.False(t, options.ApplyChanges, "--dry-run disables writes")
}

func TestSyncCommandError(t *testing.T) {
	h := newHarness(t, nil)
	h.syncer.stats = nil
	h.syncer.err = errors.NewAPIError("court-register", 503, "down")
	c := cmd.NewSyncCommand(h.app)
	c.SetOut(&bytes.Buffer{})
	c.SetArgs([]string{})

	err := c.ExecuteContext(context.Background())
	assert.True(t, errors.IsServiceUnavailable(err))
	assert.Equal(t, 1, testutil.CollectAndCount(h.metrics.SyncDuration), "failed passes are still timed")
}

func TestVersionCommand(t *testing.T) {
	app := &application.Mock{
		VersionFunc: func() application.VersionInfo {
			return application.VersionInfo{Version: "1.4.0", Commit: "abc123", Date: "2026-01-01", BuiltBy: "goreleaser"}
		},
		OutputFormatFunc: func() output.Format { return output.FormatTable },
	}

	c := cmd.NewVersionCommand(app)
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetArgs([]string{})
	require.NoError(t, c.Execute())
	assert.Contains(t, out.String(), "courtsync version 1.4.0")
	assert.Contains(t, out.String(), "commit: abc123")

	app.OutputFormatFunc = func() output.Format { return output.FormatJSON }
	out.Reset()
	require.NoError(t, c.Execute())
	assert.JSONEq(t, `{"version":"1.4.0","commit":"abc123","date":"2026-01-01","built_by":"goreleaser"}`, out.String())
}

func TestServeCommandRequiresAuth(t *testing.T) {
	h := newHarness(t, &config.Config{Server: config.ServerConfig{Host: "127.0.0.1"}})
	c := cmd.NewServeCommand(h.app)
	c.SetArgs([]string{"--port", "0"})

	err := c.ExecuteContext(context.Background())
	var cfgErr *errors.ConfigError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Equal(t, "auth", cfgErr.Component)
}

func TestServeCommandInvalidPublicKey(t *testing.T) {
	h := newHarness(t, &config.Config{Auth: config.AuthConfig{JWTPublicKey: "not a key"}})
	c := cmd.NewServeCommand(h.app)
	c.SetArgs([]string{})

	err := c.ExecuteContext(context.Background())
	var cfgErr *errors.ConfigError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
}

func TestServeCommandStopsWithContext(t *testing.T) {
	h := newHarness(t, &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Auth:   config.AuthConfig{JWTSecret: "secret"},
	})
	c := cmd.NewServeCommand(h.app)
	c.SetArgs([]string{"--metrics=false"})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	assert.NoError(t, c.ExecuteContext(ctx))
}

func TestServeCommandKafkaNeedsBrokers(t *testing.T) {
	h := newHarness(t, &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1"},
		Auth:   config.AuthConfig{JWTSecret: "secret"},
	})
	c := cmd.NewServeCommand(h.app)
	c.SetArgs([]string{"--kafka"})

	err := c.ExecuteContext(context.Background())
	var cfgErr *errors.ConfigError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Equal(t, "listener.kafka", cfgErr.Component)
}

func TestListenKafkaFlags(t *testing.T) {
	cfg := &config.Config{Listener: config.ListenerConfig{Kafka: config.KafkaConfig{Topic: "court-register-events", Group: "courtsync"}}}
	h := newHarness(t, cfg)

	c := cmd.NewListenCommand(h.app)
	c.SetArgs([]string{"kafka", "--brokers", "127.0.0.1:1", "--group", "test-group"})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, c.ExecuteContext(ctx))

	assert.Equal(t, []string{"127.0.0.1:1"}, cfg.Listener.Kafka.Brokers)
	assert.Equal(t, "test-group", cfg.Listener.Kafka.Group)
	assert.Equal(t, "court-register-events", cfg.Listener.Kafka.Topic)
}
