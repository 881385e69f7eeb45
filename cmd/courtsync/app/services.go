package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/agentstation/courtsync/cmd/application"
	"github.com/agentstation/courtsync/internal/config"
	"github.com/agentstation/courtsync/internal/lock"
	"github.com/agentstation/courtsync/internal/server/handlers"
	"github.com/agentstation/courtsync/internal/sources/nomis"
	"github.com/agentstation/courtsync/internal/sources/register"
	"github.com/agentstation/courtsync/internal/telemetry"
	"github.com/agentstation/courtsync/internal/transport"
	"github.com/agentstation/courtsync/pkg/refdata"
	"github.com/agentstation/courtsync/pkg/sync"
)

// Health component names.
const (
	ComponentRegister = "courtRegisterApi"
	ComponentPrison   = "prisonApi"
	ComponentAuth     = "hmppsAuth"
)

// wiring holds the dependencies shared by every Syncer the app hands out.
type wiring struct {
	register *register.Client
	prison   *nomis.Client
	auth     *transport.Client
	resolver *refdata.Resolver
	locker   lock.Locker
	registry *prometheus.Registry
	metrics  *telemetry.Metrics
}

// Services validates the configuration, wires the shared dependencies on
// first use and returns a Syncer configured from sync.* with opts applied
// last.
func (a *App) Services(ctx context.Context, opts ...sync.Option) (*application.Services, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.wired == nil {
		if err := a.wire(ctx); err != nil {
			return nil, err
		}
	}
	w := a.wired

	syncOpts := append([]sync.Option{
		sync.WithApplyChanges(a.config.Sync.ApplyChanges),
		sync.WithTimeout(a.config.Sync.Timeout),
		sync.WithResolver(w.resolver),
		sync.WithLocker(w.locker),
		sync.WithTracker(a.broker),
		sync.WithLogger(a.logger),
	}, opts...)

	return &application.Services{
		Syncer: sync.New(w.register, w.prison, syncOpts...),
		Components: []handlers.Component{
			{Name: ComponentRegister, Pinger: w.register},
			{Name: ComponentPrison, Pinger: w.prison},
			{Name: ComponentAuth, Pinger: w.auth},
		},
		Metrics:  w.metrics,
		Gatherer: w.registry,
	}, nil
}

// wire must be called with a.mu held.
func (a *App) wire(ctx context.Context) error {
	cfg := a.config
	if err := cfg.Validate(); err != nil {
		return err
	}

	// The token source outlives the command context.
	creds := transport.NewClientCredentials(context.WithoutCancel(ctx), cfg.OAuth.TokenURL(), cfg.OAuth.ClientID, cfg.OAuth.ClientSecret)
	timeout := transport.WithTimeout(cfg.HTTP.Timeout)

	w := &wiring{
		register: register.New(cfg.Register.URL, creds, timeout),
		prison:   nomis.New(cfg.Prison.URL, creds, timeout),
		auth:     transport.New("hmpps-auth", cfg.OAuth.URL, nil, timeout),
		registry: prometheus.NewRegistry(),
	}
	w.resolver = refdata.New(w.prison, cfg.RefData.CacheTTL)

	w.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	w.metrics = telemetry.NewMetrics(w.registry)

	switch cfg.Lock.Backend {
	case config.LockRedis:
		client, err := lock.Dial(ctx, cfg.Lock.RedisAddr)
		if err != nil {
			return err
		}
		a.redis = client
		w.locker = lock.NewRedis(client)
	default:
		w.locker = lock.NewMemory()
	}

	telCtx, stop := context.WithCancel(context.Background())
	a.broker = telemetry.Start(telCtx, a.logger,
		telemetry.NewLogSubscriber(a.logger),
		telemetry.NewMetricsSubscriber(w.metrics),
	)
	a.stopTel = stop
	a.wired = w

	a.logger.Debug().
		Str("register", cfg.Register.URL).
		Str("prison", cfg.Prison.URL).
		Str("lock", cfg.Lock.Backend).
		Bool("apply_changes", cfg.Sync.ApplyChanges).
		Msg("Wired upstream clients")
	return nil
}
