package cmd

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/agentstation/courtsync/cmd/application"
	"github.com/agentstation/courtsync/internal/config"
	"github.com/agentstation/courtsync/internal/listener"
	"github.com/agentstation/courtsync/internal/server"
	"github.com/agentstation/courtsync/internal/server/middleware"
)

// NewServeCommand creates the serve command.
func NewServeCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		GroupID: "core",
		Aliases: []string{"server"},
		Short:   "Start the REST API server",
		Long: `Start the courtsync HTTP server.

Endpoints:
  PUT /sync            full reconciliation (bearer token with ROLE_MAINTAIN_REF_DATA and write scope)
  GET /health          upstream health
  GET /health/ping     liveness
  GET /openapi.json    API description (also /openapi.yaml)
  GET /metrics         Prometheus metrics

With --kafka the court register event consumer runs in the same process and
the server stops when either of them fails.`,
		Example: `  # Serve on the configured address
  courtsync serve

  # Serve on port 9090 and consume register events from Kafka
  courtsync serve --port 9090 --kafka`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, app)
		},
	}

	cmd.Flags().String("host", "", "bind address (overrides server.host)")
	cmd.Flags().IntP("port", "p", 0, "server port (overrides server.port)")
	cmd.Flags().Bool("kafka", false, "also consume court register events from Kafka")
	cmd.Flags().Bool("metrics", true, "expose /metrics")

	return cmd
}

func runServe(cmd *cobra.Command, app application.Application) error {
	cfg := app.Config()
	logger := app.Logger()

	srvCfg, err := serverConfig(cmd, cfg)
	if err != nil {
		return err
	}

	svc, err := app.Services(cmd.Context())
	if err != nil {
		return err
	}

	srv, err := server.New(srvCfg, server.Deps{
		Syncer:     svc.Syncer,
		Components: svc.Components,
		Metrics:    svc.Metrics,
		Gatherer:   svc.Gatherer,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	var consumer *listener.KafkaConsumer
	if kafka, _ := cmd.Flags().GetBool("kafka"); kafka {
		if consumer, err = newKafkaConsumer(cfg, svc, app); err != nil {
			return err
		}
		defer consumer.Close()
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})
	if consumer != nil {
		g.Go(func() error {
			return consumer.Run(ctx)
		})
	}

	return g.Wait()
}

// serverConfig builds the server configuration from the loaded config and
// any flag overrides.
func serverConfig(cmd *cobra.Command, cfg *config.Config) (server.Config, error) {
	srvCfg := server.DefaultConfig()
	srvCfg.Host = cfg.Server.Host
	srvCfg.Port = cfg.Server.Port
	if cfg.Server.ReadTimeout > 0 {
		srvCfg.ReadTimeout = cfg.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout > 0 {
		srvCfg.WriteTimeout = cfg.Server.WriteTimeout
	}

	if cmd.Flags().Changed("host") {
		srvCfg.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		srvCfg.Port, _ = cmd.Flags().GetInt("port")
	}
	srvCfg.MetricsEnabled, _ = cmd.Flags().GetBool("metrics")

	srvCfg.Auth = middleware.AuthConfig{Issuer: cfg.Auth.Issuer}
	if cfg.Auth.JWTSecret != "" {
		srvCfg.Auth.Secret = []byte(cfg.Auth.JWTSecret)
	}
	if cfg.Auth.JWTPublicKey != "" {
		key, err := middleware.ParsePublicKey(cfg.Auth.JWTPublicKey)
		if err != nil {
			return srvCfg, err
		}
		srvCfg.Auth.PublicKey = key
	}
	return srvCfg, nil
}

func newKafkaConsumer(cfg *config.Config, svc *application.Services, app application.Application) (*listener.KafkaConsumer, error) {
	processor := listener.NewProcessor(svc.Syncer,
		listener.WithMetrics(svc.Metrics),
		listener.WithLogger(app.Logger()),
	)
	return listener.NewKafkaConsumer(listener.KafkaConfig{
		Brokers: cfg.Listener.Kafka.Brokers,
		Topic:   cfg.Listener.Kafka.Topic,
		Group:   cfg.Listener.Kafka.Group,
	}, processor)
}
