package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/courtsync/cmd/application"
	"github.com/agentstation/courtsync/internal/listener"
)

// NewListenCommand creates the listen command and its queue subcommands.
func NewListenCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "listen",
		GroupID: "core",
		Short:   "Consume court register change events",
		Long: `Consume COURT_REGISTER_UPDATE and COURT_REGISTER_INSERT events and
reconcile the court each one names. Other event types are ignored.`,
	}

	cmd.AddCommand(newListenSQSCommand(app), newListenKafkaCommand(app))
	return cmd
}

func newListenSQSCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "sqs",
		Short: "Run as an AWS Lambda SQS handler",
		Long: `Run as the handler of a Lambda function subscribed to the court register
queue. Each SQS record carries an SNS notification; records whose sync fails
are reported back as batch item failures so only they are redelivered.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := app.Services(cmd.Context())
			if err != nil {
				return err
			}
			processor := listener.NewProcessor(svc.Syncer,
				listener.WithMetrics(svc.Metrics),
				listener.WithLogger(app.Logger()),
			)
			app.Logger().Info().Msg("Starting SQS handler")
			listener.NewSQSHandler(processor).Start()
			return nil
		},
	}
}

func newListenKafkaCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "kafka",
		Short:   "Consume events from a Kafka topic",
		Example: `  courtsync listen kafka --brokers kafka-1:9092,kafka-2:9092 --topic court-register-events`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := app.Config()
			if cmd.Flags().Changed("brokers") {
				cfg.Listener.Kafka.Brokers, _ = cmd.Flags().GetStringSlice("brokers")
			}
			if cmd.Flags().Changed("topic") {
				cfg.Listener.Kafka.Topic, _ = cmd.Flags().GetString("topic")
			}
			if cmd.Flags().Changed("group") {
				cfg.Listener.Kafka.Group, _ = cmd.Flags().GetString("group")
			}

			svc, err := app.Services(cmd.Context())
			if err != nil {
				return err
			}
			consumer, err := newKafkaConsumer(cfg, svc, app)
			if err != nil {
				return err
			}
			defer consumer.Close()

			app.Logger().Info().
				Strs("brokers", cfg.Listener.Kafka.Brokers).
				Str("topic", cfg.Listener.Kafka.Topic).
				Str("group", cfg.Listener.Kafka.Group).
				Msg("Starting Kafka consumer")
			return consumer.Run(cmd.Context())
		},
	}

	cmd.Flags().StringSlice("brokers", nil, "seed brokers (overrides listener.kafka.brokers)")
	cmd.Flags().String("topic", "", "topic (overrides listener.kafka.topic)")
	cmd.Flags().String("group", "", "consumer group (overrides listener.kafka.group)")

	return cmd
}
