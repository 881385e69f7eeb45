package listener

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/agentstation/courtsync/pkg/errors"
)

// KafkaConfig locates the topic carrying register notifications.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Group   string
}

// Validate checks that every field is set.
func (c KafkaConfig) Validate() error {
	switch {
	case len(c.Brokers) == 0:
		return errors.NewConfigError("listener.kafka", "brokers cannot be empty", nil)
	case c.Topic == "":
		return errors.NewConfigError("listener.kafka", "topic cannot be empty", nil)
	case c.Group == "":
		return errors.NewConfigError("listener.kafka", "group cannot be empty", nil)
	}
	return nil
}

// KafkaConsumer reads notifications from a consumer group. Records are
// processed one at a time and offsets are committed after each poll, so a
// failed record is logged and not retried.
type KafkaConsumer struct {
	client    *kgo.Client
	processor *Processor
	logger    *zerolog.Logger
}

// NewKafkaConsumer creates a consumer. The client connects lazily on the
// first poll.
func NewKafkaConsumer(cfg KafkaConfig, processor *Processor, opts ...kgo.Opt) (*KafkaConsumer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts = append([]kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.DisableAutoCommit(),
	}, opts...)

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, errors.NewConfigError("listener.kafka", "failed to create client", err)
	}
	return &KafkaConsumer{client: client, processor: processor, logger: processor.logger}, nil
}

// Run polls until ctx is cancelled or the client is closed.
func (c *KafkaConsumer) Run(ctx context.Context) error {
	c.logger.Info().Msg("Kafka consumer started")
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			c.logger.Info().Msg("Kafka consumer stopped")
			return nil
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Warn().
				Err(err).
				Str("topic", topic).
				Int32("partition", partition).
				Msg("Fetch error")
		})

		fetches.EachRecord(func(record *kgo.Record) {
			if err := c.processor.Process(ctx, record.Value); err != nil {
				c.logger.Error().
					Err(err).
					Str("topic", record.Topic).
					Int32("partition", record.Partition).
					Int64("offset", record.Offset).
					Msg("Failed to process record")
			}
		})

		if err := c.client.CommitUncommittedOffsets(ctx); err != nil && ctx.Err() == nil {
			c.logger.Warn().Err(err).Msg("Failed to commit offsets")
		}
	}
}

// Close leaves the group and closes the client.
func (c *KafkaConsumer) Close() {
	c.client.Close()
}
