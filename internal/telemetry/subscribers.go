package telemetry

import (
	"github.com/rs/zerolog"

	courtsync "github.com/agentstation/courtsync/pkg/sync"
)

// LogSubscriber writes every event as a log record. Failures are logged at
// warn level, everything else at info.
type LogSubscriber struct {
	logger *zerolog.Logger
}

// NewLogSubscriber creates a LogSubscriber.
func NewLogSubscriber(logger *zerolog.Logger) *LogSubscriber {
	return &LogSubscriber{logger: logger}
}

// Send implements Subscriber.
func (s *LogSubscriber) Send(event Event) error {
	e := s.logger.Info()
	if event.Name == courtsync.EventChangeFailure {
		e = s.logger.Warn()
	}
	attrs := zerolog.Dict()
	for k, v := range event.Attributes {
		if k == "courtId" {
			continue
		}
		attrs = attrs.Str(k, v)
	}
	e.Str("event", event.Name).
		Str("court_id", event.CourtID).
		Time("event_time", event.Timestamp).
		Dict("attributes", attrs).
		Msg("Telemetry event")
	return nil
}

// Close implements Subscriber.
func (s *LogSubscriber) Close() error { return nil }

// MetricsSubscriber counts events by name.
type MetricsSubscriber struct {
	metrics *Metrics
}

// NewMetricsSubscriber creates a MetricsSubscriber.
func NewMetricsSubscriber(metrics *Metrics) *MetricsSubscriber {
	return &MetricsSubscriber{metrics: metrics}
}

// Send implements Subscriber.
func (s *MetricsSubscriber) Send(event Event) error {
	s.metrics.Events.WithLabelValues(event.Name).Inc()
	return nil
}

// Close implements Subscriber.
func (s *MetricsSubscriber) Close() error { return nil }
