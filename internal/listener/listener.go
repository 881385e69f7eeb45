// Package listener turns court register change notifications into
// single-court syncs.
//
// Notifications arrive as SNS messages, either delivered through SQS to a
// Lambda function or relayed onto a Kafka topic. Kafka records may also carry
// the bare change event without the SNS envelope.
package listener

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"

	"github.com/agentstation/courtsync/internal/telemetry"
	"github.com/agentstation/courtsync/pkg/errors"
	"github.com/agentstation/courtsync/pkg/logging"
	"github.com/agentstation/courtsync/pkg/sync"
)

// Event types published by the court register.
const (
	EventCourtRegisterUpdate = "COURT_REGISTER_UPDATE"
	EventCourtRegisterInsert = "COURT_REGISTER_INSERT"
)

// TriggerEvent labels sync duration metrics for event driven passes.
const TriggerEvent = "event"

// ChangeEvent is the payload published by the court register.
type ChangeEvent struct {
	EventType string `json:"eventType"`
	ID        string `json:"id"`
}

// Triggers reports whether the event should start a court sync.
func (e ChangeEvent) Triggers() bool {
	return e.EventType == EventCourtRegisterUpdate || e.EventType == EventCourtRegisterInsert
}

// Syncer reconciles a single court.
type Syncer interface {
	SyncCourt(ctx context.Context, courtID string) (*sync.Statistics, error)
}

// Decode extracts the change event from a message body. The body is either
// an SNS notification whose Message holds the event, or the event itself.
// The returned id is the SNS message id, empty for bare events.
func Decode(body []byte) (ChangeEvent, string, error) {
	var envelope events.SNSEntity
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ChangeEvent{}, "", errors.WrapParse("json", "", err)
	}

	payload := body
	if envelope.Message != "" {
		payload = []byte(envelope.Message)
	}

	var event ChangeEvent
	dec := json.NewDecoder(bytes.NewReader(payload))
	if err := dec.Decode(&event); err != nil {
		return ChangeEvent{}, envelope.MessageID, errors.WrapParse("json", "", err)
	}
	return event, envelope.MessageID, nil
}

// Processor decodes a message and runs the sync it asks for.
type Processor struct {
	syncer  Syncer
	metrics *telemetry.Metrics
	logger  *zerolog.Logger
	now     func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithMetrics records sync durations and outcomes.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(p *Processor) {
		p.metrics = m
	}
}

// WithLogger sets the logger used when the context carries none.
func WithLogger(logger *zerolog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a Processor.
func NewProcessor(syncer Syncer, opts ...Option) *Processor {
	p := &Processor{
		syncer: syncer,
		logger: logging.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process handles one message body. Unexpected event types are logged and
// ignored; decode and sync failures are returned.
func (p *Processor) Process(ctx context.Context, body []byte) error {
	ctx = logging.WithTrigger(p.bind(ctx), TriggerEvent)
	logger := logging.Ctx(ctx)

	event, messageID, err := Decode(body)
	if err != nil {
		return err
	}
	logger.Info().Str("message_id", messageID).Str("event_type", event.EventType).Msg("Received message")

	if !event.Triggers() {
		logger.Info().
			Str("event_type", event.EventType).
			Str("id", event.ID).
			Msg("Ignoring unexpected message")
		return nil
	}
	if event.ID == "" {
		return errors.NewValidationError("id", event.ID, "court id cannot be empty")
	}

	start := p.now()
	stats, err := p.syncer.SyncCourt(ctx, event.ID)
	p.metrics.ObserveSync(TriggerEvent, p.now().Sub(start), stats)
	if err != nil {
		return err
	}

	logger.Info().
		Str("court_id", event.ID).
		Int("courts_changed", stats.Len()).
		Msg("Court sync complete")
	return nil
}

// bind attaches the processor's logger unless ctx already carries one.
func (p *Processor) bind(ctx context.Context) context.Context {
	if logging.FromContext(ctx) == logging.Default() {
		return logging.WithLogger(ctx, p.logger)
	}
	return ctx
}
