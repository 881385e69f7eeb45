package listener

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/agentstation/courtsync/pkg/logging"
)

// SQSHandler is the Lambda handler for SQS deliveries. Records are processed
// in order; failed records are returned for redelivery.
type SQSHandler struct {
	processor *Processor
}

// NewSQSHandler creates an SQSHandler.
func NewSQSHandler(processor *Processor) *SQSHandler {
	return &SQSHandler{processor: processor}
}

// Handle processes a batch.
func (h *SQSHandler) Handle(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	var response events.SQSEventResponse
	ctx = h.processor.bind(ctx)
	for _, record := range event.Records {
		recordCtx := logging.WithField(ctx, "sqs_message_id", record.MessageId)
		if err := h.processor.Process(recordCtx, []byte(record.Body)); err != nil {
			logging.Ctx(recordCtx).Error().Err(err).Msg("Failed to process message")
			response.BatchItemFailures = append(response.BatchItemFailures, events.SQSBatchItemFailure{
				ItemIdentifier: record.MessageId,
			})
		}
	}
	return response, nil
}

// Start hands control to the Lambda runtime. It does not return.
func (h *SQSHandler) Start() {
	lambda.Start(h.Handle)
}
