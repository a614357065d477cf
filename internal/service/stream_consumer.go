package service

import (
	"context"
	"encoding/json"

	"confusion-engine-be/internal/constant"
	"confusion-engine-be/internal/dto"
	"confusion-engine-be/internal/metrics"
	"confusion-engine-be/internal/pkg/logger"
	natsbus "confusion-engine-be/pkg/nats"
)

type streamSubscriber interface {
	Subscribe(ctx context.Context, subject, durableName string, handler natsbus.MessageHandler) error
}

type IStreamConsumer interface {
	Start(ctx context.Context) error
}

// streamConsumer feeds JetStream behavior and feedback subjects into the same
// ingestion paths the HTTP surface uses.
type streamConsumer struct {
	subscriber streamSubscriber
	ingestion  IIngestionService
	feedback   IFeedbackService
	logger     logger.ILogger
}

func NewStreamConsumer(subscriber streamSubscriber, ingestion IIngestionService, feedback IFeedbackService, log logger.ILogger) IStreamConsumer {
	return &streamConsumer{subscriber: subscriber, ingestion: ingestion, feedback: feedback, logger: log}
}

func (c *streamConsumer) Start(ctx context.Context) error {
	if err := c.subscriber.Subscribe(ctx, natsbus.SubjectBehavior, "confusion-engine-behavior", c.HandleBehavior); err != nil {
		return err
	}
	if err := c.subscriber.Subscribe(ctx, natsbus.SubjectFeedback, "confusion-engine-feedback", c.HandleFeedback); err != nil {
		return err
	}
	c.logger.Info(constant.ModuleStreamConsumer, "Subscribed to signal streams", map[string]interface{}{
		"subjects": []string{natsbus.SubjectBehavior, natsbus.SubjectFeedback},
	})
	return nil
}

// HandleBehavior accepts one event or a batch. Malformed messages are acked and
// dropped; redelivery would not fix them.
func (c *streamConsumer) HandleBehavior(ctx context.Context, subject string, data []byte) error {
	var batch dto.IngestEventsRequest
	if err := json.Unmarshal(data, &batch); err != nil || len(batch.Events) == 0 {
		var single dto.BehavioralEventRequest
		if err := json.Unmarshal(data, &single); err != nil {
			c.malformed(subject, "event", err)
			return nil
		}
		batch.Events = []dto.BehavioralEventRequest{single}
	}
	c.ingestion.Ingest(ctx, batch.Events)
	return nil
}

func (c *streamConsumer) HandleFeedback(ctx context.Context, subject string, data []byte) error {
	var batch dto.IngestFeedbackRequest
	if err := json.Unmarshal(data, &batch); err != nil || len(batch.Signals) == 0 {
		var single dto.FeedbackSignalRequest
		if err := json.Unmarshal(data, &single); err != nil {
			c.malformed(subject, "feedback", err)
			return nil
		}
		batch.Signals = []dto.FeedbackSignalRequest{single}
	}
	c.feedback.Ingest(ctx, batch.Signals)
	return nil
}

func (c *streamConsumer) malformed(subject, kind string, err error) {
	metrics.RecordInvalid(kind)
	c.logger.Warn(constant.ModuleStreamConsumer, "Dropping undecodable message", map[string]interface{}{
		"subject": subject,
		"error":   err.Error(),
	})
}
