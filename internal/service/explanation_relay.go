package service

import (
	"context"
	"encoding/json"
	"time"

	"confusion-engine-be/internal/constant"
	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/pkg/logger"
	"confusion-engine-be/pkg/events"
	"confusion-engine-be/pkg/publisher"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IExplanationRelay interface {
	Start(ctx context.Context) error
}

// explanationRelay sits on the in-process bus in front of the explanation
// pipeline. Each forwarded ConfusionPoint is tracked under its own id so the
// feedback that comes back for it can be attributed.
type explanationRelay struct {
	subscriber message.Subscriber
	feedback   IFeedbackService
	logger     logger.ILogger
}

func NewExplanationRelay(subscriber message.Subscriber, feedback IFeedbackService, log logger.ILogger) IExplanationRelay {
	return &explanationRelay{subscriber: subscriber, feedback: feedback, logger: log}
}

func (r *explanationRelay) Start(ctx context.Context) error {
	messages, err := r.subscriber.Subscribe(ctx, publisher.TopicConfusionPoints)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			r.process(msg)
		}
	}()
	return nil
}

func (r *explanationRelay) process(msg *message.Message) {
	var payload events.ConfusionPointPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		r.logger.Error(constant.ModuleRelay, "Invalid confusion point payload", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack()
		return
	}

	err := r.feedback.Register(entity.Explanation{
		ExplanationId:        payload.Id,
		SegmentId:            payload.SegmentId,
		LearnerId:            payload.LearnerId,
		ContentType:          entity.ContentType(payload.ContentType),
		TriggeringHeuristics: payload.TriggeringHeuristics,
		CreatedAt:            time.UnixMilli(payload.Timestamp),
	})
	if err != nil {
		r.logger.Warn(constant.ModuleRelay, "Confusion point not tracked", map[string]interface{}{
			"point_id": payload.Id,
			"error":    err.Error(),
		})
	}
	msg.Ack()
}
