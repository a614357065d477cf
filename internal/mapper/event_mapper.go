package mapper

import (
	"time"

	"confusion-engine-be/internal/dto"
	"confusion-engine-be/internal/entity"
)

type EventMapper struct{}

func NewEventMapper() *EventMapper {
	return &EventMapper{}
}

func (m *EventMapper) ToEntity(req dto.BehavioralEventRequest) entity.BehavioralEvent {
	return entity.BehavioralEvent{
		LearnerId:   req.LearnerId,
		ContentId:   req.ContentId,
		SegmentId:   req.SegmentId,
		ContentType: entity.ContentType(req.ContentType),
		Type:        entity.EventType(req.Type),
		Timestamp:   req.Timestamp,
		Payload: entity.EventPayload{
			Position:   req.Payload.Position,
			Velocity:   req.Payload.Velocity,
			Direction:  entity.ScrollDirection(req.Payload.Direction),
			DurationMs: req.Payload.Duration,
		},
	}
}

func (m *EventMapper) FeedbackToEntity(req dto.FeedbackSignalRequest, now time.Time) entity.FeedbackSignal {
	at := now
	if req.Timestamp > 0 {
		at = time.UnixMilli(req.Timestamp)
	}
	return entity.FeedbackSignal{
		ExplanationId: req.ExplanationId,
		LearnerId:     req.LearnerId,
		Outcome:       entity.FeedbackOutcome(req.Outcome),
		Timestamp:     at,
	}
}

func (m *EventMapper) ExplanationToEntity(req dto.RegisterExplanationRequest, now time.Time) entity.Explanation {
	return entity.Explanation{
		ExplanationId:        req.ExplanationId,
		SegmentId:            req.SegmentId,
		LearnerId:            req.LearnerId,
		ContentType:          entity.ContentType(req.ContentType),
		TriggeringHeuristics: req.TriggeringHeuristics,
		CreatedAt:            now,
	}
}

func (m *EventMapper) ExplanationToResponse(e entity.Explanation) dto.ExplanationResponse {
	return dto.ExplanationResponse{
		ExplanationId:        e.ExplanationId,
		SegmentId:            e.SegmentId,
		LearnerId:            e.LearnerId,
		ContentType:          string(e.ContentType),
		TriggeringHeuristics: e.TriggeringHeuristics,
	}
}
