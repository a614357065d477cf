package events

import (
	"time"

	"confusion-engine-be/internal/entity"
)

// Event defines the contract for everything the engine puts on a bus.
type Event interface {
	// EventType returns the routing suffix (e.g. "confusion.point.high").
	EventType() string

	// Payload returns the JSON-serializable body.
	Payload() interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

const (
	TypeConfusionPoint = "confusion.point"
	TypeConfusionScore = "confusion.score"
)

type ConfusionPointPayload struct {
	Id                   string   `json:"id"`
	SegmentId            string   `json:"segment_id"`
	LearnerId            string   `json:"learner_id"`
	ContentId            string   `json:"content_id,omitempty"`
	ContentType          string   `json:"content_type"`
	Score                float64  `json:"score"`
	Severity             string   `json:"severity"`
	TriggeringHeuristics []string `json:"triggering_heuristics"`
	Timestamp            int64    `json:"timestamp"` // unix ms
}

type ConfusionPointEvent struct {
	Point entity.ConfusionPoint
}

func (e ConfusionPointEvent) EventType() string {
	return TypeConfusionPoint + "." + string(e.Point.Severity)
}

func (e ConfusionPointEvent) Payload() interface{} {
	p := e.Point
	heuristics := p.TriggeringHeuristics
	if heuristics == nil {
		heuristics = []string{}
	}
	return ConfusionPointPayload{
		Id:                   p.Id.String(),
		SegmentId:            p.SegmentId,
		LearnerId:            p.LearnerId,
		ContentId:            p.ContentId,
		ContentType:          string(p.ContentType),
		Score:                p.Score,
		Severity:             string(p.Severity),
		TriggeringHeuristics: heuristics,
		Timestamp:            p.Timestamp.UnixMilli(),
	}
}

func (e ConfusionPointEvent) Timestamp() time.Time {
	return e.Point.Timestamp
}

type HeuristicResultPayload struct {
	Name         string  `json:"name"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
	Triggered    bool    `json:"triggered"`
}

type ConfusionScorePayload struct {
	SegmentId            string                   `json:"segment_id"`
	LearnerId            string                   `json:"learner_id"`
	ContentId            string                   `json:"content_id,omitempty"`
	ContentType          string                   `json:"content_type"`
	Score                float64                  `json:"score"`
	Severity             string                   `json:"severity"`
	TriggeringHeuristics []string                 `json:"triggering_heuristics"`
	Results              []HeuristicResultPayload `json:"results"`
	LatencyMs            float64                  `json:"latency_ms"`
	Timestamp            int64                    `json:"timestamp"`
}

type ConfusionScoreEvent struct {
	Score entity.ConfusionScore
}

func (e ConfusionScoreEvent) EventType() string {
	return TypeConfusionScore
}

func (e ConfusionScoreEvent) Payload() interface{} {
	s := e.Score
	heuristics := s.TriggeringHeuristics
	if heuristics == nil {
		heuristics = []string{}
	}
	results := make([]HeuristicResultPayload, 0, len(s.Results))
	for _, r := range s.Results {
		results = append(results, HeuristicResultPayload{
			Name:         r.HeuristicName,
			Weight:       r.Weight,
			Contribution: r.Contribution,
			Triggered:    r.Triggered,
		})
	}
	return ConfusionScorePayload{
		SegmentId:            s.SegmentId,
		LearnerId:            s.LearnerId,
		ContentId:            s.ContentId,
		ContentType:          string(s.ContentType),
		Score:                s.Score,
		Severity:             string(s.Severity),
		TriggeringHeuristics: heuristics,
		Results:              results,
		LatencyMs:            float64(s.EvaluationLatency.Microseconds()) / 1000,
		Timestamp:            s.Timestamp.UnixMilli(),
	}
}

func (e ConfusionScoreEvent) Timestamp() time.Time {
	return e.Score.Timestamp
}
