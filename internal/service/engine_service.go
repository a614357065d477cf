package service

import (
	"context"
	"sync/atomic"
	"time"

	"confusion-engine-be/internal/constant"
	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/metrics"
	"confusion-engine-be/internal/pkg/logger"
	"confusion-engine-be/internal/tracer"
	"confusion-engine-be/pkg/baseline"
	"confusion-engine-be/pkg/publisher"
	"confusion-engine-be/pkg/scoring"
	"confusion-engine-be/pkg/window"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type EngineStats struct {
	ActiveWindows int
	Evaluations   int64
	BudgetMisses  int64
	Publisher     publisher.Stats
}

type IEngineService interface {
	// Evaluate records the event and scores its window. Always returns a score,
	// even when the latency budget measured from receivedAt is exceeded.
	Evaluate(ctx context.Context, event entity.BehavioralEvent, receivedAt time.Time) entity.ConfusionScore
	CloseSegment(ctx context.Context, key entity.WindowKey) *window.Terminal
	SweepIdle(idle time.Duration) int
	Stats() EngineStats
}

type engineService struct {
	windows    *window.Manager
	baselines  *baseline.Store
	aggregator *scoring.Aggregator
	publisher  *publisher.Publisher
	budget     time.Duration
	logger     logger.ILogger
	tracer     trace.Tracer

	evaluations  atomic.Int64
	budgetMisses atomic.Int64
}

func NewEngineService(
	windows *window.Manager,
	baselines *baseline.Store,
	aggregator *scoring.Aggregator,
	pub *publisher.Publisher,
	budget time.Duration,
	log logger.ILogger,
) IEngineService {
	if budget <= 0 {
		budget = 500 * time.Millisecond
	}
	return &engineService{
		windows:    windows,
		baselines:  baselines,
		aggregator: aggregator,
		publisher:  pub,
		budget:     budget,
		logger:     log,
		tracer:     tracer.Tracer(),
	}
}

func (s *engineService) Evaluate(ctx context.Context, event entity.BehavioralEvent, receivedAt time.Time) entity.ConfusionScore {
	_, span := s.tracer.Start(ctx, "engine.evaluate", trace.WithAttributes(
		attribute.String("segment_id", event.SegmentId),
		attribute.String("content_type", string(event.ContentType)),
		attribute.String("event_type", string(event.Type)),
	))
	defer span.End()

	view, left := s.windows.Record(event)
	if left != nil {
		s.fold(*left)
	}

	base := s.baselines.Get(event.SegmentId, event.ContentType)
	score := s.aggregator.Evaluate(event, view, base)

	latency := time.Since(receivedAt)
	score.EvaluationLatency = latency
	over := latency > s.budget
	s.evaluations.Add(1)
	metrics.ObserveEvaluation(string(event.ContentType), latency, over)
	metrics.RecordScore(string(score.Severity))
	if over {
		s.budgetMisses.Add(1)
		s.logger.Warn(constant.ModuleEngine, "Evaluation exceeded latency budget", map[string]interface{}{
			"learner_id": event.LearnerId,
			"segment_id": event.SegmentId,
			"latency_ms": latency.Milliseconds(),
			"budget_ms":  s.budget.Milliseconds(),
		})
	}

	point := s.publisher.Handle(score)

	span.SetAttributes(
		attribute.Float64("score", score.Score),
		attribute.String("severity", string(score.Severity)),
		attribute.Bool("point_emitted", point != nil),
	)
	return score
}

func (s *engineService) CloseSegment(_ context.Context, key entity.WindowKey) *window.Terminal {
	t := s.windows.Close(key)
	if t != nil {
		s.fold(*t)
	}
	return t
}

func (s *engineService) SweepIdle(idle time.Duration) int {
	closed := s.windows.Sweep(idle)
	for _, t := range closed {
		s.fold(t)
	}
	return len(closed)
}

// fold turns a closed window into one baseline sample of its segment.
func (s *engineService) fold(t window.Terminal) {
	s.baselines.Update(t.Key.SegmentId, entity.SegmentSample{
		SegmentId:   t.Key.SegmentId,
		ContentType: t.ContentType,
		LearnerId:   t.Key.LearnerId,
		DwellTimeMs: float64(t.DwellSpan.Milliseconds()),
		RewindCount: float64(t.RewindCount),
		RecordedAt:  t.ClosedAt,
	})
}

func (s *engineService) Stats() EngineStats {
	return EngineStats{
		ActiveWindows: s.windows.Len(),
		Evaluations:   s.evaluations.Load(),
		BudgetMisses:  s.budgetMisses.Load(),
		Publisher:     s.publisher.Stats(),
	}
}
