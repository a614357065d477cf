package publisher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"confusion-engine-be/internal/constant"
	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/metrics"
	"confusion-engine-be/internal/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var ErrAlreadyStarted = errors.New("publisher already started")

// PointSink receives medium and high severity decisions.
type PointSink interface {
	Name() string
	PublishPoint(ctx context.Context, point entity.ConfusionPoint) error
}

// ScoreSink receives every score, low severity included.
type ScoreSink interface {
	Name() string
	PublishScore(ctx context.Context, score entity.ConfusionScore) error
}

// NewPoint builds the outbound decision record for a score.
func NewPoint(score entity.ConfusionScore) entity.ConfusionPoint {
	return entity.ConfusionPoint{
		Id:                   uuid.New(),
		SegmentId:            score.SegmentId,
		LearnerId:            score.LearnerId,
		ContentId:            score.ContentId,
		ContentType:          score.ContentType,
		Score:                score.Score,
		Severity:             score.Severity,
		TriggeringHeuristics: score.TriggeringHeuristics,
		Timestamp:            score.Timestamp,
	}
}

type worker[T any] struct {
	name  string
	queue chan T
	send  func(context.Context, T) error
}

func (w *worker[T]) offer(v T) bool {
	select {
	case w.queue <- v:
		return true
	default:
		return false
	}
}

func (w *worker[T]) run(ctx context.Context, log logger.ILogger, timeout time.Duration) error {
	for v := range w.queue {
		sendCtx, cancel := context.WithTimeout(ctx, timeout)
		err := w.send(sendCtx, v)
		cancel()
		if err != nil {
			metrics.RecordSinkFailure(w.name, "error")
			log.Error(constant.ModulePublisher, "Sink delivery failed", map[string]interface{}{
				"sink":  w.name,
				"error": err.Error(),
			})
		}
	}
	return nil
}

type Stats struct {
	Points  int64 `json:"points"`
	Scores  int64 `json:"scores"`
	Dropped int64 `json:"dropped"`
}

// Publisher fans scores and points out to sinks. Each sink has its own bounded
// queue and goroutine; a slow sink drops its own deliveries and nobody else's.
// Delivery is at most once.
type Publisher struct {
	buffer  int
	timeout time.Duration
	logger  logger.ILogger

	mu      sync.RWMutex
	started bool
	closed  bool
	points  []*worker[entity.ConfusionPoint]
	scores  []*worker[entity.ConfusionScore]
	group   *errgroup.Group

	emittedPoints atomic.Int64
	emittedScores atomic.Int64
	dropped       atomic.Int64
}

func New(buffer int, log logger.ILogger) *Publisher {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Publisher{buffer: buffer, timeout: 5 * time.Second, logger: log}
}

// AddPointSink registers a sink. Sinks registered after Start are ignored.
func (p *Publisher) AddPointSink(sink PointSink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.points = append(p.points, &worker[entity.ConfusionPoint]{
		name:  sink.Name(),
		queue: make(chan entity.ConfusionPoint, p.buffer),
		send:  sink.PublishPoint,
	})
}

func (p *Publisher) AddScoreSink(sink ScoreSink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.scores = append(p.scores, &worker[entity.ConfusionScore]{
		name:  sink.Name(),
		queue: make(chan entity.ConfusionScore, p.buffer),
		send:  sink.PublishScore,
	})
}

func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return ErrAlreadyStarted
	}
	p.started = true

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range p.points {
		g.Go(func() error { return w.run(gctx, p.logger, p.timeout) })
	}
	for _, w := range p.scores {
		g.Go(func() error { return w.run(gctx, p.logger, p.timeout) })
	}
	p.group = g

	p.logger.Info(constant.ModulePublisher, "Publisher started", map[string]interface{}{
		"point_sinks": len(p.points),
		"score_sinks": len(p.scores),
	})
	return nil
}

// Handle emits the score to every score sink and, for medium or high severity,
// a new ConfusionPoint to every point sink. Never blocks.
func (p *Publisher) Handle(score entity.ConfusionScore) *entity.ConfusionPoint {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil
	}

	p.emittedScores.Add(1)
	for _, w := range p.scores {
		if !w.offer(score) {
			p.drop(w.name, score.LearnerId, score.SegmentId)
		}
	}

	if score.Severity == entity.SeverityLow {
		return nil
	}
	point := NewPoint(score)
	p.emittedPoints.Add(1)
	for _, w := range p.points {
		if !w.offer(point) {
			p.drop(w.name, point.LearnerId, point.SegmentId)
		}
	}
	return &point
}

func (p *Publisher) drop(sink, learnerID, segmentID string) {
	p.dropped.Add(1)
	metrics.RecordSinkFailure(sink, "buffer_full")
	p.logger.Warn(constant.ModulePublisher, "Sink buffer full, delivery dropped", map[string]interface{}{
		"sink":       sink,
		"learner_id": learnerID,
		"segment_id": segmentID,
	})
}

func (p *Publisher) Stats() Stats {
	return Stats{
		Points:  p.emittedPoints.Load(),
		Scores:  p.emittedScores.Load(),
		Dropped: p.dropped.Load(),
	}
}

// Close stops accepting work, drains the queues and waits for sinks to finish.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for _, w := range p.points {
		close(w.queue)
	}
	for _, w := range p.scores {
		close(w.queue)
	}
	g := p.group
	p.mu.Unlock()

	if g == nil {
		return nil
	}
	return g.Wait()
}
