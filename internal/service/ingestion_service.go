package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"confusion-engine-be/internal/constant"
	"confusion-engine-be/internal/dto"
	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/mapper"
	"confusion-engine-be/internal/metrics"
	"confusion-engine-be/internal/pkg/logger"
	"confusion-engine-be/internal/pkg/serverutils"
	"confusion-engine-be/pkg/window"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidEvent    = errors.New("invalid behavioral event")
	ErrIngestionClosed = errors.New("ingestion closed")
)

type LaneStats struct {
	Lane    int
	Depth   int
	Dropped int64
}

type IIngestionService interface {
	Ingest(ctx context.Context, reqs []dto.BehavioralEventRequest) dto.IngestEventsResponse
	// Submit queues one event on its key's lane. A full lane drops its oldest
	// event instead of blocking; drops are not errors.
	Submit(event entity.BehavioralEvent, receivedAt time.Time) error
	CloseSegment(ctx context.Context, key entity.WindowKey) (*window.Terminal, error)
	Start(ctx context.Context) error
	Close() error
	Stats() []LaneStats
	InvalidCount() int64
}

type taskKind int

const (
	taskEvent taskKind = iota
	taskClose
)

type task struct {
	kind       taskKind
	key        entity.WindowKey
	event      entity.BehavioralEvent
	receivedAt time.Time
	reply      chan *window.Terminal
}

// lane is a bounded FIFO drained by exactly one goroutine, so every key routed
// to it has a single writer.
type lane struct {
	id       int
	mu       sync.Mutex
	tasks    []task
	capacity int
	notify   chan struct{}
	dropped  atomic.Int64
}

// push appends t. When full it evicts the oldest queued event of the same key,
// or the lane's oldest event when the key has none queued.
func (l *lane) push(t task) (evicted *task) {
	l.mu.Lock()
	if len(l.tasks) >= l.capacity {
		victim := -1
		for i := range l.tasks {
			if l.tasks[i].kind == taskEvent && l.tasks[i].key == t.key {
				victim = i
				break
			}
		}
		if victim < 0 {
			for i := range l.tasks {
				if l.tasks[i].kind == taskEvent {
					victim = i
					break
				}
			}
		}
		if victim < 0 {
			victim = 0
		}
		v := l.tasks[victim]
		evicted = &v
		l.tasks = append(l.tasks[:victim], l.tasks[victim+1:]...)
		l.dropped.Add(1)
	}
	l.tasks = append(l.tasks, t)
	l.mu.Unlock()

	select {
	case l.notify <- struct{}{}:
	default:
	}
	return evicted
}

func (l *lane) pop() (task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.tasks) == 0 {
		return task{}, false
	}
	t := l.tasks[0]
	l.tasks[0] = task{}
	l.tasks = l.tasks[1:]
	return t, true
}

func (l *lane) depth() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

type ingestionService struct {
	engine     IEngineService
	lanes      []*lane
	mapper     *mapper.EventMapper
	logger     logger.ILogger
	dropLogger logger.ILogger // isolated file, drops can be very chatty

	mu      sync.RWMutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	group   *errgroup.Group
	invalid atomic.Int64
}

func NewIngestionService(engine IEngineService, lanes, capacity int, log, dropLog logger.ILogger) IIngestionService {
	if lanes <= 0 {
		lanes = 16
	}
	if capacity <= 0 {
		capacity = 256
	}
	s := &ingestionService{
		engine:     engine,
		mapper:     mapper.NewEventMapper(),
		logger:     log,
		dropLogger: dropLog,
	}
	for i := 0; i < lanes; i++ {
		s.lanes = append(s.lanes, &lane{id: i, capacity: capacity, notify: make(chan struct{}, 1)})
	}
	return s
}

// route pins every segment of a learner to one lane; segment switches close
// the previous window, so a learner's events must stay in arrival order.
func (s *ingestionService) route(learnerID string) *lane {
	h := xxhash.Sum64String(learnerID)
	return s.lanes[h%uint64(len(s.lanes))]
}

// ValidateEvent checks the fields DTO validation cannot see, such as scroll direction.
func ValidateEvent(e entity.BehavioralEvent) error {
	switch {
	case e.LearnerId == "" || e.SegmentId == "" || e.ContentId == "":
		return fmt.Errorf("%w: missing identifier", ErrInvalidEvent)
	case e.Timestamp <= 0:
		return fmt.Errorf("%w: timestamp must be positive", ErrInvalidEvent)
	case e.ContentType != entity.ContentText && e.ContentType != entity.ContentVideo:
		return fmt.Errorf("%w: unknown content type %q", ErrInvalidEvent, e.ContentType)
	case e.Payload.DurationMs < 0:
		return fmt.Errorf("%w: negative duration", ErrInvalidEvent)
	}
	switch e.Type {
	case entity.EventScroll:
		if e.Payload.Direction != entity.DirectionForward && e.Payload.Direction != entity.DirectionBackward {
			return fmt.Errorf("%w: scroll without direction", ErrInvalidEvent)
		}
	case entity.EventPause, entity.EventResume, entity.EventRewind, entity.EventRevisit, entity.EventSelect:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	return nil
}

func (s *ingestionService) Ingest(ctx context.Context, reqs []dto.BehavioralEventRequest) dto.IngestEventsResponse {
	receivedAt := time.Now()
	var res dto.IngestEventsResponse
	for _, req := range reqs {
		if err := serverutils.ValidateRequest(req); err != nil {
			s.rejectInvalid(req.LearnerId, req.SegmentId, err)
			res.Invalid++
			continue
		}
		err := s.Submit(s.mapper.ToEntity(req), receivedAt)
		switch {
		case err == nil:
			res.Accepted++
		case errors.Is(err, ErrInvalidEvent):
			res.Invalid++
		default:
			// closed while ingesting: neither accepted nor invalid
		}
	}
	return res
}

func (s *ingestionService) rejectInvalid(learnerID, segmentID string, err error) {
	s.invalid.Add(1)
	metrics.RecordInvalid("event")
	s.logger.Warn(constant.ModuleIngestion, "Dropping malformed event", map[string]interface{}{
		"learner_id": learnerID,
		"segment_id": segmentID,
		"error":      err.Error(),
	})
}

func (s *ingestionService) Submit(event entity.BehavioralEvent, receivedAt time.Time) error {
	if err := ValidateEvent(event); err != nil {
		s.rejectInvalid(event.LearnerId, event.SegmentId, err)
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		metrics.RecordDroppedEvent("closed")
		return ErrIngestionClosed
	}

	key := event.Key()
	l := s.route(key.LearnerId)
	if evicted := l.push(task{kind: taskEvent, key: key, event: event, receivedAt: receivedAt}); evicted != nil {
		s.recordDrop(l, *evicted)
	}
	return nil
}

func (s *ingestionService) recordDrop(l *lane, t task) {
	metrics.RecordDroppedEvent("lane_full")
	s.dropLogger.Warn(constant.ModuleIngestion, "Lane full, dropped oldest event", map[string]interface{}{
		"lane":       l.id,
		"learner_id": t.key.LearnerId,
		"segment_id": t.key.SegmentId,
		"event_type": string(t.event.Type),
		"timestamp":  t.event.Timestamp,
	})
	if t.reply != nil {
		close(t.reply)
	}
}

// CloseSegment runs on the learner's lane so it is ordered after the learner's queued events.
func (s *ingestionService) CloseSegment(ctx context.Context, key entity.WindowKey) (*window.Terminal, error) {
	reply := make(chan *window.Terminal, 1)

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrIngestionClosed
	}
	l := s.route(key.LearnerId)
	if evicted := l.push(task{kind: taskClose, key: key, reply: reply}); evicted != nil {
		s.recordDrop(l, *evicted)
	}
	s.mu.RUnlock()

	select {
	case t := <-reply:
		return t, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *ingestionService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	s.started = true

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	g, gctx := errgroup.WithContext(runCtx)
	for _, l := range s.lanes {
		g.Go(func() error {
			s.drain(gctx, l)
			return nil
		})
	}
	s.group = g

	s.logger.Info(constant.ModuleIngestion, "Ingestion lanes started", map[string]interface{}{
		"lanes":    len(s.lanes),
		"capacity": s.lanes[0].capacity,
	})
	return nil
}

func (s *ingestionService) drain(ctx context.Context, l *lane) {
	for {
		for {
			t, ok := l.pop()
			if !ok {
				break
			}
			s.run(ctx, t)
		}
		select {
		case <-ctx.Done():
			// Finish what is already queued; evaluation never aborts midway.
			for {
				t, ok := l.pop()
				if !ok {
					return
				}
				s.run(context.Background(), t)
			}
		case <-l.notify:
		}
	}
}

func (s *ingestionService) run(ctx context.Context, t task) {
	switch t.kind {
	case taskEvent:
		s.engine.Evaluate(ctx, t.event, t.receivedAt)
	case taskClose:
		t.reply <- s.engine.CloseSegment(ctx, t.key)
	}
}

// Close stops accepting work and waits for every queued task to be processed.
func (s *ingestionService) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	g, cancel := s.group, s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if g != nil {
		return g.Wait()
	}
	return nil
}

func (s *ingestionService) Stats() []LaneStats {
	out := make([]LaneStats, 0, len(s.lanes))
	for _, l := range s.lanes {
		out = append(out, LaneStats{Lane: l.id, Depth: l.depth(), Dropped: l.dropped.Load()})
	}
	return out
}

func (s *ingestionService) InvalidCount() int64 {
	return s.invalid.Load()
}
