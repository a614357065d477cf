package baseline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"confusion-engine-be/internal/constant"
	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/metrics"
	"confusion-engine-be/internal/pkg/logger"

	"golang.org/x/sync/errgroup"
)

var ErrStoreClosed = errors.New("baseline store closed")

// Persister receives every committed baseline. Optional.
type Persister interface {
	SaveBaseline(ctx context.Context, baseline entity.CohortBaseline) error
}

type segmentEntry struct {
	mu      sync.Mutex // serializes folds; readers go through current
	current atomic.Pointer[entity.CohortBaseline]
}

type writeOp struct {
	sample   *entity.SegmentSample
	baseline *entity.CohortBaseline
	done     chan struct{}
}

func (op writeOp) segmentID() string {
	if op.sample != nil {
		return op.sample.SegmentId
	}
	if op.baseline != nil {
		return op.baseline.SegmentId
	}
	return ""
}

// Store holds the committed baseline of every segment. Reads never block on a
// fold or a recompute; durable writes happen on a background goroutine.
type Store struct {
	cfg       Config
	segments  sync.Map // segmentId -> *segmentEntry
	log       SampleLog
	persister Persister
	logger    logger.ILogger
	clock     func() time.Time

	writes    chan writeOp
	closeOnce sync.Once
	closed    chan struct{}
	wg        sync.WaitGroup
}

type RecomputeReport struct {
	Segments   int `json:"segments"`
	Recomputed int `json:"recomputed"`
	Skipped    int `json:"skipped"`
	Pruned     int `json:"pruned"`
}

func NewStore(cfg Config, sampleLog SampleLog, persister Persister, log logger.ILogger) *Store {
	def := DefaultConfig()
	if cfg.Alpha <= 0 || cfg.Alpha > 1 {
		cfg.Alpha = def.Alpha
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = def.MinSamples
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = def.Parallelism
	}
	if cfg.WriteBuffer <= 0 {
		cfg.WriteBuffer = def.WriteBuffer
	}
	if sampleLog == nil {
		sampleLog = NewMemoryLog()
	}

	s := &Store{
		cfg:       cfg,
		log:       sampleLog,
		persister: persister,
		logger:    log,
		clock:     time.Now,
		writes:    make(chan writeOp, cfg.WriteBuffer),
		closed:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.writeLoop()
	return s
}

func (s *Store) entry(segmentID string) *segmentEntry {
	if e, ok := s.segments.Load(segmentID); ok {
		return e.(*segmentEntry)
	}
	e, _ := s.segments.LoadOrStore(segmentID, &segmentEntry{})
	return e.(*segmentEntry)
}

// Get returns the computed baseline once the segment has MinSamples samples,
// and the content-type default before that.
func (s *Store) Get(segmentID string, contentType entity.ContentType) entity.Baseline {
	e, ok := s.segments.Load(segmentID)
	if !ok {
		return Default(segmentID, contentType)
	}
	current := e.(*segmentEntry).current.Load()
	if current == nil || current.SampleSize < s.cfg.MinSamples {
		if contentType == "" && current != nil {
			contentType = current.ContentType
		}
		return Default(segmentID, contentType)
	}
	return computed(current)
}

// Stats returns the raw committed statistics, regardless of sample size.
func (s *Store) Stats(segmentID string) (entity.CohortBaseline, bool) {
	e, ok := s.segments.Load(segmentID)
	if !ok {
		return entity.CohortBaseline{}, false
	}
	current := e.(*segmentEntry).current.Load()
	if current == nil {
		return entity.CohortBaseline{}, false
	}
	return *current, true
}

// Update folds one learner's terminal metrics into the segment and queues the
// sample for the durable log.
func (s *Store) Update(segmentID string, sample entity.SegmentSample) entity.CohortBaseline {
	sample.SegmentId = segmentID
	now := s.clock()
	if sample.RecordedAt.IsZero() {
		sample.RecordedAt = now
	}

	e := s.entry(segmentID)
	e.mu.Lock()
	next := Fold(e.current.Load(), sample, s.cfg.Alpha, now)
	e.current.Store(&next)
	e.mu.Unlock()

	s.enqueue(writeOp{sample: &sample, baseline: &next})
	return next
}

// Restore installs previously persisted baselines, used once at boot.
func (s *Store) Restore(baselines []entity.CohortBaseline) {
	for i := range baselines {
		b := baselines[i]
		e := s.entry(b.SegmentId)
		e.mu.Lock()
		if cur := e.current.Load(); cur == nil || cur.SampleSize < b.SampleSize {
			e.current.Store(&b)
		}
		e.mu.Unlock()
	}
}

// Snapshot lists every committed baseline ordered by segment id.
func (s *Store) Snapshot() []entity.CohortBaseline {
	var out []entity.CohortBaseline
	s.segments.Range(func(_, v any) bool {
		if cur := v.(*segmentEntry).current.Load(); cur != nil {
			out = append(out, *cur)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].SegmentId < out[j].SegmentId })
	return out
}

func (s *Store) enqueue(op writeOp) {
	select {
	case <-s.closed:
		return
	default:
	}
	select {
	case s.writes <- op:
	default:
		s.logger.Warn(constant.ModuleBaselineStore, "Write buffer full, write skipped", map[string]interface{}{
			"segment_id": op.segmentID(),
		})
		metrics.RecordSinkFailure("sample_log", "buffer_full")
	}
}

func (s *Store) writeLoop() {
	defer s.wg.Done()
	ctx := context.Background()
	for {
		select {
		case op := <-s.writes:
			s.write(ctx, op)
		case <-s.closed:
			for {
				select {
				case op := <-s.writes:
					s.write(ctx, op)
				default:
					return
				}
			}
		}
	}
}

func (s *Store) write(ctx context.Context, op writeOp) {
	if op.done != nil {
		close(op.done)
		return
	}
	if op.sample != nil {
		if err := s.log.Append(ctx, *op.sample); err != nil {
			s.logger.Error(constant.ModuleBaselineStore, "Failed to append sample", map[string]interface{}{
				"segment_id": op.sample.SegmentId,
				"error":      err.Error(),
			})
			metrics.RecordSinkFailure("sample_log", "error")
		}
	}
	if s.persister != nil && op.baseline != nil {
		if err := s.persister.SaveBaseline(ctx, *op.baseline); err != nil {
			s.logger.Error(constant.ModuleBaselineStore, "Failed to persist baseline", map[string]interface{}{
				"segment_id": op.baseline.SegmentId,
				"error":      err.Error(),
			})
			metrics.RecordSinkFailure("baseline_repo", "error")
		}
	}
}

// Flush waits until every write queued before the call has reached the log.
func (s *Store) Flush(ctx context.Context) error {
	select {
	case <-s.closed:
		return ErrStoreClosed
	default:
	}
	done := make(chan struct{})
	select {
	case s.writes <- writeOp{done: done}:
	case <-s.closed:
		return ErrStoreClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recompute replays the sample log for every segment, drops samples past
// retention and publishes the refolded baselines. A segment whose log holds
// fewer samples than the live baseline is left alone so that sampleSize only
// shrinks through retention. Safe to call repeatedly.
func (s *Store) Recompute(ctx context.Context) (RecomputeReport, error) {
	var report RecomputeReport
	if err := s.Flush(ctx); err != nil {
		return report, fmt.Errorf("flush sample log: %w", err)
	}

	ids, err := s.log.Segments(ctx)
	if err != nil {
		metrics.RecordRecompute(false)
		return report, fmt.Errorf("list segments: %w", err)
	}
	report.Segments = len(ids)

	var recomputed, skipped, pruned atomic.Int64
	now := s.clock()
	cutoff := now.Add(-s.cfg.Retention)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Parallelism)
	for _, id := range ids {
		g.Go(func() error {
			ok, n, err := s.recomputeSegment(gctx, id, now, cutoff)
			if err != nil {
				return fmt.Errorf("segment %s: %w", id, err)
			}
			pruned.Add(int64(n))
			if ok {
				recomputed.Add(1)
			} else {
				skipped.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()

	report.Recomputed = int(recomputed.Load())
	report.Skipped = int(skipped.Load())
	report.Pruned = int(pruned.Load())
	metrics.RecordRecompute(err == nil)

	if err != nil {
		s.logger.Error(constant.ModuleBaselineStore, "Recompute failed", map[string]interface{}{
			"error":  err.Error(),
			"report": report,
		})
		return report, err
	}
	s.logger.Info(constant.ModuleBaselineStore, "Recompute completed", map[string]interface{}{
		"segments":   report.Segments,
		"recomputed": report.Recomputed,
		"skipped":    report.Skipped,
		"pruned":     report.Pruned,
	})
	return report, nil
}

func (s *Store) recomputeSegment(ctx context.Context, segmentID string, now, cutoff time.Time) (bool, int, error) {
	samples, err := s.log.Load(ctx, segmentID)
	if err != nil {
		return false, 0, err
	}

	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].RecordedAt.Before(samples[j].RecordedAt)
	})
	retained := samples[:0:0]
	for _, smp := range samples {
		if !smp.RecordedAt.Before(cutoff) {
			retained = append(retained, smp)
		}
	}
	expired := len(samples) - len(retained)

	var next *entity.CohortBaseline
	for _, smp := range retained {
		folded := Fold(next, smp, s.cfg.Alpha, now)
		next = &folded
	}

	e := s.entry(segmentID)
	e.mu.Lock()
	if live := e.current.Load(); live != nil && len(samples) < live.SampleSize {
		e.mu.Unlock()
		return false, 0, nil
	}
	e.current.Store(next)
	e.mu.Unlock()

	if expired > 0 {
		n, err := s.log.Prune(ctx, segmentID, cutoff)
		if err != nil {
			return true, 0, err
		}
		expired = n
	}
	if next != nil {
		s.enqueue(writeOp{baseline: next})
	}
	return true, expired, nil
}

// Close drains queued writes and stops the writer.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
	s.wg.Wait()
}
