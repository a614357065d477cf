package baseline

import (
	"context"
	"sort"
	"sync"
	"time"

	"confusion-engine-be/internal/entity"
)

// SampleLog is the durable record of every folded sample. Recompute replays it.
type SampleLog interface {
	Append(ctx context.Context, samples ...entity.SegmentSample) error
	Segments(ctx context.Context) ([]string, error)
	Load(ctx context.Context, segmentID string) ([]entity.SegmentSample, error)
	// Prune removes samples recorded before the cutoff and reports how many went.
	Prune(ctx context.Context, segmentID string, before time.Time) (int, error)
}

// MemoryLog keeps samples in process. Used when no redis is configured and in tests.
type MemoryLog struct {
	mu      sync.Mutex
	samples map[string][]entity.SegmentSample
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{samples: make(map[string][]entity.SegmentSample)}
}

func (l *MemoryLog) Append(_ context.Context, samples ...entity.SegmentSample) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range samples {
		l.samples[s.SegmentId] = append(l.samples[s.SegmentId], s)
	}
	return nil
}

func (l *MemoryLog) Segments(_ context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.samples))
	for id := range l.samples {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (l *MemoryLog) Load(_ context.Context, segmentID string) ([]entity.SegmentSample, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]entity.SegmentSample, len(l.samples[segmentID]))
	copy(out, l.samples[segmentID])
	return out, nil
}

func (l *MemoryLog) Prune(_ context.Context, segmentID string, before time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.samples[segmentID][:0:0]
	for _, s := range l.samples[segmentID] {
		if !s.RecordedAt.Before(before) {
			kept = append(kept, s)
		}
	}
	pruned := len(l.samples[segmentID]) - len(kept)
	if len(kept) == 0 {
		delete(l.samples, segmentID)
	} else {
		l.samples[segmentID] = kept
	}
	return pruned, nil
}
