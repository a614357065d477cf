package baseline

import (
	"context"
	"testing"
	"time"

	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, sampleLog SampleLog) (*Store, *time.Time) {
	t.Helper()
	s := NewStore(DefaultConfig(), sampleLog, nil, logger.NewNopLogger())
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.clock = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	t.Cleanup(s.Close)
	return s, &now
}

func sample(dwellMs, rewinds float64) entity.SegmentSample {
	return entity.SegmentSample{ContentType: entity.ContentText, LearnerId: "l", DwellTimeMs: dwellMs, RewindCount: rewinds}
}

func TestGetDefaultsBelowMinSamples(t *testing.T) {
	tests := []struct {
		name        string
		contentType entity.ContentType
		samples     int
		wantDwell   float64
	}{
		{name: "text, no samples", contentType: entity.ContentText, samples: 0, wantDwell: 30_000},
		{name: "video, no samples", contentType: entity.ContentVideo, samples: 0, wantDwell: 10_000},
		{name: "text, nine samples", contentType: entity.ContentText, samples: 9, wantDwell: 30_000},
		{name: "video, nine samples", contentType: entity.ContentVideo, samples: 9, wantDwell: 10_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore(t, nil)
			for i := 0; i < tt.samples; i++ {
				smp := sample(90_000, 4)
				smp.ContentType = tt.contentType
				s.Update("seg", smp)
			}

			got := s.Get("seg", tt.contentType)
			assert.Equal(t, entity.Baseline{
				Kind:           entity.BaselineDefault,
				SegmentId:      "seg",
				ContentType:    tt.contentType,
				AvgDwellTimeMs: tt.wantDwell,
				AvgRewindCount: 0.5,
			}, got)
			assert.True(t, got.IsDefault())
		})
	}
}

func TestGetComputedIsExponentialAverage(t *testing.T) {
	s, _ := newTestStore(t, nil)

	s.Update("seg", sample(40_000, 2))
	for i := 0; i < 9; i++ {
		s.Update("seg", sample(20_000, 0))
	}

	got := s.Get("seg", entity.ContentText)
	require.Equal(t, entity.BaselineComputed, got.Kind)
	assert.Equal(t, 10, got.SampleSize)
	// 20000 + 20000 * 0.9^9
	assert.InDelta(t, 27748.40978, got.AvgDwellTimeMs, 1e-4)
	assert.NotEqual(t, 22_000.0, got.AvgDwellTimeMs, "must not be the arithmetic mean")
	assert.NotEqual(t, float64(DefaultTextDwellMs), got.AvgDwellTimeMs)
	assert.InDelta(t, 2*0.387420489, got.AvgRewindCount, 1e-6)
}

func TestFoldVariance(t *testing.T) {
	now := time.Now()
	first := Fold(nil, sample(0, 0), 0.1, now)
	second := Fold(&first, sample(100, 0), 0.1, now)

	assert.Equal(t, 1, first.SampleSize)
	assert.Equal(t, 0.0, first.StdDevDwellMs)
	assert.InDelta(t, 10.0, second.AvgDwellTimeMs, 1e-9)
	assert.InDelta(t, 30.0, second.StdDevDwellMs, 1e-9)
	assert.Equal(t, 2, second.SampleSize)
	assert.Equal(t, 0.0, first.AvgDwellTimeMs, "fold must not modify its input")
}

func TestRecomputeReplaysLog(t *testing.T) {
	log := NewMemoryLog()
	s, _ := newTestStore(t, log)
	for i := 0; i < 12; i++ {
		s.Update("seg", sample(float64(10_000+i*1_000), 1))
	}
	live := s.Get("seg", entity.ContentText)

	report, err := s.Recompute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RecomputeReport{Segments: 1, Recomputed: 1}, report)

	after := s.Get("seg", entity.ContentText)
	assert.InDelta(t, live.AvgDwellTimeMs, after.AvgDwellTimeMs, 1e-9)
	assert.Equal(t, 12, after.SampleSize)

	again, err := s.Recompute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report, again)
}

func TestRecomputeSkipsLaggingLog(t *testing.T) {
	log := NewMemoryLog()
	s, now := newTestStore(t, log)
	require.NoError(t, log.Append(context.Background(), entity.SegmentSample{SegmentId: "seg", DwellTimeMs: 1, RecordedAt: *now}))
	s.Restore([]entity.CohortBaseline{{SegmentId: "seg", ContentType: entity.ContentText, AvgDwellTimeMs: 42_000, SampleSize: 50}})

	report, err := s.Recompute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)

	got := s.Get("seg", entity.ContentText)
	assert.Equal(t, 50, got.SampleSize)
	assert.Equal(t, 42_000.0, got.AvgDwellTimeMs)
}

func TestRecomputeAppliesRetention(t *testing.T) {
	log := NewMemoryLog()
	s, now := newTestStore(t, log)

	old := now.Add(-100 * 24 * time.Hour)
	var samples []entity.SegmentSample
	for i := 0; i < 15; i++ {
		at := *now
		if i < 5 {
			at = old
		}
		samples = append(samples, entity.SegmentSample{
			SegmentId: "seg", ContentType: entity.ContentVideo, DwellTimeMs: 8_000, RewindCount: 1, RecordedAt: at,
		})
	}
	require.NoError(t, log.Append(context.Background(), samples...))

	report, err := s.Recompute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, report.Pruned)

	got := s.Get("seg", entity.ContentVideo)
	assert.Equal(t, entity.BaselineComputed, got.Kind)
	assert.Equal(t, 10, got.SampleSize)

	remaining, err := log.Load(context.Background(), "seg")
	require.NoError(t, err)
	assert.Len(t, remaining, 10)
}

func TestSnapshotOrdered(t *testing.T) {
	s, _ := newTestStore(t, nil)
	s.Update("b", sample(1_000, 0))
	s.Update("a", sample(1_000, 0))

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "a", snap[0].SegmentId)
	assert.Equal(t, "b", snap[1].SegmentId)
}
