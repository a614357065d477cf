package window

import (
	"sync"
	"testing"
	"time"

	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ev(learner, segment string, typ entity.EventType, ts int64) entity.BehavioralEvent {
	return entity.BehavioralEvent{
		LearnerId:   learner,
		ContentId:   "c1",
		SegmentId:   segment,
		ContentType: entity.ContentVideo,
		Type:        typ,
		Timestamp:   ts,
	}
}

func scroll(ts int64, dir entity.ScrollDirection, velocity float64) entity.BehavioralEvent {
	e := ev("l1", "s1", entity.EventScroll, ts)
	e.ContentType = entity.ContentText
	e.Payload = entity.EventPayload{Direction: dir, Velocity: velocity}
	return e
}

func TestRecordEvictsBeyondHorizon(t *testing.T) {
	m := NewManager(30*time.Second, logger.NewNopLogger())

	m.Record(ev("l1", "s1", entity.EventRewind, 1_000))
	m.Record(ev("l1", "s1", entity.EventRewind, 10_000))
	view, left := m.Record(ev("l1", "s1", entity.EventRewind, 40_000))

	assert.Nil(t, left)
	require.Len(t, view.Events, 2)
	assert.Equal(t, int64(10_000), view.Events[0].Timestamp)
	assert.Equal(t, 2, view.RewindCount(30*time.Second))
	assert.Equal(t, int64(1_000), view.EnteredAt, "entry time survives eviction")
	assert.Equal(t, 39*time.Second, view.DwellSpan())
}

func TestRecordKeepsTimestampOrder(t *testing.T) {
	m := NewManager(0, logger.NewNopLogger())

	m.Record(ev("l1", "s1", entity.EventSelect, 5_000))
	m.Record(ev("l1", "s1", entity.EventSelect, 9_000))
	view, _ := m.Record(ev("l1", "s1", entity.EventRewind, 7_000))

	require.Len(t, view.Events, 3)
	assert.Equal(t, []int64{5_000, 7_000, 9_000}, []int64{
		view.Events[0].Timestamp, view.Events[1].Timestamp, view.Events[2].Timestamp,
	})
}

func TestRewindCountWithin(t *testing.T) {
	m := NewManager(0, logger.NewNopLogger())
	m.Record(ev("l1", "s1", entity.EventRewind, 0))
	m.Record(ev("l1", "s1", entity.EventRewind, 25_000))
	m.Record(ev("l1", "s1", entity.EventRewind, 28_000))

	assert.Equal(t, 3, m.RewindCount("s1", "l1", 30*time.Second))
	assert.Equal(t, 2, m.RewindCount("s1", "l1", 10*time.Second))
	assert.Equal(t, 0, m.RewindCount("s1", "nobody", 30*time.Second))
}

func TestHasScrollReversal(t *testing.T) {
	tests := []struct {
		name   string
		events []entity.BehavioralEvent
		want   bool
	}{
		{
			name: "fast forward then backward",
			events: []entity.BehavioralEvent{
				scroll(0, entity.DirectionForward, 1200),
				scroll(2_000, entity.DirectionBackward, 300),
			},
			want: true,
		},
		{
			name: "negative velocity counts by magnitude",
			events: []entity.BehavioralEvent{
				scroll(0, entity.DirectionForward, -800),
				scroll(500, entity.DirectionBackward, 100),
			},
			want: true,
		},
		{
			name: "slow forward",
			events: []entity.BehavioralEvent{
				scroll(0, entity.DirectionForward, 500),
				scroll(2_000, entity.DirectionBackward, 900),
			},
			want: false,
		},
		{
			name: "backward before forward",
			events: []entity.BehavioralEvent{
				scroll(0, entity.DirectionBackward, 900),
				scroll(2_000, entity.DirectionForward, 900),
			},
			want: false,
		},
		{
			name: "reversal outside ten seconds",
			events: []entity.BehavioralEvent{
				scroll(0, entity.DirectionForward, 1000),
				scroll(11_000, entity.DirectionBackward, 100),
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(0, logger.NewNopLogger())
			for _, e := range tt.events {
				m.Record(e)
			}
			assert.Equal(t, tt.want, m.HasScrollReversal("s1", "l1", 10*time.Second, 800))
		})
	}
}

func TestLongestPause(t *testing.T) {
	m := NewManager(0, logger.NewNopLogger())

	p := ev("l1", "s1", entity.EventPause, 0)
	p.Payload.DurationMs = 4_000
	m.Record(p)
	m.Record(ev("l1", "s1", entity.EventPause, 5_000))
	view, _ := m.Record(ev("l1", "s1", entity.EventResume, 12_000))

	assert.Equal(t, 7*time.Second, view.LongestPause(30*time.Second))
}

func TestSegmentSwitchClosesPreviousWindow(t *testing.T) {
	m := NewManager(0, logger.NewNopLogger())

	m.Record(ev("l1", "s1", entity.EventSelect, 1_000))
	m.Record(ev("l1", "s1", entity.EventRewind, 3_000))
	m.Record(ev("l1", "s1", entity.EventRewind, 9_000))
	_, left := m.Record(ev("l1", "s2", entity.EventSelect, 10_000))

	require.NotNil(t, left)
	assert.Equal(t, entity.WindowKey{LearnerId: "l1", SegmentId: "s1"}, left.Key)
	assert.Equal(t, 8*time.Second, left.DwellSpan)
	assert.Equal(t, 2, left.RewindCount)
	assert.Equal(t, entity.ContentVideo, left.ContentType)

	_, ok := m.Snapshot("s1", "l1")
	assert.False(t, ok)
	assert.Equal(t, 1, m.Len())
}

func TestLateEventKeepsActiveSegment(t *testing.T) {
	m := NewManager(0, logger.NewNopLogger())

	m.Record(ev("l1", "s1", entity.EventSelect, 1_000))
	_, left := m.Record(ev("l1", "s2", entity.EventSelect, 5_000))
	require.NotNil(t, left)

	view, left := m.Record(ev("l1", "s1", entity.EventRewind, 3_000))
	assert.Nil(t, left, "a late event closes nothing")
	assert.Len(t, view.Events, 1)

	_, left = m.Record(ev("l1", "s2", entity.EventSelect, 6_000))
	assert.Nil(t, left, "s2 is still the active segment")

	_, left = m.Record(ev("l1", "s3", entity.EventSelect, 7_000))
	require.NotNil(t, left)
	assert.Equal(t, "s2", left.Key.SegmentId)
	assert.Equal(t, time.Second, left.DwellSpan)
	assert.Equal(t, 2, m.Len())
}

func TestCloseUnknownWindow(t *testing.T) {
	m := NewManager(0, logger.NewNopLogger())
	assert.Nil(t, m.Close(entity.WindowKey{LearnerId: "l1", SegmentId: "s1"}))
}

func TestSweepClosesIdleWindows(t *testing.T) {
	m := NewManager(0, logger.NewNopLogger())
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.clock = func() time.Time { return now }

	m.Record(ev("l1", "s1", entity.EventSelect, 1_000))
	now = now.Add(10 * time.Minute)
	m.Record(ev("l2", "s1", entity.EventSelect, 2_000))

	closed := m.Sweep(5 * time.Minute)
	require.Len(t, closed, 1)
	assert.Equal(t, "l1", closed[0].Key.LearnerId)
	assert.Equal(t, 1, m.Len())
}

func TestConcurrentWritersOnDistinctKeys(t *testing.T) {
	m := NewManager(0, logger.NewNopLogger())
	learners := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	var wg sync.WaitGroup
	for _, l := range learners {
		wg.Add(1)
		go func(learner string) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				m.Record(ev(learner, "s1", entity.EventRewind, int64(i*100)))
			}
		}(l)
	}
	wg.Wait()

	for _, l := range learners {
		view, ok := m.Snapshot("s1", l)
		require.True(t, ok)
		assert.Len(t, view.Events, 100)
	}
}
