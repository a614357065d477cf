package weights

import (
	"context"
	"sync"
	"testing"
	"time"

	"confusion-engine-be/internal/constant"
	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newTestController() *Controller {
	c := NewController(DefaultConfig(), nil, logger.NewNopLogger())
	c.clock = func() time.Time { return t0 }
	return c
}

func signal(outcome entity.FeedbackOutcome, i int) entity.FeedbackSignal {
	return entity.FeedbackSignal{
		ExplanationId: "exp",
		LearnerId:     "l1",
		Outcome:       outcome,
		Timestamp:     t0.Add(time.Duration(i) * time.Minute),
	}
}

func feed(c *Controller, outcome entity.FeedbackOutcome, n int, name string, ct entity.ContentType) []Adjustment {
	var out []Adjustment
	for i := 0; i < n; i++ {
		out = append(out, c.Apply(signal(outcome, i), []string{name}, ct)...)
	}
	return out
}

func record(t *testing.T, c *Controller, name string, ct entity.ContentType) entity.HeuristicWeight {
	t.Helper()
	rec, ok := c.Snapshot().Record(name, ct)
	require.True(t, ok)
	return rec
}

func TestDefaultsForEveryContentType(t *testing.T) {
	c := newTestController()
	table := c.Snapshot()
	assert.Len(t, table.All(), len(constant.HeuristicNames)*len(entity.ContentTypes))
	for _, ct := range entity.ContentTypes {
		for name, w := range constant.DefaultHeuristicWeights {
			assert.Equal(t, w, table.WeightFor(name, ct))
		}
	}
}

func TestFeedbackThresholds(t *testing.T) {
	tests := []struct {
		name         string
		outcome      entity.FeedbackOutcome
		count        int
		wantWeight   float64
		wantPositive int
		wantNegative int
		wantAdjusted int
	}{
		{name: "four negatives", outcome: entity.OutcomeNegative, count: 4, wantWeight: 0.3, wantNegative: 4},
		{name: "five negatives", outcome: entity.OutcomeNegative, count: 5, wantWeight: 0.25, wantAdjusted: 1},
		{name: "six negatives", outcome: entity.OutcomeNegative, count: 6, wantWeight: 0.25, wantNegative: 1, wantAdjusted: 1},
		{name: "nine positives", outcome: entity.OutcomePositive, count: 9, wantWeight: 0.3, wantPositive: 9},
		{name: "ten positives", outcome: entity.OutcomePositive, count: 10, wantWeight: 0.35, wantAdjusted: 1},
		{name: "neutral ignored", outcome: entity.OutcomeNeutral, count: 50, wantWeight: 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController()
			adjustments := feed(c, tt.outcome, tt.count, constant.HeuristicExcessiveDwell, entity.ContentText)

			rec := record(t, c, constant.HeuristicExcessiveDwell, entity.ContentText)
			assert.Equal(t, tt.wantWeight, rec.Weight)
			assert.Equal(t, tt.wantPositive, rec.PositiveFeedbackCount)
			assert.Equal(t, tt.wantNegative, rec.NegativeFeedbackCount)
			assert.Len(t, adjustments, tt.wantAdjusted)
		})
	}
}

func TestWeightStaysInRange(t *testing.T) {
	c := newTestController()

	feed(c, entity.OutcomeNegative, 500, constant.HeuristicRapidScrollBack, entity.ContentVideo)
	assert.Equal(t, 0.0, record(t, c, constant.HeuristicRapidScrollBack, entity.ContentVideo).Weight)

	feed(c, entity.OutcomePositive, 500, constant.HeuristicRepeatedRewind, entity.ContentVideo)
	assert.Equal(t, 1.0, record(t, c, constant.HeuristicRepeatedRewind, entity.ContentVideo).Weight)
}

func TestContentTypesAreIsolated(t *testing.T) {
	c := newTestController()
	before := record(t, c, constant.HeuristicRepeatedRewind, entity.ContentText)

	adjustments := feed(c, entity.OutcomeNegative, 5, constant.HeuristicRepeatedRewind, entity.ContentVideo)

	require.Len(t, adjustments, 1)
	assert.Equal(t, entity.ContentVideo, adjustments[0].ContentType)
	assert.Equal(t, 0.35, record(t, c, constant.HeuristicRepeatedRewind, entity.ContentVideo).Weight)
	assert.Equal(t, before, record(t, c, constant.HeuristicRepeatedRewind, entity.ContentText))
}

func TestApplyTouchesEveryTriggeringHeuristicOnce(t *testing.T) {
	c := newTestController()
	names := []string{constant.HeuristicRepeatedRewind, constant.HeuristicExtendedPause, constant.HeuristicRepeatedRewind, "unknown"}
	for i := 0; i < 5; i++ {
		c.Apply(signal(entity.OutcomeNegative, i), names, entity.ContentText)
	}

	assert.Equal(t, 0.35, record(t, c, constant.HeuristicRepeatedRewind, entity.ContentText).Weight)
	assert.Equal(t, 0.05, record(t, c, constant.HeuristicExtendedPause, entity.ContentText).Weight)
	assert.Equal(t, 0.3, record(t, c, constant.HeuristicExcessiveDwell, entity.ContentText).Weight)
}

func TestPatternReversalResetsToDefault(t *testing.T) {
	c := newTestController()
	name := constant.HeuristicRepeatedRewind

	feed(c, entity.OutcomePositive, 10, name, entity.ContentText)
	require.Equal(t, 0.45, record(t, c, name, entity.ContentText).Weight)

	var last []Adjustment
	for i := 0; i < 11; i++ {
		last = c.Apply(signal(entity.OutcomeNegative, 10+i), []string{name}, entity.ContentText)
	}

	require.Len(t, last, 1)
	assert.Equal(t, DirectionReset, last[0].Direction)
	rec := record(t, c, name, entity.ContentText)
	assert.Equal(t, 0.4, rec.Weight)
	assert.Zero(t, rec.PositiveFeedbackCount)
	assert.Zero(t, rec.NegativeFeedbackCount)

	// History is forgotten: five more negatives step down from the default.
	feed(c, entity.OutcomeNegative, 5, name, entity.ContentText)
	assert.Equal(t, 0.35, record(t, c, name, entity.ContentText).Weight)
}

func TestSteadyFeedbackNeverResets(t *testing.T) {
	c := newTestController()
	name := constant.HeuristicExcessiveDwell
	for i := 0; i < 200; i++ {
		outcome := entity.OutcomePositive
		if i%2 == 0 {
			outcome = entity.OutcomeNegative
		}
		for _, adj := range c.Apply(signal(outcome, i), []string{name}, entity.ContentText) {
			assert.NotEqual(t, DirectionReset, adj.Direction)
		}
	}
}

func TestScanReversalsAgesTrail(t *testing.T) {
	c := newTestController()
	name := constant.HeuristicExtendedPause
	feed(c, entity.OutcomePositive, 12, name, entity.ContentText)

	p := c.pair(Key{Heuristic: name, ContentType: entity.ContentText})
	require.True(t, p.anchored)

	assert.Empty(t, c.ScanReversals(t0.Add(8*24*time.Hour)))
	assert.Empty(t, p.trail)
	assert.False(t, p.anchored)
}

func TestSnapshotIsCopyOnWrite(t *testing.T) {
	c := newTestController()
	before := c.Snapshot()

	feed(c, entity.OutcomeNegative, 5, constant.HeuristicRepeatedRewind, entity.ContentText)

	assert.Equal(t, 0.4, before.WeightFor(constant.HeuristicRepeatedRewind, entity.ContentText))
	assert.Equal(t, 0.35, c.Snapshot().WeightFor(constant.HeuristicRepeatedRewind, entity.ContentText))
	assert.Greater(t, c.Snapshot().Version(), before.Version())
}

func TestConcurrentFeedbackLosesNothing(t *testing.T) {
	c := newTestController()

	var wg sync.WaitGroup
	for _, ct := range entity.ContentTypes {
		for _, name := range constant.HeuristicNames {
			for w := 0; w < 4; w++ {
				wg.Add(1)
				go func(name string, ct entity.ContentType) {
					defer wg.Done()
					// 4 goroutines x 5 negatives = 20 negatives per pair, ratio stays 0.
					for i := 0; i < 5; i++ {
						c.Apply(signal(entity.OutcomeNegative, i), []string{name}, ct)
					}
				}(name, ct)
			}
		}
	}
	wg.Wait()

	for _, ct := range entity.ContentTypes {
		for _, name := range constant.HeuristicNames {
			want := round(constant.DefaultHeuristicWeights[name] - 4*0.05)
			if want < 0 {
				want = 0
			}
			assert.Equal(t, want, record(t, c, name, ct).Weight, "%s/%s", name, ct)
		}
	}
}

type capturePersister struct {
	mu    sync.Mutex
	saved [][]entity.HeuristicWeight
}

func (p *capturePersister) SaveWeights(_ context.Context, records []entity.HeuristicWeight) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = append(p.saved, records)
	return nil
}

func (p *capturePersister) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.saved)
}

func TestRunPersistsOnChange(t *testing.T) {
	c := newTestController()
	p := &capturePersister{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, p)
		close(done)
	}()

	c.Apply(signal(entity.OutcomePositive, 0), []string{constant.HeuristicRepeatedRewind}, entity.ContentText)
	assert.Eventually(t, func() bool { return p.count() > 0 }, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestLoadRestoresPersistedWeights(t *testing.T) {
	c := newTestController()
	c.Load([]entity.HeuristicWeight{
		{HeuristicName: constant.HeuristicRepeatedRewind, ContentType: entity.ContentVideo, Weight: 0.55, NegativeFeedbackCount: 3},
		{HeuristicName: "retired", ContentType: entity.ContentVideo, Weight: 0.9},
	})

	rec := record(t, c, constant.HeuristicRepeatedRewind, entity.ContentVideo)
	assert.Equal(t, 0.55, rec.Weight)
	assert.Equal(t, 3, rec.NegativeFeedbackCount)
	_, ok := c.Snapshot().Record("retired", entity.ContentVideo)
	assert.False(t, ok)
}

func TestDelayedFeedbackKeepsTrailOrdered(t *testing.T) {
	name := constant.HeuristicExcessiveDwell
	key := Key{Heuristic: name, ContentType: entity.ContentVideo}

	tests := []struct {
		name      string
		delay     time.Duration
		wantLen   int
		wantFirst time.Time
	}{
		{name: "inside the trailing age", delay: time.Hour, wantLen: 13, wantFirst: t0.Add(-time.Hour)},
		{name: "older than the trailing age", delay: 8 * 24 * time.Hour, wantLen: 12, wantFirst: t0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController()
			feed(c, entity.OutcomePositive, 12, name, entity.ContentVideo)

			late := signal(entity.OutcomeNegative, 0)
			late.Timestamp = t0.Add(-tt.delay)
			c.Apply(late, []string{name}, entity.ContentVideo)

			p := c.pair(key)
			require.Len(t, p.trail, tt.wantLen)
			assert.Equal(t, tt.wantFirst, p.trail[0].at)
			for i := 1; i < len(p.trail); i++ {
				assert.False(t, p.trail[i].at.Before(p.trail[i-1].at), "trail out of order at %d", i)
			}
		})
	}
}
