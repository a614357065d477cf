package publisher

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/pkg/logger"
	"confusion-engine-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	points []entity.ConfusionPoint
	scores []entity.ConfusionScore
	block  chan struct{}
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) PublishPoint(_ context.Context, p entity.ConfusionPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points = append(s.points, p)
	return nil
}

func (s *recordingSink) PublishScore(_ context.Context, sc entity.ConfusionScore) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores = append(s.scores, sc)
	return nil
}

func (s *recordingSink) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.points), len(s.scores)
}

func score(severity entity.Severity, value float64) entity.ConfusionScore {
	return entity.ConfusionScore{
		SegmentId:            "S",
		LearnerId:            "l1",
		ContentType:          entity.ContentVideo,
		Score:                value,
		Severity:             severity,
		TriggeringHeuristics: []string{"repeated_rewind"},
		Timestamp:            time.UnixMilli(1_700_000_000_000),
	}
}

func TestHandleRoutesBySeverity(t *testing.T) {
	tests := []struct {
		name      string
		severity  entity.Severity
		wantPoint bool
	}{
		{name: "low", severity: entity.SeverityLow, wantPoint: false},
		{name: "medium", severity: entity.SeverityMedium, wantPoint: true},
		{name: "high", severity: entity.SeverityHigh, wantPoint: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			p := New(8, logger.NewNopLogger())
			p.AddPointSink(sink)
			p.AddScoreSink(sink)
			require.NoError(t, p.Start(context.Background()))

			point := p.Handle(score(tt.severity, 0.5))
			require.NoError(t, p.Close())

			points, scores := sink.counts()
			assert.Equal(t, 1, scores)
			if tt.wantPoint {
				require.NotNil(t, point)
				assert.Equal(t, 1, points)
				assert.Equal(t, point.Id, sink.points[0].Id)
				assert.Equal(t, tt.severity, sink.points[0].Severity)
			} else {
				assert.Nil(t, point)
				assert.Zero(t, points)
			}
		})
	}
}

func TestWatermillSinkDeliversPoint(t *testing.T) {
	bus := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NopLogger{})
	defer bus.Close()

	messages, err := bus.Subscribe(context.Background(), TopicConfusionPoints)
	require.NoError(t, err)

	p := New(8, logger.NewNopLogger())
	p.AddPointSink(NewWatermillSink(bus))
	require.NoError(t, p.Start(context.Background()))

	point := p.Handle(score(entity.SeverityHigh, 0.6))
	require.NotNil(t, point)

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, point.Id.String(), msg.UUID)
		assert.Equal(t, "high", msg.Metadata.Get("severity"))

		var payload events.ConfusionPointPayload
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		assert.Equal(t, "S", payload.SegmentId)
		assert.Equal(t, 0.6, payload.Score)
		assert.Equal(t, []string{"repeated_rewind"}, payload.TriggeringHeuristics)
		assert.Equal(t, int64(1_700_000_000_000), payload.Timestamp)
	case <-time.After(2 * time.Second):
		t.Fatal("point not delivered")
	}
	require.NoError(t, p.Close())
}

func TestFullSinkDropsWithoutBlocking(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	p := New(1, logger.NewNopLogger())
	p.AddScoreSink(sink)
	require.NoError(t, p.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			p.Handle(score(entity.SeverityLow, 0.1))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Handle blocked on a full sink")
	}
	close(sink.block)
	require.NoError(t, p.Close())

	stats := p.Stats()
	assert.Equal(t, int64(50), stats.Scores)
	assert.Greater(t, stats.Dropped, int64(0))
	_, delivered := sink.counts()
	assert.Equal(t, int64(50), int64(delivered)+stats.Dropped)
}

func TestHandleAfterCloseIsIgnored(t *testing.T) {
	sink := &recordingSink{}
	p := New(1, logger.NewNopLogger())
	p.AddPointSink(sink)
	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Close())

	assert.Nil(t, p.Handle(score(entity.SeverityHigh, 0.9)))
	assert.ErrorIs(t, p.Start(context.Background()), ErrAlreadyStarted)
}
