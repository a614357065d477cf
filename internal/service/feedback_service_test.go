package service

import (
	"context"
	"testing"
	"time"

	"confusion-engine-be/internal/dto"
	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/pkg/logger"
	"confusion-engine-be/internal/repository/memory"
	"confusion-engine-be/pkg/weights"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFeedbackFixture(t *testing.T) (IFeedbackService, *weights.Controller) {
	t.Helper()
	log := logger.NewNopLogger()
	controller := weights.NewController(weights.DefaultConfig(), nil, log)
	return NewFeedbackService(controller, memory.NewExplanationRepository(time.Hour), log), controller
}

func registerVideoRewind(t *testing.T, svc IFeedbackService, id string) {
	t.Helper()
	_, err := svc.RegisterExplanation(context.Background(), dto.RegisterExplanationRequest{
		ExplanationId:        id,
		SegmentId:            "S",
		LearnerId:            "l1",
		ContentType:          "video",
		TriggeringHeuristics: []string{"repeated_rewind"},
	})
	require.NoError(t, err)
}

func TestNegativeFeedbackLowersOnlyThatContentType(t *testing.T) {
	svc, controller := newFeedbackFixture(t)
	registerVideoRewind(t, svc, "x1")

	var last []weights.Adjustment
	for i := 0; i < 5; i++ {
		adjustments, err := svc.Apply(entity.FeedbackSignal{
			ExplanationId: "x1",
			LearnerId:     "l1",
			Outcome:       entity.OutcomeNegative,
			Timestamp:     time.Now(),
		})
		require.NoError(t, err)
		last = adjustments
	}

	require.Len(t, last, 1)
	assert.Equal(t, weights.DirectionDecrease, last[0].Direction)
	assert.Equal(t, 0.4, last[0].From)
	assert.Equal(t, 0.35, last[0].To)

	table := controller.Snapshot()
	assert.Equal(t, 0.35, table.WeightFor("repeated_rewind", entity.ContentVideo))
	assert.Equal(t, 0.4, table.WeightFor("repeated_rewind", entity.ContentText))
}

func TestIngestFeedbackCounts(t *testing.T) {
	svc, _ := newFeedbackFixture(t)
	registerVideoRewind(t, svc, "x1")

	res := svc.Ingest(context.Background(), []dto.FeedbackSignalRequest{
		{ExplanationId: "x1", LearnerId: "l1", Outcome: "positive"},
		{ExplanationId: "x1", LearnerId: "l1", Outcome: "neutral"},
		{ExplanationId: "missing", LearnerId: "l1", Outcome: "negative"},
		{ExplanationId: "x1", LearnerId: "l1", Outcome: "confused"},
		{ExplanationId: "", LearnerId: "l1", Outcome: "negative"},
	})

	assert.Equal(t, 2, res.Accepted)
	assert.Equal(t, 1, res.Unknown)
	assert.Equal(t, 2, res.Invalid)
	assert.Empty(t, res.Adjustments)
}

func TestRegisterExplanationRejectsBadInput(t *testing.T) {
	svc, _ := newFeedbackFixture(t)

	tests := []struct {
		name        string
		explanation entity.Explanation
	}{
		{name: "no id", explanation: entity.Explanation{ContentType: entity.ContentText, TriggeringHeuristics: []string{"repeated_rewind"}}},
		{name: "no heuristics", explanation: entity.Explanation{ExplanationId: "x", ContentType: entity.ContentText}},
		{name: "unknown content type", explanation: entity.Explanation{ExplanationId: "x", ContentType: "audio", TriggeringHeuristics: []string{"repeated_rewind"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, svc.Register(tt.explanation), ErrInvalidExplanation)
		})
	}
}

func TestWeightsResponseListsEveryPair(t *testing.T) {
	svc, _ := newFeedbackFixture(t)

	res := svc.Weights(context.Background())

	assert.Len(t, res.Weights, 8)
}
