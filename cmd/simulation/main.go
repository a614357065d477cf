package main

import (
	"context"
	"fmt"
	"time"

	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/pkg/logger"
	"confusion-engine-be/internal/repository/memory"
	"confusion-engine-be/internal/service"
	"confusion-engine-be/pkg/baseline"
	"confusion-engine-be/pkg/heuristic"
	"confusion-engine-be/pkg/publisher"
	"confusion-engine-be/pkg/scoring"
	"confusion-engine-be/pkg/weights"
	"confusion-engine-be/pkg/window"

	"github.com/fatih/color"
)

// printSink echoes every emitted point.
type printSink struct{}

func (printSink) Name() string { return "stdout" }

func (printSink) PublishPoint(_ context.Context, p entity.ConfusionPoint) error {
	c := color.YellowString
	if p.Severity == entity.SeverityHigh {
		c = color.RedString
	}
	fmt.Println(c("  -> point %s %s score=%.2f heuristics=%v", p.Id.String()[:8], p.Severity, p.Score, p.TriggeringHeuristics))
	return nil
}

type step struct {
	event entity.BehavioralEvent
	note  string
}

type scenario struct {
	name  string
	steps []step
}

func ev(learner, segment string, ct entity.ContentType, typ entity.EventType, ts int64, payload entity.EventPayload) entity.BehavioralEvent {
	return entity.BehavioralEvent{
		LearnerId:   learner,
		ContentId:   "course-101",
		SegmentId:   segment,
		ContentType: ct,
		Type:        typ,
		Timestamp:   ts,
		Payload:     payload,
	}
}

func scenarios() []scenario {
	none := entity.EventPayload{}
	return []scenario{
		{
			name: "Video learner rewinds three times",
			steps: []step{
				{ev("alice", "video-3", entity.ContentVideo, entity.EventRewind, 1_000, none), "first rewind"},
				{ev("alice", "video-3", entity.ContentVideo, entity.EventRewind, 5_000, none), "second rewind"},
				{ev("alice", "video-3", entity.ContentVideo, entity.EventRewind, 10_000, none), "third rewind"},
			},
		},
		{
			name: "Reader lingers on a paragraph",
			steps: []step{
				{ev("bob", "text-7", entity.ContentText, entity.EventSelect, 100_000, none), "starts reading"},
				{ev("bob", "text-7", entity.ContentText, entity.EventSelect, 146_000, none), "still here after 46s"},
			},
		},
		{
			name: "Fast scroll then back",
			steps: []step{
				{ev("carol", "text-9", entity.ContentText, entity.EventScroll, 1_000, entity.EventPayload{Velocity: 1200, Direction: entity.DirectionForward}), "skims forward"},
				{ev("carol", "text-9", entity.ContentText, entity.EventScroll, 4_000, entity.EventPayload{Velocity: 300, Direction: entity.DirectionBackward}), "scrolls back"},
			},
		},
		{
			name: "Long pause mid-video",
			steps: []step{
				{ev("dave", "video-4", entity.ContentVideo, entity.EventPause, 2_000, entity.EventPayload{DurationMs: 12_000}), "pauses for 12s"},
			},
		},
	}
}

func main() {
	color.Cyan("🚀 Confusion engine simulation (in-process)\n")

	log := logger.NewNopLogger()
	windows := window.NewManager(window.DefaultHorizon, log)
	store := baseline.NewStore(baseline.DefaultConfig(), baseline.NewMemoryLog(), nil, log)
	defer store.Close()
	controller := weights.NewController(weights.DefaultConfig(), nil, log)

	pub := publisher.New(64, log)
	pub.AddPointSink(printSink{})
	if err := pub.Start(context.Background()); err != nil {
		color.Red("Failed to start publisher: %v", err)
		return
	}

	aggregator := scoring.NewAggregator(heuristic.NewEvaluator(heuristic.DefaultConfig()), controller)
	engine := service.NewEngineService(windows, store, aggregator, pub, 500*time.Millisecond, log)
	feedback := service.NewFeedbackService(controller, memory.NewExplanationRepository(time.Hour), log)

	ctx := context.Background()
	for _, sc := range scenarios() {
		color.Yellow("\n[SCENARIO] %s", sc.name)
		for _, st := range sc.steps {
			score := engine.Evaluate(ctx, st.event, time.Now())
			fmt.Printf("  %-22s score=%.2f %-6s latency=%s\n", st.note, score.Score, score.Severity, score.EvaluationLatency)
		}
		// let the sink print before the next header
		time.Sleep(20 * time.Millisecond)
	}

	color.Yellow("\n[FEEDBACK] Five learners say the rewind hint did not help")
	if err := feedback.Register(entity.Explanation{
		ExplanationId:        "sim-x1",
		SegmentId:            "video-3",
		LearnerId:            "alice",
		ContentType:          entity.ContentVideo,
		TriggeringHeuristics: []string{"repeated_rewind"},
	}); err != nil {
		color.Red("Failed: %v", err)
		return
	}
	for i := 0; i < 5; i++ {
		adjustments, err := feedback.Apply(entity.FeedbackSignal{
			ExplanationId: "sim-x1",
			LearnerId:     fmt.Sprintf("learner-%d", i),
			Outcome:       entity.OutcomeNegative,
			Timestamp:     time.Now(),
		})
		if err != nil {
			color.Red("Failed: %v", err)
			return
		}
		for _, a := range adjustments {
			color.Green("  %s/%s %s %.2f -> %.2f", a.Heuristic, a.ContentType, a.Direction, a.From, a.To)
		}
	}

	if err := pub.Close(); err != nil {
		color.Red("Publisher drain failed: %v", err)
	}
	stats := engine.Stats()
	color.Cyan("\n✅ Done: %d evaluations, %d points, %d scores, %d budget misses",
		stats.Evaluations, stats.Publisher.Points, stats.Publisher.Scores, stats.BudgetMisses)
}
