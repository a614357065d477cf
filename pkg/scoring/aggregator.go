package scoring

import (
	"math"
	"time"

	"confusion-engine-be/internal/constant"
	"confusion-engine-be/internal/entity"
	"confusion-engine-be/pkg/heuristic"
	"confusion-engine-be/pkg/weights"
	"confusion-engine-be/pkg/window"
)

// WeightSource hands out the current weight snapshot.
type WeightSource interface {
	Snapshot() *weights.Table
}

type Aggregator struct {
	evaluator *heuristic.Evaluator
	weights   WeightSource
	clock     func() time.Time
}

func NewAggregator(evaluator *heuristic.Evaluator, source WeightSource) *Aggregator {
	return &Aggregator{evaluator: evaluator, weights: source, clock: time.Now}
}

// Classify maps a score to its severity band: [0, 0.3) low, [0.3, 0.6) medium, [0.6, 1] high.
func Classify(score float64) entity.Severity {
	switch {
	case score >= constant.SeverityHighThreshold:
		return entity.SeverityHigh
	case score >= constant.SeverityMediumThreshold:
		return entity.SeverityMedium
	default:
		return entity.SeverityLow
	}
}

// Evaluate scores the window the event just landed in. One weight snapshot is
// read per evaluation so every heuristic sees the same table.
func (a *Aggregator) Evaluate(event entity.BehavioralEvent, view window.View, baseline entity.Baseline) entity.ConfusionScore {
	table := a.weights.Snapshot()
	results := a.evaluator.Evaluate(heuristic.Input{Window: view, Baseline: baseline}, func(name string) float64 {
		return table.WeightFor(name, event.ContentType)
	})

	var sum float64
	var triggering []string
	for _, r := range results {
		if !r.Triggered {
			continue
		}
		sum += r.Contribution
		triggering = append(triggering, r.HeuristicName)
	}
	score := clamp(sum) // band and reported score share the rounded value

	return entity.ConfusionScore{
		SegmentId:            event.SegmentId,
		LearnerId:            event.LearnerId,
		ContentId:            event.ContentId,
		ContentType:          event.ContentType,
		Score:                score,
		Severity:             Classify(score),
		TriggeringHeuristics: triggering,
		Results:              results,
		Timestamp:            a.clock(),
	}
}

// clamp bounds the score to [0, 1] and drops float noise below 1e-9. The
// severity band is taken from this rounded value, the same one reported as
// Score, so a sum within 1e-9 below a threshold lands in the upper band.
func clamp(v float64) float64 {
	v = math.Round(v*1e9) / 1e9
	return math.Max(0, math.Min(1, v))
}
