package heuristic

import (
	"time"

	"confusion-engine-be/internal/constant"
	"confusion-engine-be/internal/entity"
	"confusion-engine-be/pkg/window"
)

// pauseUnit normalizes the extended-pause contribution: a 10s pause counts double.
const pauseUnit = 5 * time.Second

type Config struct {
	RewindWithin   time.Duration
	RewindMin      int
	DwellFactor    float64
	ScrollWithin   time.Duration
	ScrollVelocity float64 // minimum |velocity| of the forward scroll
	PauseWithin    time.Duration
	PauseMin       time.Duration
}

func DefaultConfig() Config {
	return Config{
		RewindWithin:   30 * time.Second,
		RewindMin:      2,
		DwellFactor:    1.5,
		ScrollWithin:   10 * time.Second,
		ScrollVelocity: 800,
		PauseWithin:    30 * time.Second,
		PauseMin:       5 * time.Second,
	}
}

// Input is everything a heuristic may look at. Heuristics never see each other's results.
type Input struct {
	Window   window.View
	Baseline entity.Baseline
}

// Rule returns the contribution of one heuristic for the given weight.
type Rule func(in Input, cfg Config, weight float64) (contribution float64, triggered bool)

// WeightFunc resolves the current weight of a heuristic.
type WeightFunc func(name string) float64

type Evaluator struct {
	cfg   Config
	names []string
	rules map[string]Rule
}

func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{
		cfg:   cfg,
		names: constant.HeuristicNames,
		rules: map[string]Rule{
			constant.HeuristicRepeatedRewind:  RepeatedRewind,
			constant.HeuristicExcessiveDwell:  ExcessiveDwell,
			constant.HeuristicRapidScrollBack: RapidScrollBack,
			constant.HeuristicExtendedPause:   ExtendedPause,
		},
	}
}

// Evaluate runs every heuristic in fixed order. Work is O(window size).
func (e *Evaluator) Evaluate(in Input, weight WeightFunc) []entity.HeuristicResult {
	results := make([]entity.HeuristicResult, 0, len(e.names))
	for _, name := range e.names {
		w := weight(name)
		contribution, triggered := e.rules[name](in, e.cfg, w)
		if !triggered {
			contribution = 0
		}
		results = append(results, entity.HeuristicResult{
			HeuristicName: name,
			Weight:        w,
			Contribution:  contribution,
			Triggered:     triggered,
		})
	}
	return results
}

func RepeatedRewind(in Input, cfg Config, weight float64) (float64, bool) {
	count := in.Window.RewindCount(cfg.RewindWithin)
	if count < cfg.RewindMin {
		return 0, false
	}
	return weight * float64(count) / 2, true
}

func ExcessiveDwell(in Input, cfg Config, weight float64) (float64, bool) {
	dwell := float64(in.Window.DwellSpan().Milliseconds())
	if dwell <= cfg.DwellFactor*in.Baseline.AvgDwellTimeMs {
		return 0, false
	}
	return weight, true
}

func RapidScrollBack(in Input, cfg Config, weight float64) (float64, bool) {
	if !in.Window.HasScrollReversal(cfg.ScrollWithin, cfg.ScrollVelocity) {
		return 0, false
	}
	return weight, true
}

func ExtendedPause(in Input, cfg Config, weight float64) (float64, bool) {
	pause := in.Window.LongestPause(cfg.PauseWithin)
	if pause <= cfg.PauseMin {
		return 0, false
	}
	return weight * float64(pause) / float64(pauseUnit), true
}
