package weights

import (
	"context"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"confusion-engine-be/internal/constant"
	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/metrics"
	"confusion-engine-be/internal/pkg/logger"
)

const (
	DirectionIncrease = "increase"
	DirectionDecrease = "decrease"
	DirectionReset    = "reset"
)

type Config struct {
	Step              float64
	NegativeThreshold int
	PositiveThreshold int
	// Pattern reversal: ratio of the last TrailingSignals non-neutral signals
	// no older than TrailingAge, evaluated once MinEvaluable are present.
	TrailingSignals int
	TrailingAge     time.Duration
	MinEvaluable    int
	ReversalDelta   float64
}

func DefaultConfig() Config {
	return Config{
		Step:              0.05,
		NegativeThreshold: 5,
		PositiveThreshold: 10,
		TrailingSignals:   20,
		TrailingAge:       7 * 24 * time.Hour,
		MinEvaluable:      10,
		ReversalDelta:     0.5,
	}
}

// Adjustment describes one published weight change.
type Adjustment struct {
	Heuristic   string             `json:"heuristic"`
	ContentType entity.ContentType `json:"content_type"`
	Direction   string             `json:"direction"`
	From        float64            `json:"from"`
	To          float64            `json:"to"`
}

// Persister stores the full weight table. Optional.
type Persister interface {
	SaveWeights(ctx context.Context, records []entity.HeuristicWeight) error
}

type trailEntry struct {
	at       time.Time
	positive bool
}

type pairState struct {
	mu          sync.Mutex // single writer per (heuristic, content type)
	trail       []trailEntry
	anchor      float64
	anchored    bool
	sinceAnchor int
}

// Controller owns the weight table. Adjustments for one pair are serialized by
// that pair's lock; the table itself is swapped with compare-and-swap so
// unrelated pairs never wait on each other.
type Controller struct {
	cfg      Config
	defaults map[string]float64
	table    atomic.Pointer[Table]
	pairs    sync.Map // Key -> *pairState
	dirty    chan struct{}
	logger   logger.ILogger
	clock    func() time.Time
}

func NewController(cfg Config, defaults map[string]float64, log logger.ILogger) *Controller {
	if defaults == nil {
		defaults = constant.DefaultHeuristicWeights
	}
	c := &Controller{
		cfg:      cfg,
		defaults: defaults,
		dirty:    make(chan struct{}, 1),
		logger:   log,
		clock:    time.Now,
	}
	c.table.Store(newTable(defaults, entity.ContentTypes, c.clock()))
	return c
}

// Snapshot returns the current table. Never nil.
func (c *Controller) Snapshot() *Table {
	return c.table.Load()
}

// Load installs persisted records over the defaults, used once at boot.
func (c *Controller) Load(records []entity.HeuristicWeight) {
	for _, rec := range records {
		if _, known := c.defaults[rec.HeuristicName]; !known {
			continue
		}
		rec.Weight = clamp(round(rec.Weight))
		c.publish(rec)
	}
}

func (c *Controller) pair(key Key) *pairState {
	if p, ok := c.pairs.Load(key); ok {
		return p.(*pairState)
	}
	p, _ := c.pairs.LoadOrStore(key, &pairState{})
	return p.(*pairState)
}

func (c *Controller) publish(rec entity.HeuristicWeight) {
	for {
		current := c.table.Load()
		if c.table.CompareAndSwap(current, current.with(rec)) {
			break
		}
	}
	select {
	case c.dirty <- struct{}{}:
	default:
	}
}

func (c *Controller) current(key Key, now time.Time) entity.HeuristicWeight {
	if rec, ok := c.table.Load().Record(key.Heuristic, key.ContentType); ok {
		return rec
	}
	return entity.HeuristicWeight{
		HeuristicName: key.Heuristic,
		ContentType:   key.ContentType,
		Weight:        c.defaults[key.Heuristic],
		LastUpdated:   now,
	}
}

// Apply feeds one signal to every heuristic that triggered the explanation.
// Neutral signals change nothing. Only the records for contentType are touched.
func (c *Controller) Apply(signal entity.FeedbackSignal, heuristics []string, contentType entity.ContentType) []Adjustment {
	if signal.Outcome != entity.OutcomePositive && signal.Outcome != entity.OutcomeNegative {
		return nil
	}
	at := signal.Timestamp
	if at.IsZero() {
		at = c.clock()
	}

	var adjustments []Adjustment
	seen := make(map[string]struct{}, len(heuristics))
	for _, name := range heuristics {
		if _, known := c.defaults[name]; !known {
			c.logger.Warn(constant.ModuleWeightController, "Feedback names unknown heuristic", map[string]interface{}{
				"heuristic":      name,
				"explanation_id": signal.ExplanationId,
			})
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		if adj := c.applyOne(Key{Heuristic: name, ContentType: contentType}, signal.Outcome == entity.OutcomePositive, at); adj != nil {
			adjustments = append(adjustments, *adj)
		}
	}
	return adjustments
}

func (c *Controller) applyOne(key Key, positive bool, at time.Time) *Adjustment {
	p := c.pair(key)
	p.mu.Lock()
	defer p.mu.Unlock()

	p.insert(trailEntry{at: at, positive: positive})
	p.trimTrail(c.cfg, p.trail[len(p.trail)-1].at)

	rec := c.current(key, at)

	// The anchor is the last stable ratio; it moves every TrailingSignals signals.
	if ratio, ok := p.ratio(c.cfg); ok {
		if !p.anchored {
			p.anchor, p.anchored, p.sinceAnchor = ratio, true, 0
		} else {
			if math.Abs(ratio-p.anchor) > c.cfg.ReversalDelta {
				return c.reset(key, p, rec, at, ratio)
			}
			p.sinceAnchor++
			if p.sinceAnchor >= c.cfg.TrailingSignals {
				p.anchor, p.sinceAnchor = ratio, 0
			}
		}
	}

	from := rec.Weight
	direction := ""
	if positive {
		rec.PositiveFeedbackCount++
		if rec.PositiveFeedbackCount >= c.cfg.PositiveThreshold {
			rec.Weight = clamp(round(rec.Weight + c.cfg.Step))
			direction = DirectionIncrease
		}
	} else {
		rec.NegativeFeedbackCount++
		if rec.NegativeFeedbackCount >= c.cfg.NegativeThreshold {
			rec.Weight = clamp(round(rec.Weight - c.cfg.Step))
			direction = DirectionDecrease
		}
	}
	if direction != "" {
		rec.PositiveFeedbackCount = 0
		rec.NegativeFeedbackCount = 0
	}
	rec.LastUpdated = at
	c.publish(rec)

	if direction == "" {
		return nil
	}
	metrics.RecordWeightAdjustment(key.Heuristic, string(key.ContentType), direction)
	c.logger.Info(constant.ModuleWeightController, "Weight adjusted", map[string]interface{}{
		"heuristic":    key.Heuristic,
		"content_type": key.ContentType,
		"direction":    direction,
		"from":         from,
		"to":           rec.Weight,
	})
	return &Adjustment{Heuristic: key.Heuristic, ContentType: key.ContentType, Direction: direction, From: from, To: rec.Weight}
}

// reset restores the documented default and forgets all feedback history. Caller holds p.mu.
func (c *Controller) reset(key Key, p *pairState, rec entity.HeuristicWeight, at time.Time, ratio float64) *Adjustment {
	from := rec.Weight
	anchor := p.anchor

	rec.Weight = c.defaults[key.Heuristic]
	rec.PositiveFeedbackCount = 0
	rec.NegativeFeedbackCount = 0
	rec.LastUpdated = at
	c.publish(rec)

	p.trail = nil
	p.anchor, p.anchored, p.sinceAnchor = 0, false, 0

	metrics.RecordWeightAdjustment(key.Heuristic, string(key.ContentType), DirectionReset)
	c.logger.Warn(constant.ModuleWeightController, "Feedback pattern reversed, weight reset", map[string]interface{}{
		"heuristic":    key.Heuristic,
		"content_type": key.ContentType,
		"anchor":       anchor,
		"ratio":        ratio,
		"from":         from,
		"to":           rec.Weight,
	})
	return &Adjustment{Heuristic: key.Heuristic, ContentType: key.ContentType, Direction: DirectionReset, From: from, To: rec.Weight}
}

// insert keeps the trail ordered by signal time; delayed feedback slots in.
func (p *pairState) insert(e trailEntry) {
	n := len(p.trail)
	if n == 0 || !e.at.Before(p.trail[n-1].at) {
		p.trail = append(p.trail, e)
		return
	}
	i := sort.Search(n, func(i int) bool { return p.trail[i].at.After(e.at) })
	p.trail = append(p.trail, trailEntry{})
	copy(p.trail[i+1:], p.trail[i:])
	p.trail[i] = e
}

// trimTrail relies on the trail being ordered by insert.
func (p *pairState) trimTrail(cfg Config, now time.Time) {
	cutoff := now.Add(-cfg.TrailingAge)
	start := 0
	for start < len(p.trail) && p.trail[start].at.Before(cutoff) {
		start++
	}
	if over := len(p.trail) - start - cfg.TrailingSignals; over > 0 {
		start += over
	}
	if start > 0 {
		p.trail = append(p.trail[:0:0], p.trail[start:]...)
	}
}

// ratio is positive / (positive + negative) over the trail.
func (p *pairState) ratio(cfg Config) (float64, bool) {
	if len(p.trail) < cfg.MinEvaluable {
		return 0, false
	}
	positives := 0
	for _, e := range p.trail {
		if e.positive {
			positives++
		}
	}
	return float64(positives) / float64(len(p.trail)), true
}

// ScanReversals ages every trail against now and resets pairs whose ratio has
// drifted past the reversal delta. Returns the resets it performed.
func (c *Controller) ScanReversals(now time.Time) []Adjustment {
	var out []Adjustment
	c.pairs.Range(func(k, v any) bool {
		key, p := k.(Key), v.(*pairState)
		p.mu.Lock()
		defer p.mu.Unlock()

		p.trimTrail(c.cfg, now)
		ratio, ok := p.ratio(c.cfg)
		if !ok {
			p.anchored, p.sinceAnchor = false, 0
			return true
		}
		if p.anchored && math.Abs(ratio-p.anchor) > c.cfg.ReversalDelta {
			out = append(out, *c.reset(key, p, c.current(key, now), now, ratio))
		}
		return true
	})
	return out
}

// Run persists the table after every change until ctx is done.
func (c *Controller) Run(ctx context.Context, persister Persister) {
	save := func(ctx context.Context) {
		if err := persister.SaveWeights(ctx, c.Snapshot().All()); err != nil {
			c.logger.Error(constant.ModuleWeightController, "Failed to persist weights", map[string]interface{}{
				"error": err.Error(),
			})
			metrics.RecordSinkFailure("weight_repo", "error")
		}
	}
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			save(flushCtx)
			cancel()
			return
		case <-c.dirty:
			save(ctx)
		}
	}
}

// round keeps weights on a 1e-4 grid so repeated ±0.05 steps stay exact.
func round(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
