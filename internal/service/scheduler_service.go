package service

import (
	"context"
	"time"

	"confusion-engine-be/internal/constant"
	"confusion-engine-be/internal/pkg/logger"
	"confusion-engine-be/pkg/weights"
)

type SchedulerConfig struct {
	RecomputeInterval    time.Duration
	ReversalScanInterval time.Duration
	SweepInterval        time.Duration
	WindowIdleTTL        time.Duration
}

type ISchedulerService interface {
	// Run blocks until ctx is done. Every task runs off the scoring path.
	Run(ctx context.Context)
}

type schedulerService struct {
	cfg       SchedulerConfig
	engine    IEngineService
	baselines IBaselineService
	weights   *weights.Controller
	logger    logger.ILogger
}

func NewSchedulerService(cfg SchedulerConfig, engine IEngineService, baselines IBaselineService, controller *weights.Controller, log logger.ILogger) ISchedulerService {
	return &schedulerService{cfg: cfg, engine: engine, baselines: baselines, weights: controller, logger: log}
}

func newTicker(d time.Duration) (<-chan time.Time, func()) {
	if d <= 0 {
		return nil, func() {}
	}
	t := time.NewTicker(d)
	return t.C, t.Stop
}

func (s *schedulerService) Run(ctx context.Context) {
	recompute, stopRecompute := newTicker(s.cfg.RecomputeInterval)
	defer stopRecompute()
	scan, stopScan := newTicker(s.cfg.ReversalScanInterval)
	defer stopScan()
	sweep, stopSweep := newTicker(s.cfg.SweepInterval)
	defer stopSweep()

	s.logger.Info(constant.ModuleScheduler, "Scheduler started", map[string]interface{}{
		"recompute_interval": s.cfg.RecomputeInterval.String(),
		"scan_interval":      s.cfg.ReversalScanInterval.String(),
		"sweep_interval":     s.cfg.SweepInterval.String(),
	})

	for {
		select {
		case <-ctx.Done():
			return
		case <-recompute:
			if _, err := s.baselines.Recompute(ctx); err != nil {
				s.logger.Error(constant.ModuleScheduler, "Scheduled recompute failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		case now := <-scan:
			if resets := s.weights.ScanReversals(now); len(resets) > 0 {
				s.logger.Info(constant.ModuleScheduler, "Reversal scan reset weights", map[string]interface{}{
					"resets": len(resets),
				})
			}
		case <-sweep:
			s.engine.SweepIdle(s.cfg.WindowIdleTTL)
		}
	}
}
