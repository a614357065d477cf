package service

import (
	"context"
	"time"

	"confusion-engine-be/internal/constant"
	"confusion-engine-be/internal/dto"
	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/mapper"
	"confusion-engine-be/internal/pkg/logger"
	"confusion-engine-be/internal/repository/contract"
	"confusion-engine-be/pkg/baseline"
)

type IBaselineService interface {
	Get(ctx context.Context, segmentId string, contentType entity.ContentType) *dto.BaselineResponse
	// Recompute is idempotent; the external scheduler may call it at any time.
	Recompute(ctx context.Context) (*dto.RecomputeResponse, error)
	// Restore loads persisted baselines, then replays the sample log over them.
	Restore(ctx context.Context) error
}

type baselineService struct {
	store      *baseline.Store
	repository contract.CohortBaselineRepository // nil without a database
	mapper     *mapper.CohortBaselineMapper
	logger     logger.ILogger
}

func NewBaselineService(store *baseline.Store, repository contract.CohortBaselineRepository, log logger.ILogger) IBaselineService {
	return &baselineService{
		store:      store,
		repository: repository,
		mapper:     mapper.NewCohortBaselineMapper(),
		logger:     log,
	}
}

func (s *baselineService) Get(_ context.Context, segmentId string, contentType entity.ContentType) *dto.BaselineResponse {
	served := s.store.Get(segmentId, contentType)
	var stats *entity.CohortBaseline
	if raw, ok := s.store.Stats(segmentId); ok {
		stats = &raw
	}
	res := s.mapper.ToResponse(served, stats)
	return &res
}

func (s *baselineService) Recompute(ctx context.Context) (*dto.RecomputeResponse, error) {
	start := time.Now()
	report, err := s.store.Recompute(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.RecomputeResponse{
		Segments:   report.Segments,
		Recomputed: report.Recomputed,
		Skipped:    report.Skipped,
		Pruned:     report.Pruned,
		Duration:   time.Since(start).String(),
	}, nil
}

func (s *baselineService) Restore(ctx context.Context) error {
	if s.repository != nil {
		persisted, err := s.repository.FindAll(ctx)
		if err != nil {
			s.logger.Warn(constant.ModuleBaselineStore, "Failed to load persisted baselines", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			s.store.Restore(persisted)
		}
	}
	_, err := s.store.Recompute(ctx)
	return err
}
