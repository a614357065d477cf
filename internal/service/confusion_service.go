package service

import (
	"context"
	"errors"

	"confusion-engine-be/internal/dto"
	"confusion-engine-be/internal/mapper"
	"confusion-engine-be/internal/repository/contract"
	"confusion-engine-be/internal/repository/specification"
)

var ErrHistoryDisabled = errors.New("confusion history requires a database")

type IConfusionService interface {
	ListPoints(ctx context.Context, segmentId string, query dto.ConfusionPointQuery) ([]dto.ConfusionPointResponse, error)
}

type confusionService struct {
	repository contract.ConfusionRepository // nil without a database
	mapper     *mapper.ConfusionMapper
}

func NewConfusionService(repository contract.ConfusionRepository) IConfusionService {
	return &confusionService{repository: repository, mapper: mapper.NewConfusionMapper()}
}

// ListPoints returns a segment's stored points, newest first.
func (s *confusionService) ListPoints(ctx context.Context, segmentId string, query dto.ConfusionPointQuery) ([]dto.ConfusionPointResponse, error) {
	if s.repository == nil {
		return nil, ErrHistoryDisabled
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 50
	}

	specs := []specification.Specification{specification.BySegment{SegmentID: segmentId}}
	if query.LearnerId != "" {
		specs = append(specs, specification.ByLearner{LearnerID: query.LearnerId})
	}
	if query.MinSeverity != "" {
		specs = append(specs, specification.AtLeastSeverity{Min: query.MinSeverity})
	}
	specs = append(specs, specification.NewestFirst(), specification.Pagination{Limit: limit})

	points, err := s.repository.FindPoints(ctx, specs...)
	if err != nil {
		return nil, err
	}
	res := make([]dto.ConfusionPointResponse, 0, len(points))
	for _, p := range points {
		res = append(res, s.mapper.PointToResponse(p))
	}
	return res, nil
}
