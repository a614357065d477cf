package mapper

import (
	"encoding/json"

	"confusion-engine-be/internal/dto"
	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/model"
	"confusion-engine-be/pkg/events"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ConfusionMapper struct{}

func NewConfusionMapper() *ConfusionMapper {
	return &ConfusionMapper{}
}

func (m *ConfusionMapper) PointToModel(p entity.ConfusionPoint) *model.ConfusionPoint {
	return &model.ConfusionPoint{
		Id:                   p.Id,
		SegmentId:            p.SegmentId,
		LearnerId:            p.LearnerId,
		ContentId:            p.ContentId,
		ContentType:          string(p.ContentType),
		Score:                p.Score,
		Severity:             string(p.Severity),
		TriggeringHeuristics: datatypes.JSONSlice[string](p.TriggeringHeuristics),
		OccurredAt:           p.Timestamp,
	}
}

func (m *ConfusionMapper) PointToEntity(p *model.ConfusionPoint) entity.ConfusionPoint {
	return entity.ConfusionPoint{
		Id:                   p.Id,
		SegmentId:            p.SegmentId,
		LearnerId:            p.LearnerId,
		ContentId:            p.ContentId,
		ContentType:          entity.ContentType(p.ContentType),
		Score:                p.Score,
		Severity:             entity.Severity(p.Severity),
		TriggeringHeuristics: []string(p.TriggeringHeuristics),
		Timestamp:            p.OccurredAt,
	}
}

func (m *ConfusionMapper) ScoreToModel(s entity.ConfusionScore) (*model.ConfusionScore, error) {
	payload := events.ConfusionScoreEvent{Score: s}.Payload().(events.ConfusionScorePayload)
	results, err := json.Marshal(payload.Results)
	if err != nil {
		return nil, err
	}
	return &model.ConfusionScore{
		Id:                   uuid.New(),
		SegmentId:            s.SegmentId,
		LearnerId:            s.LearnerId,
		ContentType:          string(s.ContentType),
		Score:                s.Score,
		Severity:             string(s.Severity),
		TriggeringHeuristics: datatypes.JSONSlice[string](payload.TriggeringHeuristics),
		Results:              datatypes.JSON(results),
		LatencyMs:            payload.LatencyMs,
		OccurredAt:           s.Timestamp,
	}, nil
}

func (m *ConfusionMapper) PointToResponse(p entity.ConfusionPoint) dto.ConfusionPointResponse {
	return dto.ConfusionPointResponse{
		Id:                   p.Id.String(),
		SegmentId:            p.SegmentId,
		LearnerId:            p.LearnerId,
		ContentId:            p.ContentId,
		ContentType:          string(p.ContentType),
		Score:                p.Score,
		Severity:             string(p.Severity),
		TriggeringHeuristics: p.TriggeringHeuristics,
		Timestamp:            p.Timestamp,
	}
}
