package mapper

import (
	"confusion-engine-be/internal/dto"
	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/model"
)

type HeuristicWeightMapper struct{}

func NewHeuristicWeightMapper() *HeuristicWeightMapper {
	return &HeuristicWeightMapper{}
}

func (m *HeuristicWeightMapper) ToModel(w entity.HeuristicWeight) *model.HeuristicWeight {
	return &model.HeuristicWeight{
		HeuristicName:         w.HeuristicName,
		ContentType:           string(w.ContentType),
		Weight:                w.Weight,
		PositiveFeedbackCount: w.PositiveFeedbackCount,
		NegativeFeedbackCount: w.NegativeFeedbackCount,
		LastUpdated:           w.LastUpdated,
	}
}

func (m *HeuristicWeightMapper) ToEntity(w *model.HeuristicWeight) entity.HeuristicWeight {
	return entity.HeuristicWeight{
		HeuristicName:         w.HeuristicName,
		ContentType:           entity.ContentType(w.ContentType),
		Weight:                w.Weight,
		PositiveFeedbackCount: w.PositiveFeedbackCount,
		NegativeFeedbackCount: w.NegativeFeedbackCount,
		LastUpdated:           w.LastUpdated,
	}
}

func (m *HeuristicWeightMapper) ToResponse(w entity.HeuristicWeight) dto.HeuristicWeightResponse {
	return dto.HeuristicWeightResponse{
		HeuristicName:         w.HeuristicName,
		ContentType:           string(w.ContentType),
		Weight:                w.Weight,
		PositiveFeedbackCount: w.PositiveFeedbackCount,
		NegativeFeedbackCount: w.NegativeFeedbackCount,
		LastUpdated:           w.LastUpdated,
	}
}
