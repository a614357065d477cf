package mapper

import (
	"confusion-engine-be/internal/dto"
	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/model"
)

type CohortBaselineMapper struct{}

func NewCohortBaselineMapper() *CohortBaselineMapper {
	return &CohortBaselineMapper{}
}

func (m *CohortBaselineMapper) ToModel(b entity.CohortBaseline) *model.CohortBaseline {
	return &model.CohortBaseline{
		SegmentId:      b.SegmentId,
		ContentType:    string(b.ContentType),
		AvgDwellTimeMs: b.AvgDwellTimeMs,
		StdDevDwellMs:  b.StdDevDwellMs,
		AvgRewindCount: b.AvgRewindCount,
		SampleSize:     b.SampleSize,
		LastUpdated:    b.LastUpdated,
	}
}

func (m *CohortBaselineMapper) ToEntity(b *model.CohortBaseline) entity.CohortBaseline {
	return entity.CohortBaseline{
		SegmentId:      b.SegmentId,
		ContentType:    entity.ContentType(b.ContentType),
		AvgDwellTimeMs: b.AvgDwellTimeMs,
		StdDevDwellMs:  b.StdDevDwellMs,
		AvgRewindCount: b.AvgRewindCount,
		SampleSize:     b.SampleSize,
		LastUpdated:    b.LastUpdated,
	}
}

// ToResponse merges the served baseline with the raw statistics, when any exist.
func (m *CohortBaselineMapper) ToResponse(served entity.Baseline, stats *entity.CohortBaseline) dto.BaselineResponse {
	res := dto.BaselineResponse{
		SegmentId:      served.SegmentId,
		ContentType:    string(served.ContentType),
		Kind:           string(served.Kind),
		AvgDwellTimeMs: served.AvgDwellTimeMs,
		AvgRewindCount: served.AvgRewindCount,
		SampleSize:     served.SampleSize,
	}
	if stats != nil {
		res.SampleSize = stats.SampleSize
		res.StdDevDwellMs = stats.StdDevDwellMs
		t := stats.LastUpdated
		res.LastUpdated = &t
	}
	return res
}
