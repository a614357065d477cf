package implementation

import (
	"context"
	"errors"

	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/mapper"
	"confusion-engine-be/internal/model"
	"confusion-engine-be/internal/repository/contract"
	"confusion-engine-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CohortBaselineRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CohortBaselineMapper
}

func NewCohortBaselineRepository(db *gorm.DB) contract.CohortBaselineRepository {
	return &CohortBaselineRepositoryImpl{
		db:     db,
		mapper: mapper.NewCohortBaselineMapper(),
	}
}

func (r *CohortBaselineRepositoryImpl) SaveBaseline(ctx context.Context, baseline entity.CohortBaseline) error {
	m := r.mapper.ToModel(baseline)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "segment_id"}},
		UpdateAll: true,
	}).Create(m).Error
}

func (r *CohortBaselineRepositoryImpl) FindAll(ctx context.Context) ([]entity.CohortBaseline, error) {
	var models []model.CohortBaseline
	if err := r.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]entity.CohortBaseline, 0, len(models))
	for i := range models {
		out = append(out, r.mapper.ToEntity(&models[i]))
	}
	return out, nil
}

func (r *CohortBaselineRepositoryImpl) FindBySegment(ctx context.Context, segmentId string) (*entity.CohortBaseline, error) {
	var m model.CohortBaseline
	if err := specification.Apply(r.db.WithContext(ctx), specification.BySegment{SegmentID: segmentId}).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	b := r.mapper.ToEntity(&m)
	return &b, nil
}
