package implementation

import (
	"context"

	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/mapper"
	"confusion-engine-be/internal/model"
	"confusion-engine-be/internal/repository/contract"
	"confusion-engine-be/internal/repository/specification"

	"gorm.io/gorm"
)

type ConfusionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ConfusionMapper
}

func NewConfusionRepository(db *gorm.DB) contract.ConfusionRepository {
	return &ConfusionRepositoryImpl{
		db:     db,
		mapper: mapper.NewConfusionMapper(),
	}
}

func (r *ConfusionRepositoryImpl) SavePoint(ctx context.Context, point entity.ConfusionPoint) error {
	return r.db.WithContext(ctx).Create(r.mapper.PointToModel(point)).Error
}

func (r *ConfusionRepositoryImpl) SaveScore(ctx context.Context, score entity.ConfusionScore) error {
	m, err := r.mapper.ScoreToModel(score)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *ConfusionRepositoryImpl) FindPoints(ctx context.Context, specs ...specification.Specification) ([]entity.ConfusionPoint, error) {
	var models []model.ConfusionPoint
	if err := specification.Apply(r.db.WithContext(ctx), specs...).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]entity.ConfusionPoint, 0, len(models))
	for i := range models {
		out = append(out, r.mapper.PointToEntity(&models[i]))
	}
	return out, nil
}
