package implementation

import (
	"context"

	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/mapper"
	"confusion-engine-be/internal/model"
	"confusion-engine-be/internal/repository/contract"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type HeuristicWeightRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.HeuristicWeightMapper
}

func NewHeuristicWeightRepository(db *gorm.DB) contract.HeuristicWeightRepository {
	return &HeuristicWeightRepositoryImpl{
		db:     db,
		mapper: mapper.NewHeuristicWeightMapper(),
	}
}

func (r *HeuristicWeightRepositoryImpl) SaveWeights(ctx context.Context, records []entity.HeuristicWeight) error {
	if len(records) == 0 {
		return nil
	}
	models := make([]*model.HeuristicWeight, 0, len(records))
	for _, rec := range records {
		models = append(models, r.mapper.ToModel(rec))
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "heuristic_name"}, {Name: "content_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"weight", "positive_feedback_count", "negative_feedback_count", "last_updated", "updated_at",
		}),
	}).Create(&models).Error
}

func (r *HeuristicWeightRepositoryImpl) FindAll(ctx context.Context) ([]entity.HeuristicWeight, error) {
	var models []model.HeuristicWeight
	if err := r.db.WithContext(ctx).Order("content_type, heuristic_name").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]entity.HeuristicWeight, 0, len(models))
	for i := range models {
		out = append(out, r.mapper.ToEntity(&models[i]))
	}
	return out, nil
}
