package contract

import (
	"context"

	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/repository/specification"
)

type ConfusionRepository interface {
	SavePoint(ctx context.Context, point entity.ConfusionPoint) error
	SaveScore(ctx context.Context, score entity.ConfusionScore) error
	FindPoints(ctx context.Context, specs ...specification.Specification) ([]entity.ConfusionPoint, error)
}
