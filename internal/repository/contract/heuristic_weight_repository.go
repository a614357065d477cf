package contract

import (
	"context"

	"confusion-engine-be/internal/entity"
)

type HeuristicWeightRepository interface {
	// SaveWeights upserts the whole table.
	SaveWeights(ctx context.Context, records []entity.HeuristicWeight) error
	FindAll(ctx context.Context) ([]entity.HeuristicWeight, error)
}
