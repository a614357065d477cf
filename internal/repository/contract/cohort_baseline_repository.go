package contract

import (
	"context"
	"time"

	"confusion-engine-be/internal/entity"
)

type CohortBaselineRepository interface {
	SaveBaseline(ctx context.Context, baseline entity.CohortBaseline) error
	FindAll(ctx context.Context) ([]entity.CohortBaseline, error)
	FindBySegment(ctx context.Context, segmentId string) (*entity.CohortBaseline, error)
}

// SegmentSampleRepository is the durable sample log replayed by recompute.
type SegmentSampleRepository interface {
	Append(ctx context.Context, samples ...entity.SegmentSample) error
	Segments(ctx context.Context) ([]string, error)
	Load(ctx context.Context, segmentId string) ([]entity.SegmentSample, error)
	Prune(ctx context.Context, segmentId string, before time.Time) (int, error)
}
