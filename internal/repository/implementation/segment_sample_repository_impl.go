package implementation

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	segmentsKey      = "confusion:segments"
	samplesKeyPrefix = "confusion:samples:"
)

type sampleRecord struct {
	Id          string  `json:"id"` // keeps identical samples distinct inside the sorted set
	ContentType string  `json:"content_type"`
	LearnerId   string  `json:"learner_id"`
	DwellTimeMs float64 `json:"dwell_time_ms"`
	RewindCount float64 `json:"rewind_count"`
	RecordedAt  int64   `json:"recorded_at"`
}

// SegmentSampleRepositoryImpl keeps one sorted set per segment, scored by record time.
type SegmentSampleRepositoryImpl struct {
	rdb *redis.Client
}

func NewSegmentSampleRepository(rdb *redis.Client) contract.SegmentSampleRepository {
	return &SegmentSampleRepositoryImpl{rdb: rdb}
}

func samplesKey(segmentId string) string {
	return samplesKeyPrefix + segmentId
}

func (r *SegmentSampleRepositoryImpl) Append(ctx context.Context, samples ...entity.SegmentSample) error {
	if len(samples) == 0 {
		return nil
	}
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, s := range samples {
			data, err := json.Marshal(sampleRecord{
				Id:          uuid.NewString(),
				ContentType: string(s.ContentType),
				LearnerId:   s.LearnerId,
				DwellTimeMs: s.DwellTimeMs,
				RewindCount: s.RewindCount,
				RecordedAt:  s.RecordedAt.UnixMilli(),
			})
			if err != nil {
				return err
			}
			pipe.ZAdd(ctx, samplesKey(s.SegmentId), redis.Z{Score: float64(s.RecordedAt.UnixMilli()), Member: data})
			pipe.SAdd(ctx, segmentsKey, s.SegmentId)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append samples: %w", err)
	}
	return nil
}

func (r *SegmentSampleRepositoryImpl) Segments(ctx context.Context) ([]string, error) {
	return r.rdb.SMembers(ctx, segmentsKey).Result()
}

func (r *SegmentSampleRepositoryImpl) Load(ctx context.Context, segmentId string) ([]entity.SegmentSample, error) {
	members, err := r.rdb.ZRange(ctx, samplesKey(segmentId), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load samples for %s: %w", segmentId, err)
	}
	out := make([]entity.SegmentSample, 0, len(members))
	for _, m := range members {
		var rec sampleRecord
		if err := json.Unmarshal([]byte(m), &rec); err != nil {
			continue
		}
		out = append(out, entity.SegmentSample{
			SegmentId:   segmentId,
			ContentType: entity.ContentType(rec.ContentType),
			LearnerId:   rec.LearnerId,
			DwellTimeMs: rec.DwellTimeMs,
			RewindCount: rec.RewindCount,
			RecordedAt:  time.UnixMilli(rec.RecordedAt),
		})
	}
	return out, nil
}

func (r *SegmentSampleRepositoryImpl) Prune(ctx context.Context, segmentId string, before time.Time) (int, error) {
	key := samplesKey(segmentId)
	removed, err := r.rdb.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(before.UnixMilli(), 10)).Result()
	if err != nil {
		return 0, fmt.Errorf("prune samples for %s: %w", segmentId, err)
	}
	remaining, err := r.rdb.ZCard(ctx, key).Result()
	if err == nil && remaining == 0 {
		r.rdb.SRem(ctx, segmentsKey, segmentId)
	}
	return int(removed), nil
}
