package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/repository/implementation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentSampleLog(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("Skipping integration test: REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opt)
	defer rdb.Close()
	ctx := context.Background()
	require.NoError(t, rdb.Ping(ctx).Err())

	repo := implementation.NewSegmentSampleRepository(rdb)
	segment := "it-segment-" + uuid.NewString()
	base := time.Now().Add(-time.Hour).Truncate(time.Millisecond)

	samples := []entity.SegmentSample{
		{SegmentId: segment, ContentType: entity.ContentText, LearnerId: "l1", DwellTimeMs: 1000, RecordedAt: base},
		// identical values must not collapse into one member
		{SegmentId: segment, ContentType: entity.ContentText, LearnerId: "l1", DwellTimeMs: 1000, RecordedAt: base},
		{SegmentId: segment, ContentType: entity.ContentText, LearnerId: "l2", DwellTimeMs: 3000, RecordedAt: base.Add(30 * time.Minute)},
	}
	require.NoError(t, repo.Append(ctx, samples...))

	segments, err := repo.Segments(ctx)
	require.NoError(t, err)
	assert.Contains(t, segments, segment)

	loaded, err := repo.Load(ctx, segment)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, 3000.0, loaded[2].DwellTimeMs, "ordered by record time")

	pruned, err := repo.Prune(ctx, segment, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, pruned)

	pruned, err = repo.Prune(ctx, segment, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)
	segments, err = repo.Segments(ctx)
	require.NoError(t, err)
	assert.NotContains(t, segments, segment, "empty segments leave the index")
}
