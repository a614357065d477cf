package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"confusion-engine-be/internal/dto"
	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/model"
	"confusion-engine-be/internal/repository/implementation"
	"confusion-engine-be/internal/service"
	"confusion-engine-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err, "Failed to connect to DB")
	require.NoError(t, db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error)
	require.NoError(t, db.AutoMigrate(&model.HeuristicWeight{}, &model.CohortBaseline{}, &model.ConfusionPoint{}, &model.ConfusionScore{}))
	return db
}

func TestHeuristicWeightUpsert(t *testing.T) {
	db := openDB(t)
	repo := implementation.NewHeuristicWeightRepository(db)
	ctx := context.Background()
	t.Cleanup(func() {
		db.Where("heuristic_name = ?", "it_heuristic").Delete(&model.HeuristicWeight{})
	})

	rec := entity.HeuristicWeight{
		HeuristicName: "it_heuristic",
		ContentType:   entity.ContentVideo,
		Weight:        0.35,
		LastUpdated:   time.Now().UTC(),
	}
	require.NoError(t, repo.SaveWeights(ctx, []entity.HeuristicWeight{rec}))

	rec.Weight = 0.3
	rec.NegativeFeedbackCount = 2
	require.NoError(t, repo.SaveWeights(ctx, []entity.HeuristicWeight{rec}))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	var found *entity.HeuristicWeight
	for i := range all {
		if all[i].HeuristicName == "it_heuristic" && all[i].ContentType == entity.ContentVideo {
			found = &all[i]
		}
	}
	require.NotNil(t, found, "upserted row should be readable")
	assert.Equal(t, 0.3, found.Weight)
	assert.Equal(t, 2, found.NegativeFeedbackCount)
}

func TestCohortBaselineUpsert(t *testing.T) {
	db := openDB(t)
	repo := implementation.NewCohortBaselineRepository(db)
	ctx := context.Background()
	segment := "it-segment-" + uuid.NewString()
	t.Cleanup(func() {
		db.Where("segment_id = ?", segment).Delete(&model.CohortBaseline{})
	})

	b := entity.CohortBaseline{
		SegmentId:      segment,
		ContentType:    entity.ContentText,
		AvgDwellTimeMs: 25000,
		AvgRewindCount: 0.4,
		SampleSize:     12,
		LastUpdated:    time.Now().UTC(),
	}
	require.NoError(t, repo.SaveBaseline(ctx, b))
	b.SampleSize = 13
	require.NoError(t, repo.SaveBaseline(ctx, b))

	got, err := repo.FindBySegment(ctx, segment)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 13, got.SampleSize)
	assert.Equal(t, 25000.0, got.AvgDwellTimeMs)
}

func TestConfusionPointHistory(t *testing.T) {
	db := openDB(t)
	repo := implementation.NewConfusionRepository(db)
	ctx := context.Background()
	segment := "it-segment-" + uuid.NewString()
	t.Cleanup(func() {
		db.Where("segment_id = ?", segment).Delete(&model.ConfusionPoint{})
		db.Where("segment_id = ?", segment).Delete(&model.ConfusionScore{})
	})

	now := time.Now().UTC().Truncate(time.Millisecond)
	for i, sev := range []entity.Severity{entity.SeverityMedium, entity.SeverityHigh} {
		require.NoError(t, repo.SavePoint(ctx, entity.ConfusionPoint{
			Id:                   uuid.New(),
			SegmentId:            segment,
			LearnerId:            "l1",
			ContentId:            "c",
			ContentType:          entity.ContentText,
			Score:                0.4 + 0.2*float64(i),
			Severity:             sev,
			TriggeringHeuristics: []string{"repeated_rewind"},
			Timestamp:            now.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, repo.SaveScore(ctx, entity.ConfusionScore{
		SegmentId:   segment,
		LearnerId:   "l1",
		ContentType: entity.ContentText,
		Score:       0.1,
		Severity:    entity.SeverityLow,
		Results:     []entity.HeuristicResult{{HeuristicName: "extended_pause", Weight: 0.1, Contribution: 0.1, Triggered: true}},
		Timestamp:   now,
	}))

	svc := service.NewConfusionService(repo)

	points, err := svc.ListPoints(ctx, segment, dto.ConfusionPointQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "high", points[0].Severity, "newest first")
	assert.Equal(t, []string{"repeated_rewind"}, points[0].TriggeringHeuristics)

	high, err := svc.ListPoints(ctx, segment, dto.ConfusionPointQuery{MinSeverity: "high"})
	require.NoError(t, err)
	require.Len(t, high, 1)

	other, err := svc.ListPoints(ctx, segment, dto.ConfusionPointQuery{LearnerId: "someone-else"})
	require.NoError(t, err)
	assert.Empty(t, other)
}
