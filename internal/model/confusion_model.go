package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ConfusionPoint struct {
	Id                   uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	SegmentId            string                      `gorm:"type:varchar(255);not null;index"`
	LearnerId            string                      `gorm:"type:varchar(255);not null;index"`
	ContentId            string                      `gorm:"type:varchar(255)"`
	ContentType          string                      `gorm:"type:varchar(16);not null"`
	Score                float64                     `gorm:"not null"`
	Severity             string                      `gorm:"type:varchar(8);not null;index"`
	TriggeringHeuristics datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	OccurredAt           time.Time                   `gorm:"not null;index"`
	CreatedAt            time.Time                   `gorm:"autoCreateTime"`
}

func (ConfusionPoint) TableName() string {
	return "confusion_points"
}

// ConfusionScore is the analytics row written for every evaluation.
type ConfusionScore struct {
	Id                   uuid.UUID                   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SegmentId            string                      `gorm:"type:varchar(255);not null;index"`
	LearnerId            string                      `gorm:"type:varchar(255);not null"`
	ContentType          string                      `gorm:"type:varchar(16);not null"`
	Score                float64                     `gorm:"not null"`
	Severity             string                      `gorm:"type:varchar(8);not null"`
	TriggeringHeuristics datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Results              datatypes.JSON              `gorm:"type:jsonb"`
	LatencyMs            float64                     `gorm:"not null"`
	OccurredAt           time.Time                   `gorm:"not null;index"`
}

func (ConfusionScore) TableName() string {
	return "confusion_scores"
}
