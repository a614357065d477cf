package model

import "time"

type CohortBaseline struct {
	SegmentId      string    `gorm:"type:varchar(255);primaryKey"`
	ContentType    string    `gorm:"type:varchar(16);not null"`
	AvgDwellTimeMs float64   `gorm:"not null"`
	StdDevDwellMs  float64   `gorm:"not null;default:0"`
	AvgRewindCount float64   `gorm:"not null"`
	SampleSize     int       `gorm:"not null"`
	LastUpdated    time.Time `gorm:"not null"`
}

func (CohortBaseline) TableName() string {
	return "cohort_baselines"
}
