package model

import "time"

type HeuristicWeight struct {
	HeuristicName         string    `gorm:"type:varchar(64);primaryKey"`
	ContentType           string    `gorm:"type:varchar(16);primaryKey"`
	Weight                float64   `gorm:"not null"`
	PositiveFeedbackCount int       `gorm:"not null;default:0"`
	NegativeFeedbackCount int       `gorm:"not null;default:0"`
	LastUpdated           time.Time `gorm:"not null"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime"`
}

func (HeuristicWeight) TableName() string {
	return "heuristic_weights"
}
