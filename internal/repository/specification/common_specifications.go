package specification

import (
	"fmt"

	"gorm.io/gorm"
)

// BySegment filters by segment id
type BySegment struct {
	SegmentID string
}

func (s BySegment) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("segment_id = ?", s.SegmentID)
}

type ByLearner struct {
	LearnerID string
}

func (s ByLearner) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("learner_id = ?", s.LearnerID)
}

// AtLeastSeverity keeps medium-or-high rows when Min is "medium", high only when "high".
type AtLeastSeverity struct {
	Min string
}

func (s AtLeastSeverity) Apply(db *gorm.DB) *gorm.DB {
	switch s.Min {
	case "high":
		return db.Where("severity = ?", "high")
	case "medium":
		return db.Where("severity IN ?", []string{"medium", "high"})
	}
	return db
}

// OrderBy applies ordering
type OrderBy struct {
	Field string
	Desc  bool
}

func (s OrderBy) Apply(db *gorm.DB) *gorm.DB {
	direction := "ASC"
	if s.Desc {
		direction = "DESC"
	}
	return db.Order(fmt.Sprintf("%s %s", s.Field, direction))
}

// NewestFirst orders by occurrence time, latest first.
func NewestFirst() Specification {
	return OrderBy{Field: "occurred_at", Desc: true}
}

// Pagination
type Pagination struct {
	Limit  int
	Offset int
}

func (s Pagination) Apply(db *gorm.DB) *gorm.DB {
	return db.Limit(s.Limit).Offset(s.Offset)
}
