// FILE: internal/entity/confusion_entity.go
package entity

import (
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ConfusionScore is produced once per evaluation, for every severity.
type ConfusionScore struct {
	SegmentId            string
	LearnerId            string
	ContentId            string
	ContentType          ContentType
	Score                float64
	Severity             Severity
	TriggeringHeuristics []string
	Results              []HeuristicResult
	Timestamp            time.Time
	EvaluationLatency    time.Duration
}

// ConfusionPoint is the outbound decision record. Only medium and high scores become points.
type ConfusionPoint struct {
	Id                   uuid.UUID
	SegmentId            string
	LearnerId            string
	ContentId            string
	ContentType          ContentType
	Score                float64
	Severity             Severity
	TriggeringHeuristics []string
	Timestamp            time.Time
}
