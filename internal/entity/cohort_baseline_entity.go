// FILE: internal/entity/cohort_baseline_entity.go
package entity

import "time"

type CohortBaseline struct {
	SegmentId      string
	ContentType    ContentType
	AvgDwellTimeMs float64
	StdDevDwellMs  float64
	AvgRewindCount float64
	SampleSize     int
	LastUpdated    time.Time
}

type BaselineKind string

const (
	BaselineComputed BaselineKind = "computed"
	BaselineDefault  BaselineKind = "default"
)

// Baseline is what scoring reads: either the computed cohort statistics or the
// content-type default used while a segment has too few samples.
type Baseline struct {
	Kind           BaselineKind
	SegmentId      string
	ContentType    ContentType
	AvgDwellTimeMs float64
	AvgRewindCount float64
	SampleSize     int
}

func (b Baseline) IsDefault() bool {
	return b.Kind == BaselineDefault
}

// SegmentSample is one learner's terminal metrics on a segment.
type SegmentSample struct {
	SegmentId   string
	ContentType ContentType
	LearnerId   string
	DwellTimeMs float64
	RewindCount float64
	RecordedAt  time.Time
}
