package baseline

import (
	"math"
	"time"

	"confusion-engine-be/internal/entity"
)

// Content-type defaults served while a segment has fewer than MinSamples samples.
const (
	DefaultTextDwellMs  = 30_000
	DefaultVideoDwellMs = 10_000
	DefaultRewindCount  = 0.5
)

type Config struct {
	Alpha       float64
	MinSamples  int
	Retention   time.Duration
	Parallelism int // segments recomputed concurrently
	WriteBuffer int
}

func DefaultConfig() Config {
	return Config{
		Alpha:       0.1,
		MinSamples:  10,
		Retention:   90 * 24 * time.Hour,
		Parallelism: 8,
		WriteBuffer: 4096,
	}
}

// Default is the cold-start baseline for a content type. Unknown types fall back to text.
func Default(segmentID string, contentType entity.ContentType) entity.Baseline {
	dwell := float64(DefaultTextDwellMs)
	if contentType == entity.ContentVideo {
		dwell = DefaultVideoDwellMs
	} else {
		contentType = entity.ContentText
	}
	return entity.Baseline{
		Kind:           entity.BaselineDefault,
		SegmentId:      segmentID,
		ContentType:    contentType,
		AvgDwellTimeMs: dwell,
		AvgRewindCount: DefaultRewindCount,
	}
}

func computed(b *entity.CohortBaseline) entity.Baseline {
	return entity.Baseline{
		Kind:           entity.BaselineComputed,
		SegmentId:      b.SegmentId,
		ContentType:    b.ContentType,
		AvgDwellTimeMs: b.AvgDwellTimeMs,
		AvgRewindCount: b.AvgRewindCount,
		SampleSize:     b.SampleSize,
	}
}

// Fold returns prev with one more sample folded in as an exponential moving
// average. The first sample seeds the averages. prev is not modified.
func Fold(prev *entity.CohortBaseline, sample entity.SegmentSample, alpha float64, now time.Time) entity.CohortBaseline {
	if prev == nil || prev.SampleSize == 0 {
		return entity.CohortBaseline{
			SegmentId:      sample.SegmentId,
			ContentType:    sample.ContentType,
			AvgDwellTimeMs: sample.DwellTimeMs,
			AvgRewindCount: sample.RewindCount,
			SampleSize:     1,
			LastUpdated:    now,
		}
	}

	next := *prev
	diff := sample.DwellTimeMs - prev.AvgDwellTimeMs
	next.AvgDwellTimeMs = prev.AvgDwellTimeMs + alpha*diff
	variance := (1 - alpha) * (prev.StdDevDwellMs*prev.StdDevDwellMs + alpha*diff*diff)
	next.StdDevDwellMs = math.Sqrt(variance)
	next.AvgRewindCount = prev.AvgRewindCount + alpha*(sample.RewindCount-prev.AvgRewindCount)
	next.SampleSize = prev.SampleSize + 1
	next.LastUpdated = now
	if next.ContentType == "" {
		next.ContentType = sample.ContentType
	}
	return next
}
