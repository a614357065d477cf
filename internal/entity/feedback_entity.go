// FILE: internal/entity/feedback_entity.go
package entity

import "time"

type FeedbackOutcome string

const (
	OutcomePositive FeedbackOutcome = "positive"
	OutcomeNegative FeedbackOutcome = "negative"
	OutcomeNeutral  FeedbackOutcome = "neutral"
)

type FeedbackSignal struct {
	ExplanationId string
	LearnerId     string
	Outcome       FeedbackOutcome
	Timestamp     time.Time
}

// Explanation links a delivered explanation back to the heuristics that caused it.
type Explanation struct {
	ExplanationId        string
	SegmentId            string
	LearnerId            string
	ContentType          ContentType
	TriggeringHeuristics []string
	CreatedAt            time.Time
}
