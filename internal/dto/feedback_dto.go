package dto

type FeedbackSignalRequest struct {
	ExplanationId string `json:"explanation_id" validate:"required"`
	LearnerId     string `json:"learner_id" validate:"required"`
	Outcome       string `json:"outcome" validate:"required,oneof=positive negative neutral"`
	Timestamp     int64  `json:"timestamp" validate:"gte=0"` // unix ms, 0 means now
}

type IngestFeedbackRequest struct {
	Signals []FeedbackSignalRequest `json:"signals" validate:"required,min=1,max=1000"`
}

type WeightAdjustmentResponse struct {
	Heuristic   string  `json:"heuristic"`
	ContentType string  `json:"content_type"`
	Direction   string  `json:"direction"`
	From        float64 `json:"from"`
	To          float64 `json:"to"`
}

type IngestFeedbackResponse struct {
	Accepted    int                        `json:"accepted"`
	Invalid     int                        `json:"invalid"`
	Unknown     int                        `json:"unknown"` // explanation id not tracked
	Adjustments []WeightAdjustmentResponse `json:"adjustments"`
}

type RegisterExplanationRequest struct {
	ExplanationId        string   `json:"explanation_id" validate:"required"`
	SegmentId            string   `json:"segment_id" validate:"required"`
	LearnerId            string   `json:"learner_id" validate:"required"`
	ContentType          string   `json:"content_type" validate:"required,oneof=text video"`
	TriggeringHeuristics []string `json:"triggering_heuristics" validate:"required,min=1,dive,oneof=repeated_rewind excessive_dwell rapid_scroll_back extended_pause"`
}

type ExplanationResponse struct {
	ExplanationId        string   `json:"explanation_id"`
	SegmentId            string   `json:"segment_id"`
	LearnerId            string   `json:"learner_id"`
	ContentType          string   `json:"content_type"`
	TriggeringHeuristics []string `json:"triggering_heuristics"`
}
