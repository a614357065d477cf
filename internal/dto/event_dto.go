package dto

type EventPayloadRequest struct {
	Position  float64 `json:"position"`
	Velocity  float64 `json:"velocity"`
	Direction string  `json:"direction" validate:"omitempty,oneof=forward backward"`
	Duration  int64   `json:"duration" validate:"gte=0"` // milliseconds
}

type BehavioralEventRequest struct {
	LearnerId   string              `json:"learner_id" validate:"required"`
	ContentId   string              `json:"content_id" validate:"required"`
	SegmentId   string              `json:"segment_id" validate:"required"`
	ContentType string              `json:"content_type" validate:"required,oneof=text video"`
	Type        string              `json:"type" validate:"required,oneof=pause resume rewind scroll revisit select"`
	Timestamp   int64               `json:"timestamp" validate:"required,gt=0"` // unix ms
	Payload     EventPayloadRequest `json:"payload"`
}

// IngestEventsRequest carries a batch. Events are validated one by one so a bad
// record never rejects its neighbours.
type IngestEventsRequest struct {
	Events []BehavioralEventRequest `json:"events" validate:"required,min=1,max=1000"`
}

type IngestEventsResponse struct {
	Accepted int `json:"accepted"`
	Invalid  int `json:"invalid"`
}

type CloseSegmentRequest struct {
	LearnerId string `json:"learner_id" validate:"required"`
	SegmentId string `json:"segment_id" validate:"required"`
}

type CloseSegmentResponse struct {
	Closed      bool    `json:"closed"`
	DwellTimeMs float64 `json:"dwell_time_ms,omitempty"`
	RewindCount int     `json:"rewind_count,omitempty"`
}
