// FILE: internal/entity/behavioral_event_entity.go
package entity

import "time"

type EventType string

const (
	EventPause   EventType = "pause"
	EventResume  EventType = "resume"
	EventRewind  EventType = "rewind"
	EventScroll  EventType = "scroll"
	EventRevisit EventType = "revisit"
	EventSelect  EventType = "select"
)

type ContentType string

const (
	ContentText  ContentType = "text"
	ContentVideo ContentType = "video"
)

// ContentTypes lists every content type the engine keeps separate weights for.
var ContentTypes = []ContentType{ContentText, ContentVideo}

type ScrollDirection string

const (
	DirectionForward  ScrollDirection = "forward"
	DirectionBackward ScrollDirection = "backward"
)

// EventPayload carries the type-specific measurements of an event.
// Only the fields relevant to the event type are set.
type EventPayload struct {
	Position   float64
	Velocity   float64
	Direction  ScrollDirection
	DurationMs int64
}

// BehavioralEvent is one raw learner interaction. Never mutated after it is recorded.
type BehavioralEvent struct {
	LearnerId   string
	ContentId   string
	SegmentId   string
	ContentType ContentType
	Type        EventType
	Timestamp   int64 // unix milliseconds
	Payload     EventPayload
}

func (e BehavioralEvent) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// WindowKey identifies one learner's window on one segment.
type WindowKey struct {
	LearnerId string
	SegmentId string
}

func (e BehavioralEvent) Key() WindowKey {
	return WindowKey{LearnerId: e.LearnerId, SegmentId: e.SegmentId}
}

func (k WindowKey) String() string {
	return k.LearnerId + "/" + k.SegmentId
}
