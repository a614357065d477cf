package window

import (
	"math"
	"time"

	"confusion-engine-be/internal/entity"
)

// View is an immutable copy of one segment window, safe to read without locks.
// Events are ordered by timestamp.
type View struct {
	Key       entity.WindowKey
	EnteredAt int64 // first activity on the segment, unix ms
	Events    []entity.BehavioralEvent
}

// Latest is the timestamp of the most recent event, or EnteredAt when the window is empty.
func (v View) Latest() int64 {
	if len(v.Events) == 0 {
		return v.EnteredAt
	}
	return v.Events[len(v.Events)-1].Timestamp
}

// since returns the events no older than within, measured from the latest event.
func (v View) since(within time.Duration) []entity.BehavioralEvent {
	cutoff := v.Latest() - within.Milliseconds()
	for i, e := range v.Events {
		if e.Timestamp >= cutoff {
			return v.Events[i:]
		}
	}
	return nil
}

func (v View) RewindCount(within time.Duration) int {
	count := 0
	for _, e := range v.since(within) {
		if e.Type == entity.EventRewind {
			count++
		}
	}
	return count
}

// HasScrollReversal reports a backward scroll that follows a forward scroll with
// |velocity| >= minVelocity, both inside the window.
func (v View) HasScrollReversal(within time.Duration, minVelocity float64) bool {
	fastForward := false
	for _, e := range v.since(within) {
		if e.Type != entity.EventScroll {
			continue
		}
		switch e.Payload.Direction {
		case entity.DirectionForward:
			if math.Abs(e.Payload.Velocity) >= minVelocity {
				fastForward = true
			}
		case entity.DirectionBackward:
			if fastForward {
				return true
			}
		}
	}
	return false
}

func (v View) DwellSpan() time.Duration {
	return time.Duration(v.Latest()-v.EnteredAt) * time.Millisecond
}

// LongestPause is the longest single pause in the window. The payload duration
// wins when present; otherwise the gap to the next resume is used. A pause with
// neither is still open and not counted.
func (v View) LongestPause(within time.Duration) time.Duration {
	events := v.since(within)
	var longest int64
	for i, e := range events {
		if e.Type != entity.EventPause {
			continue
		}
		d := e.Payload.DurationMs
		if d <= 0 {
			for _, next := range events[i+1:] {
				if next.Type == entity.EventResume {
					d = next.Timestamp - e.Timestamp
					break
				}
			}
		}
		if d > longest {
			longest = d
		}
	}
	return time.Duration(longest) * time.Millisecond
}
