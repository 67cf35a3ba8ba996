package model

import "time"

// TimelineSignal is the timestamp of the most recent timeline event on an
// issue. LastEventAt is nil when the issue has no timeline events.
type TimelineSignal struct {
	LastEventAt *time.Time `json:"lastEventAt,omitempty"`
}

// HasEvent reports whether any timeline event exists.
func (s TimelineSignal) HasEvent() bool {
	return s.LastEventAt != nil
}
