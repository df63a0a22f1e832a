// pkg/core/events.go
package core

// EventType identifies what an Event carries.
type EventType int

const (
	EventNull EventType = iota
	// EventFrame is delivered once per simulation tick.
	EventFrame
	// EventObjectUpdate asks listeners to refresh object-bound UI.
	EventObjectUpdate
)

func (t EventType) String() string {
	switch t {
	case EventFrame:
		return "frame"
	case EventObjectUpdate:
		return "object_update"
	default:
		return "null"
	}
}

// Event is a single value delivered by the event loop.
// RTime is the real time in seconds elapsed since the previous frame.
type Event struct {
	Type     EventType
	RTime    float64
	ObjectID int // 0 targets every object
}

// NewFrameEvent builds a frame event for a tick of dt seconds.
func NewFrameEvent(dt float64) Event {
	return Event{Type: EventFrame, RTime: dt}
}
