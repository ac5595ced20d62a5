package parser

// sink.go defines the push boundary between a parse run and whatever
// delivers events to a remote subscriber. Delivery failures (for example
// a disconnected client) are the sink's problem: the Service swallows and
// logs them, they never propagate back into the engine.

// EventSink accepts one event at a time for a session. Implementations
// must be safe for concurrent use across sessions; events for a single
// session arrive in order from a single goroutine.
type EventSink interface {
	Send(sessionID string, ev Event) error
}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(sessionID string, ev Event) error

func (f SinkFunc) Send(sessionID string, ev Event) error {
	return f(sessionID, ev)
}

// ChannelSink delivers every event to a single channel, tagged with its
// session. Sends block when the channel is full, which paces the run
// against a slow consumer.
type ChannelSink struct {
	C chan SessionEvent
}

// SessionEvent pairs an event with the session it belongs to.
type SessionEvent struct {
	SessionID string
	Event     Event
}

// NewChannelSink creates a sink with the given channel buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{C: make(chan SessionEvent, buffer)}
}

func (s *ChannelSink) Send(sessionID string, ev Event) error {
	s.C <- SessionEvent{SessionID: sessionID, Event: ev}
	return nil
}
