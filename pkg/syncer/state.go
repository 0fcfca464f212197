package syncer

import "fmt"

type State int

const (
	Idle State = iota
	Refreshing
	Saving
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Refreshing:
		return "refreshing"
	case Saving:
		return "saving"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type EventKind int

const (
	EventState EventKind = iota
	EventRefreshed
	EventSaved
	EventChanged
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventState:
		return "state"
	case EventRefreshed:
		return "refreshed"
	case EventSaved:
		return "saved"
	case EventChanged:
		return "changed"
	case EventError:
		return "error"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is published to subscribers whenever the engine's observable state
// changes. State is set for EventState, Err for EventError.
type Event struct {
	Kind  EventKind
	State State
	Err   error
}

const subscriberBuffer = 16

// Subscribe returns a channel of engine events and a function that stops the
// subscription and closes the channel. Events are dropped for a subscriber
// whose buffer is full.
func (e *Engine) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	e.subsMu.Lock()
	e.subs[ch] = struct{}{}
	e.subsMu.Unlock()

	return ch, func() {
		e.subsMu.Lock()
		defer e.subsMu.Unlock()
		if _, ok := e.subs[ch]; ok {
			delete(e.subs, ch)
			close(ch)
		}
	}
}

func (e *Engine) publish(ev Event) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
