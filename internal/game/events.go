package game

import (
	"time"
)

// EventType identifies a game domain event.
type EventType string

const (
	EventTypeTurnStarted      EventType = "turn_started"
	EventTypeTurnTimerStopped EventType = "turn_timer_stopped"
	EventTypeStateChanged     EventType = "state_changed"
	EventTypePlayerTimedOut   EventType = "player_timed_out"
	EventTypePlayerDropped    EventType = "player_dropped"
	EventTypeGameEnded        EventType = "game_ended"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// Event is anything the engine announces to the outside. The transport layer
// subscribes and fans events out to clients.
type Event interface {
	EventType() EventType
	Timestamp() time.Time
}

// TurnStartedEvent is published when a seat's turn begins and its deadline is
// armed, so clients can render synchronized countdowns.
type TurnStartedEvent struct {
	GameID    string
	PlayerID  string
	Deadline  time.Time
	Limit     time.Duration
	timestamp time.Time
}

func (e TurnStartedEvent) EventType() EventType { return EventTypeTurnStarted }
func (e TurnStartedEvent) Timestamp() time.Time { return e.timestamp }

// TurnTimerStoppedEvent is the cancellation counterpart of TurnStartedEvent.
type TurnTimerStoppedEvent struct {
	GameID    string
	PlayerID  string
	timestamp time.Time
}

func (e TurnTimerStoppedEvent) EventType() EventType { return EventTypeTurnTimerStopped }
func (e TurnTimerStoppedEvent) Timestamp() time.Time { return e.timestamp }

// StateChangedEvent is published after every mutating action, timeout or
// drop. Carries the public view only.
type StateChangedEvent struct {
	GameID    string
	State     PublicState
	timestamp time.Time
}

func (e StateChangedEvent) EventType() EventType { return EventTypeStateChanged }
func (e StateChangedEvent) Timestamp() time.Time { return e.timestamp }

// PlayerTimedOutEvent is informational: a human turn-holder let the clock run
// out and still has chances left (or was just auto-dropped).
type PlayerTimedOutEvent struct {
	GameID           string
	PlayerID         string
	TimeoutCount     int
	RemainingChances int
	timestamp        time.Time
}

func (e PlayerTimedOutEvent) EventType() EventType { return EventTypePlayerTimedOut }
func (e PlayerTimedOutEvent) Timestamp() time.Time { return e.timestamp }

// PlayerDroppedEvent is published when a seat leaves the hand early.
type PlayerDroppedEvent struct {
	GameID    string
	PlayerID  string
	Kind      DropKind
	Auto      bool // system-initiated by the timeout policy
	timestamp time.Time
}

func (e PlayerDroppedEvent) EventType() EventType { return EventTypePlayerDropped }
func (e PlayerDroppedEvent) Timestamp() time.Time { return e.timestamp }

// GameEndedEvent carries the completed-game summary.
type GameEndedEvent struct {
	GameID    string
	Summary   Summary
	timestamp time.Time
}

func (e GameEndedEvent) EventType() EventType { return EventTypeGameEnded }
func (e GameEndedEvent) Timestamp() time.Time { return e.timestamp }

// EventSubscriber receives engine events.
type EventSubscriber interface {
	OnEvent(event Event)
}

// EventBus manages event publishing and subscription.
type EventBus interface {
	Subscribe(subscriber EventSubscriber)
	Unsubscribe(subscriber EventSubscriber)
	Publish(event Event)
}

// SimpleEventBus is a basic in-memory event bus.
type SimpleEventBus struct {
	subscribers []EventSubscriber
}

// NewEventBus creates a new event bus.
func NewEventBus() EventBus {
	return &SimpleEventBus{subscribers: make([]EventSubscriber, 0)}
}

// Subscribe adds a subscriber to receive events.
func (bus *SimpleEventBus) Subscribe(subscriber EventSubscriber) {
	bus.subscribers = append(bus.subscribers, subscriber)
}

// Unsubscribe removes a subscriber.
func (bus *SimpleEventBus) Unsubscribe(subscriber EventSubscriber) {
	for i, sub := range bus.subscribers {
		if sub == subscriber {
			bus.subscribers = append(bus.subscribers[:i], bus.subscribers[i+1:]...)
			break
		}
	}
}

// Publish sends an event to all subscribers.
func (bus *SimpleEventBus) Publish(event Event) {
	for _, subscriber := range bus.subscribers {
		subscriber.OnEvent(event)
	}
}
