package domain

import (
	"context"
	"time"
)

// EventType defines the category of a lifecycle event.
type EventType string

const (
	EventStateEnter   EventType = "state_enter"
	EventActionCall   EventType = "action_call"
	EventActionReturn EventType = "action_return"
	EventSessionEnd   EventType = "session_end"
	EventHandled      EventType = "event_handled"
)

// EndReason explains why a session was removed.
type EndReason string

const (
	EndCompleted EndReason = "completed"
	EndFailed    EndReason = "failed"
	EndAborted   EndReason = "aborted"
	EndExpired   EndReason = "expired"
)

// EventBase contains common fields for all lifecycle events.
type EventBase struct {
	Timestamp   time.Time `json:"timestamp"`
	Type        EventType `json:"type"`
	ServiceCode string    `json:"service_code"`
	SessionID   string    `json:"session_id"`
}

// StateEvent is emitted on entry into a state.
type StateEvent struct {
	EventBase
	StateID   string    `json:"state_id"`
	StateType StateType `json:"state_type"`
}

// ActionEvent is emitted around an action call.
type ActionEvent struct {
	EventBase
	StateID  string        `json:"state_id"`
	Method   string        `json:"method"`
	Endpoint string        `json:"endpoint"`
	Status   APIStatus     `json:"status,omitempty"`
	Attempts int           `json:"attempts,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// SessionEndEvent is emitted when a session is deleted.
type SessionEndEvent struct {
	EventBase
	StateID string    `json:"state_id,omitempty"`
	Reason  EndReason `json:"reason"`
}

// HandledEvent is emitted once per inbound event with its outcome label.
type HandledEvent struct {
	EventBase
	Outcome  string        `json:"outcome"`
	Duration time.Duration `json:"duration"`
}

// LifecycleHooks defines callbacks for engine observability. Nil hooks are skipped.
type LifecycleHooks struct {
	OnEvent        func(context.Context, *HandledEvent)
	OnStateEnter   func(context.Context, *StateEvent)
	OnActionCall   func(context.Context, *ActionEvent)
	OnActionReturn func(context.Context, *ActionEvent)
	OnSessionEnd   func(context.Context, *SessionEndEvent)
}
