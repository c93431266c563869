package domain

import "time"

// ActionType is the kind of side effect bound to a PROCESSING state.
type ActionType string

// ActionAPICall is the only modelled action type.
const ActionAPICall ActionType = "API_CALL"

// Action is an API call declared by a PROCESSING state.
type Action struct {
	Type   ActionType
	Method string
	// Endpoint is relative to APIConfig.BaseURL and may contain {variable} placeholders.
	Endpoint string
	Headers  map[string]string
	// Body is a JSON template; string leaves may contain {variable} placeholders.
	Body any
	// TimeoutMs overrides APIConfig.TimeoutMs when positive.
	TimeoutMs int
	// RetryAttempts overrides APIConfig.RetryAttempts when non-nil.
	RetryAttempts *int
	OnSuccess     ActionResult
	OnError       ActionResult
}

// ActionResult describes how an action outcome is reflected into the dialogue.
type ActionResult struct {
	// ResponseMapping maps a dotted path in the JSON response to a session variable.
	ResponseMapping map[string]string
	// Message is the user-facing text, used by OnError.
	Message string
}

// ActionOutcome is the normalized result of executing an action.
// The executor produces it; the interpreter applies it to the session.
type ActionOutcome struct {
	Success bool
	// Status is the classification of the last API call, or TIMEOUT/UNKNOWN_ERROR
	// when no call completed.
	Status    APIStatus
	Variables map[string]string
	// Message is the OnError message on failure.
	Message  string
	Attempts int
	Duration time.Duration
	// Err carries the internal cause on failure; it is logged, never shown.
	Err error
}
