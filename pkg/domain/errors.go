package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionTerminated is returned when an event targets a session that already ended.
var ErrSessionTerminated = errors.New("session terminated")

// ErrNoMatchingTransition is returned when no transition of a state accepts the input.
var ErrNoMatchingTransition = errors.New("no matching transition")

// ErrUnknownService is returned when an event names a service with no loaded definition.
var ErrUnknownService = errors.New("unknown service")

// ErrSessionBusy is returned by non-blocking lock attempts when another event holds the session.
var ErrSessionBusy = errors.New("session busy")

// UnresolvedVariableError reports a {placeholder} with no value in the session.
type UnresolvedVariableError struct {
	Name string
}

func (e *UnresolvedVariableError) Error() string {
	return fmt.Sprintf("unresolved variable %q", e.Name)
}

// ActionError reports an action that failed after exhausting its retries.
type ActionError struct {
	Status   APIStatus
	Code     int
	Attempts int
	Message  string
}

func (e *ActionError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("action failed after %d attempt(s): %s (http %d): %s", e.Attempts, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("action failed after %d attempt(s): %s: %s", e.Attempts, e.Status, e.Message)
}

// DefinitionError aggregates every problem found while building a definition.
type DefinitionError struct {
	Source   string
	Problems []string
}

func (e *DefinitionError) Error() string {
	var sb strings.Builder
	if e.Source != "" {
		sb.WriteString(e.Source)
		sb.WriteString(": ")
	}
	fmt.Fprintf(&sb, "invalid definition (%d problem(s))", len(e.Problems))
	for _, p := range e.Problems {
		sb.WriteString("\n  - ")
		sb.WriteString(p)
	}
	return sb.String()
}

// Add records a problem.
func (e *DefinitionError) Add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// OrNil returns e when it holds problems and nil otherwise.
func (e *DefinitionError) OrNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}
