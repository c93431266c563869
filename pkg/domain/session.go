package domain

import (
	"maps"
	"time"
)

// SessionStatus is the lifecycle phase of a session.
type SessionStatus string

const (
	StatusAwaitingInput SessionStatus = "AWAITING_INPUT"
	StatusProcessing    SessionStatus = "PROCESSING"
	StatusTerminated    SessionStatus = "TERMINATED"
)

// Session is the mutable runtime record of one subscriber dialogue.
type Session struct {
	ID             string            `json:"id"`
	ServiceCode    string            `json:"service_code"`
	PhoneNumber    string            `json:"phone_number,omitempty"`
	CurrentStateID string            `json:"current_state_id"`
	Status         SessionStatus     `json:"status"`
	Variables      map[string]string `json:"variables"`
	CreatedAt      time.Time         `json:"created_at"`
	LastActivityAt time.Time         `json:"last_activity_at"`
	IdleTimeout    time.Duration     `json:"idle_timeout"`
	MaxLifetime    time.Duration     `json:"max_lifetime"`
}

// NewSession creates a session positioned at stateID with lifetimes taken from cfg.
func NewSession(id, serviceCode, phone, stateID string, cfg SessionConfig, now time.Time) *Session {
	return &Session{
		ID:             id,
		ServiceCode:    serviceCode,
		PhoneNumber:    phone,
		CurrentStateID: stateID,
		Status:         StatusAwaitingInput,
		Variables:      make(map[string]string),
		CreatedAt:      now,
		LastActivityAt: now,
		IdleTimeout:    cfg.IdleTimeout(),
		MaxLifetime:    cfg.MaxLifetime(),
	}
}

// Deadline is the instant after which the session is expired.
// A zero limit does not bound the session; the zero time means no deadline.
func (s *Session) Deadline() time.Time {
	var d time.Time
	if s.IdleTimeout > 0 {
		d = s.LastActivityAt.Add(s.IdleTimeout)
	}
	if s.MaxLifetime > 0 {
		hard := s.CreatedAt.Add(s.MaxLifetime)
		if d.IsZero() || hard.Before(d) {
			d = hard
		}
	}
	return d
}

// Expired reports whether now is strictly past the idle or hard deadline.
func (s *Session) Expired(now time.Time) bool {
	d := s.Deadline()
	return !d.IsZero() && now.After(d)
}

// Touch records activity at now.
func (s *Session) Touch(now time.Time) {
	s.LastActivityAt = now
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Variables = maps.Clone(s.Variables)
	if c.Variables == nil {
		c.Variables = make(map[string]string)
	}
	return &c
}
