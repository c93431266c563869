package domain

import "time"

// EndStateID is the reserved transition target that terminates the dialogue
// without naming a concrete END state.
const EndStateID = "END"

// AuthenticationType selects how the executor authenticates against the backend API.
type AuthenticationType string

const (
	AuthNone   AuthenticationType = "NONE"
	AuthBearer AuthenticationType = "BEARER"
	AuthAPIKey AuthenticationType = "API_KEY"
	AuthBasic  AuthenticationType = "BASIC"
)

// Authentication describes the credentials attached to every action request.
type Authentication struct {
	Type       AuthenticationType `json:"type"`
	Token      string             `json:"token,omitempty"`
	HeaderName string             `json:"headerName,omitempty"`
	APIKey     string             `json:"apiKey,omitempty"`
	Username   string             `json:"username,omitempty"`
	Password   string             `json:"password,omitempty"`
}

// APIConfig holds the defaults shared by every action of a definition.
type APIConfig struct {
	BaseURL        string         `json:"baseUrl"`
	TimeoutMs      int            `json:"timeout"`
	RetryAttempts  int            `json:"retryAttempts"`
	Authentication Authentication `json:"authentication"`
}

// Timeout returns the per-call timeout as a duration.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// SessionConfig bounds the lifetime of sessions started against a definition.
type SessionConfig struct {
	TimeoutSeconds       int `json:"timeoutSeconds"`
	MaxInactivitySeconds int `json:"maxInactivitySeconds"`
}

// MaxLifetime is the hard age limit of a session.
func (c SessionConfig) MaxLifetime() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// IdleTimeout is the inactivity limit of a session.
func (c SessionConfig) IdleTimeout() time.Duration {
	return time.Duration(c.MaxInactivitySeconds) * time.Second
}

// Definition is a validated automaton for one USSD service.
// It is immutable once built and is shared by pointer across all sessions.
type Definition struct {
	ServiceCode string
	ServiceName string
	// USSDCode is the dial string (e.g. "*123#") routed to this service, if any.
	USSDCode    string
	Version     string
	Description string

	API     APIConfig
	Session SessionConfig

	states  map[string]State
	order   []string
	initial string
}

// NewDefinition assembles a Definition from already-validated parts.
// States keep their declaration order. Use package definition to build one
// from a document with full invariant checking.
func NewDefinition(meta Definition, states []State) *Definition {
	def := meta
	def.states = make(map[string]State, len(states))
	def.order = make([]string, 0, len(states))
	for _, s := range states {
		id := s.Base().ID
		def.states[id] = s
		def.order = append(def.order, id)
		if s.Base().Initial && def.initial == "" {
			def.initial = id
		}
	}
	return &def
}

// State returns the state with the given id.
func (d *Definition) State(id string) (State, bool) {
	s, ok := d.states[id]
	return s, ok
}

// InitialState returns the designated entry state.
func (d *Definition) InitialState() State {
	return d.states[d.initial]
}

// States returns the states in declaration order.
func (d *Definition) States() []State {
	out := make([]State, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.states[id])
	}
	return out
}
