package domain

// StateType names the behaviour of a state.
type StateType string

const (
	StateInput      StateType = "INPUT"
	StateMenu       StateType = "MENU"
	StateProcessing StateType = "PROCESSING"
	StateEnd        StateType = "END"
)

// StateBase holds the fields shared by every state variant.
type StateBase struct {
	ID      string
	Name    string
	Message string
	Initial bool
	// Transitions are evaluated in declaration order; first match wins.
	Transitions []Transition
}

// State is a sum type over the four state behaviours.
// The set of implementations is closed: *InputState, *MenuState,
// *ProcessingState and *EndState.
type State interface {
	Kind() StateType
	Base() *StateBase
	sealed()
}

// InputState collects free text, validates it and stores it under StoreAs.
type InputState struct {
	StateBase
	StoreAs    string
	Validation ValidationRule
}

// MenuState offers numbered choices matched literally against the input.
type MenuState struct {
	StateBase
}

// ProcessingState runs an action on entry and routes on its outcome.
type ProcessingState struct {
	StateBase
	Action Action
}

// EndState terminates the dialogue with its message.
type EndState struct {
	StateBase
}

func (s *InputState) Kind() StateType      { return StateInput }
func (s *MenuState) Kind() StateType       { return StateMenu }
func (s *ProcessingState) Kind() StateType { return StateProcessing }
func (s *EndState) Kind() StateType        { return StateEnd }

func (s *InputState) Base() *StateBase      { return &s.StateBase }
func (s *MenuState) Base() *StateBase       { return &s.StateBase }
func (s *ProcessingState) Base() *StateBase { return &s.StateBase }
func (s *EndState) Base() *StateBase        { return &s.StateBase }

func (*InputState) sealed()      {}
func (*MenuState) sealed()       {}
func (*ProcessingState) sealed() {}
func (*EndState) sealed()        {}

// AwaitsInput reports whether the dialogue pauses at s waiting for the subscriber.
func AwaitsInput(s State) bool {
	k := s.Kind()
	return k == StateInput || k == StateMenu
}
