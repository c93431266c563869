package domain

import (
	"github.com/aretw0/ussdflow/pkg/condition"
)

// WildcardInput matches any input.
const WildcardInput = "*"

// Transition maps an (input, condition) pair to the next state.
type Transition struct {
	// Input is matched literally against the raw text. "" and "*" match anything.
	Input string
	// Condition is the compiled guard; nil means always true.
	Condition condition.Expr
	// RawCondition keeps the source text of Condition for diagnostics.
	RawCondition string
	// NextState is a state id or EndStateID.
	NextState string
	// Message, when set, replaces the prompt produced after taking this transition.
	Message string
}

// MatchesAnyInput reports whether the input side of t is a wildcard.
func (t Transition) MatchesAnyInput() bool {
	return t.Input == "" || t.Input == WildcardInput
}

// IsCatchAll reports whether t matches unconditionally.
func (t Transition) IsCatchAll() bool {
	return t.MatchesAnyInput() && t.Condition == nil
}

// Matches reports whether t accepts input under scope. Input and condition
// must both hold.
func (t Transition) Matches(input string, scope condition.Scope) bool {
	if !t.MatchesAnyInput() && t.Input != input {
		return false
	}
	return condition.Eval(t.Condition, scope)
}
