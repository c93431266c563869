package definition

import (
	"fmt"

	"github.com/aretw0/ussdflow/pkg/action"
	"github.com/aretw0/ussdflow/pkg/condition"
	"github.com/aretw0/ussdflow/pkg/domain"
)

// Lint reports problems that do not prevent a definition from running:
// states unreachable from the initial state, conditional wildcards placed
// ahead of transitions they can shadow, and placeholders or condition
// variables that no state ever writes.
func Lint(def *domain.Definition) []string {
	var warnings []string

	// Crawl from the initial state.
	visited := make(map[string]bool)
	queue := []string{def.InitialState().Base().ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		st, ok := def.State(id)
		if !ok {
			continue
		}
		for _, t := range st.Base().Transitions {
			if t.NextState != domain.EndStateID && !visited[t.NextState] {
				queue = append(queue, t.NextState)
			}
		}
	}
	for _, st := range def.States() {
		if !visited[st.Base().ID] {
			warnings = append(warnings, fmt.Sprintf("state %q is unreachable", st.Base().ID))
		}
	}

	for _, st := range def.States() {
		b := st.Base()
		for i, t := range b.Transitions {
			if !t.MatchesAnyInput() || t.Condition == nil {
				continue
			}
			for j := i + 1; j < len(b.Transitions); j++ {
				if later := b.Transitions[j]; !later.MatchesAnyInput() {
					warnings = append(warnings, fmt.Sprintf(
						"state %q transition %d: wildcard with condition %q can shadow input %q at transition %d",
						b.ID, i, t.RawCondition, later.Input, j))
				}
			}
		}
	}

	written := map[string]bool{
		"success": true, "failure": true, "input": true, "error": true, "phoneNumber": true,
	}
	for _, st := range def.States() {
		switch s := st.(type) {
		case *domain.InputState:
			written[s.StoreAs] = true
		case *domain.ProcessingState:
			for _, name := range s.Action.OnSuccess.ResponseMapping {
				written[name] = true
			}
		}
	}

	report := func(stateID, where, name string) {
		if !written[name] {
			warnings = append(warnings, fmt.Sprintf("state %q: %s references %q which no state sets", stateID, where, name))
		}
	}
	for _, st := range def.States() {
		b := st.Base()
		for _, name := range action.Placeholders(b.Message) {
			report(b.ID, "message", name)
		}
		for _, t := range b.Transitions {
			for _, name := range condition.Vars(t.Condition) {
				report(b.ID, "condition", name)
			}
		}
		if p, ok := st.(*domain.ProcessingState); ok {
			for _, name := range action.Placeholders(p.Action.Endpoint) {
				report(b.ID, "endpoint", name)
			}
		}
	}
	return warnings
}
