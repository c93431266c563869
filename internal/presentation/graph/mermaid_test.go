package graph_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/ussdflow/internal/presentation/graph"
	"github.com/aretw0/ussdflow/pkg/domain"
)

func testDefinition() *domain.Definition {
	return domain.NewDefinition(domain.Definition{ServiceCode: "PAY"}, []domain.State{
		&domain.MenuState{StateBase: domain.StateBase{
			ID: "MAIN", Initial: true,
			Transitions: []domain.Transition{
				{Input: "1", NextState: "ask-amount"},
				{Input: "0", NextState: domain.EndStateID},
			},
		}},
		&domain.InputState{StateBase: domain.StateBase{
			ID:          "ask-amount",
			Transitions: []domain.Transition{{Input: "*", RawCondition: `amount > "100"`, NextState: "DO.PAY"}},
		}},
		&domain.ProcessingState{
			StateBase: domain.StateBase{
				ID:          "DO.PAY",
				Transitions: []domain.Transition{{RawCondition: "success", NextState: "DONE"}},
			},
			Action: domain.Action{Method: "POST", Endpoint: "/payments"},
		},
		&domain.EndState{StateBase: domain.StateBase{ID: "DONE"}},
	})
}

func TestGenerateMermaid(t *testing.T) {
	got := graph.GenerateMermaid(testDefinition(), nil)

	for _, want := range []string{
		"graph TD\n",
		`MAIN(("MAIN"))`,
		`ask_amount[/"ask-amount"/]`,
		`DO_PAY[["DO.PAY <br/> POST /payments"]]`,
		`DONE(["DONE"])`,
		`MAIN -- "1" --> ask_amount`,
		`MAIN -- "0" --> __end__`,
		`__end__(("END"))`,
		`ask_amount -- "amount > '100'" --> DO_PAY`,
		`DO_PAY -- "success" --> DONE`,
	} {
		assert.Contains(t, got, want)
	}
	assert.NotContains(t, got, "classDef")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	got := graph.GenerateMermaid(testDefinition(), &graph.GraphOverlay{
		VisitedStates: []string{"MAIN", "MAIN", "ghost"},
		CurrentState:  "ask-amount",
	})

	assert.Equal(t, 1, strings.Count(got, "class MAIN visited;"))
	assert.NotContains(t, got, "ghost")
	assert.Contains(t, got, "class ask_amount current;")
}
