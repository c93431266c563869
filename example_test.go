package ussdflow_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/ussdflow"
	"github.com/aretw0/ussdflow/pkg/action"
	"github.com/aretw0/ussdflow/pkg/adapters/httpclient"
	"github.com/aretw0/ussdflow/pkg/adapters/memory"
	"github.com/aretw0/ussdflow/pkg/definition"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/session"
)

// ExampleGateway shows a complete dialogue against a definition written in YAML.
func ExampleGateway() {
	doc, err := definition.Parse([]byte(`
serviceCode: BALANCE
ussdCode: "*100#"
states:
  - id: MAIN
    type: MENU
    isInitial: true
    message: "1. Solde\n2. Quitter"
    transitions:
      - input: "1"
        nextState: ASK_PIN
      - input: "2"
        nextState: END
  - id: ASK_PIN
    type: INPUT
    message: Code PIN
    storeAs: pin
    validation:
      type: NUMERIC
      minLength: 4
      maxLength: 4
    transitions:
      - condition: pin == '1234'
        nextState: SHOW
      - nextState: END
        message: PIN incorrect
  - id: SHOW
    type: END
    message: Votre solde est de 5000 XOF
`), definition.FormatYAML)
	if err != nil {
		log.Fatal(err)
	}
	def, err := definition.Compile(doc)
	if err != nil {
		log.Fatal(err)
	}

	gw := ussdflow.New(session.NewManager(memory.NewStore()), action.NewExecutor(httpclient.New(0)))
	if err := gw.Load(def); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	for _, text := range []string{"*100#", "1", "12", "1234"} {
		resp, err := gw.Handle(ctx, domain.Event{SessionID: "demo", Text: text})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("> %s\n%s\n", text, resp.Message)
	}

	// Output:
	// > *100#
	// 1. Solde
	// 2. Quitter
	// > 1
	// Code PIN
	// > 12
	// Code PIN
	// > 1234
	// Votre solde est de 5000 XOF
}
