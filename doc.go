/*
Package ussdflow runs USSD services described by declarative automaton definitions.

A definition lists states (MENU, INPUT, PROCESSING, END), the transitions
between them, the validation rule of every INPUT and the API call of every
PROCESSING state. The Gateway interprets loaded definitions against a stream
of {sessionId, text} events coming from the USSD network and answers each
event with the next message to show the subscriber.

# Architecture

The engine is hexagonal. Definitions are immutable and shared; sessions live
behind ports.SessionStore (in memory or Redis); API calls go through
ports.APIClient. Events of one session are applied in arrival order under a
per-session lock, events of different sessions run in parallel.

# Usage

	store := memory.NewStore()
	sessions := session.NewManager(store)
	executor := action.NewExecutor(httpclient.New(0))

	gw := ussdflow.New(sessions, executor)
	if _, err := gw.LoadFile("services/payment.yaml"); err != nil {
		log.Fatal(err)
	}

	// Idle sessions are evicted in the background.
	go session.NewSweeper(sessions).Run(ctx)

	resp, err := gw.Handle(ctx, domain.Event{SessionID: "abc", Text: "*123#"})
	if err != nil {
		log.Printf("event failed: %v", err)
	}
	fmt.Println(resp.Message)
*/
package ussdflow
