package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/ussdflow"
	"github.com/aretw0/ussdflow/internal/testutils"
	"github.com/aretw0/ussdflow/pkg/action"
	"github.com/aretw0/ussdflow/pkg/adapters/httpclient"
	"github.com/aretw0/ussdflow/pkg/adapters/memory"
	"github.com/aretw0/ussdflow/pkg/session"
)

const greetingYAML = `
serviceCode: HELLO
ussdCode: "*100#"
states:
  - id: ASK_NAME
    type: input
    isInitial: true
    message: Votre nom ?
    storeAs: name
    validation:
      type: TEXT
      minLength: 2
    transitions:
      - nextState: BYE
  - id: BYE
    type: end
    message: Au revoir {name}
`

func newConsoleGateway(t *testing.T) (*ussdflow.Gateway, *memory.Store) {
	t.Helper()
	def := testutils.CompileYAML(t, greetingYAML)
	store := memory.NewStore()
	gw := ussdflow.New(session.NewManager(store), action.NewExecutor(httpclient.New(0)))
	require.NoError(t, gw.Load(def))
	return gw, store
}

func TestRunConsole_CompletesDialogue(t *testing.T) {
	gw, store := newConsoleGateway(t)
	var out bytes.Buffer

	err := RunConsole(context.Background(), gw, strings.NewReader("x\nAda\n"), &out, ConsoleOptions{
		ServiceCode: "HELLO",
		Dial:        "*100#",
	})
	require.NoError(t, err)

	lines := out.String()
	assert.Equal(t, 2, strings.Count(lines, "Votre nom ?"), "invalid input repeats the prompt")
	assert.Contains(t, lines, "Au revoir Ada\n[session ended]")
	assert.Zero(t, store.Len())
}

func TestRunConsole_EOFAbortsSession(t *testing.T) {
	gw, store := newConsoleGateway(t)
	var out bytes.Buffer

	err := RunConsole(context.Background(), gw, strings.NewReader(""), &out, ConsoleOptions{
		ServiceCode: "HELLO",
		SessionID:   "fixed",
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Votre nom ?")
	assert.Zero(t, store.Len(), "hanging up removes the session")
}

func TestRunConsole_Quit(t *testing.T) {
	gw, store := newConsoleGateway(t)
	var out bytes.Buffer

	err := RunConsole(context.Background(), gw, strings.NewReader("/quit\nAda\n"), &out, ConsoleOptions{ServiceCode: "HELLO"})
	require.NoError(t, err)
	assert.NotContains(t, out.String(), "Au revoir")
	assert.Zero(t, store.Len())
}
