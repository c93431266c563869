// Package testutils holds fixtures shared by tests across packages.
package testutils

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/ussdflow/pkg/definition"
	"github.com/aretw0/ussdflow/pkg/domain"
)

// CompileYAML parses and compiles a YAML definition.
// It fails the test immediately on error.
func CompileYAML(t testing.TB, src string) *domain.Definition {
	t.Helper()

	doc, err := definition.Parse([]byte(src), definition.FormatYAML)
	require.NoError(t, err, "Failed to parse definition")

	def, err := definition.Compile(doc)
	require.NoError(t, err, "Failed to compile definition")

	return def
}

// ScriptedClient is a ports.APIClient that replays Responses in order.
// The last response repeats once the script is exhausted.
type ScriptedClient struct {
	Responses []domain.APIResponse
	// Block makes every call wait for its context and report a timeout.
	Block bool

	mu       sync.Mutex
	requests []domain.APIRequest
}

func (c *ScriptedClient) Invoke(ctx context.Context, req domain.APIRequest) domain.APIResponse {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	n := len(c.requests)
	c.mu.Unlock()

	if c.Block {
		<-ctx.Done()
		return domain.APIResponse{Status: domain.APITimeout, ErrorMessage: ctx.Err().Error()}
	}
	if len(c.Responses) == 0 {
		return domain.APIResponse{Status: domain.APIUnknownError, ErrorMessage: "no scripted response"}
	}
	if n-1 < len(c.Responses) {
		return c.Responses[n-1]
	}
	return c.Responses[len(c.Responses)-1]
}

// Calls reports how many requests were made.
func (c *ScriptedClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

// Requests returns a copy of the requests made so far.
func (c *ScriptedClient) Requests() []domain.APIRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.APIRequest(nil), c.requests...)
}
