package action_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/ussdflow/pkg/action"
	"github.com/aretw0/ussdflow/pkg/domain"
)

// fakeClient replays scripted responses and records every request.
type fakeClient struct {
	mu        sync.Mutex
	responses []domain.APIResponse
	requests  []domain.APIRequest
	block     bool
}

func (f *fakeClient) Invoke(ctx context.Context, req domain.APIRequest) domain.APIResponse {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	n := len(f.requests)
	block := f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return domain.APIResponse{Status: domain.APITimeout, ErrorMessage: ctx.Err().Error()}
	}
	if n-1 < len(f.responses) {
		return f.responses[n-1]
	}
	return f.responses[len(f.responses)-1]
}

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newExecutor(c *fakeClient) *action.Executor {
	return action.NewExecutor(c, action.WithBackoff(0, 0))
}

var cfg = domain.APIConfig{BaseURL: "https://api.example.com/v1/", TimeoutMs: 1000, RetryAttempts: 2}

func TestExecute_SuccessMapsResponse(t *testing.T) {
	client := &fakeClient{responses: []domain.APIResponse{{
		Status:     domain.APISuccess,
		StatusCode: 200,
		Body:       `{"data":{"balance":1500,"currency":"XOF"},"items":[{"name":"first"}],"ok":true,"gone":null}`,
	}}}
	act := domain.Action{
		Type:     domain.ActionAPICall,
		Method:   "get",
		Endpoint: "/accounts/{account}/balance",
		OnSuccess: domain.ActionResult{ResponseMapping: map[string]string{
			"data.balance":  "balance",
			"data.currency": "currency",
			"items.0.name":  "firstItem",
			"ok":            "ok",
			"gone":          "gone",
			"data.missing":  "missing",
		}},
	}

	out := newExecutor(client).Execute(context.Background(), act, map[string]string{"account": "A 1"}, cfg)

	require.True(t, out.Success)
	assert.Equal(t, domain.APISuccess, out.Status)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, map[string]string{
		"balance":   "1500",
		"currency":  "XOF",
		"firstItem": "first",
		"ok":        "true",
	}, out.Variables)

	require.Equal(t, 1, client.calls())
	req := client.requests[0]
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "https://api.example.com/v1/accounts/A%201/balance", req.URL)
	assert.Equal(t, time.Second, req.Timeout)
	assert.Nil(t, req.Body)
}

func TestExecute_BodyAndHeadersAreTemplated(t *testing.T) {
	client := &fakeClient{responses: []domain.APIResponse{{Status: domain.APISuccess, StatusCode: 201, Body: `{}`}}}
	act := domain.Action{
		Method:   "POST",
		Endpoint: "/payments",
		Headers:  map[string]string{"X-Msisdn": "{phone}"},
		Body: map[string]any{
			"amount": "{amount}",
			"meta":   map[string]any{"channel": "ussd", "tags": []any{"{phone}", 3}},
		},
		TimeoutMs: 250,
	}
	authCfg := cfg
	authCfg.Authentication = domain.Authentication{Type: domain.AuthBearer, Token: "tok"}

	out := newExecutor(client).Execute(context.Background(), act, map[string]string{"amount": "500", "phone": "+225"}, authCfg)
	require.True(t, out.Success)

	req := client.requests[0]
	assert.Equal(t, "+225", req.Headers["X-Msisdn"])
	assert.Equal(t, "Bearer tok", req.Headers["Authorization"])
	assert.Equal(t, "application/json", req.Headers["Content-Type"])
	assert.Equal(t, 250*time.Millisecond, req.Timeout)

	var body map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.Equal(t, "500", body["amount"])
	assert.Equal(t, []any{"+225", float64(3)}, body["meta"].(map[string]any)["tags"])
}

func TestExecute_UnresolvedVariableMakesNoCall(t *testing.T) {
	client := &fakeClient{responses: []domain.APIResponse{{Status: domain.APISuccess}}}
	act := domain.Action{
		Method:   "POST",
		Endpoint: "/pay",
		Body:     map[string]any{"amount": "{amount}"},
		OnError:  domain.ActionResult{Message: "Erreur"},
	}

	out := newExecutor(client).Execute(context.Background(), act, map[string]string{}, cfg)

	assert.False(t, out.Success)
	assert.Equal(t, 0, client.calls())
	assert.Equal(t, 0, out.Attempts)
	assert.Equal(t, "Erreur", out.Message)
	var unresolved *domain.UnresolvedVariableError
	require.ErrorAs(t, out.Err, &unresolved)
	assert.Equal(t, "amount", unresolved.Name)
}

func TestExecute_RetriesAreBounded(t *testing.T) {
	client := &fakeClient{responses: []domain.APIResponse{{Status: domain.APITimeout, ErrorMessage: "timeout"}}}
	act := domain.Action{Method: "POST", Endpoint: "/pay", OnError: domain.ActionResult{Message: "Erreur lors de l'opération"}}

	out := newExecutor(client).Execute(context.Background(), act, nil, cfg)

	assert.False(t, out.Success)
	assert.Equal(t, 3, client.calls(), "1 call + 2 retries")
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, domain.APITimeout, out.Status)
	assert.Equal(t, "Erreur lors de l'opération", out.Message)
	assert.Empty(t, out.Variables)

	var actionErr *domain.ActionError
	require.ErrorAs(t, out.Err, &actionErr)
	assert.Equal(t, domain.APITimeout, actionErr.Status)
}

func TestExecute_ClientErrorIsTerminal(t *testing.T) {
	client := &fakeClient{responses: []domain.APIResponse{{Status: domain.APIClientError, StatusCode: 400}}}

	out := newExecutor(client).Execute(context.Background(), domain.Action{Method: "GET", Endpoint: "/x"}, nil, cfg)

	assert.False(t, out.Success)
	assert.Equal(t, 1, client.calls())
	assert.Equal(t, domain.APIClientError, out.Status)
}

func TestExecute_RecoversAfterServerError(t *testing.T) {
	client := &fakeClient{responses: []domain.APIResponse{
		{Status: domain.APIServerError, StatusCode: 503},
		{Status: domain.APINetworkError},
		{Status: domain.APISuccess, StatusCode: 200, Body: `{"ref":"T-1"}`},
	}}
	act := domain.Action{Method: "GET", Endpoint: "/x", OnSuccess: domain.ActionResult{
		ResponseMapping: map[string]string{"ref": "txRef"},
	}}

	out := newExecutor(client).Execute(context.Background(), act, nil, cfg)

	require.True(t, out.Success)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, "T-1", out.Variables["txRef"])
}

func TestExecute_ActionRetryOverride(t *testing.T) {
	client := &fakeClient{responses: []domain.APIResponse{{Status: domain.APIServerError, StatusCode: 500}}}
	zero := 0

	out := newExecutor(client).Execute(context.Background(), domain.Action{Method: "GET", Endpoint: "/x", RetryAttempts: &zero}, nil, cfg)

	assert.False(t, out.Success)
	assert.Equal(t, 1, client.calls())
}

func TestExecute_PerCallTimeoutIsEnforced(t *testing.T) {
	client := &fakeClient{block: true}
	act := domain.Action{Method: "GET", Endpoint: "/slow", TimeoutMs: 20}
	one := 1
	act.RetryAttempts = &one

	out := newExecutor(client).Execute(context.Background(), act, nil, cfg)

	assert.False(t, out.Success)
	assert.Equal(t, domain.APITimeout, out.Status)
	assert.Equal(t, 2, client.calls())
}

func TestExecute_CancelledContextStopsRetrying(t *testing.T) {
	client := &fakeClient{responses: []domain.APIResponse{{Status: domain.APIServerError}}}
	exec := action.NewExecutor(client, action.WithBackoff(time.Hour, time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	out := exec.Execute(ctx, domain.Action{Method: "GET", Endpoint: "/x"}, nil, cfg)

	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, out.Success)
	assert.Equal(t, domain.APITimeout, out.Status)
	assert.Equal(t, 1, client.calls())
}

func TestExecute_DoesNotMutateVariables(t *testing.T) {
	client := &fakeClient{responses: []domain.APIResponse{{Status: domain.APISuccess, Body: `{"a":"b"}`}}}
	vars := map[string]string{"x": "1"}
	act := domain.Action{Method: "GET", Endpoint: "/{x}", OnSuccess: domain.ActionResult{
		ResponseMapping: map[string]string{"a": "x"},
	}}

	out := newExecutor(client).Execute(context.Background(), act, vars, cfg)

	require.True(t, out.Success)
	assert.Equal(t, "b", out.Variables["x"])
	assert.Equal(t, map[string]string{"x": "1"}, vars)
}

func TestExecute_Authentication(t *testing.T) {
	tests := []struct {
		name   string
		auth   domain.Authentication
		header string
		want   string
	}{
		{"API key default header", domain.Authentication{Type: domain.AuthAPIKey, APIKey: "k1"}, "X-API-Key", "k1"},
		{"API key custom header", domain.Authentication{Type: domain.AuthAPIKey, APIKey: "k2", HeaderName: "X-Partner"}, "X-Partner", "k2"},
		{"Basic", domain.Authentication{Type: domain.AuthBasic, Username: "u", Password: "p"}, "Authorization", "Basic dTpw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{responses: []domain.APIResponse{{Status: domain.APISuccess}}}
			c := cfg
			c.Authentication = tt.auth
			newExecutor(client).Execute(context.Background(), domain.Action{Method: "GET", Endpoint: "/x"}, nil, c)
			assert.Equal(t, tt.want, client.requests[0].Headers[tt.header])
		})
	}
}

func TestBackoff(t *testing.T) {
	base, limit := 100*time.Millisecond, 350*time.Millisecond
	assert.Equal(t, time.Duration(0), action.Backoff(base, limit, 0))
	assert.Equal(t, 100*time.Millisecond, action.Backoff(base, limit, 1))
	assert.Equal(t, 200*time.Millisecond, action.Backoff(base, limit, 2))
	assert.Equal(t, 350*time.Millisecond, action.Backoff(base, limit, 3))
	assert.Equal(t, 350*time.Millisecond, action.Backoff(base, limit, 10))
	assert.Equal(t, time.Duration(0), action.Backoff(0, limit, 3))
}

func TestInterpolate(t *testing.T) {
	got, err := action.Interpolate("Hello {name}, you sent {amount}", map[string]string{"name": "Ana", "amount": "5"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello Ana, you sent 5", got)

	_, err = action.Interpolate("{a}{b}", map[string]string{"a": "1"}, nil)
	var unresolved *domain.UnresolvedVariableError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "b", unresolved.Name)

	assert.Equal(t, []string{"a", "b", "a"}, action.Placeholders("{a} {b} {a} { c }"))
}
