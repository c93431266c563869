package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/observability"
)

func scrape(t *testing.T, m *observability.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetrics_Hooks(t *testing.T) {
	m := observability.NewMetrics(nil)
	hooks := m.Hooks()
	ctx := context.Background()
	base := domain.EventBase{ServiceCode: "PAY", SessionID: "s1"}

	hooks.OnStateEnter(ctx, &domain.StateEvent{EventBase: base, StateID: "MAIN"})
	hooks.OnStateEnter(ctx, &domain.StateEvent{EventBase: base, StateID: "MAIN"})
	hooks.OnActionReturn(ctx, &domain.ActionEvent{EventBase: base, StateID: "DO_PAYMENT", Status: domain.APITimeout, Duration: time.Second})
	hooks.OnSessionEnd(ctx, &domain.SessionEndEvent{EventBase: base, Reason: domain.EndFailed})
	hooks.OnEvent(ctx, &domain.HandledEvent{EventBase: base, Outcome: "failed", Duration: 20 * time.Millisecond})
	m.OnEvict(ctx, &domain.Session{ID: "old"})

	body := scrape(t, m)
	assert.Contains(t, body, `ussdflow_state_visits_total{service="PAY",state="MAIN"} 2`)
	assert.Contains(t, body, `ussdflow_action_calls_total{service="PAY",state="DO_PAYMENT",status="TIMEOUT"} 1`)
	assert.Contains(t, body, `ussdflow_action_duration_seconds_count{service="PAY",state="DO_PAYMENT"} 1`)
	assert.Contains(t, body, `ussdflow_sessions_ended_total{reason="failed",service="PAY"} 1`)
	assert.Contains(t, body, `ussdflow_events_total{outcome="failed",service="PAY"} 1`)
	assert.Contains(t, body, `ussdflow_sessions_evicted_total 1`)
}

func TestChain(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{OnStateEnter: func(context.Context, *domain.StateEvent) { calls = append(calls, "a") }}
	b := domain.LifecycleHooks{
		OnStateEnter: func(context.Context, *domain.StateEvent) { calls = append(calls, "b") },
		OnSessionEnd: func(context.Context, *domain.SessionEndEvent) { calls = append(calls, "end") },
	}

	h := observability.Chain(a, domain.LifecycleHooks{}, b)
	h.OnStateEnter(context.Background(), &domain.StateEvent{})
	h.OnSessionEnd(context.Background(), &domain.SessionEndEvent{})

	assert.Equal(t, []string{"a", "b", "end"}, calls)
	assert.Nil(t, h.OnActionCall)
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	h := observability.LogHooks(logger)
	ctx := context.Background()
	base := domain.EventBase{ServiceCode: "PAY", SessionID: "s1"}

	h.OnStateEnter(ctx, &domain.StateEvent{EventBase: base, StateID: "MAIN"})
	assert.Empty(t, buf.String(), "state entries are debug")

	h.OnActionReturn(ctx, &domain.ActionEvent{EventBase: base, StateID: "DO_PAYMENT", Status: domain.APIServerError})
	h.OnSessionEnd(ctx, &domain.SessionEndEvent{EventBase: base, Reason: domain.EndCompleted})

	out := buf.String()
	assert.Contains(t, out, `"msg":"action_return"`)
	assert.Contains(t, out, `"status":"SERVER_ERROR"`)
	assert.Contains(t, out, `"reason":"completed"`)
}
