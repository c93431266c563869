package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/ussdflow/pkg/domain"
)

// MockGateway records the events it receives.
type MockGateway struct {
	events   []domain.Event
	aborted  []string
	handleFn func(domain.Event) (domain.Response, error)
	abortErr error
}

func (m *MockGateway) Handle(_ context.Context, ev domain.Event) (domain.Response, error) {
	m.events = append(m.events, ev)
	if m.handleFn != nil {
		return m.handleFn(ev)
	}
	return domain.Response{SessionID: ev.SessionID, Message: "1. Payer"}, nil
}

func (m *MockGateway) Abort(_ context.Context, id string) error {
	m.aborted = append(m.aborted, id)
	return m.abortErr
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/ussd", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandleEvent(t *testing.T) {
	gw := &MockGateway{}
	h := NewHandler(gw)

	w := post(t, h, `{"sessionId":"s1","phoneNumber":"+22501","ussdCode":"*123#","text":" 1\u0007 "}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp USSDResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, USSDResponse{SessionID: "s1", Message: "1. Payer"}, resp)

	require.Len(t, gw.events, 1)
	assert.Equal(t, domain.Event{SessionID: "s1", Text: "1", PhoneNumber: "+22501", USSDCode: "*123#"}, gw.events[0])
}

func TestHandleEvent_BadRequests(t *testing.T) {
	gw := &MockGateway{}
	h := NewHandler(gw)

	tests := []struct {
		name string
		body string
	}{
		{"Malformed JSON", `{"sessionId":`},
		{"Missing session", `{"text":"1"}`},
		{"Oversized text", `{"sessionId":"s1","text":"` + strings.Repeat("9", DefaultMaxInputSize+1) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, h, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Empty(t, gw.events)
}

func TestHandleEvent_Errors(t *testing.T) {
	t.Run("Unknown service", func(t *testing.T) {
		gw := &MockGateway{handleFn: func(ev domain.Event) (domain.Response, error) {
			return domain.Response{SessionID: ev.SessionID, Message: "Erreur", Terminated: true}, domain.ErrUnknownService
		}}
		w := post(t, NewHandler(gw), `{"sessionId":"s1","ussdCode":"*9#"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Internal failure still answers", func(t *testing.T) {
		gw := &MockGateway{handleFn: func(ev domain.Event) (domain.Response, error) {
			return domain.Response{SessionID: ev.SessionID, Message: "Erreur", Terminated: true}, errors.New("redis down")
		}}
		w := post(t, NewHandler(gw), `{"sessionId":"s1","text":"1"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var resp USSDResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.True(t, resp.Terminated)
		assert.Equal(t, "Erreur", resp.Message)
	})
}

func TestAbort(t *testing.T) {
	gw := &MockGateway{}
	h := NewHandler(gw)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/ussd/s1", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"s1"}, gw.aborted)

	gw.abortErr = domain.ErrSessionNotFound
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/ussd/s2", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ussdflow_events_total 1\n"))
	})
	h := NewHandler(&MockGateway{}, WithMetricsHandler(metrics))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ussdflow_events_total")
}

func TestRateLimit(t *testing.T) {
	h := NewHandler(&MockGateway{}, WithRateLimit(2, time.Minute))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, post(t, h, `{"sessionId":"s1","text":"1"}`).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
