// Package http exposes the gateway to USSD aggregators over a JSON API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aretw0/ussdflow/internal/logging"
	"github.com/aretw0/ussdflow/pkg/domain"
)

const maxRequestBytes = 8 << 10

// Gateway is the part of ussdflow.Gateway the API needs.
type Gateway interface {
	Handle(ctx context.Context, ev domain.Event) (domain.Response, error)
	Abort(ctx context.Context, sessionID string) error
}

// USSDRequest is the body of POST /api/ussd.
type USSDRequest struct {
	SessionID   string `json:"sessionId"`
	PhoneNumber string `json:"phoneNumber"`
	USSDCode    string `json:"ussdCode"`
	ServiceCode string `json:"serviceCode,omitempty"`
	Text        string `json:"text"`
}

// USSDResponse is the body returned for every handled event.
type USSDResponse struct {
	SessionID  string `json:"sessionId"`
	Message    string `json:"message"`
	Terminated bool   `json:"terminated"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// Server serves the USSD API.
type Server struct {
	gateway Gateway
	logger  *slog.Logger
	metrics http.Handler

	rateLimit  int
	rateWindow time.Duration
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithRateLimit limits each client IP to requests per window. Zero disables limiting.
func WithRateLimit(requests int, window time.Duration) Option {
	return func(s *Server) {
		s.rateLimit = requests
		s.rateWindow = window
	}
}

// NewHandler creates the HTTP handler for gw.
func NewHandler(gw Gateway, opts ...Option) http.Handler {
	s := &Server{
		gateway: gw,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api/ussd", func(r chi.Router) {
		if s.rateLimit > 0 {
			r.Use(rateLimit(s.rateLimit, s.rateWindow))
		}
		r.Post("/", s.handleEvent)
		r.Delete("/{sessionId}", s.abort)
	})

	return otelhttp.NewHandler(r, "ussdflow",
		otelhttp.WithFilter(shouldTrace),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "HTTP " + r.Method + " " + r.URL.Path
		}),
	)
}

func rateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate_limit_exceeded"})
		}),
	)
}

func shouldTrace(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/metrics":
		return false
	}
	return true
}

// handleEvent handles POST /api/ussd.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var body USSDRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&body); err != nil {
		s.logger.Warn("invalid request body", "err", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_body", Detail: err.Error()})
		return
	}
	if body.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_body", Detail: "sessionId is required"})
		return
	}

	text, err := SanitizeInput(body.Text)
	if err != nil {
		s.logger.Warn("input rejected", "session_id", body.SessionID, "size", len(body.Text), "err", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Detail: err.Error()})
		return
	}

	resp, err := s.gateway.Handle(r.Context(), domain.Event{
		SessionID:   body.SessionID,
		Text:        text,
		PhoneNumber: body.PhoneNumber,
		ServiceCode: body.ServiceCode,
		USSDCode:    body.USSDCode,
	})
	out := USSDResponse{SessionID: body.SessionID, Message: resp.Message, Terminated: resp.Terminated}
	switch {
	case errors.Is(err, domain.ErrUnknownService):
		writeJSON(w, http.StatusNotFound, out)
		return
	case err != nil:
		// The subscriber still gets the generic message; the network must close the dialogue.
		s.logger.Error("event failed", "session_id", body.SessionID, "err", err)
	}
	writeJSON(w, http.StatusOK, out)
}

// abort handles DELETE /api/ussd/{sessionId}.
func (s *Server) abort(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")
	err := s.gateway.Abort(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session_not_found"})
	case err != nil:
		s.logger.Error("abort failed", "session_id", id, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "abort_failed"})
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// health handles GET /healthz.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
