// Package action executes the API calls declared by PROCESSING states.
package action

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aretw0/ussdflow/internal/logging"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/ports"
)

const (
	DefaultBackoffBase = 200 * time.Millisecond
	DefaultBackoffMax  = 2 * time.Second
	// DefaultTimeout applies when neither the action nor the API config sets one.
	DefaultTimeout = 10 * time.Second
)

var tracer = otel.Tracer("github.com/aretw0/ussdflow/pkg/action")

// Executor resolves, sends and retries actions against a ports.APIClient.
// It is safe for concurrent use and never mutates the caller's variables.
type Executor struct {
	client      ports.APIClient
	logger      *slog.Logger
	backoffBase time.Duration
	backoffMax  time.Duration
}

var _ ports.ActionExecutor = (*Executor)(nil)

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithBackoff sets the exponential backoff between retries.
// The n-th retry waits base·2^(n-1), capped at limit. A zero base disables waiting.
func WithBackoff(base, limit time.Duration) Option {
	return func(e *Executor) {
		e.backoffBase = base
		e.backoffMax = limit
	}
}

// NewExecutor creates an Executor over client.
func NewExecutor(client ports.APIClient, opts ...Option) *Executor {
	e := &Executor{
		client:      client,
		logger:      logging.NewNop(),
		backoffBase: DefaultBackoffBase,
		backoffMax:  DefaultBackoffMax,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs act with at most 1+retryAttempts calls.
// A placeholder with no value in vars fails before any call is made.
func (e *Executor) Execute(ctx context.Context, act domain.Action, vars map[string]string, cfg domain.APIConfig) domain.ActionOutcome {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "ussdflow.action",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", act.Method),
			attribute.String("ussdflow.endpoint", act.Endpoint),
		),
	)
	defer span.End()

	fail := func(status domain.APIStatus, attempts int, err error) domain.ActionOutcome {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("ussdflow.status", string(status)))
		return domain.ActionOutcome{
			Status:   status,
			Message:  act.OnError.Message,
			Attempts: attempts,
			Duration: time.Since(start),
			Err:      err,
		}
	}

	req, err := e.buildRequest(act, vars, cfg)
	if err != nil {
		e.logger.Warn("action request could not be built", "endpoint", act.Endpoint, "err", err)
		return fail(domain.APIUnknownError, 0, err)
	}

	retries := cfg.RetryAttempts
	if act.RetryAttempts != nil {
		retries = *act.RetryAttempts
	}
	if retries < 0 {
		retries = 0
	}

	var last domain.APIResponse
	attempts := 0
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			if err := e.wait(ctx, attempt); err != nil {
				return fail(domain.APITimeout, attempts, &domain.ActionError{
					Status: domain.APITimeout, Attempts: attempts, Message: err.Error(),
				})
			}
		}
		if ctx.Err() != nil {
			return fail(domain.APITimeout, attempts, &domain.ActionError{
				Status: domain.APITimeout, Attempts: attempts, Message: ctx.Err().Error(),
			})
		}

		attempts++
		last = e.invoke(ctx, req)
		span.AddEvent("attempt", trace.WithAttributes(
			attribute.Int("ussdflow.attempt", attempts),
			attribute.String("ussdflow.status", string(last.Status)),
			attribute.Int("http.response.status_code", last.StatusCode),
		))

		if last.Status == domain.APISuccess {
			break
		}
		e.logger.Debug("action attempt failed",
			"url", req.URL,
			"attempt", attempts,
			"status", last.Status,
			"code", last.StatusCode,
			"err", last.ErrorMessage)
		if !last.Status.Retryable() {
			break
		}
	}

	if last.Status != domain.APISuccess {
		return fail(last.Status, attempts, &domain.ActionError{
			Status:   last.Status,
			Code:     last.StatusCode,
			Attempts: attempts,
			Message:  last.ErrorMessage,
		})
	}

	mapped, skipped, err := MapResponse(last.Body, act.OnSuccess.ResponseMapping)
	if err != nil {
		e.logger.Warn("response mapping skipped", "url", req.URL, "err", err)
	}
	if len(skipped) > 0 {
		e.logger.Debug("response paths not found", "url", req.URL, "paths", skipped)
	}

	span.SetAttributes(attribute.String("ussdflow.status", string(domain.APISuccess)))
	return domain.ActionOutcome{
		Success:   true,
		Status:    domain.APISuccess,
		Variables: mapped,
		Attempts:  attempts,
		Duration:  time.Since(start),
	}
}

// invoke calls the client under the per-call timeout. A deadline hit by the
// caller's context is reported as TIMEOUT whatever the client returned.
func (e *Executor) invoke(ctx context.Context, req domain.APIRequest) domain.APIResponse {
	callCtx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	resp := e.client.Invoke(callCtx, req)
	if resp.Status == "" {
		resp.Status = domain.APIUnknownError
	}
	if resp.Status != domain.APISuccess && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		resp.Status = domain.APITimeout
		if resp.ErrorMessage == "" {
			resp.ErrorMessage = "request timed out"
		}
	}
	return resp
}

func (e *Executor) wait(ctx context.Context, attempt int) error {
	d := Backoff(e.backoffBase, e.backoffMax, attempt)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Backoff returns base·2^(attempt-1) capped at limit.
func Backoff(base, limit time.Duration, attempt int) time.Duration {
	if base <= 0 || attempt <= 0 {
		return 0
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if limit > 0 && d >= limit {
			return limit
		}
	}
	if limit > 0 && d > limit {
		return limit
	}
	return d
}

func (e *Executor) buildRequest(act domain.Action, vars map[string]string, cfg domain.APIConfig) (domain.APIRequest, error) {
	endpoint, err := Interpolate(act.Endpoint, vars, escapePath)
	if err != nil {
		return domain.APIRequest{}, err
	}

	headers := make(map[string]string, len(act.Headers)+2)
	for k, v := range act.Headers {
		hv, err := Interpolate(v, vars, nil)
		if err != nil {
			return domain.APIRequest{}, err
		}
		headers[k] = hv
	}
	applyAuth(headers, cfg.Authentication)

	var body []byte
	if act.Body != nil {
		resolved, err := resolveBody(act.Body, vars)
		if err != nil {
			return domain.APIRequest{}, err
		}
		body, err = json.Marshal(resolved)
		if err != nil {
			return domain.APIRequest{}, fmt.Errorf("encode body: %w", err)
		}
		if !hasHeader(headers, "Content-Type") {
			headers["Content-Type"] = "application/json"
		}
	}

	method := strings.ToUpper(act.Method)
	if method == "" {
		method = http.MethodGet
	}

	timeout := DefaultTimeout
	switch {
	case act.TimeoutMs > 0:
		timeout = time.Duration(act.TimeoutMs) * time.Millisecond
	case cfg.TimeoutMs > 0:
		timeout = cfg.Timeout()
	}

	return domain.APIRequest{
		Method:  method,
		URL:     joinURL(cfg.BaseURL, endpoint),
		Headers: headers,
		Body:    body,
		Timeout: timeout,
	}, nil
}

// applyAuth adds authentication headers according to the API config.
func applyAuth(headers map[string]string, auth domain.Authentication) {
	switch auth.Type {
	case domain.AuthBearer:
		if auth.Token != "" {
			headers["Authorization"] = "Bearer " + auth.Token
		}
	case domain.AuthAPIKey:
		name := auth.HeaderName
		if name == "" {
			name = "X-API-Key"
		}
		if auth.APIKey != "" {
			headers[name] = auth.APIKey
		}
	case domain.AuthBasic:
		cred := base64.StdEncoding.EncodeToString([]byte(auth.Username + ":" + auth.Password))
		headers["Authorization"] = "Basic " + cred
	}
}

func hasHeader(h map[string]string, name string) bool {
	for k := range h {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

func joinURL(base, endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") || base == "" {
		return endpoint
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(endpoint, "/")
}
