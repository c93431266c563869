// Package httpclient implements ports.APIClient over net/http.
package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aretw0/ussdflow/internal/logging"
	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/ports"
)

const (
	// DefaultConnectTimeout bounds dialing and the TLS handshake.
	DefaultConnectTimeout = 10 * time.Second
	// DefaultMaxBodyBytes caps how much of a response body is read.
	DefaultMaxBodyBytes = 1 << 20

	defaultIdleConnTimeout = 90 * time.Second
	defaultMaxIdleConns    = 64
)

// Client classifies HTTP exchanges into domain.APIResponse values.
// Request deadlines come from the caller's context.
type Client struct {
	http    *http.Client
	maxBody int64
	logger  *slog.Logger
}

var _ ports.APIClient = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying client. Its transport is used as is.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithMaxBodyBytes caps the response body size.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Client with an instrumented transport.
// connectTimeout bounds dialing and the TLS handshake; zero means DefaultConnectTimeout.
func New(connectTimeout time.Duration, opts ...Option) *Client {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConns,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   connectTimeout,
		ExpectContinueTimeout: time.Second,
	}
	c := &Client{
		http:    &http.Client{Transport: otelhttp.NewTransport(transport)},
		maxBody: DefaultMaxBodyBytes,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Invoke performs req. It never returns an error: failures are classified
// into the response status.
func (c *Client) Invoke(ctx context.Context, req domain.APIRequest) domain.APIResponse {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return domain.APIResponse{Status: domain.APIUnknownError, ErrorMessage: err.Error()}
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		status := classifyError(ctx, err)
		c.logger.Debug("api call failed", "method", method, "url", req.URL, "status", status, "err", err)
		return domain.APIResponse{Status: status, ErrorMessage: err.Error()}
	}
	defer resp.Body.Close()

	// One byte past the cap tells a full body from a truncated one.
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	truncated := int64(len(data)) > c.maxBody
	if truncated {
		data = data[:c.maxBody]
	}
	out := domain.APIResponse{
		Status:     classifyStatus(resp.StatusCode),
		StatusCode: resp.StatusCode,
		Body:       string(data),
		Headers:    flatten(resp.Header),
	}
	if err != nil {
		out.Status = classifyError(ctx, err)
		out.ErrorMessage = fmt.Sprintf("read body: %v", err)
		return out
	}
	if out.Status != domain.APISuccess {
		out.ErrorMessage = resp.Status
		return out
	}
	if truncated {
		c.logger.Warn("api response body exceeds limit", "method", method, "url", req.URL, "limit", c.maxBody)
		out.Status = domain.APIUnknownError
		out.ErrorMessage = fmt.Sprintf("response body exceeds %d bytes", c.maxBody)
	}
	return out
}

func classifyStatus(code int) domain.APIStatus {
	switch {
	case code >= 200 && code < 300:
		return domain.APISuccess
	case code >= 400 && code < 500:
		return domain.APIClientError
	case code >= 500 && code < 600:
		return domain.APIServerError
	default:
		return domain.APIUnknownError
	}
}

func classifyError(ctx context.Context, err error) domain.APIStatus {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.APITimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.APITimeout
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return domain.APINetworkError
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && !errors.Is(err, context.Canceled) {
		return domain.APINetworkError
	}
	return domain.APIUnknownError
}

func flatten(h http.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}
