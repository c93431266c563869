package domain

import "time"

// APIStatus classifies the outcome of an external API call.
type APIStatus string

const (
	APISuccess      APIStatus = "SUCCESS"
	APIClientError  APIStatus = "CLIENT_ERROR"
	APIServerError  APIStatus = "SERVER_ERROR"
	APITimeout      APIStatus = "TIMEOUT"
	APINetworkError APIStatus = "NETWORK_ERROR"
	APIUnknownError APIStatus = "UNKNOWN_ERROR"
)

// Retryable reports whether a call ending with s may be attempted again.
// CLIENT_ERROR is terminal.
func (s APIStatus) Retryable() bool {
	switch s {
	case APITimeout, APINetworkError, APIServerError, APIUnknownError:
		return true
	}
	return false
}

// APIRequest is what the executor hands to the external API client.
type APIRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
	Timeout time.Duration
}

// APIResponse is produced by the external API client.
type APIResponse struct {
	Status       APIStatus
	StatusCode   int
	Body         string
	Headers      map[string]string
	ErrorMessage string
}
