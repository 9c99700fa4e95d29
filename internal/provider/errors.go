package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorDetails captures what is known about the last failed delivery
// attempt. ResponseBody is truncated to the client's body limit.
type ErrorDetails struct {
	Status       int    `json:"status,omitempty"`
	Message      string `json:"message,omitempty"`
	ResponseBody string `json:"responseBody,omitempty"`
}

// RequestError is raised after delivery to the provider fails. StatusCode is
// zero when the failure was purely transport-level (no HTTP response).
type RequestError struct {
	Message    string
	StatusCode int
	Details    ErrorDetails
}

func (e *RequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("provider request failed: %s", e.Message)
	}
	return fmt.Sprintf("provider request failed with status %d: %s", e.StatusCode, e.Message)
}

// HTTPStatus maps the failure to the status the activity surfaces to
// Journey Builder: a provider 4xx passes through, everything else is a 502.
func (e *RequestError) HTTPStatus() int {
	if e.StatusCode >= http.StatusBadRequest && e.StatusCode < http.StatusInternalServerError {
		return e.StatusCode
	}
	return http.StatusBadGateway
}

// AsRequestError unwraps err into a *RequestError when possible.
func AsRequestError(err error) (*RequestError, bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr, true
	}
	return nil, false
}

// retryable reports whether a failed attempt may be retried: transport
// failures (no status) and provider 5xx responses are retryable, any 4xx is
// terminal.
func retryable(statusCode int) bool {
	return statusCode == 0 || statusCode >= http.StatusInternalServerError
}
