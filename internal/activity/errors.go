package activity

import (
	"net/http"
	"strings"
)

// ValidationError reports one or more field-level problems with an inbound
// activity request. It always maps to HTTP 400.
type ValidationError struct {
	Message string
	Details []string
}

// NewValidationError constructs a ValidationError with the supplied details.
func NewValidationError(message string, details ...string) *ValidationError {
	return &ValidationError{Message: message, Details: details}
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Details, "; ")
}

// StatusCode returns the HTTP status validation failures map to.
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }
