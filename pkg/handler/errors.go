package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// ErrNilResponse indicates a handler returned nil instead of a Response.
var ErrNilResponse = errors.New("handler returned nil response")

// HTTPError pairs an HTTP status with a stable error code.
type HTTPError struct {
	Code int
	Key  string
}

func (e HTTPError) Error() string { return e.Key }

// ValidationError maps field names to problems with their values.
type ValidationError url.Values

// NewValidationError creates a ValidationError with one problem.
func NewValidationError(field, message string) ValidationError {
	return ValidationError{field: {message}}
}

func (e ValidationError) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	slices.Sort(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(e[field], ", ")))
	}
	return "validation error: " + strings.Join(parts, "; ")
}

// errorResponse hands err to the ErrorHandler instead of writing anything.
type errorResponse struct{ err error }

func (e errorResponse) Render(http.ResponseWriter, *http.Request) error { return e.err }

// Error returns a Response that routes err to the configured ErrorHandler.
func Error(err error) Response {
	return errorResponse{err: err}
}
