package errors

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Error codes shared with the rewine backend.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeInternal           = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeNetwork            = "NETWORK_ERROR"
	CodeTimeout            = "TIMEOUT"
	CodeUnknown            = "UNKNOWN"
)

// APIError is the normalized form of every failed API call.
// Status is 0 when no response was received.
type APIError struct {
	Status    int                 `json:"status"`
	Code      string              `json:"code"`
	Message   string              `json:"message"`
	Details   map[string][]string `json:"details,omitempty"`
	Path      string              `json:"path,omitempty"`
	TraceID   string              `json:"traceId,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// Unwrap maps the error onto the package sentinels so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case CodeNetwork:
		return ErrNetwork
	case CodeTimeout:
		return ErrTimeout
	case CodeTokenExpired, CodeTokenInvalid:
		return ErrUnauthorized
	}
	switch {
	case e.Status == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return ErrForbidden
	case e.Status == http.StatusBadRequest, e.Status == http.StatusUnprocessableEntity:
		return ErrValidation
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusConflict:
		return ErrConflict
	case e.Status >= 500:
		return ErrServer
	}
	return ErrUnknown
}

// FieldErrors returns the first message reported for each field.
func (e *APIError) FieldErrors() FieldErrors {
	fields := FieldErrors{}
	for field, messages := range e.Details {
		if len(messages) > 0 {
			fields[field] = messages[0]
		}
	}
	return fields
}

// CodeFromStatus maps an HTTP status to the backend error code vocabulary.
func CodeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusUnprocessableEntity:
		return CodeInvalidInput
	case http.StatusInternalServerError:
		return CodeInternal
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return CodeServiceUnavailable
	}
	return CodeUnknown
}

// DefaultMessage is the user facing message for a code when the server sent none.
func DefaultMessage(code string, status int) string {
	switch code {
	case CodeUnauthorized, CodeTokenExpired, CodeTokenInvalid:
		return "Your session has expired. Please log in again."
	case CodeForbidden:
		return "You do not have permission to perform this action."
	case CodeNotFound:
		return "The requested resource was not found."
	case CodeValidation, CodeInvalidInput:
		return "Please check your input and try again."
	case CodeConflict:
		return "This resource already exists."
	case CodeServiceUnavailable:
		return "Service is temporarily unavailable. Please try again later."
	case CodeNetwork:
		return "Network error. Please check your connection."
	case CodeTimeout:
		return "Request timed out. Please try again."
	}
	return fmt.Sprintf("An error occurred (%d). Please try again.", status)
}

// NewNetworkError builds the APIError for a request that never got a response.
func NewNetworkError(path string, timeout bool) *APIError {
	code := CodeNetwork
	if timeout {
		code = CodeTimeout
	}
	return &APIError{
		Code:      code,
		Message:   DefaultMessage(code, 0),
		Path:      path,
		Timestamp: time.Now().UTC(),
	}
}

// FieldErrors holds one message per invalid input field.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+f[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (f FieldErrors) Unwrap() error {
	return ErrValidation
}

// OrNil returns nil when there are no field errors.
func (f FieldErrors) OrNil() error {
	if len(f) == 0 {
		return nil
	}
	return f
}
