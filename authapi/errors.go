package authapi

import (
	"context"
	"encoding/json"
	"net"
	"time"

	apperrors "github.com/jrsteele09/rewine-client/internal/errors"
)

// NormalizeResponse turns a failed response into an APIError. The backend code
// wins over the status derived one; a missing message gets the default for the code.
func NormalizeResponse(status int, body []byte, path string) *apperrors.APIError {
	var data errorResponse
	_ = json.Unmarshal(body, &data) // non JSON bodies fall back to status defaults

	apiErr := &apperrors.APIError{
		Status:    status,
		Code:      data.Code,
		Message:   data.Message,
		Details:   data.Details,
		Path:      data.Path,
		TraceID:   data.TraceID,
		Timestamp: time.Now().UTC(),
	}
	if apiErr.Code == "" {
		apiErr.Code = apperrors.CodeFromStatus(status)
	}
	if apiErr.Message == "" {
		apiErr.Message = data.Error
	}
	if apiErr.Message == "" {
		apiErr.Message = apperrors.DefaultMessage(apiErr.Code, status)
	}
	if apiErr.Details == nil {
		apiErr.Details = data.Errors
	}
	if apiErr.Path == "" {
		apiErr.Path = path
	}
	if ts, err := time.Parse(time.RFC3339, data.Timestamp); err == nil {
		apiErr.Timestamp = ts
	}
	return apiErr
}

// classifyTransportError handles the no response case. Errors the transport
// already classified pass through untouched.
func classifyTransportError(err error, path string) error {
	if apperrors.IsSessionExpired(err) {
		return err
	}
	var apiErr *apperrors.APIError
	if apperrors.As(err, &apiErr) {
		return apiErr
	}
	if apperrors.Is(err, context.Canceled) {
		return err
	}
	timeout := apperrors.Is(err, context.DeadlineExceeded)
	var netErr net.Error
	if apperrors.As(err, &netErr) && netErr.Timeout() {
		timeout = true
	}
	return apperrors.NewNetworkError(path, timeout)
}
