package errors

import (
	"context"
	"errors"
	"fmt"
)

// Common error types for the rewine client
var (
	// Authentication errors
	ErrUnauthorized   = errors.New("unauthorized")
	ErrSessionExpired = errors.New("session expired")
	ErrNoRefreshToken = errors.New("no refresh token available")
	ErrNoSession      = errors.New("no active session")
	ErrForbidden      = errors.New("forbidden")

	// Transport errors
	ErrNetwork = errors.New("network error")
	ErrTimeout = errors.New("request timed out")

	// Server errors
	ErrServer = errors.New("server error")

	// Request errors
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrUnknown    = errors.New("unknown error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// IsAuth reports whether err is an authentication failure (401 class or an expired session).
func IsAuth(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrSessionExpired)
}

// IsSessionExpired reports whether err means the session cannot be recovered client side.
func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrNoRefreshToken)
}

// IsNetwork reports whether no response was received.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrTimeout)
}

// IsServer reports whether the server answered with a 5xx.
func IsServer(err error) bool {
	return errors.Is(err, ErrServer)
}

// IsCanceled reports whether err comes from a cancelled or timed out context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// IsTransient reports whether err may go away on its own and must not end a session.
func IsTransient(err error) bool {
	return IsNetwork(err) || IsServer(err) || IsCanceled(err)
}

// IsValidation reports whether err is a validation failure, local or from the API.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
