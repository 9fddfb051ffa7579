package main

import (
	"errors"
	"testing"

	apperrors "github.com/jrsteele09/rewine-client/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	err := describe(apperrors.FieldErrors{"password": "password is required", "email": "email is required"}, "registration failed")
	require.Equal(t, "registration failed:\n  email: email is required\n  password: password is required", err.Error())

	err = describe(&apperrors.APIError{
		Status:  400,
		Code:    apperrors.CodeValidation,
		Message: "Validation failed",
		Details: map[string][]string{"email": {"email is already registered"}},
	}, "registration failed")
	require.Equal(t, "registration failed: Validation failed\n  email: email is already registered", err.Error())

	err = describe(apperrors.NewNetworkError("/auth/login", false), "login failed")
	require.Equal(t, "login failed: the rewine API could not be reached", err.Error())

	err = describe(errors.New("boom"), "login failed")
	require.Equal(t, "login failed: boom", err.Error())
}

func TestValidateOutputFormat(t *testing.T) {
	require.NoError(t, validateOutputFormat("YAML"))
	require.Error(t, validateOutputFormat("xml"))
}
