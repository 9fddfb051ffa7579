package main

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/jrsteele09/rewine-client/internal/errors"
	"github.com/pkg/errors"
)

// describe turns client errors into something a person can act on.
func describe(err error, what string) error {
	var fe apperrors.FieldErrors
	var apiErr *apperrors.APIError
	switch {
	case apperrors.As(err, &fe):
		return errors.Errorf("%s:\n%s", what, fieldLines(fe))
	case apperrors.As(err, &apiErr) && len(apiErr.Details) > 0:
		return errors.Errorf("%s: %s\n%s", what, apiErr.Message, fieldLines(apiErr.FieldErrors()))
	case apperrors.IsNetwork(err):
		return errors.Errorf("%s: the rewine API could not be reached", what)
	case apperrors.IsSessionExpired(err):
		return errors.Errorf("%s: your session has expired; run `rewine login` to continue", what)
	case apperrors.As(err, &apiErr):
		return errors.Errorf("%s: %s", what, apiErr.Message)
	}
	return errors.Wrap(err, what)
}

func fieldLines(fe apperrors.FieldErrors) string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, "  %s: %s\n", f, fe[f])
	}
	return strings.TrimRight(b.String(), "\n")
}
