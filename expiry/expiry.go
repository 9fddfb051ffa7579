// Package expiry ends a session after an unrecoverable authentication failure.
package expiry

import (
	"context"
	"net/url"
	"strings"

	"github.com/jrsteele09/rewine-client/internal/metrics"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMessage     = "Your session has expired. Please log in again."
	DefaultLoginPath   = "/login"
	DefaultReturnParam = "returnUrl"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier shows a message to the user (a toast, a banner, a line on stderr).
type Notifier interface {
	Notify(level Level, message string)
}

type NotifierFunc func(level Level, message string)

func (f NotifierFunc) Notify(level Level, message string) {
	f(level, message)
}

// Navigator is the application's router as seen from here.
type Navigator interface {
	Current() string
	Redirect(path string)
}

// SessionClearer reports whether clearing actually removed a session.
type SessionClearer interface {
	Clear() bool
}

type silentKey struct{}

// Silent marks ctx so expiry clears the session without notifying or redirecting.
func Silent(ctx context.Context) context.Context {
	return context.WithValue(ctx, silentKey{}, true)
}

func isSilent(ctx context.Context) bool {
	s, _ := ctx.Value(silentKey{}).(bool)
	return s
}

type Handler struct {
	store       SessionClearer
	notifier    Notifier
	navigator   Navigator
	loginPath   string
	returnParam string
	message     string
	metrics     *metrics.Metrics
}

type Option func(*Handler)

func WithNotifier(n Notifier) Option {
	return func(h *Handler) { h.notifier = n }
}

func WithNavigator(n Navigator) Option {
	return func(h *Handler) { h.navigator = n }
}

func WithLoginPath(path, returnParam string) Option {
	return func(h *Handler) {
		if path != "" {
			h.loginPath = path
		}
		if returnParam != "" {
			h.returnParam = returnParam
		}
	}
}

func WithMessage(msg string) Option {
	return func(h *Handler) { h.message = msg }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

func New(store SessionClearer, opts ...Option) *Handler {
	h := &Handler{
		store:       store,
		loginPath:   DefaultLoginPath,
		returnParam: DefaultReturnParam,
		message:     DefaultMessage,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Expire clears the session. Only the call that actually cleared something
// notifies and redirects, so a burst of failing requests yields one event.
func (h *Handler) Expire(ctx context.Context, cause error) {
	if !h.store.Clear() {
		log.Debug().Err(cause).Msg("session already cleared")
		return
	}
	h.metrics.RecordExpiry("cleared")

	if isSilent(ctx) {
		log.Info().Err(cause).Msg("session expired during startup; continuing anonymously")
		return
	}
	log.Warn().Err(cause).Msg("session expired")

	if h.notifier != nil {
		h.notifier.Notify(LevelWarning, h.message)
	}
	if h.navigator == nil {
		return
	}
	current := h.navigator.Current()
	if OnPath(current, h.loginPath) {
		return
	}
	h.navigator.Redirect(LoginRedirect(h.loginPath, h.returnParam, current))
}

// LoginRedirect builds loginPath?returnParam=<current>, leaving the return
// parameter off when there is nowhere meaningful to return to.
func LoginRedirect(loginPath, returnParam, current string) string {
	if current == "" || OnPath(current, loginPath) {
		return loginPath
	}
	return loginPath + "?" + url.Values{returnParam: {current}}.Encode()
}

// OnPath reports whether location (which may carry a query) is path.
func OnPath(location, path string) bool {
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		location = location[:i]
	}
	return location == path
}
