// Package transport attaches the session's bearer token to outbound requests
// and recovers from 401 responses through one refresh-and-retry cycle.
//
// Only requests that carried a bearer token are recovered. A 401 on an
// anonymous request, on the login and register endpoints, or on a request
// marked with SkipRefresh reaches the caller unchanged. A caller whose context
// ends while it waits on a refresh gets the context error and the session is
// left alone.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/rewine-client/internal/errors"
	"github.com/jrsteele09/rewine-client/internal/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	HeaderRequestID = "X-Request-ID"

	DefaultRefreshPath = "/auth/refresh"
)

// DefaultExemptPaths answer 401 for bad credentials, not for a stale token.
var DefaultExemptPaths = []string{"/auth/login", "/auth/register"}

// SessionProvider is everything the transport needs from the session.
type SessionProvider interface {
	// Token returns the current access token, or an error when anonymous.
	Token() (*oauth2.Token, error)
	// Refresh obtains a new access token, possibly by joining a refresh in flight.
	Refresh(ctx context.Context) (string, error)
	// Expire ends the session after an unrecoverable authentication failure.
	Expire(ctx context.Context, cause error)
}

type skipRefreshKey struct{}

// SkipRefresh marks requests made with ctx so a 401 is returned as is.
func SkipRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipRefreshKey{}, true)
}

func refreshSkipped(ctx context.Context) bool {
	skip, _ := ctx.Value(skipRefreshKey{}).(bool)
	return skip
}

// Transport is an http.RoundTripper bound to one session.
type Transport struct {
	base        http.RoundTripper
	provider    SessionProvider
	refreshPath string
	exempt      []string
	metrics     *metrics.Metrics
}

var _ http.RoundTripper = (*Transport)(nil)

// Option configures a Transport.
type Option func(*Transport)

// WithBase sets the round tripper that sends requests. Nil keeps the default.
func WithBase(rt http.RoundTripper) Option {
	return func(t *Transport) {
		if rt != nil {
			t.base = rt
		}
	}
}

// WithRefreshPath sets the path suffix identifying the refresh exchange.
func WithRefreshPath(path string) Option {
	return func(t *Transport) {
		t.refreshPath = path
	}
}

// WithExemptPaths sets the path suffixes whose 401 is never recovered.
func WithExemptPaths(paths ...string) Option {
	return func(t *Transport) {
		t.exempt = paths
	}
}

// WithMetrics records retries and expiries on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Transport) {
		t.metrics = m
	}
}

// New returns a Transport over http.DefaultTransport.
func New(provider SessionProvider, opts ...Option) *Transport {
	t := &Transport{
		base:        http.DefaultTransport,
		provider:    provider,
		refreshPath: DefaultRefreshPath,
		exempt:      DefaultExemptPaths,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Client returns an http.Client using the transport.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

// RoundTrip sends req with the session's token and retries it once after a refresh.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	getBody, err := rewindableBody(req)
	if err != nil {
		return nil, err
	}

	out := req.Clone(ctx)
	if getBody != nil && req.GetBody == nil {
		if out.Body, err = getBody(); err != nil {
			return nil, err
		}
		out.GetBody = getBody
	}
	if out.Header.Get(HeaderRequestID) == "" {
		out.Header.Set(HeaderRequestID, uuid.New().String())
	}
	if out.Header.Get("Accept") == "" {
		out.Header.Set("Accept", "application/json")
	}

	var sent string
	if out.Header.Get("Authorization") == "" {
		if tok, err := t.provider.Token(); err == nil && tok.AccessToken != "" {
			tok.SetAuthHeader(out)
			sent = tok.AccessToken
		}
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	path := req.URL.Path
	logger := log.With().Str("path", path).Str("request_id", out.Header.Get(HeaderRequestID)).Logger()

	// The refresh exchange itself was rejected: nothing left to try.
	if t.isRefresh(path) {
		logger.Warn().Msg("refresh token rejected")
		t.metrics.RecordExpiry("refresh_rejected")
		t.provider.Expire(ctx, apperrors.ErrSessionExpired)
		return resp, nil
	}
	if sent == "" || t.isExempt(path) || refreshSkipped(ctx) {
		return resp, nil
	}

	// Another request may already have refreshed while this one was in flight.
	token, kind := t.currentToken(), "stale"
	if token == "" || token == sent {
		kind = "refreshed"
		token, err = t.provider.Refresh(ctx)
		if err != nil {
			drain(resp)
			if ctx.Err() != nil {
				logger.Debug().Err(err).Msg("request abandoned while waiting on token refresh")
				return nil, ctx.Err()
			}
			if apperrors.IsTransient(err) {
				logger.Warn().Err(err).Msg("token refresh failed transiently; session kept")
				return nil, err
			}
			logger.Warn().Err(err).Msg("token refresh failed; expiring session")
			t.metrics.RecordExpiry("refresh_failed")
			t.provider.Expire(ctx, err)
			return nil, fmt.Errorf("%w: %w", apperrors.ErrSessionExpired, err)
		}
	}
	drain(resp)

	retry := req.Clone(ctx)
	retry.Header = out.Header.Clone()
	if getBody != nil {
		if retry.Body, err = getBody(); err != nil {
			return nil, err
		}
		retry.GetBody = getBody
	}
	retry.Header.Set("Authorization", "Bearer "+token)
	t.metrics.RecordRetry(kind)
	logger.Debug().Str("kind", kind).Msg("retrying request with new token")

	// One retry only: whatever comes back goes to the caller.
	return t.base.RoundTrip(retry)
}

func (t *Transport) currentToken() string {
	tok, err := t.provider.Token()
	if err != nil {
		return ""
	}
	return tok.AccessToken
}

func (t *Transport) isRefresh(path string) bool {
	return t.refreshPath != "" && strings.HasSuffix(path, t.refreshPath)
}

func (t *Transport) isExempt(path string) bool {
	for _, p := range t.exempt {
		if strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}

// rewindableBody returns a way to get a fresh copy of the body, buffering it when
// the request cannot produce one itself.
func rewindableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		return req.GetBody, nil
	}
	b, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, apperrors.Wrapf(err, "error buffering request body")
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
