// Package refresh keeps at most one refresh token exchange in flight.
package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/rewine-client/authapi"
	apperrors "github.com/jrsteele09/rewine-client/internal/errors"
	"github.com/jrsteele09/rewine-client/internal/metrics"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const DefaultTimeout = 15 * time.Second

// Exchanger performs the refresh token exchange against the API.
type Exchanger interface {
	Refresh(ctx context.Context, refreshToken string) (*authapi.RefreshResponse, error)
}

// TokenStore is the part of the session store the coordinator reads and updates.
type TokenStore interface {
	RefreshToken() string
	SetAccessToken(accessToken string, expiresIn int64) error
	RotateRefreshToken(refreshToken string) error
	Token() (*oauth2.Token, error)
}

type outcome struct {
	token string
	err   error
}

// Coordinator single-flights refreshes. The refreshing flag and the waiter
// queue change together under lock, so the queue is empty whenever no refresh
// is running. Each waiter channel has room for exactly one outcome.
type Coordinator struct {
	store     TokenStore
	exchanger Exchanger
	timeout   time.Duration
	metrics   *metrics.Metrics

	lock       sync.Mutex
	refreshing bool
	waiters    []chan outcome
}

var _ oauth2.TokenSource = (*Coordinator)(nil)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout bounds each exchange. Non-positive values keep DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMetrics records refresh outcomes and waiters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// NewCoordinator returns an idle Coordinator.
func NewCoordinator(store TokenStore, exchanger Exchanger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     store,
		exchanger: exchanger,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh returns a fresh access token, joining the exchange already in flight
// if there is one. Cancelling ctx abandons the wait but never the exchange:
// it runs on its own bounded context so the other waiters still get an answer.
// An abandoned wait returns the context error, which callers must not read as
// a rejected refresh token.
func (c *Coordinator) Refresh(ctx context.Context) (string, error) {
	w := make(chan outcome, 1)

	c.lock.Lock()
	if c.refreshing {
		c.waiters = append(c.waiters, w)
		c.lock.Unlock()
		c.metrics.RecordWaiter()
		log.Debug().Msg("joining in-flight token refresh")
	} else {
		refreshToken := c.store.RefreshToken()
		if refreshToken == "" {
			c.lock.Unlock()
			c.metrics.RecordRefresh(metrics.ResultNoToken, 0)
			return "", apperrors.ErrNoRefreshToken
		}
		c.refreshing = true
		c.waiters = append(c.waiters, w)
		c.lock.Unlock()

		exchangeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		go func() {
			defer cancel()
			c.run(exchangeCtx, refreshToken)
		}()
	}

	select {
	case o := <-w:
		return o.token, o.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Coordinator) run(ctx context.Context, refreshToken string) {
	start := time.Now()
	token, err := c.exchange(ctx, refreshToken)

	result := metrics.ResultOK
	switch {
	case err == nil:
	case apperrors.IsTransient(err):
		result = metrics.ResultTransient
	default:
		result = metrics.ResultFailed
	}
	c.metrics.RecordRefresh(result, time.Since(start))

	c.lock.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.refreshing = false
	c.lock.Unlock()

	if err != nil {
		log.Warn().Err(err).Int("waiters", len(waiters)).Msg("token refresh failed")
	} else {
		log.Debug().Int("waiters", len(waiters)).Msg("token refreshed")
	}
	for _, w := range waiters {
		w <- outcome{token: token, err: err}
	}
}

// exchange stores the new access token before any waiter sees it.
func (c *Coordinator) exchange(ctx context.Context, refreshToken string) (string, error) {
	resp, err := c.exchanger.Refresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	if err := c.store.SetAccessToken(resp.AccessToken, resp.ExpiresIn); err != nil {
		// The session was cleared while the exchange was in flight.
		return "", errors.Wrap(err, "[Coordinator.exchange] session cleared during refresh")
	}
	if resp.RefreshToken != "" {
		if err := c.store.RotateRefreshToken(resp.RefreshToken); err != nil {
			return "", errors.Wrap(err, "[Coordinator.exchange] error storing rotated refresh token")
		}
	}
	return resp.AccessToken, nil
}

// Token returns the stored token while it is valid and refreshes it otherwise.
func (c *Coordinator) Token() (*oauth2.Token, error) {
	tok, err := c.store.Token()
	if err != nil {
		return nil, err
	}
	if tok.Valid() {
		return tok, nil
	}
	if _, err := c.Refresh(context.Background()); err != nil {
		return nil, err
	}
	return c.store.Token()
}

// Refreshing reports whether an exchange is in flight.
func (c *Coordinator) Refreshing() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.refreshing
}

// Pending is the number of callers waiting on the in-flight exchange.
func (c *Coordinator) Pending() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.waiters)
}
