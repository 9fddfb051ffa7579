// Package bootstrap restores a persisted session at startup and checks it with the server.
package bootstrap

import (
	"context"

	"github.com/jrsteele09/rewine-client/authapi"
	"github.com/jrsteele09/rewine-client/expiry"
	apperrors "github.com/jrsteele09/rewine-client/internal/errors"
	"github.com/jrsteele09/rewine-client/internal/metrics"
	"github.com/jrsteele09/rewine-client/transport"
	"github.com/jrsteele09/rewine-client/users"
	"github.com/rs/zerolog/log"
)

type Outcome string

const (
	// Anonymous: nothing usable was persisted.
	Anonymous Outcome = "anonymous"
	// Validated: the restored session was confirmed by the server.
	Validated Outcome = "validated"
	// Refreshed: the restored access token was rejected and a refresh recovered it.
	Refreshed Outcome = "refreshed"
	// Cleared: the restored session could not be recovered and was dropped.
	Cleared Outcome = "cleared"
	// Degraded: validation failed transiently and the restored session was kept as is.
	Degraded Outcome = "degraded"
)

type Result struct {
	Outcome Outcome
	User    *users.User // nil unless a session survived
	Err     error       // the failure behind Cleared or Degraded
}

type Store interface {
	Restore() bool
	User() *users.User
	UpdateUser(user *users.User) error
}

type UserFetcher interface {
	Me(ctx context.Context) (*authapi.MeResponse, error)
}

type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

type Expirer interface {
	Expire(ctx context.Context, cause error)
}

type Bootstrapper struct {
	store     Store
	api       UserFetcher
	refresher Refresher
	expirer   Expirer
	metrics   *metrics.Metrics
}

func New(store Store, api UserFetcher, refresher Refresher, expirer Expirer, m *metrics.Metrics) *Bootstrapper {
	return &Bootstrapper{
		store:     store,
		api:       api,
		refresher: refresher,
		expirer:   expirer,
		metrics:   m,
	}
}

// Run restores and validates the session, blocking until the outcome is known.
func (b *Bootstrapper) Run(ctx context.Context) Result {
	if !b.store.Restore() {
		return b.finish(Result{Outcome: Anonymous})
	}
	return b.finish(b.validate(ctx))
}

// Start restores the session synchronously, so the caller can render as signed
// in straight away, and validates it in the background. The channel receives
// exactly one Result.
func (b *Bootstrapper) Start(ctx context.Context) <-chan Result {
	done := make(chan Result, 1)
	if !b.store.Restore() {
		done <- b.finish(Result{Outcome: Anonymous})
		return done
	}
	go func() {
		done <- b.finish(b.validate(ctx))
	}()
	return done
}

func (b *Bootstrapper) validate(ctx context.Context) Result {
	// Recovery is driven from here, not by the transport, so expiry stays silent.
	ctx = expiry.Silent(ctx)

	err := b.fetchUser(ctx)
	if err == nil {
		return Result{Outcome: Validated, User: b.store.User()}
	}
	if !apperrors.IsAuth(err) {
		return Result{Outcome: Degraded, User: b.store.User(), Err: err}
	}

	log.Info().Err(err).Msg("restored access token rejected; refreshing")
	if _, err := b.refresher.Refresh(ctx); err != nil {
		if ctx.Err() != nil || apperrors.IsTransient(err) {
			return Result{Outcome: Degraded, User: b.store.User(), Err: err}
		}
		b.expirer.Expire(ctx, err)
		return Result{Outcome: Cleared, Err: err}
	}

	if err := b.fetchUser(ctx); err != nil {
		if ctx.Err() != nil || apperrors.IsTransient(err) {
			return Result{Outcome: Degraded, User: b.store.User(), Err: err}
		}
		b.expirer.Expire(ctx, err)
		return Result{Outcome: Cleared, Err: err}
	}
	return Result{Outcome: Refreshed, User: b.store.User()}
}

func (b *Bootstrapper) fetchUser(ctx context.Context) error {
	me, err := b.api.Me(transport.SkipRefresh(ctx))
	if err != nil {
		return err
	}
	return b.store.UpdateUser(me.ToUser())
}

func (b *Bootstrapper) finish(r Result) Result {
	b.metrics.RecordBootstrap(string(r.Outcome))
	switch r.Outcome {
	case Cleared:
		log.Warn().Err(r.Err).Msg("restored session could not be recovered; continuing anonymously")
	case Degraded:
		log.Warn().Err(r.Err).Msg("could not validate restored session; keeping it")
	default:
		log.Debug().Str("outcome", string(r.Outcome)).Msg("session bootstrap finished")
	}
	return r
}
