package bootstrap_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/rewine-client/authapi"
	"github.com/jrsteele09/rewine-client/bootstrap"
	"github.com/jrsteele09/rewine-client/expiry"
	apperrors "github.com/jrsteele09/rewine-client/internal/errors"
	"github.com/jrsteele09/rewine-client/internal/metrics"
	"github.com/jrsteele09/rewine-client/session"
	"github.com/jrsteele09/rewine-client/storage/memory"
	"github.com/jrsteele09/rewine-client/users"
	"github.com/stretchr/testify/require"
)

var unauthorized = &apperrors.APIError{Status: 401, Code: apperrors.CodeTokenExpired}

// fakeAPI answers Me from a queue of scripted results.
type fakeAPI struct {
	mu      sync.Mutex
	results []error
	user    authapi.AuthUser
	calls   int
	block   chan struct{}
}

func (f *fakeAPI) Me(ctx context.Context) (*authapi.MeResponse, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.results) > 0 {
		err := f.results[0]
		f.results = f.results[1:]
		if err != nil {
			return nil, err
		}
	}
	return &authapi.MeResponse{AuthUser: f.user}, nil
}

type fakeRefresher struct {
	calls atomic.Int32
	err   error
}

func (f *fakeRefresher) Refresh(ctx context.Context) (string, error) {
	f.calls.Add(1)
	return "access-2", f.err
}

type notes struct {
	mu  sync.Mutex
	all []string
}

func (n *notes) Notify(level expiry.Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.all = append(n.all, message)
}

type fixture struct {
	repo      *memory.Repo
	store     *session.Store
	api       *fakeAPI
	refresher *fakeRefresher
	notes     *notes
	metrics   *metrics.Metrics
	boot      *bootstrap.Bootstrapper
}

// newFixture persists a session into a repo and hands back a fresh store over it,
// as if the process had restarted.
func newFixture(t *testing.T, persisted bool) *fixture {
	repo := memory.New()
	if persisted {
		prev := session.NewStore(repo, session.DefaultNamespace)
		require.NoError(t, prev.SetSession(&users.User{ID: "u-1", Username: "alice", Roles: []users.RoleType{users.RoleUser}}, "access-1", "refresh-1", 60))
	}

	f := &fixture{
		repo:      repo,
		store:     session.NewStore(repo, session.DefaultNamespace),
		api:       &fakeAPI{user: authapi.AuthUser{ID: "u-1", Username: "alice", Roles: []string{"ROLE_USER", "ROLE_PARTNER"}, EmailVerified: true}},
		refresher: &fakeRefresher{},
		notes:     &notes{},
		metrics:   metrics.New(),
	}
	exp := expiry.New(f.store, expiry.WithNotifier(f.notes))
	f.boot = bootstrap.New(f.store, f.api, f.refresher, exp, f.metrics)
	return f
}

func TestRun_NothingPersisted(t *testing.T) {
	f := newFixture(t, false)

	r := f.boot.Run(context.Background())
	require.Equal(t, bootstrap.Anonymous, r.Outcome)
	require.Nil(t, r.User)
	require.Zero(t, f.api.calls)
	require.Equal(t, 1.0, metrics.CounterValue(f.metrics.BootstrapTotal, "anonymous"))
}

func TestRun_Validated(t *testing.T) {
	f := newFixture(t, true)

	r := f.boot.Run(context.Background())
	require.Equal(t, bootstrap.Validated, r.Outcome)
	require.True(t, f.store.IsAuthenticated())
	require.True(t, f.store.HasRole(users.RolePartner))
	require.True(t, r.User.EmailVerified)
	require.Zero(t, f.refresher.calls.Load())
}

func TestRun_NetworkErrorKeepsSession(t *testing.T) {
	f := newFixture(t, true)
	f.api.results = []error{apperrors.NewNetworkError(authapi.MePath, false)}

	r := f.boot.Run(context.Background())
	require.Equal(t, bootstrap.Degraded, r.Outcome)
	require.True(t, apperrors.IsNetwork(r.Err))
	require.True(t, f.store.IsAuthenticated())
	require.Equal(t, "access-1", f.store.AccessToken())
	require.Equal(t, "alice", r.User.Username)
	require.Zero(t, f.refresher.calls.Load())
}

func TestRun_ServerErrorKeepsSession(t *testing.T) {
	f := newFixture(t, true)
	f.api.results = []error{&apperrors.APIError{Status: 503, Code: apperrors.CodeServiceUnavailable}}

	r := f.boot.Run(context.Background())
	require.Equal(t, bootstrap.Degraded, r.Outcome)
	require.True(t, f.store.IsAuthenticated())
}

func TestRun_RefreshRecovers(t *testing.T) {
	f := newFixture(t, true)
	f.api.results = []error{unauthorized, nil}

	r := f.boot.Run(context.Background())
	require.Equal(t, bootstrap.Refreshed, r.Outcome)
	require.Equal(t, int32(1), f.refresher.calls.Load())
	require.Equal(t, 2, f.api.calls)
	require.True(t, f.store.IsAuthenticated())
}

func TestRun_RefreshFailsClearsSilently(t *testing.T) {
	f := newFixture(t, true)
	f.api.results = []error{unauthorized}
	f.refresher.err = &apperrors.APIError{Status: 401, Code: apperrors.CodeTokenInvalid}

	r := f.boot.Run(context.Background())
	require.Equal(t, bootstrap.Cleared, r.Outcome)
	require.Nil(t, r.User)
	require.False(t, f.store.IsAuthenticated())
	require.Empty(t, f.notes.all)

	// Nothing is left behind for the next start.
	again := newFixtureOver(t, f)
	require.Equal(t, bootstrap.Anonymous, again.Run(context.Background()).Outcome)
}

func TestRun_RefreshTransientKeepsSession(t *testing.T) {
	f := newFixture(t, true)
	f.api.results = []error{unauthorized}
	f.refresher.err = apperrors.NewNetworkError(authapi.RefreshPath, true)

	r := f.boot.Run(context.Background())
	require.Equal(t, bootstrap.Degraded, r.Outcome)
	require.True(t, f.store.IsAuthenticated())
}

func TestRun_CancelledDuringRefreshKeepsSession(t *testing.T) {
	f := newFixture(t, true)
	f.api.results = []error{unauthorized}
	f.refresher.err = context.Canceled

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := f.boot.Run(ctx)
	require.Equal(t, bootstrap.Degraded, r.Outcome)
	require.ErrorIs(t, r.Err, context.Canceled)
	require.True(t, f.store.IsAuthenticated())
	require.Empty(t, f.notes.all)
}

func TestStart_RestoresBeforeValidating(t *testing.T) {
	f := newFixture(t, true)
	f.api.block = make(chan struct{})

	done := f.boot.Start(context.Background())
	require.True(t, f.store.IsAuthenticated())

	select {
	case <-done:
		t.Fatal("validation finished before the server answered")
	case <-time.After(10 * time.Millisecond):
	}

	close(f.api.block)
	select {
	case r := <-done:
		require.Equal(t, bootstrap.Validated, r.Outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("bootstrap did not finish")
	}
}

func TestStart_Anonymous(t *testing.T) {
	f := newFixture(t, false)
	r := <-f.boot.Start(context.Background())
	require.Equal(t, bootstrap.Anonymous, r.Outcome)
}

func newFixtureOver(t *testing.T, f *fixture) *bootstrap.Bootstrapper {
	t.Helper()
	store := session.NewStore(f.repo, session.DefaultNamespace)
	return bootstrap.New(store, f.api, f.refresher, expiry.New(store), nil)
}
