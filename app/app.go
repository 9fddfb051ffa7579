// Package app assembles one client instance: session storage, API client,
// refresh coordinator, transport, expiry handling, router and bootstrap.
package app

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/rewine-client/authapi"
	"github.com/jrsteele09/rewine-client/bootstrap"
	"github.com/jrsteele09/rewine-client/expiry"
	"github.com/jrsteele09/rewine-client/guard"
	"github.com/jrsteele09/rewine-client/internal/config"
	"github.com/jrsteele09/rewine-client/internal/metrics"
	"github.com/jrsteele09/rewine-client/refresh"
	"github.com/jrsteele09/rewine-client/session"
	"github.com/jrsteele09/rewine-client/storage"
	"github.com/jrsteele09/rewine-client/storage/file"
	"github.com/jrsteele09/rewine-client/transport"
	"github.com/jrsteele09/rewine-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type options struct {
	repo     storage.Repo
	base     http.RoundTripper
	notifier expiry.Notifier
	routes   []guard.Route
	metrics  *metrics.Metrics
	onChange func(from, to string)
}

type Option func(*options)

// WithStorage replaces the session file with repo.
func WithStorage(repo storage.Repo) Option {
	return func(o *options) { o.repo = repo }
}

// WithBaseTransport sets the round tripper under the auth transport.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.base = rt }
}

func WithNotifier(n expiry.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

func WithRoutes(routes []guard.Route) Option {
	return func(o *options) { o.routes = routes }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// OnNavigate is called after every completed navigation.
func OnNavigate(fn func(from, to string)) Option {
	return func(o *options) { o.onChange = fn }
}

type App struct {
	config      config.Config
	metrics     *metrics.Metrics
	store       *session.Store
	api         *authapi.Client
	httpClient  *http.Client
	coordinator *refresh.Coordinator
	expiry      *expiry.Handler
	guard       *guard.Guard
	router      *guard.Router
	bootstrap   *bootstrap.Bootstrapper
}

// sessionProvider is the transport's view of the session. The coordinator is
// set after construction because it needs the API client built on the transport.
type sessionProvider struct {
	*session.Store
	coordinator *refresh.Coordinator
	expiry      *expiry.Handler
}

var _ transport.SessionProvider = (*sessionProvider)(nil)

func (p *sessionProvider) Refresh(ctx context.Context) (string, error) {
	return p.coordinator.Refresh(ctx)
}

func (p *sessionProvider) Expire(ctx context.Context, cause error) {
	p.expiry.Expire(ctx, cause)
}

func New(cfg config.Config, opts ...Option) (*App, error) {
	o := &options{routes: guard.DefaultRoutes()}
	for _, opt := range opts {
		opt(o)
	}

	if o.repo == nil {
		path, err := file.DefaultPath(cfg.GetStorageDir())
		if err != nil {
			return nil, errors.Wrap(err, "[app.New]")
		}
		repo, err := file.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "[app.New]")
		}
		o.repo = repo
	}

	a := &App{config: cfg, metrics: o.metrics}
	a.store = session.NewStore(o.repo, cfg.GetStorageNamespace())

	a.guard = guard.New(a.store,
		guard.WithPaths(cfg.GetHomePath(), cfg.GetLoginPath(), cfg.GetForbiddenPath()),
		guard.WithReturnParam(cfg.GetReturnParam()),
	)
	a.router = guard.NewRouter(a.guard, o.routes,
		guard.WithMaxRedirects(cfg.GetMaxRedirects()),
		guard.WithInitialLocation(cfg.GetHomePath()),
		guard.OnChange(o.onChange),
	)
	a.expiry = expiry.New(a.store,
		expiry.WithNotifier(o.notifier),
		expiry.WithNavigator(a.router),
		expiry.WithLoginPath(cfg.GetLoginPath(), cfg.GetReturnParam()),
		expiry.WithMetrics(o.metrics),
	)

	provider := &sessionProvider{Store: a.store, expiry: a.expiry}
	tr := transport.New(provider,
		transport.WithBase(o.base),
		transport.WithRefreshPath(authapi.RefreshPath),
		transport.WithMetrics(o.metrics),
	)
	a.httpClient = &http.Client{Transport: tr, Timeout: cfg.GetAPITimeout()}
	a.api = authapi.NewClient(cfg.GetAPIBaseURL(), a.httpClient)

	a.coordinator = refresh.NewCoordinator(a.store, a.api,
		refresh.WithTimeout(cfg.GetRefreshTimeout()),
		refresh.WithMetrics(o.metrics),
	)
	provider.coordinator = a.coordinator

	a.bootstrap = bootstrap.New(a.store, a.api, a.coordinator, a.expiry, o.metrics)
	return a, nil
}

// Init restores the persisted session and validates it before returning.
// The current location is re-checked against whatever session survived.
func (a *App) Init(ctx context.Context) bootstrap.Result {
	r := a.bootstrap.Run(ctx)
	if _, err := a.router.Refresh(); err != nil {
		log.Err(err).Msg("error re-checking location after bootstrap")
	}
	return r
}

// Start restores the session immediately and validates it in the background.
func (a *App) Start(ctx context.Context) <-chan bootstrap.Result {
	return a.bootstrap.Start(ctx)
}

// Login signs in and navigates to redirectTo, or to the location the login
// page was asked to return to, or home.
func (a *App) Login(ctx context.Context, identifier, password, redirectTo string) (*users.User, error) {
	if err := users.ValidateLogin(identifier, password); err != nil {
		return nil, err
	}
	resp, err := a.api.Login(ctx, authapi.LoginRequest{UsernameOrEmail: strings.TrimSpace(identifier), Password: password})
	if err != nil {
		return nil, errors.Wrap(err, "[App.Login]")
	}
	return a.signedIn(resp, redirectTo)
}

// Register validates input locally before calling the API, then signs the new user in.
func (a *App) Register(ctx context.Context, input users.RegisterInput, redirectTo string) (*users.User, error) {
	if err := users.ValidateRegistration(input); err != nil {
		return nil, err
	}
	resp, err := a.api.Register(ctx, authapi.RegisterRequest{
		Username: strings.TrimSpace(input.Username),
		Email:    strings.TrimSpace(input.Email),
		Password: input.Password,
		Name:     strings.TrimSpace(input.Name),
	})
	if err != nil {
		return nil, errors.Wrap(err, "[App.Register]")
	}
	return a.signedIn(resp, redirectTo)
}

func (a *App) signedIn(resp *authapi.AuthResponse, redirectTo string) (*users.User, error) {
	user := resp.User.ToUser()
	if err := a.store.SetSession(user, resp.AccessToken, resp.RefreshToken, resp.ExpiresIn); err != nil {
		return nil, errors.Wrap(err, "[App.signedIn] error storing session")
	}
	log.Info().Str("user_id", user.ID).Msg("signed in")

	if redirectTo == "" {
		redirectTo = ReturnTarget(a.router.Current(), a.config.GetReturnParam())
	}
	a.router.Redirect(a.safeTarget(redirectTo))
	return a.store.User(), nil
}

// Logout tells the server, then clears the session whatever the server said
// and navigates to the login page.
func (a *App) Logout(ctx context.Context) {
	if a.store.IsAuthenticated() {
		if err := a.api.Logout(transport.SkipRefresh(ctx)); err != nil {
			log.Warn().Err(err).Msg("server logout failed; clearing local session anyway")
		}
	}
	a.store.Clear()
	a.router.Redirect(a.config.GetLoginPath())
}

// RefreshUser reloads the signed in user from the server.
func (a *App) RefreshUser(ctx context.Context) (*users.User, error) {
	me, err := a.api.Me(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[App.RefreshUser]")
	}
	if err := a.store.UpdateUser(me.ToUser()); err != nil {
		return nil, errors.Wrap(err, "[App.RefreshUser]")
	}
	return a.store.User(), nil
}

// Navigate moves the router to path through the guard and returns where it landed.
func (a *App) Navigate(path string) (string, error) {
	return a.router.Navigate(path)
}

// HTTPClient is the authenticated client for the rest of the rewine API.
func (a *App) HTTPClient() *http.Client {
	return a.httpClient
}

func (a *App) Session() *session.Store {
	return a.store
}

func (a *App) API() *authapi.Client {
	return a.api
}

func (a *App) Router() *guard.Router {
	return a.router
}

func (a *App) Guard() *guard.Guard {
	return a.guard
}

func (a *App) Coordinator() *refresh.Coordinator {
	return a.coordinator
}

func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// ReturnTarget extracts the return parameter from a login location such as
// /login?returnUrl=%2Fcellar.
func ReturnTarget(location, param string) string {
	u, err := url.Parse(location)
	if err != nil {
		return ""
	}
	return u.Query().Get(param)
}

// safeTarget keeps redirects inside the app and off the login page.
func (a *App) safeTarget(target string) string {
	home := a.config.GetHomePath()
	switch {
	case target == "",
		!strings.HasPrefix(target, "/"),
		strings.HasPrefix(target, "//"),
		strings.Contains(target, `\`),
		expiry.OnPath(target, a.config.GetLoginPath()):
		return home
	}
	return target
}
