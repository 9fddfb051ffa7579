package guard

import (
	"errors"
	"sync"

	"github.com/jrsteele09/rewine-client/expiry"
	"github.com/rs/zerolog/log"
)

const DefaultMaxRedirects = 5

// ErrTooManyRedirects is returned when guard redirects do not settle.
var ErrTooManyRedirects = errors.New("too many guard redirects")

// Router is a headless router: a route table, the current location and
// guarded navigation between locations.
type Router struct {
	guard        *Guard
	routes       []compiledRoute
	maxRedirects int
	onChange     func(from, to string)

	lock    sync.Mutex
	current string
}

var _ expiry.Navigator = (*Router)(nil)

type RouterOption func(*Router)

func WithMaxRedirects(n int) RouterOption {
	return func(r *Router) {
		if n > 0 {
			r.maxRedirects = n
		}
	}
}

func WithInitialLocation(path string) RouterOption {
	return func(r *Router) {
		if path != "" {
			r.current = path
		}
	}
}

// OnChange is called after every completed navigation, outside the router lock.
func OnChange(fn func(from, to string)) RouterOption {
	return func(r *Router) {
		r.onChange = fn
	}
}

func NewRouter(g *Guard, routes []Route, opts ...RouterOption) *Router {
	r := &Router{
		guard:        g,
		maxRedirects: DefaultMaxRedirects,
		current:      g.homePath,
	}
	for _, route := range routes {
		r.routes = append(r.routes, compile(route))
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Match finds the most specific route for path. Paths matching nothing are public.
func (r *Router) Match(path string) (Route, bool) {
	segments := splitPath(path)
	best, bestScore := Route{}, -1
	for _, c := range r.routes {
		if score := c.match(segments); score > bestScore {
			best, bestScore = c.route, score
		}
	}
	return best, bestScore >= 0
}

func (r *Router) Current() string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.current
}

// Navigate runs the guard against path, following redirects, and returns where
// the router ended up. On ErrTooManyRedirects the location is unchanged.
func (r *Router) Navigate(path string) (string, error) {
	target := path
	for i := 0; i <= r.maxRedirects; i++ {
		route, _ := r.Match(target)
		decision := r.guard.Check(Navigation{Path: target, Requirement: route.Requirement})
		if decision.Allowed() {
			r.lock.Lock()
			from := r.current
			r.current = target
			r.lock.Unlock()

			log.Debug().Str("from", from).Str("to", target).Str("route", route.Name).Msg("navigated")
			if r.onChange != nil {
				r.onChange(from, target)
			}
			return target, nil
		}
		log.Debug().Str("path", target).Str("outcome", decision.Outcome.String()).Str("location", decision.Location).Msg("navigation redirected")
		target = decision.Location
	}
	log.Error().Str("path", path).Int("max", r.maxRedirects).Msg("navigation redirect loop")
	return r.Current(), ErrTooManyRedirects
}

// Redirect navigates without a result, for callers like session expiry.
func (r *Router) Redirect(path string) {
	if _, err := r.Navigate(path); err != nil {
		log.Err(err).Str("path", path).Msg("redirect failed")
	}
}

// Refresh re-checks the current location, e.g. after a login or logout changed the session.
func (r *Router) Refresh() (string, error) {
	return r.Navigate(r.Current())
}
