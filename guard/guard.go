// Package guard decides whether a navigation may proceed given the current session.
package guard

import (
	"github.com/jrsteele09/rewine-client/expiry"
	"github.com/jrsteele09/rewine-client/users"
)

const (
	DefaultHomePath      = "/"
	DefaultForbiddenPath = "/forbidden"
)

// Requirement is the static auth policy of a route.
type Requirement struct {
	RequiresAuth bool
	GuestOnly    bool
	AllowedRoles []users.RoleType // empty means any authenticated user
}

// Session is what the guard reads from the session store.
type Session interface {
	IsAuthenticated() bool
	HasAnyRole(roles ...users.RoleType) bool
}

type Outcome int

const (
	Allow Outcome = iota
	RedirectHome
	RedirectLogin
	RedirectForbidden
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case RedirectHome:
		return "redirect_home"
	case RedirectLogin:
		return "redirect_login"
	case RedirectForbidden:
		return "redirect_forbidden"
	}
	return "unknown"
}

type Decision struct {
	Outcome  Outcome
	Location string // redirect target; empty for Allow
}

func (d Decision) Allowed() bool {
	return d.Outcome == Allow
}

// Navigation is one attempt to reach Path (which may include a query).
type Navigation struct {
	Path        string
	Requirement Requirement
}

type Guard struct {
	session       Session
	homePath      string
	loginPath     string
	forbiddenPath string
	returnParam   string
}

type Option func(*Guard)

// WithPaths overrides the redirect targets. Empty values keep the defaults.
// Setting forbidden to the home path gives the simpler redirect-home behaviour.
func WithPaths(home, login, forbidden string) Option {
	return func(g *Guard) {
		if home != "" {
			g.homePath = home
		}
		if login != "" {
			g.loginPath = login
		}
		if forbidden != "" {
			g.forbiddenPath = forbidden
		}
	}
}

func WithReturnParam(name string) Option {
	return func(g *Guard) {
		if name != "" {
			g.returnParam = name
		}
	}
}

func New(session Session, opts ...Option) *Guard {
	g := &Guard{
		session:       session,
		homePath:      DefaultHomePath,
		loginPath:     expiry.DefaultLoginPath,
		forbiddenPath: DefaultForbiddenPath,
		returnParam:   expiry.DefaultReturnParam,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Guard) LoginPath() string {
	return g.loginPath
}

// Check evaluates one navigation. Each call is independent of the last.
// Guest-only is checked first, and roles only once the user is known to be
// signed in, so an anonymous user always lands on login rather than forbidden.
func (g *Guard) Check(nav Navigation) Decision {
	req := nav.Requirement
	authenticated := g.session.IsAuthenticated()

	switch {
	case req.GuestOnly && authenticated:
		return Decision{Outcome: RedirectHome, Location: g.homePath}
	case !req.RequiresAuth:
		return Decision{Outcome: Allow}
	case !authenticated:
		return Decision{Outcome: RedirectLogin, Location: expiry.LoginRedirect(g.loginPath, g.returnParam, nav.Path)}
	case len(req.AllowedRoles) > 0 && !g.session.HasAnyRole(req.AllowedRoles...):
		return Decision{Outcome: RedirectForbidden, Location: g.forbiddenPath}
	}
	return Decision{Outcome: Allow}
}
