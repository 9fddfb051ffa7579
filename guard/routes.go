package guard

import (
	"strings"

	"github.com/jrsteele09/rewine-client/users"
)

// Route binds a path pattern to its requirement. Patterns are matched segment
// by segment: ":name" matches any one segment and a trailing "*" matches the rest.
type Route struct {
	Name    string
	Pattern string
	Requirement
}

var adminOnly = []users.RoleType{users.RoleAdmin}

// DefaultRoutes is the rewine front end's route table.
func DefaultRoutes() []Route {
	return []Route{
		{Name: "home", Pattern: "/"},
		{Name: "login", Pattern: "/login", Requirement: Requirement{GuestOnly: true}},
		{Name: "register", Pattern: "/register", Requirement: Requirement{GuestOnly: true}},
		{Name: "forbidden", Pattern: "/forbidden"},
		{Name: "wines", Pattern: "/wines"},
		{Name: "wine-compare", Pattern: "/wines/compare"},
		{Name: "wine-scan", Pattern: "/wines/scan", Requirement: Requirement{RequiresAuth: true}},
		{Name: "wine-details", Pattern: "/wines/:id"},
		{Name: "cellar", Pattern: "/cellar", Requirement: Requirement{RequiresAuth: true}},
		{Name: "events", Pattern: "/events"},
		{Name: "event-details", Pattern: "/events/:id"},
		{Name: "wine-routes", Pattern: "/wine-routes"},
		{Name: "wine-route-details", Pattern: "/wine-routes/:id"},
		{Name: "admin", Pattern: "/admin", Requirement: Requirement{RequiresAuth: true, AllowedRoles: adminOnly}},
		{Name: "admin-section", Pattern: "/admin/*", Requirement: Requirement{RequiresAuth: true, AllowedRoles: adminOnly}},
		{Name: "not-found", Pattern: "/*"},
	}
}

type compiledRoute struct {
	route    Route
	segments []string
}

func compile(r Route) compiledRoute {
	return compiledRoute{route: r, segments: splitPath(r.Pattern)}
}

// match returns a specificity score, or -1. Static segments outrank parameters,
// which outrank a wildcard.
func (c compiledRoute) match(segments []string) int {
	score := 0
	for i, seg := range c.segments {
		if seg == "*" && i == len(c.segments)-1 {
			return score
		}
		if i >= len(segments) {
			return -1
		}
		switch {
		case strings.HasPrefix(seg, ":"):
			score += 2
		case seg == segments[i]:
			score += 3
		default:
			return -1
		}
	}
	if len(segments) != len(c.segments) {
		return -1
	}
	return score + 1
}

func splitPath(p string) []string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
