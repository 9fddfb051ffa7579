package guard

import (
	"net/http"
)

// RequireRoute is middleware for server-rendered pages. It checks req against
// the session and answers redirects with 303 See Other.
func (g *Guard) RequireRoute(req Requirement) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			decision := g.Check(Navigation{Path: r.URL.RequestURI(), Requirement: req})
			if !decision.Allowed() {
				http.Redirect(w, r, decision.Location, http.StatusSeeOther)
				return
			}
			next(w, r)
		}
	}
}

// Handler guards every request by looking its path up in the route table.
func (r *Router) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		route, _ := r.Match(req.URL.Path)
		decision := r.guard.Check(Navigation{Path: req.URL.RequestURI(), Requirement: route.Requirement})
		if !decision.Allowed() {
			http.Redirect(w, req, decision.Location, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, req)
	})
}
