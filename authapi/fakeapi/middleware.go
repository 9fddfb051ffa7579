package fakeapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/rewine-client/users"
	"github.com/rs/zerolog/log"
)

type contextKey string

const contextKeyUser contextKey = "user"

func chainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

func (s *Server) loggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.recordHit(strings.TrimPrefix(r.URL.Path, s.basePath))
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Str("request_id", r.Header.Get("X-Request-ID")).Msg("mock api")
		next(w, r)
	}
}

// requireAuth validates the bearer access token and puts the caller in the context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Missing Authorization header", nil)
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
			writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid Authorization header format", nil)
			return
		}

		claims, err := s.signer.verify(parts[1])
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "TOKEN_INVALID", "Invalid token", nil)
			return
		}
		if claims.Generation < s.generation.Load() {
			writeError(w, r, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired", nil)
			return
		}
		user, ok := s.accounts.byID(claims.UserID)
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "TOKEN_INVALID", "Unknown user", nil)
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), contextKeyUser, user)))
	}
}

func (s *Server) requireRole(roles ...users.RoleType) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !currentUser(r).HasAnyRole(roles...) {
				writeError(w, r, http.StatusForbidden, "FORBIDDEN", "Access denied", nil)
				return
			}
			next(w, r)
		}
	}
}

func currentUser(r *http.Request) *users.User {
	u, _ := r.Context().Value(contextKeyUser).(*users.User)
	return u
}
