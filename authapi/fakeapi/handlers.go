package fakeapi

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/rewine-client/authapi"
	apperrors "github.com/jrsteele09/rewine-client/internal/errors"
	"github.com/jrsteele09/rewine-client/users"
	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json"

// CellarPath is a protected resource used to exercise bearer recovery.
const (
	CellarPath = "/cellar"
	AdminPath  = "/admin/stats"
)

func (s *Server) initRoutes() {
	public := []func(http.HandlerFunc) http.HandlerFunc{s.loggingMiddleware}
	authed := []func(http.HandlerFunc) http.HandlerFunc{s.loggingMiddleware, s.requireAuth}

	s.route("POST", authapi.LoginPath, chainMiddleware(s.loginHandler(), public...))
	s.route("POST", authapi.RegisterPath, chainMiddleware(s.registerHandler(), public...))
	s.route("POST", authapi.RefreshPath, chainMiddleware(s.refreshHandler(), public...))
	s.route("POST", authapi.ForgotPasswordPath, chainMiddleware(s.forgotPasswordHandler(), public...))
	s.route("POST", authapi.ResetPasswordPath, chainMiddleware(s.resetPasswordHandler(), public...))
	s.route("POST", authapi.VerifyEmailPath, chainMiddleware(s.verifyEmailHandler(), public...))

	s.route("POST", authapi.LogoutPath, chainMiddleware(s.logoutHandler(), authed...))
	s.route("GET", authapi.MePath, chainMiddleware(s.meHandler(), authed...))
	s.route("POST", authapi.ResendVerificationPath, chainMiddleware(s.resendVerificationHandler(), authed...))
	s.route("GET", CellarPath, chainMiddleware(s.cellarHandler(), authed...))
	s.route("POST", CellarPath, chainMiddleware(s.cellarHandler(), authed...))
	s.route("GET", AdminPath, chainMiddleware(s.adminHandler(), append(authed, s.requireRole(users.RoleAdmin))...))
}

func (s *Server) route(method, path string, h http.HandlerFunc) {
	s.mux.HandleFunc(method+" "+s.basePath+path, h)
}

func (s *Server) loginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req authapi.LoginRequest
		if !decode(w, r, &req) {
			return
		}
		if fe := users.ValidateLogin(req.UsernameOrEmail, req.Password); fe != nil {
			writeValidation(w, r, fe)
			return
		}

		user, ok := s.accounts.authenticate(req.UsernameOrEmail, req.Password)
		if !ok {
			s.counters.logins.WithLabelValues("rejected").Inc()
			writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid username or password", nil)
			return
		}
		s.counters.logins.WithLabelValues("ok").Inc()
		s.writeAuthResponse(w, r, http.StatusOK, user)
	}
}

func (s *Server) registerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req authapi.RegisterRequest
		if !decode(w, r, &req) {
			return
		}
		fe := apperrors.FieldErrors{}
		if !users.IsEmail(req.Email) {
			fe["email"] = "email address is not valid"
		}
		if err := users.ValidatePasswordStrength(req.Password); err != nil {
			fe["password"] = err.Error()
		}
		if err := fe.OrNil(); err != nil {
			writeValidation(w, r, err)
			return
		}

		username := req.Username
		if username == "" {
			username = strings.SplitN(req.Email, "@", 2)[0]
		}
		// New accounts carry no roles on the wire; the client applies its default.
		user, err := s.accounts.create(&users.User{
			Username:    username,
			Email:       req.Email,
			DisplayName: req.Name,
		}, req.Password)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrConflict) {
				writeError(w, r, http.StatusConflict, "CONFLICT", err.Error(), nil)
				return
			}
			writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
			return
		}
		s.counters.logins.WithLabelValues("registered").Inc()
		s.writeAuthResponse(w, r, http.StatusCreated, user)
	}
}

func (s *Server) refreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.lock.Lock()
		delay := s.refreshDelay
		started := s.refreshStarted
		s.lock.Unlock()

		if started != nil {
			select {
			case started <- struct{}{}:
			default:
			}
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		var req authapi.RefreshRequest
		if !decode(w, r, &req) {
			return
		}
		rt, ok := s.refresh.get(req.RefreshToken)
		if !ok {
			s.counters.refreshes.WithLabelValues("rejected").Inc()
			writeError(w, r, http.StatusUnauthorized, "TOKEN_INVALID", "Refresh token is invalid or expired", nil)
			return
		}
		user, ok := s.accounts.byID(rt.UserID)
		if !ok {
			s.counters.refreshes.WithLabelValues("rejected").Inc()
			writeError(w, r, http.StatusUnauthorized, "TOKEN_INVALID", "Unknown user", nil)
			return
		}

		access, err := s.signer.create(user, s.generation.Load())
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
			return
		}
		resp := authapi.RefreshResponse{
			AccessToken: access,
			ExpiresIn:   int64(s.signer.ttl / time.Second),
			TokenType:   "Bearer",
		}
		if s.rotate {
			next, err := s.refresh.create(user.ID)
			if err != nil {
				writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
				return
			}
			s.refresh.delete(rt.Token)
			resp.RefreshToken = next
		}
		s.counters.refreshes.WithLabelValues("ok").Inc()
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) logoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.refresh.deleteForUser(currentUser(r).ID)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) meHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.lock.Lock()
		failure := s.meFailure
		s.lock.Unlock()
		if failure != 0 {
			writeError(w, r, failure, apperrors.CodeFromStatus(failure), "", nil)
			return
		}

		now := NowTimeFunc().UTC().Format(time.RFC3339)
		writeJSON(w, http.StatusOK, authapi.MeResponse{
			AuthUser:  authapi.FromUser(currentUser(r)),
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
}

func (s *Server) forgotPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req authapi.ForgotPasswordRequest
		if !decode(w, r, &req) {
			return
		}
		// Same answer whether or not the account exists.
		if u, ok := s.accounts.byEmail(req.Email); ok {
			token := randomToken()
			s.lock.Lock()
			s.resetTokens[token] = u.ID
			s.pendingResets[u.ID] = token
			s.lock.Unlock()
		}
		writeJSON(w, http.StatusOK, authapi.MessageResponse{Message: "If the email exists, a reset link has been sent."})
	}
}

func (s *Server) resetPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req authapi.ResetPasswordRequest
		if !decode(w, r, &req) {
			return
		}
		if err := users.ValidatePasswordStrength(req.NewPassword); err != nil {
			writeValidation(w, r, apperrors.FieldErrors{"newPassword": err.Error()})
			return
		}

		s.lock.Lock()
		userID, ok := s.resetTokens[req.Token]
		if ok {
			delete(s.resetTokens, req.Token)
			delete(s.pendingResets, userID)
		}
		s.lock.Unlock()
		if !ok {
			writeError(w, r, http.StatusBadRequest, "TOKEN_INVALID", "Reset token is invalid or expired", nil)
			return
		}

		hash, err := hashPassword(req.NewPassword)
		if err == nil {
			err = s.accounts.update(userID, func(acc *account) error {
				acc.passwordHash = hash
				return nil
			})
		}
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
			return
		}
		s.refresh.deleteForUser(userID)
		writeJSON(w, http.StatusOK, authapi.MessageResponse{Message: "Password has been reset."})
	}
}

func (s *Server) resendVerificationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := currentUser(r)
		token := randomToken()
		s.lock.Lock()
		if prev, ok := s.pendingVerify[u.ID]; ok {
			delete(s.verifyTokens, prev)
		}
		s.verifyTokens[token] = u.ID
		s.pendingVerify[u.ID] = token
		s.lock.Unlock()
		writeJSON(w, http.StatusOK, authapi.MessageResponse{Message: "Verification email sent."})
	}
}

func (s *Server) verifyEmailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req authapi.VerifyEmailRequest
		if !decode(w, r, &req) {
			return
		}
		s.lock.Lock()
		userID, ok := s.verifyTokens[req.Token]
		if ok {
			delete(s.verifyTokens, req.Token)
			delete(s.pendingVerify, userID)
		}
		s.lock.Unlock()
		if !ok {
			writeError(w, r, http.StatusBadRequest, "TOKEN_INVALID", "Verification token is invalid or expired", nil)
			return
		}
		_ = s.accounts.update(userID, func(acc *account) error {
			acc.user.EmailVerified = true
			return nil
		})
		writeJSON(w, http.StatusOK, authapi.MessageResponse{Message: "Email verified."})
	}
}

type cellarResponse struct {
	Owner string   `json:"owner"`
	Items []string `json:"items"`
	Echo  string   `json:"echo,omitempty"`
}

func (s *Server) cellarHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := cellarResponse{
			Owner: currentUser(r).ID,
			Items: []string{"Rioja Reserva 2016", "Albariño 2022"},
		}
		if r.Method == http.MethodPost {
			var body struct {
				Name string `json:"name"`
			}
			if !decode(w, r, &body) {
				return
			}
			resp.Echo = body.Name
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) adminHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{"refreshes": s.RefreshCount()})
	}
}

func (s *Server) writeAuthResponse(w http.ResponseWriter, r *http.Request, status int, user *users.User) {
	access, err := s.signer.create(user, s.generation.Load())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
		return
	}
	refresh, err := s.refresh.create(user.ID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
		return
	}
	au := authapi.FromUser(user)
	if status == http.StatusCreated {
		au.Roles = nil
	}
	writeJSON(w, status, authapi.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.signer.ttl / time.Second),
		TokenType:    "Bearer",
		User:         au,
	})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Malformed request body", nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("error encoding mock api response")
	}
}

func writeValidation(w http.ResponseWriter, r *http.Request, err error) {
	details := map[string][]string{}
	var fe apperrors.FieldErrors
	if apperrors.As(err, &fe) {
		for field, msg := range fe {
			details[field] = []string{msg}
		}
	}
	writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", details)
}

// writeError writes the backend error body.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string][]string) {
	body := map[string]any{
		"code":      code,
		"path":      r.URL.Path,
		"timestamp": NowTimeFunc().UTC().Format(time.RFC3339),
		"traceId":   r.Header.Get("X-Request-ID"),
	}
	if message != "" {
		body["message"] = message
	}
	if len(details) > 0 {
		body["details"] = details
	}
	writeJSON(w, status, body)
}

func randomToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
