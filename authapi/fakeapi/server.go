// Package fakeapi is an in-process stand-in for the rewine auth API. It backs
// the package tests and the rewine-mock binary.
package fakeapi

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/rewine-client/users"
	"github.com/prometheus/client_golang/prometheus"
)

const DefaultBasePath = "/api/v1"

type Options struct {
	BasePath           string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	SigningSecret      string
	RotateRefreshToken bool
	Registerer         prometheus.Registerer // nil skips metrics registration
}

func DefaultOptions() Options {
	return Options{
		BasePath:           DefaultBasePath,
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		SigningSecret:      "rewine-mock-secret",
	}
}

type Server struct {
	mux      *http.ServeMux
	basePath string
	rotate   bool

	accounts *accountRepo
	signer   *tokenSigner
	refresh  *refreshManager

	generation atomic.Int64
	counters   *counters

	lock           sync.Mutex
	refreshDelay   time.Duration
	meFailure      int
	hits           map[string]int
	resetTokens    map[string]string // token to user id
	verifyTokens   map[string]string // token to user id
	pendingResets  map[string]string // user id to token
	pendingVerify  map[string]string // user id to token
	refreshStarted chan struct{}
}

func New(opts Options) *Server {
	def := DefaultOptions()
	if opts.BasePath == "" {
		opts.BasePath = def.BasePath
	}
	if opts.AccessTokenExpiry <= 0 {
		opts.AccessTokenExpiry = def.AccessTokenExpiry
	}
	if opts.RefreshTokenExpiry <= 0 {
		opts.RefreshTokenExpiry = def.RefreshTokenExpiry
	}
	if opts.SigningSecret == "" {
		opts.SigningSecret = def.SigningSecret
	}

	s := &Server{
		mux:           http.NewServeMux(),
		basePath:      opts.BasePath,
		rotate:        opts.RotateRefreshToken,
		accounts:      newAccountRepo(),
		signer:        &tokenSigner{secret: []byte(opts.SigningSecret), ttl: opts.AccessTokenExpiry},
		refresh:       newRefreshManager(opts.RefreshTokenExpiry),
		counters:      newCounters(opts.Registerer),
		hits:          make(map[string]int),
		resetTokens:   make(map[string]string),
		verifyTokens:  make(map[string]string),
		pendingResets: make(map[string]string),
		pendingVerify: make(map[string]string),
	}
	s.initRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// AddUser seeds an account and returns the stored user.
func (s *Server) AddUser(username, email, password, name string, roles ...users.RoleType) (*users.User, error) {
	return s.accounts.create(&users.User{
		Username:      username,
		Email:         email,
		DisplayName:   name,
		Roles:         roles,
		EmailVerified: true,
	}, password)
}

// ExpireAccessTokens makes every access token issued so far fail with TOKEN_EXPIRED.
func (s *Server) ExpireAccessTokens() {
	s.generation.Add(1)
}

// RevokeRefreshTokens forgets every refresh token, so the next refresh fails.
func (s *Server) RevokeRefreshTokens() {
	s.refresh.deleteAll()
}

// SetRefreshDelay holds every refresh response for d, widening the window in
// which concurrent callers pile up behind one refresh.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.refreshDelay = d
}

// RefreshStarted returns a channel that receives once per refresh request as it
// arrives, before any delay. Must be called before the refreshes it observes.
func (s *Server) RefreshStarted() <-chan struct{} {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.refreshStarted == nil {
		s.refreshStarted = make(chan struct{}, 64)
	}
	return s.refreshStarted
}

// FailMe makes GET /auth/me answer with status. Zero restores normal behaviour.
func (s *Server) FailMe(status int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.meFailure = status
}

// Hits reports how many requests reached path (relative to the base path).
func (s *Server) Hits(path string) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.hits[path]
}

// RefreshCount is the number of refresh exchanges the server answered, successful or not.
func (s *Server) RefreshCount() int {
	return s.Hits("/auth/refresh")
}

func (s *Server) PendingResetToken(email string) string {
	u, ok := s.accounts.byEmail(email)
	if !ok {
		return ""
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.pendingResets[u.ID]
}

func (s *Server) PendingVerificationToken(userID string) string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.pendingVerify[userID]
}

func (s *Server) recordHit(path string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.hits[path]++
}
