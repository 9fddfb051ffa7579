package session

import (
	"encoding/json"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/rewine-client/internal/errors"
	"github.com/jrsteele09/rewine-client/storage"
	"github.com/jrsteele09/rewine-client/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const DefaultNamespace = "rewine_"

const (
	accessTokenKey  = "auth_token"
	refreshTokenKey = "refresh_token"
	userKey         = "user"
)

// Session is a point in time copy of the store.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *users.User
	ExpiresAt    time.Time // zero when unknown
}

// Store is the single owner of the session. Other components read it through
// the accessors and never hold on to its internals.
//
// Every mutation is written through to the storage repo before the lock is released.
// Storage failures are logged and otherwise ignored: the in-memory state stays authoritative.
type Store struct {
	repo       storage.Repo
	accessKey  string
	refreshKey string
	userKey    string

	lock         sync.RWMutex
	accessToken  string
	refreshToken string
	user         *users.User
	expiresAt    time.Time
}

// NewStore returns an empty store persisting under keys prefixed by namespace.
func NewStore(repo storage.Repo, namespace string) *Store {
	return &Store{
		repo:       repo,
		accessKey:  namespace + accessTokenKey,
		refreshKey: namespace + refreshTokenKey,
		userKey:    namespace + userKey,
	}
}

// AccessToken returns the current access token, or "".
func (s *Store) AccessToken() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token, or "".
func (s *Store) RefreshToken() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.refreshToken
}

// User returns a copy of the signed in user, or nil.
func (s *Store) User() *users.User {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.user.Clone()
}

// ExpiresAt is when the access token lapses. Zero means unknown.
func (s *Store) ExpiresAt() time.Time {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.expiresAt
}

// IsAuthenticated reports whether both a token and a user are held.
func (s *Store) IsAuthenticated() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.accessToken != "" && s.user != nil
}

// HasRole reports whether the signed in user has role.
func (s *Store) HasRole(role users.RoleType) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.user.HasRole(role)
}

// HasAnyRole reports whether the signed in user has at least one of roles.
func (s *Store) HasAnyRole(roles ...users.RoleType) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.user.HasAnyRole(roles...)
}

// Snapshot returns a copy of the whole session.
func (s *Store) Snapshot() Session {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return Session{
		AccessToken:  s.accessToken,
		RefreshToken: s.refreshToken,
		User:         s.user.Clone(),
		ExpiresAt:    s.expiresAt,
	}
}

// Token exposes the session as an oauth2 token for the HTTP transport.
func (s *Store) Token() (*oauth2.Token, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.accessToken == "" {
		return nil, apperrors.ErrNoSession
	}
	return &oauth2.Token{
		AccessToken:  s.accessToken,
		TokenType:    "Bearer",
		RefreshToken: s.refreshToken,
		Expiry:       s.expiresAt,
	}, nil
}

// SetSession replaces the whole session. expiresIn is in seconds; zero means unknown.
func (s *Store) SetSession(user *users.User, accessToken, refreshToken string, expiresIn int64) error {
	if user == nil || accessToken == "" {
		return apperrors.Wrapf(apperrors.ErrNoSession, "session requires both a user and an access token")
	}
	u := user.Clone()
	if len(u.Roles) == 0 {
		u.Roles = []users.RoleType{users.DefaultRole}
	}
	userJSON, err := json.Marshal(u)
	if err != nil {
		return apperrors.Wrapf(err, "error marshaling user")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	s.accessToken = accessToken
	s.refreshToken = refreshToken
	s.user = u
	s.expiresAt = expiryFrom(accessToken, expiresIn)

	s.persist(s.accessKey, accessToken)
	s.persist(s.refreshKey, refreshToken)
	s.persist(s.userKey, string(userJSON))
	return nil
}

// SetAccessToken swaps in a refreshed access token. The user and refresh token are untouched.
// It refuses to act on an anonymous store so a refresh landing after logout cannot
// resurrect half a session.
func (s *Store) SetAccessToken(accessToken string, expiresIn int64) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.user == nil || s.accessToken == "" {
		return apperrors.ErrNoSession
	}
	s.accessToken = accessToken
	s.expiresAt = expiryFrom(accessToken, expiresIn)
	s.persist(s.accessKey, accessToken)
	return nil
}

// RotateRefreshToken stores a refresh token the server issued in place of the old one.
func (s *Store) RotateRefreshToken(refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.user == nil {
		return apperrors.ErrNoSession
	}
	s.refreshToken = refreshToken
	s.persist(s.refreshKey, refreshToken)
	return nil
}

// UpdateUser overwrites the stored user with a fresher copy from the server.
func (s *Store) UpdateUser(user *users.User) error {
	if user == nil {
		return apperrors.Wrapf(apperrors.ErrNoSession, "user is required")
	}
	u := user.Clone()
	if len(u.Roles) == 0 {
		u.Roles = []users.RoleType{users.DefaultRole}
	}
	userJSON, err := json.Marshal(u)
	if err != nil {
		return apperrors.Wrapf(err, "error marshaling user")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if s.accessToken == "" {
		return apperrors.ErrNoSession
	}
	s.user = u
	s.persist(s.userKey, string(userJSON))
	return nil
}

// Clear drops the session and its persisted keys. It reports whether there was
// anything to clear, so callers can react once per expiry.
func (s *Store) Clear() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	had := s.accessToken != "" || s.refreshToken != "" || s.user != nil
	s.accessToken = ""
	s.refreshToken = ""
	s.user = nil
	s.expiresAt = time.Time{}
	s.scrub()
	return had
}

// Restore loads a persisted session. Only a complete set of keys counts; anything
// partial or unreadable is removed and the store stays anonymous.
func (s *Store) Restore() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	access, okAccess := s.load(s.accessKey)
	refresh, okRefresh := s.load(s.refreshKey)
	userJSON, okUser := s.load(s.userKey)

	if !okAccess || !okRefresh || !okUser {
		if okAccess || okRefresh || okUser {
			log.Warn().Msg("discarding partially persisted session")
			s.scrub()
		}
		return false
	}

	var u users.User
	if err := json.Unmarshal([]byte(userJSON), &u); err != nil || u.ID == "" {
		log.Warn().Err(err).Msg("discarding unreadable persisted user")
		s.scrub()
		return false
	}
	if len(u.Roles) == 0 {
		u.Roles = []users.RoleType{users.DefaultRole}
	}

	s.accessToken = access
	s.refreshToken = refresh
	s.user = &u
	s.expiresAt = expiryFrom(access, 0)
	return true
}

func (s *Store) load(key string) (string, bool) {
	v, ok, err := s.repo.Get(key)
	if err != nil {
		log.Err(err).Str("key", key).Msg("error reading session storage")
		return "", false
	}
	return v, ok && v != ""
}

func (s *Store) persist(key, value string) {
	var err error
	if value == "" {
		err = s.repo.Delete(key)
	} else {
		err = s.repo.Set(key, value)
	}
	if err != nil {
		log.Err(err).Str("key", key).Msg("error writing session storage")
	}
}

func (s *Store) scrub() {
	for _, key := range []string{s.accessKey, s.refreshKey, s.userKey} {
		if err := s.repo.Delete(key); err != nil {
			log.Err(err).Str("key", key).Msg("error removing session storage")
		}
	}
}

// expiryFrom prefers the server's expiresIn and falls back to the token's exp claim.
// The claim is read without verifying the signature; the client only uses it as a hint.
func expiryFrom(accessToken string, expiresIn int64) time.Time {
	if expiresIn > 0 {
		return NowTimeFunc().Add(time.Duration(expiresIn) * time.Second)
	}
	claims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
