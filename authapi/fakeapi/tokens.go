package fakeapi

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/rewine-client/internal/utils"
	"github.com/jrsteele09/rewine-client/users"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const refreshTokenLength = 32

// accessClaims is what an access token proves once verified.
type accessClaims struct {
	UserID     string
	Roles      []string
	Generation int64
}

// tokenSigner mints and verifies HS256 access tokens.
type tokenSigner struct {
	secret []byte
	ttl    time.Duration
}

func (ts *tokenSigner) create(user *users.User, generation int64) (string, error) {
	roles := make([]string, 0, len(user.Roles))
	for _, r := range user.Roles {
		roles = append(roles, string(r))
	}
	now := NowTimeFunc()
	claims := jwtlib.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"roles": roles,
		"gen":   generation, // bumped by Server.ExpireAccessTokens
		"iat":   now.Unix(),
		"exp":   now.Add(ts.ttl).Unix(),
		"jti":   uuid.New().String(),
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(ts.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

func (ts *tokenSigner) verify(token string) (*accessClaims, error) {
	claims := jwtlib.MapClaims{}
	_, err := jwtlib.ParseWithClaims(token, claims, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.secret, nil
	}, jwtlib.WithExpirationRequired(), jwtlib.WithTimeFunc(NowTimeFunc))
	if err != nil {
		return nil, err
	}

	sub, _ := claims.GetSubject()
	gen, _ := claims["gen"].(float64)
	return &accessClaims{
		UserID:     sub,
		Roles:      utils.StringsFromClaim(claims["roles"]),
		Generation: int64(gen),
	}, nil
}

type storedRefreshToken struct {
	Token  string
	UserID string
	Iat    time.Time
}

// refreshManager handles refresh token creation, validation and rotation.
type refreshManager struct {
	tokens map[string]*storedRefreshToken
	ttl    time.Duration
	lock   sync.Mutex
}

func newRefreshManager(ttl time.Duration) *refreshManager {
	return &refreshManager{tokens: make(map[string]*storedRefreshToken), ttl: ttl}
}

func (m *refreshManager) create(userID string) (string, error) {
	tokenBytes := make([]byte, refreshTokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	tokenStr := hex.EncodeToString(tokenBytes)

	m.lock.Lock()
	defer m.lock.Unlock()
	m.tokens[tokenStr] = &storedRefreshToken{Token: tokenStr, UserID: userID, Iat: NowTimeFunc()}
	return tokenStr, nil
}

// get returns the token only while it is still valid. Expired tokens are dropped.
func (m *refreshManager) get(token string) (*storedRefreshToken, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()

	rt, ok := m.tokens[token]
	if !ok {
		return nil, false
	}
	if NowTimeFunc().Sub(rt.Iat) > m.ttl {
		delete(m.tokens, token)
		return nil, false
	}
	return rt, true
}

func (m *refreshManager) delete(token string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.tokens, token)
}

func (m *refreshManager) deleteForUser(userID string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	for token, rt := range m.tokens {
		if rt.UserID == userID {
			delete(m.tokens, token)
		}
	}
}

func (m *refreshManager) deleteAll() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.tokens = make(map[string]*storedRefreshToken)
}
