package session_test

import (
	"errors"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/rewine-client/internal/errors"
	"github.com/jrsteele09/rewine-client/session"
	"github.com/jrsteele09/rewine-client/storage/memory"
	"github.com/jrsteele09/rewine-client/users"
	"github.com/stretchr/testify/require"
)

func testUser() *users.User {
	return &users.User{
		ID:          "u-1",
		Username:    "alice",
		Email:       "alice@rewine.test",
		DisplayName: "Alice",
		Roles:       []users.RoleType{users.RoleUser},
	}
}

func fixedNow(t *testing.T) time.Time {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	session.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { session.NowTimeFunc = time.Now })
	return now
}

func TestStore_SetSession(t *testing.T) {
	now := fixedNow(t)
	repo := memory.New()
	s := session.NewStore(repo, session.DefaultNamespace)

	require.False(t, s.IsAuthenticated())
	require.Empty(t, s.AccessToken())
	require.Nil(t, s.User())
	require.False(t, s.HasRole(users.RoleUser))

	require.NoError(t, s.SetSession(testUser(), "access-1", "refresh-1", 900))

	require.True(t, s.IsAuthenticated())
	require.Equal(t, "access-1", s.AccessToken())
	require.Equal(t, "refresh-1", s.RefreshToken())
	require.Equal(t, now.Add(15*time.Minute), s.ExpiresAt())
	require.True(t, s.HasAnyRole(users.RoleAdmin, users.RoleUser))

	v, ok, _ := repo.Get("rewine_auth_token")
	require.True(t, ok)
	require.Equal(t, "access-1", v)
	v, ok, _ = repo.Get("rewine_refresh_token")
	require.True(t, ok)
	require.Equal(t, "refresh-1", v)
	_, ok, _ = repo.Get("rewine_user")
	require.True(t, ok)

	tok, err := s.Token()
	require.NoError(t, err)
	require.Equal(t, "Bearer", tok.Type())
	require.Equal(t, "access-1", tok.AccessToken)
}

func TestStore_SetSession_RequiresUserAndToken(t *testing.T) {
	s := session.NewStore(memory.New(), session.DefaultNamespace)
	require.Error(t, s.SetSession(nil, "access", "refresh", 0))
	require.Error(t, s.SetSession(testUser(), "", "refresh", 0))
	require.False(t, s.IsAuthenticated())
}

func TestStore_DefaultRole(t *testing.T) {
	s := session.NewStore(memory.New(), session.DefaultNamespace)
	u := testUser()
	u.Roles = nil
	require.NoError(t, s.SetSession(u, "access", "refresh", 0))
	require.Equal(t, []users.RoleType{users.RoleUser}, s.User().Roles)
}

func TestStore_UserIsACopy(t *testing.T) {
	s := session.NewStore(memory.New(), session.DefaultNamespace)
	require.NoError(t, s.SetSession(testUser(), "access", "refresh", 0))

	u := s.User()
	u.Roles[0] = users.RoleAdmin
	require.False(t, s.HasRole(users.RoleAdmin))
}

func TestStore_SetAccessToken(t *testing.T) {
	s := session.NewStore(memory.New(), session.DefaultNamespace)

	require.ErrorIs(t, s.SetAccessToken("access-2", 60), apperrors.ErrNoSession)
	require.False(t, s.IsAuthenticated())

	require.NoError(t, s.SetSession(testUser(), "access-1", "refresh-1", 60))
	require.NoError(t, s.SetAccessToken("access-2", 60))
	require.Equal(t, "access-2", s.AccessToken())
	require.Equal(t, "refresh-1", s.RefreshToken())
	require.Equal(t, "u-1", s.User().ID)

	require.NoError(t, s.RotateRefreshToken("refresh-2"))
	require.Equal(t, "refresh-2", s.RefreshToken())
}

func TestStore_ClearIsIdempotent(t *testing.T) {
	repo := memory.New()
	s := session.NewStore(repo, session.DefaultNamespace)
	require.NoError(t, s.SetSession(testUser(), "access", "refresh", 60))

	require.True(t, s.Clear())
	first := s.Snapshot()
	require.False(t, s.Clear())
	require.Equal(t, first, s.Snapshot())

	require.False(t, s.IsAuthenticated())
	require.Equal(t, 0, repo.Len())
	_, err := s.Token()
	require.ErrorIs(t, err, apperrors.ErrNoSession)
}

func TestStore_Restore(t *testing.T) {
	repo := memory.New()
	writer := session.NewStore(repo, session.DefaultNamespace)
	require.NoError(t, writer.SetSession(testUser(), "access", "refresh", 60))

	reader := session.NewStore(repo, session.DefaultNamespace)
	require.True(t, reader.Restore())
	require.True(t, reader.IsAuthenticated())
	require.Equal(t, "alice", reader.User().Username)
	require.Equal(t, "refresh", reader.RefreshToken())
}

func TestStore_RestoreExpiryFromClaims(t *testing.T) {
	exp := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub": "u-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	repo := memory.New()
	require.NoError(t, session.NewStore(repo, session.DefaultNamespace).SetSession(testUser(), token, "refresh", 0))

	reader := session.NewStore(repo, session.DefaultNamespace)
	require.True(t, reader.Restore())
	require.True(t, exp.Equal(reader.ExpiresAt()))
}

func TestStore_RestoreScrubsPartialState(t *testing.T) {
	t.Run("missing user", func(t *testing.T) {
		repo := memory.New()
		require.NoError(t, repo.Set("rewine_auth_token", "access"))
		require.NoError(t, repo.Set("rewine_refresh_token", "refresh"))

		s := session.NewStore(repo, session.DefaultNamespace)
		require.False(t, s.Restore())
		require.False(t, s.IsAuthenticated())
		require.Equal(t, 0, repo.Len())
	})

	t.Run("corrupt user", func(t *testing.T) {
		repo := memory.New()
		require.NoError(t, repo.Set("rewine_auth_token", "access"))
		require.NoError(t, repo.Set("rewine_refresh_token", "refresh"))
		require.NoError(t, repo.Set("rewine_user", "{oops"))

		s := session.NewStore(repo, session.DefaultNamespace)
		require.False(t, s.Restore())
		require.Equal(t, 0, repo.Len())
	})

	t.Run("nothing stored", func(t *testing.T) {
		s := session.NewStore(memory.New(), session.DefaultNamespace)
		require.False(t, s.Restore())
	})
}

type brokenRepo struct{}

func (brokenRepo) Get(string) (string, bool, error) { return "", false, errors.New("disk gone") }
func (brokenRepo) Set(string, string) error         { return errors.New("disk gone") }
func (brokenRepo) Delete(string) error              { return errors.New("disk gone") }

func TestStore_StorageFailuresDoNotSurface(t *testing.T) {
	s := session.NewStore(brokenRepo{}, session.DefaultNamespace)
	require.NoError(t, s.SetSession(testUser(), "access", "refresh", 60))
	require.True(t, s.IsAuthenticated())
	require.True(t, s.Clear())
	require.False(t, s.Restore())
}

func TestStore_Namespace(t *testing.T) {
	repo := memory.New()
	s := session.NewStore(repo, "cellar_")
	require.NoError(t, s.SetSession(testUser(), "access", "refresh", 60))
	_, ok, _ := repo.Get("cellar_auth_token")
	require.True(t, ok)
}
