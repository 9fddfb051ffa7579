package file_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/rewine-client/storage/file"
	"github.com/stretchr/testify/require"
)

func TestRepo_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	r, err := file.Open(path)
	require.NoError(t, err)
	_, ok, err := r.Get("rewine_auth_token")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, r.Set("rewine_auth_token", "access"))
	require.NoError(t, r.Set("rewine_refresh_token", "refresh"))
	require.NoError(t, r.Delete("rewine_refresh_token"))
	require.NoError(t, r.Delete("never_set"))

	reopened, err := file.Open(path)
	require.NoError(t, err)
	v, ok, err := reopened.Get("rewine_auth_token")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "access", v)
	_, ok, _ = reopened.Get("rewine_refresh_token")
	require.False(t, ok)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
}

func TestOpen_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := file.Open(path)
	require.ErrorContains(t, err, "error parsing session file")
}

func TestDefaultPath(t *testing.T) {
	p, err := file.DefaultPath("/tmp/rewine-test")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/tmp/rewine-test", "session.json"), p)

	p, err = file.DefaultPath("")
	require.NoError(t, err)
	require.Equal(t, "session.json", filepath.Base(p))
	require.Equal(t, ".rewine", filepath.Base(filepath.Dir(p)))
}
