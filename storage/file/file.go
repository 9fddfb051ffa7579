package file

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/rewine-client/storage"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

const (
	defaultDirName  = ".rewine"
	defaultFileName = "session.json"
)

var _ storage.Repo = (*Repo)(nil)

// Repo keeps every key in one JSON document. Writes go to a temp file that is
// renamed over the original so a crash never leaves a half written session.
type Repo struct {
	path   string
	values map[string]string
	lock   sync.RWMutex
}

// DefaultPath returns ~/.rewine/session.json, or dir/session.json when dir is set.
func DefaultPath(dir string) (string, error) {
	if dir == "" {
		home, err := homedir.Dir()
		if err != nil {
			return "", errors.Wrap(err, "error locating user's home directory")
		}
		dir = filepath.Join(home, defaultDirName)
	}
	return filepath.Join(dir, defaultFileName), nil
}

// Open loads path if it exists. A missing file is an empty store.
func Open(path string) (*Repo, error) {
	r := &Repo{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, errors.Wrapf(err, "error reading session file at %s", path)
	}
	if len(data) == 0 {
		return r, nil
	}
	if err := json.Unmarshal(data, &r.values); err != nil {
		return nil, errors.Wrapf(err, "error parsing session file at %s", path)
	}
	if r.values == nil {
		r.values = make(map[string]string)
	}
	return r, nil
}

func (r *Repo) Path() string {
	return r.path
}

func (r *Repo) Get(key string) (string, bool, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	v, ok := r.values[key]
	return v, ok, nil
}

func (r *Repo) Set(key, value string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	prev, had := r.values[key]
	r.values[key] = value
	if err := r.flush(); err != nil {
		if had {
			r.values[key] = prev
		} else {
			delete(r.values, key)
		}
		return err
	}
	return nil
}

func (r *Repo) Delete(key string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	prev, had := r.values[key]
	if !had {
		return nil
	}
	delete(r.values, key)
	if err := r.flush(); err != nil {
		r.values[key] = prev
		return err
	}
	return nil
}

// flush must be called with the write lock held.
func (r *Repo) flush() error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrapf(err, "error creating session directory %s", dir)
	}

	data, err := json.MarshalIndent(r.values, "", "  ")
	if err != nil {
		return errors.Wrap(err, "error marshaling session")
	}

	tmp, err := os.CreateTemp(dir, defaultFileName+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "error creating temp file in %s", dir)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "error writing %s", tmpName)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "error setting permissions on %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "error closing %s", tmpName)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return errors.Wrapf(err, "error writing to %s", r.path)
	}
	return nil
}
