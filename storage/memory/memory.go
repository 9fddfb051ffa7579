package memory

import (
	"sync"

	"github.com/jrsteele09/rewine-client/storage"
)

var _ storage.Repo = (*Repo)(nil)

type Repo struct {
	values map[string]string
	lock   sync.RWMutex
}

func New() *Repo {
	return &Repo{values: make(map[string]string)}
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

	r.values[key] = value
	return nil
}

func (r *Repo) Delete(key string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.values, key)
	return nil
}

// Len is used by tests to assert that a cleared session left nothing behind.
func (r *Repo) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.values)
}
