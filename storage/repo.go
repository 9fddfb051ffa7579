package storage

// Repo is a flat string key-value store that outlives the process.
// Get reports ok=false for a missing key; Delete of a missing key is not an error.
type Repo interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
}
