package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	appNameVar          = "REWINE_APP_NAME"
	envVar              = "REWINE_ENV"
	apiBaseURLVar       = "REWINE_API_BASE_URL"
	apiTimeoutVar       = "REWINE_API_TIMEOUT"
	storageDirVar       = "REWINE_STORAGE_DIR"
	storageNamespaceVar = "REWINE_STORAGE_NAMESPACE"
	logLevelVar         = "REWINE_LOG_LEVEL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Rewine")
}

func (EnvVars) GetEnv() string {
	return GetEnv(envVar, "development")
}

// GetAPIBaseURL returns the REST API root every endpoint path is appended to
// (e.g., "https://api.rewine.example/api/v1"). A trailing slash is dropped.
func (EnvVars) GetAPIBaseURL() string {
	return strings.TrimSuffix(GetEnv(apiBaseURLVar, "http://localhost:8080/api/v1"), "/")
}

func (EnvVars) GetAPITimeout() time.Duration {
	return GetDuration(apiTimeoutVar, 30*time.Second)
}

// GetStorageDir returns the directory holding the persisted session.
// Empty means the default under the user's home directory.
func (EnvVars) GetStorageDir() string {
	return GetEnv(storageDirVar, "")
}

func (EnvVars) GetStorageNamespace() string {
	return GetEnv(storageNamespaceVar, "rewine_")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetDuration reads a Go duration ("15m") or a plain number of milliseconds.
func GetDuration(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

func GetBool(envVar string, defaultValue bool) bool {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
