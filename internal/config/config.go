package config

import "time"

type Config interface {
	EnvConfig
	AuthConfig
	MockConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetAPIBaseURL() string
	GetAPITimeout() time.Duration
	GetStorageDir() string
	GetStorageNamespace() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	Auth
	Mock
}

func New() Config {
	return mainConfig{}
}
