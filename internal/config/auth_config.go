package config

import "time"

type AuthConfig interface {
	GetRefreshTimeout() time.Duration
	GetLoginPath() string
	GetHomePath() string
	GetForbiddenPath() string
	GetReturnParam() string
	GetMaxRedirects() int
}

type Auth struct{}

var _ AuthConfig = Auth{}

// GetRefreshTimeout bounds one refresh-token exchange regardless of who started it.
func (Auth) GetRefreshTimeout() time.Duration {
	return GetDuration("REWINE_REFRESH_TIMEOUT", 15*time.Second)
}

func (Auth) GetLoginPath() string {
	return "/login"
}

func (Auth) GetHomePath() string {
	return "/"
}

// GetForbiddenPath is where authenticated users without the required role land.
// Set it to "/" to get the simpler redirect-home behaviour.
func (Auth) GetForbiddenPath() string {
	return GetEnv("REWINE_FORBIDDEN_PATH", "/forbidden")
}

func (Auth) GetReturnParam() string {
	return "returnUrl"
}

func (Auth) GetMaxRedirects() int {
	return 5
}
