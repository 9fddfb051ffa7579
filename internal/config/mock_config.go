package config

import (
	"fmt"
	"time"
)

type MockConfig interface {
	GetPort() string
	GetMockAccessTokenExpiry() time.Duration
	GetMockRefreshTokenExpiry() time.Duration
	GetMockSigningSecret() string
	GetMockRotateRefreshTokens() bool
}

type Mock struct{}

var _ MockConfig = Mock{}

func (Mock) GetPort() string {
	port := GetEnv("PORT", "8080")
	if port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (Mock) GetMockAccessTokenExpiry() time.Duration {
	return GetDuration("REWINE_MOCK_ACCESS_TTL", 15*time.Minute)
}

func (Mock) GetMockRefreshTokenExpiry() time.Duration {
	return GetDuration("REWINE_MOCK_REFRESH_TTL", 7*24*time.Hour) // 7 days
}

func (Mock) GetMockSigningSecret() string {
	return GetEnv("REWINE_MOCK_SECRET", "rewine-mock-secret")
}

func (Mock) GetMockRotateRefreshTokens() bool {
	return GetBool("REWINE_MOCK_ROTATE_REFRESH", false)
}
