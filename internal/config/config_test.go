package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "auth-service", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, 60, cfg.Auth.AccessTokenTTLMinutes)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTokenTTL())
	assert.Equal(t, uint32(64*1024), cfg.Auth.Argon2MemoryKiB)
	assert.Equal(t, 10, cfg.Auth.LoginMaxAttempts)
	assert.Equal(t, time.Minute, cfg.Auth.LoginWindow())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "15")
	t.Setenv("AUTH_JWT_SECRET", "an-explicitly-configured-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL())
	assert.Equal(t, "an-explicitly-configured-secret", cfg.Auth.JWTSecret)
}

func TestLoad_RejectsShortSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "too-short")

	_, err := Load()
	assert.Error(t, err)
}

func TestAuthConfigValidate(t *testing.T) {
	valid := AuthConfig{JWTSecret: "0123456789abcdef", AccessTokenTTLMinutes: 60}
	assert.NoError(t, valid.Validate())

	short := valid
	short.JWTSecret = "0123456789abcde"
	assert.Error(t, short.Validate())

	zeroTTL := valid
	zeroTTL.AccessTokenTTLMinutes = 0
	assert.Error(t, zeroTTL.Validate())
}
