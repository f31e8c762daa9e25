package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noDotEnv(t *testing.T) {
	t.Helper()
	orig := loadDotEnv
	loadDotEnv = func() {}
	t.Cleanup(func() { loadDotEnv = orig })
}

func TestLoadDefaults(t *testing.T) {
	noDotEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "BotoApp", cfg.AppName)
	assert.Equal(t, "dev", cfg.JWTSecret)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenLifetime)
	assert.Equal(t, 24*time.Hour, cfg.RefreshTokenLifetime)
	assert.Equal(t, 10*time.Minute, cfg.OTPLifespan())
	assert.Equal(t, 10*time.Minute, cfg.ResetTokenLifespan())
	assert.Equal(t, "@every 15m", cfg.CleanupSchedule)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Empty(t, cfg.TrustedProxies)
}

func TestLoadFromEnv(t *testing.T) {
	noDotEnv(t)
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "file::memory:")
	t.Setenv("OTP_EXPIRE_TIME", "3")
	t.Setenv("MAX_LOGIN_ATTEMPT", "2")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("ACCESS_TOKEN_LIFETIME", "90s")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,192.168.1.1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "file::memory:", cfg.DSN())
	assert.Equal(t, 3*time.Minute, cfg.OTPLifespan())
	assert.Equal(t, 2, cfg.MaxLoginAttempt)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 90*time.Second, cfg.AccessTokenLifetime)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.1"}, cfg.TrustedProxies)
}

func TestLoadRejectsInvalid(t *testing.T) {
	noDotEnv(t)
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("MAX_LOGIN_ATTEMPT", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
	assert.Contains(t, err.Error(), "MAX_LOGIN_ATTEMPT")
}

func TestLoadRejectsUnparsable(t *testing.T) {
	noDotEnv(t)
	t.Setenv("PAGE_SIZE", "many")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "parse env"))
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{DBDriver: "postgres", PostgresHost: "db", PostgresPort: "5432", PostgresUser: "u", PostgresPassword: "p", PostgresDB: "d"}
	dsn := cfg.DSN()
	for _, part := range []string{"host=db", "user=u", "password=p", "dbname=d", "sslmode=disable"} {
		assert.Contains(t, dsn, part)
	}
}
