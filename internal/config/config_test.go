package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_HOST", "localhost")
	t.Setenv("DATABASE_DBNAME", "dealership")
	t.Setenv("DATABASE_USER", "postgres")
}

func TestLoad_DefaultsFromEnvOnly(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, 15*time.Minute, cfg.JWT.VerificationTTL)
	assert.Equal(t, "memory", cfg.RateLimit.Backend)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.SweepInterval)
	assert.Equal(t, 2*time.Minute, cfg.Locks.DefaultTTL)
	assert.Equal(t, "localhost", cfg.Database.Host)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "9090")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: "7070"
  read_timeout: 30
otp:
  ttl: 10m
sms:
  sender: LANKAMOTOR
  dry_run: true
locks:
  default_ttl: 1m
  max_ttl: 5m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port, "env must win over file")
	assert.Equal(t, 30, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, "LANKAMOTOR", cfg.SMS.Sender)
	assert.True(t, cfg.SMS.DryRun)
	assert.Equal(t, time.Minute, cfg.Locks.DefaultTTL)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("DATABASE_HOST", "localhost")
	t.Setenv("DATABASE_DBNAME", "dealership")
	t.Setenv("DATABASE_USER", "postgres")
	t.Setenv("JWT_SECRET", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt secret")
}

func TestValidate_RedisBackendNeedsAddress(t *testing.T) {
	cfg := &Config{
		JWT:       JWTConfig{Secret: "s"},
		Database:  DatabaseConfig{Host: "h", DBName: "d", User: "u"},
		RateLimit: RateLimitConfig{Backend: "redis"},
		Locks:     LocksConfig{Backend: "memory", DefaultTTL: time.Minute, MaxTTL: time.Minute},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limit.backend")

	cfg.Redis.Addr = "localhost:6379"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_UnknownBackend(t *testing.T) {
	cfg := &Config{
		JWT:       JWTConfig{Secret: "s"},
		Database:  DatabaseConfig{Host: "h", DBName: "d", User: "u"},
		RateLimit: RateLimitConfig{Backend: "memory"},
		Locks:     LocksConfig{Backend: "etcd", DefaultTTL: time.Minute, MaxTTL: time.Minute},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locks.backend")
}

func TestValidate_ProductionSecretLength(t *testing.T) {
	cfg := &Config{
		Environment: "production",
		JWT:         JWTConfig{Secret: "short"},
		Database:    DatabaseConfig{Host: "h", DBName: "d", User: "u", Password: "p"},
		RateLimit:   RateLimitConfig{Backend: "memory"},
		Locks:       LocksConfig{Backend: "memory", DefaultTTL: time.Minute, MaxTTL: time.Minute},
	}
	require.Error(t, cfg.Validate())
}

func TestValidate_ProductionRequiresSMSKey(t *testing.T) {
	cfg := &Config{
		Environment: "production",
		JWT:         JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
		Database:    DatabaseConfig{Host: "h", DBName: "d", User: "u", Password: "p"},
		RateLimit:   RateLimitConfig{Backend: "memory"},
		Locks:       LocksConfig{Backend: "memory", DefaultTTL: time.Minute, MaxTTL: time.Minute},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sms api key")

	cfg.SMS.DryRun = true
	assert.NoError(t, cfg.Validate())

	cfg.SMS.DryRun = false
	cfg.SMS.APIKey = "key"
	assert.NoError(t, cfg.Validate())
}
