package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsAndEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("LLM_MODEL", "gpt-4o-mini")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, 3*time.Minute, cfg.Redis.LockTTL)
	assert.Equal(t, int64(25), cfg.Audio.MaxSizeMB)
	assert.Equal(t, "0 0 3 * * MON", cfg.Scheduler.WeeklySummarySpec)
}

func TestLoadConfig_File(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SERVER_ADDRESS", "")
	dir := t.TempDir()
	yaml := []byte("jwt:\n  secret: from-file\n  expiration: 90m\nserver:\n  address: \":9090\"\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.Equal(t, 90*time.Minute, cfg.JWT.Expiration)
	assert.Equal(t, ":9090", cfg.Server.Address)
}

func TestLoadConfig_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := LoadConfig(t.TempDir())
	assert.ErrorContains(t, err, "jwt.secret")
}

func TestValidate_Driver(t *testing.T) {
	cfg := Config{
		JWT:      JWTConfig{Secret: "s"},
		Database: DatabaseConfig{Driver: "postgres"},
		LLM:      LLMConfig{Model: "m"},
		Audio:    AudioConfig{MaxSizeMB: 25},
	}
	assert.Error(t, cfg.Validate())
	cfg.Database.Driver = "mongo"
	assert.NoError(t, cfg.Validate())
}
