package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	viper.SetEnvPrefix("SCRUBD")
	viper.AutomaticEnv()
	viper.SetDefault(KeyMaxFileMB, DefaultMaxFileMB)
	viper.SetDefault(KeyRateLimitRPM, DefaultRateLimitRPM)
	viper.SetDefault(KeyMinConfidence, 0.0)
}

func TestLoadDerivesSigningKey(t *testing.T) {
	resetViper(t)
	viper.Set(KeyDataDir, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.UsingDefaultSigningKey())
	assert.Len(t, cfg.SigningKey, 64) // hex sha-256
	assert.Equal(t, DefaultMaxFileMB, cfg.MaxFileMB)
}

func TestLoadExplicitSigningKey(t *testing.T) {
	resetViper(t)
	viper.Set(KeyDataDir, t.TempDir())
	viper.Set(KeySigningKey, strings.Repeat("k", 32))

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.UsingDefaultSigningKey())
}

func TestLoadRejectsShortSigningKey(t *testing.T) {
	resetViper(t)
	viper.Set(KeyDataDir, t.TempDir())
	viper.Set(KeySigningKey, "short")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadMinConfidence(t *testing.T) {
	resetViper(t)
	viper.Set(KeyDataDir, t.TempDir())
	viper.Set(KeyMinConfidence, 1.5)

	_, err := Load()
	assert.Error(t, err)
}

func TestDeriveDefaultKeyIsDeterministic(t *testing.T) {
	a := deriveDefaultKey("/data", "audit-signing")
	b := deriveDefaultKey("/data", "audit-signing")
	c := deriveDefaultKey("/other", "audit-signing")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestAuditDBPath(t *testing.T) {
	cfg := &Config{DataDir: "/data"}
	assert.Equal(t, "/data/audit.db", cfg.AuditDBPath())
}
