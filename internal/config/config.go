// Package config holds operator-level configuration for a scrubd process:
// data directory, audit signing key, extraction limits, the optional NLP
// sidecar URL, and API surface settings. Set via env vars (SCRUBD_*) or a
// scrubd.config.yaml file.
//
// There is deliberately no per-request configuration here; detection and
// masking options travel with each call.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/scrubd-io/scrubd/internal/cryptoutil"
)

// Viper keys. Each maps to an env var with the SCRUBD_ prefix
// (e.g. "signing_key" → SCRUBD_SIGNING_KEY) and to a YAML field in
// scrubd.config.yaml.
const (
	KeyDataDir       = "data_dir"
	KeySigningKey    = "signing_key"
	KeyPatternsFile  = "patterns_file"
	KeyMaxFileMB     = "max_file_mb"
	KeyNLPBaseURL    = "nlp_base_url"
	KeyMinConfidence = "min_confidence"
	KeyRateLimitRPM  = "rate_limit_rpm"
	KeyAPIKeys       = "api_keys"
)

// Defaults that do NOT involve crypto material. The signing key has no
// baked-in default — when unset we generate a deterministic per-machine
// fallback and warn loudly.
const (
	DefaultMaxFileMB    = 10
	DefaultRateLimitRPM = 120
)

// Config holds resolved operator-level configuration for a scrubd process.
type Config struct {
	DataDir       string  // Base directory for all state (~/.scrubd)
	SigningKey    string  // HMAC-SHA256 key for audit signing (≥32 bytes)
	PatternsFile  string  // Optional global recognizer YAML overriding the embedded defaults
	MaxFileMB     int     // Maximum upload/extraction size in MB
	NLPBaseURL    string  // NER sidecar endpoint; empty means the capability is absent
	MinConfidence float64 // Default confidence threshold for reported entities
	RateLimitRPM  int     // Per-caller request budget per minute; 0 disables limiting
	APIKeys       string  // Comma-separated API keys; empty disables auth

	usingDefaultSigningKey bool
}

// UsingDefaultSigningKey returns true if the audit signing key was derived
// rather than set explicitly.
func (c *Config) UsingDefaultSigningKey() bool {
	return c.usingDefaultSigningKey
}

// AuditDBPath returns the full path to the audit SQLite database.
func (c *Config) AuditDBPath() string {
	return filepath.Join(c.DataDir, "audit.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o700)
}

// WarnIfDefaultKeys logs a warning when the signing key is not explicitly
// set. Suppressed when SCRUBD_QUICKSTART=1 or true.
func (c *Config) WarnIfDefaultKeys() {
	if isQuickstart() {
		return
	}
	if c.usingDefaultSigningKey {
		log.Warn().Msg("Using generated default SCRUBD_SIGNING_KEY — set via env var or config file for production")
	}
}

func isQuickstart() bool {
	v := os.Getenv("SCRUBD_QUICKSTART")
	return v == "1" || v == "true" || v == "TRUE"
}

func init() {
	viper.SetEnvPrefix("SCRUBD")
	viper.AutomaticEnv()
	viper.SetDefault(KeyMaxFileMB, DefaultMaxFileMB)
	viper.SetDefault(KeyRateLimitRPM, DefaultRateLimitRPM)
	viper.SetDefault(KeyMinConfidence, 0.0)
}

// Load reads configuration from Viper (which merges env vars, config file,
// and defaults) and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:       resolveDataDir(),
		SigningKey:    viper.GetString(KeySigningKey),
		PatternsFile:  viper.GetString(KeyPatternsFile),
		MaxFileMB:     viper.GetInt(KeyMaxFileMB),
		NLPBaseURL:    viper.GetString(KeyNLPBaseURL),
		MinConfidence: viper.GetFloat64(KeyMinConfidence),
		RateLimitRPM:  viper.GetInt(KeyRateLimitRPM),
		APIKeys:       viper.GetString(KeyAPIKeys),
	}

	if cfg.SigningKey == "" {
		cfg.SigningKey = deriveDefaultKey(cfg.DataDir, "audit-signing")
		cfg.usingDefaultSigningKey = true
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func resolveDataDir() string {
	if dir := viper.GetString(KeyDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scrubd"
	}
	return filepath.Join(home, ".scrubd")
}

// deriveDefaultKey produces a deterministic 32-byte fallback key from the
// data directory path and a salt. Uses SHA-256 so the full salt always
// contributes to the output regardless of path length. This is NOT
// cryptographically strong; it exists solely so `scrubd serve` works out of
// the box while still signing audit records with a per-machine-unique key.
func deriveDefaultKey(dataDir, salt string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("scrubd:%s:%s", dataDir, salt)))
	return hex.EncodeToString(h[:])
}

func (c *Config) validate() error {
	if err := validateSigningKey(c.SigningKey); err != nil {
		return err
	}
	if c.MaxFileMB <= 0 {
		return fmt.Errorf("max_file_mb must be positive")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be between 0 and 1")
	}
	if c.RateLimitRPM < 0 {
		return fmt.Errorf("rate_limit_rpm must not be negative")
	}
	return nil
}

// validateSigningKey accepts either ≥32 raw bytes or ≥64 hex characters
// (decoded length ≥32 for HMAC-SHA256). Hex is checked first (disjoint from
// raw) so that hex format is validated; raw is accepted otherwise when n ≥ 32.
func validateSigningKey(key string) error {
	n := len(key)
	if n >= 64 && n%2 == 0 && cryptoutil.IsHexString(key) {
		decoded, err := hex.DecodeString(key)
		if err != nil || len(decoded) < 32 {
			return fmt.Errorf("signing_key hex must decode to at least 32 bytes: %w", err)
		}
		return nil
	}
	if n >= 32 {
		return nil
	}
	return fmt.Errorf("signing_key must be at least 32 bytes or 64+ hex characters (got %d); set SCRUBD_SIGNING_KEY", n)
}
