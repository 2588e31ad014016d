// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Issuer configures token minting.
	Issuer IssuerConfig `yaml:"issuer"`

	// KeyStore locates entity authentication keys.
	KeyStore KeyStoreConfig `yaml:"keystore"`

	// TokenStore configures master token lineage tracking.
	TokenStore TokenStoreConfig `yaml:"tokenstore"`

	// Wire selects token encodings.
	Wire WireConfig `yaml:"wire"`

	// Log configures the slog handler.
	Log LogConfig `yaml:"log"`

	// Per-environment overrides, applied after the base config is
	// loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Issuer     *IssuerConfig     `yaml:"issuer,omitempty"`
	KeyStore   *KeyStoreConfig   `yaml:"keystore,omitempty"`
	TokenStore *TokenStoreConfig `yaml:"tokenstore,omitempty"`
	Wire       *WireConfig       `yaml:"wire,omitempty"`
	Log        *LogConfig        `yaml:"log,omitempty"`
}

// IssuerConfig configures token minting.
type IssuerConfig struct {
	// Identity is the issuer's entity identity. Also the id of its
	// crypto context.
	Identity string `yaml:"identity"`

	// StateDir holds the issuer's key files.
	StateDir string `yaml:"state_dir"`

	// Master token lifetimes from issue time.
	// Default: 12h renewal window, 24h expiration.
	RenewalOffset    time.Duration `yaml:"renewal_offset"`
	ExpirationOffset time.Duration `yaml:"expiration_offset"`

	// User ID token lifetimes from issue time.
	// Default: 1h renewal window, 2h expiration.
	UserRenewalOffset    time.Duration `yaml:"user_renewal_offset"`
	UserExpirationOffset time.Duration `yaml:"user_expiration_offset"`
}

// KeyStoreConfig locates the entity key store.
type KeyStoreConfig struct {
	// Path is the YAML key store file. Empty means no entity keys:
	// only unauthenticated entities can be served.
	Path string `yaml:"path"`

	// Sealed marks Path as age-encrypted.
	// Default: false (development), true (production)
	Sealed bool `yaml:"sealed"`

	// IdentityFile is the age identity that unseals Path.
	IdentityFile string `yaml:"identity_file"`
}

// TokenStoreConfig configures the master token lineage store.
type TokenStoreConfig struct {
	// Path is the SQLite database. Empty keeps lineages in memory.
	Path string `yaml:"path"`

	// PoolSize is the SQLite connection count. Zero selects the pool
	// default.
	PoolSize int `yaml:"pool_size"`
}

// WireConfig selects token encodings.
type WireConfig struct {
	// Format is "json" or "cbor". Default: json.
	Format string `yaml:"format"`

	// Compression is the service token compression algorithm: none,
	// gzip, zstd or lz4. Default: none.
	Compression string `yaml:"compression"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error. Default: info.
	Level string `yaml:"level"`

	// Format is "text" or "json". Default: text.
	Format string `yaml:"format"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	stateDir := filepath.Join(homeDir, ".local", "state", "msl")

	return &Config{
		Environment: Development,
		Issuer: IssuerConfig{
			StateDir:             stateDir,
			RenewalOffset:        12 * time.Hour,
			ExpirationOffset:     24 * time.Hour,
			UserRenewalOffset:    time.Hour,
			UserExpirationOffset: 2 * time.Hour,
		},
		TokenStore: TokenStoreConfig{
			Path: filepath.Join(stateDir, "tokens.db"),
		},
		Wire: WireConfig{
			Format:      "json",
			Compression: "none",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the MSL_CONFIG environment variable.
//
// There are no fallbacks or defaults - if MSL_CONFIG is not set, this
// fails.
func Load() (*Config, error) {
	configPath := os.Getenv("MSL_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("MSL_CONFIG environment variable not set; " +
			"set it to the path of your msl.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables
// do not override config values. The only expansion performed is
// ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, c)
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &ConfigOverrides{
				KeyStore: &KeyStoreConfig{Sealed: true},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Issuer != nil {
		override := overrides.Issuer
		if override.Identity != "" {
			c.Issuer.Identity = override.Identity
		}
		if override.StateDir != "" {
			c.Issuer.StateDir = override.StateDir
		}
		if override.RenewalOffset != 0 {
			c.Issuer.RenewalOffset = override.RenewalOffset
		}
		if override.ExpirationOffset != 0 {
			c.Issuer.ExpirationOffset = override.ExpirationOffset
		}
		if override.UserRenewalOffset != 0 {
			c.Issuer.UserRenewalOffset = override.UserRenewalOffset
		}
		if override.UserExpirationOffset != 0 {
			c.Issuer.UserExpirationOffset = override.UserExpirationOffset
		}
	}

	if overrides.KeyStore != nil {
		if overrides.KeyStore.Path != "" {
			c.KeyStore.Path = overrides.KeyStore.Path
		}
		// Sealed is a bool, so it is always applied from overrides.
		c.KeyStore.Sealed = overrides.KeyStore.Sealed
		if overrides.KeyStore.IdentityFile != "" {
			c.KeyStore.IdentityFile = overrides.KeyStore.IdentityFile
		}
	}

	if overrides.TokenStore != nil {
		if overrides.TokenStore.Path != "" {
			c.TokenStore.Path = overrides.TokenStore.Path
		}
		if overrides.TokenStore.PoolSize != 0 {
			c.TokenStore.PoolSize = overrides.TokenStore.PoolSize
		}
	}

	if overrides.Wire != nil {
		if overrides.Wire.Format != "" {
			c.Wire.Format = overrides.Wire.Format
		}
		if overrides.Wire.Compression != "" {
			c.Wire.Compression = overrides.Wire.Compression
		}
	}

	if overrides.Log != nil {
		if overrides.Log.Level != "" {
			c.Log.Level = overrides.Log.Level
		}
		if overrides.Log.Format != "" {
			c.Log.Format = overrides.Log.Format
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"MSL_STATE_DIR": c.Issuer.StateDir,
		"HOME":          os.Getenv("HOME"),
	}

	c.Issuer.StateDir = expandVars(c.Issuer.StateDir, vars)
	vars["MSL_STATE_DIR"] = c.Issuer.StateDir // Update for dependent paths.

	c.KeyStore.Path = expandVars(c.KeyStore.Path, vars)
	c.KeyStore.IdentityFile = expandVars(c.KeyStore.IdentityFile, vars)
	c.TokenStore.Path = expandVars(c.TokenStore.Path, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

var (
	wireFormats        = []string{"json", "cbor"}
	compressionFormats = []string{"none", "gzip", "zstd", "lz4"}
	logFormats         = []string{"text", "json"}
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Issuer.Identity == "" {
		errs = append(errs, fmt.Errorf("issuer.identity is required"))
	}
	if c.Issuer.StateDir == "" {
		errs = append(errs, fmt.Errorf("issuer.state_dir is required"))
	}
	errs = append(errs, validateWindow("issuer", c.Issuer.RenewalOffset, c.Issuer.ExpirationOffset)...)
	errs = append(errs, validateWindow("issuer user", c.Issuer.UserRenewalOffset, c.Issuer.UserExpirationOffset)...)

	if c.KeyStore.Sealed {
		if c.KeyStore.Path == "" {
			errs = append(errs, fmt.Errorf("keystore.path is required when keystore.sealed is set"))
		}
		if c.KeyStore.IdentityFile == "" {
			errs = append(errs, fmt.Errorf("keystore.identity_file is required when keystore.sealed is set"))
		}
	}
	if c.Environment == Production && c.KeyStore.Path != "" && !c.KeyStore.Sealed {
		errs = append(errs, fmt.Errorf("keystore.sealed must be true in production"))
	}

	if c.TokenStore.PoolSize < 0 {
		errs = append(errs, fmt.Errorf("tokenstore.pool_size must not be negative"))
	}

	if !slices.Contains(wireFormats, c.Wire.Format) {
		errs = append(errs, fmt.Errorf("wire.format must be one of: %v", wireFormats))
	}
	if !slices.Contains(compressionFormats, c.Wire.Compression) {
		errs = append(errs, fmt.Errorf("wire.compression must be one of: %v", compressionFormats))
	}

	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", logFormats))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func validateWindow(section string, renewal, expiration time.Duration) []error {
	var errs []error
	if renewal <= 0 {
		errs = append(errs, fmt.Errorf("%s renewal offset must be positive", section))
	}
	if expiration < renewal {
		errs = append(errs, fmt.Errorf("%s expiration offset %s is before renewal offset %s", section, expiration, renewal))
	}
	return errs
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// EnsureStateDir creates the issuer state directory with 0700
// permissions if it does not exist.
func (c *Config) EnsureStateDir() error {
	if err := os.MkdirAll(c.Issuer.StateDir, 0700); err != nil {
		return fmt.Errorf("creating %s: %w", c.Issuer.StateDir, err)
	}
	return nil
}
