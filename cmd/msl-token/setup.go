// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/msl/lib/codec"
	"github.com/bureau-foundation/msl/lib/compression"
	"github.com/bureau-foundation/msl/lib/config"
	"github.com/bureau-foundation/msl/lib/cryptocontext"
	"github.com/bureau-foundation/msl/lib/entityauth"
	"github.com/bureau-foundation/msl/lib/issuer"
	"github.com/bureau-foundation/msl/lib/keystore"
	"github.com/bureau-foundation/msl/lib/tokenstore"
)

// addConfigFlag registers --config. Empty means MSL_CONFIG.
func addConfigFlag(flags *pflag.FlagSet, path *string) {
	flags.StringVar(path, "config", "", "path to msl.yaml (default: $MSL_CONFIG)")
}

func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, stderr io.Writer) (*slog.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	options := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(stderr, options)), nil
	}
	return slog.New(slog.NewTextHandler(stderr, options)), nil
}

// environment is everything a minting subcommand needs.
type environment struct {
	config      *config.Config
	logger      *slog.Logger
	format      codec.Format
	compression compression.Algorithm
	context     *cryptocontext.Symmetric
	issuer      *issuer.Issuer
	closers     []func() error
}

func (env *environment) Close() error {
	var first error
	for _, closer := range env.closers {
		if err := closer(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// openEnvironment loads configuration, issuer keys, the key store and
// the token store, and assembles an issuer.
func openEnvironment(ctx context.Context, configPath string, stderr io.Writer) (*environment, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return nil, err
	}
	format, err := codec.ParseFormat(cfg.Wire.Format)
	if err != nil {
		return nil, err
	}
	algorithm, err := compression.ParseAlgorithm(strings.ToUpper(cfg.Wire.Compression))
	if err != nil {
		return nil, err
	}

	if err := cfg.EnsureStateDir(); err != nil {
		return nil, err
	}
	keys, generated, err := issuer.LoadOrGenerateKeys(cfg.Issuer.StateDir, nil)
	if err != nil {
		return nil, fmt.Errorf("issuer keys: %w", err)
	}
	if generated {
		logger.Info("generated issuer keys", "state_dir", cfg.Issuer.StateDir)
	}
	issuerContext, err := keys.CryptoContext(nil, cfg.Issuer.Identity)
	if err != nil {
		return nil, err
	}

	entities, err := loadEntities(cfg)
	if err != nil {
		return nil, err
	}

	env := &environment{
		config:      cfg,
		logger:      logger,
		format:      format,
		compression: algorithm,
		context:     issuerContext,
	}

	var store tokenstore.Store = tokenstore.NewMemory()
	if cfg.TokenStore.Path != "" {
		sqliteStore, err := tokenstore.OpenSQLite(ctx, tokenstore.SQLiteConfig{
			Path:     cfg.TokenStore.Path,
			PoolSize: cfg.TokenStore.PoolSize,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		env.closers = append(env.closers, sqliteStore.Close)
		store = sqliteStore
	}

	env.issuer, err = issuer.New(issuer.Config{
		CryptoContext:        issuerContext,
		Logger:               logger,
		Format:               format,
		Store:                store,
		Entities:             entities,
		RenewalOffset:        cfg.Issuer.RenewalOffset,
		ExpirationOffset:     cfg.Issuer.ExpirationOffset,
		UserRenewalOffset:    cfg.Issuer.UserRenewalOffset,
		UserExpirationOffset: cfg.Issuer.UserExpirationOffset,
	})
	if err != nil {
		env.Close()
		return nil, err
	}
	return env, nil
}

// loadEntities builds the entity authentication registry over the
// configured key store.
func loadEntities(cfg *config.Config) (*entityauth.Registry, error) {
	store := keystore.NewMemory()
	switch {
	case cfg.KeyStore.Path == "":
	case cfg.KeyStore.Sealed:
		loaded, err := keystore.LoadSealed(cfg.KeyStore.Path, cfg.KeyStore.IdentityFile)
		if err != nil {
			return nil, err
		}
		store = loaded
	default:
		loaded, err := keystore.LoadFile(cfg.KeyStore.Path)
		if err != nil {
			return nil, err
		}
		store = loaded
	}

	registry := entityauth.NewRegistry()
	registry.RegisterFactory(entityauth.SchemePreshared, entityauth.PresharedFactory(nil, store))
	registry.RegisterFactory(entityauth.SchemeModelGroup, entityauth.ModelGroupFactory(nil, store))
	registry.RegisterFactory(entityauth.SchemeRSA, entityauth.RSAFactory(nil, store))
	registry.RegisterFactory(entityauth.SchemeECC, entityauth.ECCFactory(nil, store))
	unauthenticated := entityauth.UnauthenticatedFactory()
	registry.RegisterFactory(entityauth.SchemeUnauthenticated, unauthenticated)
	registry.RegisterFactory(entityauth.SchemeUnauthenticatedSuffixed, unauthenticated)
	return registry, nil
}
