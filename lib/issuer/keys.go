// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package issuer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/msl/lib/cryptocontext"
	"github.com/bureau-foundation/msl/lib/primitive"
)

const (
	encryptionKeyFile = "issuer-encryption-key"
	hmacKeyFile       = "issuer-hmac-key"
)

// Keys are the issuer's own symmetric keys. Every master and user
// token the issuer mints is encrypted and signed with them.
type Keys struct {
	Encryption primitive.SecretKey
	HMAC       primitive.SecretKey
}

// GenerateKeys creates fresh issuer keys. A nil provider selects
// primitive.Default.
func GenerateKeys(provider primitive.Provider) (Keys, error) {
	if provider == nil {
		provider = primitive.Default()
	}
	encryption, err := primitive.GenerateSecretKey(provider, primitive.AES)
	if err != nil {
		return Keys{}, fmt.Errorf("generating issuer encryption key: %w", err)
	}
	signing, err := primitive.GenerateSecretKey(provider, primitive.HMACSHA256)
	if err != nil {
		return Keys{}, fmt.Errorf("generating issuer HMAC key: %w", err)
	}
	return Keys{Encryption: encryption, HMAC: signing}, nil
}

// CryptoContext returns the issuer context over keys. Its wrapping key
// is derived from the encryption and HMAC keys.
func (keys Keys) CryptoContext(provider primitive.Provider, id string) (*cryptocontext.Symmetric, error) {
	derived, err := cryptocontext.NewDerivedWrap(provider, id, keys.Encryption, keys.HMAC)
	if err != nil {
		return nil, err
	}
	return cryptocontext.NewSymmetric(provider, id, cryptocontext.SymmetricKeys{
		Encryption: keys.Encryption,
		HMAC:       keys.HMAC,
		Wrapping:   derived.Keys().Wrapping,
	})
}

// SaveKeys writes keys to the state directory with 0600 permissions.
func SaveKeys(stateDir string, keys Keys) error {
	encryptionPath := filepath.Join(stateDir, encryptionKeyFile)
	if err := os.WriteFile(encryptionPath, keys.Encryption.Material(), 0600); err != nil {
		return fmt.Errorf("writing issuer encryption key: %w", err)
	}
	hmacPath := filepath.Join(stateDir, hmacKeyFile)
	if err := os.WriteFile(hmacPath, keys.HMAC.Material(), 0600); err != nil {
		return fmt.Errorf("writing issuer HMAC key: %w", err)
	}
	return nil
}

// LoadKeys loads keys from the state directory. Returns an error if
// either file is missing or the wrong size.
func LoadKeys(stateDir string) (Keys, error) {
	encryptionBytes, err := os.ReadFile(filepath.Join(stateDir, encryptionKeyFile))
	if err != nil {
		return Keys{}, fmt.Errorf("reading issuer encryption key: %w", err)
	}
	encryption, err := primitive.NewSecretKey(primitive.AES, encryptionBytes)
	if err != nil {
		return Keys{}, fmt.Errorf("issuer encryption key: %w", err)
	}

	hmacBytes, err := os.ReadFile(filepath.Join(stateDir, hmacKeyFile))
	if err != nil {
		return Keys{}, fmt.Errorf("reading issuer HMAC key: %w", err)
	}
	signing, err := primitive.NewSecretKey(primitive.HMACSHA256, hmacBytes)
	if err != nil {
		return Keys{}, fmt.Errorf("issuer HMAC key: %w", err)
	}
	return Keys{Encryption: encryption, HMAC: signing}, nil
}

// LoadOrGenerateKeys loads the keys in stateDir, or generates and
// saves new ones when neither file exists. Reports whether the keys
// were generated. A present but unreadable key is an error, never a
// reason to mint new keys: that would silently invalidate every
// outstanding token.
func LoadOrGenerateKeys(stateDir string, provider primitive.Provider) (Keys, bool, error) {
	keys, err := LoadKeys(stateDir)
	if err == nil {
		return keys, false, nil
	}
	for _, name := range []string{encryptionKeyFile, hmacKeyFile} {
		if _, statErr := os.Stat(filepath.Join(stateDir, name)); !errors.Is(statErr, fs.ErrNotExist) {
			return Keys{}, false, err
		}
	}

	keys, err = GenerateKeys(provider)
	if err != nil {
		return Keys{}, false, err
	}
	if err := SaveKeys(stateDir, keys); err != nil {
		return Keys{}, false, err
	}
	return keys, true, nil
}
