// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keystore

import (
	"bytes"
	"crypto"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/msl/lib/entityauth"
	"github.com/bureau-foundation/msl/lib/primitive"
	"github.com/bureau-foundation/msl/lib/sealed"
)

// File is the on-disk key store layout.
type File struct {
	Preshared  []PresharedEntry `yaml:"preshared,omitempty"`
	PublicKeys []PublicKeyEntry `yaml:"public_keys,omitempty"`
}

// PresharedEntry is one identity's symmetric keys, base64-encoded.
type PresharedEntry struct {
	Identity      string `yaml:"identity"`
	EncryptionKey string `yaml:"encryption_key"`
	HMACKey       string `yaml:"hmac_key"`
	WrappingKey   string `yaml:"wrapping_key,omitempty"`
}

// PublicKeyEntry is one public key. Format is SPKI (PEM or base64 DER)
// or JWK (the JSON object as a string). Empty format means SPKI.
type PublicKeyEntry struct {
	ID     string `yaml:"id,omitempty"`
	Format string `yaml:"format,omitempty"`
	Key    string `yaml:"key"`
}

// NewPresharedEntry encodes keys for identity.
func NewPresharedEntry(identity string, keys entityauth.PresharedKeys) PresharedEntry {
	entry := PresharedEntry{
		Identity:      identity,
		EncryptionKey: base64.StdEncoding.EncodeToString(keys.Encryption.Material()),
		HMACKey:       base64.StdEncoding.EncodeToString(keys.HMAC.Material()),
	}
	if !keys.Wrapping.IsZero() {
		entry.WrappingKey = base64.StdEncoding.EncodeToString(keys.Wrapping.Material())
	}
	return entry
}

// NewPublicKeyEntry wraps SPKI DER in a PEM entry.
func NewPublicKeyEntry(id string, der []byte) PublicKeyEntry {
	block := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return PublicKeyEntry{ID: id, Format: primitive.SPKI.String(), Key: string(block)}
}

// Marshal encodes file as YAML.
func (file File) Marshal() ([]byte, error) {
	var buffer bytes.Buffer
	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(2)
	if err := encoder.Encode(file); err != nil {
		return nil, fmt.Errorf("keystore: encoding: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("keystore: encoding: %w", err)
	}
	return buffer.Bytes(), nil
}

// Parse builds a store from YAML. Unknown fields are rejected so a
// misspelled key name fails loudly instead of silently dropping a key.
func Parse(data []byte) (*Memory, error) {
	var file File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("keystore: parsing: %w", err)
	}
	return file.Build()
}

// Build decodes every entry into a new store.
func (file File) Build() (*Memory, error) {
	store := NewMemory()
	for index, entry := range file.Preshared {
		keys, err := entry.decode()
		if err != nil {
			return nil, fmt.Errorf("keystore: preshared[%d] %q: %w", index, entry.Identity, err)
		}
		if _, exists := store.PresharedKeys(entry.Identity); exists {
			return nil, fmt.Errorf("keystore: preshared[%d]: duplicate identity %q", index, entry.Identity)
		}
		if err := store.AddPreshared(entry.Identity, keys); err != nil {
			return nil, err
		}
	}
	for index, entry := range file.PublicKeys {
		key, err := entry.decode()
		if err != nil {
			return nil, fmt.Errorf("keystore: public_keys[%d] %q: %w", index, entry.ID, err)
		}
		if entry.ID != "" {
			if _, exists := store.PublicKey(entry.ID); exists {
				return nil, fmt.Errorf("keystore: public_keys[%d]: duplicate id %q", index, entry.ID)
			}
		}
		if _, err := store.AddPublicKey(entry.ID, key); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func (entry PresharedEntry) decode() (entityauth.PresharedKeys, error) {
	var keys entityauth.PresharedKeys
	var err error
	if keys.Encryption, err = decodeSecret(primitive.AES, "encryption_key", entry.EncryptionKey); err != nil {
		return keys, err
	}
	if keys.HMAC, err = decodeSecret(primitive.HMACSHA256, "hmac_key", entry.HMACKey); err != nil {
		return keys, err
	}
	if entry.WrappingKey != "" {
		if keys.Wrapping, err = decodeSecret(primitive.AESKW, "wrapping_key", entry.WrappingKey); err != nil {
			return keys, err
		}
	}
	return keys, nil
}

func decodeSecret(algorithm primitive.Algorithm, field, encoded string) (primitive.SecretKey, error) {
	if encoded == "" {
		return primitive.SecretKey{}, fmt.Errorf("%s is required", field)
	}
	material, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return primitive.SecretKey{}, fmt.Errorf("%s: %w", field, err)
	}
	return primitive.NewSecretKey(algorithm, material)
}

func (entry PublicKeyEntry) decode() (crypto.PublicKey, error) {
	tag := entry.Format
	if tag == "" {
		tag = primitive.SPKI.String()
	}
	format, err := primitive.ParseKeyFormat(tag)
	if err != nil {
		return nil, err
	}
	switch format {
	case primitive.SPKI:
		der, err := decodeSPKI(entry.Key)
		if err != nil {
			return nil, err
		}
		return primitive.ImportPublicKey(primitive.SPKI, der)
	case primitive.JWK:
		if !json.Valid([]byte(entry.Key)) {
			return nil, fmt.Errorf("JWK key is not valid JSON")
		}
		return primitive.ImportPublicKey(primitive.JWK, []byte(entry.Key))
	default:
		return nil, fmt.Errorf("format %s cannot hold a public key", format)
	}
}

func decodeSPKI(encoded string) ([]byte, error) {
	trimmed := strings.TrimSpace(encoded)
	if strings.HasPrefix(trimmed, "-----BEGIN") {
		block, _ := pem.Decode([]byte(trimmed))
		if block == nil || block.Type != "PUBLIC KEY" {
			return nil, fmt.Errorf("key is not a PEM PUBLIC KEY block")
		}
		return block.Bytes, nil
	}
	der, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("key: %w", err)
	}
	return der, nil
}

// LoadFile reads a plaintext YAML key store.
func LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keystore: reading %s: %w", path, err)
	}
	return Parse(data)
}

// LoadSealed reads an age-encrypted YAML key store and decrypts it with
// the identities in identityFile.
func LoadSealed(path, identityFile string) (*Memory, error) {
	ciphertext, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keystore: reading %s: %w", path, err)
	}
	identities, err := sealed.ReadIdentityFile(identityFile)
	if err != nil {
		return nil, fmt.Errorf("keystore: %w", err)
	}
	plaintext, err := sealed.Decrypt(ciphertext, identities...)
	if err != nil {
		return nil, fmt.Errorf("keystore: unsealing %s: %w", path, err)
	}
	return Parse(plaintext)
}
