// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keystore

import (
	"crypto"
	"fmt"
	"slices"
	"sync"

	"github.com/bureau-foundation/msl/lib/entityauth"
	"github.com/bureau-foundation/msl/lib/primitive"
)

// Memory is an in-memory key store. Safe for concurrent use.
type Memory struct {
	mu         sync.RWMutex
	preshared  map[string]entityauth.PresharedKeys
	publicKeys map[string]crypto.PublicKey
}

// NewMemory returns an empty key store.
func NewMemory() *Memory {
	return &Memory{
		preshared:  make(map[string]entityauth.PresharedKeys),
		publicKeys: make(map[string]crypto.PublicKey),
	}
}

// AddPreshared adds or replaces the symmetric keys for identity. The
// encryption and HMAC keys are required; a zero wrapping key is
// derived on use.
func (m *Memory) AddPreshared(identity string, keys entityauth.PresharedKeys) error {
	if identity == "" {
		return fmt.Errorf("keystore: empty identity")
	}
	if keys.Encryption.Algorithm() != primitive.AES {
		return fmt.Errorf("keystore: %q: encryption key must be AES", identity)
	}
	if keys.HMAC.Algorithm() != primitive.HMACSHA256 {
		return fmt.Errorf("keystore: %q: HMAC key must be HMAC-SHA256", identity)
	}
	if !keys.Wrapping.IsZero() && keys.Wrapping.Algorithm() != primitive.AESKW {
		return fmt.Errorf("keystore: %q: wrapping key must be AES key wrap", identity)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preshared[identity] = keys
	return nil
}

// AddPublicKey adds or replaces a public key and returns the id it was
// stored under. An empty id stores the key under its Fingerprint.
func (m *Memory) AddPublicKey(id string, key crypto.PublicKey) (string, error) {
	if id == "" {
		var err error
		id, err = Fingerprint(key)
		if err != nil {
			return "", err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publicKeys[id] = key
	return id, nil
}

// PresharedKeys implements entityauth.PresharedStore.
func (m *Memory) PresharedKeys(identity string) (entityauth.PresharedKeys, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys, ok := m.preshared[identity]
	return keys, ok
}

// PublicKey implements entityauth.PublicKeyStore.
func (m *Memory) PublicKey(id string) (crypto.PublicKey, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key, ok := m.publicKeys[id]
	return key, ok
}

// Identities returns the pre-shared identities in sorted order.
func (m *Memory) Identities() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	identities := make([]string, 0, len(m.preshared))
	for identity := range m.preshared {
		identities = append(identities, identity)
	}
	slices.Sort(identities)
	return identities
}

// PublicKeyIDs returns the public key ids in sorted order.
func (m *Memory) PublicKeyIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.publicKeys))
	for id := range m.publicKeys {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
