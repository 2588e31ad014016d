// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package issuer

import (
	"sync"
	"time"
)

// Revocations is a thread-safe set of revoked master token serial
// numbers. Revoking a serial number revokes the whole lineage: the
// issuer refuses to renew or validate any token carrying it.
//
// Each entry carries the time after which no token of the lineage can
// still be valid (the newest token's expiration). Cleanup drops
// entries past that time, since expired tokens are rejected anyway.
type Revocations struct {
	mu      sync.RWMutex
	entries map[int64]time.Time
}

// NewRevocations creates an empty revocation set.
func NewRevocations() *Revocations {
	return &Revocations{
		entries: make(map[int64]time.Time),
	}
}

// Revoke adds a serial number. Revoking an already revoked serial
// number keeps the later of the two expiry times.
func (r *Revocations) Revoke(serialNumber int64, lineageExpiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entries[serialNumber]; ok && existing.After(lineageExpiresAt) {
		return
	}
	r.entries[serialNumber] = lineageExpiresAt
}

// IsRevoked reports whether a serial number has been revoked.
func (r *Revocations) IsRevoked(serialNumber int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.entries[serialNumber]
	return exists
}

// Cleanup removes entries whose lineage has expired at now and returns
// how many were removed.
func (r *Revocations) Cleanup(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for serialNumber, expiresAt := range r.entries {
		if !now.Before(expiresAt) {
			delete(r.entries, serialNumber)
			removed++
		}
	}
	return removed
}

// Len returns the number of revoked serial numbers.
func (r *Revocations) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
