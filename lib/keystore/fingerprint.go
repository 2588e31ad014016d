// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keystore

import (
	"crypto"
	"crypto/x509"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// fingerprintDomainKey separates public key fingerprints from every
// other BLAKE3 use. ASCII, zero-padded to 32 bytes.
var fingerprintDomainKey = [32]byte{
	'm', 's', 'l', '.', 'k', 'e', 'y', 's', 't', 'o', 'r', 'e', '.',
	'p', 'u', 'b', 'l', 'i', 'c', '-', 'k', 'e', 'y',
}

// Fingerprint returns the hex BLAKE3 keyed hash of the key's SPKI DER
// encoding. It is the default key id for public keys.
func Fingerprint(key crypto.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return "", fmt.Errorf("keystore: fingerprinting %T: %w", key, err)
	}
	hasher, err := blake3.NewKeyed(fingerprintDomainKey[:])
	if err != nil {
		panic("keystore: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(der)
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
