// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wrapkey derives the AES key-wrap key that protects the first
// session-key exchange for pre-shared and model-group entities.
//
// The derivation is two chained HMAC-SHA256 rounds over fixed
// constants:
//
//	intermediate = HMAC-SHA256(key=salt, encryptionKey || hmacKey)
//	wrapKey      = HMAC-SHA256(key=intermediate, info)[:16]
//
// The first round is exactly HKDF-Extract (RFC 5869) and is computed
// with golang.org/x/crypto/hkdf. The output must be byte-identical
// across every implementation that shares the constants, so salt and
// info are bound to [Version]. Changing either one means a new
// version, never an edit in place.
package wrapkey

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/hkdf"

	"github.com/bureau-foundation/msl/lib/mslerror"
)

// Version identifies the salt and info constants below.
const Version = 1

// KeyLength is the length of the derived key in bytes.
const KeyLength = 16

var (
	salt = []byte{
		0x02, 0x76, 0x17, 0x98, 0x4f, 0x62, 0x27, 0x53,
		0x9a, 0x63, 0x0b, 0x89, 0x7c, 0x01, 0x7d, 0x69,
	}
	info = []byte{
		0x80, 0x9f, 0x82, 0xa7, 0xad, 0xdf, 0x54, 0x8d,
		0x3e, 0xa9, 0xdd, 0x06, 0x7f, 0xf9, 0xbb, 0x91,
	}
)

// Derive returns the 16-byte wrapping key for the given raw
// encryption and HMAC keys. Empty keys are rejected with
// INVALID_ENCRYPTION_KEY or INVALID_HMAC_KEY.
func Derive(encryptionKey, hmacKey []byte) ([]byte, error) {
	if len(encryptionKey) == 0 {
		return nil, mslerror.New(mslerror.InvalidEncryptionKey, "wrapping key derivation: encryption key is empty")
	}
	if len(hmacKey) == 0 {
		return nil, mslerror.New(mslerror.InvalidHMACKey, "wrapping key derivation: HMAC key is empty")
	}

	bits := make([]byte, 0, len(encryptionKey)+len(hmacKey))
	bits = append(bits, encryptionKey...)
	bits = append(bits, hmacKey...)

	intermediate := hkdf.Extract(sha256.New, bits, salt)

	mac := hmac.New(sha256.New, intermediate)
	mac.Write(info)
	final := mac.Sum(nil)
	return final[:KeyLength], nil
}

// DeriveFromStrings decodes both keys from standard base64 and calls
// Derive. A key that fails to decode is reported with the key-specific
// import code.
func DeriveFromStrings(encryptionKey, hmacKey string) ([]byte, error) {
	encryption, err := base64.StdEncoding.DecodeString(encryptionKey)
	if err != nil {
		return nil, mslerror.Wrap(mslerror.InvalidEncryptionKey, err, "decoding encryption key")
	}
	signing, err := base64.StdEncoding.DecodeString(hmacKey)
	if err != nil {
		return nil, mslerror.Wrap(mslerror.InvalidHMACKey, err, "decoding HMAC key")
	}
	return Derive(encryption, signing)
}
