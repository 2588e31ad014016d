// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package primitive

import (
	"crypto/subtle"
	"fmt"

	"github.com/bureau-foundation/msl/lib/mslerror"
)

// Algorithm identifies what a SecretKey may be used for.
type Algorithm uint8

const (
	// AES is a content-encryption key (AES-CBC).
	AES Algorithm = iota + 1

	// HMACSHA256 is a message-authentication key.
	HMACSHA256

	// AESKW is an AES key-wrap key (RFC 3394).
	AESKW
)

// String returns the algorithm name used in key-store files.
func (algorithm Algorithm) String() string {
	switch algorithm {
	case AES:
		return "AES"
	case HMACSHA256:
		return "HmacSHA256"
	case AESKW:
		return "AESWrap"
	default:
		return fmt.Sprintf("unknown(%d)", algorithm)
	}
}

// invalidCode maps an algorithm to the import-failure code callers
// observe when key material for it is rejected.
func (algorithm Algorithm) invalidCode() mslerror.Code {
	switch algorithm {
	case HMACSHA256:
		return mslerror.InvalidHMACKey
	case AESKW:
		return mslerror.InvalidWrappingKey
	default:
		return mslerror.InvalidEncryptionKey
	}
}

// Default key lengths used when generating fresh keys.
const (
	AESKeySize        = 16
	HMACKeySize       = 32
	WrappingKeySize   = 16
	minimumHMACKeyLen = 16
)

// SecretKey is an immutable symmetric key handle. The zero value is
// the absent key: crypto contexts treat it as "no key configured".
type SecretKey struct {
	algorithm Algorithm
	material  []byte
}

// NewSecretKey validates material for algorithm and returns a handle
// holding a private copy of it. AES and AES key-wrap keys must be 16,
// 24 or 32 bytes; HMAC keys at least 16 bytes.
func NewSecretKey(algorithm Algorithm, material []byte) (SecretKey, error) {
	switch algorithm {
	case AES, AESKW:
		switch len(material) {
		case 16, 24, 32:
		default:
			return SecretKey{}, mslerror.New(algorithm.invalidCode(),
				"%s key has %d bytes, want 16, 24 or 32", algorithm, len(material))
		}
	case HMACSHA256:
		if len(material) < minimumHMACKeyLen {
			return SecretKey{}, mslerror.New(mslerror.InvalidHMACKey,
				"HMAC key has %d bytes, want at least %d", len(material), minimumHMACKeyLen)
		}
	default:
		return SecretKey{}, mslerror.New(mslerror.InvalidEncryptionKey, "unknown key algorithm %s", algorithm)
	}

	owned := make([]byte, len(material))
	copy(owned, material)
	return SecretKey{algorithm: algorithm, material: owned}, nil
}

// GenerateSecretKey creates a fresh key of the default size for
// algorithm using the provider's random source.
func GenerateSecretKey(provider Provider, algorithm Algorithm) (SecretKey, error) {
	size := AESKeySize
	switch algorithm {
	case HMACSHA256:
		size = HMACKeySize
	case AESKW:
		size = WrappingKeySize
	}
	material, err := provider.Random(size)
	if err != nil {
		return SecretKey{}, mslerror.Wrap(mslerror.RandomError, err, "generating %s key", algorithm)
	}
	return NewSecretKey(algorithm, material)
}

// Algorithm returns the key's algorithm.
func (key SecretKey) Algorithm() Algorithm { return key.algorithm }

// IsZero reports whether key is the absent key.
func (key SecretKey) IsZero() bool { return len(key.material) == 0 }

// Len returns the key length in bytes.
func (key SecretKey) Len() int { return len(key.material) }

// Material returns a copy of the raw key bytes.
func (key SecretKey) Material() []byte {
	if key.material == nil {
		return nil
	}
	out := make([]byte, len(key.material))
	copy(out, key.material)
	return out
}

// Equal reports whether two keys have the same algorithm and material.
func (key SecretKey) Equal(other SecretKey) bool {
	if key.algorithm != other.algorithm {
		return false
	}
	return subtle.ConstantTimeCompare(key.material, other.material) == 1
}
