// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cryptocontext

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"github.com/bureau-foundation/msl/lib/mslerror"
	"github.com/bureau-foundation/msl/lib/primitive"
	"github.com/bureau-foundation/msl/lib/wrapkey"
)

// NewDerivedWrap returns a wrap-only symmetric context whose AES
// key-wrap key is wrapkey.Derive(encryptionKey, hmacKey). Pre-shared
// and model-group entities use it to protect the first exchange of
// session keys.
func NewDerivedWrap(provider primitive.Provider, id string, encryptionKey, hmacKey primitive.SecretKey) (*Symmetric, error) {
	derived, err := wrapkey.Derive(encryptionKey.Material(), hmacKey.Material())
	if err != nil {
		return nil, err
	}
	wrappingKey, err := primitive.NewSecretKey(primitive.AESKW, derived)
	if err != nil {
		return nil, mslerror.Wrap(mslerror.KeyDerivationError, err, "context %q", id)
	}
	return NewWrap(provider, id, wrappingKey)
}

// dhKeyInfo is the HKDF info string for splitting an X25519 shared
// secret into session keys.
var dhKeyInfo = []byte("msl/diffie-hellman/session-keys/v1")

// DiffieHellman is a symmetric context keyed from an X25519 agreement.
type DiffieHellman struct {
	*Symmetric
	localPublic []byte
}

// NewDiffieHellman computes the X25519 shared secret between
// localPrivate and peerPublic (32 bytes each) and expands it with
// HKDF-SHA256 into AES-128 encryption, HMAC-SHA256 and AES key-wrap
// keys. Both parties derive the same context.
func NewDiffieHellman(provider primitive.Provider, id string, localPrivate, peerPublic []byte) (*DiffieHellman, error) {
	provider = providerOrDefault(provider)
	if len(localPrivate) != curve25519.ScalarSize {
		return nil, mslerror.New(mslerror.InvalidPrivateKey, "X25519 private key has %d bytes, want %d", len(localPrivate), curve25519.ScalarSize)
	}
	if len(peerPublic) != curve25519.PointSize {
		return nil, mslerror.New(mslerror.InvalidPublicKey, "X25519 public key has %d bytes, want %d", len(peerPublic), curve25519.PointSize)
	}
	localPublic, err := curve25519.X25519(localPrivate, curve25519.Basepoint)
	if err != nil {
		return nil, mslerror.Wrap(mslerror.InvalidPrivateKey, err, "deriving X25519 public key")
	}
	shared, err := provider.X25519(localPrivate, peerPublic)
	if err != nil {
		// Low-order peer points produce an all-zero secret and are
		// rejected here.
		return nil, mslerror.Wrap(mslerror.KeyDerivationError, err, "X25519 agreement")
	}

	expanded := make([]byte, primitive.AESKeySize+primitive.HMACKeySize+primitive.WrappingKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, nil, dhKeyInfo), expanded); err != nil {
		return nil, mslerror.Wrap(mslerror.KeyDerivationError, err, "expanding shared secret")
	}
	encryption, err := primitive.NewSecretKey(primitive.AES, expanded[:primitive.AESKeySize])
	if err != nil {
		return nil, err
	}
	expanded = expanded[primitive.AESKeySize:]
	signing, err := primitive.NewSecretKey(primitive.HMACSHA256, expanded[:primitive.HMACKeySize])
	if err != nil {
		return nil, err
	}
	wrapping, err := primitive.NewSecretKey(primitive.AESKW, expanded[primitive.HMACKeySize:])
	if err != nil {
		return nil, err
	}

	symmetric, err := NewSymmetric(provider, id, SymmetricKeys{Encryption: encryption, HMAC: signing, Wrapping: wrapping})
	if err != nil {
		return nil, err
	}
	return &DiffieHellman{Symmetric: symmetric, localPublic: localPublic}, nil
}

// Kind returns KindDiffieHellman.
func (context *DiffieHellman) Kind() Kind { return KindDiffieHellman }

// LocalPublic returns this side's X25519 public key, for sending to
// the peer.
func (context *DiffieHellman) LocalPublic() []byte {
	out := make([]byte, len(context.localPublic))
	copy(out, context.localPublic)
	return out
}

// GenerateX25519 returns a fresh X25519 private scalar and its public
// key.
func GenerateX25519(provider primitive.Provider) (private, public []byte, err error) {
	private, err = providerOrDefault(provider).Random(curve25519.ScalarSize)
	if err != nil {
		return nil, nil, mslerror.Wrap(mslerror.RandomError, err, "generating X25519 key")
	}
	public, err = curve25519.X25519(private, curve25519.Basepoint)
	if err != nil {
		return nil, nil, mslerror.Wrap(mslerror.KeyDerivationError, err, "deriving X25519 public key")
	}
	return private, public, nil
}
