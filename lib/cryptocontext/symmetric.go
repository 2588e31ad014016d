// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cryptocontext

import (
	"crypto/hmac"

	"github.com/bureau-foundation/msl/lib/codec"
	"github.com/bureau-foundation/msl/lib/mslerror"
	"github.com/bureau-foundation/msl/lib/primitive"
)

// envelopeVersion is the only ciphertext envelope version Decrypt
// accepts.
const envelopeVersion = 1

const ivSize = 16

// ciphertextEnvelope is the encoded output of Symmetric.Encrypt.
type ciphertextEnvelope struct {
	Version    *int    `json:"version"`
	KeyID      *string `json:"keyid"`
	IV         []byte  `json:"iv"`
	Ciphertext []byte  `json:"ciphertext"`
}

// SymmetricKeys is the key set of a symmetric context. Any key may be
// zero; operations needing it then report *_NOT_SUPPORTED.
type SymmetricKeys struct {
	Encryption primitive.SecretKey
	HMAC       primitive.SecretKey
	Wrapping   primitive.SecretKey
}

// Symmetric is an AES-CBC / HMAC-SHA256 / AES-KW context.
type Symmetric struct {
	provider primitive.Provider
	id       string
	keys     SymmetricKeys
}

// NewSymmetric returns a symmetric context identified by id. The id is
// written into every ciphertext envelope. Each non-zero key must carry
// the algorithm for its slot. A nil provider selects
// primitive.Default.
func NewSymmetric(provider primitive.Provider, id string, keys SymmetricKeys) (*Symmetric, error) {
	if !keys.Encryption.IsZero() && keys.Encryption.Algorithm() != primitive.AES {
		return nil, mslerror.New(mslerror.InvalidEncryptionKey, "context %q: encryption key is %s", id, keys.Encryption.Algorithm())
	}
	if !keys.HMAC.IsZero() && keys.HMAC.Algorithm() != primitive.HMACSHA256 {
		return nil, mslerror.New(mslerror.InvalidHMACKey, "context %q: HMAC key is %s", id, keys.HMAC.Algorithm())
	}
	if !keys.Wrapping.IsZero() && keys.Wrapping.Algorithm() != primitive.AESKW {
		return nil, mslerror.New(mslerror.InvalidWrappingKey, "context %q: wrapping key is %s", id, keys.Wrapping.Algorithm())
	}
	return &Symmetric{provider: providerOrDefault(provider), id: id, keys: keys}, nil
}

// NewWrap returns a symmetric context holding only an AES key-wrap key.
func NewWrap(provider primitive.Provider, id string, wrappingKey primitive.SecretKey) (*Symmetric, error) {
	return NewSymmetric(provider, id, SymmetricKeys{Wrapping: wrappingKey})
}

// ID returns the key identifier written into ciphertext envelopes.
func (context *Symmetric) ID() string { return context.id }

// Kind returns KindSymmetric.
func (context *Symmetric) Kind() Kind { return KindSymmetric }

// Keys returns the context's key set.
func (context *Symmetric) Keys() SymmetricKeys { return context.keys }

// Encrypt encrypts plaintext under a fresh random IV and returns the
// CBOR ciphertext envelope.
func (context *Symmetric) Encrypt(plaintext []byte) ([]byte, error) {
	if context.keys.Encryption.IsZero() {
		return nil, mslerror.New(mslerror.EncryptNotSupported, "context %q has no encryption key", context.id)
	}
	iv, err := context.provider.Random(ivSize)
	if err != nil {
		return nil, mslerror.Wrap(mslerror.RandomError, err, "generating iv")
	}
	ciphertext, err := context.provider.AESCBCEncrypt(context.keys.Encryption.Material(), iv, plaintext)
	if err != nil {
		return nil, mslerror.Wrap(mslerror.EncryptError, err, "context %q", context.id)
	}

	version := envelopeVersion
	keyID := context.id
	encoded, err := codec.Marshal(codec.CBOR, ciphertextEnvelope{
		Version:    &version,
		KeyID:      &keyID,
		IV:         iv,
		Ciphertext: ciphertext,
	})
	if err != nil {
		return nil, mslerror.Wrap(mslerror.EncryptError, err, "encoding ciphertext envelope")
	}
	return encoded, nil
}

// Decrypt parses a ciphertext envelope produced by Encrypt under the
// same key id and decrypts it.
func (context *Symmetric) Decrypt(data []byte) ([]byte, error) {
	if context.keys.Encryption.IsZero() {
		return nil, mslerror.New(mslerror.DecryptNotSupported, "context %q has no encryption key", context.id)
	}
	var envelope ciphertextEnvelope
	if err := codec.Unmarshal(codec.CBOR, data, &envelope, "ciphertext envelope"); err != nil {
		return nil, mslerror.Wrap(mslerror.CiphertextEnvelopeInvalid, err, "context %q", context.id)
	}
	switch {
	case envelope.Version == nil || envelope.KeyID == nil || envelope.IV == nil || envelope.Ciphertext == nil:
		return nil, mslerror.New(mslerror.CiphertextEnvelopeInvalid, "context %q: envelope is incomplete", context.id)
	case *envelope.Version != envelopeVersion:
		return nil, mslerror.New(mslerror.CiphertextEnvelopeInvalid, "context %q: envelope version %d", context.id, *envelope.Version)
	case *envelope.KeyID != context.id:
		return nil, mslerror.New(mslerror.CiphertextEnvelopeInvalid, "context %q: envelope key id %q", context.id, *envelope.KeyID)
	}
	plaintext, err := context.provider.AESCBCDecrypt(context.keys.Encryption.Material(), envelope.IV, envelope.Ciphertext)
	if err != nil {
		return nil, mslerror.Wrap(mslerror.DecryptError, err, "context %q", context.id)
	}
	return plaintext, nil
}

// WrapKey wraps key with AES key wrap.
func (context *Symmetric) WrapKey(key primitive.SecretKey) ([]byte, error) {
	if context.keys.Wrapping.IsZero() {
		return nil, mslerror.New(mslerror.WrapNotSupported, "context %q has no wrapping key", context.id)
	}
	wrapped, err := context.provider.AESKeyWrap(context.keys.Wrapping.Material(), key.Material())
	if err != nil {
		return nil, mslerror.Wrap(mslerror.WrapError, err, "context %q", context.id)
	}
	return wrapped, nil
}

// UnwrapKey unwraps a key produced by WrapKey.
func (context *Symmetric) UnwrapKey(wrapped []byte, algorithm primitive.Algorithm) (primitive.SecretKey, error) {
	if context.keys.Wrapping.IsZero() {
		return primitive.SecretKey{}, mslerror.New(mslerror.UnwrapNotSupported, "context %q has no wrapping key", context.id)
	}
	material, err := context.provider.AESKeyUnwrap(context.keys.Wrapping.Material(), wrapped)
	if err != nil {
		return primitive.SecretKey{}, mslerror.Wrap(mslerror.UnwrapError, err, "context %q", context.id)
	}
	return primitive.NewSecretKey(algorithm, material)
}

// Sign returns HMAC-SHA256(hmacKey, data).
func (context *Symmetric) Sign(data []byte) ([]byte, error) {
	if context.keys.HMAC.IsZero() {
		return nil, mslerror.New(mslerror.SignNotSupported, "context %q has no HMAC key", context.id)
	}
	mac, err := context.provider.HMACSHA256(context.keys.HMAC.Material(), data)
	if err != nil {
		return nil, mslerror.Wrap(mslerror.HMACError, err, "context %q", context.id)
	}
	return mac, nil
}

// Verify recomputes the HMAC and compares in constant time.
func (context *Symmetric) Verify(data, signature []byte) (bool, error) {
	if context.keys.HMAC.IsZero() {
		return false, mslerror.New(mslerror.VerifyNotSupported, "context %q has no HMAC key", context.id)
	}
	mac, err := context.provider.HMACSHA256(context.keys.HMAC.Material(), data)
	if err != nil {
		return false, mslerror.Wrap(mslerror.HMACError, err, "context %q", context.id)
	}
	return hmac.Equal(mac, signature), nil
}
