// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cryptocontext

import (
	"crypto/ecdsa"

	"github.com/bureau-foundation/msl/lib/mslerror"
	"github.com/bureau-foundation/msl/lib/primitive"
)

// ECC is an ECDSA signing context. It cannot encrypt or wrap.
type ECC struct {
	provider primitive.Provider
	id       string
	private  *ecdsa.PrivateKey
	public   *ecdsa.PublicKey
}

// NewECC returns an ECDSA context. Either key may be nil; when only
// the private key is given, the public half is taken from it.
func NewECC(provider primitive.Provider, id string, private *ecdsa.PrivateKey, public *ecdsa.PublicKey) *ECC {
	if public == nil && private != nil {
		public = &private.PublicKey
	}
	return &ECC{provider: providerOrDefault(provider), id: id, private: private, public: public}
}

// ID returns the context identifier.
func (context *ECC) ID() string { return context.id }

// Kind returns KindECC.
func (context *ECC) Kind() Kind { return KindECC }

func (context *ECC) Encrypt([]byte) ([]byte, error) {
	return nil, mslerror.New(mslerror.EncryptNotSupported, "context %q: ECDSA cannot encrypt", context.id)
}

func (context *ECC) Decrypt([]byte) ([]byte, error) {
	return nil, mslerror.New(mslerror.DecryptNotSupported, "context %q: ECDSA cannot decrypt", context.id)
}

func (context *ECC) WrapKey(primitive.SecretKey) ([]byte, error) {
	return nil, mslerror.New(mslerror.WrapNotSupported, "context %q: ECDSA cannot wrap", context.id)
}

func (context *ECC) UnwrapKey([]byte, primitive.Algorithm) (primitive.SecretKey, error) {
	return primitive.SecretKey{}, mslerror.New(mslerror.UnwrapNotSupported, "context %q: ECDSA cannot unwrap", context.id)
}

// Sign returns an ASN.1 DER ECDSA signature over SHA-256(data).
func (context *ECC) Sign(data []byte) ([]byte, error) {
	if context.private == nil {
		return nil, mslerror.New(mslerror.SignNotSupported, "context %q has no private key", context.id)
	}
	signature, err := context.provider.ECDSASign(context.private, data)
	if err != nil {
		return nil, mslerror.Wrap(mslerror.SignatureError, err, "context %q", context.id)
	}
	return signature, nil
}

func (context *ECC) Verify(data, signature []byte) (bool, error) {
	if context.public == nil {
		return false, mslerror.New(mslerror.VerifyNotSupported, "context %q has no public key", context.id)
	}
	return context.provider.ECDSAVerify(context.public, data, signature), nil
}
