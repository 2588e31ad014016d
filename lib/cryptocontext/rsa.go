// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cryptocontext

import (
	"crypto/rsa"
	"fmt"

	"github.com/bureau-foundation/msl/lib/mslerror"
	"github.com/bureau-foundation/msl/lib/primitive"
)

// RSAMode selects which capability pair an RSA context offers. An RSA
// key pair is never used for more than one purpose.
type RSAMode uint8

const (
	// RSAEncrypt offers Encrypt/Decrypt with OAEP-SHA256.
	RSAEncrypt RSAMode = iota + 1

	// RSAWrap offers WrapKey/UnwrapKey with OAEP-SHA256.
	RSAWrap

	// RSASign offers Sign/Verify with PKCS#1 v1.5 SHA-256.
	RSASign
)

func (mode RSAMode) String() string {
	switch mode {
	case RSAEncrypt:
		return "encrypt"
	case RSAWrap:
		return "wrap"
	case RSASign:
		return "sign"
	default:
		return fmt.Sprintf("unknown(%d)", mode)
	}
}

// RSA is an asymmetric RSA context.
type RSA struct {
	provider primitive.Provider
	id       string
	private  *rsa.PrivateKey
	public   *rsa.PublicKey
	mode     RSAMode
}

// NewRSA returns an RSA context. Either key may be nil; when only the
// private key is given, the public half is taken from it.
func NewRSA(provider primitive.Provider, id string, private *rsa.PrivateKey, public *rsa.PublicKey, mode RSAMode) (*RSA, error) {
	switch mode {
	case RSAEncrypt, RSAWrap, RSASign:
	default:
		return nil, mslerror.New(mslerror.InvalidPublicKey, "context %q: unknown RSA mode %s", id, mode)
	}
	if public == nil && private != nil {
		public = &private.PublicKey
	}
	return &RSA{provider: providerOrDefault(provider), id: id, private: private, public: public, mode: mode}, nil
}

// ID returns the context identifier.
func (context *RSA) ID() string { return context.id }

// Kind returns KindRSA.
func (context *RSA) Kind() Kind { return KindRSA }

// Mode returns the capability pair the context offers.
func (context *RSA) Mode() RSAMode { return context.mode }

func (context *RSA) Encrypt(plaintext []byte) ([]byte, error) {
	if context.mode != RSAEncrypt || context.public == nil {
		return nil, mslerror.New(mslerror.EncryptNotSupported, "context %q (%s)", context.id, context.mode)
	}
	ciphertext, err := context.provider.RSAEncryptOAEP(context.public, plaintext)
	if err != nil {
		return nil, mslerror.Wrap(mslerror.EncryptError, err, "context %q", context.id)
	}
	return ciphertext, nil
}

func (context *RSA) Decrypt(ciphertext []byte) ([]byte, error) {
	if context.mode != RSAEncrypt || context.private == nil {
		return nil, mslerror.New(mslerror.DecryptNotSupported, "context %q (%s)", context.id, context.mode)
	}
	plaintext, err := context.provider.RSADecryptOAEP(context.private, ciphertext)
	if err != nil {
		return nil, mslerror.Wrap(mslerror.DecryptError, err, "context %q", context.id)
	}
	return plaintext, nil
}

func (context *RSA) WrapKey(key primitive.SecretKey) ([]byte, error) {
	if context.mode != RSAWrap || context.public == nil {
		return nil, mslerror.New(mslerror.WrapNotSupported, "context %q (%s)", context.id, context.mode)
	}
	wrapped, err := context.provider.RSAEncryptOAEP(context.public, key.Material())
	if err != nil {
		return nil, mslerror.Wrap(mslerror.WrapError, err, "context %q", context.id)
	}
	return wrapped, nil
}

func (context *RSA) UnwrapKey(wrapped []byte, algorithm primitive.Algorithm) (primitive.SecretKey, error) {
	if context.mode != RSAWrap || context.private == nil {
		return primitive.SecretKey{}, mslerror.New(mslerror.UnwrapNotSupported, "context %q (%s)", context.id, context.mode)
	}
	material, err := context.provider.RSADecryptOAEP(context.private, wrapped)
	if err != nil {
		return primitive.SecretKey{}, mslerror.Wrap(mslerror.UnwrapError, err, "context %q", context.id)
	}
	return primitive.NewSecretKey(algorithm, material)
}

func (context *RSA) Sign(data []byte) ([]byte, error) {
	if context.mode != RSASign || context.private == nil {
		return nil, mslerror.New(mslerror.SignNotSupported, "context %q (%s)", context.id, context.mode)
	}
	signature, err := context.provider.RSASignPKCS1v15(context.private, data)
	if err != nil {
		return nil, mslerror.Wrap(mslerror.SignatureError, err, "context %q", context.id)
	}
	return signature, nil
}

func (context *RSA) Verify(data, signature []byte) (bool, error) {
	if context.mode != RSASign || context.public == nil {
		return false, mslerror.New(mslerror.VerifyNotSupported, "context %q (%s)", context.id, context.mode)
	}
	return context.provider.RSAVerifyPKCS1v15(context.public, data, signature), nil
}
