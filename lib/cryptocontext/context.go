// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cryptocontext

import (
	"fmt"

	"github.com/bureau-foundation/msl/lib/primitive"
)

// Kind identifies the algorithm family of a CryptoContext.
type Kind uint8

const (
	KindSymmetric Kind = iota + 1
	KindRSA
	KindECC
	KindDiffieHellman
	KindNull
)

func (kind Kind) String() string {
	switch kind {
	case KindSymmetric:
		return "symmetric"
	case KindRSA:
		return "rsa"
	case KindECC:
		return "ecc"
	case KindDiffieHellman:
		return "diffie-hellman"
	case KindNull:
		return "null"
	default:
		return fmt.Sprintf("unknown(%d)", kind)
	}
}

// CryptoContext is the capability set every token operation goes
// through. See the package documentation for the error contract.
type CryptoContext interface {
	// Kind reports the algorithm family.
	Kind() Kind

	// Encrypt protects plaintext for confidentiality.
	Encrypt(plaintext []byte) ([]byte, error)

	// Decrypt reverses Encrypt.
	Decrypt(ciphertext []byte) ([]byte, error)

	// WrapKey encrypts a secret key for transport.
	WrapKey(key primitive.SecretKey) ([]byte, error)

	// UnwrapKey reverses WrapKey, tagging the recovered material with
	// algorithm.
	UnwrapKey(wrapped []byte, algorithm primitive.Algorithm) (primitive.SecretKey, error)

	// Sign produces a signature over data.
	Sign(data []byte) ([]byte, error)

	// Verify checks signature over data. A mismatch is false, nil.
	Verify(data, signature []byte) (bool, error)
}

func providerOrDefault(provider primitive.Provider) primitive.Provider {
	if provider == nil {
		return primitive.Default()
	}
	return provider
}
