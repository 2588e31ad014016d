// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cryptocontext

import (
	"bytes"

	"github.com/bureau-foundation/msl/lib/primitive"
)

type nullContext struct{}

// Null returns the pass-through context: Encrypt, Decrypt and WrapKey
// return their input, Sign returns an empty signature and Verify
// accepts anything.
func Null() CryptoContext { return nullContext{} }

func (nullContext) Kind() Kind { return KindNull }

func (nullContext) Encrypt(plaintext []byte) ([]byte, error) { return bytes.Clone(plaintext), nil }

func (nullContext) Decrypt(ciphertext []byte) ([]byte, error) { return bytes.Clone(ciphertext), nil }

func (nullContext) WrapKey(key primitive.SecretKey) ([]byte, error) { return key.Material(), nil }

func (nullContext) UnwrapKey(wrapped []byte, algorithm primitive.Algorithm) (primitive.SecretKey, error) {
	return primitive.NewSecretKey(algorithm, wrapped)
}

func (nullContext) Sign([]byte) ([]byte, error) { return []byte{}, nil }

func (nullContext) Verify([]byte, []byte) (bool, error) { return true, nil }
