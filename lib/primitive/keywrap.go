// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package primitive

import (
	"crypto/aes"
	"errors"
	"fmt"

	josecipher "github.com/go-jose/go-jose/v4/cipher"
)

// RFC 3394 needs at least two 64-bit blocks of key data. The wrapped
// form carries one more block for the integrity value.
const (
	minimumWrapInput   = 16
	minimumUnwrapInput = minimumWrapInput + 8
)

var errKeyWrapLength = errors.New("key wrap input must be at least 16 bytes and a multiple of 8")

// keyWrap wraps key under kek with RFC 3394 AES key wrap.
func keyWrap(kek, key []byte) ([]byte, error) {
	if len(key) < minimumWrapInput || len(key)%8 != 0 {
		return nil, errKeyWrapLength
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}
	return josecipher.KeyWrap(block, key)
}

// keyUnwrap reverses keyWrap and checks the RFC 3394 integrity value.
func keyUnwrap(kek, wrapped []byte) ([]byte, error) {
	if len(wrapped) < minimumUnwrapInput || len(wrapped)%8 != 0 {
		return nil, errKeyWrapLength
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}
	return josecipher.KeyUnwrap(block, wrapped)
}
