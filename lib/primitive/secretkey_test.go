// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package primitive

import (
	"bytes"
	"testing"
)

func TestSecretKeyCopiesMaterial(t *testing.T) {
	material := bytes.Repeat([]byte{0x01}, 16)
	key, err := NewSecretKey(AES, material)
	if err != nil {
		t.Fatalf("NewSecretKey: %v", err)
	}

	material[0] = 0xff
	if key.Material()[0] != 0x01 {
		t.Fatal("mutating the input changed the key")
	}

	exported := key.Material()
	exported[1] = 0xff
	if key.Material()[1] != 0x01 {
		t.Fatal("mutating Material() output changed the key")
	}
}

func TestSecretKeyZeroValue(t *testing.T) {
	var key SecretKey
	if !key.IsZero() {
		t.Fatal("zero SecretKey is not IsZero")
	}
	if key.Material() != nil {
		t.Fatal("zero SecretKey has material")
	}
}

func TestSecretKeyEqual(t *testing.T) {
	material := bytes.Repeat([]byte{0x07}, 32)
	aes, _ := NewSecretKey(AES, material)
	aesAgain, _ := NewSecretKey(AES, material)
	hmac, _ := NewSecretKey(HMACSHA256, material)

	if !aes.Equal(aesAgain) {
		t.Fatal("identical keys are not Equal")
	}
	if aes.Equal(hmac) {
		t.Fatal("keys with different algorithms are Equal")
	}
}

func TestGenerateSecretKeySizes(t *testing.T) {
	provider := Default()
	for algorithm, want := range map[Algorithm]int{
		AES:        AESKeySize,
		HMACSHA256: HMACKeySize,
		AESKW:      WrappingKeySize,
	} {
		key, err := GenerateSecretKey(provider, algorithm)
		if err != nil {
			t.Fatalf("GenerateSecretKey(%s): %v", algorithm, err)
		}
		if key.Len() != want || key.Algorithm() != algorithm {
			t.Fatalf("GenerateSecretKey(%s) = %s/%d bytes, want %d", algorithm, key.Algorithm(), key.Len(), want)
		}
	}
}
