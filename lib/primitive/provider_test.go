// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package primitive

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"golang.org/x/crypto/curve25519"
)

func TestRandomLength(t *testing.T) {
	provider := Default()
	first, err := provider.Random(32)
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	second, err := provider.Random(32)
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	if len(first) != 32 || len(second) != 32 {
		t.Fatalf("Random lengths = %d, %d, want 32", len(first), len(second))
	}
	if bytes.Equal(first, second) {
		t.Fatal("two Random(32) calls returned identical bytes")
	}
}

func TestHMACSHA256(t *testing.T) {
	provider := Default()
	// RFC 4231 test case 2.
	mac, err := provider.HMACSHA256([]byte("Jefe"), []byte("what do ya want for nothing?"))
	if err != nil {
		t.Fatalf("HMACSHA256: %v", err)
	}
	want := mustHex(t, "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843")
	if !bytes.Equal(mac, want) {
		t.Fatalf("HMACSHA256 = %x, want %x", mac, want)
	}

	if _, err := provider.HMACSHA256(nil, []byte("data")); err == nil {
		t.Fatal("HMACSHA256 accepted an empty key")
	}
}

func TestAESCBCRoundTrip(t *testing.T) {
	provider := Default()
	key := bytes.Repeat([]byte{0x42}, 16)
	iv := bytes.Repeat([]byte{0x24}, 16)

	for _, size := range []int{0, 1, 15, 16, 17, 100} {
		plaintext := bytes.Repeat([]byte{0x5a}, size)
		ciphertext, err := provider.AESCBCEncrypt(key, iv, plaintext)
		if err != nil {
			t.Fatalf("AESCBCEncrypt(%d bytes): %v", size, err)
		}
		if len(ciphertext)%16 != 0 || len(ciphertext) <= size {
			t.Fatalf("ciphertext length %d for %d-byte plaintext", len(ciphertext), size)
		}
		decrypted, err := provider.AESCBCDecrypt(key, iv, ciphertext)
		if err != nil {
			t.Fatalf("AESCBCDecrypt(%d bytes): %v", size, err)
		}
		if !bytes.Equal(decrypted, plaintext) {
			t.Fatalf("round trip of %d bytes mismatched", size)
		}
	}
}

func TestAESCBCRejectsMalformedInput(t *testing.T) {
	provider := Default()
	key := bytes.Repeat([]byte{0x42}, 16)
	iv := bytes.Repeat([]byte{0x24}, 16)

	if _, err := provider.AESCBCEncrypt(key, iv[:8], []byte("x")); err == nil {
		t.Error("AESCBCEncrypt accepted a short iv")
	}
	if _, err := provider.AESCBCEncrypt(key[:5], iv, []byte("x")); err == nil {
		t.Error("AESCBCEncrypt accepted a 5-byte key")
	}
	if _, err := provider.AESCBCDecrypt(key, iv, make([]byte, 15)); err == nil {
		t.Error("AESCBCDecrypt accepted a partial block")
	}
	if _, err := provider.AESCBCDecrypt(key, iv, nil); err == nil {
		t.Error("AESCBCDecrypt accepted empty ciphertext")
	}
}

func TestUnpadPKCS7(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		want    []byte
		wantErr bool
	}{
		{name: "full block", input: bytes.Repeat([]byte{4}, 4), want: []byte{}},
		{name: "one byte", input: []byte{'a', 'b', 'c', 1}, want: []byte("abc")},
		{name: "zero pad", input: []byte{'a', 'b', 'c', 0}, wantErr: true},
		{name: "too large", input: []byte{'a', 'b', 'c', 5}, wantErr: true},
		{name: "inconsistent", input: []byte{'a', 'b', 3, 2}, wantErr: true},
		{name: "empty", input: nil, wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := unpadPKCS7(test.input, 4)
			if test.wantErr {
				if err == nil {
					t.Fatalf("unpadPKCS7(%v) succeeded, want error", test.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unpadPKCS7: %v", err)
			}
			if !bytes.Equal(got, test.want) {
				t.Fatalf("unpadPKCS7 = %v, want %v", got, test.want)
			}
		})
	}
}

func TestRSASignVerify(t *testing.T) {
	provider := Default()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	data := []byte("token data")

	signature, err := provider.RSASignPKCS1v15(key, data)
	if err != nil {
		t.Fatalf("RSASignPKCS1v15: %v", err)
	}
	if !provider.RSAVerifyPKCS1v15(&key.PublicKey, data, signature) {
		t.Fatal("valid signature did not verify")
	}
	if provider.RSAVerifyPKCS1v15(&key.PublicKey, []byte("other data"), signature) {
		t.Fatal("signature verified over different data")
	}

	ciphertext, err := provider.RSAEncryptOAEP(&key.PublicKey, data)
	if err != nil {
		t.Fatalf("RSAEncryptOAEP: %v", err)
	}
	plaintext, err := provider.RSADecryptOAEP(key, ciphertext)
	if err != nil {
		t.Fatalf("RSADecryptOAEP: %v", err)
	}
	if !bytes.Equal(plaintext, data) {
		t.Fatalf("OAEP round trip = %q, want %q", plaintext, data)
	}
}

func TestECDSASignVerify(t *testing.T) {
	provider := Default()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	data := []byte("entity auth data")

	signature, err := provider.ECDSASign(key, data)
	if err != nil {
		t.Fatalf("ECDSASign: %v", err)
	}
	if !provider.ECDSAVerify(&key.PublicKey, data, signature) {
		t.Fatal("valid signature did not verify")
	}
	signature[len(signature)-1] ^= 0x01
	if provider.ECDSAVerify(&key.PublicKey, data, signature) {
		t.Fatal("tampered signature verified")
	}
}

func TestX25519Agreement(t *testing.T) {
	provider := Default()
	alicePrivate, _ := provider.Random(32)
	bobPrivate, _ := provider.Random(32)

	alicePublic, err := curve25519.X25519(alicePrivate, curve25519.Basepoint)
	if err != nil {
		t.Fatalf("deriving public key: %v", err)
	}
	bobPublic, err := curve25519.X25519(bobPrivate, curve25519.Basepoint)
	if err != nil {
		t.Fatalf("deriving public key: %v", err)
	}

	aliceShared, err := provider.X25519(alicePrivate, bobPublic)
	if err != nil {
		t.Fatalf("X25519: %v", err)
	}
	bobShared, err := provider.X25519(bobPrivate, alicePublic)
	if err != nil {
		t.Fatalf("X25519: %v", err)
	}
	if !bytes.Equal(aliceShared, bobShared) {
		t.Fatal("shared secrets differ")
	}
}
