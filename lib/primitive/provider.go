// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package primitive

import (
	"bytes"
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
)

// Provider executes raw primitives over raw key material. Signature
// verification methods return false on mismatch rather than an error;
// errors are reserved for malformed inputs and engine faults.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Random returns n bytes from a cryptographically secure source.
	Random(n int) ([]byte, error)

	// HMACSHA256 computes HMAC-SHA256(key, data).
	HMACSHA256(key, data []byte) ([]byte, error)

	// AESCBCEncrypt encrypts plaintext with PKCS#7 padding.
	AESCBCEncrypt(key, iv, plaintext []byte) ([]byte, error)

	// AESCBCDecrypt decrypts and removes PKCS#7 padding.
	AESCBCDecrypt(key, iv, ciphertext []byte) ([]byte, error)

	// AESKeyWrap wraps key under kek (RFC 3394).
	AESKeyWrap(kek, key []byte) ([]byte, error)

	// AESKeyUnwrap unwraps and integrity-checks a wrapped key.
	AESKeyUnwrap(kek, wrapped []byte) ([]byte, error)

	// RSASignPKCS1v15 signs SHA-256(data).
	RSASignPKCS1v15(key *rsa.PrivateKey, data []byte) ([]byte, error)

	// RSAVerifyPKCS1v15 verifies a signature over SHA-256(data).
	RSAVerifyPKCS1v15(key *rsa.PublicKey, data, signature []byte) bool

	// RSAEncryptOAEP encrypts with OAEP-SHA256.
	RSAEncryptOAEP(key *rsa.PublicKey, plaintext []byte) ([]byte, error)

	// RSADecryptOAEP decrypts with OAEP-SHA256.
	RSADecryptOAEP(key *rsa.PrivateKey, ciphertext []byte) ([]byte, error)

	// ECDSASign signs SHA-256(data) and returns an ASN.1 DER signature.
	ECDSASign(key *ecdsa.PrivateKey, data []byte) ([]byte, error)

	// ECDSAVerify verifies an ASN.1 DER signature over SHA-256(data).
	ECDSAVerify(key *ecdsa.PublicKey, data, signature []byte) bool

	// X25519 computes the shared secret between a 32-byte private
	// scalar and a 32-byte peer public key.
	X25519(private, peerPublic []byte) ([]byte, error)
}

// Default returns the in-process provider.
func Default() Provider { return standardProvider{} }

type standardProvider struct{}

func (standardProvider) Random(n int) ([]byte, error) {
	buffer := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
		return nil, fmt.Errorf("reading random bytes: %w", err)
	}
	return buffer, nil
}

func (standardProvider) HMACSHA256(key, data []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, errors.New("hmac key is empty")
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil), nil
}

func (standardProvider) AESCBCEncrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("iv has %d bytes, want %d", len(iv), aes.BlockSize)
	}
	padded := padPKCS7(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

func (standardProvider) AESCBCDecrypt(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("iv has %d bytes, want %d", len(iv), aes.BlockSize)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a positive multiple of %d", len(ciphertext), aes.BlockSize)
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return unpadPKCS7(plaintext, aes.BlockSize)
}

func (standardProvider) AESKeyWrap(kek, key []byte) ([]byte, error) {
	return keyWrap(kek, key)
}

func (standardProvider) AESKeyUnwrap(kek, wrapped []byte) ([]byte, error) {
	return keyUnwrap(kek, wrapped)
}

func (standardProvider) RSASignPKCS1v15(key *rsa.PrivateKey, data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	return rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
}

func (standardProvider) RSAVerifyPKCS1v15(key *rsa.PublicKey, data, signature []byte) bool {
	digest := sha256.Sum256(data)
	return rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], signature) == nil
}

func (standardProvider) RSAEncryptOAEP(key *rsa.PublicKey, plaintext []byte) ([]byte, error) {
	return rsa.EncryptOAEP(sha256.New(), rand.Reader, key, plaintext, nil)
}

func (standardProvider) RSADecryptOAEP(key *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	return rsa.DecryptOAEP(sha256.New(), rand.Reader, key, ciphertext, nil)
}

func (standardProvider) ECDSASign(key *ecdsa.PrivateKey, data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	return ecdsa.SignASN1(rand.Reader, key, digest[:])
}

func (standardProvider) ECDSAVerify(key *ecdsa.PublicKey, data, signature []byte) bool {
	digest := sha256.Sum256(data)
	return ecdsa.VerifyASN1(key, digest[:], signature)
}

func (standardProvider) X25519(private, peerPublic []byte) ([]byte, error) {
	return curve25519.X25519(private, peerPublic)
}

func padPKCS7(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	copy(padded[len(data):], bytes.Repeat([]byte{byte(padding)}, padding))
	return padded
}

func unpadPKCS7(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("padded data is empty")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, errors.New("invalid PKCS#7 padding")
	}
	for _, value := range data[len(data)-padding:] {
		if int(value) != padding {
			return nil, errors.New("invalid PKCS#7 padding")
		}
	}
	return data[:len(data)-padding], nil
}
