// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cryptocontext

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"sync"
	"testing"

	"github.com/bureau-foundation/msl/lib/mslerror"
	"github.com/bureau-foundation/msl/lib/primitive"
)

func mustSecret(t *testing.T, algorithm primitive.Algorithm, fill byte, size int) primitive.SecretKey {
	t.Helper()
	key, err := primitive.NewSecretKey(algorithm, bytes.Repeat([]byte{fill}, size))
	if err != nil {
		t.Fatalf("NewSecretKey(%s): %v", algorithm, err)
	}
	return key
}

func newTestSymmetric(t *testing.T, id string, fill byte) *Symmetric {
	t.Helper()
	context, err := NewSymmetric(nil, id, SymmetricKeys{
		Encryption: mustSecret(t, primitive.AES, fill, 16),
		HMAC:       mustSecret(t, primitive.HMACSHA256, fill+1, 32),
		Wrapping:   mustSecret(t, primitive.AESKW, fill+2, 16),
	})
	if err != nil {
		t.Fatalf("NewSymmetric: %v", err)
	}
	return context
}

var (
	rsaOnce     sync.Once
	rsaKeyA     *rsa.PrivateKey
	rsaKeyB     *rsa.PrivateKey
	rsaKeyError error
)

// testRSAKeys generates two 2048-bit keys once per test binary.
func testRSAKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	rsaOnce.Do(func() {
		rsaKeyA, rsaKeyError = rsa.GenerateKey(rand.Reader, 2048)
		if rsaKeyError != nil {
			return
		}
		rsaKeyB, rsaKeyError = rsa.GenerateKey(rand.Reader, 2048)
	})
	if rsaKeyError != nil {
		t.Fatalf("generating RSA keys: %v", rsaKeyError)
	}
	return rsaKeyA, rsaKeyB
}

func testECDSAKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating ECDSA key: %v", err)
	}
	return key
}

// signers returns a pair of independent signing contexts per family.
func signers(t *testing.T) map[string][2]CryptoContext {
	keyA, keyB := testRSAKeys(t)
	rsaA, err := NewRSA(nil, "rsa-a", keyA, nil, RSASign)
	if err != nil {
		t.Fatalf("NewRSA: %v", err)
	}
	rsaB, err := NewRSA(nil, "rsa-b", keyB, nil, RSASign)
	if err != nil {
		t.Fatalf("NewRSA: %v", err)
	}

	alicePrivate, _, err := GenerateX25519(nil)
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	bobPrivate, bobPublic, err := GenerateX25519(nil)
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	_, carolPublic, err := GenerateX25519(nil)
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	dhA, err := NewDiffieHellman(nil, "dh", alicePrivate, bobPublic)
	if err != nil {
		t.Fatalf("NewDiffieHellman: %v", err)
	}
	dhB, err := NewDiffieHellman(nil, "dh", bobPrivate, carolPublic)
	if err != nil {
		t.Fatalf("NewDiffieHellman: %v", err)
	}
	return map[string][2]CryptoContext{
		"symmetric": {newTestSymmetric(t, "sym-a", 0x10), newTestSymmetric(t, "sym-b", 0x40)},
		"rsa":       {rsaA, rsaB},
		"ecc":       {NewECC(nil, "ecc-a", testECDSAKey(t), nil), NewECC(nil, "ecc-b", testECDSAKey(t), nil)},
		"dh":        {dhA, dhB},
	}
}

func TestSignVerifyProperties(t *testing.T) {
	messages := [][]byte{
		[]byte("first message"),
		[]byte("second message"),
		{},
		bytes.Repeat([]byte{0xab}, 4096),
	}

	for name, pair := range signers(t) {
		t.Run(name, func(t *testing.T) {
			contextA, contextB := pair[0], pair[1]
			for index, message := range messages {
				signature, err := contextA.Sign(message)
				if err != nil {
					t.Fatalf("Sign(message %d): %v", index, err)
				}

				ok, err := contextA.Verify(message, signature)
				if err != nil || !ok {
					t.Fatalf("Verify(message %d, own signature) = %v, %v; want true", index, ok, err)
				}

				other := messages[(index+1)%len(messages)]
				ok, err = contextA.Verify(other, signature)
				if err != nil || ok {
					t.Fatalf("Verify(other message, signature %d) = %v, %v; want false, nil", index, ok, err)
				}

				ok, err = contextB.Verify(message, signature)
				if err != nil || ok {
					t.Fatalf("other keypair Verify(message %d) = %v, %v; want false, nil", index, ok, err)
				}
			}
		})
	}
}

func TestMissingKeysReportCapabilityAbsent(t *testing.T) {
	keyA, _ := testRSAKeys(t)
	ecKey := testECDSAKey(t)

	rsaVerifyOnly, err := NewRSA(nil, "rsa", nil, &keyA.PublicKey, RSASign)
	if err != nil {
		t.Fatalf("NewRSA: %v", err)
	}
	rsaSignOnly := &RSA{provider: primitive.Default(), id: "rsa", private: keyA, mode: RSASign}
	eccVerifyOnly := NewECC(nil, "ecc", nil, &ecKey.PublicKey)
	eccSignOnly := &ECC{provider: primitive.Default(), id: "ecc", private: ecKey}
	hmacOnly, err := NewSymmetric(nil, "sym", SymmetricKeys{HMAC: mustSecret(t, primitive.HMACSHA256, 1, 32)})
	if err != nil {
		t.Fatalf("NewSymmetric: %v", err)
	}
	empty, err := NewSymmetric(nil, "sym", SymmetricKeys{})
	if err != nil {
		t.Fatalf("NewSymmetric: %v", err)
	}

	tests := []struct {
		name string
		call func() error
		want mslerror.Code
	}{
		{"rsa sign without private key", func() error { _, err := rsaVerifyOnly.Sign([]byte("x")); return err }, mslerror.SignNotSupported},
		{"rsa verify without public key", func() error { _, err := rsaSignOnly.Verify([]byte("x"), []byte("y")); return err }, mslerror.VerifyNotSupported},
		{"ecc sign without private key", func() error { _, err := eccVerifyOnly.Sign([]byte("x")); return err }, mslerror.SignNotSupported},
		{"ecc verify without public key", func() error { _, err := eccSignOnly.Verify([]byte("x"), []byte("y")); return err }, mslerror.VerifyNotSupported},
		{"ecc encrypt", func() error { _, err := eccVerifyOnly.Encrypt([]byte("x")); return err }, mslerror.EncryptNotSupported},
		{"ecc unwrap", func() error { _, err := eccVerifyOnly.UnwrapKey([]byte("x"), primitive.AES); return err }, mslerror.UnwrapNotSupported},
		{"rsa sign context encrypt", func() error { _, err := rsaVerifyOnly.Encrypt([]byte("x")); return err }, mslerror.EncryptNotSupported},
		{"rsa sign context wrap", func() error { _, err := rsaVerifyOnly.WrapKey(mustSecret(t, primitive.AES, 1, 16)); return err }, mslerror.WrapNotSupported},
		{"symmetric encrypt without key", func() error { _, err := hmacOnly.Encrypt([]byte("x")); return err }, mslerror.EncryptNotSupported},
		{"symmetric decrypt without key", func() error { _, err := hmacOnly.Decrypt([]byte("x")); return err }, mslerror.DecryptNotSupported},
		{"symmetric wrap without key", func() error { _, err := hmacOnly.WrapKey(mustSecret(t, primitive.AES, 1, 16)); return err }, mslerror.WrapNotSupported},
		{"symmetric sign without key", func() error { _, err := empty.Sign([]byte("x")); return err }, mslerror.SignNotSupported},
		{"symmetric verify without key", func() error { _, err := empty.Verify([]byte("x"), nil); return err }, mslerror.VerifyNotSupported},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.call()
			if !errors.Is(err, test.want) {
				t.Fatalf("error = %v, want %s", err, test.want)
			}
			if !mslerror.IsCapabilityAbsent(err) {
				t.Fatalf("IsCapabilityAbsent(%v) = false", err)
			}
			if mslerror.KindOf(err) != mslerror.KindCrypto {
				t.Fatalf("KindOf(%v) = %s, want crypto", err, mslerror.KindOf(err))
			}
		})
	}
}

func TestSymmetricEncryptDecrypt(t *testing.T) {
	context := newTestSymmetric(t, "issuer", 0x30)
	plaintext := []byte("session data")

	first, err := context.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	second, err := context.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Equal(first, second) {
		t.Fatal("two encryptions of the same plaintext are identical; iv is not random")
	}

	decrypted, err := context.Decrypt(first)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Fatalf("Decrypt = %q, want %q", decrypted, plaintext)
	}
}

func TestSymmetricDecryptRejectsForeignEnvelope(t *testing.T) {
	issuer := newTestSymmetric(t, "issuer", 0x30)
	other := newTestSymmetric(t, "other", 0x30)

	ciphertext, err := issuer.Encrypt([]byte("secret"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := other.Decrypt(ciphertext); !errors.Is(err, mslerror.CiphertextEnvelopeInvalid) {
		t.Fatalf("Decrypt with other key id: error = %v, want CIPHERTEXT_ENVELOPE_INVALID", err)
	}
	if _, err := issuer.Decrypt([]byte("not an envelope")); !errors.Is(err, mslerror.CiphertextEnvelopeInvalid) {
		t.Fatalf("Decrypt(garbage): error = %v, want CIPHERTEXT_ENVELOPE_INVALID", err)
	}
}

func TestSymmetricDecryptWrongKeyFails(t *testing.T) {
	issuer := newTestSymmetric(t, "issuer", 0x30)
	imposter := newTestSymmetric(t, "issuer", 0x50)

	ciphertext, err := issuer.Encrypt(bytes.Repeat([]byte("x"), 40))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	plaintext, err := imposter.Decrypt(ciphertext)
	if err == nil && bytes.Equal(plaintext, bytes.Repeat([]byte("x"), 40)) {
		t.Fatal("a different key recovered the plaintext")
	}
	if err != nil && !errors.Is(err, mslerror.DecryptError) {
		t.Fatalf("Decrypt with wrong key: error = %v, want DECRYPT_ERROR", err)
	}
}

func TestNewSymmetricRejectsMisassignedKeys(t *testing.T) {
	hmacKey := mustSecret(t, primitive.HMACSHA256, 1, 32)
	_, err := NewSymmetric(nil, "sym", SymmetricKeys{Encryption: hmacKey})
	if !errors.Is(err, mslerror.InvalidEncryptionKey) {
		t.Fatalf("HMAC key in encryption slot: error = %v, want INVALID_ENCRYPTION_KEY", err)
	}
}

func TestWrapUnwrap(t *testing.T) {
	keyA, _ := testRSAKeys(t)
	rsaWrap, err := NewRSA(nil, "rsa-wrap", keyA, nil, RSAWrap)
	if err != nil {
		t.Fatalf("NewRSA: %v", err)
	}
	derived, err := NewDerivedWrap(nil, "psk",
		mustSecret(t, primitive.AES, 0x01, 16),
		mustSecret(t, primitive.HMACSHA256, 0x02, 32))
	if err != nil {
		t.Fatalf("NewDerivedWrap: %v", err)
	}

	contexts := map[string]CryptoContext{
		"symmetric": newTestSymmetric(t, "sym", 0x60),
		"derived":   derived,
		"rsa":       rsaWrap,
		"null":      Null(),
	}
	session := mustSecret(t, primitive.HMACSHA256, 0x77, 32)
	for name, context := range contexts {
		t.Run(name, func(t *testing.T) {
			wrapped, err := context.WrapKey(session)
			if err != nil {
				t.Fatalf("WrapKey: %v", err)
			}
			unwrapped, err := context.UnwrapKey(wrapped, primitive.HMACSHA256)
			if err != nil {
				t.Fatalf("UnwrapKey: %v", err)
			}
			if !unwrapped.Equal(session) {
				t.Fatal("unwrapped key differs from the original")
			}
		})
	}

	if _, err := derived.Sign([]byte("x")); !errors.Is(err, mslerror.SignNotSupported) {
		t.Fatalf("derived wrap context Sign: error = %v, want SIGN_NOT_SUPPORTED", err)
	}
}

func TestDerivedWrapIsDeterministic(t *testing.T) {
	encryption := mustSecret(t, primitive.AES, 0x01, 16)
	signing := mustSecret(t, primitive.HMACSHA256, 0x02, 32)
	first, err := NewDerivedWrap(nil, "psk", encryption, signing)
	if err != nil {
		t.Fatalf("NewDerivedWrap: %v", err)
	}
	second, err := NewDerivedWrap(nil, "psk", encryption, signing)
	if err != nil {
		t.Fatalf("NewDerivedWrap: %v", err)
	}

	session := mustSecret(t, primitive.AES, 0x09, 16)
	wrapped, err := first.WrapKey(session)
	if err != nil {
		t.Fatalf("WrapKey: %v", err)
	}
	unwrapped, err := second.UnwrapKey(wrapped, primitive.AES)
	if err != nil {
		t.Fatalf("independently derived context cannot unwrap: %v", err)
	}
	if !unwrapped.Equal(session) {
		t.Fatal("unwrapped key differs")
	}
}

func TestRSAEncryptMode(t *testing.T) {
	keyA, _ := testRSAKeys(t)
	context, err := NewRSA(nil, "rsa-enc", keyA, nil, RSAEncrypt)
	if err != nil {
		t.Fatalf("NewRSA: %v", err)
	}
	ciphertext, err := context.Encrypt([]byte("hello"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	plaintext, err := context.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(plaintext) != "hello" {
		t.Fatalf("Decrypt = %q", plaintext)
	}
	if _, err := context.Sign([]byte("x")); !errors.Is(err, mslerror.SignNotSupported) {
		t.Fatalf("Sign in encrypt mode: error = %v, want SIGN_NOT_SUPPORTED", err)
	}
}

func TestDiffieHellmanAgreement(t *testing.T) {
	alicePrivate, alicePublic, err := GenerateX25519(nil)
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	bobPrivate, bobPublic, err := GenerateX25519(nil)
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}

	alice, err := NewDiffieHellman(nil, "session", alicePrivate, bobPublic)
	if err != nil {
		t.Fatalf("NewDiffieHellman(alice): %v", err)
	}
	bob, err := NewDiffieHellman(nil, "session", bobPrivate, alicePublic)
	if err != nil {
		t.Fatalf("NewDiffieHellman(bob): %v", err)
	}
	if alice.Kind() != KindDiffieHellman {
		t.Fatalf("Kind = %s", alice.Kind())
	}
	if !bytes.Equal(alice.LocalPublic(), alicePublic) {
		t.Fatal("LocalPublic does not match the generated public key")
	}

	ciphertext, err := alice.Encrypt([]byte("over the wire"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	plaintext, err := bob.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("peer Decrypt: %v", err)
	}
	if string(plaintext) != "over the wire" {
		t.Fatalf("peer Decrypt = %q", plaintext)
	}

	signature, err := bob.Sign([]byte("ack"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if ok, err := alice.Verify([]byte("ack"), signature); err != nil || !ok {
		t.Fatalf("peer Verify = %v, %v", ok, err)
	}

	if _, err := NewDiffieHellman(nil, "session", alicePrivate[:5], bobPublic); !errors.Is(err, mslerror.InvalidPrivateKey) {
		t.Fatalf("short private key: error = %v, want INVALID_PRIVATE_KEY", err)
	}
	if _, err := NewDiffieHellman(nil, "session", alicePrivate, make([]byte, 32)); !errors.Is(err, mslerror.KeyDerivationError) {
		t.Fatalf("low-order peer key: error = %v, want KEY_DERIVATION_ERROR", err)
	}
}

func TestNullContext(t *testing.T) {
	context := Null()
	if context.Kind() != KindNull {
		t.Fatalf("Kind = %s", context.Kind())
	}
	data := []byte("plain")
	encrypted, err := context.Encrypt(data)
	if err != nil || !bytes.Equal(encrypted, data) {
		t.Fatalf("Encrypt = %q, %v", encrypted, err)
	}
	decrypted, err := context.Decrypt(data)
	if err != nil || !bytes.Equal(decrypted, data) {
		t.Fatalf("Decrypt = %q, %v", decrypted, err)
	}
	signature, err := context.Sign(data)
	if err != nil || len(signature) != 0 {
		t.Fatalf("Sign = %x, %v; want empty", signature, err)
	}
	if ok, err := context.Verify(data, []byte("anything")); err != nil || !ok {
		t.Fatalf("Verify = %v, %v; want true", ok, err)
	}
}

func TestConcurrentSigning(t *testing.T) {
	context := newTestSymmetric(t, "shared", 0x21)
	var wait sync.WaitGroup
	failures := make(chan string, 64)
	for worker := range 16 {
		wait.Add(1)
		go func() {
			defer wait.Done()
			message := []byte{byte(worker)}
			for range 50 {
				signature, err := context.Sign(message)
				if err != nil {
					failures <- err.Error()
					return
				}
				if ok, err := context.Verify(message, signature); err != nil || !ok {
					failures <- "verification failed"
					return
				}
			}
		}()
	}
	wait.Wait()
	close(failures)
	for failure := range failures {
		t.Error(failure)
	}
}
