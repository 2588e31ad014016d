// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cryptocontext provides the uniform sign, verify, encrypt,
// decrypt, wrap and unwrap façade that tokens and entity
// authentication are built on.
//
// A [CryptoContext] is one closed variant over one algorithm family:
//
//   - [Symmetric]: AES-128-CBC with PKCS#7 padding, HMAC-SHA256
//     signatures, AES key wrap (RFC 3394). [NewWrap] and
//     [NewDerivedWrap] build wrap-only symmetric contexts.
//   - [RSA]: OAEP-SHA256 encryption or key wrap, or PKCS#1 v1.5
//     SHA-256 signatures, selected by [RSAMode].
//   - [ECC]: ECDSA SHA-256 signatures only.
//   - [DiffieHellman]: X25519 agreement expanded by HKDF-SHA256 into a
//     full symmetric key set.
//   - [Null]: identity pass-through, used for unprotected service
//     tokens.
//
// # Capability probing
//
// Callers discover what a context can do by attempting the operation.
// An operation that needs key material the context does not hold fails
// with the matching *_NOT_SUPPORTED code from lib/mslerror
// (mslerror.IsCapabilityAbsent reports true). An operation that was
// attempted and failed inside the provider reports the generic crypto
// code (ENCRYPT_ERROR, HMAC_ERROR, and so on).
//
// Verify never reports an error for a well-formed signature that does
// not match: it returns false, nil. That includes signatures produced
// by a different keypair.
//
// # Concurrency
//
// Contexts are immutable after construction. Every method is safe to
// call from any number of goroutines. Operations are synchronous and
// run to completion; there is no cancellation.
//
// # Ciphertext envelope
//
// Symmetric encryption output is a deterministic CBOR map
// {version, keyid, iv, ciphertext}. Decrypt rejects an envelope with
// an unknown version or a key id other than the context's own with
// CIPHERTEXT_ENVELOPE_INVALID, so a token encrypted under one issuer
// key fails loudly when presented to another.
package cryptocontext
