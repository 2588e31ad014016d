// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package primitive is the capability boundary between the trust core
// and the engine that executes raw cryptographic primitives.
//
// Crypto contexts never call AES, RSA, ECDSA or HMAC directly: they
// hold a [Provider] and ask it to. [Default] returns the in-process
// provider built on the Go standard library and golang.org/x/crypto.
// Deployments with hardware acceleration or a remote signer supply
// their own Provider; nothing above this package changes.
//
// The package also owns key material representation:
//
//   - [SecretKey] is an immutable handle for symmetric keys (AES
//     content keys, HMAC keys, AES key-wrap keys). Material is copied
//     on the way in and on the way out; holders cannot mutate a key
//     another goroutine is using.
//   - [KeyFormat] tags (JWK, SPKI, PKCS8, RAW) select how an encoded
//     key blob is interpreted by [ImportPublicKey], [ImportPrivateKey]
//     and [ImportSecretKey]. Import failures are the
//     INVALID_PUBLIC_KEY / INVALID_PRIVATE_KEY / INVALID_ENCRYPTION_KEY
//     / INVALID_HMAC_KEY codes from lib/mslerror.
package primitive
